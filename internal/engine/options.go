package engine

import (
	"runtime"

	"github.com/rebeliceyang/lazyroster/internal/logging"
	"github.com/rebeliceyang/lazyroster/internal/models"
)

type options struct {
	parallelism int
	logger      *logging.Logger
	mode        models.FilterMode
}

// Option configures Compute and NewSession.
type Option func(*options)

func defaultOptions() options {
	return options{
		parallelism: runtime.GOMAXPROCS(0),
		logger:      logging.Noop(),
		mode:        models.ModeAll,
	}
}

// WithParallelism caps how many rules are evaluated at once.
// Values below 1 mean one rule at a time.
func WithParallelism(n int) Option {
	return func(o *options) {
		if n < 1 {
			n = 1
		}
		o.parallelism = n
	}
}

// WithLogger sets the session logger. nil disables logging.
func WithLogger(l *logging.Logger) Option {
	return func(o *options) {
		if l == nil {
			l = logging.Noop()
		}
		o.logger = l
	}
}

// WithMode sets the mode of a new session's empty rule set
func WithMode(m models.FilterMode) Option {
	return func(o *options) {
		o.mode = m
	}
}
