package connection

import (
	"os"
	"strconv"

	"github.com/rebeliceyang/lazyroster/internal/models"
)

// WithEnvironment fills the blank fields of config from the standard
// PostgreSQL environment variables. A DSN is returned untouched.
func WithEnvironment(config models.ConnectionConfig) models.ConnectionConfig {
	if config.DSN != "" {
		return config
	}

	fill := func(field *string, env string) {
		if *field == "" {
			*field = os.Getenv(env)
		}
	}
	fill(&config.Host, "PGHOST")
	fill(&config.Database, "PGDATABASE")
	fill(&config.User, "PGUSER")
	fill(&config.Password, "PGPASSWORD")
	fill(&config.SSLMode, "PGSSLMODE")

	if config.Port == 0 {
		if p, err := strconv.Atoi(os.Getenv("PGPORT")); err == nil && p > 0 && p <= 65535 {
			config.Port = p
		}
	}

	// Set defaults
	if config.Host == "" {
		config.Host = "localhost"
	}
	if config.User == "" {
		config.User = os.Getenv("USER")
	}
	if config.Database == "" {
		config.Database = config.User
	}
	return config
}
