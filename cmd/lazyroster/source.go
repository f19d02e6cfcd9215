package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rebeliceyang/lazyroster/internal/config"
	"github.com/rebeliceyang/lazyroster/internal/dataset"
	"github.com/rebeliceyang/lazyroster/internal/db/connection"
	"github.com/rebeliceyang/lazyroster/internal/db/query"
)

var errNoSource = errors.New("no dataset: pass --file (or a file argument), --pg-query or --pg-table")

// source loads, and can reload, the session's dataset
type source struct {
	name  string
	load  func(ctx context.Context) (*dataset.Dataset, error)
	close func()
}

func (s *source) Name() string { return s.name }

func (s *source) Load(ctx context.Context) (*dataset.Dataset, error) {
	return s.load(ctx)
}

func (s *source) Close() {
	if s.close != nil {
		s.close()
	}
}

func openSource(ctx context.Context, opts *cliOptions, cfg *config.Config) (*source, error) {
	switch {
	case countSet(opts.file, opts.pgQuery, opts.pgTable) > 1:
		return nil, errors.New("--file, --pg-query and --pg-table are mutually exclusive")
	case len(opts.appends) > 0 && opts.file == "":
		return nil, errors.New("--append needs --file")
	case opts.file != "":
		path, sheet, appends := opts.file, opts.sheet, opts.appends
		return &source{
			name: path,
			load: func(context.Context) (*dataset.Dataset, error) {
				return loadFiles(path, sheet, appends)
			},
		}, nil
	case opts.pgQuery != "" || opts.pgTable != "":
		return openPostgres(ctx, opts, cfg)
	case opts.pgDSN != "":
		return nil, errors.New("--pg-dsn needs --pg-query or --pg-table")
	default:
		return nil, errNoSource
	}
}

func openPostgres(ctx context.Context, opts *cliOptions, cfg *config.Config) (*source, error) {
	conn := cfg.Postgres
	if opts.pgDSN != "" {
		conn.DSN = opts.pgDSN
	}
	conn = connection.WithEnvironment(conn)

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	pool, err := connection.NewPool(connectCtx, conn)
	if err != nil {
		return nil, fmt.Errorf("could not connect to postgres: %w", err)
	}

	if table := opts.pgTable; table != "" {
		if _, err := query.TableQuery(table, 0); err != nil {
			pool.Close()
			return nil, err
		}
		return &source{
			name: table,
			load: func(ctx context.Context) (*dataset.Dataset, error) {
				return query.LoadTable(ctx, pool.GetPool(), table, 0)
			},
			close: pool.Close,
		}, nil
	}

	sql, name := opts.pgQuery, pool.Name()
	return &source{
		name: name,
		load: func(ctx context.Context) (*dataset.Dataset, error) {
			ds, err := query.LoadDataset(ctx, pool.GetPool(), sql)
			if err != nil {
				return nil, err
			}
			return ds.WithName(name), nil
		},
		close: pool.Close,
	}, nil
}

// loadFiles loads path and appends the rows of every extra file to it
func loadFiles(path, sheet string, appends []string) (*dataset.Dataset, error) {
	ds, err := dataset.LoadSheet(path, sheet)
	if err != nil {
		return nil, err
	}
	for _, extra := range appends {
		more, err := dataset.LoadSheet(extra, sheet)
		if err != nil {
			return nil, err
		}
		if ds, err = ds.Append(more); err != nil {
			return nil, fmt.Errorf("failed to append %s: %w", extra, err)
		}
	}
	return ds, nil
}

func countSet(values ...string) int {
	n := 0
	for _, v := range values {
		if v != "" {
			n++
		}
	}
	return n
}
