package query

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/rebeliceyang/lazyroster/internal/dataset"
)

// TableQuery builds a SELECT over a whole table named "table" or
// "schema.table". Identifiers are quoted, so the name cannot inject SQL.
func TableQuery(name string, limit int) (string, error) {
	parts := strings.Split(strings.TrimSpace(name), ".")
	if len(parts) > 2 {
		return "", fmt.Errorf("invalid table name %q: expected table or schema.table", name)
	}
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			return "", fmt.Errorf("invalid table name %q", name)
		}
	}

	q := "SELECT * FROM " + pgx.Identifier(parts).Sanitize()
	if limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", limit)
	}
	return q, nil
}

// LoadTable loads a table as a dataset named after it. A positive limit
// caps the rows read.
func LoadTable(ctx context.Context, q Querier, name string, limit int) (*dataset.Dataset, error) {
	sql, err := TableQuery(name, limit)
	if err != nil {
		return nil, err
	}
	ds, err := LoadDataset(ctx, q, sql)
	if err != nil {
		return nil, fmt.Errorf("failed to load table %s: %w", name, err)
	}
	return ds.WithName(name), nil
}
