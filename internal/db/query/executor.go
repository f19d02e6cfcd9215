// Package query loads the result of a SQL query as a dataset.
package query

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/rebeliceyang/lazyroster/internal/dataset"
	"github.com/rebeliceyang/lazyroster/internal/models"
)

// Querier is the part of *pgxpool.Pool (or *pgx.Conn) the loader needs
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// LoadDataset runs sql and collects the result into a dataset. Column kinds
// come from the result's type OIDs; types we do not map are inferred from
// the values.
func LoadDataset(ctx context.Context, q Querier, sql string, args ...any) (*dataset.Dataset, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	fieldDescs := rows.FieldDescriptions()
	columns := make([]models.Column, len(fieldDescs))
	for i, fd := range fieldDescs {
		columns[i] = models.Column{Name: fd.Name, Kind: KindForOID(fd.DataTypeOID)}
	}

	var result []models.Row
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", len(result), err)
		}

		row := make(models.Row, len(values))
		for i, v := range values {
			row[columns[i].Name] = ConvertValue(v)
		}
		result = append(result, row)
	}

	// Check for errors from iteration
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return dataset.New(columns, result)
}

// KindForOID maps a Postgres type OID to a column kind. Unmapped types
// return KindUnknown so the dataset infers them.
func KindForOID(oid uint32) models.ColumnKind {
	switch oid {
	case pgtype.Int2OID, pgtype.Int4OID, pgtype.Int8OID,
		pgtype.Float4OID, pgtype.Float8OID, pgtype.NumericOID:
		return models.KindNumeric
	case pgtype.DateOID, pgtype.TimestampOID, pgtype.TimestamptzOID:
		return models.KindDate
	case pgtype.TextOID, pgtype.VarcharOID, pgtype.BPCharOID, pgtype.NameOID,
		pgtype.UUIDOID, pgtype.BoolOID, pgtype.JSONOID, pgtype.JSONBOID:
		return models.KindText
	default:
		return models.KindUnknown
	}
}

// ConvertValue turns a pgx-decoded value into a plain cell value
func ConvertValue(val any) any {
	switch v := val.(type) {
	case nil:
		return nil
	case pgtype.Numeric:
		f, err := v.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	case [16]byte:
		return uuid.UUID(v).String()
	case time.Time:
		return v
	case pgtype.InfinityModifier:
		return v.String()
	case map[string]any, []any:
		// JSON and JSONB
		jsonBytes, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(jsonBytes)
	case []byte:
		return string(v)
	case string, bool, int16, int32, int64, float32, float64:
		return v
	default:
		return fmt.Sprintf("%v", val)
	}
}
