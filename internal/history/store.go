// Package history records snapshots of computed views in SQLite.
package history

import (
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rebeliceyang/lazyroster/internal/filter"
	"github.com/rebeliceyang/lazyroster/internal/models"
	"github.com/rebeliceyang/lazyroster/internal/view"
)

//go:embed schema.sql
var schemaSQL string

// Snapshot records the rules, search and counts of one computed view
type Snapshot struct {
	ID          int64
	DatasetName string
	Mode        models.FilterMode
	Rules       []models.Rule
	Search      models.SearchQuery
	Note        string
	TotalRows   int
	MatchedRows int
	CreatedAt   time.Time
}

// NewSnapshot captures the state behind v
func NewSnapshot(datasetName string, rs filter.RuleSet, q models.SearchQuery, v *view.View) Snapshot {
	return Snapshot{
		DatasetName: datasetName,
		Mode:        rs.Mode(),
		Rules:       rs.Rules(),
		Search:      q,
		TotalRows:   v.TotalRows(),
		MatchedRows: v.Len(),
		CreatedAt:   time.Now(),
	}
}

// RuleSet rebuilds the recorded rules
func (s Snapshot) RuleSet() (filter.RuleSet, error) {
	return filter.NewRuleSetFrom(s.Mode, s.Rules...)
}

// Store manages snapshot persistence
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the snapshot database at path
func NewStore(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if path == ":memory:" {
		// every connection would get its own empty database
		db.SetMaxOpenConns(1)
	}

	// Create schema
	_, err = db.Exec(schemaSQL)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create history schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Add records a snapshot and returns its ID
func (s *Store) Add(snap Snapshot) (int64, error) {
	rulesJSON, err := json.Marshal(snap.Rules)
	if err != nil {
		return 0, fmt.Errorf("failed to encode rules: %w", err)
	}
	searchJSON, err := json.Marshal(snap.Search)
	if err != nil {
		return 0, fmt.Errorf("failed to encode search: %w", err)
	}
	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = time.Now()
	}

	labels := make([]string, len(snap.Rules))
	for i, r := range snap.Rules {
		labels[i] = r.String()
	}

	res, err := s.db.Exec(`
		INSERT INTO view_snapshots
		(dataset_name, mode, rules_json, search_json, rule_labels, note, total_rows, matched_rows, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		snap.DatasetName,
		string(snap.Mode),
		string(rulesJSON),
		string(searchJSON),
		strings.Join(labels, "; "),
		snap.Note,
		snap.TotalRows,
		snap.MatchedRows,
		snap.CreatedAt.UnixNano(),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const selectColumns = `
		SELECT id, dataset_name, mode, rules_json, search_json, note,
		       total_rows, matched_rows, created_at
		FROM view_snapshots`

// Get returns the snapshot with the given ID
func (s *Store) Get(id int64) (*Snapshot, error) {
	entries, err := s.query(selectColumns+` WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("snapshot %d was not found", id)
	}
	return &entries[0], nil
}

// GetRecent retrieves the most recent snapshots
func (s *Store) GetRecent(limit int) ([]Snapshot, error) {
	return s.query(selectColumns+`
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, limit)
}

// Search finds snapshots whose dataset name, note, rule labels or search
// text contain text
func (s *Store) Search(text string, limit int) ([]Snapshot, error) {
	like := "%" + text + "%"
	return s.query(selectColumns+`
		WHERE dataset_name LIKE ? OR note LIKE ? OR rule_labels LIKE ? OR search_json LIKE ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, like, like, like, like, limit)
}

// Prune keeps only the newest keep snapshots and returns how many were
// removed. keep <= 0 keeps everything.
func (s *Store) Prune(keep int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}
	res, err := s.db.Exec(`
		DELETE FROM view_snapshots
		WHERE id NOT IN (
			SELECT id FROM view_snapshots ORDER BY created_at DESC, id DESC LIMIT ?
		)`, keep)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store) query(q string, args ...any) ([]Snapshot, error) {
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var entries []Snapshot
	for rows.Next() {
		var e Snapshot
		var mode, rulesJSON, searchJSON string
		var createdAt int64

		err := rows.Scan(
			&e.ID,
			&e.DatasetName,
			&mode,
			&rulesJSON,
			&searchJSON,
			&e.Note,
			&e.TotalRows,
			&e.MatchedRows,
			&createdAt,
		)
		if err != nil {
			return nil, err
		}

		e.Mode = models.FilterMode(mode)
		if err := json.Unmarshal([]byte(rulesJSON), &e.Rules); err != nil {
			return nil, fmt.Errorf("snapshot %d: failed to decode rules: %w", e.ID, err)
		}
		if err := json.Unmarshal([]byte(searchJSON), &e.Search); err != nil {
			return nil, fmt.Errorf("snapshot %d: failed to decode search: %w", e.ID, err)
		}
		e.CreatedAt = time.Unix(0, createdAt)

		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
