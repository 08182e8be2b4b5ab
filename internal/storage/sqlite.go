package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/kpyopark/MMU-RAG-competition/internal/report"
)

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates or opens a SQLite database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			query TEXT,
			next_index INTEGER,
			total_sections INTEGER,
			state JSON,
			updated_at TIMESTAMP
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_updated ON runs(updated_at);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) Save(ctx context.Context, state *report.GenerationState) error {
	state.UpdatedAt = time.Now()
	blob, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal run state: %w", err)
	}

	total := 0
	if state.Structure != nil {
		total = state.Structure.TotalSections()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (run_id, query, next_index, total_sections, state, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			query=excluded.query,
			next_index=excluded.next_index,
			total_sections=excluded.total_sections,
			state=excluded.state,
			updated_at=excluded.updated_at
	`, state.RunID, state.Query, state.NextIndex, total, blob, state.UpdatedAt)

	return err
}

func (s *SQLiteStore) Load(ctx context.Context, runID string) (*report.GenerationState, error) {
	row := s.db.QueryRowContext(ctx, "SELECT state FROM runs WHERE run_id = ?", runID)

	var blob []byte
	if err := row.Scan(&blob); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrRunNotFound
		}
		return nil, err
	}

	var state report.GenerationState
	if err := json.Unmarshal(blob, &state); err != nil {
		return nil, fmt.Errorf("unmarshal run state: %w", err)
	}
	return &state, nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]RunSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT run_id, query, next_index, total_sections, updated_at FROM runs ORDER BY updated_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.RunID, &r.Query, &r.NextIndex, &r.TotalSections, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Delete(ctx context.Context, runID string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM runs WHERE run_id = ?", runID)
	return err
}
