package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Capybaralifestyle/moonshot-poc/internal/domain"
)

// SQLiteStore implements Store using SQLite. It is the default backend so
// the service runs without the hosted platform.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the database and runs migrations.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection to avoid schema/data disappearing across goroutines.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			description TEXT NOT NULL,
			results TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_user ON runs(user_id, created_at)`,
	}
	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// SaveRun appends a run record.
func (s *SQLiteStore) SaveRun(ctx context.Context, run *domain.PersistedRun) error {
	results, err := json.Marshal(run.Results)
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	createdAt := run.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, user_id, description, results, created_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.UserID, run.Description, string(results), createdAt)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

// LatestRun returns the user's most recent run.
func (s *SQLiteStore) LatestRun(ctx context.Context, userID string) (*domain.PersistedRun, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT run_id, user_id, description, results, created_at
		 FROM runs WHERE user_id = ? ORDER BY created_at DESC, run_id DESC LIMIT 1`, userID)
	return scanRun(row)
}

// LatestRunByDescription returns the user's most recent run for description.
func (s *SQLiteStore) LatestRunByDescription(ctx context.Context, userID, description string) (*domain.PersistedRun, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT run_id, user_id, description, results, created_at
		 FROM runs WHERE user_id = ? AND description = ?
		 ORDER BY created_at DESC, run_id DESC LIMIT 1`, userID, description)
	return scanRun(row)
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func scanRun(row *sql.Row) (*domain.PersistedRun, error) {
	var run domain.PersistedRun
	var results string
	err := row.Scan(&run.ID, &run.UserID, &run.Description, &results, &run.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}
	if err := json.Unmarshal([]byte(results), &run.Results); err != nil {
		return nil, fmt.Errorf("failed to unmarshal results: %w", err)
	}
	return &run, nil
}
