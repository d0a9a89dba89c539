// Package history persists one record per build run so repeated builds can
// be inspected after the fact.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const driverName = "sqlite"

// Record is one completed (or failed) build.
type Record struct {
	ID              string
	ProjectKey      string
	StartedAt       time.Time
	Duration        time.Duration
	ModulesTotal    int
	ModulesReused   int
	ModulesCompiled int
	Workers         int
	Outcome         string // "ok", a BuildError code, or "error" for any other failure
	ErrorMessage    string
}

type Store struct {
	path string
	db   *sql.DB
	mu   sync.Mutex
}

func Open(path string) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("history path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("history path %q is a directory, expected file", cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history directory %q: %w", dir, err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(2000)&_pragma=journal_mode(WAL)", cleanPath)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite history %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite history %q: %w", cleanPath, err)
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize sqlite schema %q: %w", cleanPath, err)
	}

	return &Store{path: cleanPath, db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveBuild inserts the record, assigning an id and timestamp when absent.
func (s *Store) SaveBuild(ctx context.Context, rec Record) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.ProjectKey == "" {
		rec.ProjectKey = "default"
	}
	if rec.StartedAt.IsZero() {
		rec.StartedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO builds (id, project_key, started_at_utc, duration_ms, modules_total, modules_reused, modules_compiled, workers, outcome, error_message)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.ProjectKey,
		rec.StartedAt.UTC().Format(time.RFC3339Nano),
		rec.Duration.Milliseconds(),
		rec.ModulesTotal,
		rec.ModulesReused,
		rec.ModulesCompiled,
		rec.Workers,
		rec.Outcome,
		rec.ErrorMessage,
	)
	if err != nil {
		return Record{}, fmt.Errorf("save build record: %w", err)
	}
	return rec, nil
}

// RecentBuilds returns up to limit records for the project, newest first.
func (s *Store) RecentBuilds(ctx context.Context, projectKey string, limit int) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if projectKey == "" {
		projectKey = "default"
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT id, project_key, started_at_utc, duration_ms, modules_total, modules_reused, modules_compiled, workers, outcome, error_message
FROM builds
WHERE project_key = ?
ORDER BY started_at_utc DESC
LIMIT ?`, projectKey, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent builds: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var startedAt string
		var durationMS int64
		if err := rows.Scan(
			&rec.ID,
			&rec.ProjectKey,
			&startedAt,
			&durationMS,
			&rec.ModulesTotal,
			&rec.ModulesReused,
			&rec.ModulesCompiled,
			&rec.Workers,
			&rec.Outcome,
			&rec.ErrorMessage,
		); err != nil {
			return nil, err
		}
		if ts, err := time.Parse(time.RFC3339Nano, startedAt); err == nil {
			rec.StartedAt = ts
		}
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		records = append(records, rec)
	}
	return records, rows.Err()
}
