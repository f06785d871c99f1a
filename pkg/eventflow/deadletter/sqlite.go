package deadletter

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLiteStore persists failed events to SQLite.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// NewSQLiteStore opens or creates a store at path. Use ":memory:" for a
// throwaway store.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if path == ":memory:" {
		// Every connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS dead_letters (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			event_id TEXT NOT NULL UNIQUE,
			event_type TEXT NOT NULL,
			event_data BLOB NOT NULL,
			error TEXT NOT NULL,
			stage TEXT NOT NULL,
			attempts INTEGER NOT NULL,
			first_failed_at TEXT NOT NULL,
			last_failed_at TEXT NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Enqueue implements Store.
func (s *SQLiteStore) Enqueue(ctx context.Context, f *FailedEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO dead_letters (
			event_id, event_type, event_data, error, stage,
			attempts, first_failed_at, last_failed_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(event_id) DO UPDATE SET
			event_type = excluded.event_type,
			event_data = excluded.event_data,
			error = excluded.error,
			stage = excluded.stage,
			attempts = dead_letters.attempts + excluded.attempts,
			last_failed_at = excluded.last_failed_at
	`,
		f.EventID, f.EventType, f.EventData, f.Error, f.Stage, f.Attempts,
		formatTime(f.FirstFailedAt), formatTime(f.LastFailedAt),
	)
	if err != nil {
		return fmt.Errorf("enqueue dead letter: %w", err)
	}
	return nil
}

// List implements Store.
func (s *SQLiteStore) List(ctx context.Context, limit int) ([]*FailedEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT event_id, event_type, event_data, error, stage,
			attempts, first_failed_at, last_failed_at
		FROM dead_letters
		ORDER BY seq
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list dead letters: %w", err)
	}
	defer rows.Close()

	var out []*FailedEvent
	for rows.Next() {
		var (
			f           FailedEvent
			first, last string
		)
		if err := rows.Scan(&f.EventID, &f.EventType, &f.EventData, &f.Error, &f.Stage,
			&f.Attempts, &first, &last); err != nil {
			return nil, fmt.Errorf("scan dead letter: %w", err)
		}
		f.FirstFailedAt, _ = time.Parse(time.RFC3339Nano, first)
		f.LastFailedAt, _ = time.Parse(time.RFC3339Nano, last)
		out = append(out, &f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dead letters: %w", err)
	}
	return out, nil
}

// Acknowledge implements Store.
func (s *SQLiteStore) Acknowledge(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM dead_letters WHERE event_id IN ("+placeholders+")", args...); err != nil {
		return fmt.Errorf("acknowledge dead letters: %w", err)
	}
	return nil
}

// Count implements Store.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, ErrStoreClosed
	}
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM dead_letters").Scan(&n); err != nil {
		return 0, fmt.Errorf("count dead letters: %w", err)
	}
	return n, nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(time.RFC3339Nano)
}
