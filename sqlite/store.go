// Package sqlite keeps the tracker queue snapshot in a SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/velmie/tracker"
)

// ErrBusy is returned when another connection holds the database lock past the busy timeout.
var ErrBusy = errors.New("tracker sqlite: database is busy")

const schema = `CREATE TABLE IF NOT EXISTS tracker_state (
	state_key TEXT PRIMARY KEY,
	value BLOB NOT NULL,
	updated_at INTEGER NOT NULL
)`

// KeyInfo describes one stored key.
type KeyInfo struct {
	Key       string
	Size      int64
	UpdatedAt time.Time
}

// Store implements tracker.Storage on a SQLite database.
type Store struct {
	sqlDB *sql.DB
	clock tracker.Clock
}

var _ tracker.Storage = (*Store)(nil)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens the database at path in WAL mode and creates the state table.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) +
		"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create state table: %w", err)
	}
	return &Store{sqlDB: sqlDB, clock: tracker.SystemClock{}}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Load returns the value stored under key, or tracker.ErrNotFound.
func (s *Store) Load(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.sqlDB.QueryRowContext(ctx, `SELECT value FROM tracker_state WHERE state_key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, tracker.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load %q: %w", key, mapError(err))
	}
	return value, nil
}

// Save replaces the value stored under key.
func (s *Store) Save(ctx context.Context, key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO tracker_state (state_key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(state_key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key,
		value,
		toMillis(s.clock.Now()),
	)
	if err != nil {
		return fmt.Errorf("save %q: %w", key, mapError(err))
	}
	return nil
}

// Delete removes key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM tracker_state WHERE state_key = ?`, key); err != nil {
		return fmt.Errorf("delete %q: %w", key, mapError(err))
	}
	return nil
}

// Keys lists stored keys ordered by name.
func (s *Store) Keys(ctx context.Context) ([]KeyInfo, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT state_key, length(value), updated_at FROM tracker_state ORDER BY state_key`)
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", mapError(err))
	}
	defer rows.Close()

	var keys []KeyInfo
	for rows.Next() {
		var (
			info      KeyInfo
			updatedAt int64
		)
		if err := rows.Scan(&info.Key, &info.Size, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		info.UpdatedAt = fromMillis(updatedAt)
		keys = append(keys, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	return keys, nil
}

// Prune deletes keys last written at or before before, except those listed in keep.
func (s *Store) Prune(ctx context.Context, before time.Time, keep ...string) (int64, error) {
	if before.IsZero() {
		return 0, fmt.Errorf("prune cutoff is required")
	}
	query := `DELETE FROM tracker_state WHERE updated_at <= ?`
	args := []any{toMillis(before)}
	if len(keep) > 0 {
		query += ` AND state_key NOT IN (?` + strings.Repeat(`, ?`, len(keep)-1) + `)`
		for _, key := range keep {
			args = append(args, key)
		}
	}
	res, err := s.sqlDB.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("prune: %w", mapError(err))
	}
	return res.RowsAffected()
}

func mapError(err error) error {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code()&0xff == sqlite3lib.SQLITE_BUSY {
		return fmt.Errorf("%w: %v", ErrBusy, err)
	}
	return err
}
