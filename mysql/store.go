package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/velmie/tracker"
)

const (
	pruneFixedArgs    = 2
	placeholderGrowth = 2
)

// Store implements tracker.Storage on a MySQL key/value table.
type Store struct {
	db      *sql.DB
	cfg     Config
	queries queries
	table   string
}

var _ tracker.Storage = (*Store)(nil)

// KeyInfo describes one stored key.
type KeyInfo struct {
	Key       string
	Size      int64
	UpdatedAt time.Time
}

// NewStore constructs a MySQL store with validated configuration.
func NewStore(db *sql.DB, opts ...Option) (*Store, error) {
	if db == nil {
		return nil, ErrDBRequired
	}

	var cfg Config
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg = cfg.withDefaults()

	table, err := sanitizeTableName(cfg.Table)
	if err != nil {
		return nil, err
	}

	return &Store{
		db:      db,
		cfg:     cfg,
		queries: newQueries(table),
		table:   table,
	}, nil
}

// MustNewStore constructs a MySQL store or panics on error.
func MustNewStore(db *sql.DB, opts ...Option) *Store {
	store, err := NewStore(db, opts...)
	if err != nil {
		panic(err)
	}

	return store
}

// EnsureSchema creates the state table when it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	schema, err := Schema(s.table)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("tracker mysql: create table failed: %w", err)
	}

	return nil
}

// Load returns the value stored under key, or tracker.ErrNotFound.
func (s *Store) Load(ctx context.Context, key string) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	var value []byte
	err := s.db.QueryRowContext(ctx, s.queries.load, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, tracker.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("tracker mysql: load failed: %w", err)
	}

	return value, nil
}

// Save replaces the value stored under key.
func (s *Store) Save(ctx context.Context, key string, value []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if value == nil {
		value = []byte{}
	}

	if _, err := s.db.ExecContext(ctx, s.queries.save, key, value, s.cfg.Clock.Now().UTC()); err != nil {
		return fmt.Errorf("tracker mysql: save failed: %w", err)
	}

	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, s.queries.delete, key); err != nil {
		return fmt.Errorf("tracker mysql: delete failed: %w", err)
	}

	return nil
}

// Keys lists the stored keys ordered by name.
func (s *Store) Keys(ctx context.Context) ([]KeyInfo, error) {
	rows, err := s.db.QueryContext(ctx, s.queries.list)
	if err != nil {
		return nil, fmt.Errorf("tracker mysql: list failed: %w", err)
	}
	defer rows.Close()

	var keys []KeyInfo
	for rows.Next() {
		var info KeyInfo
		if err := rows.Scan(&info.Key, &info.Size, &info.UpdatedAt); err != nil {
			return nil, fmt.Errorf("tracker mysql: scan failed: %w", err)
		}
		keys = append(keys, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("tracker mysql: rows failed: %w", err)
	}

	return keys, nil
}

func buildPruneQuery(table string, keep int) string {
	if keep == 0 {
		return fmt.Sprintf("DELETE FROM %s WHERE updated_at <= ? ORDER BY updated_at LIMIT ?", table)
	}

	return fmt.Sprintf(
		"DELETE FROM %s WHERE updated_at <= ? AND state_key NOT IN (%s) ORDER BY updated_at LIMIT ?",
		table,
		makePlaceholders(keep),
	)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}

	buf := make([]byte, 0, count*placeholderGrowth)
	for i := 0; i < count; i++ {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = append(buf, '?')
	}

	return string(buf)
}
