package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/velmie/tracker"
)

const (
	defaultPruneLimit      = 1000
	defaultPruneEvery      = time.Hour
	defaultPruneLockPrefix = "tracker:prune:"
)

// PruneOptions defines which rows to delete.
type PruneOptions struct {
	// Before removes rows last written at or before this timestamp (required).
	Before time.Time
	// Limit caps the number of rows deleted per call (0 uses the default).
	Limit int
	// Keep lists keys that are never pruned, e.g. the key of the running client.
	Keep []string
}

// PruneResult reports how many rows were removed.
type PruneResult struct {
	Deleted int64
}

// PruneMaintainerConfig controls periodic pruning of stale keys.
type PruneMaintainerConfig struct {
	// Table is the state table name. Use schema.table for non-default schema.
	Table string
	// Retention removes rows not written for longer than this (required).
	Retention time.Duration
	// CheckEvery is the interval between prune runs.
	CheckEvery time.Duration
	// Limit caps the number of rows deleted per run (0 uses the default).
	Limit int
	// Keep lists keys that are never pruned.
	Keep []string
	// LockName is the advisory lock name. Defaults to tracker:prune:<table>.
	LockName string
	// Clock overrides time source (useful for tests).
	Clock tracker.Clock
	// Logger receives warnings about prune failures.
	Logger tracker.Logger
}

// PruneMaintainer periodically removes keys that stopped being written.
type PruneMaintainer struct {
	store *Store
	cfg   PruneMaintainerConfig
}

// Prune removes rows whose updated_at is not after opts.Before.
func (s *Store) Prune(ctx context.Context, opts PruneOptions) (PruneResult, error) {
	if opts.Before.IsZero() {
		return PruneResult{}, ErrPruneBeforeRequired
	}
	limit := opts.Limit
	if limit == 0 {
		limit = defaultPruneLimit
	}
	if limit < 0 {
		return PruneResult{}, ErrPruneLimitInvalid
	}

	args := make([]any, 0, len(opts.Keep)+pruneFixedArgs)
	args = append(args, opts.Before.UTC())
	for _, key := range opts.Keep {
		args = append(args, key)
	}
	args = append(args, limit)

	// #nosec G201 -- table name is sanitized, keys are bound.
	res, err := s.db.ExecContext(ctx, buildPruneQuery(s.table, len(opts.Keep)), args...)
	if err != nil {
		return PruneResult{}, fmt.Errorf("tracker mysql: prune delete failed: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return PruneResult{}, fmt.Errorf("tracker mysql: prune rows failed: %w", err)
	}

	return PruneResult{Deleted: affected}, nil
}

// NewPruneMaintainer creates a new prune maintainer with defaults applied.
func NewPruneMaintainer(db *sql.DB, cfg PruneMaintainerConfig) (*PruneMaintainer, error) {
	if db == nil {
		return nil, ErrDBRequired
	}
	if cfg.Retention <= 0 {
		return nil, ErrPruneRetentionInvalid
	}
	if cfg.Clock == nil {
		cfg.Clock = tracker.SystemClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = tracker.NopLogger{}
	}
	if cfg.CheckEvery <= 0 {
		cfg.CheckEvery = defaultPruneEvery
	}
	if cfg.Limit == 0 {
		cfg.Limit = defaultPruneLimit
	}
	if cfg.Limit < 0 {
		return nil, ErrPruneLimitInvalid
	}

	store, err := NewStore(db, WithTable(cfg.Table), WithClock(cfg.Clock))
	if err != nil {
		return nil, err
	}
	cfg.Table = store.table
	if cfg.LockName == "" {
		cfg.LockName = defaultPruneLockPrefix + cfg.Table
	}

	return &PruneMaintainer{store: store, cfg: cfg}, nil
}

// Run periodically prunes stale keys until the context is canceled.
func (m *PruneMaintainer) Run(ctx context.Context) error {
	ticker := m.cfg.Clock.NewTicker(m.cfg.CheckEvery)
	defer ticker.Stop()

	if _, err := m.Ensure(ctx); err != nil {
		m.cfg.Logger.Warn("tracker prune failed", "err", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C():
			if _, err := m.Ensure(ctx); err != nil {
				m.cfg.Logger.Warn("tracker prune failed", "err", err)
			}
		}
	}
}

// Ensure executes a single prune pass. It does nothing when another session holds the lock.
func (m *PruneMaintainer) Ensure(ctx context.Context) (PruneResult, error) {
	conn, err := m.store.db.Conn(ctx)
	if err != nil {
		return PruneResult{}, fmt.Errorf("tracker mysql: prune conn failed: %w", err)
	}
	defer conn.Close()

	locked, err := m.tryLock(ctx, conn)
	if err != nil {
		return PruneResult{}, err
	}
	if !locked {
		m.cfg.Logger.Debug("tracker prune lock held by another session")

		return PruneResult{}, nil
	}
	defer m.releaseLock(ctx, conn)

	res, err := m.store.Prune(ctx, PruneOptions{
		Before: m.cfg.Clock.Now().Add(-m.cfg.Retention),
		Limit:  m.cfg.Limit,
		Keep:   m.cfg.Keep,
	})
	if err != nil {
		return PruneResult{}, err
	}
	if res.Deleted > 0 {
		m.cfg.Logger.Info("tracker prune done", "table", m.cfg.Table, "deleted", res.Deleted)
	}

	return res, nil
}

func (m *PruneMaintainer) tryLock(ctx context.Context, conn *sql.Conn) (bool, error) {
	var got sql.NullInt64
	if err := conn.QueryRowContext(ctx, "SELECT GET_LOCK(?, 0)", m.cfg.LockName).Scan(&got); err != nil {
		return false, fmt.Errorf("tracker mysql: acquire prune lock failed: %w", err)
	}
	if !got.Valid || got.Int64 == 0 {
		return false, nil
	}

	return true, nil
}

func (m *PruneMaintainer) releaseLock(ctx context.Context, conn *sql.Conn) {
	var released sql.NullInt64
	if err := conn.QueryRowContext(ctx, "SELECT RELEASE_LOCK(?)", m.cfg.LockName).Scan(&released); err != nil {
		m.cfg.Logger.Warn("tracker prune release lock failed", "err", err)
	}
}
