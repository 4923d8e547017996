package pebblestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cockroachdb/pebble"

	"github.com/velmie/tracker"
)

// FsyncMode defines durability behavior for writes.
type FsyncMode int

const (
	// FsyncModeInterval lets Pebble coalesce WAL syncs within FsyncInterval. It is the default.
	FsyncModeInterval FsyncMode = iota
	// FsyncModeAlways syncs the WAL on every Save.
	FsyncModeAlways
	// FsyncModeNever leaves syncing to Pebble. A crash may lose the latest saves.
	FsyncModeNever
)

const defaultFsyncInterval = 5 * time.Millisecond

// Options configures the Pebble store.
type Options struct {
	// DataDir is the path to the Pebble database directory.
	DataDir string
	// Fsync determines when to sync the WAL.
	Fsync FsyncMode
	// FsyncInterval controls group commit when Fsync is FsyncModeInterval.
	FsyncInterval time.Duration
	// PebbleOptions allows advanced tuning. If nil, defaults are used.
	PebbleOptions *pebble.Options
}

// Store implements tracker.Storage on Pebble.
type Store struct {
	db        *pebble.DB
	writeSync bool
}

var _ tracker.Storage = (*Store)(nil)

// Open creates or opens the database in opts.DataDir.
func Open(opts Options) (*Store, error) {
	if opts.DataDir == "" {
		return nil, errors.New("pebblestore: Options.DataDir is required")
	}

	// Open tunes the WAL settings on its own copy of the caller's options.
	po := &pebble.Options{}
	if opts.PebbleOptions != nil {
		copied := *opts.PebbleOptions
		po = &copied
	}
	if opts.Fsync == FsyncModeInterval {
		interval := opts.FsyncInterval
		if interval <= 0 {
			interval = defaultFsyncInterval
		}
		po.WALMinSyncInterval = func() time.Duration { return interval }
	}

	db, err := pebble.Open(opts.DataDir, po)
	if err != nil {
		return nil, fmt.Errorf("pebblestore: open %s: %w", opts.DataDir, err)
	}

	return &Store{db: db, writeSync: opts.Fsync != FsyncModeNever}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}

	return s.db.Close()
}

// Load copies the value stored under key, or returns tracker.ErrNotFound.
func (s *Store) Load(_ context.Context, key string) ([]byte, error) {
	val, closer, err := s.db.Get([]byte(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, tracker.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("pebblestore: get %q: %w", key, err)
	}
	defer closer.Close()

	return append([]byte(nil), val...), nil
}

// Save replaces the value stored under key.
func (s *Store) Save(_ context.Context, key string, value []byte) error {
	if err := s.db.Set([]byte(key), value, s.writeOptions()); err != nil {
		return fmt.Errorf("pebblestore: set %q: %w", key, err)
	}

	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *Store) Delete(_ context.Context, key string) error {
	if err := s.db.Delete([]byte(key), s.writeOptions()); err != nil {
		return fmt.Errorf("pebblestore: delete %q: %w", key, err)
	}

	return nil
}

// Keys lists stored keys in byte order.
func (s *Store) Keys(_ context.Context) ([]string, error) {
	it, err := s.db.NewIter(nil)
	if err != nil {
		return nil, fmt.Errorf("pebblestore: iterate: %w", err)
	}

	var keys []string
	for ok := it.First(); ok; ok = it.Next() {
		keys = append(keys, string(it.Key()))
	}
	if err := it.Error(); err != nil {
		_ = it.Close()

		return nil, fmt.Errorf("pebblestore: iterate: %w", err)
	}
	if err := it.Close(); err != nil {
		return nil, fmt.Errorf("pebblestore: close iterator: %w", err)
	}

	return keys, nil
}

func (s *Store) writeOptions() *pebble.WriteOptions {
	if s.writeSync {
		return pebble.Sync
	}

	return pebble.NoSync
}
