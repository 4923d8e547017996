package tracker

import (
	"context"
	"errors"
	"fmt"
)

// RestoreState tracks the one-shot load of the persisted queue.
type RestoreState int32

const (
	// RestoreUninitialized means no producer call happened yet.
	RestoreUninitialized RestoreState = iota
	// RestoreRestoring means the first producer call is loading the snapshot.
	RestoreRestoring
	// RestoreReady means the snapshot was merged (or failed to load) and will not be loaded again.
	RestoreReady
)

func (s RestoreState) String() string {
	switch s {
	case RestoreUninitialized:
		return "uninitialized"
	case RestoreRestoring:
		return "restoring"
	case RestoreReady:
		return "ready"
	default:
		return fmt.Sprintf("restore_state(%d)", int32(s))
	}
}

const corruptKeySuffix = ".corrupt"

// ensureRestored loads the persisted queue on the first call. Callers arriving while the load is
// running wait for it, so no snapshot is written before the backlog is merged.
func (c *Client) ensureRestored(ctx context.Context) error {
	c.mu.Lock()
	switch c.state {
	case RestoreReady:
		c.mu.Unlock()

		return nil
	case RestoreRestoring:
		done := c.restored
		c.mu.Unlock()
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	c.state = RestoreRestoring
	c.mu.Unlock()

	// The load happens once per process; a canceled caller must not waste it.
	loadCtx := context.WithoutCancel(ctx)
	snapshot, raw, err := c.loadSnapshot(loadCtx)

	c.mu.Lock()
	if err == nil {
		c.queue.Merge(snapshot)
	} else {
		c.restoreErr = err
	}
	c.state = RestoreReady
	close(c.restored)
	c.mu.Unlock()

	if err != nil {
		c.cfg.Logger.Error("tracker restore failed", "key", c.cfg.StorageKey, "err", err)
		c.cfg.ErrorSink.Report(ctx, err)
		if errors.Is(err, ErrDecode) {
			c.preserveCorrupt(loadCtx, raw)
		}

		return nil
	}

	if n := snapshot.Len(); n > 0 {
		c.cfg.Logger.Info("tracker restored queue", "track", len(snapshot.Track), "engage", len(snapshot.Engage))
	}

	return nil
}

func (c *Client) loadSnapshot(ctx context.Context) (Snapshot, []byte, error) {
	raw, err := c.cfg.Storage.Load(ctx, c.cfg.StorageKey)
	if errors.Is(err, ErrNotFound) {
		return Snapshot{}, nil, nil
	}
	if err != nil {
		return Snapshot{}, nil, &RestoreError{Key: c.cfg.StorageKey, Err: fmt.Errorf("%w: %w", ErrPersistenceRead, err)}
	}
	if len(raw) == 0 {
		return Snapshot{}, raw, nil
	}

	snapshot, err := DecodeSnapshot(raw)
	if err != nil {
		return Snapshot{}, raw, &RestoreError{Key: c.cfg.StorageKey, Err: err}
	}

	return snapshot, raw, nil
}

// preserveCorrupt copies an undecodable snapshot aside before the next save replaces it.
func (c *Client) preserveCorrupt(ctx context.Context, raw []byte) {
	key := c.cfg.StorageKey + corruptKeySuffix
	if err := c.cfg.Storage.Save(ctx, key, raw); err != nil {
		c.cfg.Logger.Warn("tracker could not preserve corrupt snapshot", "key", key, "err", err)

		return
	}
	c.cfg.Logger.Warn("tracker preserved corrupt snapshot", "key", key, "bytes", len(raw))
}
