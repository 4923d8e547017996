package tracker

import (
	"context"
	"fmt"
)

type flushResult struct {
	delivered int
	requeued  int
}

// flushKind runs one pass over kind. The pass covers only the events pending when it starts,
// so it ends after ceil(n/BatchSize) requests even if producers keep enqueueing. Failed batches
// go back to the tail once, after the last request.
func (c *Client) flushKind(ctx context.Context, kind Kind) flushResult {
	start := c.cfg.Clock.Now()
	defer func() {
		c.cfg.Metrics.ObserveFlushDuration(kind, c.cfg.Clock.Now().Sub(start))
	}()

	c.mu.Lock()
	remaining := c.queue.Len(kind)
	c.mu.Unlock()

	var (
		result flushResult
		failed []Event
	)
	for remaining > 0 {
		c.mu.Lock()
		batch := c.queue.DrainBatch(kind, min(c.cfg.BatchSize, remaining))
		c.mu.Unlock()
		if len(batch) == 0 {
			break
		}
		remaining -= len(batch)

		if err := c.transport.SendBatch(ctx, kind, batch); err != nil {
			failed = append(failed, batch...)
			c.cfg.Metrics.AddFailed(kind, len(batch))
			c.report(ctx, fmt.Errorf("tracker: deliver %d %s events: %w", len(batch), kind, err))

			continue
		}

		c.mu.Lock()
		c.queue.Ack(kind, len(batch))
		c.mu.Unlock()
		result.delivered += len(batch)
	}

	if len(failed) > 0 {
		c.mu.Lock()
		c.queue.Requeue(kind, failed)
		c.mu.Unlock()
		result.requeued = len(failed)
		c.cfg.Metrics.AddRequeued(kind, len(failed))
	}
	if result.delivered > 0 {
		c.cfg.Metrics.AddDelivered(kind, result.delivered)
	}
	if result.delivered > 0 || result.requeued > 0 {
		c.cfg.Logger.Debug("tracker flushed", "kind", kind.String(), "delivered", result.delivered, "requeued", result.requeued)
	}

	return result
}

// tick flushes both kinds in order and saves the resulting queue once.
// It does nothing until the persisted queue has been restored.
func (c *Client) tick(ctx context.Context) (flushResult, bool) {
	c.flushMu.Lock()
	defer c.flushMu.Unlock()

	c.mu.Lock()
	ready := c.state == RestoreReady
	c.mu.Unlock()
	if !ready {
		c.cfg.Logger.Debug("tracker tick skipped before restore")

		return flushResult{}, false
	}

	var total flushResult
	for _, kind := range Kinds {
		res := c.flushKind(ctx, kind)
		total.delivered += res.delivered
		total.requeued += res.requeued
	}
	c.persist(ctx)

	return total, true
}
