package tracker

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Client produces track and engage events.
//
// In batch mode events are queued, mirrored to Storage after every change and delivered by a
// background scheduler. Otherwise each call is sent immediately and nothing is stored.
type Client struct {
	cfg       Config
	builder   eventBuilder
	transport Transport
	scheduler *scheduler

	mu         sync.Mutex
	queue      Queue
	state      RestoreState
	restored   chan struct{}
	restoreErr error
	closed     bool

	// saveMu orders snapshot+save pairs so the last write holds the newest queue.
	saveMu sync.Mutex
	// flushMu serializes flush passes.
	flushMu sync.Mutex
}

// NewClient constructs a Client for the project token. Construction does not touch Storage;
// the persisted queue is restored on the first Track or Engage call.
func NewClient(token string, opts ...Option) (*Client, error) {
	if token == "" {
		return nil, ErrTokenRequired
	}

	var cfg Config
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg = cfg.withDefaults()

	if cfg.BatchSize < 1 || cfg.BatchSize > MaxBatchSize {
		return nil, fmt.Errorf("%w: %d", ErrInvalidBatchSize, cfg.BatchSize)
	}
	if cfg.batchMode() && cfg.Storage == nil {
		return nil, ErrStorageRequired
	}

	transport := cfg.Transport
	if transport == nil {
		httpTransport, err := NewHTTPTransport(cfg.HTTPOptions...)
		if err != nil {
			return nil, err
		}
		transport = httpTransport
	}

	anonymousID := cfg.AnonymousID
	if anonymousID == "" {
		anonymousID = uuid.NewString()
	}

	c := &Client{
		cfg: cfg,
		builder: eventBuilder{
			token:        token,
			distinctID:   cfg.DistinctID,
			anonymousID:  anonymousID,
			anonymizer:   cfg.Anonymizer,
			clock:        cfg.Clock,
			autoInsertID: cfg.AutoInsertID,
		},
		transport: transport,
		restored:  make(chan struct{}),
	}

	if cfg.batchMode() {
		c.scheduler = startScheduler(cfg.Clock, cfg.BatchInterval, func() {
			c.tick(context.Background())
		})
	}

	return c, nil
}

// Track records a named event. In batch mode true means the event is queued and persisted;
// otherwise true means the backend accepted it.
func (c *Client) Track(ctx context.Context, name string, props map[string]any, opts TrackOptions) bool {
	event, err := c.builder.track(ctx, name, props, opts)
	if err != nil {
		c.report(ctx, err)

		return false
	}

	return c.submit(ctx, event)
}

// Engage records a profile update. Return value as for Track.
func (c *Client) Engage(ctx context.Context, op EngageOperation, value map[string]any, opts EngageOptions) bool {
	event, err := c.builder.engage(ctx, op, value, opts)
	if err != nil {
		c.report(ctx, err)

		return false
	}

	return c.submit(ctx, event)
}

// Flush runs one delivery pass over both queues and saves the result, restoring the persisted
// queue first if needed. It returns an error wrapping ErrTransport when some events were
// requeued. In immediate mode it does nothing.
func (c *Client) Flush(ctx context.Context) error {
	if !c.cfg.batchMode() {
		return nil
	}
	if c.isClosed() {
		return ErrClosed
	}
	if err := c.ensureRestored(ctx); err != nil {
		return err
	}

	res, _ := c.tick(ctx)
	if res.requeued > 0 {
		return fmt.Errorf("%w: %d events requeued", ErrTransport, res.requeued)
	}

	return nil
}

// Close stops the scheduler. A flush already running is allowed to finish; Close waits for it
// until ctx ends. Queued events stay persisted for the next process.
//
// Track and Engage calls after Close return false and report ErrClosed without queueing the
// event.
func (c *Client) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()

		return nil
	}
	c.closed = true
	c.mu.Unlock()

	if c.scheduler == nil {
		return nil
	}

	return c.scheduler.close(ctx)
}

// Queued returns the number of events of kind held by the client, in flight included.
func (c *Client) Queued(kind Kind) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.queue.Size(kind)
}

// RestoreState returns the current restore state.
func (c *Client) RestoreState() RestoreState {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// RestoreErr returns the error of the restore attempt, if it failed.
func (c *Client) RestoreErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.restoreErr
}

func (c *Client) submit(ctx context.Context, event Event) bool {
	if !c.cfg.batchMode() {
		if c.isClosed() {
			c.report(ctx, ErrClosed)

			return false
		}
		if err := c.transport.SendEvent(ctx, event); err != nil {
			c.report(ctx, fmt.Errorf("tracker: send %s event: %w", event.Kind, err))

			return false
		}

		return true
	}

	if err := c.ensureRestored(ctx); err != nil {
		c.report(ctx, err)

		return false
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		c.report(ctx, ErrClosed)

		return false
	}
	c.queue.Enqueue(event.Kind, event)
	c.mu.Unlock()

	return c.persist(ctx)
}

// persist writes the current queue. On failure the in-memory queue is kept and the next
// successful save restores durability.
func (c *Client) persist(ctx context.Context) bool {
	c.saveMu.Lock()
	defer c.saveMu.Unlock()

	c.mu.Lock()
	snapshot := c.queue.Snapshot()
	c.mu.Unlock()

	for _, kind := range Kinds {
		c.cfg.Metrics.SetQueued(kind, len(snapshot.Events(kind)))
	}

	data, err := EncodeSnapshot(snapshot)
	if err == nil {
		err = c.cfg.Storage.Save(ctx, c.cfg.StorageKey, data)
	}
	if err != nil {
		c.cfg.Metrics.AddPersistErrors(1)
		c.report(ctx, fmt.Errorf("%w: %w", ErrPersistenceWrite, err))

		return false
	}

	return true
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.closed
}

func (c *Client) report(ctx context.Context, err error) {
	c.cfg.Logger.Warn("tracker error", "err", err)
	c.cfg.ErrorSink.Report(ctx, err)
}
