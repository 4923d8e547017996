package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

type manualClock struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*manualTicker
}

type manualTicker struct {
	clock    *manualClock
	c        chan time.Time
	interval time.Duration
	next     time.Time
	stopped  bool
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) NewTicker(d time.Duration) Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTicker{clock: c, c: make(chan time.Time, 1), interval: d, next: c.now.Add(d)}
	c.tickers = append(c.tickers, t)
	return t
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	for _, t := range c.tickers {
		if t.stopped {
			continue
		}
		for !t.next.After(c.now) {
			select {
			case t.c <- t.next:
			default:
			}
			t.next = t.next.Add(t.interval)
		}
	}
}

func (t *manualTicker) C() <-chan time.Time {
	return t.c
}

func (t *manualTicker) Stop() {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	t.stopped = true
}

type sentBatch struct {
	kind   Kind
	events []Event
}

type recordingTransport struct {
	mu      sync.Mutex
	batches []sentBatch
	singles []Event
	calls   int
	// fail decides the outcome of the n-th SendBatch call (0-based).
	fail func(call int, kind Kind, events []Event) error
}

func (r *recordingTransport) SendEvent(_ context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.singles = append(r.singles, event)
	if r.fail != nil {
		return r.fail(-1, event.Kind, []Event{event})
	}
	return nil
}

func (r *recordingTransport) SendBatch(_ context.Context, kind Kind, events []Event) error {
	r.mu.Lock()
	call := r.calls
	r.calls++
	fail := r.fail
	r.mu.Unlock()

	if fail != nil {
		if err := fail(call, kind, events); err != nil {
			return err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, sentBatch{kind: kind, events: append([]Event(nil), events...)})
	return nil
}

func (r *recordingTransport) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func (r *recordingTransport) Batches() []sentBatch {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]sentBatch(nil), r.batches...)
}

type countingStorage struct {
	*MemoryStorage
	mu       sync.Mutex
	loads    int
	saves    int
	loadErr  error
	saveErr  error
	loadHook func()
}

func newCountingStorage() *countingStorage {
	return &countingStorage{MemoryStorage: NewMemoryStorage()}
}

func (s *countingStorage) Load(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	s.loads++
	hook := s.loadHook
	err := s.loadErr
	s.mu.Unlock()
	if hook != nil {
		hook()
	}
	if err != nil {
		return nil, err
	}
	return s.MemoryStorage.Load(ctx, key)
}

func (s *countingStorage) Save(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	s.saves++
	err := s.saveErr
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.MemoryStorage.Save(ctx, key, value)
}

func (s *countingStorage) Loads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loads
}

func (s *countingStorage) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

func (s *countingStorage) SetSaveErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveErr = err
}

type captureSink struct {
	mu   sync.Mutex
	errs []error
}

func (s *captureSink) Report(_ context.Context, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs = append(s.errs, err)
}

func (s *captureSink) Has(target error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, err := range s.errs {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func eventName(t *testing.T, event Event) string {
	t.Helper()
	name, ok := event.Get("event")
	if !ok {
		t.Fatalf("event has no name: %v", event.Fields)
	}
	return fmt.Sprint(name)
}

func namesOf(t *testing.T, batches []sentBatch) []string {
	t.Helper()
	var names []string
	for _, b := range batches {
		for _, e := range b.events {
			names = append(names, eventName(t, e))
		}
	}
	return names
}

func seqNames(n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("e%03d", i)
	}
	return names
}
