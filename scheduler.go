package tracker

import (
	"context"
	"sync"
	"time"
)

// scheduler fires tick on a fixed interval from a single goroutine, so ticks never overlap.
// A tick that outlasts the interval delays the next one.
type scheduler struct {
	ticker   Ticker
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func startScheduler(clock Clock, interval time.Duration, tick func()) *scheduler {
	s := &scheduler{
		ticker: clock.NewTicker(interval),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go s.loop(tick)

	return s
}

func (s *scheduler) loop(tick func()) {
	defer close(s.done)
	defer s.ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-s.ticker.C():
			select {
			case <-s.stop:
				return
			default:
			}
			tick()
		}
	}
}

// close stops future ticks and waits for a running tick to finish or ctx to end.
// After close returns without error no tick runs again.
func (s *scheduler) close(ctx context.Context) error {
	s.stopOnce.Do(func() {
		close(s.stop)
	})

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
