package tracker

import "time"

// Metrics captures delivery telemetry.
type Metrics interface {
	// ObserveFlushDuration records the time spent in one flush pass for a kind.
	ObserveFlushDuration(kind Kind, duration time.Duration)
	// AddDelivered increments the count of events accepted by the backend.
	AddDelivered(kind Kind, count int)
	// AddFailed increments the count of events whose delivery failed.
	AddFailed(kind Kind, count int)
	// AddRequeued increments the count of events put back for a later tick.
	AddRequeued(kind Kind, count int)
	// AddPersistErrors increments the count of failed snapshot saves.
	AddPersistErrors(count int)
	// SetQueued updates the current number of queued events for a kind.
	SetQueued(kind Kind, count int)
}

// NopMetrics is a no-op metrics recorder.
type NopMetrics struct{}

// ObserveFlushDuration implements Metrics.
func (NopMetrics) ObserveFlushDuration(Kind, time.Duration) {}

// AddDelivered implements Metrics.
func (NopMetrics) AddDelivered(Kind, int) {}

// AddFailed implements Metrics.
func (NopMetrics) AddFailed(Kind, int) {}

// AddRequeued implements Metrics.
func (NopMetrics) AddRequeued(Kind, int) {}

// AddPersistErrors implements Metrics.
func (NopMetrics) AddPersistErrors(int) {}

// SetQueued implements Metrics.
func (NopMetrics) SetQueued(Kind, int) {}
