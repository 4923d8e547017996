package tracker

// sequence holds the events of one kind.
// inflight contains drained events whose delivery outcome is not applied yet; the most recently
// drained batch is always at its tail.
type sequence struct {
	pending  []Event
	inflight []Event
}

// Queue holds the pending events of both kinds. It is not safe for concurrent use; Client
// serializes access.
type Queue struct {
	track  sequence
	engage sequence
}

func (q *Queue) seq(kind Kind) *sequence {
	if kind == KindEngage {
		return &q.engage
	}

	return &q.track
}

// Enqueue appends event to the tail of its kind.
func (q *Queue) Enqueue(kind Kind, event Event) {
	s := q.seq(kind)
	s.pending = append(s.pending, event)
}

// Len returns the number of pending events of kind, excluding in-flight ones.
func (q *Queue) Len(kind Kind) int {
	return len(q.seq(kind).pending)
}

// Size returns the number of events of kind that would be persisted, including in-flight ones.
func (q *Queue) Size(kind Kind) int {
	s := q.seq(kind)

	return len(s.inflight) + len(s.pending)
}

// DrainBatch removes up to limit of the oldest pending events and marks them in flight.
func (q *Queue) DrainBatch(kind Kind, limit int) []Event {
	s := q.seq(kind)
	n := min(limit, len(s.pending))
	if n <= 0 {
		return nil
	}

	batch := make([]Event, n)
	copy(batch, s.pending[:n])
	s.pending = compact(s.pending[n:])
	s.inflight = append(s.inflight, batch...)

	return batch
}

// Ack forgets the n most recently drained in-flight events after a successful delivery.
func (q *Queue) Ack(kind Kind, n int) {
	s := q.seq(kind)
	n = min(n, len(s.inflight))
	s.inflight = s.inflight[:len(s.inflight)-n]
}

// Requeue appends failed events to the tail of pending and clears them from in flight.
// Events enqueued while they were in flight stay ahead of them.
func (q *Queue) Requeue(kind Kind, events []Event) {
	s := q.seq(kind)
	n := min(len(events), len(s.inflight))
	s.inflight = compact(s.inflight[n:])
	s.pending = append(s.pending, events...)
}

// Snapshot copies the queue for persistence. In-flight events come first.
func (q *Queue) Snapshot() Snapshot {
	return Snapshot{
		Track:  q.track.all(),
		Engage: q.engage.all(),
	}
}

// Merge puts restored events in front of the events already queued, per kind.
func (q *Queue) Merge(restored Snapshot) {
	q.track.pending = append(append([]Event(nil), restored.Track...), q.track.pending...)
	q.engage.pending = append(append([]Event(nil), restored.Engage...), q.engage.pending...)
}

func (s *sequence) all() []Event {
	out := make([]Event, 0, len(s.inflight)+len(s.pending))
	out = append(out, s.inflight...)

	return append(out, s.pending...)
}

// compact releases the backing array once a slice is empty so drained events can be collected.
func compact(events []Event) []Event {
	if len(events) == 0 {
		return nil
	}

	return events
}
