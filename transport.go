package tracker

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Transport delivers encoded events to the ingestion backend.
// Failures must be returned as errors wrapping ErrTransport.
type Transport interface {
	// SendEvent delivers a single event immediately.
	SendEvent(ctx context.Context, event Event) error
	// SendBatch delivers up to MaxBatchSize events of one kind in one request.
	SendBatch(ctx context.Context, kind Kind, events []Event) error
}

// TransportFunc adapts a batch function to Transport. SendEvent sends a batch of one.
type TransportFunc func(ctx context.Context, kind Kind, events []Event) error

// SendEvent implements Transport.
func (fn TransportFunc) SendEvent(ctx context.Context, event Event) error {
	return fn(ctx, event.Kind, []Event{event})
}

// SendBatch implements Transport.
func (fn TransportFunc) SendBatch(ctx context.Context, kind Kind, events []Event) error {
	return fn(ctx, kind, events)
}

// EncodePayload returns base64(JSON(v)), the form the backend expects in the data parameter.
func EncodePayload(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("tracker: encode payload: %w", err)
	}

	return base64.StdEncoding.EncodeToString(raw), nil
}

// DecodePayload reverses EncodePayload into the events of kind. A single object decodes as one event.
func DecodePayload(kind Kind, data string) ([]Event, error) {
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("%w: payload is not base64: %v", ErrDecode, err)
	}
	if len(raw) > 0 && raw[0] == '{' {
		var fields Object
		if err := fields.UnmarshalJSON(raw); err != nil {
			return nil, err
		}

		return []Event{{Kind: kind, Fields: fields}}, nil
	}

	wrapped := append(append([]byte(`{"`+kind.String()+`":`), raw...), '}')
	snapshot, err := DecodeSnapshot(wrapped)
	if err != nil {
		return nil, err
	}

	return snapshot.Events(kind), nil
}
