package tracker

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// Snapshot is the persisted form of the queue: {"track": [...], "engage": [...]}.
type Snapshot struct {
	Track  []Event `json:"track"`
	Engage []Event `json:"engage"`
}

// Len returns the total number of events in the snapshot.
func (s Snapshot) Len() int {
	return len(s.Track) + len(s.Engage)
}

// Events returns the events of kind.
func (s Snapshot) Events(kind Kind) []Event {
	if kind == KindEngage {
		return s.Engage
	}

	return s.Track
}

// EncodeSnapshot serializes a snapshot. Empty kinds encode as empty arrays.
func EncodeSnapshot(s Snapshot) ([]byte, error) {
	if s.Track == nil {
		s.Track = []Event{}
	}
	if s.Engage == nil {
		s.Engage = []Event{}
	}

	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("tracker: encode snapshot: %w", err)
	}

	return data, nil
}

// DecodeSnapshot parses a stored snapshot. A missing kind decodes as empty.
// Malformed input returns an error wrapping ErrDecode.
func DecodeSnapshot(data []byte) (Snapshot, error) {
	if !gjson.ValidBytes(data) {
		return Snapshot{}, fmt.Errorf("%w: invalid json", ErrDecode)
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return Snapshot{}, fmt.Errorf("%w: expected object, got %s", ErrDecode, root.Type)
	}

	track, err := decodeEvents(KindTrack, root.Get(KindTrack.String()))
	if err != nil {
		return Snapshot{}, err
	}
	engage, err := decodeEvents(KindEngage, root.Get(KindEngage.String()))
	if err != nil {
		return Snapshot{}, err
	}

	return Snapshot{Track: track, Engage: engage}, nil
}
