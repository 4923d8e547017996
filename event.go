package tracker

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// Kind identifies one of the two event streams.
type Kind int

const (
	// KindTrack is a named occurrence with properties.
	KindTrack Kind = iota
	// KindEngage is a profile update operation.
	KindEngage
)

// Kinds lists every kind in flush order.
var Kinds = [...]Kind{KindTrack, KindEngage}

// String returns the wire name of the kind, also used as URL path segment and snapshot key.
func (k Kind) String() string {
	switch k {
	case KindTrack:
		return "track"
	case KindEngage:
		return "engage"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind parses the wire name of a kind.
func ParseKind(value string) (Kind, error) {
	switch value {
	case "track":
		return KindTrack, nil
	case "engage":
		return KindEngage, nil
	default:
		return 0, fmt.Errorf("%w: unknown kind %q", ErrInvalidEvent, value)
	}
}

// Field is a single named value of an Object.
type Field struct {
	Name  string
	Value any
}

// Object is a JSON object that keeps its field order through encoding and decoding.
type Object []Field

// Get returns the first value stored under name.
func (o Object) Get(name string) (any, bool) {
	for _, f := range o {
		if f.Name == name {
			return f.Value, true
		}
	}

	return nil, false
}

// MarshalJSON encodes the fields in order.
func (o Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(f.Value)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// UnmarshalJSON decodes an object keeping its field order.
// Nested objects decode as Object, arrays as []any and numbers as json.Number, so integers of
// any size are re-encoded exactly.
func (o *Object) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("%w: invalid json", ErrDecode)
	}
	res := gjson.ParseBytes(data)
	if !res.IsObject() {
		return fmt.Errorf("%w: expected object, got %s", ErrDecode, res.Type)
	}
	*o = decodeObject(res)

	return nil
}

func decodeObject(res gjson.Result) Object {
	out := Object{}
	res.ForEach(func(key, value gjson.Result) bool {
		out = append(out, Field{Name: key.String(), Value: decodeValue(value)})

		return true
	})

	return out
}

func decodeValue(value gjson.Result) any {
	if value.IsObject() {
		return decodeObject(value)
	}
	if value.IsArray() {
		items := value.Array()
		out := make([]any, 0, len(items))
		for _, item := range items {
			out = append(out, decodeValue(item))
		}

		return out
	}

	switch value.Type {
	case gjson.String:
		return value.String()
	case gjson.Number:
		return json.Number(value.Raw)
	case gjson.True:
		return true
	case gjson.False:
		return false
	default:
		return nil
	}
}

// Event is a fully materialized analytics event. It is not modified after enqueue.
type Event struct {
	Kind   Kind
	Fields Object
}

// Get returns a top-level field value.
func (e Event) Get(name string) (any, bool) {
	return e.Fields.Get(name)
}

// MarshalJSON encodes the event body. The kind is implied by where the event is sent or stored.
func (e Event) MarshalJSON() ([]byte, error) {
	return e.Fields.MarshalJSON()
}

func decodeEvents(kind Kind, res gjson.Result) ([]Event, error) {
	if !res.Exists() || res.Type == gjson.Null {
		return nil, nil
	}
	if !res.IsArray() {
		return nil, fmt.Errorf("%w: %s must be an array", ErrDecode, kind)
	}

	items := res.Array()
	events := make([]Event, 0, len(items))
	for i, item := range items {
		if !item.IsObject() {
			return nil, fmt.Errorf("%w: %s[%d] must be an object", ErrDecode, kind, i)
		}
		events = append(events, Event{Kind: kind, Fields: decodeObject(item)})
	}

	return events, nil
}
