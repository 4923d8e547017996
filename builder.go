package tracker

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

// EngageOperation names a profile update operation.
type EngageOperation string

const (
	// OpSet sets profile properties, overwriting existing values.
	OpSet EngageOperation = "$set"
	// OpSetOnce sets profile properties only if they are not set yet.
	OpSetOnce EngageOperation = "$set_once"
	// OpAdd increments numeric profile properties.
	OpAdd EngageOperation = "$add"
	// OpAppend appends values to list properties.
	OpAppend EngageOperation = "$append"
	// OpUnion merges values into list properties without duplicates.
	OpUnion EngageOperation = "$union"
	// OpRemove removes values from list properties.
	OpRemove EngageOperation = "$remove"
	// OpUnset removes the named properties. Only the keys of the value map are sent.
	OpUnset EngageOperation = "$unset"
	// OpDelete deletes the whole profile. The value map is ignored.
	OpDelete EngageOperation = "$delete"
)

// Valid reports whether op is a known operation.
func (op EngageOperation) Valid() bool {
	switch op {
	case OpSet, OpSetOnce, OpAdd, OpAppend, OpUnion, OpRemove, OpUnset, OpDelete:
		return true
	default:
		return false
	}
}

// TrackOptions holds the optional fields of a track event. Zero values are omitted.
type TrackOptions struct {
	// Time overrides the event time. Defaults to the client clock.
	Time time.Time
	// IP is sent as the "ip" property.
	IP string
	// InsertID is sent as "$insert_id" for backend deduplication.
	InsertID string
}

// EngageOptions holds the optional fields of an engage event. Zero values are omitted.
type EngageOptions struct {
	// Time overrides the update time. Defaults to the client clock.
	Time time.Time
	// IP is sent as "$ip".
	IP string
	// IgnoreTime asks the backend not to update "last seen".
	IgnoreTime bool
	// IgnoreAlias asks the backend not to resolve aliases for the distinct id.
	IgnoreAlias bool
}

// DistinctIDFunc returns the distinct id of the current user, or "" when unknown.
type DistinctIDFunc func(ctx context.Context) string

// Anonymizer hashes identifying field values before they leave the process.
type Anonymizer interface {
	// Anonymize returns the replacement for value.
	Anonymize(value string) string
}

// SHA256Anonymizer replaces values with the hex SHA-256 of Salt+value.
type SHA256Anonymizer struct {
	Salt string
}

// Anonymize implements Anonymizer.
func (a SHA256Anonymizer) Anonymize(value string) string {
	sum := sha256.Sum256([]byte(a.Salt + value))

	return hex.EncodeToString(sum[:])
}

var reservedTrackProps = map[string]struct{}{
	"token": {}, "distinct_id": {}, "time": {}, "ip": {}, "$insert_id": {},
}

type eventBuilder struct {
	token        string
	distinctID   DistinctIDFunc
	anonymousID  string
	anonymizer   Anonymizer
	clock        Clock
	autoInsertID bool
}

func (b eventBuilder) resolveDistinctID(ctx context.Context) string {
	id := ""
	if b.distinctID != nil {
		id = b.distinctID(ctx)
	}
	if id == "" {
		id = b.anonymousID
	}

	return b.anonymize(id)
}

func (b eventBuilder) anonymize(value string) string {
	if b.anonymizer == nil || value == "" {
		return value
	}

	return b.anonymizer.Anonymize(value)
}

func (b eventBuilder) eventTime(t time.Time) time.Time {
	if t.IsZero() {
		return b.clock.Now()
	}

	return t
}

func (b eventBuilder) track(ctx context.Context, name string, props map[string]any, opts TrackOptions) (Event, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Event{}, fmt.Errorf("%w: event name is required", ErrInvalidEvent)
	}
	for key := range props {
		if _, reserved := reservedTrackProps[key]; reserved {
			return Event{}, fmt.Errorf("%w: property %q is reserved", ErrInvalidEvent, key)
		}
	}

	insertID := opts.InsertID
	if insertID == "" && b.autoInsertID {
		id, err := uuid.NewV7()
		if err != nil {
			return Event{}, fmt.Errorf("tracker: generate insert id: %w", err)
		}
		insertID = id.String()
	}

	properties := make(Object, 0, len(props)+len(reservedTrackProps))
	properties = append(properties,
		Field{Name: "token", Value: b.token},
		Field{Name: "distinct_id", Value: b.resolveDistinctID(ctx)},
		Field{Name: "time", Value: b.eventTime(opts.Time).Unix()},
	)
	if opts.IP != "" {
		properties = append(properties, Field{Name: "ip", Value: b.anonymize(opts.IP)})
	}
	if insertID != "" {
		properties = append(properties, Field{Name: "$insert_id", Value: insertID})
	}
	properties = append(properties, sortedFields(props)...)

	return materialize(KindTrack, Object{
		{Name: "event", Value: name},
		{Name: "properties", Value: properties},
	})
}

func (b eventBuilder) engage(ctx context.Context, op EngageOperation, value map[string]any, opts EngageOptions) (Event, error) {
	if !op.Valid() {
		return Event{}, fmt.Errorf("%w: unknown engage operation %q", ErrInvalidEvent, op)
	}
	if op != OpDelete && len(value) == 0 {
		return Event{}, fmt.Errorf("%w: %s requires at least one property", ErrInvalidEvent, op)
	}

	fields := Object{
		{Name: "$token", Value: b.token},
		{Name: "$distinct_id", Value: b.resolveDistinctID(ctx)},
		{Name: "$time", Value: b.eventTime(opts.Time).UnixMilli()},
	}
	if opts.IP != "" {
		fields = append(fields, Field{Name: "$ip", Value: b.anonymize(opts.IP)})
	}
	if opts.IgnoreTime {
		fields = append(fields, Field{Name: "$ignore_time", Value: true})
	}
	if opts.IgnoreAlias {
		fields = append(fields, Field{Name: "$ignore_alias", Value: true})
	}

	switch op {
	case OpDelete:
		fields = append(fields, Field{Name: string(op), Value: ""})
	case OpUnset:
		keys := sortedKeys(value)
		names := make([]any, 0, len(keys))
		for _, key := range keys {
			names = append(names, key)
		}
		fields = append(fields, Field{Name: string(op), Value: names})
	default:
		fields = append(fields, Field{Name: string(op), Value: Object(sortedFields(value))})
	}

	return materialize(KindEngage, fields)
}

// materialize encodes fields once and keeps the decoded copy. The queued event then shares no
// maps or slices with the caller, and every later snapshot or payload encoding succeeds.
func materialize(kind Kind, fields Object) (Event, error) {
	raw, err := fields.MarshalJSON()
	if err != nil {
		return Event{}, fmt.Errorf("%w: %s event is not encodable: %w", ErrInvalidEvent, kind, err)
	}

	return Event{Kind: kind, Fields: decodeObject(gjson.ParseBytes(raw))}, nil
}

func sortedKeys(values map[string]any) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	return keys
}

func sortedFields(values map[string]any) []Field {
	keys := sortedKeys(values)
	fields := make([]Field, 0, len(keys))
	for _, key := range keys {
		fields = append(fields, Field{Name: key, Value: values[key]})
	}

	return fields
}
