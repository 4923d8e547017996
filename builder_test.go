package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
	"testing"
	"time"
)

func TestTrackEventLayout(t *testing.T) {
	clock := newManualClock()
	b := eventBuilder{
		token:       "tok",
		anonymousID: "anon",
		clock:       clock,
		distinctID: func(context.Context) string {
			return "user-7"
		},
	}
	at := time.Unix(1700000000, 0)

	event, err := b.track(context.Background(), "signup", map[string]any{"plan": "pro", "b": 2}, TrackOptions{
		Time:     at,
		IP:       "10.0.0.1",
		InsertID: "ins-1",
	})
	if err != nil {
		t.Fatalf("track: %v", err)
	}
	raw, err := event.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"event":"signup","properties":{"token":"tok","distinct_id":"user-7","time":1700000000,"ip":"10.0.0.1","$insert_id":"ins-1","b":2,"plan":"pro"}}`
	if string(raw) != want {
		t.Fatalf("expected %s, got %s", want, raw)
	}
}

func TestTrackEventOmitsUnsetOptionalFields(t *testing.T) {
	clock := newManualClock()
	b := eventBuilder{token: "tok", anonymousID: "anon", clock: clock}

	event, err := b.track(context.Background(), "open", nil, TrackOptions{})
	if err != nil {
		t.Fatalf("track: %v", err)
	}
	raw, _ := event.MarshalJSON()
	if strings.Contains(string(raw), `"ip"`) || strings.Contains(string(raw), "$insert_id") {
		t.Fatalf("unexpected optional fields in %s", raw)
	}
	props, _ := event.Get("properties")
	id, _ := props.(Object).Get("distinct_id")
	if id != "anon" {
		t.Fatalf("expected anonymous fallback, got %v", id)
	}
	ts, _ := props.(Object).Get("time")
	if ts != json.Number(strconv.FormatInt(clock.Now().Unix(), 10)) {
		t.Fatalf("expected clock time, got %v", ts)
	}
}

func TestTrackAutoInsertID(t *testing.T) {
	b := eventBuilder{token: "tok", anonymousID: "anon", clock: newManualClock(), autoInsertID: true}
	event, err := b.track(context.Background(), "open", nil, TrackOptions{})
	if err != nil {
		t.Fatalf("track: %v", err)
	}
	props, _ := event.Get("properties")
	id, ok := props.(Object).Get("$insert_id")
	if !ok || len(id.(string)) != 36 {
		t.Fatalf("expected generated insert id, got %v", id)
	}
}

func TestTrackRejectsReservedProperties(t *testing.T) {
	b := eventBuilder{token: "tok", anonymousID: "anon", clock: newManualClock()}
	_, err := b.track(context.Background(), "open", map[string]any{"token": "other"}, TrackOptions{})
	if !errors.Is(err, ErrInvalidEvent) {
		t.Fatalf("expected ErrInvalidEvent, got %v", err)
	}
}

func TestBuilderRejectsUnencodableValues(t *testing.T) {
	b := eventBuilder{token: "tok", anonymousID: "anon", clock: newManualClock()}
	cases := map[string]any{
		"nan":      math.NaN(),
		"infinity": math.Inf(1),
		"func":     func() {},
		"channel":  make(chan int),
		"nested":   map[string]any{"deep": []any{math.NaN()}},
	}
	for name, value := range cases {
		t.Run(name, func(t *testing.T) {
			props := map[string]any{"v": value}
			if _, err := b.track(context.Background(), "open", props, TrackOptions{}); !errors.Is(err, ErrInvalidEvent) {
				t.Fatalf("track: expected ErrInvalidEvent, got %v", err)
			}
			if _, err := b.engage(context.Background(), OpSet, props, EngageOptions{}); !errors.Is(err, ErrInvalidEvent) {
				t.Fatalf("engage: expected ErrInvalidEvent, got %v", err)
			}
		})
	}
}

func TestEngageEventLayout(t *testing.T) {
	b := eventBuilder{token: "tok", anonymousID: "anon", clock: newManualClock()}
	at := time.UnixMilli(1700000000123)

	cases := []struct {
		name  string
		op    EngageOperation
		value map[string]any
		opts  EngageOptions
		want  string
	}{
		{
			name:  "set with flags",
			op:    OpSet,
			value: map[string]any{"plan": "pro", "age": 30},
			opts:  EngageOptions{Time: at, IP: "1.2.3.4", IgnoreTime: true, IgnoreAlias: true},
			want:  `{"$token":"tok","$distinct_id":"anon","$time":1700000000123,"$ip":"1.2.3.4","$ignore_time":true,"$ignore_alias":true,"$set":{"age":30,"plan":"pro"}}`,
		},
		{
			name:  "unset sends keys",
			op:    OpUnset,
			value: map[string]any{"b": nil, "a": nil},
			opts:  EngageOptions{Time: at},
			want:  `{"$token":"tok","$distinct_id":"anon","$time":1700000000123,"$unset":["a","b"]}`,
		},
		{
			name: "delete ignores value",
			op:   OpDelete,
			opts: EngageOptions{Time: at},
			want: `{"$token":"tok","$distinct_id":"anon","$time":1700000000123,"$delete":""}`,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			event, err := b.engage(context.Background(), tc.op, tc.value, tc.opts)
			if err != nil {
				t.Fatalf("engage: %v", err)
			}
			if event.Kind != KindEngage {
				t.Fatalf("expected engage kind")
			}
			raw, _ := event.MarshalJSON()
			if string(raw) != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, raw)
			}
		})
	}
}

func TestAnonymizerHashesIdentifiers(t *testing.T) {
	anonymizer := SHA256Anonymizer{Salt: "s"}
	b := eventBuilder{token: "tok", anonymousID: "anon", clock: newManualClock(), anonymizer: anonymizer}

	event, err := b.engage(context.Background(), OpSet, map[string]any{"a": 1}, EngageOptions{IP: "1.2.3.4"})
	if err != nil {
		t.Fatalf("engage: %v", err)
	}
	id, _ := event.Get("$distinct_id")
	ip, _ := event.Get("$ip")
	if id != anonymizer.Anonymize("anon") || ip != anonymizer.Anonymize("1.2.3.4") {
		t.Fatalf("expected hashed identifiers, got %v %v", id, ip)
	}
	if len(id.(string)) != 64 {
		t.Fatalf("expected hex sha256, got %v", id)
	}
}

func TestParseKind(t *testing.T) {
	for _, kind := range Kinds {
		parsed, err := ParseKind(kind.String())
		if err != nil || parsed != kind {
			t.Fatalf("parse %s: %v %v", kind, parsed, err)
		}
	}
	if _, err := ParseKind("people"); !errors.Is(err, ErrInvalidEvent) {
		t.Fatalf("expected ErrInvalidEvent, got %v", err)
	}
}
