package tracker

import (
	"bytes"
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
)

func randomEvents(t *testing.T, faker *gofakeit.Faker, kind Kind, n int) []Event {
	t.Helper()
	b := eventBuilder{token: "token", anonymousID: faker.UUID(), clock: newManualClock()}
	events := make([]Event, 0, n)
	for i := 0; i < n; i++ {
		props := map[string]any{
			"name":    faker.Name(),
			"email":   faker.Email(),
			"count":   faker.Number(0, 1000),
			"premium": faker.Bool(),
			"tags":    []any{faker.Word(), faker.Word()},
			"address": map[string]any{"city": faker.City(), "zip": faker.Zip()},
		}
		var (
			event Event
			err   error
		)
		if kind == KindTrack {
			event, err = b.track(context.Background(), faker.Word(), props, TrackOptions{IP: faker.IPv4Address()})
		} else {
			event, err = b.engage(context.Background(), OpSet, props, EngageOptions{IgnoreTime: faker.Bool()})
		}
		if err != nil {
			t.Fatalf("build event: %v", err)
		}
		events = append(events, event)
	}
	return events
}

func TestSnapshotRoundTripPreservesOrder(t *testing.T) {
	faker := gofakeit.New(42)
	snap := Snapshot{
		Track:  randomEvents(t, faker, KindTrack, 24),
		Engage: randomEvents(t, faker, KindEngage, 7),
	}
	wide, err := eventBuilder{token: "token", anonymousID: "anon", clock: newManualClock()}.track(
		context.Background(), "wide", map[string]any{
			"above_2_53": int64(1<<53 + 1),
			"min_int64":  int64(math.MinInt64),
			"max_uint64": uint64(math.MaxUint64),
			"fraction":   0.1,
		}, TrackOptions{})
	if err != nil {
		t.Fatalf("build event: %v", err)
	}
	snap.Track = append(snap.Track, wide)

	raw, err := EncodeSnapshot(snap)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	storage := NewMemoryStorage()
	if err := storage.Save(context.Background(), "k", raw); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := storage.Load(context.Background(), "k")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	decoded, err := DecodeSnapshot(loaded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if len(decoded.Track) != 25 || len(decoded.Engage) != 7 {
		t.Fatalf("unexpected sizes %d/%d", len(decoded.Track), len(decoded.Engage))
	}
	for _, kind := range Kinds {
		for i, event := range decoded.Events(kind) {
			if event.Kind != kind {
				t.Fatalf("%s[%d] decoded as %s", kind, i, event.Kind)
			}
		}
	}

	again, err := EncodeSnapshot(decoded)
	if err != nil {
		t.Fatalf("re-encode: %v", err)
	}
	if !bytes.Equal(raw, again) {
		t.Fatalf("round trip changed the snapshot:\n%s\n%s", raw, again)
	}
	for _, want := range []string{`"above_2_53":9007199254740993`, `"min_int64":-9223372036854775808`, `"max_uint64":18446744073709551615`, `"fraction":0.1`} {
		if !strings.Contains(string(again), want) {
			t.Fatalf("expected %s in %s", want, again)
		}
	}
}

func TestSnapshotEmptyEncoding(t *testing.T) {
	raw, err := EncodeSnapshot(Snapshot{})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if string(raw) != `{"track":[],"engage":[]}` {
		t.Fatalf("unexpected encoding %s", raw)
	}
}

func TestDecodeSnapshotToleratesMissingKind(t *testing.T) {
	snap, err := DecodeSnapshot([]byte(`{"engage":[{"$token":"t"}]}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(snap.Track) != 0 || len(snap.Engage) != 1 {
		t.Fatalf("unexpected sizes %d/%d", len(snap.Track), len(snap.Engage))
	}
}

func TestDecodeSnapshotRejectsMalformed(t *testing.T) {
	cases := map[string]string{
		"invalid json":     `{"track":[`,
		"not an object":    `[1,2]`,
		"kind not array":   `{"track":{"a":1}}`,
		"event not object": `{"track":[1]}`,
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeSnapshot([]byte(input))
			if !errors.Is(err, ErrDecode) {
				t.Fatalf("expected ErrDecode, got %v", err)
			}
		})
	}
}

func TestObjectKeepsFieldOrder(t *testing.T) {
	obj := Object{
		{Name: "z", Value: 1},
		{Name: "a", Value: Object{{Name: "y", Value: "x"}, {Name: "b", Value: nil}}},
		{Name: "m", Value: []any{true, "s", 1.5}},
		{Name: "t", Value: time.Unix(0, 0).UTC().Unix()},
	}
	raw, err := obj.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"z":1,"a":{"y":"x","b":null},"m":[true,"s",1.5],"t":0}`
	if string(raw) != want {
		t.Fatalf("expected %s, got %s", want, raw)
	}

	var decoded Object
	if err := decoded.UnmarshalJSON(raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	again, _ := decoded.MarshalJSON()
	if string(again) != want {
		t.Fatalf("expected %s after round trip, got %s", want, again)
	}
	nested, _ := decoded.Get("a")
	if _, ok := nested.(Object); !ok {
		t.Fatalf("expected nested object to decode as Object, got %T", nested)
	}
}
