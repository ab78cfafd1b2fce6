package storage

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/roman-kulish/wisense/internal/wifi"
)

func newTestStore(t *testing.T) *SqliteStore {
	t.Helper()
	s := NewSqliteStore(filepath.Join(t.TempDir(), "session.sqlite"))
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing store: %v", err)
		}
	})
	return s
}

func TestSqliteStore_Session(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	started := time.Date(2025, 3, 1, 12, 30, 15, 123456000, time.UTC)
	config := map[string]any{"interval": "500ms", "window": "5m"}

	id, err := s.CreateSession(ctx, started, config)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	sess, err := s.Session(ctx, id)
	if err != nil {
		t.Fatalf("Session: %v", err)
	}
	if !sess.StartedAt.Equal(started) {
		t.Errorf("expected start %s, got %s", started, sess.StartedAt)
	}
	if !sess.Config.Valid || !strings.Contains(sess.Config.String, "interval: 500ms") {
		t.Errorf("expected YAML config, got %q", sess.Config.String)
	}
}

func TestSqliteStore_Samples(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	id, err := s.CreateSession(ctx, base, nil)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	in := []wifi.Sample{
		wifi.NewSample(base.Add(500*time.Microsecond), -55.5, -90, wifi.Band24GHz, wifi.MaterialBaseline),
		wifi.NewSample(base.Add(time.Second), -60, -91, wifi.Band5GHz, wifi.MaterialWood),
		wifi.NewSample(base.Add(time.Second), -61, -92, wifi.Band5GHz, wifi.MaterialWood), // tie
		wifi.NewSample(base.Add(2*time.Second), -70.25, -89.5, wifi.Band5GHz, wifi.MaterialCopper),
	}
	for _, sample := range in {
		if err = s.RecordSample(ctx, id, sample); err != nil {
			t.Fatalf("RecordSample: %v", err)
		}
	}

	// a second session must not leak into the first
	other, _ := s.CreateSession(ctx, base, nil)
	_ = s.RecordSample(ctx, other, wifi.NewSample(base, -1, -2, wifi.Band24GHz, wifi.MaterialGlass))

	got, err := s.Samples(ctx, id)
	if err != nil {
		t.Fatalf("Samples: %v", err)
	}
	if len(got) != len(in) {
		t.Fatalf("expected %d samples, got %d", len(in), len(got))
	}
	for i := range in {
		g, w := got[i], in[i]
		if !g.Timestamp.Equal(w.Timestamp) || g.Band != w.Band || g.Material != w.Material ||
			g.RSSI != w.RSSI || g.Noise != w.Noise || g.SNR != w.SNR {
			t.Errorf("sample %d: expected %+v, got %+v", i, in[i], got[i])
		}
	}

	n, err := s.SampleCount(ctx, id)
	if err != nil || n != int64(len(in)) {
		t.Errorf("expected count %d, got %d (%v)", len(in), n, err)
	}
}

func TestSqliteStore_Events(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	id, _ := s.CreateSession(ctx, base, "raw config")

	_ = s.RecordEvent(ctx, id, base.Add(time.Second), EventMaterial, "wood")
	_ = s.RecordEvent(ctx, id, base.Add(2*time.Second), EventBand, "5")
	_ = s.RecordEvent(ctx, id, base.Add(3*time.Second), EventClear, "")

	events, err := s.Events(ctx, id)
	if err != nil {
		t.Fatalf("Events: %v", err)
	}

	expected := []Event{
		{Timestamp: base.Add(time.Second), Kind: EventMaterial, Value: "wood"},
		{Timestamp: base.Add(2 * time.Second), Kind: EventBand, Value: "5"},
		{Timestamp: base.Add(3 * time.Second), Kind: EventClear},
	}
	if len(events) != len(expected) {
		t.Fatalf("expected %d events, got %d", len(expected), len(events))
	}
	for i, want := range expected {
		if !events[i].Timestamp.Equal(want.Timestamp) || events[i].Kind != want.Kind || events[i].Value != want.Value {
			t.Errorf("event %d: expected %+v, got %+v", i, want, events[i])
		}
	}
}

func TestSqliteStore_CloseTwice(t *testing.T) {
	s := NewSqliteStore(filepath.Join(t.TempDir(), "session.sqlite"))
	if _, err := s.CreateSession(context.Background(), time.Now(), nil); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}
