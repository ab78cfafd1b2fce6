package acquisition

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/roman-kulish/wisense/internal/rolling"
	"github.com/roman-kulish/wisense/internal/wifi"
)

const goodOutput = "RSSI : -55 dBm\nNoise : -90 dBm"

// scriptedSource replays outputs in order; a nil-text entry with err set
// simulates a command failure.
type scriptedSource struct {
	mu      sync.Mutex
	outputs []scripted
	calls   int
	onFetch func(call int)
}

type scripted struct {
	text string
	err  error
}

func (s *scriptedSource) Fetch(ctx context.Context) (string, error) {
	s.mu.Lock()
	call := s.calls
	s.calls++
	var out scripted
	if call < len(s.outputs) {
		out = s.outputs[call]
	} else {
		out = scripted{text: goodOutput}
	}
	onFetch := s.onFetch
	s.mu.Unlock()

	if onFetch != nil {
		onFetch(call)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return out.text, out.err
}

// fakeClock advances only when told to.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.Advance(d)
	return nil
}

func newTestStore(t *testing.T) *rolling.Store {
	t.Helper()
	s, err := rolling.New(5 * time.Minute)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	return s
}

func TestNextDelay(t *testing.T) {
	interval := 500 * time.Millisecond

	testCases := []struct {
		name        string
		elapsed     time.Duration
		wantDelay   time.Duration
		wantSkipped int
	}{
		{"fast tick sleeps the remainder", 120 * time.Millisecond, 380 * time.Millisecond, 0},
		{"instant tick sleeps the full interval", 0, interval, 0},
		{"exactly one interval runs immediately", interval, 0, 0},
		{"behind by less than an interval", 900 * time.Millisecond, 0, 0},
		{"behind by two intervals", time.Second, 0, 1},
		{"slow command", 1600 * time.Millisecond, 0, 2},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			delay, skipped := nextDelay(tc.elapsed, interval)
			if delay != tc.wantDelay || skipped != tc.wantSkipped {
				t.Errorf("expected (%s, %d), got (%s, %d)", tc.wantDelay, tc.wantSkipped, delay, skipped)
			}
		})
	}
}

func TestLoop_ParseFailureDoesNotPoison(t *testing.T) {
	store := newTestStore(t)
	src := &scriptedSource{outputs: []scripted{
		{text: "garbage output"},
		{text: goodOutput},
	}}
	l := New(src, store)

	if l.tick(context.Background()) {
		t.Fatal("garbage output must not be accepted")
	}
	if !l.tick(context.Background()) {
		t.Fatal("well-formed output after a failure must be accepted")
	}

	snap := store.Snapshot()
	if len(snap) != 1 {
		t.Fatalf("expected 1 sample, got %d", len(snap))
	}
	if snap[0].RSSI != -55 || snap[0].Noise != -90 || snap[0].SNR != 35 {
		t.Errorf("unexpected sample %+v", snap[0])
	}

	stats := l.Stats()
	if stats.ParseFailures != 1 || stats.Accepted != 1 {
		t.Errorf("expected 1 parse failure and 1 accepted, got %+v", stats)
	}
}

func TestLoop_SourceFailureCounted(t *testing.T) {
	store := newTestStore(t)
	src := &scriptedSource{outputs: []scripted{
		{err: wifi.ErrSourceUnavailable},
		{text: goodOutput},
	}}
	l := New(src, store)

	l.tick(context.Background())
	l.tick(context.Background())

	stats := l.Stats()
	if stats.SourceFailures != 1 || stats.Accepted != 1 || stats.ParseFailures != 0 {
		t.Errorf("unexpected counters %+v", stats)
	}
}

func TestLoop_CancelledFetchAppendsNothing(t *testing.T) {
	store := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())

	src := &scriptedSource{onFetch: func(int) { cancel() }}
	l := New(src, store)

	if l.tick(ctx) {
		t.Fatal("interrupted tick must not be accepted")
	}
	if store.Len() != 0 {
		t.Errorf("expected empty store, got %d samples", store.Len())
	}
	if stats := l.Stats(); stats.SourceFailures != 0 {
		t.Errorf("cancellation must not count as a source failure, got %+v", stats)
	}
}

func TestLoop_RunCadence(t *testing.T) {
	store := newTestStore(t)
	clock := &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := &scriptedSource{onFetch: func(call int) {
		if call == 1 {
			clock.Advance(1600 * time.Millisecond) // slow command
		}
		if call == 9 {
			cancel()
		}
	}}

	l := New(src, store, WithInterval(500*time.Millisecond), WithClock(clock.Now, clock.Sleep))
	if err := l.Run(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stats := l.Stats()
	if stats.Accepted != 9 {
		t.Errorf("expected 9 accepted samples, got %d", stats.Accepted)
	}
	if stats.Skipped != 2 {
		t.Errorf("expected 2 skipped ticks, got %d", stats.Skipped)
	}

	snap := store.Snapshot()
	for i := 1; i < len(snap); i++ {
		if snap[i].Timestamp.Before(snap[i-1].Timestamp) {
			t.Fatalf("sample %d out of order", i)
		}
	}
	if gap := snap[2].Timestamp.Sub(snap[1].Timestamp); gap != 0 {
		t.Errorf("expected tick after an overrun to start immediately, got gap %s", gap)
	}
	if gap := snap[3].Timestamp.Sub(snap[2].Timestamp); gap != 500*time.Millisecond {
		t.Errorf("expected regular cadence after catching up, got gap %s", gap)
	}
}

func TestLoop_RecorderReceivesSamples(t *testing.T) {
	store := newTestStore(t)
	if err := store.SetMaterial(wifi.MaterialGlass); err != nil {
		t.Fatal(err)
	}

	var recorded []wifi.Sample
	fail := true
	rec := RecorderFunc(func(ctx context.Context, s wifi.Sample) error {
		if fail {
			fail = false
			return errors.New("disk full")
		}
		recorded = append(recorded, s)
		return nil
	})

	l := New(&scriptedSource{}, store, WithRecorder(rec))
	for i := 0; i < 3; i++ {
		l.tick(context.Background())
	}

	if store.Len() != 3 {
		t.Errorf("journal failures must not drop samples from the store, got %d", store.Len())
	}
	if len(recorded) != 2 {
		t.Fatalf("expected 2 recorded samples, got %d", len(recorded))
	}
	if recorded[0].Material != wifi.MaterialGlass {
		t.Errorf("expected recorded sample labelled glass, got %s", recorded[0].Material)
	}
	if stats := l.Stats(); stats.RecordFailures != 1 || stats.Accepted != 3 {
		t.Errorf("unexpected counters %+v", stats)
	}
}

func TestLoop_RunTwice(t *testing.T) {
	store := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())

	started := make(chan struct{})
	var once sync.Once
	src := wifi.SourceFunc(func(ctx context.Context) (string, error) {
		once.Do(func() { close(started) })
		<-ctx.Done()
		return "", ctx.Err()
	})

	l := New(src, store)
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	<-started
	if err := l.Run(ctx); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("expected ErrAlreadyRunning, got %v", err)
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("expected nil on cancellation, got %v", err)
	}
}

func TestLoop_InvalidInterval(t *testing.T) {
	l := New(&scriptedSource{}, newTestStore(t), WithInterval(0))
	if err := l.Run(context.Background()); err == nil {
		t.Error("expected error for zero interval")
	}
}
