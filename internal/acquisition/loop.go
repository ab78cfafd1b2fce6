package acquisition

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/roman-kulish/wisense/internal/telemetry"
	"github.com/roman-kulish/wisense/internal/wifi"
)

// DefaultInterval is the sampling cadence used when none is configured.
const DefaultInterval = 500 * time.Millisecond

// ErrAlreadyRunning is returned by Run when the loop is already sampling.
var ErrAlreadyRunning = errors.New("acquisition loop is already running")

// Store is the write side of the rolling window. Record must freeze the
// labels in effect at call time into the returned sample.
type Store interface {
	Record(r wifi.Reading, now time.Time) wifi.Sample
	Len() int
}

// Recorder receives every accepted sample after it has been stored.
type Recorder interface {
	Record(ctx context.Context, s wifi.Sample) error
}

// RecorderFunc adapts a function to the Recorder interface.
type RecorderFunc func(ctx context.Context, s wifi.Sample) error

func (f RecorderFunc) Record(ctx context.Context, s wifi.Sample) error {
	return f(ctx, s)
}

// Stats is a point-in-time view of the loop counters.
type Stats struct {
	Accepted       uint64
	ParseFailures  uint64
	SourceFailures uint64
	Skipped        uint64
	RecordFailures uint64
}

// WithLogger sets the logger for the loop
func WithLogger(logger *slog.Logger) func(*Loop) {
	return func(l *Loop) {
		l.logger = logger.With(slog.String("component", "acquisition"))
	}
}

// WithInterval sets the sampling cadence
func WithInterval(interval time.Duration) func(*Loop) {
	return func(l *Loop) {
		l.interval = interval
	}
}

// WithRecorder streams accepted samples to r
func WithRecorder(r Recorder) func(*Loop) {
	return func(l *Loop) {
		l.recorder = r
	}
}

// WithClock replaces the wall clock and the sleep function, for tests
func WithClock(now func() time.Time, sleep func(ctx context.Context, d time.Duration) error) func(*Loop) {
	return func(l *Loop) {
		l.now = now
		l.sleep = sleep
	}
}

// Loop drives Source -> Parse -> Store on a fixed cadence, independent of
// any consumer of the store. Failures of a single tick are logged and
// counted; they never stop the loop.
type Loop struct {
	source   wifi.Source
	store    Store
	recorder Recorder
	interval time.Duration

	logger *slog.Logger
	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error

	running        atomic.Bool
	accepted       atomic.Uint64
	parseFailures  atomic.Uint64
	sourceFailures atomic.Uint64
	skipped        atomic.Uint64
	recordFailures atomic.Uint64
}

// New creates a Loop with a discard logger
func New(source wifi.Source, store Store, options ...func(*Loop)) *Loop {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // nil logger

	l := Loop{
		source:   source,
		store:    store,
		interval: DefaultInterval,
		logger:   logger,
		now:      time.Now,
		sleep:    sleepContext,
	}

	for _, option := range options {
		option(&l)
	}

	return &l
}

// Run samples until ctx is cancelled. A tick in flight when ctx is cancelled
// either completes with a full sample or appends nothing. Run returns nil on
// cancellation.
func (l *Loop) Run(ctx context.Context) error {
	if l.interval <= 0 {
		return fmt.Errorf("invalid sampling interval: %s", l.interval)
	}
	if !l.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer l.running.Store(false)

	l.logger.Info("starting acquisition...", slog.Duration("interval", l.interval))
	defer l.logger.Info("acquisition stopped")

	for {
		if ctx.Err() != nil {
			return nil
		}

		start := l.now()
		l.tick(ctx)

		delay, skipped := nextDelay(l.now().Sub(start), l.interval)
		if skipped > 0 {
			l.skipped.Add(uint64(skipped))
			telemetry.SkippedTicksTotal.Add(float64(skipped))
			l.logger.Warn("sampling fell behind, skipping ticks", slog.Int("skipped", skipped))
		}

		if delay > 0 {
			if err := l.sleep(ctx, delay); err != nil {
				return nil
			}
		}
	}
}

// Stats returns the loop counters.
func (l *Loop) Stats() Stats {
	return Stats{
		Accepted:       l.accepted.Load(),
		ParseFailures:  l.parseFailures.Load(),
		SourceFailures: l.sourceFailures.Load(),
		Skipped:        l.skipped.Load(),
		RecordFailures: l.recordFailures.Load(),
	}
}

// tick performs one fetch, parse and append cycle and reports whether a
// sample was accepted.
func (l *Loop) tick(ctx context.Context) bool {
	fetchStart := time.Now()
	text, err := l.source.Fetch(ctx)
	telemetry.FetchDuration.Observe(time.Since(fetchStart).Seconds())

	if err != nil {
		if ctx.Err() != nil {
			return false // shutting down, the fetch was interrupted
		}

		l.sourceFailures.Add(1)
		telemetry.SourceFailuresTotal.Inc()
		l.logger.Warn(fmt.Sprintf("error fetching metrics: %s", err.Error()))
		return false
	}

	reading, err := wifi.Parse(text)
	if err != nil {
		l.parseFailures.Add(1)
		telemetry.ParseFailuresTotal.Inc()

		var pf *wifi.ParseFailure
		if errors.As(err, &pf) {
			l.logger.Warn(fmt.Sprintf("error parsing metrics: %s", pf.Reason), slog.String("text", pf.Text))
		} else {
			l.logger.Warn(fmt.Sprintf("error parsing metrics: %s", err.Error()))
		}
		return false
	}

	sample := l.store.Record(reading, l.now())

	l.accepted.Add(1)
	telemetry.SamplesTotal.WithLabelValues(sample.Band.String(), sample.Material.String()).Inc()
	telemetry.RSSI.Set(sample.RSSI)
	telemetry.Noise.Set(sample.Noise)
	telemetry.SNR.Set(sample.SNR)
	telemetry.RetainedSamples.Set(float64(l.store.Len()))

	if l.recorder != nil {
		// the journal write completes even when shutdown has begun
		if err = l.recorder.Record(context.WithoutCancel(ctx), sample); err != nil {
			l.recordFailures.Add(1)
			telemetry.JournalFailuresTotal.Inc()
			l.logger.Error(fmt.Sprintf("error recording sample: %s", err.Error()))
		}
	}

	return true
}

// nextDelay returns how long to wait before the next tick given the time the
// last tick took, and how many ticks were missed. A tick that overran by less
// than one full interval is followed immediately and nothing is skipped.
func nextDelay(elapsed, interval time.Duration) (time.Duration, int) {
	if elapsed < interval {
		return interval - elapsed, 0
	}
	return 0, int(elapsed/interval) - 1
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
