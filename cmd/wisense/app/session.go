package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/roman-kulish/wisense/internal/acquisition"
	"github.com/roman-kulish/wisense/internal/export"
	"github.com/roman-kulish/wisense/internal/rolling"
	"github.com/roman-kulish/wisense/internal/stats"
	"github.com/roman-kulish/wisense/internal/storage"
	"github.com/roman-kulish/wisense/internal/wifi"
)

const sessionTimeFormat = "20060102_150405"

// ErrSessionClosed is returned by Save once the journal is closed and no
// export was written.
var ErrSessionClosed = errors.New("session closed")

// Session ties one acquisition run together: the rolling window shown by the
// UI, the journal holding every sample, and the exporter run at shutdown.
type Session struct {
	ID        int64
	StartedAt time.Time

	store     *rolling.Store
	journal   *storage.SqliteStore
	loop      *acquisition.Loop
	exporter  *export.Exporter
	chartPath string
	logger    *slog.Logger

	// writeSample persists one sample; samples it rejects wait in pending
	// and are retried on the next write.
	writeSample func(ctx context.Context, sessionID int64, sample wifi.Sample) error
	pendingMu   sync.Mutex
	pending     []wifi.Sample

	saveMu     sync.Mutex
	savedPath  string
	closed     bool
	finishOnce sync.Once
	finishErr  error
}

// NewSession creates the session files under dataDir and wires source,
// store and journal into an acquisition loop.
func NewSession(ctx context.Context, config *Config, dataDir string, startedAt time.Time, source wifi.Source, logger *slog.Logger) (*Session, error) {
	store, err := rolling.New(config.Sampling.Window.Duration())
	if err != nil {
		return nil, fmt.Errorf("creating rolling store: %w", err)
	}

	stamp := startedAt.UTC().Format(sessionTimeFormat)
	journal := storage.NewSqliteStore(filepath.Join(dataDir, fmt.Sprintf("wisense_session_%s.sqlite", stamp)))

	sessionID, err := journal.CreateSession(ctx, startedAt, config)
	if err != nil {
		_ = journal.Close()
		return nil, fmt.Errorf("creating session: %w", err)
	}

	recorded, err := journal.Session(ctx, sessionID)
	if err != nil {
		_ = journal.Close()
		return nil, fmt.Errorf("reading session: %w", err)
	}

	material, band, err := config.Labels.Initial()
	if err != nil {
		_ = journal.Close()
		return nil, err
	}
	if err = store.SetMaterial(material); err != nil {
		_ = journal.Close()
		return nil, err
	}
	store.SetBand(band)

	logger = logger.With(slog.Int64("session", sessionID))
	logger.Debug("session created",
		slog.String("journal", journal.Path()),
		slog.Duration("window", store.Window()),
		slog.String("material", material.String()),
		slog.String("band", band.String()),
	)

	s := Session{
		ID:          sessionID,
		StartedAt:   recorded.StartedAt,
		store:       store,
		journal:     journal,
		writeSample: journal.RecordSample,
		chartPath:   filepath.Join(dataDir, fmt.Sprintf("wifi_readings_%s_stats.png", stamp)),
		logger:      logger,
		exporter: export.New(
			filepath.Join(dataDir, fmt.Sprintf("wifi_readings_%s.csv", stamp)),
			export.WithLogger(logger),
		),
	}

	s.loop = acquisition.New(source, store,
		acquisition.WithLogger(logger),
		acquisition.WithInterval(config.Sampling.Interval.Duration()),
		acquisition.WithRecorder(acquisition.RecorderFunc(s.recordSample)),
	)

	return &s, nil
}

// Run samples until ctx is cancelled.
func (s *Session) Run(ctx context.Context) error {
	return s.loop.Run(ctx)
}

func (s *Session) recordSample(ctx context.Context, sample wifi.Sample) error {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()

	if len(s.pending) > 0 {
		kept := s.pending[:0]
		for _, p := range s.pending {
			if err := s.writeSample(ctx, s.ID, p); err != nil {
				kept = append(kept, p)
			}
		}
		if n := len(s.pending) - len(kept); n > 0 {
			s.logger.Info("pending samples recorded", slog.Int("count", n), slog.Int("remaining", len(kept)))
		}
		s.pending = kept
	}

	if err := s.writeSample(ctx, s.ID, sample); err != nil {
		s.pending = append(s.pending, sample)
		return err
	}
	return nil
}

// journalSamples returns every sample of the session, including the ones
// still waiting to be recorded, in timestamp order.
func (s *Session) journalSamples(ctx context.Context) ([]wifi.Sample, error) {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()

	samples, err := s.journal.Samples(ctx, s.ID)
	if err != nil {
		return nil, err
	}
	if len(s.pending) == 0 {
		return samples, nil
	}

	samples = append(samples, s.pending...)
	sort.SliceStable(samples, func(i, j int) bool {
		return samples[i].Timestamp.Before(samples[j].Timestamp)
	})
	return samples, nil
}

func (s *Session) recordEvent(kind storage.EventKind, value string) {
	if err := s.journal.RecordEvent(context.Background(), s.ID, time.Now(), kind, value); err != nil {
		s.logger.Error(fmt.Sprintf("error recording %s event: %s", kind, err.Error()))
	}
}

// Store returns the rolling window.
func (s *Session) Store() *rolling.Store {
	return s.store
}

// AcquisitionStats returns the loop counters.
func (s *Session) AcquisitionStats() acquisition.Stats {
	return s.loop.Stats()
}

// JournalSize returns the size of the journal file in bytes, WAL included.
func (s *Session) JournalSize() int64 {
	var size int64
	for _, path := range []string{s.journal.Path(), s.journal.Path() + "-wal"} {
		if info, err := os.Stat(path); err == nil {
			size += info.Size()
		}
	}
	return size
}

// ExportPath returns the primary CSV path.
func (s *Session) ExportPath() string {
	return s.exporter.Path()
}

// SelectMaterial changes the material label applied to new samples.
func (s *Session) SelectMaterial(m wifi.Material) error {
	if err := s.store.SetMaterial(m); err != nil {
		return err
	}
	s.recordEvent(storage.EventMaterial, m.String())
	s.logger.Info("material selected", slog.String("material", m.String()))
	return nil
}

// ToggleBand switches the band label applied to new samples.
func (s *Session) ToggleBand() wifi.Band {
	band := s.store.ToggleBand()
	s.recordEvent(storage.EventBand, band.String())
	s.logger.Info("band selected", slog.String("band", band.String()))
	return band
}

// Clear empties the rolling window and resets the material to baseline. The
// journal keeps every sample and records the clear.
func (s *Session) Clear() {
	s.store.Clear()
	s.recordEvent(storage.EventClear, "")
	s.logger.Info("data cleared, material reset to baseline")
}

// Save exports every sample of the session and returns the path written.
// Repeated saves overwrite the same file. Once the session is finished or
// closed the last export is kept and its path returned.
func (s *Session) Save(ctx context.Context) (string, error) {
	path, _, err := s.save(ctx, false)
	return path, err
}

func (s *Session) save(ctx context.Context, final bool) (string, []wifi.Sample, error) {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	if s.closed {
		if s.savedPath == "" {
			return "", nil, ErrSessionClosed
		}
		return s.savedPath, nil, nil
	}
	if final {
		s.closed = true
	}

	samples, err := s.journalSamples(ctx)
	if err != nil {
		s.logger.Error(fmt.Sprintf("error reading journal, exporting the rolling window only: %s", err.Error()))
		samples = s.store.Snapshot()
	}

	path, err := s.exporter.Export(samples)
	if err != nil {
		return "", samples, err
	}
	s.savedPath = path
	return path, samples, nil
}

// Finish exports the session and renders the statistics chart. It runs once;
// later calls return the first result. Only an export failure is returned.
func (s *Session) Finish(ctx context.Context) error {
	s.finishOnce.Do(func() {
		counters := s.loop.Stats()
		s.logger.Info("finishing session",
			slog.Uint64("accepted", counters.Accepted),
			slog.Uint64("parseFailures", counters.ParseFailures),
			slog.Uint64("sourceFailures", counters.SourceFailures),
			slog.Uint64("skipped", counters.Skipped),
			slog.Uint64("recordFailures", counters.RecordFailures),
		)

		s.pendingMu.Lock()
		pending := len(s.pending)
		s.pendingMu.Unlock()
		if counters.RecordFailures > 0 {
			s.logger.Warn("some samples failed to reach the journal",
				slog.Uint64("failures", counters.RecordFailures),
				slog.Int("pending", pending),
			)
		}

		path, samples, err := s.save(ctx, true)
		if err != nil {
			s.finishErr = fmt.Errorf("exporting session: %w", err)
			return
		}
		s.logger.Info("session saved", slog.String("path", path))

		if len(samples) == 0 {
			return
		}
		if err = writeStatsChart(s.chartPath, stats.Compute(samples), s.StartedAt, len(samples)); err != nil {
			s.logger.Warn(fmt.Sprintf("error rendering statistics chart: %s", err.Error()))
			return
		}
		s.logger.Info("statistics chart saved", slog.String("path", s.chartPath))
	})

	return s.finishErr
}

// Close releases the journal. Later saves return the last export.
func (s *Session) Close() error {
	s.saveMu.Lock()
	s.closed = true
	s.saveMu.Unlock()

	return s.journal.Close()
}
