package rolling

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/roman-kulish/wisense/internal/wifi"
)

// Transition marks the first sample captured with a new material.
type Transition struct {
	Timestamp time.Time
	Material  wifi.Material
}

// Labels is the session-wide annotation state frozen into each sample.
type Labels struct {
	Material wifi.Material
	Band     wifi.Band
}

// Extent is the time span covered by the retained samples.
type Extent struct {
	Oldest time.Time
	Newest time.Time
}

// Duration returns Newest - Oldest.
func (e Extent) Duration() time.Duration {
	return e.Newest.Sub(e.Oldest)
}

// Store implements a thread-safe, time-ordered buffer of samples bounded by
// a retention window. It also owns the current material and band labels so
// that a sample and the labels it freezes are read under the same lock.
//
// Samples are kept in append order and never re-sorted: a timestamp older
// than the newest retained sample is raised to it, so ties are possible and
// ordered by insertion.
type Store struct {
	window time.Duration

	mu          sync.RWMutex
	samples     []wifi.Sample
	transitions []Transition
	labels      Labels
}

// New creates a Store retaining samples for the given window. Labels start
// at baseline on the 2.4 GHz band.
func New(window time.Duration) (*Store, error) {
	if window <= 0 {
		return nil, fmt.Errorf("invalid retention window: %s", window)
	}
	return &Store{
		window: window,
		labels: Labels{
			Material: wifi.MaterialBaseline,
			Band:     wifi.Band24GHz,
		},
	}, nil
}

// Window returns the retention window.
func (s *Store) Window() time.Duration {
	return s.window
}

// Append adds a sample captured at now with explicit labels and evicts
// everything older than now - window.
func (s *Store) Append(rssi, noise float64, band wifi.Band, material wifi.Material, now time.Time) wifi.Sample {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.append(rssi, noise, band, material, now)
}

// Record appends a reading with the labels currently in effect.
func (s *Store) Record(r wifi.Reading, now time.Time) wifi.Sample {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.append(r.RSSI, r.Noise, s.labels.Band, s.labels.Material, now)
}

func (s *Store) append(rssi, noise float64, band wifi.Band, material wifi.Material, now time.Time) wifi.Sample {
	if now.IsZero() {
		now = time.Now()
	}

	if n := len(s.samples); n > 0 {
		last := s.samples[n-1]
		if now.Before(last.Timestamp) {
			now = last.Timestamp
		}
		if last.Material != material {
			s.transitions = append(s.transitions, Transition{Timestamp: now, Material: material})
		}
	}

	sample := wifi.NewSample(now, rssi, noise, band, material)
	s.samples = append(s.samples, sample)
	s.evict(now)

	return sample
}

// evict drops samples and transitions older than the retention cutoff.
func (s *Store) evict(now time.Time) {
	cutoff := now.Add(-s.window)

	i := 0
	for i < len(s.samples) && s.samples[i].Timestamp.Before(cutoff) {
		i++
	}
	if i > 0 {
		s.samples = s.samples[i:]
	}

	j := 0
	for j < len(s.transitions) && s.transitions[j].Timestamp.Before(cutoff) {
		j++
	}
	if j > 0 {
		s.transitions = s.transitions[j:]
	}
}

// Snapshot returns a copy of all retained samples in timestamp order.
func (s *Store) Snapshot() []wifi.Sample {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]wifi.Sample, len(s.samples))
	copy(out, s.samples)
	return out
}

// SnapshotRange returns a copy of the retained samples with
// start <= timestamp <= end.
func (s *Store) SnapshotRange(start, end time.Time) []wifi.Sample {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lo := sort.Search(len(s.samples), func(i int) bool {
		return !s.samples[i].Timestamp.Before(start)
	})
	hi := sort.Search(len(s.samples), func(i int) bool {
		return s.samples[i].Timestamp.After(end)
	})
	if lo >= hi {
		return nil
	}

	out := make([]wifi.Sample, hi-lo)
	copy(out, s.samples[lo:hi])
	return out
}

// TimeExtent returns the oldest and newest retained timestamps; ok is false
// when the store is empty.
func (s *Store) TimeExtent() (ext Extent, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.samples) == 0 {
		return Extent{}, false
	}
	return Extent{
		Oldest: s.samples[0].Timestamp,
		Newest: s.samples[len(s.samples)-1].Timestamp,
	}, true
}

// Transitions returns a copy of the retained transition markers.
func (s *Store) Transitions() []Transition {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Transition, len(s.transitions))
	copy(out, s.transitions)
	return out
}

// TransitionsRange returns the markers with start <= timestamp <= end.
func (s *Store) TransitionsRange(start, end time.Time) []Transition {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Transition
	for _, t := range s.transitions {
		if t.Timestamp.Before(start) || t.Timestamp.After(end) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Len returns the number of retained samples.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.samples)
}

// Clear removes all samples and transition markers and resets the current
// material to baseline. The band is kept.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.samples = nil
	s.transitions = nil
	s.labels.Material = wifi.MaterialBaseline
}

// Labels returns the labels currently in effect.
func (s *Store) Labels() Labels {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.labels
}

// SetMaterial changes the current material label.
func (s *Store) SetMaterial(m wifi.Material) error {
	if !m.Valid() {
		return fmt.Errorf("unknown material: %q", m)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.labels.Material = m
	return nil
}

// SetBand changes the current band label.
func (s *Store) SetBand(b wifi.Band) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.labels.Band = b
}

// ToggleBand switches between 2.4 and 5 GHz and returns the new band.
func (s *Store) ToggleBand() wifi.Band {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.labels.Band = s.labels.Band.Toggle()
	return s.labels.Band
}
