package storage

import (
	"context"
	"time"

	"github.com/roman-kulish/wisense/internal/wifi"
)

// Store is the append-only session journal. Every accepted sample and every
// operator action is written as it happens, so the journal holds the whole
// session regardless of what the rolling window still retains.
type Store interface {
	// CreateSession starts a new session and returns its identifier.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeouts
	//   - startedAt: Session start instant
	//   - config: Optional configuration. Can be string, []byte, or a YAML-serializable value
	CreateSession(ctx context.Context, startedAt time.Time, config any) (sessionID int64, err error)

	// Session retrieves a session by its ID.
	Session(ctx context.Context, id int64) (*Session, error)

	// RecordSample appends one sample to the session.
	RecordSample(ctx context.Context, sessionID int64, s wifi.Sample) error

	// RecordEvent appends one operator action to the session.
	RecordEvent(ctx context.Context, sessionID int64, ts time.Time, kind EventKind, value string) error

	// Samples returns every sample of the session ordered by timestamp, ties
	// in insertion order.
	Samples(ctx context.Context, sessionID int64) ([]wifi.Sample, error)

	// SampleCount returns the number of samples recorded for the session.
	SampleCount(ctx context.Context, sessionID int64) (int64, error)

	// Events returns the operator actions of the session in order.
	Events(ctx context.Context, sessionID int64) ([]Event, error)

	// Close releases all database connections. It is safe to call Close
	// multiple times.
	Close() error
}
