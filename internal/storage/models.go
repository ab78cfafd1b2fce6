package storage

import (
	"database/sql"
	"time"
)

const (
	EventMaterial EventKind = "material"
	EventBand     EventKind = "band"
	EventClear    EventKind = "clear"
)

// EventKind names an operator action recorded in the journal.
type EventKind string

// Session is a single acquisition run.
type Session struct {
	ID        int64
	StartedAt time.Time
	Config    sql.NullString // YAML
}

// Event is an operator action recorded alongside the samples: a material or
// band change, or a clear-and-reset.
type Event struct {
	Timestamp time.Time
	Kind      EventKind
	Value     string
}
