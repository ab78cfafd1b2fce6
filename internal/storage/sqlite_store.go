package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"gopkg.in/yaml.v3"

	"github.com/roman-kulish/wisense/internal/wifi"
)

var _ Store = (*SqliteStore)(nil)

// SqliteStore is a Store backed by a single SQLite file in WAL mode. Writes
// go through one serialized connection, reads through a read-only one.
type SqliteStore struct {
	dbPath string

	writeDB     *sql.DB
	writeDBOnce sync.Once
	writeDBErr  error

	readDB     *sql.DB
	readDBOnce sync.Once
	readDBErr  error

	closeOnce sync.Once
	closeErr  error
}

// NewSqliteStore creates a store for the database file at dbPath. The file
// and its schema are created on the first write.
func NewSqliteStore(dbPath string) *SqliteStore {
	return &SqliteStore{dbPath: dbPath}
}

// Path returns the database file path.
func (s *SqliteStore) Path() string {
	return s.dbPath
}

func runSQLCommand(db *sql.DB, sql string) error {
	_, err := db.Exec(sql)
	return err
}

func (s *SqliteStore) getWriteDB() (*sql.DB, error) {
	s.writeDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"))
		if err != nil {
			s.writeDBErr = fmt.Errorf("opening write connection: %w", err)
			return
		}
		db.SetMaxOpenConns(1) // acquisition and UI write concurrently

		if err = runSQLCommand(db, initSchemaSQL); err != nil {
			_ = db.Close()
			s.writeDBErr = fmt.Errorf("initializing schema: %w", err)
			return
		}

		s.writeDB = db
	})

	return s.writeDB, s.writeDBErr
}

func (s *SqliteStore) getReadDB() (*sql.DB, error) {
	s.readDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "mode=ro&_busy_timeout=5000"))
		if err != nil {
			s.readDBErr = fmt.Errorf("opening read connection: %w", err)
			return
		}
		s.readDB = db
	})

	return s.readDB, s.readDBErr
}

func (s *SqliteStore) CreateSession(ctx context.Context, startedAt time.Time, config any) (sessionID int64, err error) {
	var configData sql.NullString

	if config != nil {
		switch c := config.(type) {
		case string:
			configData.Valid = true
			configData.String = c

		case []byte:
			configData.Valid = true
			configData.String = string(c)

		default:
			var p []byte
			if p, err = yaml.Marshal(config); err != nil {
				err = fmt.Errorf("marshaling config: %w", err)
				return
			}

			configData.Valid = true
			configData.String = string(p)
		}
	}

	db, err := s.getWriteDB()
	if err != nil {
		err = fmt.Errorf("getting write connection: %w", err)
		return
	}

	result, err := db.ExecContext(ctx, insertSessionSQL, toMicros(startedAt), configData)
	if err != nil {
		err = fmt.Errorf("inserting session: %w", err)
		return
	}

	sessionID, err = result.LastInsertId()
	if err != nil {
		err = fmt.Errorf("getting session ID: %w", err)
	}
	return
}

func (s *SqliteStore) Session(ctx context.Context, id int64) (session *Session, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	var sess Session
	var startedAt int64
	if err = db.QueryRowContext(ctx, selectSessionSQL, id).Scan(&sess.ID, &startedAt, &sess.Config); err != nil {
		err = fmt.Errorf("scanning session: %w", err)
		return
	}
	sess.StartedAt = fromMicros(startedAt)

	return &sess, nil
}

func (s *SqliteStore) RecordSample(ctx context.Context, sessionID int64, sample wifi.Sample) error {
	db, err := s.getWriteDB()
	if err != nil {
		return fmt.Errorf("getting write connection: %w", err)
	}

	_, err = db.ExecContext(
		ctx,
		insertSampleSQL,
		sessionID,
		toMicros(sample.Timestamp),
		sample.Band.String(),
		sample.Material.String(),
		sample.RSSI,
		sample.Noise,
		sample.SNR,
	)
	if err != nil {
		return fmt.Errorf("inserting sample: %w", err)
	}

	return nil
}

func (s *SqliteStore) RecordEvent(ctx context.Context, sessionID int64, ts time.Time, kind EventKind, value string) error {
	db, err := s.getWriteDB()
	if err != nil {
		return fmt.Errorf("getting write connection: %w", err)
	}

	var v sql.NullString
	if value != "" {
		v = sql.NullString{String: value, Valid: true}
	}

	if _, err = db.ExecContext(ctx, insertEventSQL, sessionID, toMicros(ts), string(kind), v); err != nil {
		return fmt.Errorf("inserting event: %w", err)
	}

	return nil
}

func (s *SqliteStore) Samples(ctx context.Context, sessionID int64) (samples []wifi.Sample, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	rows, err := db.QueryContext(ctx, selectSamplesSQL, sessionID)
	if err != nil {
		err = fmt.Errorf("querying samples: %w", err)
		return
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var ts int64
		var band, material string
		var sample wifi.Sample

		if err = rows.Scan(&ts, &band, &material, &sample.RSSI, &sample.Noise, &sample.SNR); err != nil {
			err = fmt.Errorf("scanning sample: %w", err)
			return
		}

		sample.Timestamp = fromMicros(ts)
		sample.Band = wifi.Band(band)
		sample.Material = wifi.Material(material)
		samples = append(samples, sample)
	}
	if err = rows.Err(); err != nil {
		err = fmt.Errorf("iterating samples: %w", err)
	}
	return
}

func (s *SqliteStore) SampleCount(ctx context.Context, sessionID int64) (n int64, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	if err = db.QueryRowContext(ctx, countSamplesSQL, sessionID).Scan(&n); err != nil {
		err = fmt.Errorf("counting samples: %w", err)
	}
	return
}

func (s *SqliteStore) Events(ctx context.Context, sessionID int64) (events []Event, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	rows, err := db.QueryContext(ctx, selectEventsSQL, sessionID)
	if err != nil {
		err = fmt.Errorf("querying events: %w", err)
		return
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var ts int64
		var kind string
		var value sql.NullString

		if err = rows.Scan(&ts, &kind, &value); err != nil {
			err = fmt.Errorf("scanning event: %w", err)
			return
		}

		events = append(events, Event{
			Timestamp: fromMicros(ts),
			Kind:      EventKind(kind),
			Value:     value.String,
		})
	}
	if err = rows.Err(); err != nil {
		err = fmt.Errorf("iterating events: %w", err)
	}
	return
}

func (s *SqliteStore) Close() error {
	s.closeOnce.Do(func() {
		var writeErr, readErr error

		if s.writeDB != nil {
			writeErr = s.writeDB.Close()
			s.writeDB = nil
		}

		if s.readDB != nil {
			readErr = s.readDB.Close()
			s.readDB = nil
		}

		s.closeErr = errors.Join(writeErr, readErr)
	})

	return s.closeErr
}
