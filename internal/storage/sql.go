package storage

import (
	_ "embed"
)

//go:embed schema.sql
var initSchemaSQL string

const (
	insertSessionSQL = `
INSERT INTO sessions (started_at,
                      config)
VALUES (?, ?)`

	selectSessionSQL = `
SELECT 
    id, 
    started_at, 
    config 
FROM sessions 
WHERE 
    id = ?`

	insertSampleSQL = `
INSERT INTO samples (session_id,
                     timestamp,
                     band,
                     material,
                     rssi,
                     noise,
                     snr)
VALUES (?, ?, ?, ?, ?, ?, ?)`

	selectSamplesSQL = `
SELECT 
    timestamp, 
    band, 
    material, 
    rssi, 
    noise, 
    snr
FROM samples
WHERE 
    session_id = ?
ORDER BY timestamp, id`

	countSamplesSQL = `
SELECT COUNT(*) FROM samples WHERE session_id = ?`

	insertEventSQL = `
INSERT INTO events (session_id,
                    timestamp,
                    kind,
                    value)
VALUES (?, ?, ?, ?)`

	selectEventsSQL = `
SELECT 
    timestamp, 
    kind, 
    value
FROM events
WHERE 
    session_id = ?
ORDER BY timestamp, id`
)
