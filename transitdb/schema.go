package transitdb

import (
	"database/sql"
	"fmt"
)

// schemaStatements creates the merged-store tables if they are absent (a
// brand-new :memory: store in tests) and is a no-op against a store already
// produced by the offline ingest job, since CREATE TABLE IF NOT EXISTS never
// touches existing data.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS stops (
		stop_id  TEXT PRIMARY KEY,
		stop_name TEXT,
		stop_lat REAL,
		stop_lon REAL
	)`,
	`CREATE TABLE IF NOT EXISTS routes (
		route_id TEXT PRIMARY KEY,
		agency_id TEXT,
		route_short_name TEXT,
		route_long_name TEXT,
		route_type INTEGER,
		route_color TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS trips (
		trip_id TEXT PRIMARY KEY,
		route_id TEXT,
		service_id TEXT,
		agency_id TEXT,
		trip_headsign TEXT,
		direction_id TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS stop_times (
		trip_id TEXT,
		stop_id TEXT,
		arrival_time TEXT,
		departure_time TEXT,
		stop_sequence INTEGER
	)`,
	`CREATE TABLE IF NOT EXISTS calendar (
		service_id TEXT PRIMARY KEY,
		monday INTEGER, tuesday INTEGER, wednesday INTEGER, thursday INTEGER,
		friday INTEGER, saturday INTEGER, sunday INTEGER,
		start_date TEXT, end_date TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS calendar_dates (
		service_id TEXT,
		date TEXT,
		exception_type INTEGER
	)`,
}

// requiredIndexes mirrors the "Required indexes for acceptable performance"
// list the merged-store schema calls for. Creating them is safe against an
// already-indexed production store (IF NOT EXISTS) and necessary for the
// in-memory stores used in tests.
var requiredIndexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_stop_times_stop_departure ON stop_times(stop_id, departure_time)`,
	`CREATE INDEX IF NOT EXISTS idx_stop_times_trip ON stop_times(trip_id)`,
	`CREATE INDEX IF NOT EXISTS idx_trips_service ON trips(service_id)`,
	`CREATE INDEX IF NOT EXISTS idx_calendar_service ON calendar(service_id)`,
	`CREATE INDEX IF NOT EXISTS idx_calendar_dates_service ON calendar_dates(service_id)`,
}

func ensureSchema(db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("transitdb: ensure schema: %w", err)
		}
	}
	for _, stmt := range requiredIndexes {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("transitdb: ensure indexes: %w", err)
		}
	}
	return nil
}
