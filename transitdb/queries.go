package transitdb

import (
	"context"
	"database/sql"
	"fmt"
)

// Queries is a hand-written collection of query methods over the merged
// transit store, following the raw-SQL-constant-plus-typed-Scan style
// used elsewhere in this module rather than a duck-typed row reader.
type Queries struct {
	db *sql.DB
}

// New wraps db in a Queries value. It performs no I/O.
func New(db *sql.DB) *Queries {
	return &Queries{db: db}
}

const selectAllStops = `SELECT stop_id, stop_name, stop_lat, stop_lon FROM stops`

// AllStops returns every stop in the store, in no particular order. The
// spatial index calls this exactly once, at load.
func (q *Queries) AllStops(ctx context.Context) ([]Stop, error) {
	rows, err := q.db.QueryContext(ctx, selectAllStops)
	if err != nil {
		return nil, fmt.Errorf("transitdb: all stops: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var stops []Stop
	for rows.Next() {
		var s Stop
		var name sql.NullString
		if err := rows.Scan(&s.ID, &name, &s.Lat, &s.Lon); err != nil {
			return nil, fmt.Errorf("transitdb: scan stop: %w", err)
		}
		s.Name = name.String
		stops = append(stops, s)
	}
	return stops, rows.Err()
}

const selectStopByID = `SELECT stop_id, stop_name, stop_lat, stop_lon FROM stops WHERE stop_id = ?`

// GetStop fetches a single stop by id. Returns sql.ErrNoRows when absent.
func (q *Queries) GetStop(ctx context.Context, stopID string) (Stop, error) {
	var s Stop
	var name sql.NullString
	row := q.db.QueryRowContext(ctx, selectStopByID, stopID)
	if err := row.Scan(&s.ID, &name, &s.Lat, &s.Lon); err != nil {
		return Stop{}, err
	}
	s.Name = name.String
	return s, nil
}

const selectCreateStop = `INSERT INTO stops (stop_id, stop_name, stop_lat, stop_lon) VALUES (?, ?, ?, ?)`

// CreateStop inserts a single stop row. Exercised only by tests seeding a
// synthetic in-memory fixture; the production store is populated entirely
// by the offline ingest job.
func (q *Queries) CreateStop(ctx context.Context, s Stop) error {
	_, err := q.db.ExecContext(ctx, selectCreateStop, s.ID, s.Name, s.Lat, s.Lon)
	if err != nil {
		return fmt.Errorf("transitdb: create stop: %w", err)
	}
	return nil
}

const selectCreateRoute = `INSERT INTO routes (route_id, agency_id, route_short_name, route_long_name, route_type, route_color) VALUES (?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateRoute(ctx context.Context, r Route) error {
	_, err := q.db.ExecContext(ctx, selectCreateRoute, r.ID, r.AgencyID, r.ShortName, r.LongName, r.RouteType, r.Color)
	if err != nil {
		return fmt.Errorf("transitdb: create route: %w", err)
	}
	return nil
}

const selectCreateTrip = `INSERT INTO trips (trip_id, route_id, service_id, agency_id, trip_headsign, direction_id) VALUES (?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateTrip(ctx context.Context, t Trip, directionID string) error {
	_, err := q.db.ExecContext(ctx, selectCreateTrip, t.ID, t.RouteID, t.ServiceID, t.AgencyID, t.Headsign, directionID)
	if err != nil {
		return fmt.Errorf("transitdb: create trip: %w", err)
	}
	return nil
}

const selectCreateStopTime = `INSERT INTO stop_times (trip_id, stop_id, arrival_time, departure_time, stop_sequence) VALUES (?, ?, ?, ?, ?)`

func (q *Queries) CreateStopTime(ctx context.Context, st StopTime) error {
	_, err := q.db.ExecContext(ctx, selectCreateStopTime, st.TripID, st.StopID, st.ArrivalTime, st.DepartureTime, st.StopSequence)
	if err != nil {
		return fmt.Errorf("transitdb: create stop_time: %w", err)
	}
	return nil
}

const selectCreateCalendar = `INSERT INTO calendar (service_id, monday, tuesday, wednesday, thursday, friday, saturday, sunday, start_date, end_date) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateCalendar(ctx context.Context, c CalendarRow) error {
	_, err := q.db.ExecContext(ctx, selectCreateCalendar, c.ServiceID,
		boolToInt(c.Weekday[0]), boolToInt(c.Weekday[1]), boolToInt(c.Weekday[2]),
		boolToInt(c.Weekday[3]), boolToInt(c.Weekday[4]), boolToInt(c.Weekday[5]),
		boolToInt(c.Weekday[6]), c.StartDate, c.EndDate)
	if err != nil {
		return fmt.Errorf("transitdb: create calendar: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

const selectCreateCalendarDate = `INSERT INTO calendar_dates (service_id, date, exception_type) VALUES (?, ?, ?)`

func (q *Queries) CreateCalendarException(ctx context.Context, e CalendarException) error {
	_, err := q.db.ExecContext(ctx, selectCreateCalendarDate, e.ServiceID, e.Date, e.ExceptionType)
	if err != nil {
		return fmt.Errorf("transitdb: create calendar_dates: %w", err)
	}
	return nil
}

const selectCalendarAll = `SELECT service_id, monday, tuesday, wednesday, thursday, friday, saturday, sunday, start_date, end_date FROM calendar`

// AllCalendar returns every row of the regular calendar table.
func (q *Queries) AllCalendar(ctx context.Context) ([]CalendarRow, error) {
	rows, err := q.db.QueryContext(ctx, selectCalendarAll)
	if err != nil {
		return nil, fmt.Errorf("transitdb: all calendar: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []CalendarRow
	for rows.Next() {
		var c CalendarRow
		var mon, tue, wed, thu, fri, sat, sun int
		if err := rows.Scan(&c.ServiceID, &mon, &tue, &wed, &thu, &fri, &sat, &sun, &c.StartDate, &c.EndDate); err != nil {
			return nil, fmt.Errorf("transitdb: scan calendar: %w", err)
		}
		c.Weekday = [7]bool{mon != 0, tue != 0, wed != 0, thu != 0, fri != 0, sat != 0, sun != 0}
		out = append(out, c)
	}
	return out, rows.Err()
}

const selectCalendarExceptionsForDate = `SELECT service_id, date, exception_type FROM calendar_dates WHERE date = ?`

// CalendarExceptionsForDate returns every calendar_dates row for the given
// YYYYMMDD date.
func (q *Queries) CalendarExceptionsForDate(ctx context.Context, date string) ([]CalendarException, error) {
	rows, err := q.db.QueryContext(ctx, selectCalendarExceptionsForDate, date)
	if err != nil {
		return nil, fmt.Errorf("transitdb: calendar exceptions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []CalendarException
	for rows.Next() {
		var e CalendarException
		if err := rows.Scan(&e.ServiceID, &e.Date, &e.ExceptionType); err != nil {
			return nil, fmt.Errorf("transitdb: scan calendar_dates: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

const selectDistinctTripServiceIDs = `SELECT DISTINCT service_id FROM trips`

// DistinctTripServiceIDs returns every service id referenced by at least
// one trip — the candidate set for computing "uncalendared" services.
func (q *Queries) DistinctTripServiceIDs(ctx context.Context) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, selectDistinctTripServiceIDs)
	if err != nil {
		return nil, fmt.Errorf("transitdb: distinct trip service ids: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("transitdb: scan service id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

const selectDistinctCalendarDateServiceIDs = `SELECT DISTINCT service_id FROM calendar_dates`

// DistinctCalendarDateServiceIDs returns every service id referenced by at
// least one calendar_dates row, used alongside DistinctTripServiceIDs and
// AllCalendar to compute the "uncalendared" service set.
func (q *Queries) DistinctCalendarDateServiceIDs(ctx context.Context) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, selectDistinctCalendarDateServiceIDs)
	if err != nil {
		return nil, fmt.Errorf("transitdb: distinct calendar_dates service ids: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("transitdb: scan service id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

const selectTripMeta = `
SELECT t.route_id, t.agency_id, t.trip_headsign, t.service_id, COALESCE(r.route_type, 3)
FROM trips t
LEFT JOIN routes r ON r.route_id = t.route_id
WHERE t.trip_id = ?`

// TripMeta joins trips to routes for a single trip id, defaulting
// route_type to 3 (bus) when the route row is absent.
func (q *Queries) TripMeta(ctx context.Context, tripID string) (TripMeta, error) {
	var m TripMeta
	var headsign sql.NullString
	row := q.db.QueryRowContext(ctx, selectTripMeta, tripID)
	if err := row.Scan(&m.RouteID, &m.AgencyID, &headsign, &m.ServiceID, &m.RouteType); err != nil {
		return TripMeta{}, err
	}
	m.Headsign = headsign.String
	return m, nil
}

const selectTripStops = `
SELECT stop_id, arrival_time, departure_time, stop_sequence
FROM stop_times
WHERE trip_id = ?
ORDER BY stop_sequence ASC`

// TripStops returns the full, ordered stop sequence for a trip. The
// schedule service fetches this once per trip id and caches it.
func (q *Queries) TripStops(ctx context.Context, tripID string) ([]StopTime, error) {
	rows, err := q.db.QueryContext(ctx, selectTripStops, tripID)
	if err != nil {
		return nil, fmt.Errorf("transitdb: trip stops: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []StopTime
	for rows.Next() {
		st := StopTime{TripID: tripID}
		if err := rows.Scan(&st.StopID, &st.ArrivalTime, &st.DepartureTime, &st.StopSequence); err != nil {
			return nil, fmt.Errorf("transitdb: scan stop_time: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

const selectDeparturesInWindow = `
SELECT st.trip_id, st.stop_id, st.departure_time, st.stop_sequence, t.service_id
FROM stop_times st
JOIN trips t ON t.trip_id = st.trip_id
WHERE st.stop_id = ? AND st.departure_time >= ? AND st.departure_time <= ?
ORDER BY st.departure_time ASC
LIMIT ?`

// departureRow is the raw join row behind DeparturesInWindow, before
// service-validity filtering and dedup are applied by the schedule service.
type departureRow struct {
	TripID        string
	StopID        string
	DepartureTime string
	StopSequence  int
	ServiceID     string
}

// DeparturesInWindow returns up to sampleLimit stop_times joined to their
// trip's service id, ordered by departure time, for departures at stopID
// whose literal "HH:MM:SS" departure_time falls lexicographically within
// [afterTime, beforeTime]. The schedule service is responsible for
// oversampling (sampleLimit > requested limit) and for filtering by
// valid_services(date) and deduplicating by trip id afterward.
func (q *Queries) DeparturesInWindow(ctx context.Context, stopID, afterTime, beforeTime string, sampleLimit int) ([]departureRow, error) {
	rows, err := q.db.QueryContext(ctx, selectDeparturesInWindow, stopID, afterTime, beforeTime, sampleLimit)
	if err != nil {
		return nil, fmt.Errorf("transitdb: departures in window: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []departureRow
	for rows.Next() {
		var d departureRow
		if err := rows.Scan(&d.TripID, &d.StopID, &d.DepartureTime, &d.StopSequence, &d.ServiceID); err != nil {
			return nil, fmt.Errorf("transitdb: scan departure: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

const selectDataDateRange = `SELECT MIN(start_date), MAX(end_date) FROM calendar`

// DataDateRange returns the earliest calendar start_date and latest
// end_date across the regular calendar table. Both return values are
// empty strings when the calendar table has no rows.
func (q *Queries) DataDateRange(ctx context.Context) (earliest, latest string, err error) {
	var minStart, maxEnd sql.NullString
	row := q.db.QueryRowContext(ctx, selectDataDateRange)
	if err := row.Scan(&minStart, &maxEnd); err != nil {
		return "", "", fmt.Errorf("transitdb: data date range: %w", err)
	}
	return minStart.String, maxEnd.String, nil
}
