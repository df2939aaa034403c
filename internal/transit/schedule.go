package transit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"novaroute.dev/transitrouter/transitdb"
)

const (
	// departureWindowMinutes is the width of the [after, after+window]
	// departure-time slice fetched per call.
	departureWindowMinutes = 120
	// departureOversampleFactor guards against date-based filtering
	// dropping every row inside the naive limit.
	departureOversampleFactor = 5
	// overnightStartMinutes (22:00) is the threshold past which the
	// schedule service also consults next-day early-morning departures.
	overnightStartMinutes = 22 * 60
	// overnightCutoffMinutes (06:00) bounds how early a next-day
	// departure may be to still count as a rollover continuation.
	overnightCutoffMinutes = 6 * 60
	// minutesPerDay shifts next-day departures so they sort after every
	// same-day time.
	minutesPerDay = 1440
)

// Schedule is the schedule service: it translates stop/trip/calendar
// queries against transitdb into typed records and maintains per-process
// caches for trip metadata, trip stop sequences, valid-services-per-date
// and the uncalendared-service set. The per-key caches are sync.Map rather
// than a mutex-guarded map because each is grow-only and
// read-or-insert-once per key; the uncalendared set is computed once under
// a sync.Once. No entry is ever mutated or evicted individually — only
// ClearCache drops them, all at once.
type Schedule struct {
	queries *transitdb.Queries
	log     *slog.Logger

	tripMeta      sync.Map // trip_id -> transitdb.TripMeta
	tripStops     sync.Map // trip_id -> []TripStopEntry
	validServices sync.Map // YYYYMMDD -> map[string]struct{}

	uncalendaredOnce sync.Once
	uncalendared     map[string]struct{}
	uncalendaredErr  error
}

// NewSchedule builds a schedule service over queries. It performs no I/O
// until first use.
func NewSchedule(queries *transitdb.Queries) *Schedule {
	return &Schedule{
		queries: queries,
		log:     slog.Default().With(slog.String("component", "schedule")),
	}
}

// ClearCache drops every in-memory cache, forcing the next call to each
// operation to re-query the store.
func (s *Schedule) ClearCache() {
	s.tripMeta = sync.Map{}
	s.tripStops = sync.Map{}
	s.validServices = sync.Map{}
	s.uncalendaredOnce = sync.Once{}
	s.uncalendared = nil
	s.uncalendaredErr = nil
}

func (s *Schedule) uncalendaredServices(ctx context.Context) (map[string]struct{}, error) {
	s.uncalendaredOnce.Do(func() {
		calendared := make(map[string]struct{})

		calendar, err := s.queries.AllCalendar(ctx)
		if err != nil {
			s.uncalendaredErr = fmt.Errorf("transit: uncalendared services: %w", err)
			return
		}
		for _, c := range calendar {
			calendared[c.ServiceID] = struct{}{}
		}

		exceptionIDs, err := s.queries.DistinctCalendarDateServiceIDs(ctx)
		if err != nil {
			s.uncalendaredErr = fmt.Errorf("transit: uncalendared services: %w", err)
			return
		}
		for _, id := range exceptionIDs {
			calendared[id] = struct{}{}
		}

		tripServiceIDs, err := s.queries.DistinctTripServiceIDs(ctx)
		if err != nil {
			s.uncalendaredErr = fmt.Errorf("transit: uncalendared services: %w", err)
			return
		}

		uncal := make(map[string]struct{})
		for _, id := range tripServiceIDs {
			if _, found := calendared[id]; !found {
				uncal[id] = struct{}{}
			}
		}
		s.uncalendared = uncal
	})
	return s.uncalendared, s.uncalendaredErr
}

// ValidServices returns the set of service ids active on date (formatted
// YYYYMMDD), computed once per date and cached thereafter.
func (s *Schedule) ValidServices(ctx context.Context, date string) (map[string]struct{}, error) {
	if cached, ok := s.validServices.Load(date); ok {
		return cached.(map[string]struct{}), nil
	}

	parsed, err := time.Parse("20060102", date)
	if err != nil {
		return nil, fmt.Errorf("transit: valid services: parse date %q: %w", date, err)
	}
	weekdayIdx := mondayFirstWeekday(parsed.Weekday())

	calendar, err := s.queries.AllCalendar(ctx)
	if err != nil {
		return nil, fmt.Errorf("transit: valid services: %w", err)
	}

	active := make(map[string]struct{})
	for _, c := range calendar {
		if c.Weekday[weekdayIdx] && c.StartDate <= date && date <= c.EndDate {
			active[c.ServiceID] = struct{}{}
		}
	}

	exceptions, err := s.queries.CalendarExceptionsForDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("transit: valid services: %w", err)
	}
	for _, e := range exceptions {
		switch e.ExceptionType {
		case 1:
			active[e.ServiceID] = struct{}{}
		case 2:
			delete(active, e.ServiceID)
		}
	}

	uncal, err := s.uncalendaredServices(ctx)
	if err != nil {
		return nil, err
	}
	for id := range uncal {
		active[id] = struct{}{}
	}

	s.validServices.Store(date, active)
	return active, nil
}

// mondayFirstWeekday converts Go's Sunday=0 weekday into the calendar
// table's Monday=0...Sunday=6 indexing.
func mondayFirstWeekday(w time.Weekday) int {
	return (int(w) + 6) % 7
}

// TripMeta returns the (route, agency, headsign, route type) quadruple for
// tripID, joining trips to routes and defaulting route_type to 3 (bus)
// when the route row is missing. The trip→service mapping surfaces as
// TripMeta.ServiceID and is cached as a side effect.
func (s *Schedule) TripMeta(ctx context.Context, tripID string) (transitdb.TripMeta, error) {
	if cached, ok := s.tripMeta.Load(tripID); ok {
		return cached.(transitdb.TripMeta), nil
	}

	meta, err := s.queries.TripMeta(ctx, tripID)
	if err != nil {
		return transitdb.TripMeta{}, err
	}

	s.tripMeta.Store(tripID, meta)
	return meta, nil
}

// Departures returns up to limit upcoming departures from stopID whose
// departure time lies in [afterMinutes, afterMinutes+120], restricted to
// services valid on date and deduplicated one departure per trip id.
// Results are never cached since the time window shifts on every call.
func (s *Schedule) Departures(ctx context.Context, stopID string, afterMinutes float64, limit int, date string) ([]Departure, error) {
	valid, err := s.ValidServices(ctx, date)
	if err != nil {
		return nil, err
	}

	deps, err := s.departuresInMinuteWindow(ctx, stopID, afterMinutes, afterMinutes+departureWindowMinutes, limit, valid)
	if err != nil {
		return nil, err
	}
	return deps, nil
}

// OvernightDepartures returns next-day early-morning departures (before
// 06:00 on the day after date) shifted by +1440 minutes so they sort after
// same-day times; the caller appends them to its same-day list. This
// exposes the rollover rule as a first-class, independently testable
// transformation rather than ad-hoc mutation of the departure list.
// Callers should invoke this only when the query time is at or past
// overnightStartMinutes (22:00), per the router's overnight rule.
func (s *Schedule) OvernightDepartures(ctx context.Context, stopID string, limit int, date string) ([]Departure, error) {
	nextDate, err := addDays(date, 1)
	if err != nil {
		return nil, err
	}

	validNextDay, err := s.ValidServices(ctx, nextDate)
	if err != nil {
		return nil, err
	}

	deps, err := s.departuresInMinuteWindow(ctx, stopID, 0, overnightCutoffMinutes, limit, validNextDay)
	if err != nil {
		return nil, err
	}

	shifted := make([]Departure, len(deps))
	for i, d := range deps {
		d.DepartureMinutes += minutesPerDay
		shifted[i] = d
	}
	return shifted, nil
}

func addDays(date string, days int) (string, error) {
	t, err := time.Parse("20060102", date)
	if err != nil {
		return "", fmt.Errorf("transit: add days: parse date %q: %w", date, err)
	}
	return t.AddDate(0, 0, days).Format("20060102"), nil
}

func (s *Schedule) departuresInMinuteWindow(ctx context.Context, stopID string, afterMinutes, beforeMinutes float64, limit int, valid map[string]struct{}) ([]Departure, error) {
	afterTime := minutesToClock(afterMinutes)
	beforeTime := minutesToClock(beforeMinutes)
	sampleLimit := limit * departureOversampleFactor

	rows, err := s.queries.DeparturesInWindow(ctx, stopID, afterTime, beforeTime, sampleLimit)
	if err != nil {
		return nil, fmt.Errorf("transit: departures: %w", err)
	}

	seenTrips := make(map[string]struct{}, len(rows))
	out := make([]Departure, 0, limit)
	for _, row := range rows {
		if len(out) >= limit {
			break
		}
		if _, ok := valid[row.ServiceID]; !ok {
			continue
		}
		if _, dup := seenTrips[row.TripID]; dup {
			continue
		}

		parsed := ParseGTFSTime(row.DepartureTime)
		if !parsed.OK {
			s.log.Info("dropping departure with unparseable time", slog.String("trip_id", row.TripID))
			continue
		}

		meta, err := s.TripMeta(ctx, row.TripID)
		if err != nil {
			s.log.Info("dropping departure with missing trip metadata", slog.String("trip_id", row.TripID))
			continue
		}

		seenTrips[row.TripID] = struct{}{}
		out = append(out, Departure{
			TripID:           row.TripID,
			StopID:           row.StopID,
			DepartureTime:    row.DepartureTime,
			DepartureMinutes: parsed.Minutes,
			StopSequence:     row.StopSequence,
			RouteID:          meta.RouteID,
			AgencyID:         meta.AgencyID,
			Headsign:         meta.Headsign,
			RouteType:        meta.RouteType,
		})
	}
	return out, nil
}

// minutesToClock renders a minutes-since-midnight value (which may exceed
// 1440, or be negative for a next-day window starting at 0) as the
// "HH:MM:SS" lexicographic form stop_times.departure_time is stored in,
// clamped to a sane non-negative range so the SQL comparison stays valid.
func minutesToClock(m float64) string {
	if m < 0 {
		m = 0
	}
	total := int(m * 60) // seconds
	h := total / 3600
	mi := (total % 3600) / 60
	sec := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, mi, sec)
}

// TripStopsAfter returns the ordered TripStopEntries for tripID whose
// stop-sequence strictly exceeds afterSequence. The full per-trip stop
// list is fetched once and cached; this call slices the cached copy.
func (s *Schedule) TripStopsAfter(ctx context.Context, tripID string, afterSequence int) ([]TripStopEntry, error) {
	all, err := s.tripStopsCached(ctx, tripID)
	if err != nil {
		return nil, err
	}

	out := make([]TripStopEntry, 0, len(all))
	for _, e := range all {
		if e.StopSequence > afterSequence {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *Schedule) tripStopsCached(ctx context.Context, tripID string) ([]TripStopEntry, error) {
	if cached, ok := s.tripStops.Load(tripID); ok {
		return cached.([]TripStopEntry), nil
	}

	rows, err := s.queries.TripStops(ctx, tripID)
	if err != nil {
		return nil, fmt.Errorf("transit: trip stops: %w", err)
	}

	entries := make([]TripStopEntry, 0, len(rows))
	for _, row := range rows {
		parsed := ParseGTFSTime(row.ArrivalTime)
		if !parsed.OK {
			s.log.Info("dropping trip stop with unparseable arrival time",
				slog.String("trip_id", tripID), slog.String("stop_id", row.StopID))
			continue
		}
		entries = append(entries, TripStopEntry{
			StopID:         row.StopID,
			ArrivalTime:    row.ArrivalTime,
			ArrivalMinutes: parsed.Minutes,
			StopSequence:   row.StopSequence,
		})
	}

	s.tripStops.Store(tripID, entries)
	return entries, nil
}

// DataDateRange returns the earliest calendar start_date and latest
// end_date present in the store, or ("unknown", "unknown") if the
// calendar table is empty.
func (s *Schedule) DataDateRange(ctx context.Context) (string, string, error) {
	earliest, latest, err := s.queries.DataDateRange(ctx)
	if err != nil {
		return "", "", err
	}
	if earliest == "" || latest == "" {
		return "unknown", "unknown", nil
	}
	return earliest, latest, nil
}
