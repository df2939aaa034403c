package transitdb

// Stop is one row of the stops table — a physical boarding point.
type Stop struct {
	ID   string
	Name string
	Lat  float64
	Lon  float64
}

// Trip is one row of the trips table, joined lazily against routes for
// route-level metadata where needed.
type Trip struct {
	ID        string
	RouteID   string
	ServiceID string
	AgencyID  string
	Headsign  string
}

// Route is one row of the routes table.
type Route struct {
	ID          string
	AgencyID    string
	ShortName   string
	LongName    string
	RouteType   int
	Color       string
}

// StopTime is one row of the stop_times table, as returned for a single
// stop's departure window or a single trip's full stop sequence.
type StopTime struct {
	TripID        string
	StopID        string
	ArrivalTime   string
	DepartureTime string
	StopSequence  int
}

// TripMeta is the denormalised (trips ⋈ routes) projection the schedule
// service needs to score a departure — route id, agency, headsign and
// GTFS route_type, with route_type defaulted to 3 (bus) when the route row
// is missing.
type TripMeta struct {
	RouteID   string
	AgencyID  string
	Headsign  string
	RouteType int
	ServiceID string
}

// CalendarRow is one row of the regular calendar table.
type CalendarRow struct {
	ServiceID string
	Weekday   [7]bool // Monday=0 ... Sunday=6
	StartDate string  // YYYYMMDD
	EndDate   string  // YYYYMMDD
}

// CalendarException is one row of calendar_dates.
type CalendarException struct {
	ServiceID     string
	Date          string // YYYYMMDD
	ExceptionType int    // 1 = add, 2 = remove
}
