package transitdb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"novaroute.dev/transitrouter/internal/appconf"
)

// seedClient builds an in-memory store with a small synthetic multi-agency
// fixture: a two-stop CP trip (Lisboa to Porto) and a single-stop CMet trip.
func seedClient(t *testing.T) *Client {
	t.Helper()

	client, err := NewClient(Config{DBPath: ":memory:", Env: appconf.Test})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	q := client.Queries

	stops := []Stop{
		{ID: "cp_lisboa", Name: "Lisboa - Santa Apolónia", Lat: 38.7170, Lon: -9.1226},
		{ID: "cp_porto", Name: "Porto - Campanhã", Lat: 41.1496, Lon: -8.5850},
		{ID: "cmet_origin", Name: "Praça do Comércio", Lat: 38.7076, Lon: -9.1365},
	}
	for _, s := range stops {
		require.NoError(t, q.CreateStop(ctx, s))
	}

	require.NoError(t, q.CreateRoute(ctx, Route{ID: "cp_alfa", AgencyID: "cp", ShortName: "AP", LongName: "Alfa Pendular", RouteType: 2}))
	require.NoError(t, q.CreateRoute(ctx, Route{ID: "cmet_101", AgencyID: "cmet", ShortName: "101", LongName: "Linha 101", RouteType: 3}))

	require.NoError(t, q.CreateCalendar(ctx, CalendarRow{
		ServiceID: "weekday",
		Weekday:   [7]bool{true, true, true, true, true, false, false},
		StartDate: "20250101",
		EndDate:   "20251231",
	}))

	require.NoError(t, q.CreateTrip(ctx, Trip{ID: "cp_trip_1", RouteID: "cp_alfa", ServiceID: "weekday", AgencyID: "cp", Headsign: "Porto"}, "0"))
	require.NoError(t, q.CreateTrip(ctx, Trip{ID: "cmet_trip_1", RouteID: "cmet_101", ServiceID: "weekday", AgencyID: "cmet", Headsign: "Comércio"}, "0"))

	require.NoError(t, q.CreateStopTime(ctx, StopTime{TripID: "cp_trip_1", StopID: "cp_lisboa", ArrivalTime: "08:00:00", DepartureTime: "08:00:00", StopSequence: 0}))
	require.NoError(t, q.CreateStopTime(ctx, StopTime{TripID: "cp_trip_1", StopID: "cp_porto", ArrivalTime: "10:40:00", DepartureTime: "10:40:00", StopSequence: 1}))
	require.NoError(t, q.CreateStopTime(ctx, StopTime{TripID: "cmet_trip_1", StopID: "cmet_origin", ArrivalTime: "08:05:00", DepartureTime: "08:05:00", StopSequence: 0}))

	return client
}

func TestQueries_AllStops(t *testing.T) {
	client := seedClient(t)

	stops, err := client.Queries.AllStops(context.Background())
	require.NoError(t, err)
	assert.Len(t, stops, 3)
}

func TestQueries_GetStop(t *testing.T) {
	client := seedClient(t)

	s, err := client.Queries.GetStop(context.Background(), "cp_lisboa")
	require.NoError(t, err)
	assert.Equal(t, "Lisboa - Santa Apolónia", s.Name)
	assert.InDelta(t, 38.7170, s.Lat, 0.0001)
}

func TestQueries_TripMeta(t *testing.T) {
	client := seedClient(t)

	m, err := client.Queries.TripMeta(context.Background(), "cp_trip_1")
	require.NoError(t, err)
	assert.Equal(t, "cp_alfa", m.RouteID)
	assert.Equal(t, "cp", m.AgencyID)
	assert.Equal(t, "Porto", m.Headsign)
	assert.Equal(t, 2, m.RouteType)
	assert.Equal(t, "weekday", m.ServiceID)
}

func TestQueries_TripMeta_DefaultsRouteType(t *testing.T) {
	client := seedClient(t)
	ctx := context.Background()

	require.NoError(t, client.Queries.CreateTrip(ctx, Trip{ID: "orphan_trip", RouteID: "no_such_route", ServiceID: "weekday", AgencyID: "cp"}, "0"))

	m, err := client.Queries.TripMeta(ctx, "orphan_trip")
	require.NoError(t, err)
	assert.Equal(t, 3, m.RouteType, "route_type should default to 3 (bus) when the route row is missing")
}

func TestQueries_TripStops(t *testing.T) {
	client := seedClient(t)

	stops, err := client.Queries.TripStops(context.Background(), "cp_trip_1")
	require.NoError(t, err)
	require.Len(t, stops, 2)
	assert.Equal(t, "cp_lisboa", stops[0].StopID)
	assert.Equal(t, "cp_porto", stops[1].StopID)
	assert.Less(t, stops[0].StopSequence, stops[1].StopSequence)
}

func TestQueries_DeparturesInWindow(t *testing.T) {
	client := seedClient(t)

	rows, err := client.Queries.DeparturesInWindow(context.Background(), "cp_lisboa", "07:00:00", "09:00:00", 25)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "cp_trip_1", rows[0].TripID)
	assert.Equal(t, "weekday", rows[0].ServiceID)
}

func TestQueries_DeparturesInWindow_OutsideRange(t *testing.T) {
	client := seedClient(t)

	rows, err := client.Queries.DeparturesInWindow(context.Background(), "cp_lisboa", "12:00:00", "13:00:00", 25)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestQueries_AllCalendar(t *testing.T) {
	client := seedClient(t)

	rows, err := client.Queries.AllCalendar(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "weekday", rows[0].ServiceID)
	assert.True(t, rows[0].Weekday[0], "Monday should be set")
	assert.False(t, rows[0].Weekday[5], "Saturday should be unset")
}

func TestQueries_DataDateRange(t *testing.T) {
	client := seedClient(t)

	earliest, latest, err := client.Queries.DataDateRange(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "20250101", earliest)
	assert.Equal(t, "20251231", latest)
}

func TestQueries_DataDateRange_Empty(t *testing.T) {
	client, err := NewClient(Config{DBPath: ":memory:", Env: appconf.Test})
	require.NoError(t, err)
	defer func() { _ = client.Close() }()

	earliest, latest, err := client.Queries.DataDateRange(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "", earliest)
	assert.Equal(t, "", latest)
}

func TestQueries_DistinctTripServiceIDs(t *testing.T) {
	client := seedClient(t)

	ids, err := client.Queries.DistinctTripServiceIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"weekday"}, ids)
}

func TestQueries_CalendarExceptionsForDate(t *testing.T) {
	client := seedClient(t)
	ctx := context.Background()

	require.NoError(t, client.Queries.CreateCalendarException(ctx, CalendarException{ServiceID: "weekday", Date: "20251225", ExceptionType: 2}))

	rows, err := client.Queries.CalendarExceptionsForDate(ctx, "20251225")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 2, rows[0].ExceptionType)
}

func TestTableCounts(t *testing.T) {
	client := seedClient(t)

	counts, err := client.TableCounts()
	require.NoError(t, err)
	assert.Equal(t, 3, counts["stops"])
	assert.Equal(t, 2, counts["trips"])
	assert.Equal(t, 3, counts["stop_times"])
	assert.Equal(t, 1, counts["calendar"])
}
