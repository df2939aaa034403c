package transit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"novaroute.dev/transitrouter/internal/appconf"
	"novaroute.dev/transitrouter/transitdb"
)

// newFixtureClient seeds an in-memory merged transit store with a small
// synthetic multi-agency fixture spanning CP (national rail), CMet
// (Lisbon-area bus) and STCP (Porto bus), enough to exercise the schedule service, spatial
// index and router end to end without a real feed.
func newFixtureClient(t *testing.T) *transitdb.Client {
	t.Helper()

	client, err := transitdb.NewClient(transitdb.NewConfig(":memory:", appconf.Test, false))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	q := client.Queries

	stops := []transitdb.Stop{
		{ID: "cmet_comercio", Name: "Praça do Comércio", Lat: 38.7076, Lon: -9.1365},
		{ID: "cmet_cais_sodre", Name: "Cais do Sodré", Lat: 38.7061, Lon: -9.1456},
		{ID: "cp_oriente", Name: "Lisboa - Oriente", Lat: 38.7677, Lon: -9.0994},
		{ID: "cp_campanha", Name: "Porto - Campanhã", Lat: 41.1496, Lon: -8.5850},
		{ID: "stcp_aliados", Name: "Aliados", Lat: 41.1495, Lon: -8.6108},
		{ID: "stcp_bolhao", Name: "Bolhão", Lat: 41.1650, Lon: -8.6000},
		{ID: "cmet_evora_a", Name: "Évora - Giraldo", Lat: 38.5667, Lon: -7.9000},
		{ID: "cmet_evora_b", Name: "Évora - Estação", Lat: 38.5667, Lon: -7.8650},
		{ID: "cmet_night_a", Name: "Marvila", Lat: 38.5200, Lon: -7.5000},
		{ID: "cmet_night_b", Name: "Marvila - Terminal", Lat: 38.5260, Lon: -7.4700},
	}
	for _, s := range stops {
		require.NoError(t, q.CreateStop(ctx, s))
	}

	require.NoError(t, q.CreateRoute(ctx, transitdb.Route{ID: "cmet_101", AgencyID: "cmet", ShortName: "101", RouteType: 3}))
	require.NoError(t, q.CreateRoute(ctx, transitdb.Route{ID: "cp_alfa", AgencyID: "cp", ShortName: "AP", RouteType: 2}))
	require.NoError(t, q.CreateRoute(ctx, transitdb.Route{ID: "stcp_200", AgencyID: "stcp", ShortName: "200", RouteType: 3}))
	require.NoError(t, q.CreateRoute(ctx, transitdb.Route{ID: "cmet_evora_line", AgencyID: "cmet", ShortName: "E1", RouteType: 3}))
	require.NoError(t, q.CreateRoute(ctx, transitdb.Route{ID: "cmet_night_line", AgencyID: "cmet", ShortName: "N1", RouteType: 3}))

	require.NoError(t, q.CreateCalendar(ctx, transitdb.CalendarRow{
		ServiceID: "weekday",
		Weekday:   [7]bool{true, true, true, true, true, false, false},
		StartDate: "20250101",
		EndDate:   "20261231",
	}))

	require.NoError(t, q.CreateTrip(ctx, transitdb.Trip{ID: "cmet_trip_1", RouteID: "cmet_101", ServiceID: "weekday", AgencyID: "cmet", Headsign: "Cais do Sodré"}, "0"))
	require.NoError(t, q.CreateTrip(ctx, transitdb.Trip{ID: "cp_trip_1", RouteID: "cp_alfa", ServiceID: "weekday", AgencyID: "cp", Headsign: "Porto"}, "0"))
	require.NoError(t, q.CreateTrip(ctx, transitdb.Trip{ID: "stcp_trip_1", RouteID: "stcp_200", ServiceID: "weekday", AgencyID: "stcp", Headsign: "Bolhão"}, "0"))
	require.NoError(t, q.CreateTrip(ctx, transitdb.Trip{ID: "cmet_evora_trip", RouteID: "cmet_evora_line", ServiceID: "weekday", AgencyID: "cmet", Headsign: "Évora Estação"}, "0"))
	require.NoError(t, q.CreateTrip(ctx, transitdb.Trip{ID: "cmet_night_trip", RouteID: "cmet_night_line", ServiceID: "weekday", AgencyID: "cmet", Headsign: "Marvila Terminal"}, "0"))

	require.NoError(t, q.CreateStopTime(ctx, transitdb.StopTime{TripID: "cmet_trip_1", StopID: "cmet_comercio", ArrivalTime: "08:05:00", DepartureTime: "08:05:00", StopSequence: 0}))
	require.NoError(t, q.CreateStopTime(ctx, transitdb.StopTime{TripID: "cmet_trip_1", StopID: "cmet_cais_sodre", ArrivalTime: "08:15:00", DepartureTime: "08:15:00", StopSequence: 1}))

	require.NoError(t, q.CreateStopTime(ctx, transitdb.StopTime{TripID: "cp_trip_1", StopID: "cp_oriente", ArrivalTime: "08:30:00", DepartureTime: "08:30:00", StopSequence: 0}))
	require.NoError(t, q.CreateStopTime(ctx, transitdb.StopTime{TripID: "cp_trip_1", StopID: "cp_campanha", ArrivalTime: "11:10:00", DepartureTime: "11:10:00", StopSequence: 1}))

	// Local Porto STCP hop, far enough apart (≈1.9km) to exceed both
	// MaxWalkRadiusM and MaxOriginRadiusM/MaxDestRadiusM, so reaching
	// stcp_bolhao from stcp_aliados requires actually riding the bus
	// rather than a direct walk edge from the query coordinate.
	require.NoError(t, q.CreateStopTime(ctx, transitdb.StopTime{TripID: "stcp_trip_1", StopID: "stcp_aliados", ArrivalTime: "09:00:00", DepartureTime: "09:00:00", StopSequence: 0}))
	require.NoError(t, q.CreateStopTime(ctx, transitdb.StopTime{TripID: "stcp_trip_1", StopID: "stcp_bolhao", ArrivalTime: "09:10:00", DepartureTime: "09:10:00", StopSequence: 1}))

	// A single late-morning departure (10:30), far outside the first
	// 120-minute departure window a search starting at 08:00 considers,
	// exercising Router.Route's retry-with-later-departure loop. The two
	// stops sit ~3km apart, past every walk/transfer radius, so the bus
	// is the only way between them.
	require.NoError(t, q.CreateStopTime(ctx, transitdb.StopTime{TripID: "cmet_evora_trip", StopID: "cmet_evora_a", ArrivalTime: "10:30:00", DepartureTime: "10:30:00", StopSequence: 0}))
	require.NoError(t, q.CreateStopTime(ctx, transitdb.StopTime{TripID: "cmet_evora_trip", StopID: "cmet_evora_b", ArrivalTime: "10:50:00", DepartureTime: "10:50:00", StopSequence: 1}))

	// An early-morning (00:20) departure attributed to the next calendar
	// date's service, reachable only by a traveller already waiting past
	// 22:00 — exercises the overnight-rollover expansion in
	// expandBoardAndRide/OvernightDepartures. The ride's arrival is
	// encoded past the 24-hour mark so it lands on the same shifted
	// (+1440) timeline as the rolled-over departure.
	require.NoError(t, q.CreateStopTime(ctx, transitdb.StopTime{TripID: "cmet_night_trip", StopID: "cmet_night_a", ArrivalTime: "00:20:00", DepartureTime: "00:20:00", StopSequence: 0}))
	require.NoError(t, q.CreateStopTime(ctx, transitdb.StopTime{TripID: "cmet_night_trip", StopID: "cmet_night_b", ArrivalTime: "24:45:00", DepartureTime: "24:45:00", StopSequence: 1}))

	return client
}

// Monday 2026-03-02, within the "weekday" service's calendar window.
const fixtureMonday = "20260302"

// newEmptyClient returns an in-memory store with schema but no rows, for
// tests of empty-store edge cases.
func newEmptyClient(t *testing.T) *transitdb.Client {
	t.Helper()
	client, err := transitdb.NewClient(transitdb.NewConfig(":memory:", appconf.Test, false))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}
