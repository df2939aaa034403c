package transit

import (
	"novaroute.dev/transitrouter/internal/models"
	"novaroute.dev/transitrouter/transitdb"
)

// Stop is the routing-domain view of a boarding point. Embedding
// transitdb.Stop promotes ID/Name/Lat/Lon directly; IsSynthetic marks the
// two endpoints the router fabricates for "Your location" and
// "Destination" rather than overloading the real stop-id space with
// magic ids, per the synthetic-endpoint redesign note.
type Stop struct {
	transitdb.Stop
	IsSynthetic bool
}

// LegMode is the wire alphabet for a RouteLeg's mode of travel.
type LegMode string

const (
	ModeWalk   LegMode = "WALK"
	ModeBus    LegMode = "BUS"
	ModeTrain  LegMode = "TRAIN"
	ModeTram   LegMode = "TRAM"
	ModeSubway LegMode = "SUBWAY"
)

// RouteTypeToMode maps a GTFS extended route_type to a leg mode, defaulting
// to BUS for anything unrecognised.
func RouteTypeToMode(routeType int) LegMode {
	switch {
	case routeType == 0 || routeType == 7 || routeType == 900:
		return ModeTram
	case routeType == 1 || routeType == 400:
		return ModeSubway
	case routeType == 2 || (routeType >= 100 && routeType <= 109):
		return ModeTrain
	case routeType == 3 || routeType == 700 || routeType == 717:
		return ModeBus
	default:
		return ModeBus
	}
}

// TripStopEntry is one stop visit within a trip, with its GTFS time string
// already resolved to minutes-since-midnight.
type TripStopEntry struct {
	StopID         string
	ArrivalTime    string
	ArrivalMinutes float64
	StopSequence   int
}

// Departure is "trip T leaves stop S at time D from sequence N", carrying
// the trip metadata needed to score and render it.
type Departure struct {
	TripID           string
	StopID           string
	DepartureTime    string
	DepartureMinutes float64
	StopSequence     int
	RouteID          string
	AgencyID         string
	Headsign         string
	RouteType        int
}

// RouteLeg is one segment of a produced itinerary.
type RouteLeg struct {
	Mode          LegMode
	From          Stop
	To            Stop
	DepartureTime string
	ArrivalTime   string
	DurationMin   int
	Agency        string
	TripID        string
	Headsign      string
	RouteName     string
	Instructions  string
}

// RouteResult is the final, ordered itinerary plus summary aggregates. An
// empty Legs slice means "no route found".
type RouteResult struct {
	Legs             []RouteLeg
	TotalDurationMin int
	Transfers        int
	DepartureTime    string
	ArrivalTime      string
	OriginName       string
	DestinationName  string
	Origin           models.CoordinatePoint
	Destination      models.CoordinatePoint
	Summary          string
}
