package transit

import (
	"container/heap"
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"novaroute.dev/transitrouter/internal/models"
	"novaroute.dev/transitrouter/internal/utils"
	"novaroute.dev/transitrouter/transitdb"
)

// Tuning constants, grounded on the reference router's tuning section.
const (
	TransferPenaltyMin   = 20.0
	WalkSpeedKMH         = 4.5
	MaxWalkRadiusM       = 300.0
	MaxOriginRadiusM     = 1500.0
	MaxDestRadiusM       = 1500.0
	MaxSearchMinutes     = 480.0
	MaxDeparturesPerStop = 15
	MaxStatesExplored    = 50_000
	DestClusterRadiusM   = 400.0
	maxNearestCandidates = 8

	maxRetries        = 4
	retryStepMinutes  = 120.0
	defaultDepartMin  = 480.0 // 08:00
	finalWalkMinMeter = 50.0
)

// searchState is one node in the Dijkstra search: (stop, arrival time,
// transfer count, cost, parent link, leg that produced this state). The
// parent chain forms the reverse-linked path and is discarded once the
// search ends — only the goal state's chain survives long enough to
// reconstruct the result.
type searchState struct {
	stopID     string
	arrivalMin float64
	transfers  int
	cost       float64
	parent     *searchState
	leg        *RouteLeg
}

// heapItem carries a searchState plus the insertion counter that breaks
// cost ties deterministically (FIFO among equal-cost states).
type heapItem struct {
	cost  float64
	seq   int
	state *searchState
}

// stateHeap is a container/heap priority queue keyed by (cost, seq). No
// pack example ships a third-party heap, and container/heap is the
// idiomatic stdlib choice for this — the one place this module reaches
// for the standard library by deliberate choice rather than as a
// shortcut.
type stateHeap []heapItem

func (h stateHeap) Len() int { return len(h) }
func (h stateHeap) Less(i, j int) bool {
	if h[i].cost != h[j].cost {
		return h[i].cost < h[j].cost
	}
	return h[i].seq < h[j].seq
}
func (h stateHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *stateHeap) Push(x any)   { *h = append(*h, x.(heapItem)) }
func (h *stateHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Router is the multi-modal pathfinding engine: a modified Dijkstra search
// over a time-expanded state space, using the spatial index for candidate
// stops and the schedule service for departures and trip stop sequences.
type Router struct {
	spatial  *SpatialIndex
	schedule *Schedule
	log      *slog.Logger
}

// NewRouter ties a spatial index and schedule service together into a
// router. Both must already be usable (the spatial index loaded).
func NewRouter(spatial *SpatialIndex, schedule *Schedule) *Router {
	return &Router{
		spatial:  spatial,
		schedule: schedule,
		log:      slog.Default().With(slog.String("component", "router")),
	}
}

// Route finds the best multi-modal itinerary between two coordinates,
// departing no earlier than departAfter ("HH:MM" or "HH:MM:SS"; blank or
// invalid defaults to "08:00") on date ("YYYY-MM-DD" or "YYYYMMDD"; blank
// defaults to today). It retries with later departures (2-hour
// increments, up to 4 retries) if the first attempt finds nothing, and
// returns the first attempt that yields a non-empty leg list — or an
// empty RouteResult if none does.
func (r *Router) Route(ctx context.Context, originLat, originLon, destLat, destLon float64, departAfter, date string) RouteResult {
	if !withinPortugal(originLat, originLon) || !withinPortugal(destLat, destLon) {
		r.log.Warn("coordinates fall outside the covered area",
			slog.Float64("origin_lat", originLat), slog.Float64("origin_lon", originLon),
			slog.Float64("dest_lat", destLat), slog.Float64("dest_lon", destLon))
		return RouteResult{}
	}

	startMin := parseDepartAfter(departAfter)
	travelDate := normalizeDate(date)

	for attempt := 0; attempt <= maxRetries; attempt++ {
		attemptMin := startMin + float64(attempt)*retryStepMinutes
		if attemptMin >= minutesPerDay {
			break
		}
		if attempt > 0 {
			r.log.Info("retrying with later departure",
				slog.Int("attempt", attempt),
				slog.String("departure", FormatMinutes(ParsedMinutes{Minutes: attemptMin, OK: true})))
		}

		result := r.search(ctx, originLat, originLon, destLat, destLon, attemptMin, travelDate)
		if len(result.Legs) > 0 {
			return result
		}
	}

	r.log.Warn("no route found after retries")
	return RouteResult{}
}

func parseDepartAfter(s string) float64 {
	if s == "" {
		return defaultDepartMin
	}
	normalized := s
	if strings.Count(s, ":") < 2 {
		normalized += ":00"
	}
	parsed := ParseGTFSTime(normalized)
	if !parsed.OK {
		return defaultDepartMin
	}
	return parsed.Minutes
}

// withinPortugal rejects coordinates outside the area the merged store has
// any coverage for, short-circuiting a spatial-index search that would
// otherwise just come up empty after scanning every candidate radius.
func withinPortugal(lat, lon float64) bool {
	return lat >= models.PortugalMinLat && lat <= models.PortugalMaxLat &&
		lon >= models.PortugalMinLon && lon <= models.PortugalMaxLon
}

func normalizeDate(date string) string {
	cleaned := strings.ReplaceAll(date, "-", "")
	if _, err := time.Parse("20060102", cleaned); err != nil {
		return time.Now().Format("20060102")
	}
	return cleaned
}

func wrapStop(s transitdb.Stop) Stop {
	return Stop{Stop: s}
}

func syntheticStop(id, name string, lat, lon float64) Stop {
	return Stop{
		Stop:        transitdb.Stop{ID: id, Name: name, Lat: lat, Lon: lon},
		IsSynthetic: true,
	}
}

// search runs a single Dijkstra attempt from startMin on travelDate.
func (r *Router) search(ctx context.Context, originLat, originLon, destLat, destLon float64, startMin float64, travelDate string) RouteResult {
	originStops := r.spatial.FindNearest(originLat, originLon, maxNearestCandidates, MaxOriginRadiusM)
	destStops := r.spatial.FindNearest(destLat, destLon, maxNearestCandidates, MaxDestRadiusM)

	if len(originStops) == 0 || len(destStops) == 0 {
		r.log.Warn("no stops found near origin or destination")
		return RouteResult{}
	}

	destCluster := make(map[string]struct{}, len(destStops))
	for _, s := range destStops {
		destCluster[s.ID] = struct{}{}
	}
	for _, s := range destStops {
		for _, nearby := range r.spatial.FindTransfers(s.ID, DestClusterRadiusM) {
			destCluster[nearby.ID] = struct{}{}
		}
	}

	bestCost := make(map[string]float64)
	pq := &stateHeap{}
	heap.Init(pq)
	seq := 0

	originStop := syntheticStop("origin", "Your location", originLat, originLon)
	for _, stop := range originStops {
		distM := utils.Haversine(originLat, originLon, stop.Lat, stop.Lon)
		walkMin := metersToWalkMinutes(distM)
		arrival := startMin + walkMin
		cost := walkMin

		leg := &RouteLeg{
			Mode:          ModeWalk,
			From:          originStop,
			To:            wrapStop(stop),
			DepartureTime: FormatMinutes(ParsedMinutes{Minutes: startMin, OK: true}),
			ArrivalTime:   FormatMinutes(ParsedMinutes{Minutes: arrival, OK: true}),
			DurationMin:   roundMinutes(walkMin),
			Instructions:  fmt.Sprintf("Walk %.0fm to %s (%s)", distM, stop.Name, agencyHint(stop.ID)),
		}
		state := &searchState{stopID: stop.ID, arrivalMin: arrival, transfers: 0, cost: cost, leg: leg}
		heap.Push(pq, heapItem{cost: cost, seq: seq, state: state})
		seq++
	}

	var goal *searchState
	explored := 0

	for pq.Len() > 0 && explored < MaxStatesExplored {
		item := heap.Pop(pq).(heapItem)
		state := item.state
		cost := item.cost

		if prior, ok := bestCost[state.stopID]; ok && prior <= cost {
			continue
		}
		bestCost[state.stopID] = cost
		explored++

		if _, inCluster := destCluster[state.stopID]; inCluster {
			goal = state
			break
		}

		elapsed := state.arrivalMin - startMin
		if elapsed > MaxSearchMinutes {
			continue
		}

		seq = r.expandBoardAndRide(ctx, state, startMin, travelDate, bestCost, pq, seq)
		seq = r.expandWalk(state, startMin, bestCost, pq, seq)
	}

	r.log.Info("dijkstra search complete", slog.Int("explored", explored))

	if goal == nil {
		return RouteResult{}
	}

	goal = r.appendFinalWalk(goal, destLat, destLon)
	origin := models.CoordinatePoint{Lat: originLat, Lon: originLon}
	destination := models.CoordinatePoint{Lat: destLat, Lon: destLon}
	return reconstruct(goal, startMin, origin, destination)
}

func (r *Router) expandBoardAndRide(ctx context.Context, state *searchState, startMin float64, travelDate string, bestCost map[string]float64, pq *stateHeap, seq int) int {
	departures, err := r.schedule.Departures(ctx, state.stopID, state.arrivalMin, MaxDeparturesPerStop, travelDate)
	if err != nil {
		r.log.Info("skipping departures for stop", slog.String("stop_id", state.stopID), slog.String("error", err.Error()))
		return seq
	}

	if state.arrivalMin >= overnightStartMinutes {
		overnight, err := r.schedule.OvernightDepartures(ctx, state.stopID, MaxDeparturesPerStop, travelDate)
		if err != nil {
			r.log.Info("skipping overnight departures for stop", slog.String("stop_id", state.stopID), slog.String("error", err.Error()))
		} else {
			departures = append(departures, overnight...)
		}
	}

	fromStop, ok := r.spatial.GetStop(state.stopID)
	if !ok {
		return seq
	}

	for _, dep := range departures {
		wait := dep.DepartureMinutes - state.arrivalMin
		if wait < 0 {
			continue
		}

		tripStops, err := r.schedule.TripStopsAfter(ctx, dep.TripID, dep.StopSequence)
		if err != nil {
			r.log.Info("skipping trip", slog.String("trip_id", dep.TripID), slog.String("error", err.Error()))
			continue
		}

		mode := RouteTypeToMode(dep.RouteType)

		for _, ts := range tripStops {
			toStop, ok := r.spatial.GetStop(ts.StopID)
			if !ok {
				continue
			}

			rideMin := ts.ArrivalMinutes - dep.DepartureMinutes
			if rideMin < 0 {
				continue
			}

			totalElapsed := (dep.DepartureMinutes - startMin) + rideMin
			isNewTransfer := state.leg != nil && state.leg.Mode != ModeWalk && state.leg.TripID != dep.TripID
			newTransfers := state.transfers
			if isNewTransfer {
				newTransfers++
			}
			newCost := totalElapsed + float64(newTransfers)*TransferPenaltyMin

			if prior, ok := bestCost[ts.StopID]; ok && prior <= newCost {
				continue
			}

			leg := &RouteLeg{
				Mode:          mode,
				From:          wrapStop(fromStop),
				To:            wrapStop(toStop),
				DepartureTime: FormatMinutes(ParsedMinutes{Minutes: dep.DepartureMinutes, OK: true}),
				ArrivalTime:   FormatMinutes(ParsedMinutes{Minutes: ts.ArrivalMinutes, OK: true}),
				DurationMin:   roundMinutes(rideMin),
				Agency:        dep.AgencyID,
				TripID:        dep.TripID,
				Headsign:      dep.Headsign,
				RouteName:     dep.RouteID,
				Instructions: fmt.Sprintf("Take %s (%s) towards %s — ride %.0f min to %s",
					capitalizeMode(mode), dep.AgencyID, headsignOrDefault(dep.Headsign), rideMin, toStop.Name),
			}
			newState := &searchState{stopID: ts.StopID, arrivalMin: ts.ArrivalMinutes, transfers: newTransfers, cost: newCost, parent: state, leg: leg}
			heap.Push(pq, heapItem{cost: newCost, seq: seq, state: newState})
			seq++
		}
	}

	return seq
}

func (r *Router) expandWalk(state *searchState, startMin float64, bestCost map[string]float64, pq *stateHeap, seq int) int {
	fromStop, ok := r.spatial.GetStop(state.stopID)
	if !ok {
		return seq
	}

	for _, nearby := range r.spatial.FindTransfers(state.stopID, MaxWalkRadiusM) {
		distM := utils.Haversine(fromStop.Lat, fromStop.Lon, nearby.Lat, nearby.Lon)
		walkMin := metersToWalkMinutes(distM)
		newArrival := state.arrivalMin + walkMin
		newCost := (newArrival - startMin) + float64(state.transfers)*TransferPenaltyMin

		if prior, ok := bestCost[nearby.ID]; ok && prior <= newCost {
			continue
		}

		leg := &RouteLeg{
			Mode:          ModeWalk,
			From:          wrapStop(fromStop),
			To:            wrapStop(nearby),
			DepartureTime: FormatMinutes(ParsedMinutes{Minutes: state.arrivalMin, OK: true}),
			ArrivalTime:   FormatMinutes(ParsedMinutes{Minutes: newArrival, OK: true}),
			DurationMin:   roundMinutes(walkMin),
			Instructions:  fmt.Sprintf("Walk %.0fm to %s (%s)", distM, nearby.Name, agencyHint(nearby.ID)),
		}
		newState := &searchState{stopID: nearby.ID, arrivalMin: newArrival, transfers: state.transfers, cost: newCost, parent: state, leg: leg}
		heap.Push(pq, heapItem{cost: newCost, seq: seq, state: newState})
		seq++
	}

	return seq
}

// appendFinalWalk adds a synthetic WALK leg from the goal stop to the
// destination if the goal stop is more than 50m away.
func (r *Router) appendFinalWalk(goal *searchState, destLat, destLon float64) *searchState {
	finalStop, ok := r.spatial.GetStop(goal.stopID)
	if !ok {
		return goal
	}

	distM := utils.Haversine(finalStop.Lat, finalStop.Lon, destLat, destLon)
	if distM <= finalWalkMinMeter {
		return goal
	}

	walkMin := metersToWalkMinutes(distM)
	destStop := syntheticStop("destination", "Destination", destLat, destLon)
	leg := &RouteLeg{
		Mode:          ModeWalk,
		From:          wrapStop(finalStop),
		To:            destStop,
		DepartureTime: FormatMinutes(ParsedMinutes{Minutes: goal.arrivalMin, OK: true}),
		ArrivalTime:   FormatMinutes(ParsedMinutes{Minutes: goal.arrivalMin + walkMin, OK: true}),
		DurationMin:   roundMinutes(walkMin),
		Instructions:  fmt.Sprintf("Walk %.0fm to your destination", distM),
	}
	return &searchState{
		stopID:     "destination",
		arrivalMin: goal.arrivalMin + walkMin,
		transfers:  goal.transfers,
		cost:       goal.cost,
		parent:     goal,
		leg:        leg,
	}
}

// reconstruct walks the parent chain back to the root, reverses it,
// merges consecutive WALK legs, and assembles the final RouteResult.
func reconstruct(goal *searchState, startMin float64, origin, destination models.CoordinatePoint) RouteResult {
	var legs []RouteLeg
	for state := goal; state != nil; state = state.parent {
		if state.leg != nil {
			legs = append(legs, *state.leg)
		}
	}
	for i, j := 0, len(legs)-1; i < j; i, j = i+1, j-1 {
		legs[i], legs[j] = legs[j], legs[i]
	}

	merged := mergeWalks(legs)

	transitLegs := 0
	for _, l := range merged {
		if l.Mode != ModeWalk {
			transitLegs++
		}
	}
	transfers := transitLegs - 1
	if transfers < 0 {
		transfers = 0
	}

	result := RouteResult{
		Legs:             merged,
		TotalDurationMin: roundMinutes(goal.arrivalMin - startMin),
		Transfers:        transfers,
		Origin:           origin,
		Destination:      destination,
	}
	if len(merged) > 0 {
		result.DepartureTime = merged[0].DepartureTime
		result.ArrivalTime = merged[len(merged)-1].ArrivalTime
		result.OriginName = merged[0].From.Name
		result.DestinationName = merged[len(merged)-1].To.Name
		result.Summary = fmt.Sprintf("%s to %s in %d min, %d transfer(s)",
			result.OriginName, result.DestinationName, result.TotalDurationMin, result.Transfers)
	}
	return result
}

// mergeWalks collapses consecutive WALK legs into one, summing durations
// and preserving the first leg's departure and the last leg's arrival.
func mergeWalks(legs []RouteLeg) []RouteLeg {
	if len(legs) == 0 {
		return legs
	}

	merged := []RouteLeg{legs[0]}
	for _, leg := range legs[1:] {
		prev := &merged[len(merged)-1]
		if prev.Mode == ModeWalk && leg.Mode == ModeWalk {
			prev.To = leg.To
			prev.ArrivalTime = leg.ArrivalTime
			prev.DurationMin += leg.DurationMin
			prev.Instructions = fmt.Sprintf("Walk %d min to %s", prev.DurationMin, leg.To.Name)
			continue
		}
		merged = append(merged, leg)
	}
	return merged
}

func metersToWalkMinutes(distM float64) float64 {
	return (distM / 1000.0) / WalkSpeedKMH * 60.0
}

func roundMinutes(m float64) int {
	return int(math.Round(m))
}

func agencyHint(stopID string) string {
	prefix := agencyPrefix(stopID)
	if !isKnownAgencyPrefix(prefix) {
		return models.UnknownValue
	}
	return strings.ToUpper(prefix)
}

func isKnownAgencyPrefix(prefix string) bool {
	switch prefix {
	case models.AgencyCP, models.AgencyFlix, models.AgencyCMet, models.AgencySTCP:
		return true
	default:
		return false
	}
}

func headsignOrDefault(headsign string) string {
	if headsign == "" {
		return "destination"
	}
	return headsign
}

func capitalizeMode(mode LegMode) string {
	lower := strings.ToLower(string(mode))
	if lower == "" {
		return lower
	}
	return strings.ToUpper(lower[:1]) + lower[1:]
}
