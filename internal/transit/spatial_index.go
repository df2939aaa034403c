package transit

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/tidwall/rtree"

	"novaroute.dev/transitrouter/internal/models"
	"novaroute.dev/transitrouter/internal/utils"
	"novaroute.dev/transitrouter/transitdb"
)

const (
	// candidateOversampleFactor is how many times k the spatial index
	// asks the R-tree for before Haversine-filtering and truncating,
	// covering cases where the bounding box over-admits points the true
	// radius then excludes.
	candidateOversampleFactor = 3

	lisbonMinLat, lisbonMaxLat = 38.65, 38.85
	lisbonMinLon, lisbonMaxLon = -9.25, -9.05
	portoMinLat, portoMaxLat   = 41.10, 41.20
	portoMinLon, portoMaxLon   = -8.70, -8.55
)

// stopDistance pairs a stop with its true Haversine distance from a query
// point, the unit every sort in this file operates on — the R-tree's
// bounding-box step is pruning only, never the final ordering.
type stopDistance struct {
	stop     transitdb.Stop
	distance float64
}

// SpatialIndex is an in-memory nearest-neighbour and radius-query
// structure over every stop in the merged store, built once at Load and
// read-only thereafter — safe for concurrent callers without further
// synchronisation. Candidate pruning is done with an R-tree of point
// bounding boxes; every radius/k-nearest query converts its metric radius
// to a degree-scale box, fetches a superset of candidates, and
// re-filters/sorts them by true Haversine distance.
type SpatialIndex struct {
	mu    sync.RWMutex
	tree  *rtree.RTree
	byID  map[string]transitdb.Stop
	count int
}

// NewSpatialIndex returns an empty index. Call Load before using it.
func NewSpatialIndex() *SpatialIndex {
	return &SpatialIndex{tree: &rtree.RTree{}, byID: make(map[string]transitdb.Stop)}
}

// Load reads every stop from queries and (re)builds the R-tree and id
// lookup table. Safe to call again after an offline ingest refresh; the
// previous index is replaced atomically under the write lock.
func (idx *SpatialIndex) Load(ctx context.Context, queries *transitdb.Queries) error {
	stops, err := queries.AllStops(ctx)
	if err != nil {
		return fmt.Errorf("transit: load spatial index: %w", err)
	}

	tree := &rtree.RTree{}
	byID := make(map[string]transitdb.Stop, len(stops))
	for _, s := range stops {
		tree.Insert([2]float64{s.Lat, s.Lon}, [2]float64{s.Lat, s.Lon}, s)
		byID[s.ID] = s
	}

	idx.mu.Lock()
	idx.tree = tree
	idx.byID = byID
	idx.count = len(stops)
	idx.mu.Unlock()
	return nil
}

// Size reports the number of loaded stops.
func (idx *SpatialIndex) Size() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.count
}

// GetStop is a constant-time lookup by stop id.
func (idx *SpatialIndex) GetStop(stopID string) (transitdb.Stop, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	s, ok := idx.byID[stopID]
	return s, ok
}

func (idx *SpatialIndex) queryBounds(bounds utils.CoordinateBounds) []transitdb.Stop {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.tree == nil {
		return nil
	}

	minLat, maxLat := bounds.MinLat, bounds.MaxLat
	minLon, maxLon := bounds.MinLon, bounds.MaxLon
	if minLat > maxLat {
		minLat, maxLat = maxLat, minLat
	}
	if minLon > maxLon {
		minLon, maxLon = maxLon, minLon
	}

	var results []transitdb.Stop
	idx.tree.Search(
		[2]float64{minLat, minLon},
		[2]float64{maxLat, maxLon},
		func(_, _ [2]float64, data interface{}) bool {
			if stop, ok := data.(transitdb.Stop); ok {
				results = append(results, stop)
			}
			return true
		},
	)
	return results
}

// FindNearest returns up to k stops within maxDistanceM of (lat, lon),
// sorted ascending by Haversine distance, with region-aware re-ranking
// applied: inside the Lisbon box, cmet_-prefixed stops are boosted ahead
// of everything else; inside the Porto box, stcp_-prefixed stops are
// boosted. Boosted and non-boosted partitions each preserve their
// internal (distance) order; only the two partitions' relative position
// changes.
func (idx *SpatialIndex) FindNearest(lat, lon float64, k int, maxDistanceM float64) []transitdb.Stop {
	candidates := idx.candidatesWithinRadius(lat, lon, maxDistanceM, k*candidateOversampleFactor)

	boostPrefix := regionBoostPrefix(lat, lon)
	if boostPrefix == "" {
		return truncateStops(candidates, k)
	}

	var boosted, rest []stopDistance
	for _, c := range candidates {
		if strings.HasPrefix(c.stop.ID, boostPrefix) {
			boosted = append(boosted, c)
		} else {
			rest = append(rest, c)
		}
	}
	merged := append(boosted, rest...) //nolint:gocritic
	return truncateStops(merged, k)
}

// regionBoostPrefix returns the stop-id prefix to boost for a query point,
// or "" outside both boxes.
func regionBoostPrefix(lat, lon float64) string {
	switch {
	case lat >= lisbonMinLat && lat <= lisbonMaxLat && lon >= lisbonMinLon && lon <= lisbonMaxLon:
		return models.AgencyCMet + "_"
	case lat >= portoMinLat && lat <= portoMaxLat && lon >= portoMinLon && lon <= portoMaxLon:
		return models.AgencySTCP + "_"
	default:
		return ""
	}
}

// FindTransfers returns stops other than stopID within radiusM, sorted by
// distance ascending.
func (idx *SpatialIndex) FindTransfers(stopID string, radiusM float64) []transitdb.Stop {
	origin, ok := idx.GetStop(stopID)
	if !ok {
		return nil
	}

	candidates := idx.candidatesWithinRadius(origin.Lat, origin.Lon, radiusM, 0)
	out := make([]transitdb.Stop, 0, len(candidates))
	for _, c := range candidates {
		if c.stop.ID == stopID {
			continue
		}
		out = append(out, c.stop)
	}
	return out
}

// FindCrossAgencyTransfers is FindTransfers restricted to stops whose
// agency prefix differs from stopID's.
func (idx *SpatialIndex) FindCrossAgencyTransfers(stopID string, radiusM float64) []transitdb.Stop {
	myPrefix := agencyPrefix(stopID)
	all := idx.FindTransfers(stopID, radiusM)

	out := make([]transitdb.Stop, 0, len(all))
	for _, s := range all {
		if agencyPrefix(s.ID) != myPrefix {
			out = append(out, s)
		}
	}
	return out
}

func agencyPrefix(stopID string) string {
	if i := strings.Index(stopID, "_"); i >= 0 {
		return stopID[:i]
	}
	return stopID
}

// SearchByName does a case-insensitive substring match over stop names,
// deduplicated by lowercased name and capped at limit.
func (idx *SpatialIndex) SearchByName(query string, limit int) []transitdb.Stop {
	idx.mu.RLock()
	all := make([]transitdb.Stop, 0, len(idx.byID))
	for _, s := range idx.byID {
		all = append(all, s)
	}
	idx.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

	needle := strings.ToLower(query)
	seenNames := make(map[string]struct{})
	out := make([]transitdb.Stop, 0, limit)
	for _, s := range all {
		if len(out) >= limit {
			break
		}
		lowerName := strings.ToLower(s.Name)
		if !strings.Contains(lowerName, needle) {
			continue
		}
		if _, dup := seenNames[lowerName]; dup {
			continue
		}
		seenNames[lowerName] = struct{}{}
		out = append(out, s)
	}
	return out
}

// candidatesWithinRadius fetches the R-tree bounding-box superset for
// (lat, lon, radiusM), Haversine-filters every one of them down to the
// true radius, and sorts ascending by distance before applying
// oversample. oversample, when > 0, caps the result to that many entries
// *after* sorting — never before, since the R-tree's bounding-box search
// returns candidates in arbitrary node order and truncating earlier would
// silently drop genuinely-nearest stops in a dense cluster; 0 means
// "return them all".
func (idx *SpatialIndex) candidatesWithinRadius(lat, lon, radiusM float64, oversample int) []stopDistance {
	bounds := utils.BoundsForRadius(lat, lon, radiusM)
	boxCandidates := idx.queryBounds(bounds)

	out := make([]stopDistance, 0, len(boxCandidates))
	for _, s := range boxCandidates {
		d := utils.Haversine(lat, lon, s.Lat, s.Lon)
		if d <= radiusM {
			out = append(out, stopDistance{stop: s, distance: d})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].distance != out[j].distance {
			return out[i].distance < out[j].distance
		}
		// Equal-distance ties (common in synthetic fixtures, rare in real
		// data) still need a total order so results are reproducible
		// across runs regardless of the R-tree's internal node order.
		a := models.CoordinatePoint{Lat: out[i].stop.Lat, Lon: out[i].stop.Lon}
		b := models.CoordinatePoint{Lat: out[j].stop.Lat, Lon: out[j].stop.Lon}
		return models.ComparePoints(a, b) < 0
	})

	if oversample > 0 && len(out) > oversample {
		out = out[:oversample]
	}
	return out
}

func truncateStops(sd []stopDistance, k int) []transitdb.Stop {
	if k > len(sd) {
		k = len(sd)
	}
	out := make([]transitdb.Stop, k)
	for i := 0; i < k; i++ {
		out[i] = sd[i].stop
	}
	return out
}
