package transit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"novaroute.dev/transitrouter/internal/logging"
	"novaroute.dev/transitrouter/transitdb"
)

// Manager wires the database layer, schedule service, spatial index and
// router together behind a single synchronous Route entry point safe for
// concurrent callers: the DB handle is shared read-only, the spatial
// index is built once in NewManager and never mutated in place (Reload swaps in
// a freshly built one), and the schedule caches are sync.Map. There is no
// periodic background fetch — real-time ingest is out of scope — so
// Reload is caller-invoked only, never ticker-driven.
type Manager struct {
	db       *transitdb.Client
	spatial  *SpatialIndex
	schedule *Schedule
	router   *Router
	log      *slog.Logger

	mu         sync.RWMutex
	lastLoaded time.Time
}

// NewManager opens the merged transit store at config.DBPath, loads the
// spatial index, and wires up the schedule service and router. Returns an
// error wrapping transitdb.ErrStoreMissing if the store file is absent.
func NewManager(ctx context.Context, config Config) (*Manager, error) {
	dbClient, err := transitdb.NewClient(transitdb.NewConfig(config.DBPath, config.Env, config.Verbose))
	if err != nil {
		return nil, err
	}

	m := &Manager{
		db:  dbClient,
		log: slog.Default().With(slog.String("component", "transit_manager")),
	}

	if err := m.load(ctx); err != nil {
		logging.SafeCloseWithLogging(dbClient, m.log, "transit store")
		return nil, err
	}

	return m, nil
}

func (m *Manager) load(ctx context.Context) error {
	spatial := NewSpatialIndex()
	if err := spatial.Load(ctx, m.db.Queries); err != nil {
		return fmt.Errorf("transit: manager load: %w", err)
	}

	schedule := NewSchedule(m.db.Queries)
	router := NewRouter(spatial, schedule)

	m.mu.Lock()
	m.spatial = spatial
	m.schedule = schedule
	m.router = router
	m.lastLoaded = time.Now()
	m.mu.Unlock()

	logging.LogOperation(m.log, "spatial index loaded", slog.Int("stops", spatial.Size()))
	return nil
}

// Reload rebuilds the spatial index and clears the schedule caches. Call
// this after the offline ingest job refreshes the merged store; it is
// never invoked automatically.
func (m *Manager) Reload(ctx context.Context) error {
	if err := m.load(ctx); err != nil {
		return err
	}
	m.log.Info("transit manager reloaded")
	return nil
}

// LastLoaded returns the time of the most recent successful load/reload.
func (m *Manager) LastLoaded() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastLoaded
}

// Route is the single routing entry point: given an origin/destination
// coordinate pair, a departure time and a calendar date, it returns the
// best multi-modal itinerary, or an empty RouteResult if none is found.
func (m *Manager) Route(ctx context.Context, originLat, originLon, destLat, destLon float64, departAfter, date string) RouteResult {
	m.mu.RLock()
	router := m.router
	m.mu.RUnlock()
	return router.Route(ctx, originLat, originLon, destLat, destLon, departAfter, date)
}

// Schedule exposes the underlying schedule service, e.g. for a CLI
// subcommand that reports data coverage without running a full search.
func (m *Manager) Schedule() *Schedule {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.schedule
}

// SpatialIndex exposes the underlying spatial index, e.g. for a stop
// lookup or name-search CLI subcommand.
func (m *Manager) SpatialIndex() *SpatialIndex {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.spatial
}

// Close releases the underlying database handle.
func (m *Manager) Close() error {
	return m.db.Close()
}
