package transitdb

import "novaroute.dev/transitrouter/internal/appconf"

const (
	// DefaultCacheSizeKB is the bounded SQLite page cache size applied at
	// open, in KiB (negative cache_size units). ~32MB.
	DefaultCacheSizeKB = 32768

	// DefaultDriverName selects modernc.org/sqlite, the pure-Go driver,
	// so the module builds and runs without cgo by default.
	DefaultDriverName = "sqlite"

	// CGODriverName selects github.com/mattn/go-sqlite3 instead, for
	// deployments built with cgo enabled that want its driver instead.
	// Registered only in cgo builds; see driver_cgo.go.
	CGODriverName = "sqlite3"
)

// Config holds configuration options for the Client.
type Config struct {
	// DBPath is the path to the merged transit store produced by the
	// offline ingest job. ":memory:" selects an in-memory database,
	// required when Env is Test.
	DBPath string

	// Driver is the database/sql driver name to open DBPath with.
	// Defaults to DefaultDriverName; set to CGODriverName in a
	// cgo-enabled build to use the mattn/go-sqlite3 driver instead.
	Driver string

	Env     appconf.Environment
	verbose bool
}

func NewConfig(dbPath string, env appconf.Environment, verbose bool) Config {
	return Config{
		DBPath:  dbPath,
		Driver:  DefaultDriverName,
		Env:     env,
		verbose: verbose,
	}
}
