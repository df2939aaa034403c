package transitdb

import (
	"database/sql"
	"fmt"
	"os"

	"novaroute.dev/transitrouter/internal/appconf"

	_ "modernc.org/sqlite" // pure-Go SQLite driver, registered as "sqlite"
)

// Client is the read-only entry point onto the merged transit store.
type Client struct {
	config  Config
	DB      *sql.DB
	Queries *Queries
}

// NewClient opens the merged transit store described by config and returns
// a Client wrapping it. Opening happens here, not on first use: the file is
// checked, the pragmas applied and the schema ensured before NewClient
// returns. The store is opened WAL mode, synchronous=NORMAL, with a bounded
// page cache, and is marked query_only once schema/index setup completes.
func NewClient(config Config) (*Client, error) {
	if config.Env == appconf.Test && config.DBPath != ":memory:" {
		return nil, fmt.Errorf("transitdb: test database must use in-memory storage")
	}

	db, err := createDB(config)
	if err != nil {
		return nil, fmt.Errorf("transitdb: unable to open store: %w", err)
	}

	return &Client{
		config:  config,
		DB:      db,
		Queries: New(db),
	}, nil
}

func createDB(config Config) (*sql.DB, error) {
	isMemory := config.DBPath == ":memory:"

	if !isMemory {
		if _, err := os.Stat(config.DBPath); err != nil {
			if os.IsNotExist(err) {
				return nil, ErrStoreMissing
			}
			return nil, fmt.Errorf("transitdb: stat store file: %w", err)
		}
	}

	driver := config.Driver
	if driver == "" {
		driver = DefaultDriverName
	}

	db, err := sql.Open(driver, config.DBPath)
	if err != nil {
		return nil, fmt.Errorf("transitdb: open: %w", err)
	}

	configureConnectionPool(db, config)

	if !isMemory {
		if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("transitdb: enable WAL: %w", err)
		}
	}

	if _, err := db.Exec("PRAGMA synchronous = NORMAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("transitdb: set synchronous: %w", err)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA cache_size = -%d", DefaultCacheSizeKB)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("transitdb: set cache_size: %w", err)
	}

	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	if _, err := db.Exec("PRAGMA query_only = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("transitdb: set query_only: %w", err)
	}

	return db, nil
}

// Close releases the underlying database handle.
func (c *Client) Close() error {
	return c.DB.Close()
}

// configureConnectionPool bounds the pool size. A ":memory:" database must
// never hand out more than one connection, since each new connection in
// the pool would otherwise see a distinct, empty in-memory database; a
// file-backed store under WAL can safely serve several concurrent
// readers.
func configureConnectionPool(db *sql.DB, config Config) {
	if config.DBPath == ":memory:" {
		db.SetMaxOpenConns(1)
		return
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
}
