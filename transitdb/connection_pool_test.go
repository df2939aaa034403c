package transitdb

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"novaroute.dev/transitrouter/internal/appconf"
	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

func TestDatabaseConnectionPoolSettings(t *testing.T) {
	config := Config{DBPath: ":memory:", Env: appconf.Test}

	client, err := NewClient(config)
	require.NoError(t, err, "NewClient should succeed")
	defer func() { _ = client.Close() }()

	stats := client.DB.Stats()
	assert.Equal(t, 1, stats.MaxOpenConnections, "MaxOpenConns should be 1 for :memory: databases")
}

func TestConnectionPoolBehavior(t *testing.T) {
	config := Config{DBPath: ":memory:", Env: appconf.Test}

	client, err := NewClient(config)
	require.NoError(t, err, "NewClient should succeed")
	defer func() { _ = client.Close() }()

	ctx := context.Background()
	for i := 0; i < 10; i++ {
		rows, err := client.DB.QueryContext(ctx, "SELECT 1")
		assert.NoError(t, err, "query should succeed against the single in-memory connection")
		if rows != nil {
			_ = rows.Close()
		}
	}

	stats := client.DB.Stats()
	assert.Equal(t, 1, stats.MaxOpenConnections)
}

func TestConnectionPoolConfiguration(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err, "should open database")
	defer func() { _ = db.Close() }()

	config := Config{DBPath: ":memory:", Env: appconf.Test}
	configureConnectionPool(db, config)

	stats := db.Stats()
	assert.Equal(t, 1, stats.MaxOpenConnections, "MaxOpenConns should be 1 for :memory: databases")

	ctx := context.Background()
	assert.NoError(t, db.PingContext(ctx), "should be able to ping configured database")
}

func TestConnectionPoolConfigurationFileBacked(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err, "should open database")
	defer func() { _ = db.Close() }()

	config := Config{DBPath: "/tmp/some-store.sqlite", Env: appconf.Production}
	configureConnectionPool(db, config)

	stats := db.Stats()
	assert.Equal(t, 10, stats.MaxOpenConnections, "file-backed stores should allow concurrent readers")
}
