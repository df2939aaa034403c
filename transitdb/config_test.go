package transitdb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"novaroute.dev/transitrouter/internal/appconf"
)

func TestNewConfig(t *testing.T) {
	dbPath := "/path/to/database.db"
	env := appconf.Production
	verbose := true

	config := NewConfig(dbPath, env, verbose)

	assert.Equal(t, dbPath, config.DBPath, "DBPath should match input")
	assert.Equal(t, env, config.Env, "Env should match input")
	assert.Equal(t, verbose, config.verbose, "verbose should match input")
	assert.Equal(t, DefaultDriverName, config.Driver, "NewConfig should default to the pure-Go driver")
}

func TestNewConfigWithDevelopmentEnv(t *testing.T) {
	dbPath := ":memory:"
	env := appconf.Development
	verbose := false

	config := NewConfig(dbPath, env, verbose)

	assert.Equal(t, dbPath, config.DBPath)
	assert.Equal(t, env, config.Env)
	assert.False(t, config.verbose)
	assert.Equal(t, DefaultDriverName, config.Driver)
}

func TestNewConfigWithTestEnv(t *testing.T) {
	dbPath := ":memory:"
	env := appconf.Test
	verbose := true

	config := NewConfig(dbPath, env, verbose)

	assert.Equal(t, dbPath, config.DBPath)
	assert.Equal(t, env, config.Env)
	assert.True(t, config.verbose)
	assert.Equal(t, DefaultDriverName, config.Driver)
}

func TestConfigStruct(t *testing.T) {
	config := Config{
		DBPath:  "/custom/path.db",
		Driver:  CGODriverName,
		Env:     appconf.Production,
		verbose: true,
	}

	assert.Equal(t, "/custom/path.db", config.DBPath)
	assert.Equal(t, appconf.Production, config.Env)
	assert.True(t, config.verbose)
	assert.Equal(t, CGODriverName, config.Driver, "a directly built Config should keep whatever driver it was given")
}

func TestConfigStruct_ZeroValueDriverIsEmpty(t *testing.T) {
	// NewConfig is the only place that fills in DefaultDriverName; a
	// struct literal that never sets Driver is left blank, relying on
	// createDB's fallback at open time rather than at construction time.
	var config Config

	assert.Equal(t, "", config.Driver)
}

func TestNewConfigAllEnvironments(t *testing.T) {
	tests := []struct {
		name    string
		env     appconf.Environment
		verbose bool
	}{
		{"Development environment", appconf.Development, false},
		{"Test environment", appconf.Test, true},
		{"Production environment", appconf.Production, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := NewConfig(":memory:", tt.env, tt.verbose)

			assert.Equal(t, ":memory:", config.DBPath)
			assert.Equal(t, tt.env, config.Env)
			assert.Equal(t, tt.verbose, config.verbose)
			assert.Equal(t, DefaultDriverName, config.Driver)
		})
	}
}

func TestNewConfigWithEmptyDBPath(t *testing.T) {
	dbPath := ""
	env := appconf.Development
	verbose := false

	config := NewConfig(dbPath, env, verbose)

	assert.Equal(t, "", config.DBPath, "Empty DBPath should be allowed")
	assert.Equal(t, env, config.Env)
	assert.Equal(t, verbose, config.verbose)
	assert.Equal(t, DefaultDriverName, config.Driver)
}

// TestNewConfigDriverOverride exercises the same override path createDB
// reads at open time: callers that want the cgo-enabled mattn/go-sqlite3
// driver set config.Driver to CGODriverName after NewConfig returns.
func TestNewConfigDriverOverride(t *testing.T) {
	config := NewConfig(":memory:", appconf.Test, false)
	config.Driver = CGODriverName

	assert.Equal(t, CGODriverName, config.Driver)
	assert.NotEqual(t, DefaultDriverName, config.Driver)
}
