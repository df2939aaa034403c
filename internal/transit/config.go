package transit

import "novaroute.dev/transitrouter/internal/appconf"

// Config configures a Manager.
type Config struct {
	// DBPath is the merged transit store path, passed through to
	// transitdb.Config.
	DBPath string

	Env     appconf.Environment
	Verbose bool
}
