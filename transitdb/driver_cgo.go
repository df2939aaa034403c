//go:build cgo

package transitdb

// Blank-imported to register the "sqlite3" driver name (CGODriverName)
// for builds where cgo is available and a caller sets Config.Driver to
// it. The default build path never touches this driver.
import _ "github.com/mattn/go-sqlite3"
