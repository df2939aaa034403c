package transitdb

import (
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"strings"

	"novaroute.dev/transitrouter/internal/logging"
)

var countedTables = []string{"stops", "routes", "trips", "stop_times", "calendar", "calendar_dates"}

// PrintSimpleSchema dumps every table, index, view and trigger definition
// to the standard logger. Debugging aid only, kept around because it costs
// little and every store this module owns benefits from one.
func PrintSimpleSchema(db *sql.DB) error { // nolint:unused
	rows, err := db.Query(`
		SELECT type, name, sql
		FROM sqlite_master
		WHERE type IN ('table', 'index', 'view', 'trigger')
		  AND name NOT LIKE 'sqlite_%'
		ORDER BY type, name
	`)
	if err != nil {
		return err
	}
	defer logging.SafeCloseWithLogging(rows,
		slog.Default().With(slog.String("component", "debugging")),
		"database_rows")

	log.Println("DATABASE SCHEMA:")
	log.Println("----------------")

	for rows.Next() {
		var objType, objName, objSQL string
		if err := rows.Scan(&objType, &objName, &objSQL); err != nil {
			return err
		}
		log.Printf("%s: %s\n", strings.ToUpper(objType), objName)
		log.Printf("%s\n\n", objSQL)
	}

	return rows.Err()
}

// TableCounts returns a row count for each known table in the merged
// store. A count that fails, including for a table absent from the store,
// is returned as an error.
func (c *Client) TableCounts() (map[string]int, error) {
	counts := make(map[string]int)

	for _, table := range countedTables {
		var query string
		switch table {
		case "stops":
			query = "SELECT COUNT(*) FROM stops"
		case "routes":
			query = "SELECT COUNT(*) FROM routes"
		case "trips":
			query = "SELECT COUNT(*) FROM trips"
		case "stop_times":
			query = "SELECT COUNT(*) FROM stop_times"
		case "calendar":
			query = "SELECT COUNT(*) FROM calendar"
		case "calendar_dates":
			query = "SELECT COUNT(*) FROM calendar_dates"
		default:
			continue
		}

		var count int
		if err := c.DB.QueryRow(query).Scan(&count); err != nil {
			return nil, fmt.Errorf("transitdb: count %s: %w", table, err)
		}
		counts[table] = count
	}

	return counts, nil
}
