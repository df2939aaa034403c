// Command transitroute is the thin CLI entry point onto the transit
// package: it opens the merged store, runs a single origin/destination
// search, and prints the resulting itinerary. It carries no routing
// logic of its own — everything interesting happens in internal/transit.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"novaroute.dev/transitrouter/internal/appconf"
	"novaroute.dev/transitrouter/internal/transit"
)

func main() {
	var (
		dbPath      = flag.String("db", "./transit.db", "Path to the merged transit store (sqlite)")
		envFlag     = flag.String("env", "development", "Environment (development|test|production)")
		verbose     = flag.Bool("verbose", false, "Enable verbose logging")
		origin      = flag.String("from", "", "Origin as \"lat,lon\"")
		destination = flag.String("to", "", "Destination as \"lat,lon\"")
		departAfter = flag.String("depart-after", "", "Earliest departure time, HH:MM (defaults to 08:00)")
		date        = flag.String("date", "", "Travel date, YYYY-MM-DD (defaults to today)")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil)).With(slog.String("component", "transitroute_cli"))

	originLat, originLon, err := parseLatLon(*origin)
	if err != nil {
		logger.Error("invalid -from", "error", err)
		os.Exit(1)
	}
	destLat, destLon, err := parseLatLon(*destination)
	if err != nil {
		logger.Error("invalid -to", "error", err)
		os.Exit(1)
	}

	searchID := uuid.NewString()
	logger = logger.With(slog.String("search_id", searchID))

	manager, err := transit.NewManager(context.Background(), transit.Config{
		DBPath:  *dbPath,
		Env:     appconf.EnvFlagToEnvironment(*envFlag),
		Verbose: *verbose,
	})
	if err != nil {
		logger.Error("failed to open transit store", "error", err)
		os.Exit(1)
	}
	defer func() { _ = manager.Close() }()

	logger.Info("search started",
		slog.Float64("origin_lat", originLat), slog.Float64("origin_lon", originLon),
		slog.Float64("dest_lat", destLat), slog.Float64("dest_lon", destLon),
		slog.String("depart_after", *departAfter), slog.String("date", *date))

	result := manager.Route(context.Background(), originLat, originLon, destLat, destLon, *departAfter, *date)
	printItinerary(result)

	if len(result.Legs) == 0 {
		logger.Info("search finished", slog.Int("legs", 0))
		os.Exit(1)
	}
	logger.Info("search finished", slog.Int("legs", len(result.Legs)), slog.Int("transfers", result.Transfers))
}

func parseLatLon(s string) (float64, float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("expected \"lat,lon\", got %q", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid latitude: %w", err)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid longitude: %w", err)
	}
	return lat, lon, nil
}

func printItinerary(result transit.RouteResult) {
	if len(result.Legs) == 0 {
		fmt.Println("no itinerary found")
		return
	}

	fmt.Printf("%s -> %s, %d transfer(s)\n", result.OriginName, result.DestinationName, result.Transfers)
	for i, leg := range result.Legs {
		fmt.Printf("  %d. [%s] %s (%s) -> %s (%s) dep %s arr %s\n",
			i+1, leg.Mode, leg.From.Name, leg.From.ID, leg.To.Name, leg.To.ID, leg.DepartureTime, leg.ArrivalTime)
		if leg.Instructions != "" {
			fmt.Printf("     %s\n", leg.Instructions)
		}
	}
	fmt.Println(result.Summary)
}
