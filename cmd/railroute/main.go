// Command railroute computes one rail route and prints a summary.
//
//	railroute [-config file] [-vmax 120] [-departure 08:15] 52.5251,13.3694 52.3917,13.0661
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"rail_router/pkg/config"
	"rail_router/pkg/geo"
	"rail_router/pkg/graph"
	"rail_router/pkg/routing"
)

func main() {
	configPath := flag.String("config", "", "Path to TOML config file (empty = built-in defaults)")
	vmax := flag.Float64("vmax", 0, "Vehicle max speed in km/h (0 = routing.default_max_speed_kmh)")
	departure := flag.String("departure", "", "Departure time HH:MM, prints the arrival time")
	pbf := flag.String("pbf", "", "Read the network from a local .osm.pbf extract")
	inspect := flag.Bool("inspect", false, "Only fetch the network and print graph statistics")
	flag.Parse()

	if flag.NArg() < 2 {
		fmt.Fprintln(os.Stderr, "Usage: railroute [flags] <lat,lon> <lat,lon> [<lat,lon> ...]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	cfg := config.Default()
	cfg.Log.Level = "warn"
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			logrus.Fatalf("failed to load config: %v", err)
		}
	}
	if *pbf != "" {
		cfg.Source.PBFPath = *pbf
	}
	if *vmax == 0 {
		*vmax = cfg.Routing.DefaultMaxSpeedKmh
	}

	logger, err := cfg.Log.NewLogger()
	if err != nil {
		logrus.Fatalf("invalid log config: %v", err)
	}

	waypoints := make([]routing.Waypoint, flag.NArg())
	for i, arg := range flag.Args() {
		w, err := routing.ParseWaypoint(arg)
		if err != nil {
			logrus.Fatal(err)
		}
		waypoints[i] = w
	}

	var dep time.Time
	if *departure != "" {
		dep, err = time.Parse("15:04", *departure)
		if err != nil {
			logrus.Fatalf("invalid departure %q, want HH:MM", *departure)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	src := cfg.NewSource(logger)
	if *inspect {
		if err := inspectNetwork(ctx, cfg, src, waypoints); err != nil {
			logrus.Fatal(err)
		}
		return
	}

	engine := cfg.NewEngine(src, logger)
	route, err := engine.ComputeRoute(ctx, waypoints, *vmax)
	if err != nil {
		fmt.Fprintln(os.Stderr, routing.UserMessage(err))
		logger.WithError(err).Debug("route failed")
		os.Exit(1)
	}

	for i, seg := range route.Segments {
		fmt.Printf("%d. %s -> %s: %.1f km, %s, avg %.0f km/h, max %.0f km/h\n",
			i+1, seg.From, seg.To, seg.LengthMeters/1000, routing.FormatDuration(seg.TimeSeconds),
			seg.AverageSpeedKmh(), seg.MaxSpeedKmh)
		bands := make([]string, len(seg.SpeedProfile))
		for j, b := range seg.SpeedProfile {
			bands[j] = fmt.Sprintf("%.1f-%.1f km @ %.0f", b.StartKm, b.EndKm, b.SpeedKmh)
		}
		if len(bands) > 0 {
			fmt.Printf("   %s\n", strings.Join(bands, ", "))
		}
	}
	fmt.Printf("Route: %.1f km, travel time %s at %g km/h\n",
		route.TotalLengthMeters/1000, routing.FormatDuration(route.TotalTimeSeconds), *vmax)
	if *departure != "" {
		fmt.Printf("Arrival: %s\n", route.ArrivalTime(dep).Format("15:04"))
	}
}

// inspectNetwork fetches the network the route would use and reports its
// size and connectivity.
func inspectNetwork(ctx context.Context, cfg config.Config, src config.Source, waypoints []routing.Waypoint) error {
	coords := make([]geo.Coordinate, len(waypoints))
	for i, w := range waypoints {
		coords[i] = w.Coordinate
	}
	bound := geo.PaddedBound(coords, cfg.Routing.PaddingKm)

	start := time.Now()
	data, err := src.Fetcher.FetchRailNetwork(ctx, bound)
	if err != nil {
		return fmt.Errorf("fetch network: %w", err)
	}
	fmt.Printf("Fetched %d nodes, %d ways in %s\n", len(data.Nodes), len(data.Ways), time.Since(start).Round(time.Millisecond))

	g := graph.Build(data)
	fmt.Printf("Graph: %d nodes, %d edges\n", g.NumNodes(), g.NumEdges())
	if g.NumNodes() == 0 {
		return nil
	}

	comps := graph.FindComponents(g)
	fmt.Printf("Components: %d, largest %d nodes (%.1f%%)\n",
		comps.Count(), comps.LargestSize(), float64(comps.LargestSize())/float64(g.NumNodes())*100)

	loc := graph.NewLinearLocator(g)
	for _, w := range waypoints {
		n, _ := loc.Nearest(w.Coordinate)
		fmt.Printf("%s -> node %d (%.0f m, component of %d nodes)\n",
			w, n.ID, geo.Distance(w.Coordinate, n.Coordinate()), comps.Size(n.ID))
	}
	return nil
}
