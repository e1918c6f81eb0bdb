package routing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"rail_router/pkg/geo"
	"rail_router/pkg/graph"
	"rail_router/pkg/overpass"
)

// LocatorKind selects how waypoints are matched to graph nodes.
type LocatorKind string

const (
	LocatorLinear LocatorKind = "linear"
	LocatorRTree  LocatorKind = "rtree"
)

// Options configures an Engine.
type Options struct {
	// PaddingKm grows the waypoint bounding box on every side.
	PaddingKm float64
	// ParallelSegments runs the per-segment searches concurrently.
	ParallelSegments bool
	Locator          LocatorKind
	// Online reports connectivity before any fetch. Nil means always online.
	Online func(ctx context.Context) bool
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		PaddingKm: 25,
		Locator:   LocatorLinear,
	}
}

// Stats is a snapshot of engine counters.
type Stats struct {
	Routes   int64 `json:"routes"`
	Failures int64 `json:"failures"`
}

// Engine implements Router. Every call fetches the network for the
// itinerary, builds one graph and searches it segment by segment; nothing
// is kept between calls.
type Engine struct {
	source overpass.Fetcher
	opts   Options
	log    logrus.FieldLogger

	routes   *xsync.Counter
	failures *xsync.Counter
}

// NewEngine creates a routing engine reading networks from source.
func NewEngine(source overpass.Fetcher, opts Options, logger logrus.FieldLogger) *Engine {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Engine{
		source:   source,
		opts:     opts,
		log:      logger.WithField("module", "routing"),
		routes:   xsync.NewCounter(),
		failures: xsync.NewCounter(),
	}
}

// Stats returns route counters.
func (e *Engine) Stats() Stats {
	return Stats{Routes: e.routes.Value(), Failures: e.failures.Value()}
}

// ComputeRoute finds the fastest route through waypoints, in order, for a
// vehicle limited to vehicleMaxSpeedKmh. Any failure fails the whole
// request; no partial route is returned.
func (e *Engine) ComputeRoute(ctx context.Context, waypoints []Waypoint, vehicleMaxSpeedKmh float64) (*ComposedRoute, error) {
	start := time.Now()
	route, err := e.computeRoute(ctx, waypoints, vehicleMaxSpeedKmh)
	if err != nil {
		e.failures.Inc()
		e.log.WithError(err).WithField("waypoints", len(waypoints)).Info("route failed")
		return nil, err
	}

	e.routes.Inc()
	e.log.WithFields(logrus.Fields{
		"waypoints": len(waypoints),
		"length_km": math.Round(route.TotalLengthMeters) / 1000,
		"time_s":    math.Round(route.TotalTimeSeconds),
		"took":      time.Since(start).Round(time.Millisecond),
	}).Info("route computed")
	return route, nil
}

func (e *Engine) computeRoute(ctx context.Context, waypoints []Waypoint, vmax float64) (*ComposedRoute, error) {
	if len(waypoints) < 2 {
		return nil, ErrTooFewWaypoints
	}
	if math.IsNaN(vmax) || math.IsInf(vmax, 0) || vmax <= 0 {
		return nil, ErrInvalidSpeed
	}
	if e.opts.Online != nil && !e.opts.Online(ctx) {
		return nil, ErrOffline
	}

	// Step 1: Fetch one network covering every waypoint.
	coords := make([]geo.Coordinate, len(waypoints))
	for i, w := range waypoints {
		coords[i] = w.Coordinate
	}
	bound := geo.PaddedBound(coords, e.opts.PaddingKm)

	data, err := e.source.FetchRailNetwork(ctx, bound)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %w", ErrNetworkUnavailable, err)
	}
	if len(data.Nodes) == 0 {
		return nil, ErrNoRailDataInRegion
	}

	// Step 2: Build the graph shared by all segments.
	g := graph.Build(data)
	comps := graph.FindComponents(g)
	e.log.WithFields(logrus.Fields{
		"nodes":      g.NumNodes(),
		"edges":      g.NumEdges(),
		"components": comps.Count(),
	}).Debug("graph built")

	s := &search{g: g, comps: comps, locator: e.locator(g), vmax: vmax}

	// Step 3: Search each consecutive pair.
	var segments []RouteSegment
	if e.opts.ParallelSegments {
		segments, err = s.parallel(ctx, waypoints)
	} else {
		segments, err = s.sequential(ctx, waypoints)
	}
	if err != nil {
		return nil, err
	}

	// Step 4: Merge.
	return mergeSegments(segments), nil
}

func (e *Engine) locator(g *graph.Graph) graph.Locator {
	if e.opts.Locator == LocatorRTree {
		return graph.NewIndexLocator(g)
	}
	return graph.NewLinearLocator(g)
}

// search holds the read-only state shared by the segment searches of one
// request.
type search struct {
	g       *graph.Graph
	comps   *graph.Components
	locator graph.Locator
	vmax    float64
}

func (s *search) sequential(ctx context.Context, waypoints []Waypoint) ([]RouteSegment, error) {
	segments := make([]RouteSegment, 0, len(waypoints)-1)
	for i := 0; i+1 < len(waypoints); i++ {
		seg, err := s.segment(ctx, waypoints[i], waypoints[i+1])
		if err != nil {
			return nil, err
		}
		segments = append(segments, seg)
	}
	return segments, nil
}

// parallel searches all segments concurrently. Results keep itinerary
// order and the reported error is the one of the earliest failing segment.
func (s *search) parallel(ctx context.Context, waypoints []Waypoint) ([]RouteSegment, error) {
	n := len(waypoints) - 1
	segments := make([]RouteSegment, n)
	errs := make([]error, n)

	eg, egCtx := errgroup.WithContext(ctx)
	for i := range n {
		eg.Go(func() error {
			seg, err := s.segment(egCtx, waypoints[i], waypoints[i+1])
			segments[i] = seg
			errs[i] = err
			return err
		})
	}
	waitErr := eg.Wait()

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	for _, err := range errs {
		if err != nil && !errors.Is(err, context.Canceled) {
			return nil, err
		}
	}
	if waitErr != nil {
		return nil, waitErr
	}
	return segments, nil
}

func (s *search) segment(ctx context.Context, from, to Waypoint) (RouteSegment, error) {
	na, ok := s.locator.Nearest(from.Coordinate)
	if !ok {
		return RouteSegment{}, &NoRailDataNearPointError{Point: from}
	}
	nb, ok := s.locator.Nearest(to.Coordinate)
	if !ok {
		return RouteSegment{}, &NoRailDataNearPointError{Point: to}
	}

	if !s.comps.Connected(na.ID, nb.ID) {
		return RouteSegment{}, &NoPathError{From: from, To: to}
	}

	path, err := ShortestPath(ctx, s.g, na.ID, nb.ID, s.vmax)
	if err != nil {
		return RouteSegment{}, err
	}
	if path == nil {
		return RouteSegment{}, &NoPathError{From: from, To: to}
	}

	coord := func(step Step) geo.Coordinate {
		n, _ := s.g.Node(step.To)
		return n.Coordinate()
	}
	return composeSegment(from, to, na.Coordinate(), path, coord, s.vmax), nil
}
