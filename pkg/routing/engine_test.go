package routing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/paulmach/osm"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rail_router/pkg/geo"
	"rail_router/pkg/overpass"
)

// equatorLine is five nodes 0.01 degrees apart on one 100 km/h way.
func equatorLine() *osm.OSM {
	return buildOSM(
		[]testNode{{1, 0, 0}, {2, 0, 0.01}, {3, 0, 0.02}, {4, 0, 0.03}, {5, 0, 0.04}},
		[]testWay{{10, "100", []osm.NodeID{1, 2, 3, 4, 5}}},
	)
}

func newTestEngine(t *testing.T, source overpass.Fetcher, opts Options) *Engine {
	t.Helper()
	logger, _ := test.NewNullLogger()
	return NewEngine(source, opts, logger)
}

func TestComputeRouteThreeWaypoints(t *testing.T) {
	src := &fakeSource{data: equatorLine()}
	e := newTestEngine(t, src, DefaultOptions())

	route, err := e.ComputeRoute(context.Background(),
		[]Waypoint{wp("A", 0.001, 0), wp("B", 0, 0.02), wp("C", 0, 0.04)}, 120)
	require.NoError(t, err)

	require.Len(t, route.Segments, 2)
	assert.Equal(t, "A", route.Segments[0].From.Label)
	assert.Equal(t, "B", route.Segments[0].To.Label)
	assert.Equal(t, "B", route.Segments[1].From.Label)
	assert.Equal(t, "C", route.Segments[1].To.Label)

	b := geo.Coordinate{Lat: 0, Lon: 0.02}
	require.Len(t, route.Polyline, 5)
	count := 0
	for _, c := range route.Polyline {
		if c == b {
			count++
		}
	}
	assert.Equal(t, 1, count, "junction appears once")
	assert.Equal(t, geo.Coordinate{Lat: 0, Lon: 0}, route.Polyline[0], "first point is the snapped node")

	edge := geo.Haversine(0, 0, 0, 0.01)
	assert.InDelta(t, 4*edge, route.TotalLengthMeters, 1e-6)
	assert.InDelta(t, 4*edge/(100/3.6), route.TotalTimeSeconds, 1e-6)
	assert.InDelta(t, route.Segments[0].TimeSeconds+route.Segments[1].TimeSeconds, route.TotalTimeSeconds, 1e-9)
	assert.Equal(t, int32(1), src.calls.Load(), "one fetch per request")

	assert.Equal(t, Stats{Routes: 1}, e.Stats())
}

func TestComputeRoutePadsBound(t *testing.T) {
	src := &fakeSource{data: equatorLine()}
	opts := DefaultOptions()
	opts.PaddingKm = 10
	e := newTestEngine(t, src, opts)

	_, err := e.ComputeRoute(context.Background(), []Waypoint{wp("A", 0, 0), wp("B", 0, 0.04)}, 120)
	require.NoError(t, err)

	want := geo.PaddedBound([]geo.Coordinate{{Lat: 0, Lon: 0}, {Lat: 0, Lon: 0.04}}, 10)
	assert.Equal(t, want, src.bound)
	assert.InDelta(t, -10/geo.KmPerDegree, src.bound.Min.Lat(), 1e-12)
	assert.InDelta(t, 0.04+10/geo.KmPerDegree, src.bound.Max.Lon(), 1e-12)
}

func TestComputeRouteEmptyRegion(t *testing.T) {
	src := &fakeSource{data: &osm.OSM{}}
	e := newTestEngine(t, src, DefaultOptions())

	route, err := e.ComputeRoute(context.Background(), []Waypoint{wp("A", 0, 0), wp("B", 1, 1)}, 120)
	assert.Nil(t, route)
	assert.ErrorIs(t, err, ErrNoRailDataInRegion)
	assert.Equal(t, Stats{Failures: 1}, e.Stats())
}

func TestComputeRouteFetchError(t *testing.T) {
	cause := errors.New("boom")
	src := &fakeSource{err: cause}
	e := newTestEngine(t, src, DefaultOptions())

	_, err := e.ComputeRoute(context.Background(), []Waypoint{wp("A", 0, 0), wp("B", 1, 1)}, 120)
	assert.ErrorIs(t, err, ErrNetworkUnavailable)
	assert.ErrorIs(t, err, cause)
}

func TestComputeRouteAllMirrorsDown(t *testing.T) {
	var calls atomic.Int32
	endpoints := make([]string, 3)
	for i := range endpoints {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusInternalServerError)
		}))
		t.Cleanup(srv.Close)
		endpoints[i] = srv.URL
	}

	cfg := overpass.DefaultConfig()
	cfg.Endpoints = endpoints
	cfg.RetryDelay = time.Millisecond
	logger, _ := test.NewNullLogger()
	client := overpass.NewClient(cfg, nil, logger)
	e := newTestEngine(t, client, DefaultOptions())

	_, err := e.ComputeRoute(context.Background(), []Waypoint{wp("A", 0, 0), wp("B", 0, 0.04)}, 120)
	assert.ErrorIs(t, err, ErrNetworkUnavailable)
	assert.ErrorIs(t, err, overpass.ErrAllEndpointsFailed)
	assert.Equal(t, int32(6), calls.Load())
}

func TestComputeRouteOffline(t *testing.T) {
	src := &fakeSource{data: equatorLine()}
	opts := DefaultOptions()
	opts.Online = func(context.Context) bool { return false }
	e := newTestEngine(t, src, opts)

	_, err := e.ComputeRoute(context.Background(), []Waypoint{wp("A", 0, 0), wp("B", 0, 0.04)}, 120)
	assert.ErrorIs(t, err, ErrOffline)
	assert.Zero(t, src.calls.Load())
}

func TestComputeRouteNoPath(t *testing.T) {
	src := &fakeSource{data: buildOSM(
		[]testNode{{1, 0, 0}, {2, 0, 0.01}, {3, 1, 1}, {4, 1, 1.01}},
		[]testWay{{1, "", []osm.NodeID{1, 2}}, {2, "", []osm.NodeID{3, 4}}},
	)}
	e := newTestEngine(t, src, DefaultOptions())

	_, err := e.ComputeRoute(context.Background(), []Waypoint{wp("Here", 0, 0), wp("There", 1, 1)}, 120)
	require.Error(t, err)

	var noPath *NoPathError
	require.ErrorAs(t, err, &noPath)
	assert.Equal(t, "Here", noPath.From.Label)
	assert.Equal(t, "There", noPath.To.Label)
	assert.ErrorIs(t, err, ErrNoPathFound)
}

func TestComputeRouteValidation(t *testing.T) {
	src := &fakeSource{data: equatorLine()}
	e := newTestEngine(t, src, DefaultOptions())
	ctx := context.Background()

	_, err := e.ComputeRoute(ctx, []Waypoint{wp("A", 0, 0)}, 120)
	assert.ErrorIs(t, err, ErrTooFewWaypoints)

	for _, v := range []float64{0, -10} {
		_, err = e.ComputeRoute(ctx, []Waypoint{wp("A", 0, 0), wp("B", 0, 0.04)}, v)
		assert.ErrorIs(t, err, ErrInvalidSpeed)
	}
	assert.Zero(t, src.calls.Load())
}

func TestComputeRouteCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	src := &fakeSource{err: context.Canceled}
	e := newTestEngine(t, src, DefaultOptions())

	_, err := e.ComputeRoute(ctx, []Waypoint{wp("A", 0, 0), wp("B", 0, 0.04)}, 120)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrNetworkUnavailable)
}

func TestComputeRouteIdempotent(t *testing.T) {
	src := &fakeSource{data: equatorLine()}
	e := newTestEngine(t, src, DefaultOptions())
	wps := []Waypoint{wp("A", 0, 0), wp("B", 0, 0.02), wp("C", 0, 0.04)}

	first, err := e.ComputeRoute(context.Background(), wps, 80)
	require.NoError(t, err)
	second, err := e.ComputeRoute(context.Background(), wps, 80)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestComputeRouteModesAgree(t *testing.T) {
	data := equatorLine()
	wps := []Waypoint{wp("A", 0, 0), wp("B", 0.002, 0.021), wp("C", 0, 0.03), wp("D", 0, 0.04)}

	base, err := newTestEngine(t, &fakeSource{data: data}, DefaultOptions()).
		ComputeRoute(context.Background(), wps, 120)
	require.NoError(t, err)

	parallel := DefaultOptions()
	parallel.ParallelSegments = true
	rtree := DefaultOptions()
	rtree.Locator = LocatorRTree

	for name, opts := range map[string]Options{"parallel": parallel, "rtree": rtree} {
		t.Run(name, func(t *testing.T) {
			got, err := newTestEngine(t, &fakeSource{data: data}, opts).
				ComputeRoute(context.Background(), wps, 120)
			require.NoError(t, err)
			assert.Equal(t, base, got)
		})
	}
}

func TestComputeRouteParallelReportsFirstFailure(t *testing.T) {
	src := &fakeSource{data: buildOSM(
		[]testNode{{1, 0, 0}, {2, 0, 0.01}, {3, 1, 1}, {4, 1, 1.01}},
		[]testWay{{1, "", []osm.NodeID{1, 2}}, {2, "", []osm.NodeID{3, 4}}},
	)}
	opts := DefaultOptions()
	opts.ParallelSegments = true
	e := newTestEngine(t, src, opts)

	wps := []Waypoint{wp("A", 0, 0), wp("B", 1, 1), wp("C", 0, 0.01)}
	_, err := e.ComputeRoute(context.Background(), wps, 120)

	var noPath *NoPathError
	require.ErrorAs(t, err, &noPath)
	assert.Equal(t, "A", noPath.From.Label)
}

func TestComputeRouteResetsInheritedSpeedPerSegment(t *testing.T) {
	src := &fakeSource{data: buildOSM(
		[]testNode{{1, 0, 0}, {2, 0, 0.01}, {3, 0, 0.02}},
		[]testWay{{1, "80", []osm.NodeID{1, 2}}, {2, "", []osm.NodeID{2, 3}}},
	)}
	e := newTestEngine(t, src, DefaultOptions())

	route, err := e.ComputeRoute(context.Background(),
		[]Waypoint{wp("A", 0, 0), wp("B", 0, 0.01), wp("C", 0, 0.02)}, 120)
	require.NoError(t, err)

	require.Len(t, route.Segments, 2)
	assert.Equal(t, 80.0, route.Segments[0].SpeedProfile[0].SpeedKmh)
	assert.Equal(t, 120.0, route.Segments[1].SpeedProfile[0].SpeedKmh)
}

func TestComputeRouteSameSnappedNode(t *testing.T) {
	src := &fakeSource{data: equatorLine()}
	e := newTestEngine(t, src, DefaultOptions())

	route, err := e.ComputeRoute(context.Background(),
		[]Waypoint{wp("A", 0.001, 0), wp("B", -0.001, 0)}, 120)
	require.NoError(t, err)

	require.Len(t, route.Segments, 1)
	assert.Zero(t, route.TotalTimeSeconds)
	assert.Equal(t, []geo.Coordinate{{Lat: 0, Lon: 0}}, route.Polyline)
}
