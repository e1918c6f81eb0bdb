package routing

import (
	"context"
	"sync/atomic"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"

	"rail_router/pkg/geo"
	"rail_router/pkg/graph"
)

type testNode struct {
	id       osm.NodeID
	lat, lon float64
}

type testWay struct {
	id       osm.WayID
	maxspeed string
	nodes    []osm.NodeID
}

func buildOSM(nodes []testNode, ways []testWay) *osm.OSM {
	o := &osm.OSM{}
	for _, n := range nodes {
		o.Nodes = append(o.Nodes, &osm.Node{ID: n.id, Lat: n.lat, Lon: n.lon})
	}
	for _, w := range ways {
		way := &osm.Way{ID: w.id, Tags: osm.Tags{{Key: "railway", Value: "rail"}}}
		if w.maxspeed != "" {
			way.Tags = append(way.Tags, osm.Tag{Key: "maxspeed", Value: w.maxspeed})
		}
		for _, id := range w.nodes {
			way.Nodes = append(way.Nodes, osm.WayNode{ID: id})
		}
		o.Ways = append(o.Ways, way)
	}
	return o
}

func buildGraph(nodes []testNode, ways []testWay) *graph.Graph {
	return graph.Build(buildOSM(nodes, ways))
}

// fakeSource serves a fixed network and counts calls.
type fakeSource struct {
	data  *osm.OSM
	err   error
	calls atomic.Int32
	bound orb.Bound
}

func (f *fakeSource) FetchRailNetwork(_ context.Context, b orb.Bound) (*osm.OSM, error) {
	f.calls.Add(1)
	f.bound = b
	return f.data, f.err
}

func wp(label string, lat, lon float64) Waypoint {
	return Waypoint{Coordinate: geo.Coordinate{Lat: lat, Lon: lon}, Label: label}
}
