package graph

import (
	"strconv"
	"strings"

	"github.com/paulmach/osm"

	"rail_router/pkg/geo"
)

// Build creates a Graph from raw OSM nodes and ways.
//
// Every node becomes a graph node. For each pair of consecutive nodes along
// a way, two directed edges (A->B and B->A) are inserted with the haversine
// length and the way's maxspeed. Pairs where either node is missing from the
// data are skipped, so incomplete data yields disconnected pieces, not errors.
func Build(data *osm.OSM) *Graph {
	if data == nil {
		return newGraph(0)
	}

	g := newGraph(len(data.Nodes))
	for _, n := range data.Nodes {
		if n == nil {
			continue
		}
		g.addNode(Node{ID: n.ID, Lat: n.Lat, Lon: n.Lon})
	}

	for _, w := range data.Ways {
		if w == nil {
			continue
		}
		maxSpeed := ParseMaxSpeed(w.Tags.Find("maxspeed"))

		for i := 0; i+1 < len(w.Nodes); i++ {
			a, okA := g.Node(w.Nodes[i].ID)
			b, okB := g.Node(w.Nodes[i+1].ID)
			if !okA || !okB {
				continue
			}

			length := geo.Haversine(a.Lat, a.Lon, b.Lat, b.Lon)
			g.addEdge(Edge{From: a.ID, To: b.ID, LengthMeters: length, WayID: w.ID, MaxSpeedKmh: maxSpeed})
			g.addEdge(Edge{From: b.ID, To: a.ID, LengthMeters: length, WayID: w.ID, MaxSpeedKmh: maxSpeed})
		}
	}

	return g
}

// ParseMaxSpeed reads the leading integer of a maxspeed tag value, so
// "160", " 80 mph" and "100;60" give 160, 80 and 100. Values with no leading
// integer ("none", "signals", "") and non-positive values give 0 (unknown).
func ParseMaxSpeed(v string) float64 {
	v = strings.TrimLeft(v, " \t\n\r")
	end := 0
	if end < len(v) && (v[end] == '+' || v[end] == '-') {
		end++
	}
	digits := end
	for end < len(v) && v[end] >= '0' && v[end] <= '9' {
		end++
	}
	if end == digits {
		return 0
	}

	n, err := strconv.Atoi(v[:end])
	if err != nil || n <= 0 {
		return 0
	}
	return float64(n)
}
