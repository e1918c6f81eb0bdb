package graph

import (
	"github.com/paulmach/osm"
)

// testData builds raw OSM data from nodes and ways, in the given order.
func testData(nodes []osm.Node, ways ...*osm.Way) *osm.OSM {
	o := &osm.OSM{}
	for i := range nodes {
		n := nodes[i]
		o.Nodes = append(o.Nodes, &n)
	}
	o.Ways = append(o.Ways, ways...)
	return o
}

func way(id osm.WayID, maxspeed string, nodeIDs ...osm.NodeID) *osm.Way {
	w := &osm.Way{ID: id, Tags: osm.Tags{{Key: "railway", Value: "rail"}}}
	if maxspeed != "" {
		w.Tags = append(w.Tags, osm.Tag{Key: "maxspeed", Value: maxspeed})
	}
	for _, nid := range nodeIDs {
		w.Nodes = append(w.Nodes, osm.WayNode{ID: nid})
	}
	return w
}
