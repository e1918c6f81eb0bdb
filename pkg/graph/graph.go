package graph

import (
	"github.com/paulmach/osm"

	"rail_router/pkg/geo"
)

// Node is a single infrastructure point.
type Node struct {
	ID  osm.NodeID
	Lat float64
	Lon float64
}

// Coordinate returns the node position.
func (n Node) Coordinate() geo.Coordinate {
	return geo.Coordinate{Lat: n.Lat, Lon: n.Lon}
}

// Edge is a directed track segment between two adjacent way nodes.
// MaxSpeedKmh is 0 when the way carries no usable maxspeed tag.
type Edge struct {
	From         osm.NodeID
	To           osm.NodeID
	LengthMeters float64
	WayID        osm.WayID
	MaxSpeedKmh  float64
}

// HasMaxSpeed reports whether the edge carries a known speed limit.
func (e Edge) HasMaxSpeed() bool {
	return e.MaxSpeedKmh > 0
}

// Graph is an adjacency-list rail graph. Nodes keep the order in which they
// were added; that order defines iteration and tie-breaking everywhere.
// A Graph is read-only once Build returns and may be shared between goroutines.
type Graph struct {
	nodes []Node
	index map[osm.NodeID]int32
	adj   [][]Edge // parallel to nodes

	numEdges int
}

func newGraph(capacity int) *Graph {
	return &Graph{
		nodes: make([]Node, 0, capacity),
		index: make(map[osm.NodeID]int32, capacity),
		adj:   make([][]Edge, 0, capacity),
	}
}

// addNode inserts n unless a node with the same ID exists. First one wins.
func (g *Graph) addNode(n Node) {
	if _, ok := g.index[n.ID]; ok {
		return
	}
	g.index[n.ID] = int32(len(g.nodes))
	g.nodes = append(g.nodes, n)
	g.adj = append(g.adj, nil)
}

func (g *Graph) addEdge(e Edge) {
	i := g.index[e.From]
	g.adj[i] = append(g.adj[i], e)
	g.numEdges++
}

// NumNodes returns the number of nodes.
func (g *Graph) NumNodes() int { return len(g.nodes) }

// NumEdges returns the number of directed edges.
func (g *Graph) NumEdges() int { return g.numEdges }

// Nodes returns the nodes in insertion order. Callers must not modify it.
func (g *Graph) Nodes() []Node { return g.nodes }

// Node looks up a node by ID.
func (g *Graph) Node(id osm.NodeID) (Node, bool) {
	i, ok := g.index[id]
	if !ok {
		return Node{}, false
	}
	return g.nodes[i], true
}

// EdgesFrom returns the outgoing edges of id in insertion order.
func (g *Graph) EdgesFrom(id osm.NodeID) []Edge {
	i, ok := g.index[id]
	if !ok {
		return nil
	}
	return g.adj[i]
}

// Index returns the dense index of id, used by searches that keep per-node
// state in slices.
func (g *Graph) Index(id osm.NodeID) (int32, bool) {
	i, ok := g.index[id]
	return i, ok
}

// At returns the node stored at dense index i.
func (g *Graph) At(i int32) Node { return g.nodes[i] }

// EdgesAt returns the outgoing edges of the node at dense index i.
func (g *Graph) EdgesAt(i int32) []Edge { return g.adj[i] }
