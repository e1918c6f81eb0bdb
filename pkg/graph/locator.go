package graph

import (
	"math"

	"github.com/tidwall/rtree"

	"rail_router/pkg/geo"
)

// Locator maps an arbitrary coordinate to the closest graph node.
type Locator interface {
	// Nearest returns the closest node, or false when there are no nodes.
	Nearest(target geo.Coordinate) (Node, bool)
}

// NearestNode scans nodes linearly and returns the one with the smallest
// haversine distance to target. Ties go to the first node encountered.
func NearestNode(nodes []Node, target geo.Coordinate) (Node, bool) {
	best := -1
	bestDist := math.Inf(1)
	for i, n := range nodes {
		d := geo.Haversine(n.Lat, n.Lon, target.Lat, target.Lon)
		if d < bestDist {
			bestDist = d
			best = i
		}
	}
	if best < 0 {
		return Node{}, false
	}
	return nodes[best], true
}

// LinearLocator answers Nearest with a full scan of the graph's nodes.
type LinearLocator struct {
	g *Graph
}

// NewLinearLocator creates a LinearLocator over g.
func NewLinearLocator(g *Graph) *LinearLocator {
	return &LinearLocator{g: g}
}

// Nearest implements Locator.
func (l *LinearLocator) Nearest(target geo.Coordinate) (Node, bool) {
	return NearestNode(l.g.Nodes(), target)
}

// IndexLocator answers Nearest from an R-tree over node positions.
// Candidates are visited in increasing planar distance and ranked by
// haversine distance, so results match NearestNode including its
// tie-breaking on node order.
type IndexLocator struct {
	g  *Graph
	tr rtree.RTreeG[int32]
}

// NewIndexLocator builds the R-tree for g.
func NewIndexLocator(g *Graph) *IndexLocator {
	l := &IndexLocator{g: g}
	for i, n := range g.Nodes() {
		p := [2]float64{n.Lon, n.Lat}
		l.tr.Insert(p, p, int32(i))
	}
	return l
}

// Nearest implements Locator.
func (l *IndexLocator) Nearest(target geo.Coordinate) (Node, bool) {
	if l.tr.Len() == 0 {
		return Node{}, false
	}

	best := int32(-1)
	bestDist := math.Inf(1)

	l.tr.Nearby(
		func(min, max [2]float64, _ int32, _ bool) float64 {
			return boxDistDeg(target, min, max)
		},
		func(_, _ [2]float64, idx int32, distDeg float64) bool {
			// Haversine never undercuts the planar degree distance scaled by
			// the smallest cos(lat) inside the search radius.
			if best >= 0 && lowerBoundMeters(target, distDeg) > bestDist {
				return false
			}
			n := l.g.At(idx)
			d := geo.Haversine(n.Lat, n.Lon, target.Lat, target.Lon)
			if d < bestDist || (d == bestDist && idx < best) {
				bestDist = d
				best = idx
			}
			return true
		},
	)

	return l.g.At(best), true
}

// boxDistDeg returns the planar distance in degrees from target to a box.
func boxDistDeg(target geo.Coordinate, min, max [2]float64) float64 {
	dx := axisDist(target.Lon, min[0], max[0])
	dy := axisDist(target.Lat, min[1], max[1])
	return math.Sqrt(dx*dx + dy*dy)
}

func axisDist(v, lo, hi float64) float64 {
	switch {
	case v < lo:
		return lo - v
	case v > hi:
		return v - hi
	}
	return 0
}

func lowerBoundMeters(target geo.Coordinate, distDeg float64) float64 {
	lat := math.Min(math.Abs(target.Lat)+distDeg, 90)
	return geo.DegreesToMeters(distDeg) * math.Cos(lat*math.Pi/180) * 0.99
}
