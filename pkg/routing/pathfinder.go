package routing

import (
	"context"
	"math"

	"github.com/paulmach/osm"
	"github.com/samber/lo"

	"rail_router/pkg/graph"
)

const noNode = int32(-1)

// Step is one traversed edge of a path.
type Step struct {
	From osm.NodeID
	To   osm.NodeID
	Edge graph.Edge
}

// PathResult is the fastest path between two nodes.
type PathResult struct {
	Steps       []Step
	TimeSeconds float64
}

// ShortestPath runs Dijkstra over g minimizing travel time from startID to
// endID for a vehicle limited to vehicleMaxSpeedKmh.
//
// An edge is weighted at min(vehicle max, track limit), or the vehicle max
// when the track limit is unknown. Weights do not depend on the path taken.
// The search stops as soon as endID is popped from the frontier.
//
// It returns nil and no error when endID is unreachable. The error is only
// set when ctx is done.
func ShortestPath(ctx context.Context, g *graph.Graph, startID, endID osm.NodeID, vehicleMaxSpeedKmh float64) (*PathResult, error) {
	start, okS := g.Index(startID)
	end, okE := g.Index(endID)
	if !okS || !okE {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if start == end {
		return &PathResult{}, nil
	}

	n := g.NumNodes()
	dist := make([]float64, n)
	pred := make([]int32, n)
	predEdge := make([]graph.Edge, n)
	for i := range dist {
		dist[i] = math.Inf(1)
		pred[i] = noNode
	}
	dist[start] = 0

	var pq MinHeap
	pq.Push(start, 0)

	iterations := 0
	for pq.Len() > 0 {
		iterations++
		if iterations%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		item := pq.Pop()
		u := item.Node
		if u == end {
			break
		}
		if item.Time > dist[u] {
			continue // stale entry
		}

		for _, e := range g.EdgesAt(u) {
			v, _ := g.Index(e.To)
			alt := dist[u] + travelSeconds(e.LengthMeters, searchSpeed(vehicleMaxSpeedKmh, e.MaxSpeedKmh))
			if alt < dist[v] {
				dist[v] = alt
				pred[v] = u
				predEdge[v] = e
				pq.Push(v, alt)
			}
		}
	}

	if pred[end] == noNode {
		return nil, nil
	}

	var steps []Step
	for cur := end; cur != start; cur = pred[cur] {
		e := predEdge[cur]
		steps = append(steps, Step{From: e.From, To: e.To, Edge: e})
	}

	return &PathResult{
		Steps:       lo.Reverse(steps),
		TimeSeconds: dist[end],
	}, nil
}
