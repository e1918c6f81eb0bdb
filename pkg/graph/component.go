package graph

import "github.com/paulmach/osm"

// Components labels every node with the connected piece of track network it
// belongs to. Track edges are always added in both directions, so a
// component is also exactly the set of nodes reachable from any member.
type Components struct {
	g     *Graph
	label []int32 // component per node index
	sizes []int   // node count per component
}

// FindComponents flood-fills g from every unlabelled node, in node order.
// Component numbers therefore follow the order of their first node.
func FindComponents(g *Graph) *Components {
	n := g.NumNodes()
	c := &Components{g: g, label: make([]int32, n)}
	for i := range c.label {
		c.label[i] = -1
	}

	var queue []int32
	for seed := range int32(n) {
		if c.label[seed] >= 0 {
			continue
		}
		id := int32(len(c.sizes))
		c.label[seed] = id
		size := 0
		queue = append(queue[:0], seed)
		for len(queue) > 0 {
			u := queue[len(queue)-1]
			queue = queue[:len(queue)-1]
			size++
			for _, e := range g.EdgesAt(u) {
				v, _ := g.Index(e.To)
				if c.label[v] < 0 {
					c.label[v] = id
					queue = append(queue, v)
				}
			}
		}
		c.sizes = append(c.sizes, size)
	}
	return c
}

// Count returns the number of components, isolated nodes included.
func (c *Components) Count() int { return len(c.sizes) }

// LargestSize returns the node count of the largest component.
func (c *Components) LargestSize() int {
	largest := 0
	for _, s := range c.sizes {
		largest = max(largest, s)
	}
	return largest
}

// Size returns the node count of the component containing id, or 0 for an
// unknown node.
func (c *Components) Size(id osm.NodeID) int {
	i, ok := c.g.Index(id)
	if !ok {
		return 0
	}
	return c.sizes[c.label[i]]
}

// Connected reports whether a train can run between a and b.
// Unknown IDs are never connected.
func (c *Components) Connected(a, b osm.NodeID) bool {
	ia, okA := c.g.Index(a)
	ib, okB := c.g.Index(b)
	if !okA || !okB {
		return false
	}
	return c.label[ia] == c.label[ib]
}
