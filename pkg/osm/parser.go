package osm

import (
	"context"
	"fmt"
	"io"
	"os"
	"regexp"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"github.com/sirupsen/logrus"
)

// railwayValue matches the railway tag values routed over.
var railwayValue = regexp.MustCompile(`^(rail|railway)$`)

// IsRailway returns true if the way is mainline track.
func IsRailway(tags osm.Tags) bool {
	return railwayValue.MatchString(tags.Find("railway"))
}

// Parse reads an OSM PBF stream and returns the railway ways that have at
// least one node inside b, together with every node those ways reference.
// Ways keep file order and nodes follow file order as well, matching what an
// Overpass "way(bbox); >;" query returns.
// The reader is consumed twice (seeks back to start for the second pass),
// so it must implement io.ReadSeeker.
func Parse(ctx context.Context, rs io.ReadSeeker, b orb.Bound, logger logrus.FieldLogger) (*osm.OSM, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	// Pass 1: Collect railway ways.
	var ways osm.Ways
	referenced := make(map[osm.NodeID]struct{})

	scanner := osmpbf.New(ctx, rs, 1)
	scanner.SkipNodes = true
	scanner.SkipRelations = true

	for scanner.Scan() {
		w, ok := scanner.Object().(*osm.Way)
		if !ok || !IsRailway(w.Tags) || len(w.Nodes) < 2 {
			continue
		}
		ways = append(ways, w)
		for _, wn := range w.Nodes {
			referenced[wn.ID] = struct{}{}
		}
	}
	if err := scanner.Err(); err != nil {
		scanner.Close()
		return nil, fmt.Errorf("pass 1 (ways): %w", err)
	}
	scanner.Close()

	logger.WithFields(logrus.Fields{"ways": len(ways), "nodes": len(referenced)}).Debug("pass 1 complete")

	// Pass 2: Collect referenced nodes.
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek for pass 2: %w", err)
	}

	nodes := make(map[osm.NodeID]*osm.Node, len(referenced))
	var order []osm.NodeID

	scanner = osmpbf.New(ctx, rs, 1)
	scanner.SkipWays = true
	scanner.SkipRelations = true

	for scanner.Scan() {
		n, ok := scanner.Object().(*osm.Node)
		if !ok {
			continue
		}
		if _, needed := referenced[n.ID]; !needed {
			continue
		}
		nodes[n.ID] = &osm.Node{ID: n.ID, Lat: n.Lat, Lon: n.Lon}
		order = append(order, n.ID)
	}
	if err := scanner.Err(); err != nil {
		scanner.Close()
		return nil, fmt.Errorf("pass 2 (nodes): %w", err)
	}
	scanner.Close()

	return selectInBound(ways, nodes, order, b), nil
}

// selectInBound keeps the ways touching b and the nodes they reference.
func selectInBound(ways osm.Ways, nodes map[osm.NodeID]*osm.Node, order []osm.NodeID, b orb.Bound) *osm.OSM {
	out := &osm.OSM{}
	keep := make(map[osm.NodeID]struct{})

	for _, w := range ways {
		inside := false
		for _, wn := range w.Nodes {
			if n, ok := nodes[wn.ID]; ok && b.Contains(orb.Point{n.Lon, n.Lat}) {
				inside = true
				break
			}
		}
		if !inside {
			continue
		}
		out.Ways = append(out.Ways, w)
		for _, wn := range w.Nodes {
			keep[wn.ID] = struct{}{}
		}
	}

	for _, id := range order {
		if _, ok := keep[id]; ok {
			out.Nodes = append(out.Nodes, nodes[id])
		}
	}
	return out
}

// FileSource serves rail networks from a local .osm.pbf extract, for
// deployments without access to an Overpass mirror.
type FileSource struct {
	path string
	log  logrus.FieldLogger
}

// NewFileSource creates a FileSource reading path on every request.
func NewFileSource(path string, logger logrus.FieldLogger) *FileSource {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &FileSource{path: path, log: logger.WithField("module", "pbf")}
}

// FetchRailNetwork implements overpass.Fetcher.
func (s *FileSource) FetchRailNetwork(ctx context.Context, b orb.Bound) (*osm.OSM, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open extract: %w", err)
	}
	defer f.Close()

	data, err := Parse(ctx, f, b, s.log)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}
	s.log.WithFields(logrus.Fields{
		"nodes": len(data.Nodes),
		"ways":  len(data.Ways),
	}).Debug("loaded rail network from extract")
	return data, nil
}
