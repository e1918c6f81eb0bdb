package osm

import (
	"bytes"
	"encoding/binary"
	"maps"
	"math"
	"slices"
	"testing"

	"github.com/paulmach/osm"
	"google.golang.org/protobuf/encoding/protowire"
)

// pbfNode and pbfWay describe the contents of a generated extract.
type pbfNode struct {
	id       osm.NodeID
	lat, lon float64
}

type pbfWay struct {
	id    osm.WayID
	tags  map[string]string
	nodes []osm.NodeID
}

// writePBF encodes nodes and ways as a minimal uncompressed .osm.pbf: one
// header block and one data block holding a dense node group followed by a
// way group. Nodes are written in the given order.
func writePBF(t *testing.T, nodes []pbfNode, ways []pbfWay) []byte {
	t.Helper()

	var header []byte
	header = protowire.AppendTag(header, 4, protowire.BytesType)
	header = protowire.AppendString(header, "OsmSchema-V0.6")
	header = protowire.AppendTag(header, 4, protowire.BytesType)
	header = protowire.AppendString(header, "DenseNodes")

	stringTable := []string{""}
	index := map[string]uint64{"": 0}
	str := func(s string) uint64 {
		if i, ok := index[s]; ok {
			return i
		}
		index[s] = uint64(len(stringTable))
		stringTable = append(stringTable, s)
		return index[s]
	}

	var wayMsgs [][]byte
	for _, w := range ways {
		var keys, vals, refs []byte
		for _, k := range slices.Sorted(maps.Keys(w.tags)) {
			keys = protowire.AppendVarint(keys, str(k))
			vals = protowire.AppendVarint(vals, str(w.tags[k]))
		}
		var prev int64
		for _, id := range w.nodes {
			refs = protowire.AppendVarint(refs, protowire.EncodeZigZag(int64(id)-prev))
			prev = int64(id)
		}

		var msg []byte
		msg = protowire.AppendTag(msg, 1, protowire.VarintType)
		msg = protowire.AppendVarint(msg, uint64(w.id))
		msg = appendBytes(msg, 2, keys)
		msg = appendBytes(msg, 3, vals)
		msg = appendBytes(msg, 8, refs)
		wayMsgs = append(wayMsgs, msg)
	}

	var ids, lats, lons []byte
	var prevID, prevLat, prevLon int64
	for _, n := range nodes {
		lat := int64(math.Round(n.lat * 1e7))
		lon := int64(math.Round(n.lon * 1e7))
		ids = protowire.AppendVarint(ids, protowire.EncodeZigZag(int64(n.id)-prevID))
		lats = protowire.AppendVarint(lats, protowire.EncodeZigZag(lat-prevLat))
		lons = protowire.AppendVarint(lons, protowire.EncodeZigZag(lon-prevLon))
		prevID, prevLat, prevLon = int64(n.id), lat, lon
	}
	var dense []byte
	dense = appendBytes(dense, 1, ids)
	dense = appendBytes(dense, 8, lats)
	dense = appendBytes(dense, 9, lons)

	var nodeGroup, wayGroup []byte
	nodeGroup = appendBytes(nodeGroup, 2, dense)
	for _, msg := range wayMsgs {
		wayGroup = appendBytes(wayGroup, 3, msg)
	}

	var table []byte
	for _, s := range stringTable {
		table = appendBytes(table, 1, []byte(s))
	}

	var block []byte
	block = appendBytes(block, 1, table)
	block = appendBytes(block, 2, nodeGroup)
	block = appendBytes(block, 2, wayGroup)
	block = protowire.AppendTag(block, 17, protowire.VarintType)
	block = protowire.AppendVarint(block, 100)

	var buf bytes.Buffer
	writeFileBlock(&buf, "OSMHeader", header)
	writeFileBlock(&buf, "OSMData", block)
	return buf.Bytes()
}

func writeFileBlock(buf *bytes.Buffer, kind string, data []byte) {
	var blob []byte
	blob = appendBytes(blob, 1, data)
	blob = protowire.AppendTag(blob, 2, protowire.VarintType)
	blob = protowire.AppendVarint(blob, uint64(len(data)))

	var header []byte
	header = protowire.AppendTag(header, 1, protowire.BytesType)
	header = protowire.AppendString(header, kind)
	header = protowire.AppendTag(header, 3, protowire.VarintType)
	header = protowire.AppendVarint(header, uint64(len(blob)))

	var size [4]byte
	binary.BigEndian.PutUint32(size[:], uint32(len(header)))
	buf.Write(size[:])
	buf.Write(header)
	buf.Write(blob)
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

