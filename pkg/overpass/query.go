package overpass

import (
	"fmt"
	"strconv"
	"time"

	"github.com/paulmach/orb"
)

// railwayFilter selects mainline track ways.
const railwayFilter = `way["railway"~"^(rail|railway)$"]`

// Query renders the Overpass QL query that selects railway ways inside b
// and recurses down to all of their nodes. The timeout is the server-side
// query timeout, truncated to whole seconds.
func Query(b orb.Bound, timeout time.Duration) string {
	return fmt.Sprintf("[out:json][timeout:%d]; (%s(%s,%s,%s,%s); >;); out body;",
		int(timeout/time.Second),
		railwayFilter,
		formatDeg(b.Min.Lat()), formatDeg(b.Min.Lon()),
		formatDeg(b.Max.Lat()), formatDeg(b.Max.Lon()),
	)
}

func formatDeg(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
