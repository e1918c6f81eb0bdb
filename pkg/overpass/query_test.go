package overpass

import (
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
)

func TestQuery(t *testing.T) {
	b := orb.Bound{Min: orb.Point{13.1, 52.25}, Max: orb.Point{13.75, 52.5}}

	got := Query(b, 60*time.Second)

	want := `[out:json][timeout:60]; (way["railway"~"^(rail|railway)$"](52.25,13.1,52.5,13.75); >;); out body;`
	assert.Equal(t, want, got)
}

func TestQueryTimeoutTruncatesToSeconds(t *testing.T) {
	b := orb.Bound{}
	assert.Contains(t, Query(b, 1500*time.Millisecond), "[timeout:1]")
}
