package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaddedBound(t *testing.T) {
	pts := []Coordinate{
		{Lat: 52.0, Lon: 13.0},
		{Lat: 53.0, Lon: 12.0},
		{Lat: 52.5, Lon: 14.0},
	}
	b := PaddedBound(pts, 25)
	pad := 25 / KmPerDegree

	assert.InDelta(t, 52.0-pad, b.Min.Lat(), 1e-12)
	assert.InDelta(t, 12.0-pad, b.Min.Lon(), 1e-12)
	assert.InDelta(t, 53.0+pad, b.Max.Lat(), 1e-12)
	assert.InDelta(t, 14.0+pad, b.Max.Lon(), 1e-12)
}

func TestPaddedBoundZeroPadding(t *testing.T) {
	b := PaddedBound([]Coordinate{{Lat: 1, Lon: 2}, {Lat: 3, Lon: 4}}, 0)
	assert.Equal(t, 1.0, b.Min.Lat())
	assert.Equal(t, 2.0, b.Min.Lon())
	assert.Equal(t, 3.0, b.Max.Lat())
	assert.Equal(t, 4.0, b.Max.Lon())
}

func TestToLineString(t *testing.T) {
	ls := ToLineString([]Coordinate{{Lat: 1, Lon: 2}, {Lat: 3, Lon: 4}})
	assert.Len(t, ls, 2)
	assert.Equal(t, 1.0, ls[0].Lat())
	assert.Equal(t, 2.0, ls[0].Lon())
}
