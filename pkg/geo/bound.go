package geo

import "github.com/paulmach/orb"

// KmPerDegree is the flat approximation used to turn padding in kilometers
// into degrees, for both latitude and longitude.
const KmPerDegree = 111.0

// PaddedBound returns the bounding box of pts grown by padKm on every side.
// An empty input yields an inverted bound, which selects nothing.
func PaddedBound(pts []Coordinate, padKm float64) orb.Bound {
	minLat, maxLat := 90.0, -90.0
	minLon, maxLon := 180.0, -180.0
	for _, p := range pts {
		if p.Lat < minLat {
			minLat = p.Lat
		}
		if p.Lat > maxLat {
			maxLat = p.Lat
		}
		if p.Lon < minLon {
			minLon = p.Lon
		}
		if p.Lon > maxLon {
			maxLon = p.Lon
		}
	}

	pad := padKm / KmPerDegree
	return orb.Bound{
		Min: orb.Point{minLon - pad, minLat - pad},
		Max: orb.Point{maxLon + pad, maxLat + pad},
	}
}

// ToLineString converts coordinates to an orb line string (lon, lat order).
func ToLineString(pts []Coordinate) orb.LineString {
	ls := make(orb.LineString, len(pts))
	for i, p := range pts {
		ls[i] = orb.Point{p.Lon, p.Lat}
	}
	return ls
}
