package geo

import "math"

const earthRadiusMeters = 6_371_000.0

// Coordinate is a WGS84 position in degrees.
type Coordinate struct {
	Lat float64
	Lon float64
}

// Haversine returns the great-circle distance in meters between two points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	lat1r := lat1 * math.Pi / 180
	lat2r := lat2 * math.Pi / 180
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1r)*math.Cos(lat2r)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

// Distance returns the haversine distance in meters between a and b.
func Distance(a, b Coordinate) float64 {
	return Haversine(a.Lat, a.Lon, b.Lat, b.Lon)
}

// PolylineLength sums the haversine distances between consecutive points.
func PolylineLength(pts []Coordinate) float64 {
	var total float64
	for i := 0; i+1 < len(pts); i++ {
		total += Distance(pts[i], pts[i+1])
	}
	return total
}

// DegreesToMeters converts an arc in degrees along a great circle to meters.
func DegreesToMeters(deg float64) float64 {
	return deg * math.Pi / 180 * earthRadiusMeters
}
