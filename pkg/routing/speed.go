package routing

import "math"

// searchSpeed is the edge weight speed of the pathfinder: the track limit
// capped by the vehicle maximum, or the vehicle maximum when unknown.
func searchSpeed(vehicleMax, trackMax float64) float64 {
	if trackMax > 0 {
		return math.Min(vehicleMax, trackMax)
	}
	return vehicleMax
}

// profileSpeed returns the speed of an edge in a segment profile and the
// track limit to carry to the next edge. An edge with no known limit
// inherits lastKnown, or runs at the vehicle maximum if nothing is known yet.
func profileSpeed(vehicleMax, trackMax, lastKnown float64) (speed, carried float64) {
	if trackMax > 0 {
		lastKnown = trackMax
	}
	if lastKnown > 0 {
		return math.Min(vehicleMax, lastKnown), lastKnown
	}
	return vehicleMax, 0
}

// travelSeconds converts a length at a speed to seconds.
func travelSeconds(lengthMeters, speedKmh float64) float64 {
	return lengthMeters / 1000 / speedKmh * 3600
}
