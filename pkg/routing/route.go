package routing

import (
	"context"
	"time"

	"github.com/samber/lo"

	"rail_router/pkg/geo"
)

// SpeedBand is a stretch of a segment driven at one constant speed.
type SpeedBand struct {
	StartKm  float64
	EndKm    float64
	SpeedKmh float64
}

// RouteSegment is the fastest path between two consecutive waypoints.
type RouteSegment struct {
	From         Waypoint
	To           Waypoint
	TimeSeconds  float64
	LengthMeters float64
	Coordinates  []geo.Coordinate
	MaxSpeedKmh  float64 // highest effective speed on the segment
	SpeedProfile []SpeedBand
}

// AverageSpeedKmh returns length over time, or 0 for a zero-time segment.
func (s RouteSegment) AverageSpeedKmh() float64 {
	if s.TimeSeconds <= 0 {
		return 0
	}
	return (s.LengthMeters / 1000) / (s.TimeSeconds / 3600)
}

// ComposedRoute is a complete itinerary.
type ComposedRoute struct {
	Segments          []RouteSegment
	TotalTimeSeconds  float64
	TotalLengthMeters float64
	Polyline          []geo.Coordinate
}

// ArrivalTime returns departure plus the total travel time.
func (r *ComposedRoute) ArrivalTime(departure time.Time) time.Time {
	return departure.Add(time.Duration(r.TotalTimeSeconds * float64(time.Second)))
}

// Router is the interface for route queries.
type Router interface {
	ComputeRoute(ctx context.Context, waypoints []Waypoint, vehicleMaxSpeedKmh float64) (*ComposedRoute, error)
}

// composeSegment turns a path into a segment. The start node's coordinate
// leads the polyline. Length is recomputed from the polyline. The last known
// track limit starts fresh for every segment.
func composeSegment(from, to Waypoint, start geo.Coordinate, path *PathResult, coord func(Step) geo.Coordinate, vehicleMax float64) RouteSegment {
	seg := RouteSegment{
		From:        from,
		To:          to,
		Coordinates: make([]geo.Coordinate, 0, len(path.Steps)+1),
	}
	seg.Coordinates = append(seg.Coordinates, start)

	var lastKnown, distKm float64
	for _, step := range path.Steps {
		seg.Coordinates = append(seg.Coordinates, coord(step))

		var speed float64
		speed, lastKnown = profileSpeed(vehicleMax, step.Edge.MaxSpeedKmh, lastKnown)
		if speed > seg.MaxSpeedKmh {
			seg.MaxSpeedKmh = speed
		}
		seg.TimeSeconds += travelSeconds(step.Edge.LengthMeters, speed)

		lenKm := step.Edge.LengthMeters / 1000
		if n := len(seg.SpeedProfile); n > 0 && seg.SpeedProfile[n-1].SpeedKmh == speed {
			seg.SpeedProfile[n-1].EndKm += lenKm
		} else {
			seg.SpeedProfile = append(seg.SpeedProfile, SpeedBand{StartKm: distKm, EndKm: distKm + lenKm, SpeedKmh: speed})
		}
		distKm += lenKm
	}

	seg.LengthMeters = geo.PolylineLength(seg.Coordinates)
	return seg
}

// mergeSegments concatenates segment polylines without repeating junction
// points and sums totals.
func mergeSegments(segments []RouteSegment) *ComposedRoute {
	route := &ComposedRoute{Segments: segments}
	for i, seg := range segments {
		coords := seg.Coordinates
		if i > 0 && len(coords) > 0 {
			coords = coords[1:]
		}
		route.Polyline = append(route.Polyline, coords...)
	}
	route.TotalTimeSeconds = lo.SumBy(segments, func(s RouteSegment) float64 { return s.TimeSeconds })
	route.TotalLengthMeters = lo.SumBy(segments, func(s RouteSegment) float64 { return s.LengthMeters })
	return route
}
