package routing

import (
	"errors"
	"fmt"

	"rail_router/pkg/geo"
)

var (
	// ErrNetworkUnavailable is returned when no map-data mirror answered.
	ErrNetworkUnavailable = errors.New("rail network data unavailable")
	// ErrNoRailDataInRegion is returned when the fetch succeeded but found no nodes.
	ErrNoRailDataInRegion = errors.New("no rail data in region")
	// ErrNoRailDataNearPoint is matched by *NoRailDataNearPointError.
	ErrNoRailDataNearPoint = errors.New("no rail data near point")
	// ErrNoPathFound is matched by *NoPathError.
	ErrNoPathFound = errors.New("no path found")
	// ErrOffline is returned when the connectivity check fails before fetching.
	ErrOffline = errors.New("offline")
	// ErrTooFewWaypoints is returned for itineraries with fewer than two points.
	ErrTooFewWaypoints = errors.New("at least two waypoints are required")
	// ErrInvalidSpeed is returned for a non-positive or non-finite vehicle speed.
	ErrInvalidSpeed = errors.New("vehicle max speed must be a positive number")
)

// NoRailDataNearPointError reports a waypoint with no graph node to snap to.
type NoRailDataNearPointError struct {
	Point Waypoint
}

func (e *NoRailDataNearPointError) Error() string {
	return fmt.Sprintf("no rail data near %s", e.Point)
}

func (e *NoRailDataNearPointError) Is(target error) bool {
	return target == ErrNoRailDataNearPoint
}

// NoPathError reports two consecutive waypoints that are not connected.
type NoPathError struct {
	From Waypoint
	To   Waypoint
}

func (e *NoPathError) Error() string {
	return fmt.Sprintf("no path found between %s and %s", e.From, e.To)
}

func (e *NoPathError) Is(target error) bool {
	return target == ErrNoPathFound
}

// UserMessage turns any route failure into the single message shown to the
// user. Unknown errors get a generic message.
func UserMessage(err error) string {
	var noPath *NoPathError
	var nearPoint *NoRailDataNearPointError

	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrOffline):
		return "No internet connection. Route calculation needs access to map data."
	case errors.Is(err, ErrNetworkUnavailable):
		return "Could not retrieve network data, try again later."
	case errors.Is(err, ErrNoRailDataInRegion):
		return "No rail data found in the selected area."
	case errors.As(err, &nearPoint):
		return fmt.Sprintf("No rail data found near %s.", nearPoint.Point.Label)
	case errors.As(err, &noPath):
		return fmt.Sprintf("No path found between %s and %s.", noPath.From.Label, noPath.To.Label)
	case errors.Is(err, ErrTooFewWaypoints):
		return "Please choose a start and a destination."
	case errors.Is(err, ErrInvalidSpeed):
		return "Please enter a valid maximum speed."
	}
	return "An unknown error occurred while calculating the route."
}

// describe is used in error messages; label first, coordinate as fallback.
func describe(label string, c geo.Coordinate) string {
	if label != "" {
		return label
	}
	return fmt.Sprintf("%.5f,%.5f", c.Lat, c.Lon)
}
