package routing

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"rail_router/pkg/geo"
)

// Waypoint is a labelled stop of an itinerary.
type Waypoint struct {
	geo.Coordinate
	Label string
}

func (w Waypoint) String() string {
	return describe(w.Label, w.Coordinate)
}

// ParseWaypoint reads a raw "lat,lon" coordinate. The input text becomes
// the label.
func ParseWaypoint(s string) (Waypoint, error) {
	s = strings.TrimSpace(s)
	latStr, lonStr, ok := strings.Cut(s, ",")
	if !ok {
		return Waypoint{}, fmt.Errorf("parse waypoint %q: want lat,lon", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return Waypoint{}, fmt.Errorf("parse waypoint %q: latitude: %w", s, err)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
	if err != nil {
		return Waypoint{}, fmt.Errorf("parse waypoint %q: longitude: %w", s, err)
	}
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return Waypoint{}, fmt.Errorf("parse waypoint %q: coordinates must be finite", s)
	}
	return Waypoint{Coordinate: geo.Coordinate{Lat: lat, Lon: lon}, Label: s}, nil
}

// FormatDuration renders seconds as "1 h 5 min" or "12 min", rounding to
// the nearest minute.
func FormatDuration(seconds float64) string {
	d := time.Duration(math.Round(seconds/60)) * time.Minute
	h := int(d / time.Hour)
	m := int((d % time.Hour) / time.Minute)
	if h > 0 {
		return fmt.Sprintf("%d h %d min", h, m)
	}
	return fmt.Sprintf("%d min", m)
}
