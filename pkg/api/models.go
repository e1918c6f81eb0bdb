package api

import (
	"github.com/paulmach/orb/geojson"

	"rail_router/pkg/overpass"
	"rail_router/pkg/routing"
)

// RouteRequest is the JSON body for POST /api/v1/route.
type RouteRequest struct {
	Waypoints []WaypointJSON `json:"waypoints"`
	// MaxSpeedKmh defaults to the configured vehicle speed when omitted.
	MaxSpeedKmh *float64 `json:"max_speed_kmh,omitempty"`
	// Departure is an optional "HH:MM" local departure time.
	Departure string `json:"departure,omitempty"`
	// GeoJSON adds the segments as a feature collection to the response.
	GeoJSON bool `json:"geojson,omitempty"`
}

// WaypointJSON is one stop of the requested itinerary.
type WaypointJSON struct {
	Label string  `json:"label,omitempty"`
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
}

// LatLonJSON represents a lat/lon pair in JSON.
type LatLonJSON struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// RouteResponse is the JSON response for a successful route query.
type RouteResponse struct {
	TotalTimeSeconds  float64       `json:"total_time_seconds"`
	TotalLengthMeters float64       `json:"total_length_meters"`
	TotalDuration     string        `json:"total_duration"`
	Arrival           string        `json:"arrival,omitempty"`
	Message           string        `json:"message"`
	Segments          []SegmentJSON `json:"segments"`
	Polyline          []LatLonJSON  `json:"polyline"`

	GeoJSON *geojson.FeatureCollection `json:"geojson,omitempty"`
}

// SegmentJSON is the leg between two consecutive waypoints.
type SegmentJSON struct {
	From            string          `json:"from"`
	To              string          `json:"to"`
	TimeSeconds     float64         `json:"time_seconds"`
	LengthMeters    float64         `json:"length_meters"`
	MaxSpeedKmh     float64         `json:"max_speed_kmh"`
	AverageSpeedKmh float64         `json:"average_speed_kmh"`
	SpeedProfile    []SpeedBandJSON `json:"speed_profile"`
	Geometry        []LatLonJSON    `json:"geometry"`
}

type SpeedBandJSON struct {
	StartKm  float64 `json:"start_km"`
	EndKm    float64 `json:"end_km"`
	SpeedKmh float64 `json:"speed_kmh"`
}

// ErrorResponse is the JSON response for errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Field   string `json:"field,omitempty"`
}

// StatsResponse is the JSON response for GET /api/v1/stats.
type StatsResponse struct {
	Engine  routing.Stats        `json:"engine"`
	Fetcher *overpass.Stats      `json:"fetcher,omitempty"`
	Cache   *overpass.CacheStats `json:"cache,omitempty"`
}

// HealthResponse is the JSON response for GET /api/v1/health.
type HealthResponse struct {
	Status string `json:"status"`
}
