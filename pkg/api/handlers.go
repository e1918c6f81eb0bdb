package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"mime"
	"net/http"
	"time"

	"github.com/paulmach/orb/geojson"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"rail_router/pkg/geo"
	"rail_router/pkg/routing"
)

const (
	maxBodyBytes = 64 << 10
	maxWaypoints = 64
)

// Handlers holds the HTTP handlers and their dependencies.
type Handlers struct {
	router          routing.Router
	defaultMaxSpeed float64
	stats           func() StatsResponse
	log             logrus.FieldLogger
}

// NewHandlers creates handlers with the given router. stats may be nil.
func NewHandlers(router routing.Router, defaultMaxSpeedKmh float64, stats func() StatsResponse, logger logrus.FieldLogger) *Handlers {
	if stats == nil {
		stats = func() StatsResponse { return StatsResponse{} }
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Handlers{
		router:          router,
		defaultMaxSpeed: defaultMaxSpeedKmh,
		stats:           stats,
		log:             logger.WithField("module", "api"),
	}
}

// HandleRoute handles POST /api/v1/route.
func (h *Handlers) HandleRoute(w http.ResponseWriter, r *http.Request) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "application/json" {
		writeError(w, http.StatusBadRequest, "invalid_request", "", "")
		return
	}

	var req RouteRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "", "")
		return
	}

	if len(req.Waypoints) > maxWaypoints {
		writeError(w, http.StatusBadRequest, "too_many_waypoints", "", "")
		return
	}
	waypoints := make([]routing.Waypoint, len(req.Waypoints))
	for i, wp := range req.Waypoints {
		if err := validateCoord(wp.Lat, wp.Lon); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_coordinates", fmt.Sprintf("waypoints[%d]", i), "")
			return
		}
		waypoints[i] = routing.Waypoint{Coordinate: geo.Coordinate{Lat: wp.Lat, Lon: wp.Lon}, Label: wp.Label}
	}

	vmax := h.defaultMaxSpeed
	if req.MaxSpeedKmh != nil {
		vmax = *req.MaxSpeedKmh
	}

	var departure time.Time
	hasDeparture := req.Departure != ""
	if hasDeparture {
		t, err := time.Parse("15:04", req.Departure)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_departure", "departure", "")
			return
		}
		departure = t
	}

	result, err := h.router.ComputeRoute(r.Context(), waypoints, vmax)
	if err != nil {
		status, code := errorStatus(err)
		if status == http.StatusInternalServerError {
			h.log.WithError(err).Error("route failed")
		}
		writeError(w, status, code, "", routing.UserMessage(err))
		return
	}

	resp := RouteResponse{
		TotalTimeSeconds:  result.TotalTimeSeconds,
		TotalLengthMeters: result.TotalLengthMeters,
		TotalDuration:     routing.FormatDuration(result.TotalTimeSeconds),
		Segments:          make([]SegmentJSON, 0, len(result.Segments)),
		Polyline:          toLatLon(result.Polyline),
	}
	if hasDeparture {
		resp.Arrival = result.ArrivalTime(departure).Format("15:04")
	}
	resp.Message = summary(result, vmax, resp.Arrival)

	for _, seg := range result.Segments {
		bands := make([]SpeedBandJSON, len(seg.SpeedProfile))
		for i, b := range seg.SpeedProfile {
			bands[i] = SpeedBandJSON{StartKm: b.StartKm, EndKm: b.EndKm, SpeedKmh: b.SpeedKmh}
		}
		resp.Segments = append(resp.Segments, SegmentJSON{
			From:            seg.From.String(),
			To:              seg.To.String(),
			TimeSeconds:     seg.TimeSeconds,
			LengthMeters:    seg.LengthMeters,
			MaxSpeedKmh:     seg.MaxSpeedKmh,
			AverageSpeedKmh: seg.AverageSpeedKmh(),
			SpeedProfile:    bands,
			Geometry:        toLatLon(seg.Coordinates),
		})
	}

	if req.GeoJSON {
		resp.GeoJSON = featureCollection(result)
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleHealth handles GET /api/v1/health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// HandleStats handles GET /api/v1/stats.
func (h *Handlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.stats())
}

func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, routing.ErrTooFewWaypoints):
		return http.StatusBadRequest, "too_few_waypoints"
	case errors.Is(err, routing.ErrInvalidSpeed):
		return http.StatusBadRequest, "invalid_speed"
	case errors.Is(err, routing.ErrOffline):
		return http.StatusServiceUnavailable, "offline"
	case errors.Is(err, routing.ErrNetworkUnavailable):
		return http.StatusServiceUnavailable, "network_unavailable"
	case errors.Is(err, routing.ErrNoRailDataInRegion):
		return http.StatusUnprocessableEntity, "no_rail_data_in_region"
	case errors.Is(err, routing.ErrNoRailDataNearPoint):
		return http.StatusUnprocessableEntity, "no_rail_data_near_point"
	case errors.Is(err, routing.ErrNoPathFound):
		return http.StatusNotFound, "no_path_found"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "request_timeout"
	}
	return http.StatusInternalServerError, "internal_error"
}

func summary(r *routing.ComposedRoute, vmax float64, arrival string) string {
	msg := fmt.Sprintf("Route: %.1f km, travel time %s at %g km/h",
		r.TotalLengthMeters/1000, routing.FormatDuration(r.TotalTimeSeconds), vmax)
	if arrival != "" {
		msg += ", arrival " + arrival
	}
	return msg
}

func toLatLon(coords []geo.Coordinate) []LatLonJSON {
	return lo.Map(coords, func(c geo.Coordinate, _ int) LatLonJSON {
		return LatLonJSON{Lat: c.Lat, Lon: c.Lon}
	})
}

// featureCollection renders one LineString feature per segment.
func featureCollection(r *routing.ComposedRoute) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, seg := range r.Segments {
		f := geojson.NewFeature(geo.ToLineString(seg.Coordinates))
		f.Properties["from"] = seg.From.String()
		f.Properties["to"] = seg.To.String()
		f.Properties["time_seconds"] = seg.TimeSeconds
		f.Properties["length_meters"] = seg.LengthMeters
		f.Properties["max_speed_kmh"] = seg.MaxSpeedKmh
		fc.Append(f)
	}
	return fc
}

func validateCoord(lat, lon float64) error {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return errors.New("coordinates must be finite numbers")
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return errors.New("coordinates out of range")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, field, message string) {
	writeJSON(w, status, ErrorResponse{Error: code, Field: field, Message: message})
}
