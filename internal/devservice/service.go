package devservice

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bussinfr/viewer/internal/geo"
)

// ErrorResponse is the JSON error response structure
type ErrorResponse struct {
	Error   string         `json:"error"`
	Details map[string]any `json:"details,omitempty"`
}

// Handler serves the web service endpoints from a Store
type Handler struct {
	store Store
	now   func() time.Time
}

// NewHandler creates a handler backed by store
func NewHandler(store Store) *Handler {
	return &Handler{store: store, now: time.Now}
}

// Routes mounts the service endpoints and optional static assets (icons and
// arrows) on a new router.
func (h *Handler) Routes(assetsDir string) chi.Router {
	r := chi.NewRouter()

	r.Get("/health", h.Health)
	r.Get("/vehicleService", h.GetVehicles)
	r.Get("/busStopService", h.GetStops)
	r.Get("/tripService", h.GetArrivals)

	if assetsDir != "" {
		fs := http.FileServer(http.Dir(assetsDir))
		r.Handle("/icons/*", fs)
		r.Handle("/arrows/*", fs)
	}

	return r
}

// Health handles GET /health with a row count per table
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	counts, err := h.store.Counts(ctx)
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status":    "error",
			"database":  "disconnected",
			"timestamp": time.Now().UTC(),
			"error":     err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"database":  "connected",
		"timestamp": time.Now().UTC(),
		"rows":      counts,
	})
}

// GetVehicles handles GET /vehicleService
// Query: minLat, minLon, maxLat, maxLon, routesCSV (all optional)
func (h *Handler) GetVehicles(w http.ResponseWriter, r *http.Request) {
	area, err := parseArea(r)
	if err != nil {
		writeBadRequest(w, err)
		return
	}

	q := VehicleQuery{Area: area, Routes: splitRoutes(r.URL.Query().Get("routesCSV"))}
	vehicles, err := h.store.Vehicles(r.Context(), q)
	if err != nil {
		writeInternal(w, "Failed to retrieve vehicles", err)
		return
	}
	writeJSON(w, http.StatusOK, vehicles)
}

// GetStops handles GET /busStopService
// Query: minLat, minLon, maxLat, maxLon, or centerLat, centerLon, rangeKm
func (h *Handler) GetStops(w http.ResponseWriter, r *http.Request) {
	area, err := parseArea(r)
	if err != nil {
		writeBadRequest(w, err)
		return
	}

	if r.URL.Query().Has("rangeKm") {
		area, err = parseRange(r)
		if err != nil {
			writeBadRequest(w, err)
			return
		}
	}

	stops, err := h.store.Stops(r.Context(), area)
	if err != nil {
		writeInternal(w, "Failed to retrieve stops", err)
		return
	}
	writeJSON(w, http.StatusOK, stops)
}

// GetArrivals handles GET /tripService?stopID=...
// Only arrivals that have not yet happened are returned, soonest first.
func (h *Handler) GetArrivals(w http.ResponseWriter, r *http.Request) {
	stopID := strings.TrimSpace(r.URL.Query().Get("stopID"))

	arrivals, err := h.store.Arrivals(r.Context(), stopID, h.now().Unix())
	if err != nil {
		writeInternal(w, "Failed to retrieve arrivals", err)
		return
	}
	writeJSON(w, http.StatusOK, arrivals)
}

func parseArea(r *http.Request) (Area, error) {
	var a Area
	fields := []struct {
		name string
		dst  **float64
	}{
		{"minLat", &a.MinLat},
		{"minLon", &a.MinLon},
		{"maxLat", &a.MaxLat},
		{"maxLon", &a.MaxLon},
	}

	for _, f := range fields {
		v, ok, err := floatParam(r, f.name)
		if err != nil {
			return Area{}, err
		}
		if ok {
			*f.dst = &v
		}
	}
	return a, nil
}

func parseRange(r *http.Request) (Area, error) {
	var vals [3]float64
	for i, name := range []string{"centerLat", "centerLon", "rangeKm"} {
		v, ok, err := floatParam(r, name)
		if err != nil {
			return Area{}, err
		}
		if !ok {
			return Area{}, fmt.Errorf("%s is required with rangeKm", name)
		}
		vals[i] = v
	}
	if vals[2] < 0 {
		return Area{}, fmt.Errorf("rangeKm must not be negative")
	}

	box := geo.BoxAround(geo.Point{Lat: vals[0], Lon: vals[1]}, vals[2])
	return Area{MinLat: &box.MinLat, MinLon: &box.MinLon, MaxLat: &box.MaxLat, MaxLon: &box.MaxLon}, nil
}

func floatParam(r *http.Request, name string) (float64, bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false, fmt.Errorf("%s must be a number, got %q", name, raw)
	}
	return v, true, nil
}

func splitRoutes(csv string) []string {
	var routes []string
	for _, r := range strings.Split(csv, ",") {
		if r = strings.ToUpper(strings.TrimSpace(r)); r != "" {
			routes = append(routes, r)
		}
	}
	return routes
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("DevService: failed to encode response: %v", err)
	}
}

func writeBadRequest(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{
		Error: "Invalid query parameter",
		Details: map[string]any{
			"reason": err.Error(),
		},
	})
}

func writeInternal(w http.ResponseWriter, msg string, err error) {
	log.Printf("DevService: %s: %v", msg, err)
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error: msg,
		Details: map[string]any{
			"internal": err.Error(),
		},
	})
}
