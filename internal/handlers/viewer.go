package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bussinfr/viewer/internal/config"
	"github.com/bussinfr/viewer/internal/display"
	"github.com/bussinfr/viewer/internal/geo"
	"github.com/bussinfr/viewer/internal/mapview"
	"github.com/bussinfr/viewer/internal/models"
	"github.com/bussinfr/viewer/internal/realtime/monitor"
	"github.com/bussinfr/viewer/internal/realtime/stops"
)

// MapState is the map the browser page mirrors and drives
type MapState interface {
	Zoom() int
	Bounds() geo.BBox
	Markers(layer string) []mapview.PlacedMarker
	SetView(center geo.Point, zoom int)
	SetBounds(bounds geo.BBox, zoom int)
}

// StopLookup resolves stop ids from the latest displayed stop list
type StopLookup interface {
	Lookup(stopID string) (models.Stop, error)
}

// StationMonitor polls the arrivals of one stop
type StationMonitor interface {
	Start(ctx context.Context, stop models.Stop)
	Stop()
	Session() monitor.Session
	Table() *monitor.Table
}

// ErrorResponse is the JSON error response structure
type ErrorResponse struct {
	Error   string         `json:"error"`
	Details map[string]any `json:"details,omitempty"`
}

// ViewerHandler serves the viewer state to the browser page
type ViewerHandler struct {
	// ctx outlives requests; the monitor task is bound to it
	ctx     context.Context
	cfg     *config.Config
	view    MapState
	board   *display.Board
	stops   StopLookup
	monitor StationMonitor
}

// NewViewerHandler creates a handler. ctx bounds background work started
// from requests, such as the station monitor.
func NewViewerHandler(ctx context.Context, cfg *config.Config, view MapState, board *display.Board, stops StopLookup, mon StationMonitor) *ViewerHandler {
	return &ViewerHandler{
		ctx:     ctx,
		cfg:     cfg,
		view:    view,
		board:   board,
		stops:   stops,
		monitor: mon,
	}
}

// LayerResponse is the JSON response for GET /api/vehicles and /api/stops
type LayerResponse struct {
	Markers []mapview.PlacedMarker `json:"markers"`
	Count   int                    `json:"count"`
	Info    string                 `json:"info"`
	Update  string                 `json:"update,omitempty"`
	Zoom    int                    `json:"zoom"`
	Bounds  geo.BBox               `json:"bounds"`
}

// StatusResponse is the JSON response for GET /api/status
type StatusResponse struct {
	Lines  map[display.Field]string `json:"lines"`
	Alerts []display.Alert          `json:"alerts"`
}

// MonitorResponse is the JSON response for the monitor routes
type MonitorResponse struct {
	Session monitor.Session `json:"session"`
	Table   *monitor.Table  `json:"table"`
}

// ViewportRequest reports the map viewport. Either the four bounds or a
// centre (lat, lng) must be given together with the zoom level.
type ViewportRequest struct {
	MinLat *float64 `json:"minLat"`
	MinLon *float64 `json:"minLon"`
	MaxLat *float64 `json:"maxLat"`
	MaxLon *float64 `json:"maxLon"`
	Lat    *float64 `json:"lat"`
	Lng    *float64 `json:"lng"`
	Zoom   *int     `json:"zoom"`
}

// Health handles GET /health
func (h *ViewerHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"config":         "loaded",
		"webservicesURL": h.cfg.WebservicesURL,
		"timestamp":      time.Now().UTC(),
	})
}

// GetConfig handles GET /api/config
func (h *ViewerHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.cfg.Public())
}

// GetVehicles handles GET /api/vehicles
func (h *ViewerHandler) GetVehicles(w http.ResponseWriter, r *http.Request) {
	h.writeLayer(w, mapview.LayerVehicles, display.VehicleInfo, h.board.Get(display.VehicleUpdate))
}

// GetStops handles GET /api/stops
func (h *ViewerHandler) GetStops(w http.ResponseWriter, r *http.Request) {
	h.writeLayer(w, mapview.LayerStops, display.StopInfo, "")
}

func (h *ViewerHandler) writeLayer(w http.ResponseWriter, layer string, info display.Field, update string) {
	markers := h.view.Markers(layer)
	writeJSON(w, http.StatusOK, LayerResponse{
		Markers: markers,
		Count:   len(markers),
		Info:    h.board.Get(info),
		Update:  update,
		Zoom:    h.view.Zoom(),
		Bounds:  h.view.Bounds(),
	})
}

// GetStatus handles GET /api/status
// Query: after (optional) returns only alerts with a greater id
func (h *ViewerHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	var after uint64
	if raw := r.URL.Query().Get("after"); raw != "" {
		v, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{
				Error:   "after must be a non-negative integer",
				Details: map[string]any{"after": raw},
			})
			return
		}
		after = v
	}

	snap := h.board.Snapshot(after)
	writeJSON(w, http.StatusOK, StatusResponse{
		Lines:  snap.Lines,
		Alerts: snap.Alerts,
	})
}

// PostViewport handles POST /api/viewport
// Applying the viewport notifies the map's change listeners.
func (h *ViewerHandler) PostViewport(w http.ResponseWriter, r *http.Request) {
	var req ViewportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid viewport body",
			Details: map[string]any{"reason": err.Error()},
		})
		return
	}
	if req.Zoom == nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "zoom is required"})
		return
	}

	switch {
	case req.MinLat != nil && req.MinLon != nil && req.MaxLat != nil && req.MaxLon != nil:
		box := geo.BBox{MinLat: *req.MinLat, MinLon: *req.MinLon, MaxLat: *req.MaxLat, MaxLon: *req.MaxLon}
		if box.MinLat > box.MaxLat || box.MinLon > box.MaxLon {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{
				Error:   "Viewport bounds are inverted",
				Details: map[string]any{"bounds": box},
			})
			return
		}
		h.view.SetBounds(box, *req.Zoom)
	case req.Lat != nil && req.Lng != nil:
		h.view.SetView(geo.Point{Lat: *req.Lat, Lon: *req.Lng}, *req.Zoom)
	default:
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error: "Either minLat/minLon/maxLat/maxLon or lat/lng is required",
		})
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"zoom":   h.view.Zoom(),
		"bounds": h.view.Bounds(),
	})
}

// GetMonitor handles GET /api/monitor
func (h *ViewerHandler) GetMonitor(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, MonitorResponse{
		Session: h.monitor.Session(),
		Table:   h.monitor.Table(),
	})
}

// StartMonitor handles POST /api/monitor/{stopID}
// The stop must be in the latest displayed stop list.
func (h *ViewerHandler) StartMonitor(w http.ResponseWriter, r *http.Request) {
	stopID := chi.URLParam(r, "stopID")

	stop, err := h.stops.Lookup(stopID)
	if err != nil {
		if errors.Is(err, stops.ErrUnknownStop) {
			writeJSON(w, http.StatusNotFound, ErrorResponse{
				Error:   "Stop not found",
				Details: map[string]any{"stopID": stopID},
			})
			return
		}
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "Failed to look up stop",
			Details: map[string]any{"internal": err.Error()},
		})
		return
	}

	h.monitor.Start(h.ctx, stop)
	writeJSON(w, http.StatusOK, MonitorResponse{
		Session: h.monitor.Session(),
		Table:   h.monitor.Table(),
	})
}

// StopMonitor handles DELETE /api/monitor
func (h *ViewerHandler) StopMonitor(w http.ResponseWriter, r *http.Request) {
	h.monitor.Stop()
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Handlers: failed to encode response: %v", err)
	}
}
