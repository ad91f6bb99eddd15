package mapview

import (
	"github.com/bussinfr/viewer/internal/geo"
)

// Marker layers
const (
	LayerVehicles = "vehicles"
	LayerStops    = "stops"
)

// Handle identifies a placed marker. It is opaque to callers.
type Handle string

// Popup is the content shown when a marker is clicked
type Popup struct {
	Title string   `json:"title"`
	Lines []string `json:"lines"`
	// MonitorStopID, when set, renders a "Monitor" action for that stop
	MonitorStopID string `json:"monitorStopId,omitempty"`
}

// Marker is one pin to place on the map
type Marker struct {
	Layer    string    `json:"layer"`
	Position geo.Point `json:"position"`
	IconURL  string    `json:"iconUrl"`
	Popup    Popup     `json:"popup"`
}

// Map is the capability the pollers need from the mapping widget
type Map interface {
	Zoom() int
	Bounds() geo.BBox
	AddMarker(m Marker) Handle
	RemoveMarker(h Handle)
}
