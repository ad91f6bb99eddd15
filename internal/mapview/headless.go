package mapview

import (
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/bussinfr/viewer/internal/geo"
)

// PlacedMarker is a marker currently on the map
type PlacedMarker struct {
	Handle Handle `json:"handle"`
	Marker
	seq uint64
}

// Headless is an in-memory map whose viewport is driven by the browser
// front end. It is safe for concurrent use.
type Headless struct {
	mu        sync.RWMutex
	zoom      int
	bounds    geo.BBox
	minZoom   int
	maxZoom   int
	widthPx   int
	heightPx  int
	markers   map[Handle]PlacedMarker
	seq       uint64
	listeners []func()
}

// Options configures a Headless map
type Options struct {
	Center   geo.Point
	Zoom     int
	MinZoom  int
	MaxZoom  int
	WidthPx  int
	HeightPx int
}

// NewHeadless creates a map centered on opts.Center
func NewHeadless(opts Options) *Headless {
	h := &Headless{
		minZoom:  opts.MinZoom,
		maxZoom:  opts.MaxZoom,
		widthPx:  opts.WidthPx,
		heightPx: opts.HeightPx,
		markers:  make(map[Handle]PlacedMarker),
	}
	h.zoom = h.clampZoom(opts.Zoom)
	h.bounds = geo.ViewportBounds(opts.Center, h.zoom, h.widthPx, h.heightPx)
	return h
}

// Zoom returns the current zoom level
func (h *Headless) Zoom() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.zoom
}

// Bounds returns the current viewport
func (h *Headless) Bounds() geo.BBox {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.bounds
}

// AddMarker places a marker and returns its handle
func (h *Headless) AddMarker(m Marker) Handle {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.seq++
	handle := Handle(uuid.New().String())
	h.markers[handle] = PlacedMarker{Handle: handle, Marker: m, seq: h.seq}
	return handle
}

// RemoveMarker removes a marker. Unknown handles are ignored.
func (h *Headless) RemoveMarker(handle Handle) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.markers, handle)
}

// Markers returns the markers of one layer in placement order. An empty
// layer returns every marker.
func (h *Headless) Markers(layer string) []PlacedMarker {
	h.mu.RLock()
	out := make([]PlacedMarker, 0, len(h.markers))
	for _, m := range h.markers {
		if layer == "" || m.Layer == layer {
			out = append(out, m)
		}
	}
	h.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].seq < out[j].seq
	})
	return out
}

// OnChange registers fn to run after every viewport change
func (h *Headless) OnChange(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listeners = append(h.listeners, fn)
}

// SetView recenters the map. The viewport is derived from the configured
// pixel size.
func (h *Headless) SetView(center geo.Point, zoom int) {
	h.mu.Lock()
	h.zoom = h.clampZoom(zoom)
	h.bounds = geo.ViewportBounds(center, h.zoom, h.widthPx, h.heightPx)
	listeners := h.listeners
	h.mu.Unlock()

	notify(listeners)
}

// SetBounds records the viewport reported by the front end
func (h *Headless) SetBounds(bounds geo.BBox, zoom int) {
	h.mu.Lock()
	h.zoom = h.clampZoom(zoom)
	h.bounds = bounds
	listeners := h.listeners
	h.mu.Unlock()

	notify(listeners)
}

func (h *Headless) clampZoom(zoom int) int {
	if h.maxZoom > 0 && zoom > h.maxZoom {
		return h.maxZoom
	}
	if zoom < h.minZoom {
		return h.minZoom
	}
	return zoom
}

func notify(listeners []func()) {
	for _, fn := range listeners {
		fn()
	}
}
