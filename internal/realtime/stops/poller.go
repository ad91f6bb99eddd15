// Package stops keeps the bus stop markers of the map in sync with the
// viewport and remembers the last fetched list for monitor actions.
package stops

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/bussinfr/viewer/internal/config"
	"github.com/bussinfr/viewer/internal/display"
	"github.com/bussinfr/viewer/internal/geo"
	"github.com/bussinfr/viewer/internal/mapview"
	"github.com/bussinfr/viewer/internal/models"
	"github.com/bussinfr/viewer/internal/realtime"
	"github.com/bussinfr/viewer/internal/webservice"
)

const pollerName = "stops"

// ErrUnknownStop is returned for a stop id that is not in the latest list
var ErrUnknownStop = errors.New("stop is not in the current stop list")

// Source fetches stops and resolves asset URLs
type Source interface {
	Stops(ctx context.Context, bbox geo.BBox) ([]models.Stop, error)
	AssetURL(path string) string
}

// Poller owns the stop marker set
type Poller struct {
	cfg    *config.Config
	source Source
	env    realtime.Env
	latest realtime.Latest

	mu      sync.Mutex
	markers []mapview.Handle
	stops   []models.Stop
	byID    map[string]models.Stop
}

// NewPoller creates a stop poller
func NewPoller(cfg *config.Config, source Source, env realtime.Env) *Poller {
	return &Poller{
		cfg:    cfg,
		source: source,
		env:    env,
	}
}

// Update refreshes the stops and reports the outcome. It is run on every
// viewport change.
func (p *Poller) Update(ctx context.Context) {
	p.env.Report(ctx, pollerName, p.Refresh(ctx))
}

// Refresh fetches the stops in the current viewport and replaces the marker
// set. Only the most recently started refresh may render.
func (p *Poller) Refresh(ctx context.Context) error {
	zoom := p.env.Map.Zoom()
	if zoom < p.cfg.MinZoomForStations {
		p.latest.Invalidate()
		p.Remove()
		p.env.Board.Set(display.StopInfo, fmt.Sprintf(
			"Map is zoomed out to level %d need to zoom in to level %d to show stops.",
			zoom, p.cfg.MinZoomForStations))
		return &realtime.ZoomTooLowError{Zoom: zoom, Min: p.cfg.MinZoomForStations}
	}

	id := p.latest.Begin()
	stops, err := p.source.Stops(ctx, p.env.Map.Bounds())
	if !p.latest.IsCurrent(id) {
		return realtime.ErrStale
	}
	if err != nil {
		return fmt.Errorf("failed to fetch stops: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.latest.IsCurrent(id) {
		return realtime.ErrStale
	}

	if realtime.OverLimit(len(stops), p.cfg.MaxStations) {
		p.removeLocked()
		p.env.Board.Set(display.StopInfo, fmt.Sprintf(
			"There are %d stops in the region, the limit is %d, not showing stops, try zooming in.",
			len(stops), p.cfg.MaxStations))
		return &realtime.OverLimitError{Count: len(stops), Limit: p.cfg.MaxStations}
	}

	p.removeLocked()

	icon := p.source.AssetURL(webservice.StopIcon)
	p.byID = make(map[string]models.Stop, len(stops))
	for _, s := range stops {
		p.markers = append(p.markers, p.env.Map.AddMarker(mapview.Marker{
			Layer:    mapview.LayerStops,
			Position: geo.Point{Lat: s.Lat, Lon: s.Lon},
			IconURL:  icon,
			Popup: mapview.Popup{
				Title:         s.StopName,
				Lines:         []string{"ID " + s.StopID, s.StopDesc},
				MonitorStopID: s.StopID,
			},
		}))
		p.byID[s.StopID] = s
	}
	p.stops = stops

	p.env.Metrics.SetMarkers(mapview.LayerStops, len(p.markers))
	p.env.Board.Set(display.StopInfo, fmt.Sprintf("Displaying %d stops", len(p.markers)))

	return nil
}

// Remove takes every stop marker off the map and forgets the stop list.
// Safe to call repeatedly.
func (p *Poller) Remove() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.removeLocked()
}

// Lookup returns a stop from the latest displayed list
func (p *Poller) Lookup(stopID string) (models.Stop, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, ok := p.byID[stopID]
	if !ok {
		return models.Stop{}, fmt.Errorf("stop %q: %w", stopID, ErrUnknownStop)
	}
	return s, nil
}

// Stops returns a copy of the latest displayed stop list
func (p *Poller) Stops() []models.Stop {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.Stop(nil), p.stops...)
}

// Count returns the number of stop markers on the map
func (p *Poller) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.markers)
}

func (p *Poller) removeLocked() {
	for _, h := range p.markers {
		p.env.Map.RemoveMarker(h)
	}
	p.markers = nil
	p.stops = nil
	p.byID = nil
	p.env.Board.Clear(display.StopInfo)
	p.env.Metrics.SetMarkers(mapview.LayerStops, 0)
}
