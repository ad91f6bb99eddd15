// Package vehicles keeps the vehicle markers of the map in sync with the
// web service, refreshing them on a countdown.
package vehicles

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/bussinfr/viewer/internal/config"
	"github.com/bussinfr/viewer/internal/display"
	"github.com/bussinfr/viewer/internal/geo"
	"github.com/bussinfr/viewer/internal/mapview"
	"github.com/bussinfr/viewer/internal/models"
	"github.com/bussinfr/viewer/internal/realtime"
	"github.com/bussinfr/viewer/internal/webservice"
)

const pollerName = "vehicles"

// Source fetches vehicles and resolves their icons
type Source interface {
	Vehicles(ctx context.Context, bbox geo.BBox, routesCSV string) ([]models.Vehicle, error)
	AssetURL(path string) string
	ArrowURL(bearing float64) string
}

// Poller owns the vehicle marker set
type Poller struct {
	cfg       *config.Config
	source    Source
	env       realtime.Env
	routes    string
	countdown *realtime.Countdown
	latest    realtime.Latest

	mu      sync.Mutex
	markers []mapview.Handle
}

// NewPoller creates a vehicle poller. routesCSV optionally restricts the
// vehicles shown to a comma-separated list of route codes.
func NewPoller(cfg *config.Config, source Source, env realtime.Env, routesCSV string) *Poller {
	return &Poller{
		cfg:       cfg,
		source:    source,
		env:       env,
		routes:    NormalizeRoutes(routesCSV),
		countdown: realtime.NewCountdown(cfg.UpdateSec),
	}
}

// Routes returns the normalised route filter, empty when unfiltered
func (p *Poller) Routes() string {
	return p.routes
}

// Tick runs once per second. It polls when the countdown runs out and
// otherwise reports the seconds left.
func (p *Poller) Tick(ctx context.Context) {
	fire, remaining := p.countdown.Tick()
	if !fire {
		p.env.Board.Set(display.VehicleUpdate,
			fmt.Sprintf("Next vehicle position update in %d seconds.", remaining))
		return
	}

	p.env.Report(ctx, pollerName, p.Refresh(ctx))
}

// ResetCountdown makes the next tick poll. Called on viewport changes.
func (p *Poller) ResetCountdown() {
	p.countdown.Zero()
}

// Refresh fetches the vehicles in the current viewport and replaces the
// marker set. On a fetch error the existing markers are left in place.
func (p *Poller) Refresh(ctx context.Context) error {
	zoom := p.env.Map.Zoom()
	if zoom < p.cfg.MinZoomForVehicles {
		p.Remove()
		p.env.Board.Set(display.VehicleInfo, fmt.Sprintf(
			"Map is zoomed out to level %d need to zoom in to level %d to show vehicles.",
			zoom, p.cfg.MinZoomForVehicles))
		return &realtime.ZoomTooLowError{Zoom: zoom, Min: p.cfg.MinZoomForVehicles}
	}

	id := p.latest.Begin()
	vehicles, err := p.source.Vehicles(ctx, p.env.Map.Bounds(), p.routes)
	if !p.latest.IsCurrent(id) {
		return realtime.ErrStale
	}
	if err != nil {
		return fmt.Errorf("failed to fetch vehicles: %w", err)
	}

	if realtime.OverLimit(len(vehicles), p.cfg.MaxVehicles) {
		p.Remove()
		p.env.Board.Set(display.VehicleInfo, fmt.Sprintf(
			"There are %d vehicles in the region, the limit is %d, not showing vehicles, try zooming in.",
			len(vehicles), p.cfg.MaxVehicles))
		return &realtime.OverLimitError{Count: len(vehicles), Limit: p.cfg.MaxVehicles}
	}

	markers := make([]mapview.Marker, 0, len(vehicles))
	for _, v := range vehicles {
		markers = append(markers, p.marker(v))
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.latest.IsCurrent(id) {
		return realtime.ErrStale
	}

	p.removeLocked()
	for _, m := range markers {
		p.markers = append(p.markers, p.env.Map.AddMarker(m))
	}
	p.env.Metrics.SetMarkers(mapview.LayerVehicles, len(p.markers))
	p.env.Board.Set(display.VehicleInfo, fmt.Sprintf("Displaying %d vehicles", len(p.markers)))

	return nil
}

// Remove takes every vehicle marker off the map. Safe to call repeatedly.
func (p *Poller) Remove() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.removeLocked()
}

// Count returns the number of vehicle markers on the map
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
	p.env.Metrics.SetMarkers(mapview.LayerVehicles, 0)
}

func (p *Poller) marker(v models.Vehicle) mapview.Marker {
	icon := p.source.AssetURL(webservice.StoppedBusIcon)
	motion := "No"
	if v.InMotion() {
		icon = p.source.ArrowURL(v.Bearing)
		motion = "Yes"
	}

	t := p.env.Format.Format(v.Timestamp)

	return mapview.Marker{
		Layer:    mapview.LayerVehicles,
		Position: geo.Point{Lat: v.Lat, Lon: v.Lon},
		IconURL:  icon,
		Popup: mapview.Popup{
			Title: fmt.Sprintf("Route %s bearing %s", v.Route,
				strconv.FormatFloat(v.Bearing, 'f', -1, 64)),
			Lines: []string{
				"Time : " + t.Clock,
				t.Relative,
				"In motion : " + motion,
			},
		},
	}
}

// NormalizeRoutes trims and upper-cases each route code of a comma-separated
// list and drops empty entries.
func NormalizeRoutes(csv string) string {
	var routes []string
	for _, r := range strings.Split(csv, ",") {
		r = strings.ToUpper(strings.TrimSpace(r))
		if r != "" {
			routes = append(routes, r)
		}
	}
	return strings.Join(routes, ",")
}
