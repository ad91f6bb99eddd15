// Package devservice is a development stand-in for the transit web service.
// It serves /vehicleService, /busStopService and /tripService from SQLite or
// PostgreSQL and can keep its tables fresh from GTFS-Realtime feeds.
package devservice

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/bussinfr/viewer/internal/models"
)

//go:embed schema.sql
var schemaSQL string

// Area bounds a query. Nil bounds are not applied.
type Area struct {
	MinLat *float64
	MinLon *float64
	MaxLat *float64
	MaxLon *float64
}

// VehicleQuery selects vehicles inside an area, optionally by route
type VehicleQuery struct {
	Area
	Routes []string
}

// Counts reports the number of rows per table
type Counts struct {
	Vehicles int `json:"vehicles"`
	Stops    int `json:"stops"`
	Arrivals int `json:"arrivals"`
}

// Store is the storage behind the development service
type Store interface {
	EnsureSchema(ctx context.Context) error
	Vehicles(ctx context.Context, q VehicleQuery) ([]models.Vehicle, error)
	Stops(ctx context.Context, area Area) ([]models.Stop, error)
	Arrivals(ctx context.Context, stopID string, notBefore int64) ([]models.Arrival, error)
	ReplaceVehicles(ctx context.Context, batchID string, vehicles []models.Vehicle) error
	ReplaceStops(ctx context.Context, stops []models.Stop) error
	ReplaceArrivals(ctx context.Context, batchID string, arrivals []models.StopArrival) error
	DeleteArrivalsBefore(ctx context.Context, cutoff int64) (int64, error)
	Counts(ctx context.Context) (Counts, error)
	Close() error
}

// filter builds a WHERE clause with driver specific placeholders
type filter struct {
	placeholder func(n int) string
	clauses     []string
	args        []any
}

// add appends a condition; %s in expr is replaced by the next placeholder
func (f *filter) add(expr string, arg any) {
	f.args = append(f.args, arg)
	f.clauses = append(f.clauses, fmt.Sprintf(expr, f.placeholder(len(f.args))))
}

func (f *filter) addArea(a Area) {
	if a.MinLat != nil {
		f.add("lat >= %s", *a.MinLat)
	}
	if a.MinLon != nil {
		f.add("lon >= %s", *a.MinLon)
	}
	if a.MaxLat != nil {
		f.add("lat <= %s", *a.MaxLat)
	}
	if a.MaxLon != nil {
		f.add("lon <= %s", *a.MaxLon)
	}
}

func (f *filter) addIn(column string, values []string) {
	if len(values) == 0 {
		return
	}
	marks := make([]string, len(values))
	for i, v := range values {
		f.args = append(f.args, v)
		marks[i] = f.placeholder(len(f.args))
	}
	f.clauses = append(f.clauses, fmt.Sprintf("%s IN (%s)", column, strings.Join(marks, ", ")))
}

func (f *filter) where() string {
	if len(f.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(f.clauses, " AND ")
}

const (
	vehicleColumns = "route, current_status, reported_at, lat, lon, bearing"
	stopColumns    = "stopid, stopname, stopdesc, lat, lon"
)
