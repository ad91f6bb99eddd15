package devservice

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/bussinfr/viewer/internal/models"
)

var seedTime = time.Date(2026, 2, 1, 22, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := OpenSQLite(filepath.Join(t.TempDir(), "service.db"))
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })

	if err := store.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}
	return store
}

func seededStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store := newTestStore(t)
	if err := Seed(context.Background(), store, seedTime); err != nil {
		t.Fatalf("Seed() error = %v", err)
	}
	return store
}

func ptr(v float64) *float64 { return &v }

func inArea(a Area, lat, lon float64) bool {
	return (a.MinLat == nil || lat >= *a.MinLat) &&
		(a.MinLon == nil || lon >= *a.MinLon) &&
		(a.MaxLat == nil || lat <= *a.MaxLat) &&
		(a.MaxLon == nil || lon <= *a.MaxLon)
}

func TestSeedCounts(t *testing.T) {
	store := seededStore(t)

	counts, err := store.Counts(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	want := Counts{Vehicles: 20, Stops: 22, Arrivals: 16}
	if counts != want {
		t.Errorf("Counts() = %+v, expected %+v", counts, want)
	}
}

func TestStoreVehicles(t *testing.T) {
	store := seededStore(t)
	ctx := context.Background()
	box := Area{MinLat: ptr(-5), MinLon: ptr(-5), MaxLat: ptr(5), MaxLon: ptr(5)}

	tests := []struct {
		name  string
		query VehicleQuery
		want  int
	}{
		{"unbounded", VehicleQuery{}, 20},
		{"box", VehicleQuery{Area: box}, 11},
		{"box and routes", VehicleQuery{Area: box, Routes: []string{"BUS10", "BUS11", "BUS03"}}, 2},
		{"only min lat", VehicleQuery{Area: Area{MinLat: ptr(8)}}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vehicles, err := store.Vehicles(ctx, tt.query)
			if err != nil {
				t.Fatalf("Vehicles() error = %v", err)
			}
			if len(vehicles) != tt.want {
				t.Errorf("expected %d vehicles, got %d", tt.want, len(vehicles))
			}
			for _, v := range vehicles {
				if !inArea(tt.query.Area, v.Lat, v.Lon) {
					t.Errorf("vehicle %s at (%v,%v) outside query area", v.Route, v.Lat, v.Lon)
				}
			}
		})
	}
}

func TestStoreStopsOrderedByLatitude(t *testing.T) {
	store := seededStore(t)

	stops, err := store.Stops(context.Background(), Area{MinLat: ptr(-5), MinLon: ptr(-5), MaxLat: ptr(5), MaxLon: ptr(5)})
	if err != nil {
		t.Fatal(err)
	}
	if len(stops) != 13 {
		t.Fatalf("expected 13 stops, got %d", len(stops))
	}
	for i := 1; i < len(stops); i++ {
		if stops[i].Lat < stops[i-1].Lat {
			t.Fatalf("stops not ordered by latitude at %d: %v < %v", i, stops[i].Lat, stops[i-1].Lat)
		}
	}
}

func TestStoreArrivals(t *testing.T) {
	store := seededStore(t)
	ctx := context.Background()

	arrivals, err := store.Arrivals(ctx, SeedStopBusy, seedTime.Unix())
	if err != nil {
		t.Fatal(err)
	}
	if len(arrivals) != 11 {
		t.Fatalf("expected 11 arrivals, got %d", len(arrivals))
	}
	for i := 1; i < len(arrivals); i++ {
		if arrivals[i].ArrivalTime < arrivals[i-1].ArrivalTime {
			t.Fatal("arrivals not ordered by time")
		}
	}

	later, err := store.Arrivals(ctx, SeedStopBusy, seedTime.Add(10*time.Minute).Unix())
	if err != nil {
		t.Fatal(err)
	}
	// arrivals are every 2 minutes starting at +2m; +10m onwards leaves 7
	if len(later) != 7 {
		t.Errorf("expected 7 future arrivals, got %d", len(later))
	}

	none, err := store.Arrivals(ctx, "nope", 0)
	if err != nil || len(none) != 0 {
		t.Errorf("unknown stop: %v, %d arrivals", err, len(none))
	}
}

func TestStoreReplaceAndCleanup(t *testing.T) {
	store := seededStore(t)
	ctx := context.Background()

	err := store.ReplaceVehicles(ctx, "batch-2", []models.Vehicle{{Route: "WEST", CurrentStatus: 2, Lat: 1, Lon: 1}})
	if err != nil {
		t.Fatal(err)
	}
	err = store.ReplaceStops(ctx, []models.Stop{
		{StopID: "1", StopName: "first"},
		{StopID: "1", StopName: "duplicate"},
		{StopID: "2", StopName: "second"},
	})
	if err != nil {
		t.Fatal(err)
	}

	n, err := store.DeleteArrivalsBefore(ctx, seedTime.Add(5*time.Minute).Unix())
	if err != nil {
		t.Fatal(err)
	}
	// +2m and +4m at both stops
	if n != 4 {
		t.Errorf("expected 4 deleted arrivals, got %d", n)
	}

	counts, err := store.Counts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := Counts{Vehicles: 1, Stops: 2, Arrivals: 12}
	if counts != want {
		t.Errorf("Counts() = %+v, expected %+v", counts, want)
	}

	stops, err := store.Stops(ctx, Area{})
	if err != nil {
		t.Fatal(err)
	}
	for _, st := range stops {
		if st.StopID == "1" && st.StopName != "duplicate" {
			t.Errorf("duplicate stop id should keep the last row, got %q", st.StopName)
		}
	}
}
