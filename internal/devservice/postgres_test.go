package devservice

import (
	"context"
	"os"
	"testing"
)

func setupPostgresStore(t *testing.T) *PostgresStore {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		t.Skip("DATABASE_URL not set - skipping integration test")
	}

	store, err := OpenPostgres(context.Background(), databaseURL)
	if err != nil {
		t.Fatalf("Failed to create test store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	if err := store.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema failed: %v", err)
	}
	return store
}

func TestPostgresSeedAndQuery(t *testing.T) {
	store := setupPostgresStore(t)
	ctx := context.Background()

	if err := Seed(ctx, store, seedTime); err != nil {
		t.Fatalf("Seed failed: %v", err)
	}

	vehicles, err := store.Vehicles(ctx, VehicleQuery{
		Area:   Area{MinLat: ptr(-5), MinLon: ptr(-5), MaxLat: ptr(5), MaxLon: ptr(5)},
		Routes: []string{"BUS10", "BUS11"},
	})
	if err != nil {
		t.Fatalf("Vehicles failed: %v", err)
	}
	if len(vehicles) != 2 {
		t.Errorf("expected 2 vehicles, got %d", len(vehicles))
	}

	stops, err := store.Stops(ctx, Area{MinLat: ptr(-5), MinLon: ptr(-5), MaxLat: ptr(5), MaxLon: ptr(5)})
	if err != nil {
		t.Fatalf("Stops failed: %v", err)
	}
	if len(stops) != 13 {
		t.Errorf("expected 13 stops, got %d", len(stops))
	}

	arrivals, err := store.Arrivals(ctx, SeedStopQuiet, seedTime.Unix())
	if err != nil {
		t.Fatalf("Arrivals failed: %v", err)
	}
	if len(arrivals) != 5 {
		t.Errorf("expected 5 arrivals, got %d", len(arrivals))
	}

	t.Logf("Postgres store returned %d vehicles, %d stops, %d arrivals", len(vehicles), len(stops), len(arrivals))
}
