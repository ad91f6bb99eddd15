package devservice

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	gtfs "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"

	"github.com/bussinfr/viewer/internal/gtfsrt"
)

// FeedFetcher downloads a GTFS-RT feed
type FeedFetcher interface {
	Fetch(ctx context.Context, url string) (*gtfs.FeedMessage, error)
}

// Ingester refreshes the vehicle and arrival tables from GTFS-RT feeds
type Ingester struct {
	store       Store
	feeds       FeedFetcher
	vehiclesURL string
	tripsURL    string
	retention   time.Duration
	now         func() time.Time
}

// NewIngester creates an ingester. Either feed URL may be empty to skip
// that feed.
func NewIngester(store Store, feeds FeedFetcher, vehiclesURL, tripsURL string, retention time.Duration) *Ingester {
	return &Ingester{
		store:       store,
		feeds:       feeds,
		vehiclesURL: vehiclesURL,
		tripsURL:    tripsURL,
		retention:   retention,
		now:         time.Now,
	}
}

// Ingest runs one refresh cycle. Each table is replaced in a single
// transaction, so readers see either the old or the new batch.
func (i *Ingester) Ingest(ctx context.Context) error {
	batchID := uuid.New().String()

	if i.vehiclesURL != "" {
		feed, err := i.feeds.Fetch(ctx, i.vehiclesURL)
		if err != nil {
			return fmt.Errorf("failed to fetch vehicle positions: %w", err)
		}
		vehicles := gtfsrt.Vehicles(feed)
		if err := i.store.ReplaceVehicles(ctx, batchID, vehicles); err != nil {
			return fmt.Errorf("failed to write vehicles: %w", err)
		}
		log.Printf("Ingest: %d vehicles (batch %s)", len(vehicles), batchID)
	}

	if i.tripsURL != "" {
		feed, err := i.feeds.Fetch(ctx, i.tripsURL)
		if err != nil {
			// Non-fatal: vehicles are already updated
			log.Printf("Ingest: failed to fetch trip updates (keeping previous arrivals): %v", err)
		} else {
			arrivals := gtfsrt.Arrivals(feed)
			if err := i.store.ReplaceArrivals(ctx, batchID, arrivals); err != nil {
				return fmt.Errorf("failed to write arrivals: %w", err)
			}
			log.Printf("Ingest: %d arrivals (batch %s)", len(arrivals), batchID)
		}
	}

	return i.Cleanup(ctx)
}

// Cleanup deletes arrivals older than the retention window
func (i *Ingester) Cleanup(ctx context.Context) error {
	cutoff := i.now().Add(-i.retention).Unix()
	n, err := i.store.DeleteArrivalsBefore(ctx, cutoff)
	if err != nil {
		return err
	}
	if n > 0 {
		log.Printf("Cleanup: deleted %d arrivals older than %v", n, i.retention)
	}
	return nil
}
