package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/bussinfr/viewer/internal/config"
	"github.com/bussinfr/viewer/internal/devservice"
	"github.com/bussinfr/viewer/internal/gtfs"
	"github.com/bussinfr/viewer/internal/gtfsrt"
	"github.com/bussinfr/viewer/internal/realtime"
)

func main() {
	log.Println("Starting development web service...")

	config.LoadEnvFiles(".")
	settings := config.LoadDevSettings()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ═══════════════════════════════════════════════════════
	// PHASE 1: Initialize storage
	// ═══════════════════════════════════════════════════════
	store, err := openStore(ctx, settings)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		log.Fatalf("Failed to ensure database schema: %v", err)
	}
	log.Println("Database initialized")

	// ═══════════════════════════════════════════════════════
	// PHASE 2: Load data
	// ═══════════════════════════════════════════════════════
	if settings.Seed {
		if err := devservice.Seed(ctx, store, time.Now()); err != nil {
			log.Fatalf("Failed to seed test data: %v", err)
		}
	}

	if settings.StopsFile != "" {
		result, err := gtfs.LoadStops(settings.StopsFile)
		if err != nil {
			log.Printf("Warning: failed to load GTFS stops: %v", err)
		} else if err := store.ReplaceStops(ctx, result.Stops); err != nil {
			log.Printf("Warning: failed to import GTFS stops: %v", err)
		} else {
			log.Printf("Imported %d stops from %s (%d skipped)", len(result.Stops), settings.StopsFile, result.Skipped)
		}
	}

	if counts, err := store.Counts(ctx); err == nil {
		log.Printf("Store has %d vehicles, %d stops, %d arrivals", counts.Vehicles, counts.Stops, counts.Arrivals)
	}

	// ═══════════════════════════════════════════════════════
	// PHASE 3: Start GTFS-RT ingest
	// ═══════════════════════════════════════════════════════
	var ingestTask *realtime.Task
	if settings.Ingesting() {
		ingester := devservice.NewIngester(store, gtfsrt.NewClient(settings.FeedTimeout),
			settings.VehiclesURL, settings.TripsURL, settings.Retention)

		ingestTask = realtime.Every(ctx, settings.IngestInterval, func(ctx context.Context) {
			if err := ingester.Ingest(ctx); err != nil && ctx.Err() == nil {
				log.Printf("Ingest error: %v", err)
			}
		})
		log.Printf("Ingesting GTFS-RT every %v (retain arrivals %v)", settings.IngestInterval, settings.Retention)
	}

	// ═══════════════════════════════════════════════════════
	// PHASE 4: HTTP server
	// ═══════════════════════════════════════════════════════
	server := &http.Server{
		Addr:              settings.ListenAddr,
		Handler:           devservice.NewHandler(store).Routes(settings.AssetsDir),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Web service listening on %s", settings.ListenAddr)
		log.Println("  GET /vehicleService")
		log.Println("  GET /busStopService")
		log.Println("  GET /tripService")
		log.Printf("  GET /icons/*, /arrows/* from %s", settings.AssetsDir)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// ═══════════════════════════════════════════════════════
	// PHASE 5: Graceful shutdown
	// ═══════════════════════════════════════════════════════
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Println("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	if ingestTask != nil {
		ingestTask.Stop()
	}
	cancel()

	log.Println("Goodbye!")
}

func openStore(ctx context.Context, settings *config.DevSettings) (devservice.Store, error) {
	if settings.DatabaseURL != "" {
		log.Println("Using PostgreSQL store")
		return devservice.OpenPostgres(ctx, settings.DatabaseURL)
	}

	if dir := filepath.Dir(settings.SQLitePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	log.Printf("Using SQLite store: %s", settings.SQLitePath)
	return devservice.OpenSQLite(settings.SQLitePath)
}
