package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bussinfr/viewer/internal/config"
	"github.com/bussinfr/viewer/internal/display"
	"github.com/bussinfr/viewer/internal/geo"
	"github.com/bussinfr/viewer/internal/handlers"
	"github.com/bussinfr/viewer/internal/mapview"
	"github.com/bussinfr/viewer/internal/realtime"
	"github.com/bussinfr/viewer/internal/realtime/monitor"
	"github.com/bussinfr/viewer/internal/realtime/stops"
	"github.com/bussinfr/viewer/internal/realtime/vehicles"
	"github.com/bussinfr/viewer/internal/telemetry"
	"github.com/bussinfr/viewer/internal/timefmt"
	"github.com/bussinfr/viewer/internal/webservice"
)

func main() {
	log.Println("Starting bus viewer...")

	// .env first, then .env.local overrides for local development
	config.LoadEnvFiles(".")
	settings := config.LoadSettings()

	// ═══════════════════════════════════════════════════════
	// PHASE 1: Load viewer configuration
	// ═══════════════════════════════════════════════════════
	cfg, err := config.LoadFile(settings.ConfigPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Printf("Config loaded: webservices=%s update=%ds vehicles>=z%d stops>=z%d",
		cfg.WebservicesURL, cfg.UpdateSec, cfg.MinZoomForVehicles, cfg.MinZoomForStations)

	// ═══════════════════════════════════════════════════════
	// PHASE 2: Initialize collaborators
	// ═══════════════════════════════════════════════════════
	registry := telemetry.NewRegistry()
	metrics := telemetry.NewMetrics(registry)

	board := display.NewBoard()
	board.OnAlert(metrics.CountAlert)

	client := webservice.NewClient(cfg.WebservicesURL, settings.RequestTimeout, metrics)

	view := mapview.NewHeadless(mapview.Options{
		Center:   geo.Point{Lat: cfg.MapLat, Lon: cfg.MapLng},
		Zoom:     cfg.InitZoom,
		MinZoom:  cfg.MinZoom,
		MaxZoom:  cfg.MaxZoom,
		WidthPx:  settings.ViewportWidth,
		HeightPx: settings.ViewportHeight,
	})

	env := realtime.Env{
		Map:     view,
		Board:   board,
		Format:  timefmt.New(settings.Location()),
		Metrics: metrics,
	}

	// ═══════════════════════════════════════════════════════
	// PHASE 3: Initialize pollers
	// ═══════════════════════════════════════════════════════
	vehiclePoller := vehicles.NewPoller(cfg, client, env, settings.RoutesCSV)
	stopPoller := stops.NewPoller(cfg, client, env)
	stationMonitor := monitor.New(cfg, client, env)

	if routes := vehiclePoller.Routes(); routes != "" {
		log.Printf("Vehicle route filter: %s", routes)
	}

	// ═══════════════════════════════════════════════════════
	// PHASE 4: Start polling loops
	// ═══════════════════════════════════════════════════════
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	realtime.FollowViewport(ctx, view, vehiclePoller, stopPoller)

	vehicleTask := realtime.Every(ctx, time.Second, vehiclePoller.Tick)
	go stopPoller.Update(ctx)

	// ═══════════════════════════════════════════════════════
	// PHASE 5: HTTP server
	// ═══════════════════════════════════════════════════════
	viewerHandler := handlers.NewViewerHandler(ctx, cfg, view, board, stopPoller, stationMonitor)
	router := handlers.NewRouter(viewerHandler, handlers.RouterOptions{
		AllowedOrigins: settings.AllowedOrigins,
		Registry:       registry,
		StaticDir:      settings.StaticDir,
	})

	server := &http.Server{
		Addr:              settings.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Viewer listening on %s", settings.ListenAddr)
		log.Println("  GET  /api/config, /api/vehicles, /api/stops, /api/status, /api/monitor")
		log.Println("  POST /api/viewport, /api/monitor/{stopID}")
		log.Println("  DELETE /api/monitor")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// ═══════════════════════════════════════════════════════
	// PHASE 6: Graceful shutdown
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

	stationMonitor.Stop()
	vehicleTask.Stop()
	cancel()

	log.Println("Goodbye!")
}
