package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/nesarahmed/airsense/pkg/aggregate"
	"github.com/nesarahmed/airsense/pkg/auth"
	"github.com/nesarahmed/airsense/pkg/config"
	"github.com/nesarahmed/airsense/pkg/export"
	"github.com/nesarahmed/airsense/pkg/ingest"
	"github.com/nesarahmed/airsense/pkg/query"
	"github.com/nesarahmed/airsense/pkg/realtime"
	"github.com/nesarahmed/airsense/pkg/retention"
	"github.com/nesarahmed/airsense/pkg/server"
	"github.com/nesarahmed/airsense/pkg/sun"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file (optional)")
	flag.Parse()

	log.Println("🚀 Starting AirSense Server...")

	cfg, err := server.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("❌ Failed to load configuration: %v", err)
	}
	if cfg.APIKey == "" && !cfg.AllowDevAuthBypass {
		log.Println("⚠️  API_KEY is not set; all sensor endpoints will reject requests")
	}

	store, err := server.InitializeStorage(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to initialize storage: %v", err)
	}
	defer store.Close()
	log.Printf("✅ Storage initialized (%s backend)", cfg.Storage)

	// Core components
	buffer := realtime.New(config.MaxRealtimeEntries)
	aggregator := aggregate.New(store)
	verifier := auth.NewVerifier(cfg.APIKey, cfg.AllowDevAuthBypass)

	ingestHandler := ingest.NewHandler(store, buffer, aggregator)
	queryHandler := query.NewHandler(store, buffer)
	exportHandler := export.NewHandler(store)
	sunHandler := sun.NewHandler(sun.NewClient(), cfg.DefaultLatitude, cfg.DefaultLongitude)

	// WebSocket hub for the live feed
	hub := ingest.NewLiveHub()
	ingestHandler.SetLiveHub(hub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		hub.Run(ctx)
	}()
	log.Println("📡 WebSocket hub started for live sensor streaming")

	wg.Add(1)
	go func() {
		defer wg.Done()
		server.BroadcastRealtime(ctx, buffer, hub)
	}()
	log.Printf("📤 Realtime broadcaster started (updates every %v)", config.BroadcastInterval)

	// Background retention of raw readings
	pruner := retention.New(store, time.Duration(cfg.RetentionDays)*24*time.Hour)
	stopRetention := make(chan bool)
	wg.Add(1)
	go server.RunRetention(pruner, stopRetention, &wg)
	log.Printf("🧹 Retention scheduler started (%d day raw-reading window)", cfg.RetentionDays)

	// BadgerDB garbage collection (no-op for other backends)
	stopGC := make(chan bool)
	wg.Add(1)
	go server.RunBadgerGC(store, stopGC, &wg)

	router := mux.NewRouter()
	server.SetupRoutes(router, cfg, verifier, ingestHandler, queryHandler, exportHandler, sunHandler, hub)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: config.ServerWriteTimeout,
	}

	go func() {
		log.Printf("🌐 Server starting on http://localhost:%s", cfg.Port)
		log.Println("📡 API endpoints:")
		log.Println("   POST /sensor-data       - Submit a sensor reading")
		log.Println("   GET  /sensor-data       - Dashboard snapshot / historical queries")
		log.Println("   GET  /sensor-data/live  - WebSocket live feed")
		log.Println("   GET  /export            - Export readings (json/csv)")
		log.Println("   POST /import            - Restore a JSON backup")
		log.Println("   GET  /sun               - Sunrise/sunset context")
		log.Println("   GET  /stats             - Storage statistics")
		log.Println("   GET  /health            - Health check (no API key)")
		log.Println("✅ Server ready to accept requests")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutdown signal received...")

	// Cancel context before wg.Wait() to stop the hub and broadcaster.
	cancel()
	close(stopRetention)
	close(stopGC)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer shutdownCancel()

	log.Println("🔄 Gracefully shutting down server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("⚠️  Server shutdown warning: %v", err)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("✅ All background tasks stopped cleanly")
	case <-time.After(5 * time.Second):
		log.Println("⚠️  Some background tasks did not stop in time (forcing exit)")
	}

	log.Println("👋 AirSense server exited cleanly")
}
