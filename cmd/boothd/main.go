package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/photobooth/boothsync/internal/config"
	"github.com/photobooth/boothsync/internal/handlers"
	"github.com/photobooth/boothsync/internal/observability"
	"github.com/photobooth/boothsync/internal/queue"
	"github.com/photobooth/boothsync/internal/remote"
	"github.com/photobooth/boothsync/internal/syncer"
)

const serviceVersion = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()

	telemetry, err := observability.Initialize(ctx, observability.NewConfig("boothd", serviceVersion))
	if err != nil {
		log.Fatalf("Failed to initialize telemetry: %v", err)
	}

	logger := observability.GetLogger()

	store, err := queue.Open(cfg.Agent.QueueDBPath)
	if err != nil {
		log.Fatalf("Failed to open photo queue: %v", err)
	}
	defer store.Close()

	objects, meta := buildRemotes(ctx, cfg)

	engine := syncer.New(store, objects, meta, syncer.Config{
		Interval:     time.Duration(cfg.Agent.SyncIntervalMs) * time.Millisecond,
		RetryCeiling: cfg.Agent.MaxRetryCount,
	})
	if syncMetrics, err := observability.NewSyncMetrics(); err == nil {
		engine.SetMetrics(syncMetrics)
	}
	engine.Start()
	defer engine.Stop()

	expiryWindow := time.Duration(cfg.Expiry.WindowHours) * time.Hour
	captureHandler := handlers.NewCaptureHandler(store, engine, logger, cfg.Agent.MaxRetryCount, expiryWindow)
	healthHandler := handlers.NewHealthHandler()

	r := chi.NewRouter()
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(observability.TracingMiddleware("boothd"))
	if httpMetrics, err := observability.NewHTTPMetrics(); err == nil {
		r.Use(observability.MetricsMiddleware(httpMetrics))
	}

	r.Get("/health", healthHandler.HealthCheck)
	r.Get("/api/health", healthHandler.HealthCheck)

	r.Route("/api", func(r chi.Router) {
		r.Post("/capture", captureHandler.Enqueue)
		r.Get("/queue", captureHandler.QueueStatus)
		r.Get("/queue/{id}/expiry", captureHandler.Expiry)
		r.Post("/sync/run", captureHandler.RunSync)
		r.Get("/sync/status", captureHandler.SyncStatus)
	})

	srv := &http.Server{
		Addr:         cfg.Agent.ListenAddress,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Booth agent starting on %s", cfg.Agent.ListenAddress)
		log.Printf("Queue database: %s", cfg.Agent.QueueDBPath)
		log.Printf("Storage backend: %s", cfg.Agent.StorageBackend)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down booth agent...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	if err := telemetry.Shutdown(shutdownCtx); err != nil {
		log.Printf("Telemetry shutdown error: %v", err)
	}

	log.Println("Booth agent stopped")
}

// buildRemotes selects the upload targets from configuration: either
// the bundled share server or an S3-compatible bucket. Metadata always
// goes to the share server.
func buildRemotes(ctx context.Context, cfg *config.Config) (remote.ObjectStorage, remote.MetadataService) {
	clientCfg := remote.ClientConfig{
		BaseURL:      cfg.Agent.Remote.BaseURL,
		APIKey:       cfg.Agent.Remote.APIKey,
		APIKeyHeader: cfg.Agent.Remote.APIKeyHeader,
		TokenURL:     cfg.Agent.Remote.TokenURL,
		ClientID:     cfg.Agent.Remote.ClientID,
		ClientSecret: cfg.Agent.Remote.ClientSecret,
	}

	meta := remote.NewHTTPMetadataService(clientCfg)

	if cfg.Agent.StorageBackend == "s3" {
		s3Storage, err := remote.NewS3Storage(ctx, remote.S3Config{
			Region:    cfg.Agent.S3.Region,
			Bucket:    cfg.Agent.S3.Bucket,
			AccessKey: cfg.Agent.S3.AccessKey,
			SecretKey: cfg.Agent.S3.SecretKey,
			Endpoint:  cfg.Agent.S3.Endpoint,
		})
		if err != nil {
			// The queue still accepts captures; uploads fail until S3
			// is reachable and the engine retries them.
			log.Printf("S3 storage unavailable, falling back to share server: %v", err)
		} else {
			return s3Storage, meta
		}
	}

	return remote.NewHTTPObjectStorage(clientCfg), meta
}
