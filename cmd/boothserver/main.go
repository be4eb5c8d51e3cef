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
	custommw "github.com/photobooth/boothsync/internal/middleware"
	"github.com/photobooth/boothsync/internal/observability"
	"github.com/photobooth/boothsync/internal/repository"
	"github.com/photobooth/boothsync/internal/services"
)

const serviceVersion = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()

	telemetry, err := observability.Initialize(ctx, observability.NewConfig("boothserver", serviceVersion))
	if err != nil {
		log.Fatalf("Failed to initialize telemetry: %v", err)
	}

	logger := observability.GetLogger()

	var metaRepo repository.MetaRepo
	if cfg.Server.UsePostgres() {
		log.Println("Using PostgreSQL database")
		db, err := repository.NewPostgresDB(cfg.Server.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to initialize PostgreSQL database: %v", err)
		}
		defer db.Close()
		metaRepo = repository.NewPostgresMetaRepository(db)
	} else {
		log.Println("Using SQLite database")
		db, err := repository.NewSQLiteDB(cfg.Server.DatabasePath)
		if err != nil {
			log.Fatalf("Failed to initialize SQLite database: %v", err)
		}
		defer db.Close()
		metaRepo = repository.NewMetaRepository(db)
	}

	objectStore, err := services.NewObjectStore(cfg.Server.StorageBasePath, nil, cfg.Server.MaxFileSizeMB)
	if err != nil {
		log.Fatalf("Failed to initialize object store: %v", err)
	}

	thumbnails := services.NewThumbnailService(cfg.Server.StorageBasePath)

	hub := services.NewEventHub()
	go hub.Run()

	expiryWindow := time.Duration(cfg.Expiry.WindowHours) * time.Hour
	cleanup := services.NewCleanupService(
		metaRepo,
		objectStore,
		thumbnails,
		hub,
		logger,
		expiryWindow,
		time.Duration(cfg.Server.CleanupIntervalM)*time.Minute,
	)

	serverMetrics, metricsErr := observability.NewServerMetrics()
	if metricsErr == nil {
		cleanup.SetMetrics(serverMetrics)
	}

	cleanup.Start()
	defer cleanup.Stop()

	objectHandler := handlers.NewObjectHandler(objectStore, metaRepo, logger, expiryWindow)
	if metricsErr == nil {
		objectHandler.SetMetrics(serverMetrics)
	}
	metaHandler := handlers.NewPhotoMetaHandler(metaRepo, objectStore, thumbnails, hub, logger, expiryWindow)
	adminHandler := handlers.NewAdminHandler(metaRepo, cleanup, hub)
	wsHandler := handlers.NewWebSocketHandler(hub)
	healthHandler := handlers.NewHealthHandler()

	r := chi.NewRouter()
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(observability.TracingMiddleware("boothserver"))
	if httpMetrics, err := observability.NewHTTPMetrics(); err == nil {
		r.Use(observability.MetricsMiddleware(httpMetrics))
	}

	r.Get("/health", healthHandler.HealthCheck)
	r.Get("/api/health", healthHandler.HealthCheck)

	// Booth-facing API, gated by the booth API key
	r.Group(func(r chi.Router) {
		r.Use(custommw.APIKeyAuth(cfg.Server.APIKey, cfg.Server.APIKeyHeader))

		r.Put("/api/objects/*", objectHandler.Put)
		r.Delete("/api/objects/*", objectHandler.Delete)
		r.Post("/api/photos", metaHandler.Upsert)
		r.Get("/api/photos/{id}", metaHandler.Get)
	})

	// Guest-facing endpoints: no API key, rate limited per client IP
	r.Group(func(r chi.Router) {
		r.Use(custommw.RateLimit(cfg.Server.DownloadRPM))

		r.Get("/api/objects/*", objectHandler.Get)
		r.Get("/gallery/photos", metaHandler.Gallery)
		r.Get("/gallery/photos/{id}", metaHandler.Get)
		r.Get("/gallery/photos/{id}/thumb", metaHandler.Thumbnail)
	})

	r.Get("/ws", wsHandler.HandleConnection)

	// Operator endpoints behind the bcrypt-hashed admin key
	r.Group(func(r chi.Router) {
		r.Use(custommw.AdminAuth(cfg.Server.AdminKeyHash, "X-Admin-Key"))

		r.Get("/admin/stats", adminHandler.Stats)
		r.Get("/admin/cleanup", adminHandler.CleanupStatus)
		r.Post("/admin/cleanup/run", adminHandler.RunCleanup)
		r.Delete("/admin/photos/{id}", metaHandler.Delete)
	})

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second, // Longer for uploads
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Booth share server starting on %s", cfg.Server.Address)
		log.Printf("Photo storage path: %s", cfg.Server.StorageBasePath)
		log.Printf("Share window: %dh", cfg.Expiry.WindowHours)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	if err := telemetry.Shutdown(shutdownCtx); err != nil {
		log.Printf("Telemetry shutdown error: %v", err)
	}

	log.Println("Server stopped")
}
