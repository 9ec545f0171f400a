package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/portfolio-blog-api/internal/api"
	"github.com/portfolio-blog-api/internal/auth"
	"github.com/portfolio-blog-api/internal/config"
	"github.com/portfolio-blog-api/internal/database"
	"github.com/portfolio-blog-api/internal/repository"
	"github.com/portfolio-blog-api/internal/service"
	"github.com/portfolio-blog-api/internal/storage"
	"github.com/portfolio-blog-api/pkg/logger"
)

func main() {
	// Bootstrap logger until the configured one is available
	log := logger.New(logger.Options{})

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log = logger.New(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, Env: cfg.Env})
	log.Info().Str("env", cfg.Env).Msg("Starting Portfolio Blog API server...")

	// Initialize database
	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	// Run migrations
	if err := db.RunMigrations(cfg.Database.MigrationsPath); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	// Initialize repositories
	repos := repository.New(db)

	// External collaborators
	ext := service.Externals{
		Admin: auth.NewAdminClient(cfg.Auth.URL, cfg.Auth.ServiceKey, log),
	}
	if !cfg.Auth.AdminConfigured() {
		log.Warn().Msg("AUTH_SERVICE_KEY not set, user administration is disabled")
	}
	if cfg.Storage.Configured() {
		images, err := storage.NewS3Store(context.Background(), &cfg.Storage)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize image storage")
		}
		ext.Images = images
	} else {
		log.Warn().Msg("Object storage not configured, image uploads are disabled")
	}

	// Initialize services
	services := service.NewServices(repos, ext, cfg, log)

	// Initialize router
	router := api.NewRouter(services, cfg, db, log)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.ReadTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited gracefully")
}
