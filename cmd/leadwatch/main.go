package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/clienthunter/leadwatch/internal/api"
	"github.com/clienthunter/leadwatch/internal/cache"
	"github.com/clienthunter/leadwatch/internal/config"
	"github.com/clienthunter/leadwatch/internal/digest"
	"github.com/clienthunter/leadwatch/internal/leads"
	"github.com/clienthunter/leadwatch/internal/notifications"
	"github.com/clienthunter/leadwatch/internal/scheduler"
	"github.com/clienthunter/leadwatch/internal/settings"
	"github.com/clienthunter/leadwatch/internal/storage"
	"github.com/clienthunter/leadwatch/internal/templates"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// digestsKept is how many digest snapshots stay in blob storage
const digestsKept = 60

func main() {
	// Load environment variables from .env file if it exists
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logrus.SetLevel(logrus.InfoLevel)
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	logrus.SetFormatter(&logrus.JSONFormatter{})

	logrus.WithField("api", cfg.APIBaseURL).Info("Starting leadwatch")

	client := api.NewClient(cfg.APIBaseURL, cfg.RequestTimeout)

	responseCache, closeCache := buildCache(cfg)
	defer closeCache()

	templateRepo := templates.NewRepository(client, responseCache, cfg.RequireAIInstruction)
	leadRepo := leads.NewRepository(client, responseCache)
	settingsRepo := settings.NewRepository(client, responseCache)

	archive := buildArchive(cfg)

	notificationService := notifications.NewService(cfg)

	digestService := digest.NewService(cfg, digest.Sources{
		Leads:     leadRepo,
		Templates: templateRepo,
		Settings:  settingsRepo,
	}, archive, notificationService)

	schedulerService := scheduler.NewService(cfg, digestService)
	if err := schedulerService.Start(); err != nil {
		logrus.Fatalf("Failed to start scheduler: %v", err)
	}
	defer schedulerService.Stop()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      newRouter(digestService, leadRepo, templateRepo),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logrus.Infof("HTTP server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server exited")
}

// buildCache returns a Redis backed cache when REDIS_URL is set and an
// in-memory one otherwise
func buildCache(cfg *config.Config) (*cache.Cache, func()) {
	if cfg.RedisURL == "" {
		logrus.Info("Using in-memory response cache")
		return cache.NewMemory(cfg.CacheTTL), func() {}
	}

	store, err := cache.NewRedisStore(cfg.RedisURL)
	if err != nil {
		logrus.Fatalf("Failed to connect to Redis: %v", err)
	}
	logrus.Info("Using Redis response cache")
	return cache.New(store, cfg.CacheTTL), func() {
		if err := store.Close(); err != nil {
			logrus.Warnf("Failed to close Redis connection: %v", err)
		}
	}
}

// buildArchive returns nil when no storage account is configured
func buildArchive(cfg *config.Config) *storage.Archive {
	if cfg.StorageAccount == "" {
		logrus.Info("No storage account configured, digest snapshots disabled")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := storage.NewAzureStorage(ctx, cfg.StorageAccount, cfg.StorageContainer)
	if err != nil {
		logrus.Fatalf("Failed to initialize storage: %v", err)
	}
	return storage.NewArchive(store, digestsKept)
}
