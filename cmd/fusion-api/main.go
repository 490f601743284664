package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/kenya-ifp/fusion-api/internal/alerts"
	"github.com/kenya-ifp/fusion-api/internal/auth"
	"github.com/kenya-ifp/fusion-api/internal/config"
	"github.com/kenya-ifp/fusion-api/internal/correlation"
	"github.com/kenya-ifp/fusion-api/internal/httpapi"
	"github.com/kenya-ifp/fusion-api/internal/intelligence"
	"github.com/kenya-ifp/fusion-api/internal/metrics"
	"github.com/kenya-ifp/fusion-api/internal/monitoring"
	"github.com/kenya-ifp/fusion-api/internal/notifications"
	"github.com/kenya-ifp/fusion-api/internal/realtime"
	"github.com/kenya-ifp/fusion-api/internal/scheduler"
	"github.com/kenya-ifp/fusion-api/internal/storage"
)

func main() {
	// Load environment variables from .env file if it exists
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	// Initialize configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Set up logging
	logrus.SetLevel(logrus.InfoLevel)
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	logrus.SetFormatter(&logrus.JSONFormatter{})

	logrus.Info("Starting Kenya Intelligence Fusion Platform API")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Optional Redis for token revocation and the feed relay
	var (
		revoker auth.Revoker = auth.NewMemoryRevoker()
		relay   realtime.Relay
	)
	if cfg.RedisURL != "" {
		client, err := storage.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logrus.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer client.Close()
		revoker = auth.NewRedisRevoker(client)
		relay = realtime.NewRedisRelay(client)
		logrus.Infof("Redis enabled: revocations and feed relay on stream %s", realtime.FeedStream)
	}

	// Optional Azure archive for alerts and digests
	var archive storage.Archive
	if cfg.StorageAccount != "" {
		azureArchive, err := storage.NewAzureArchive(ctx, cfg.StorageAccount, cfg.StorageContainer)
		if err != nil {
			logrus.Fatalf("Failed to initialize storage: %v", err)
		}
		archive = azureArchive
	}

	// Credentials, reloaded when the users file changes
	users, err := auth.NewCredentialStore(cfg.UsersFile, cfg.SeedPassword)
	if err != nil {
		logrus.Fatalf("Failed to load users: %v", err)
	}
	go func() {
		if err := users.Watch(ctx); err != nil {
			logrus.Errorf("Users file watcher stopped: %v", err)
		}
	}()
	authService := auth.NewService(users, auth.NewIssuer(cfg.JWTSecret, cfg.JWTExpiresIn, cfg.RefreshTokenExpires), revoker)

	// Live feed
	topic := realtime.NewTopic(cfg.FeedBuffer)
	broadcaster := realtime.NewBroadcaster(topic, relay)

	// Repositories and domain services
	reports := storage.NewReportStore()
	alertStore := storage.NewAlertStore()
	predictions := storage.NewPredictionStore()

	notificationService := notifications.NewService(cfg)
	if !cfg.HasNotificationChannel() {
		logrus.Warn("No notification channel configured; alerts and digests are only broadcast on the live feed")
	}

	intelligenceService := intelligence.NewService(reports, broadcaster)
	alertService := alerts.NewService(alertStore, broadcaster, notificationService, archive)
	correlationService := correlation.NewService(intelligenceService, predictions, broadcaster)
	promMetrics := metrics.New()

	// Background jobs
	monitoringService := monitoring.NewService(cfg, reports, alertStore, archive, notificationService, intelligenceService, promMetrics)

	schedulerService, err := scheduler.NewService(cfg, monitoringService)
	if err != nil {
		logrus.Fatalf("Failed to create scheduler: %v", err)
	}
	if err := schedulerService.Start(); err != nil {
		logrus.Fatalf("Failed to start scheduler: %v", err)
	}
	defer schedulerService.Stop()

	api := httpapi.NewServer(httpapi.Deps{
		Config:       cfg,
		Auth:         authService,
		Intelligence: intelligenceService,
		Alerts:       alertService,
		Correlation:  correlationService,
		Topic:        topic,
		Jobs:         monitoringService,
		Metrics:      promMetrics,
		Reports:      reports,
		AlertStore:   alertStore,
		Predictions:  predictions,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      api.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start HTTP server in a goroutine
	go func() {
		logrus.Infof("HTTP server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	<-ctx.Done()

	logrus.Info("Shutting down server...")

	// Disconnect feed subscribers before draining HTTP
	topic.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server exited")
}
