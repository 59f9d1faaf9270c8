package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/boijuny/chorizoventures/internal/config"
	"github.com/boijuny/chorizoventures/internal/handlers"
	"github.com/boijuny/chorizoventures/internal/i18n"
	"github.com/boijuny/chorizoventures/internal/middleware"
	"github.com/boijuny/chorizoventures/internal/personality"
	"github.com/boijuny/chorizoventures/internal/ratelimit"
	"github.com/boijuny/chorizoventures/internal/services/ai"
	"github.com/boijuny/chorizoventures/internal/services/cache"
	"github.com/boijuny/chorizoventures/pkg/logger"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to configuration file")
	envFile := flag.String("env", ".env", "Path to .env file")
	flag.Parse()

	// Load .env file if exists
	if err := godotenv.Load(*envFile); err != nil {
		fmt.Printf("Warning: .env file not found: %v\n", err)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(&cfg.Logging)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	log.Info("Starting Chorizo Ventures chat API...")

	// Refuse to boot on a hole in the personality table.
	if err := personality.Validate(); err != nil {
		log.WithError(err).Fatal("Personality registry is incomplete")
	}

	if cfg.Upstream.APIKey == "" {
		log.Warn("MISTRAL_API_KEY not set; every chat request will fail with an internal error")
	}

	limiter, err := ratelimit.New(&cfg.RateLimit, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize rate limiter")
	}

	cacheService := cache.NewCache(&cfg.Cache, log)
	aiClient := ai.NewClient(&cfg.Upstream, log)

	localizer, err := i18n.NewLocalizer(&cfg.I18n)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize i18n")
	}

	metrics := middleware.NewMetrics()

	if cfg.Monitoring.Metrics.Enabled {
		go func() {
			log.WithFields(logrus.Fields{
				"port": cfg.Monitoring.Metrics.Port,
				"path": cfg.Monitoring.Metrics.Path,
			}).Info("Starting metrics server")

			if err := middleware.StartMetricsServer(cfg.Monitoring.Metrics.Port, cfg.Monitoring.Metrics.Path); err != nil {
				log.WithError(err).Error("Metrics server failed")
			}
		}()
	}

	chatHandler := handlers.NewChatHandler(cfg, aiClient, limiter, cacheService, localizer, metrics, log)
	router := handlers.NewRouter(chatHandler, metrics, log)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.WithField("port", cfg.Server.Port).Info("API server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("API server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	log.Info("Shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Error("Graceful shutdown failed")
	}

	if closer, ok := limiter.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			log.WithError(err).Error("Failed to close rate limiter")
		}
	}

	log.Info("Server stopped")
}
