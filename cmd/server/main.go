package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"hiveroadmap/internal/api"
	"hiveroadmap/internal/api/handlers"
	"hiveroadmap/internal/api/middleware"
	"hiveroadmap/internal/engine/hive"
	"hiveroadmap/internal/engine/roadmap"
	"hiveroadmap/internal/engine/webhooks"
	"hiveroadmap/internal/pkg/logger"
	"hiveroadmap/internal/pkg/validator"
	"hiveroadmap/internal/platform/config"
	"hiveroadmap/internal/platform/database"
	"hiveroadmap/internal/platform/repositories"
	"hiveroadmap/internal/workers"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Delivery log
	db, err := database.Open(cfg.DeliveryLog)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open delivery log")
	}
	defer db.Close()

	if err := database.Migrate(db, database.DirectionUp); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate delivery log")
	}
	deliveryRepo := repositories.NewDeliveryRepository(db)

	// Roadmap
	client := hive.NewClient(cfg.Hive)
	normalizer := roadmap.NewNormalizer(client.BaseURL(), client.SubmissionURL())
	roadmapSvc := roadmap.NewService(client, normalizer, cfg.Hive.PageConcurrency)
	roadmapSvc.CacheOrganization(cfg.Hive.OrganizationCacheTTL)

	// Webhooks
	defaultSecret := cfg.Webhooks.DefaultSecret
	if defaultSecret == "" {
		defaultSecret, err = randomSecret()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to generate default webhook secret")
		}
		log.Warn().Msg("webhooks.default_secret is not set; using a random secret that changes on every restart")
	}
	registry := webhooks.NewRegistry(defaultSecret, validator.ValidateWebhookURL)
	dispatcher := webhooks.NewDispatcher(registry, cfg.Webhooks, deliveryRepo)

	// Router
	deps := &api.Dependencies{
		RoadmapHandler: handlers.NewRoadmapHandler(roadmapSvc, dispatcher, cfg.Errors.ExposeDetails),
		WebhookHandler: handlers.NewWebhookHandler(registry, dispatcher, deliveryRepo, cfg.Errors.ExposeDetails),
		HealthHandler:  handlers.NewHealthHandler(db),
		MetricsHandler: handlers.NewMetricsHandler(),
		RateLimiter:    middleware.NewRateLimiter(cfg.RateLimit),
	}
	router := api.NewRouter(deps)

	go workers.RunDeliveryPruner(ctx, deliveryRepo, cfg.DeliveryLog.Retention, cfg.DeliveryLog.PruneInterval)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Str("upstream", client.BaseURL()).Msg("Server starting")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	case <-ctx.Done():
		log.Info().Msg("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Graceful shutdown failed")
		}
	}
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
