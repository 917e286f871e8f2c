package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"hiveroadmap/internal/pkg/logger"
	"hiveroadmap/internal/platform/config"
	"hiveroadmap/internal/platform/database"
)

func main() {
	direction := flag.String("direction", database.DirectionUp, "Migration direction: up or down")
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	dsn := flag.String("dsn", "", "Delivery log DSN (overrides config)")

	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg.Logging)

	if *dsn != "" {
		cfg.DeliveryLog.DSN = *dsn
	}
	if cfg.DeliveryLog.DSN == "" || cfg.DeliveryLog.DSN == ":memory:" {
		log.Fatal().Msg("Migrating an in-memory delivery log has no effect; pass -dsn or set delivery_log.dsn")
	}

	db, err := database.Open(cfg.DeliveryLog)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open delivery log")
	}
	defer db.Close()

	if err := database.Migrate(db, *direction); err != nil {
		log.Fatal().Err(err).Str("direction", *direction).Msg("Migration failed")
	}

	log.Info().Str("direction", *direction).Str("dsn", cfg.DeliveryLog.DSN).Msg("Migration completed successfully")
}
