package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/lostfound/community/internal/cache"
	"github.com/lostfound/community/internal/db"
	"github.com/lostfound/community/internal/stats"
	"github.com/lostfound/community/pkg/config"
	"github.com/lostfound/community/pkg/logging"
	"github.com/lostfound/community/pkg/telemetry"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logging.InitLogger(&cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logging.GetLogger().Sync()

	logger := logging.GetLogger()
	logger.Info("Starting Lost & Found stats refresher")

	// Initialize telemetry
	telemetryShutdown, err := telemetry.Init(&cfg.Telemetry)
	if err != nil {
		logger.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer telemetryShutdown()

	database, err := db.New(&cfg.Database, cfg.Logging.Level)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close()

	redisCache, err := cache.New(&cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	if redisCache == nil {
		logger.Warn("Redis disabled, refreshed stats will not be shared")
	}
	defer redisCache.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	refresher := stats.NewRefresher(stats.NewService(database, redisCache, cfg.Stats.TTL), cfg.Stats.RefreshInterval)
	if err := refresher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Refresher stopped", zap.Error(err))
	}

	logger.Info("Refresher exited")
}
