package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ignite/instantly-rollup/internal/analytics"
	"github.com/ignite/instantly-rollup/internal/api"
	"github.com/ignite/instantly-rollup/internal/config"
	"github.com/ignite/instantly-rollup/internal/instantly"
	"github.com/ignite/instantly-rollup/internal/pkg/logger"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if os.Getenv("LOG_LEVEL") == "debug" {
		logger.SetLevel(logger.DEBUG)
	}

	// Job store: Redis when configured (bounded retention for finished
	// jobs), in-memory otherwise.
	var store analytics.JobStore
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := client.Ping(pingCtx).Err(); err != nil {
			cancel()
			log.Fatalf("Failed to connect to Redis at %s: %v", cfg.Redis.Addr, err)
		}
		cancel()
		store = analytics.NewRedisStore(client, cfg.Jobs.Retention())
		logger.Info("using Redis job store", "addr", cfg.Redis.Addr, "retention_hours", cfg.Jobs.RetentionHours)
	} else {
		store = analytics.NewMemoryStore()
		logger.Info("using in-memory job store")
	}

	factory := func(apiKey string) analytics.CampaignAPI {
		return instantly.NewClient(cfg.Instantly, apiKey)
	}
	orchestrator := analytics.NewOrchestrator(store, factory, cfg.Jobs)

	handlers := api.NewHandlers(orchestrator, store)
	server := api.NewServer(cfg.Server, handlers)

	go func() {
		logger.Info("server listening", "addr", cfg.Server.Addr())
		if err := server.ListenAndServe(); err != nil {
			logger.Error("server stopped", "error", err)
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	// Stop in-flight jobs from issuing new fetches and let them wind down.
	orchestrator.Close()
}
