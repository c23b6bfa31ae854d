// Package main provides the API server entry point for the household ledger.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/household-ledger/internal/api"
	"github.com/household-ledger/internal/config"
	"github.com/household-ledger/internal/logging"
	"github.com/household-ledger/internal/ratelimit"
	"github.com/household-ledger/internal/request"
	"github.com/household-ledger/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logging.New(
		logging.ParseLevel(cfg.Logging.Level),
		logging.ParseFormat(cfg.Logging.Format),
	)
	logger.WithFields(map[string]interface{}{
		"level":  cfg.Logging.Level,
		"format": cfg.Logging.Format,
	}).Info("Structured logging initialized")

	postgres, err := storage.NewPostgresDB(&cfg.Postgres)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Postgres")
	}
	defer postgres.Close()
	logger.WithFields(map[string]interface{}{
		"host":            cfg.Postgres.Host,
		"max_connections": cfg.Postgres.MaxConnections,
	}).Info("Postgres connection established")

	var limiter *ratelimit.SlidingWindowLimiter
	if cfg.RateLimit.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()

		limiter, err = ratelimit.NewSlidingWindowLimiter(&ratelimit.Config{
			Redis:    redisClient,
			Requests: cfg.RateLimit.Requests,
			Window:   cfg.RateLimit.Window,
		})
		if err != nil {
			logger.WithError(err).Fatal("Failed to create rate limiter")
		}
		logger.WithFields(map[string]interface{}{
			"requests": cfg.RateLimit.Requests,
			"window":   cfg.RateLimit.Window.String(),
		}).Info("Rate limiting enabled")
	}

	executor := request.NewExecutor(postgres.Pool(), cfg.Postgres.AcquireTimeout, logger)
	api.RegisterResolvers(executor)

	serverConfig := &api.ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     cfg.Server.IdleTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}
	server := api.NewServer(serverConfig, executor, limiter, logger)

	go func() {
		if err := server.Start(); err != nil {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	logger.WithFields(map[string]interface{}{
		"host": cfg.Server.Host,
		"port": cfg.Server.Port,
	}).Info("Server started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), serverConfig.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Fatal("Server forced to shutdown")
	}

	logger.Info("Server exited")
}
