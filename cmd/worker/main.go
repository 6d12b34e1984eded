// Package main is the entry point for the lotkeeper background worker.
// It relays committed outbox events and prunes system tables.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/redis/go-redis/v9"

	"lotkeeper/internal/config"
	"lotkeeper/internal/infrastructure/storage/postgres"
	"lotkeeper/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Development: cfg.IsDevelopment(),
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)

	if !cfg.UsesPostgres() {
		log.Fatal("DATABASE_URL is required for the worker")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Info("starting lotkeeper worker")

	pool, err := postgres.NewPool(ctx, cfg.Pool())
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	txm := postgres.NewTxManager(pool)

	var rdb *redis.Client
	if cfg.UsesRedis() {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalw("failed to ping redis", "error", err)
		}
	} else {
		log.Warn("REDIS_ADDR not set, outbox events will only be logged")
	}

	worker := NewWorker(WorkerConfig{
		Relay:        postgres.NewOutboxRelay(txm, cfg.OutboxBatchSize, newDeliverer(rdb, cfg.OutboxChannel, log)),
		Idempotency:  postgres.NewIdempotencyStore(txm, cfg.IdempotencyTTL),
		PollInterval: cfg.OutboxPollInterval,
		Retention:    cfg.OutboxRetention,
	}, log)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Run(ctx)
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker...")
	cancel()

	wg.Wait()
	log.Info("worker stopped")
}
