// Package main is the entry point for the lotkeeper API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"lotkeeper/internal/app"
	"lotkeeper/internal/config"
	"lotkeeper/internal/core/idempotency"
	"lotkeeper/internal/core/lock"
	v1 "lotkeeper/internal/infrastructure/http/v1"
	"lotkeeper/internal/infrastructure/http/v1/handlers"
	"lotkeeper/internal/infrastructure/locker"
	"lotkeeper/internal/infrastructure/storage/memory"
	"lotkeeper/internal/infrastructure/storage/postgres"
	"lotkeeper/pkg/logger"
)

const version = "0.1.0"

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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Infow("starting lotkeeper server", "version", version, "env", cfg.Env)

	checks := make(map[string]handlers.Pinger)

	// --- Locks ---
	var keyLocker lock.Locker = locker.NewLocal(cfg.LockWait)
	if cfg.UsesRedis() {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalw("failed to ping redis", "error", err)
		}
		keyLocker = locker.NewRedis(rdb, cfg.LockTTL, cfg.LockWait)
		checks["redis"] = redisPinger{rdb}
		log.Infow("redis locker enabled", "addr", cfg.RedisAddr)
	}

	// --- Stores ---
	var (
		stores    app.Stores
		idemStore idempotency.Store
		mode      = "memory"
	)
	if cfg.UsesPostgres() {
		mode = "postgres"
		pool, err := postgres.NewPool(ctx, cfg.Pool())
		if err != nil {
			log.Fatalw("failed to connect to database", "error", err)
		}
		defer pool.Close()

		if err := postgres.Migrate(ctx, pool); err != nil {
			log.Fatalw("failed to migrate database", "error", err)
		}

		txm := postgres.NewTxManager(pool)
		stores, err = app.PostgresStores(txm, keyLocker, cfg.AuditCompressThreshold)
		if err != nil {
			log.Fatalw("failed to build stores", "error", err)
		}
		pgIdem := postgres.NewIdempotencyStore(txm, cfg.IdempotencyTTL)
		idemStore = pgIdem
		checks["database"] = pool

		go maintain(ctx, pool, pgIdem)
	} else {
		log.Warn("DATABASE_URL not set, using in-memory store")
		stores = app.MemoryStores(memory.New(), keyLocker)
		idemStore = memory.NewIdempotencyStore(cfg.IdempotencyTTL)
	}

	engine := app.New(stores, cfg.Engine())

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		App:          engine,
		Logger:       log,
		Idempotency:  idemStore,
		HealthChecks: checks,
		StoreMode:    mode,
		Version:      version,
		Debug:        cfg.IsDevelopment(),
	})

	// --- HTTP Server ---
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "port", cfg.Port, "store", mode)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")
	cancel()

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, stop := context.WithTimeout(context.Background(), 30*time.Second)
	defer stop()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}

// maintain logs pool statistics and drops expired idempotency keys.
func maintain(ctx context.Context, pool *postgres.Pool, idem *postgres.IdempotencyStore) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			postgres.LogPoolStats(ctx, pool.Unwrap())
			n, err := idem.CleanupExpired(ctx)
			if err != nil {
				logger.Warn(ctx, "idempotency cleanup failed", "error", err)
				continue
			}
			if n > 0 {
				logger.Info(ctx, "cleaned up idempotency keys", "count", n)
			}
		}
	}
}

type redisPinger struct{ rdb *redis.Client }

func (p redisPinger) Ping(ctx context.Context) error { return p.rdb.Ping(ctx).Err() }
