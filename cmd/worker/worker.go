package main

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"lotkeeper/internal/infrastructure/storage/postgres"
	"lotkeeper/pkg/logger"
)

// WorkerConfig wires the worker's dependencies.
type WorkerConfig struct {
	Relay        *postgres.OutboxRelay
	Idempotency  *postgres.IdempotencyStore
	PollInterval time.Duration
	Retention    time.Duration
}

// Worker drains the outbox and runs hourly maintenance.
type Worker struct {
	cfg WorkerConfig
	log *logger.Logger
}

// NewWorker creates a worker.
func NewWorker(cfg WorkerConfig, log *logger.Logger) *Worker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	return &Worker{
		cfg: cfg,
		log: log.WithComponent("worker"),
	}
}

// Run blocks until ctx is canceled.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	cleanupTicker := time.NewTicker(1 * time.Hour)
	defer cleanupTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.processOutbox(ctx)
		case <-cleanupTicker.C:
			w.cleanup(ctx)
		}
	}
}

func (w *Worker) processOutbox(ctx context.Context) {
	// Keep draining while batches come back full.
	for ctx.Err() == nil {
		n, err := w.cfg.Relay.ProcessBatch(ctx)
		if err != nil {
			w.log.Errorw("outbox batch failed", "error", err)
			return
		}
		if n == 0 {
			return
		}
		w.log.Debugw("outbox batch published", "count", n)
	}
}

func (w *Worker) cleanup(ctx context.Context) {
	if n, err := w.cfg.Relay.MoveToDLQ(ctx); err != nil {
		w.log.Errorw("failed to move dead outbox messages", "error", err)
	} else if n > 0 {
		w.log.Warnw("outbox messages exhausted retries", "count", n)
	}

	if n, err := w.cfg.Relay.PurgePublished(ctx, w.cfg.Retention); err != nil {
		w.log.Errorw("failed to purge published outbox messages", "error", err)
	} else if n > 0 {
		w.log.Infow("purged published outbox messages", "count", n)
	}

	if n, err := w.cfg.Idempotency.CleanupExpired(ctx); err != nil {
		w.log.Errorw("failed to cleanup idempotency keys", "error", err)
	} else if n > 0 {
		w.log.Infow("cleaned up idempotency keys", "count", n)
	}
}

// channelPublisher is the subset of *redis.Client used for delivery.
type channelPublisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// newDeliverer publishes outbox envelopes to a Redis channel, or only logs
// them when no client is configured.
func newDeliverer(rdb *redis.Client, channel string, log *logger.Logger) postgres.OutboxHandler {
	if rdb == nil {
		return logDeliverer(log)
	}
	return redisDeliverer(rdb, channel)
}

func redisDeliverer(pub channelPublisher, channel string) postgres.OutboxHandler {
	return postgres.OutboxHandlerFunc(func(ctx context.Context, msg *postgres.OutboxMessage) error {
		payload, err := msg.Envelope()
		if err != nil {
			return fmt.Errorf("encode envelope: %w", err)
		}
		if err := pub.Publish(ctx, channel, payload).Err(); err != nil {
			return fmt.Errorf("publish %s: %w", msg.EventType, err)
		}
		return nil
	})
}

func logDeliverer(log *logger.Logger) postgres.OutboxHandler {
	return postgres.OutboxHandlerFunc(func(ctx context.Context, msg *postgres.OutboxMessage) error {
		log.Infow("outbox event",
			"event_type", msg.EventType,
			"aggregate_type", msg.AggregateType,
			"aggregate_id", msg.AggregateID,
		)
		return nil
	})
}
