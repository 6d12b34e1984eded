package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"

	"lotkeeper/internal/core/id"
	"lotkeeper/internal/domain/events"
	"lotkeeper/pkg/logger"
)

// OutboxStatus represents the state of an outbox message.
type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "pending"
	OutboxStatusPublished OutboxStatus = "published"
	OutboxStatusFailed    OutboxStatus = "failed"
)

// MaxOutboxAttempts is the number of delivery attempts before a message is marked failed.
const MaxOutboxAttempts = 5

// OutboxMessage represents a message in the transactional outbox.
type OutboxMessage struct {
	ID            id.ID        `db:"id" json:"id"`
	AggregateType string       `db:"aggregate_type" json:"aggregateType"` // e.g. "Sale", "Receipt"
	AggregateID   id.ID        `db:"aggregate_id" json:"aggregateId"`
	EventType     string       `db:"event_type" json:"eventType"` // e.g. "sale.completed"
	Payload       []byte       `db:"payload" json:"-"`
	Status        OutboxStatus `db:"status" json:"-"`
	RetryCount    int          `db:"retry_count" json:"-"`
	LastError     *string      `db:"last_error" json:"-"`
	NextRetryAt   *time.Time   `db:"next_retry_at" json:"-"`
	CreatedAt     time.Time    `db:"created_at" json:"createdAt"`
	PublishedAt   *time.Time   `db:"published_at" json:"-"`
}

// Envelope is the wire form delivered to subscribers.
func (m *OutboxMessage) Envelope() ([]byte, error) {
	return json.Marshal(struct {
		*OutboxMessage
		Payload json.RawMessage `json:"payload"`
	}{m, json.RawMessage(m.Payload)})
}

var _ events.Publisher = (*OutboxPublisher)(nil)

// OutboxPublisher writes events to sys_outbox in the caller's transaction.
type OutboxPublisher struct {
	txManager *TxManager
}

// NewOutboxPublisher creates a new outbox publisher.
func NewOutboxPublisher(txManager *TxManager) *OutboxPublisher {
	return &OutboxPublisher{txManager: txManager}
}

// Publish implements events.Publisher. MUST be called inside a transaction.
func (p *OutboxPublisher) Publish(ctx context.Context, event events.Event) error {
	tx := p.txManager.GetTx(ctx)
	if tx == nil {
		return fmt.Errorf("outbox publish requires transaction context")
	}

	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO sys_outbox (id, aggregate_type, aggregate_id, event_type, payload, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, id.New(), event.AggregateType, event.AggregateID, event.Type, payload, OutboxStatusPending, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert outbox message: %w", err)
	}

	return nil
}

// OutboxHandler delivers outbox messages.
type OutboxHandler interface {
	Handle(ctx context.Context, msg *OutboxMessage) error
}

// OutboxHandlerFunc adapts a function to OutboxHandler.
type OutboxHandlerFunc func(ctx context.Context, msg *OutboxMessage) error

// Handle implements OutboxHandler.
func (f OutboxHandlerFunc) Handle(ctx context.Context, msg *OutboxMessage) error { return f(ctx, msg) }

// OutboxRelay reads pending messages and hands them to the handler.
// Used by the background worker.
type OutboxRelay struct {
	txManager *TxManager
	batchSize int
	handler   OutboxHandler
}

// NewOutboxRelay creates a new outbox relay.
func NewOutboxRelay(txManager *TxManager, batchSize int, handler OutboxHandler) *OutboxRelay {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &OutboxRelay{
		txManager: txManager,
		batchSize: batchSize,
		handler:   handler,
	}
}

// ProcessBatch delivers one batch of due messages and returns how many were published.
// Rows stay locked (SKIP LOCKED) until the batch commits, so several workers can run.
func (r *OutboxRelay) ProcessBatch(ctx context.Context) (int, error) {
	processed := 0

	err := r.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		q := r.txManager.GetQuerier(ctx)

		var messages []*OutboxMessage
		err := pgxscan.Select(ctx, q, &messages, `
			SELECT id, aggregate_type, aggregate_id, event_type, payload, status,
			       retry_count, last_error, next_retry_at, created_at, published_at
			FROM sys_outbox
			WHERE status = $1
			  AND (next_retry_at IS NULL OR next_retry_at <= NOW())
			ORDER BY created_at
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		`, OutboxStatusPending, r.batchSize)
		if err != nil {
			return fmt.Errorf("fetch outbox messages: %w", err)
		}

		for _, msg := range messages {
			ok, err := r.processMessage(ctx, msg)
			if err != nil {
				return err
			}
			if ok {
				processed++
			}
		}
		return nil
	})

	return processed, err
}

// processMessage handles one message. A handler error is recorded on the row
// (linear backoff, failed after MaxOutboxAttempts) and is not returned.
func (r *OutboxRelay) processMessage(ctx context.Context, msg *OutboxMessage) (bool, error) {
	q := r.txManager.GetQuerier(ctx)

	if err := r.handler.Handle(ctx, msg); err != nil {
		attempt := msg.RetryCount + 1
		status := OutboxStatusPending
		if attempt >= MaxOutboxAttempts {
			status = OutboxStatusFailed
		}
		nextRetry := time.Now().UTC().Add(time.Duration(attempt) * time.Minute)

		logger.Warn(ctx, "outbox delivery failed",
			"message_id", msg.ID,
			"event_type", msg.EventType,
			"attempt", attempt,
			"error", err,
		)

		_, updateErr := q.Exec(ctx, `
			UPDATE sys_outbox
			SET retry_count = $1,
			    last_error = $2,
			    next_retry_at = $3,
			    status = $4
			WHERE id = $5
		`, attempt, err.Error(), nextRetry, status, msg.ID)
		if updateErr != nil {
			return false, fmt.Errorf("update failed message: %w", updateErr)
		}
		return false, nil
	}

	_, err := q.Exec(ctx, `
		UPDATE sys_outbox
		SET status = $1, published_at = $2
		WHERE id = $3
	`, OutboxStatusPublished, time.Now().UTC(), msg.ID)
	if err != nil {
		return false, fmt.Errorf("mark published: %w", err)
	}
	return true, nil
}

// MoveToDLQ moves failed messages to the dead letter table.
func (r *OutboxRelay) MoveToDLQ(ctx context.Context) (int64, error) {
	result, err := r.txManager.GetQuerier(ctx).Exec(ctx, `
		WITH moved AS (
			DELETE FROM sys_outbox
			WHERE status = $1
			RETURNING id, aggregate_type, aggregate_id, event_type, payload, retry_count, last_error, created_at
		)
		INSERT INTO sys_outbox_dlq (id, aggregate_type, aggregate_id, event_type, payload, retry_count, last_error, created_at)
		SELECT id, aggregate_type, aggregate_id, event_type, payload, retry_count, last_error, created_at FROM moved
	`, OutboxStatusFailed)
	if err != nil {
		return 0, fmt.Errorf("move to DLQ: %w", err)
	}

	return result.RowsAffected(), nil
}

// PurgePublished deletes published messages older than the cutoff.
func (r *OutboxRelay) PurgePublished(ctx context.Context, olderThan time.Duration) (int64, error) {
	result, err := r.txManager.GetQuerier(ctx).Exec(ctx, `
		DELETE FROM sys_outbox WHERE status = $1 AND published_at < $2
	`, OutboxStatusPublished, time.Now().UTC().Add(-olderThan))
	if err != nil {
		return 0, fmt.Errorf("purge published: %w", err)
	}
	return result.RowsAffected(), nil
}
