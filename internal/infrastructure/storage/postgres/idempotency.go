package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"lotkeeper/internal/core/apperror"
	"lotkeeper/internal/core/idempotency"
)

var _ idempotency.Store = (*IdempotencyStore)(nil)

// IdempotencyStore implements idempotency.Store on sys_idempotency.
type IdempotencyStore struct {
	txManager *TxManager
	ttl       time.Duration
}

// NewIdempotencyStore creates a new idempotency store.
func NewIdempotencyStore(txManager *TxManager, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &IdempotencyStore{
		txManager: txManager,
		ttl:       ttl,
	}
}

// AcquireKey implements idempotency.Store.
func (s *IdempotencyStore) AcquireKey(ctx context.Context, key, operation, requestHash string) (*idempotency.Replay, error) {
	now := time.Now().UTC()
	expiresAt := now.Add(s.ttl)

	var (
		inserted    bool
		storedOp    string
		storedHash  string
		status      idempotency.Status
		response    []byte
		statusCode  int
		contentType string
		updatedAt   time.Time
	)

	// xmax = 0 only for a row this statement inserted.
	err := s.txManager.GetQuerier(ctx).QueryRow(ctx, `
		INSERT INTO sys_idempotency (idempotency_key, operation, status, request_hash, created_at, updated_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $5, $6)
		ON CONFLICT (idempotency_key) DO UPDATE SET
			expires_at = GREATEST(sys_idempotency.expires_at, EXCLUDED.expires_at)
		RETURNING (xmax = 0), operation, request_hash, status, response,
		          response_status, response_content_type, updated_at
	`, key, operation, idempotency.StatusPending, requestHash, now, expiresAt).Scan(
		&inserted, &storedOp, &storedHash, &status, &response,
		&statusCode, &contentType, &updatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("acquire idempotency key: %w", err)
	}

	if inserted {
		return nil, nil
	}

	if storedOp != operation || storedHash != requestHash {
		return nil, apperror.NewIdempotencyMismatch(key).
			WithDetail("stored_operation", storedOp).
			WithDetail("request_operation", operation)
	}

	switch status {
	case idempotency.StatusSuccess, idempotency.StatusFailed:
		return &idempotency.Replay{
			StatusCode:  idempotency.NormalizeStatus(statusCode),
			ContentType: idempotency.NormalizeContentType(contentType),
			Body:        response,
		}, nil

	case idempotency.StatusPending:
		if now.Sub(updatedAt) <= idempotency.StaleAfter {
			return nil, apperror.NewIdempotencyConflict(key)
		}
		// The previous holder most likely crashed; reclaim only if nobody beat us to it.
		tag, err := s.txManager.GetQuerier(ctx).Exec(ctx, `
			UPDATE sys_idempotency
			SET updated_at = $1
			WHERE idempotency_key = $2 AND status = $3 AND updated_at = $4
		`, now, key, idempotency.StatusPending, updatedAt)
		if err != nil {
			return nil, fmt.Errorf("reclaim stale key: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return nil, apperror.NewIdempotencyConflict(key)
		}
		return nil, nil
	}

	return nil, nil
}

// CompleteKey implements idempotency.Store.
func (s *IdempotencyStore) CompleteKey(ctx context.Context, key string, statusCode int, contentType string, response any) error {
	body, err := json.Marshal(response)
	if err != nil {
		return fmt.Errorf("marshal response: %w", err)
	}
	return s.finish(ctx, key, idempotency.StatusSuccess, statusCode, contentType, body)
}

// FailKey implements idempotency.Store.
func (s *IdempotencyStore) FailKey(ctx context.Context, key string, statusCode int, contentType string, response any) error {
	body, err := json.Marshal(response)
	if err != nil {
		body, _ = json.Marshal(map[string]string{"error": err.Error()})
	}
	return s.finish(ctx, key, idempotency.StatusFailed, statusCode, contentType, body)
}

func (s *IdempotencyStore) finish(ctx context.Context, key string, status idempotency.Status, statusCode int, contentType string, body []byte) error {
	_, err := s.txManager.GetQuerier(ctx).Exec(ctx, `
		UPDATE sys_idempotency
		SET status = $1,
		    response = $2,
		    response_status = $3,
		    response_content_type = $4,
		    updated_at = $5
		WHERE idempotency_key = $6
	`, status, body, statusCode, contentType, time.Now().UTC(), key)
	if err != nil {
		return fmt.Errorf("finish idempotency key: %w", err)
	}
	return nil
}

// CleanupExpired removes expired idempotency records.
func (s *IdempotencyStore) CleanupExpired(ctx context.Context) (int64, error) {
	result, err := s.txManager.GetQuerier(ctx).Exec(ctx, `
		DELETE FROM sys_idempotency WHERE expires_at < $1
	`, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("cleanup idempotency keys: %w", err)
	}
	return result.RowsAffected(), nil
}
