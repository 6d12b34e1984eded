package memory

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"lotkeeper/internal/core/apperror"
	"lotkeeper/internal/core/idempotency"
)

var _ idempotency.Store = (*IdempotencyStore)(nil)

type idempotencyRecord struct {
	operation   string
	requestHash string
	status      idempotency.Status
	replay      idempotency.Replay
	updatedAt   time.Time
	expiresAt   time.Time
}

// IdempotencyStore implements idempotency.Store in process memory.
// Keys live outside the transactional state: a rolled back request still owns its key.
type IdempotencyStore struct {
	mu   sync.Mutex
	ttl  time.Duration
	keys map[string]*idempotencyRecord
	now  func() time.Time
}

// NewIdempotencyStore creates an empty key store.
func NewIdempotencyStore(ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &IdempotencyStore{
		ttl:  ttl,
		keys: make(map[string]*idempotencyRecord),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (s *IdempotencyStore) AcquireKey(ctx context.Context, key, operation, requestHash string) (*idempotency.Replay, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	rec, ok := s.keys[key]
	if !ok || now.After(rec.expiresAt) {
		s.keys[key] = &idempotencyRecord{
			operation:   operation,
			requestHash: requestHash,
			status:      idempotency.StatusPending,
			updatedAt:   now,
			expiresAt:   now.Add(s.ttl),
		}
		return nil, nil
	}

	if rec.operation != operation || rec.requestHash != requestHash {
		return nil, apperror.NewIdempotencyMismatch(key).
			WithDetail("stored_operation", rec.operation).
			WithDetail("request_operation", operation)
	}

	switch rec.status {
	case idempotency.StatusSuccess, idempotency.StatusFailed:
		replay := rec.replay
		return &replay, nil
	default:
		if now.Sub(rec.updatedAt) <= idempotency.StaleAfter {
			return nil, apperror.NewIdempotencyConflict(key)
		}
		rec.updatedAt = now
		return nil, nil
	}
}

func (s *IdempotencyStore) CompleteKey(ctx context.Context, key string, statusCode int, contentType string, response any) error {
	return s.finish(key, idempotency.StatusSuccess, statusCode, contentType, response)
}

func (s *IdempotencyStore) FailKey(ctx context.Context, key string, statusCode int, contentType string, response any) error {
	return s.finish(key, idempotency.StatusFailed, statusCode, contentType, response)
}

func (s *IdempotencyStore) finish(key string, status idempotency.Status, statusCode int, contentType string, response any) error {
	body, err := json.Marshal(response)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.keys[key]
	if !ok {
		return nil
	}
	rec.status = status
	rec.updatedAt = s.now()
	rec.replay = idempotency.Replay{
		StatusCode:  idempotency.NormalizeStatus(statusCode),
		ContentType: idempotency.NormalizeContentType(contentType),
		Body:        body,
	}
	return nil
}
