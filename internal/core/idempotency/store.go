// Package idempotency defines the key store that lets a terminal retry a
// checkout or a receipt without recording it twice.
package idempotency

import (
	"context"
	"time"
)

// Status represents the state of an idempotent operation.
type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// StaleAfter is how long a pending key may sit before another request reclaims it.
const StaleAfter = time.Minute

// Replay is the cached HTTP response of a finished request.
type Replay struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// Store manages idempotency keys.
type Store interface {
	// AcquireKey returns (nil, nil) when the caller now owns key,
	// a Replay when the request already finished, or an AppError when the key
	// is in use by a running request or was issued for a different request.
	AcquireKey(ctx context.Context, key, operation, requestHash string) (*Replay, error)

	// CompleteKey stores the successful response for replay.
	CompleteKey(ctx context.Context, key string, statusCode int, contentType string, response any) error

	// FailKey stores the error response for replay.
	FailKey(ctx context.Context, key string, statusCode int, contentType string, response any) error
}

// NormalizeStatus defaults a missing status to 200.
func NormalizeStatus(status int) int {
	if status == 0 {
		return 200
	}
	return status
}

// NormalizeContentType defaults a missing content type to JSON.
func NormalizeContentType(ct string) string {
	if ct == "" {
		return "application/json"
	}
	return ct
}
