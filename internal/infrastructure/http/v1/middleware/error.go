package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"lotkeeper/internal/core/apperror"
	"lotkeeper/internal/core/idempotency"
	"lotkeeper/pkg/logger"
)

// Gin context keys set by Idempotency.
const (
	ContextIdempotencyKey   = "idempotency_key"
	ContextIdempotencyStore = "idempotency_store"
)

// ErrorHandler middleware transforms errors into consistent JSON responses.
// Hides internal errors from clients while logging full details.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err

		// If response already written by handler, do not override it.
		if c.Writer.Written() {
			return
		}

		status := http.StatusInternalServerError
		var body gin.H

		if appErr, ok := apperror.AsAppError(err); ok {
			if appErr.Err != nil {
				logger.Error(c.Request.Context(), "request error",
					"code", appErr.Code,
					"cause", appErr.Err,
				)
			}
			status = appErr.HTTPStatus
			body = gin.H{
				"code":    appErr.Code,
				"message": appErr.Message,
				"details": appErr.Details,
			}
		} else {
			logger.Error(c.Request.Context(), "unhandled error", "error", err)
			body = gin.H{
				"code":    apperror.CodeInternal,
				"message": "Internal server error",
				"details": map[string]any{
					"request_id": c.GetString("request_id"),
				},
			}
		}

		// Conflicts mean another request owns the key; leave it alone.
		if !apperror.HasCode(err, apperror.CodeIdempotency) {
			FailIdempotency(c, status, body)
		}

		c.JSON(status, body)
	}
}

// CompleteIdempotency stores a successful response for replay (best-effort).
func CompleteIdempotency(c *gin.Context, statusCode int, contentType string, response any) {
	if key, store, ok := idempotencyFrom(c); ok {
		if err := store.CompleteKey(c.Request.Context(), key, statusCode, contentType, response); err != nil {
			logger.Warn(c.Request.Context(), "complete idempotency key", "key", key, "error", err)
		}
	}
}

// FailIdempotency stores an error response for replay (best-effort).
func FailIdempotency(c *gin.Context, statusCode int, response any) {
	if key, store, ok := idempotencyFrom(c); ok {
		if err := store.FailKey(c.Request.Context(), key, statusCode, "application/json", response); err != nil {
			logger.Warn(c.Request.Context(), "fail idempotency key", "key", key, "error", err)
		}
	}
}

func idempotencyFrom(c *gin.Context) (string, idempotency.Store, bool) {
	key := c.GetString(ContextIdempotencyKey)
	if key == "" {
		return "", nil, false
	}
	v, ok := c.Get(ContextIdempotencyStore)
	if !ok {
		return "", nil, false
	}
	store, ok := v.(idempotency.Store)
	return key, store, ok && store != nil
}
