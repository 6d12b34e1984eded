// Package context carries request-scoped metadata (trace ids, operation name)
// through reconciler calls so log lines of one unit of work can be correlated.
package context

import (
	"context"
)

// TraceContext contains request tracing information.
type TraceContext struct {
	TraceID   string
	SpanID    string
	RequestID string
}

type traceContextKey struct{}

type operationKey struct{}

// WithTrace adds TraceContext to context.
func WithTrace(ctx context.Context, trace *TraceContext) context.Context {
	return context.WithValue(ctx, traceContextKey{}, trace)
}

// GetTrace returns TraceContext from context.
func GetTrace(ctx context.Context) *TraceContext {
	if v, ok := ctx.Value(traceContextKey{}).(*TraceContext); ok {
		return v
	}
	return nil
}

// WithOperation tags ctx with the canonical operation being executed
// (e.g. "sale.complete", "purchase.cancel").
func WithOperation(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, operationKey{}, name)
}

// GetOperation returns the operation tag or empty string.
func GetOperation(ctx context.Context) string {
	if v, ok := ctx.Value(operationKey{}).(string); ok {
		return v
	}
	return ""
}
