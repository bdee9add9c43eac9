package middleware

import (
	"context"
)

// context keys are unexported to avoid collisions
type ctxKey string

const (
	ctxKeyRequestID  ctxKey = "req_id"
	ctxKeyNavigation ctxKey = "instant_navigation"
)

// WithRequestID stores request id in context
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID, id)
}

// RequestID gets request id from context
func RequestID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ctxKeyRequestID).(string)
	return v, ok
}

// WithNavigation marks the request as a client-side content swap
func WithNavigation(ctx context.Context, is bool) context.Context {
	return context.WithValue(ctx, ctxKeyNavigation, is)
}

// IsNavigation reports whether the request is a client-side content swap
func IsNavigation(ctx context.Context) bool {
	v, _ := ctx.Value(ctxKeyNavigation).(bool)
	return v
}
