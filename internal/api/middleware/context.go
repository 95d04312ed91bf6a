package middleware

import (
	"context"
	"net/http"
)

type contextKey string

const (
	callerIDKey  contextKey = "caller_id"
	requestIDKey contextKey = "request_id"
)

func setCallerID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, callerIDKey, id)
}

// GetCallerID returns the identity used for rate limiting, set by ProxyAuth.
func GetCallerID(r *http.Request) (string, bool) {
	id, ok := r.Context().Value(callerIDKey).(string)
	return id, ok
}

func setRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// GetRequestID returns the correlation id assigned by RequestID.
func GetRequestID(r *http.Request) string {
	id, _ := r.Context().Value(requestIDKey).(string)
	return id
}

// ExportedCallerIDKey returns the context key for caller_id (for testing).
func ExportedCallerIDKey() contextKey {
	return callerIDKey
}
