package middlewares

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

// contextKey is an unexported type for context keys in this package, so the
// values cannot collide with keys set by other packages.
type contextKey string

const (
	headerXIdempotencyKey = "X-Idempotency-Key"

	// ContextKeyRequestID carries the chi-generated request ID.
	ContextKeyRequestID contextKey = "request_id"
	// ContextKeyIdempotencyKey carries the client-supplied idempotency key.
	ContextKeyIdempotencyKey contextKey = "idempotency_key"
)

// AttachRequestMetadata copies the request ID and the client's idempotency
// key into the request context under typed keys, so handlers and log lines
// downstream can pick them up without re-reading headers.
func AttachRequestMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), ContextKeyRequestID, middleware.GetReqID(r.Context()))
		ctx = context.WithValue(ctx, ContextKeyIdempotencyKey, r.Header.Get(headerXIdempotencyKey))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestID returns the request ID stored by AttachRequestMetadata, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ContextKeyRequestID).(string)
	return id
}
