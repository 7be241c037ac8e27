package middleware

import (
	"net/http"
	"regexp"

	"github.com/architeacher/device-inventory/pkg/logger"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	RequestIDHeader     = "X-Request-Id"
	CorrelationIDHeader = "X-Correlation-Id"
)

// Client supplied ids end up in logs and response headers, so only short tokens
// made of safe characters are trusted.
var trackingIDPattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,128}$`)

// RequestTracking stamps every request with a request id and a correlation id.
// A caller's correlation id is propagated, the request id is always fresh unless
// a proxy already assigned one.
func RequestTracking() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := trackingID(r.Header.Get(RequestIDHeader))
			correlationID := trackingID(r.Header.Get(CorrelationIDHeader))

			ctx := logger.WithRequestID(r.Context(), requestID)
			ctx = logger.WithCorrelationID(ctx, correlationID)

			trace.SpanFromContext(ctx).SetAttributes(
				attribute.String("http.request_id", requestID),
				attribute.String("http.correlation_id", correlationID),
			)

			w.Header().Set(RequestIDHeader, requestID)
			w.Header().Set(CorrelationIDHeader, correlationID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func trackingID(candidate string) string {
	if trackingIDPattern.MatchString(candidate) {
		return candidate
	}

	return uuid.NewString()
}
