package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/architeacher/device-inventory/pkg/metrics"
	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
)

const (
	httpMethodKey     = "http.method"
	httpRouteKey      = "http.route"
	httpStatusCodeKey = "http.status_code"

	httpRequestTotal    = "http_requests_total"
	httpRequestDuration = "http_request_duration_seconds"
	httpResponseSize    = "http_response_size_bytes"

	unmatchedRoute = "unmatched"
)

// Metrics records request counts, latency and response sizes per route pattern.
// Device ids never become label values.
func Metrics(metricsClient metrics.Client) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := NewResponseRecorder(w)

			next.ServeHTTP(wrapped, r)

			attrs := []attribute.KeyValue{
				attribute.String(httpMethodKey, r.Method),
				attribute.String(httpRouteKey, routePattern(r)),
				attribute.String(httpStatusCodeKey, strconv.Itoa(wrapped.StatusCode())),
			}

			ctx := r.Context()
			metricsClient.Inc(ctx, httpRequestTotal, int64(1), attrs...)
			metricsClient.Inc(ctx, httpRequestDuration, time.Since(start).Seconds(), attrs...)
			metricsClient.Inc(ctx, httpResponseSize, int64(wrapped.BytesWritten()), attrs...)
		})
	}
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}

	return unmatchedRoute
}
