package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/architeacher/device-inventory/internal/config"
	"github.com/architeacher/device-inventory/pkg/logger"
)

// AccessLog writes one entry per request once the response is complete. Probe
// traffic under healthPrefix is dropped unless the config asks for it.
func AccessLog(log logger.Logger, cfg config.AccessLog, healthPrefix string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !cfg.Enabled {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.LogHealthChecks && isUnder(r.URL.Path, healthPrefix) {
				next.ServeHTTP(w, r)

				return
			}

			start := time.Now()
			wrapped := NewResponseRecorder(w)

			next.ServeHTTP(wrapped, r)

			reqLogger := log.WithContext(r.Context()).With().
				Str("component", "http").
				Logger()

			event := reqLogger.Info()

			switch status := wrapped.StatusCode(); {
			case status >= http.StatusInternalServerError:
				event = reqLogger.Error()
			case status >= http.StatusBadRequest:
				event = reqLogger.Warn()
			}

			event.
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("remote_addr", r.RemoteAddr).
				Str("user_agent", r.UserAgent()).
				Int("status", wrapped.StatusCode()).
				Uint64("bytes", wrapped.BytesWritten()).
				Dur("duration", time.Since(start))

			if cfg.IncludeQueryParams && r.URL.RawQuery != "" {
				event.Str("query", r.URL.RawQuery)
			}

			event.Msg("request completed")
		})
	}
}

func isUnder(path, prefix string) bool {
	if prefix == "" {
		return false
	}

	path = strings.TrimSuffix(path, "/")

	return path == prefix || strings.HasPrefix(path, prefix+"/")
}
