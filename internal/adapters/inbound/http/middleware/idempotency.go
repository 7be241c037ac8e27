package middleware

import (
	"bytes"
	"io"
	"net/http"
	"time"

	"github.com/architeacher/device-inventory/internal/adapters/inbound/http/handlers"
	"github.com/architeacher/device-inventory/internal/config"
	"github.com/architeacher/device-inventory/internal/ports"
	"github.com/architeacher/device-inventory/pkg/idempotency"
	"github.com/architeacher/device-inventory/pkg/logger"
)

const (
	MessageRequestInProgress      = "A request with this idempotency key is already being processed"
	MessageIdempotencyUnavailable = "Idempotency is temporarily unavailable"

	maxFingerprintBodyBytes = 1 << 20
)

// Idempotency replays the stored response of a create retried under the same
// Idempotency-Key. Only POST is covered, the other verbs are idempotent already.
// A key reused with a different body is rejected.
func Idempotency(
	cache ports.IdempotencyCache,
	cfg config.Idempotency,
	log logger.Logger,
) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !cfg.Enabled || cache == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(cfg.HeaderName)
			if r.Method != http.MethodPost || key == "" {
				next.ServeHTTP(w, r)

				return
			}

			if err := idempotency.Validate(key); err != nil {
				handlers.WriteErrorResponse(w, http.StatusBadRequest, err.Error())

				return
			}

			body, err := io.ReadAll(io.LimitReader(r.Body, maxFingerprintBodyBytes+1))
			if err != nil {
				handlers.WriteErrorResponse(w, http.StatusBadRequest, handlers.MessageMalformedBody)

				return
			}

			r.Body = io.NopCloser(bytes.NewReader(body))

			ctx := r.Context()
			reqLogger := log.WithContext(ctx)
			cacheKey := idempotency.BuildCacheKey(r.Method, r.URL.Path, key)
			fingerprint := idempotency.Fingerprint(body)

			cached, err := cache.Get(ctx, cacheKey)
			if err != nil {
				reqLogger.Warn().Err(err).Msg("idempotency lookup failed")
				degrade(w, r, next, cfg)

				return
			}

			if cached != nil {
				serveCached(w, cfg, cached, fingerprint)

				return
			}

			acquired, err := cache.SetLock(ctx, cacheKey, cfg.LockTTL)
			if err != nil {
				reqLogger.Warn().Err(err).Msg("idempotency lock failed")
				degrade(w, r, next, cfg)

				return
			}

			if !acquired {
				handlers.WriteErrorResponse(w, http.StatusConflict, MessageRequestInProgress)

				return
			}

			defer func() {
				if releaseErr := cache.ReleaseLock(ctx, cacheKey); releaseErr != nil {
					reqLogger.Warn().Err(releaseErr).Msg("failed to release idempotency lock")
				}
			}()

			// A request holding the lock between our lookup and SetLock may have stored
			// its response already.
			cached, err = cache.Get(ctx, cacheKey)
			if err != nil {
				reqLogger.Warn().Err(err).Msg("idempotency lookup failed")
				degrade(w, r, next, cfg)

				return
			}

			if cached != nil {
				serveCached(w, cfg, cached, fingerprint)

				return
			}

			capture := newCapturingWriter(w)
			next.ServeHTTP(capture, r.WithContext(idempotency.WithKey(ctx, key)))

			if capture.StatusCode() < http.StatusOK || capture.StatusCode() >= http.StatusMultipleChoices {
				return
			}

			response := &ports.CachedResponse{
				StatusCode:  capture.StatusCode(),
				Headers:     capture.capturedHeaders(),
				Body:        capture.body.Bytes(),
				Fingerprint: fingerprint,
				CreatedAt:   time.Now().UTC(),
			}

			if err := cache.Set(ctx, cacheKey, response, cfg.CacheTTL); err != nil {
				reqLogger.Warn().Err(err).Msg("failed to store idempotent response")
			}
		})
	}
}

func serveCached(w http.ResponseWriter, cfg config.Idempotency, cached *ports.CachedResponse, fingerprint string) {
	if cached.Fingerprint != fingerprint {
		handlers.WriteErrorResponse(w, http.StatusUnprocessableEntity, idempotency.ErrKeyReused.Error())

		return
	}

	replay(w, cfg, cached)
}

// replay keeps headers already set for the current request, such as its own
// request id, and restores the rest from the stored response.
func replay(w http.ResponseWriter, cfg config.Idempotency, cached *ports.CachedResponse) {
	for key, value := range cached.Headers {
		if w.Header().Get(key) == "" {
			w.Header().Set(key, value)
		}
	}

	w.Header().Set(cfg.ReplayedHeader, "true")
	w.WriteHeader(cached.StatusCode)
	_, _ = w.Write(cached.Body)
}

func degrade(w http.ResponseWriter, r *http.Request, next http.Handler, cfg config.Idempotency) {
	if cfg.GracefulDegraded {
		next.ServeHTTP(w, r)

		return
	}

	handlers.WriteErrorResponse(w, http.StatusServiceUnavailable, MessageIdempotencyUnavailable)
}

// capturingWriter keeps a copy of the body so a successful response can be stored.
type capturingWriter struct {
	*ResponseRecorder
	body bytes.Buffer
}

func newCapturingWriter(w http.ResponseWriter) *capturingWriter {
	return &capturingWriter{ResponseRecorder: NewResponseRecorder(w)}
}

func (c *capturingWriter) Write(b []byte) (int, error) {
	c.body.Write(b)

	return c.ResponseRecorder.Write(b)
}

func (c *capturingWriter) capturedHeaders() map[string]string {
	headers := make(map[string]string)

	for key, values := range c.Header() {
		if len(values) > 0 {
			headers[key] = values[0]
		}
	}

	return headers
}
