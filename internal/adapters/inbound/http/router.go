package http

import (
	"fmt"
	"net/http"

	"github.com/architeacher/device-inventory/internal/adapters/inbound/http/handlers"
	"github.com/architeacher/device-inventory/internal/adapters/inbound/http/middleware"
	"github.com/architeacher/device-inventory/internal/config"
	"github.com/architeacher/device-inventory/internal/ports"
	"github.com/architeacher/device-inventory/internal/usecases"
	"github.com/architeacher/device-inventory/pkg/logger"
	"github.com/architeacher/device-inventory/pkg/metrics"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/throttled/throttled/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	otelTrace "go.opentelemetry.io/otel/trace"
)

const (
	MessageRouteNotFound    = "Resource not found"
	MessageMethodNotAllowed = "Method not allowed"
)

type RouterConfig struct {
	App              *usecases.Application
	Logger           logger.Logger
	MetricsClient    metrics.Client
	TracerProvider   otelTrace.TracerProvider
	IdempotencyCache ports.IdempotencyCache
	RateLimitStore   throttled.GCRAStoreCtx
	Config           *config.ServiceConfig
}

func NewRouter(cfg RouterConfig) (http.Handler, error) {
	router := chi.NewRouter()

	router.Use(chimiddleware.RealIP)
	router.Use(middleware.RequestTracking())
	router.Use(middleware.Recovery(cfg.Logger))
	router.Use(middleware.SecurityHeaders())
	router.Use(chimiddleware.Timeout(cfg.Config.HTTPServer.RequestTimeout))

	if cfg.Config.Telemetry.Metrics.Enabled {
		router.Use(middleware.Metrics(cfg.MetricsClient))
		cfg.Logger.Info().Msg("HTTP metrics collection enabled")
	}

	router.Use(middleware.AccessLog(cfg.Logger, cfg.Config.Logging.AccessLog, handlers.HealthPath))

	rateLimiter, err := middleware.RateLimiting(cfg.Config.RateLimiting, cfg.RateLimitStore, cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build rate limiting: %w", err)
	}

	router.Use(rateLimiter)

	router.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		handlers.WriteErrorResponse(w, http.StatusNotFound, MessageRouteNotFound)
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		handlers.WriteErrorResponse(w, http.StatusMethodNotAllowed, MessageMethodNotAllowed)
	})

	deviceHandler := handlers.NewDeviceHandler(cfg.App, cfg.Logger)
	healthHandler := handlers.NewHealthHandler(cfg.App, cfg.Logger)

	router.Route(handlers.DevicesPath, func(r chi.Router) {
		r.Use(middleware.ConditionalGET())
		r.Use(middleware.Idempotency(cfg.IdempotencyCache, cfg.Config.Idempotency, cfg.Logger))

		deviceHandler.Routes(r)
	})

	router.Route(handlers.HealthPath, healthHandler.Routes)

	if !cfg.Config.Telemetry.Traces.Enabled {
		return router, nil
	}

	cfg.Logger.Info().Msg("distributed tracing enabled")

	return otelhttp.NewHandler(
		router,
		cfg.Config.App.ServiceName,
		otelhttp.WithTracerProvider(cfg.TracerProvider),
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	), nil
}
