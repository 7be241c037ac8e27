package http

import (
	"net/http"

	"github.com/architeacher/device-inventory/internal/adapters/inbound/http/handlers"
	"github.com/architeacher/device-inventory/internal/adapters/inbound/http/middleware"
	"github.com/architeacher/device-inventory/internal/ports"
	"github.com/architeacher/device-inventory/pkg/logger"
	"github.com/architeacher/device-inventory/pkg/metrics"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

type AdminRouterConfig struct {
	DevicesCache  ports.DevicesCache
	MetricsClient metrics.Client
	MetricsPath   string
	Logger        logger.Logger
}

// NewAdminRouter serves metrics scraping and cache maintenance. It is meant for
// an internal port only.
func NewAdminRouter(cfg AdminRouterConfig) http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RealIP)
	router.Use(middleware.RequestTracking())
	router.Use(middleware.Recovery(cfg.Logger))

	if cfg.DevicesCache == nil {
		cfg.Logger.Warn().Msg("admin router: devices cache not available, cache endpoints will return 503")
	}

	router.Handle(cfg.MetricsPath, cfg.MetricsClient.Handler())
	router.Route(handlers.AdminCachePath, handlers.NewAdminHandler(cfg.DevicesCache, cfg.Logger).Routes)

	return router
}
