package queries

import (
	"context"

	"github.com/architeacher/device-inventory/internal/domain/model"
	"github.com/architeacher/device-inventory/internal/ports"
	"github.com/architeacher/device-inventory/pkg/decorator"
	"github.com/architeacher/device-inventory/pkg/logger"
	"github.com/architeacher/device-inventory/pkg/metrics"
	otelTrace "go.opentelemetry.io/otel/trace"
)

type (
	GetDeviceQuery struct {
		ID model.DeviceID
	}

	GetDeviceQueryHandler = decorator.QueryHandler[GetDeviceQuery, *model.Device]

	getDeviceQueryHandler struct {
		devicesService ports.DevicesService
	}
)

// NewGetDeviceQueryHandler serves single device reads. With a non nil cache the
// store is only consulted on a miss; logging, metrics and tracing wrap the cache.
func NewGetDeviceQueryHandler(
	svc ports.DevicesService,
	cache decorator.Cache[GetDeviceQuery, *model.Device],
	cacheConfig decorator.CacheConfig,
	log logger.Logger,
	metricsClient metrics.Client,
	tracerProvider otelTrace.TracerProvider,
) GetDeviceQueryHandler {
	var handler GetDeviceQueryHandler = getDeviceQueryHandler{devicesService: svc}

	if cache != nil {
		handler = decorator.NewQueryCachingDecorator(handler, cache, cacheConfig)
	}

	return decorator.ApplyQueryDecorators(handler, log, metricsClient, tracerProvider)
}

func (h getDeviceQueryHandler) Execute(ctx context.Context, query GetDeviceQuery) (*model.Device, error) {
	return h.devicesService.GetDevice(ctx, query.ID)
}
