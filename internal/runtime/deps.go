package runtime

import (
	"context"
	"fmt"
	"net/http"

	"github.com/architeacher/device-inventory/internal/config"
	"github.com/architeacher/device-inventory/internal/domain/model"
	"github.com/architeacher/device-inventory/internal/infrastructure"
	"github.com/architeacher/device-inventory/internal/ports"
	"github.com/architeacher/device-inventory/internal/services"
	"github.com/architeacher/device-inventory/internal/usecases"
	"github.com/architeacher/device-inventory/internal/usecases/queries"
	"github.com/architeacher/device-inventory/pkg/decorator"
	"github.com/architeacher/device-inventory/pkg/logger"
	"github.com/architeacher/device-inventory/pkg/metrics"
	"github.com/throttled/throttled/v2"
	"go.opentelemetry.io/otel/sdk/resource"
	otelTrace "go.opentelemetry.io/otel/trace"
)

type (
	cleanupFunc func(ctx context.Context) error

	infrastructureDep struct {
		publicHttpServer *http.Server
		adminHttpServer  *http.Server
		cacheClient      *infrastructure.RedisClient
		resource         *resource.Resource
		logger           logger.Logger
		metricsClient    metrics.Client
		tracerProvider   otelTrace.TracerProvider
	}

	repositories struct {
		secretsRepo     ports.SecretsRepository
		deviceRepo      ports.DeviceRepository
		devicesCache    ports.DevicesCache
		queryCache      decorator.Cache[queries.GetDeviceQuery, *model.Device]
		idempotencyRepo ports.IdempotencyCache
		rateLimitStore  throttled.GCRAStoreCtx
	}

	servicesDep struct {
		devices ports.DevicesService
		health  ports.HealthChecker
	}

	dependencies struct {
		config       *config.ServiceConfig
		configLoader *config.Loader
		infra        infrastructureDep
		repos        repositories
		services     servicesDep
		app          *usecases.Application
		cleanupFuncs map[string]cleanupFunc
	}

	DependencyOption func(*dependencies) error
)

func initializeDependencies(ctx context.Context, opts ...DependencyOption) (*dependencies, error) {
	deps := &dependencies{
		cleanupFuncs: make(map[string]cleanupFunc),
	}

	allOpts := append(defaultOptions(ctx), opts...)

	for _, opt := range allOpts {
		if err := opt(deps); err != nil {
			deps.releaseOnFailure(ctx)

			return nil, fmt.Errorf("failed to apply dependency option: %w", err)
		}
	}

	return deps, nil
}

func (d *dependencies) addCleanup(resource string, fn cleanupFunc) {
	d.cleanupFuncs[resource] = fn
}

// releaseOnFailure closes whatever was opened before assembly failed.
func (d *dependencies) releaseOnFailure(ctx context.Context) {
	for _, fn := range d.cleanupFuncs {
		_ = fn(ctx)
	}
}

// healthDependencies lists the probes reported by readiness. Storage is required,
// the cache only degrades the service.
func (d *dependencies) healthDependencies() []services.Dependency {
	dependencies := []services.Dependency{
		{Name: "storage", Checker: d.repos.deviceRepo, Required: true},
	}

	if d.infra.cacheClient != nil {
		dependencies = append(dependencies, services.Dependency{
			Name:     "cache",
			Checker:  d.infra.cacheClient,
			Required: false,
		})
	}

	return dependencies
}
