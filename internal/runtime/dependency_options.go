package runtime

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"

	inboundhttp "github.com/architeacher/device-inventory/internal/adapters/inbound/http"
	"github.com/architeacher/device-inventory/internal/adapters/repos"
	"github.com/architeacher/device-inventory/internal/config"
	"github.com/architeacher/device-inventory/internal/infrastructure"
	infraPostgres "github.com/architeacher/device-inventory/internal/infrastructure/postgres"
	infraSQLite "github.com/architeacher/device-inventory/internal/infrastructure/sqlite"
	"github.com/architeacher/device-inventory/internal/services"
	"github.com/architeacher/device-inventory/internal/usecases"
	"github.com/architeacher/device-inventory/pkg/decorator"
	"github.com/architeacher/device-inventory/pkg/logger"
	"github.com/architeacher/device-inventory/pkg/metrics/noop"
	otelmetrics "github.com/architeacher/device-inventory/pkg/metrics/otel"
	"github.com/hashicorp/vault/api"
	"github.com/throttled/throttled/v2/store/memstore"
)

// rateLimitMemoryKeys bounds the in-process limiter used when no cache is configured.
const rateLimitMemoryKeys = 65536

func defaultOptions(ctx context.Context) []DependencyOption {
	return []DependencyOption{
		WithConfig(),
		WithLogger(),
		WithSecretsRepository(),
		WithConfigLoader(ctx),
		WithTelemetryResource(ctx),
		WithTracing(ctx),
		WithMetrics(),
		WithStorage(ctx),
		WithCache(ctx),
		WithRateLimitStore(),
		WithServices(),
		WithApplication(),
		WithHTTPServer(),
		WithAdminServer(),
	}
}

func WithConfig() DependencyOption {
	return func(d *dependencies) error {
		cfg, err := config.Init()
		if err != nil {
			return fmt.Errorf("initializing configuration: %w", err)
		}

		d.config = cfg

		return nil
	}
}

func WithLogger() DependencyOption {
	return func(d *dependencies) error {
		d.infra.logger = logger.New(d.config.Logging.Level, d.config.Logging.Format)

		return nil
	}
}

func WithSecretsRepository() DependencyOption {
	return func(d *dependencies) error {
		if !d.config.SecretsStorage.Enabled {
			return nil
		}

		vaultConfig := api.DefaultConfig()
		vaultConfig.Address = d.config.SecretsStorage.Address
		vaultConfig.Timeout = d.config.SecretsStorage.Timeout

		if d.config.SecretsStorage.TLSSkipVerify {
			vaultConfig.HttpClient.Transport = &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			}
		}

		client, err := api.NewClient(vaultConfig)
		if err != nil {
			return fmt.Errorf("creating Vault client: %w", err)
		}

		if d.config.SecretsStorage.Namespace != "" {
			client.SetNamespace(d.config.SecretsStorage.Namespace)
		}

		d.repos.secretsRepo = repos.NewVaultRepository(client)

		return nil
	}
}

// WithConfigLoader overlays Vault credentials before any backing service is dialed.
func WithConfigLoader(ctx context.Context) DependencyOption {
	return func(d *dependencies) error {
		if !d.config.SecretsStorage.Enabled || d.repos.secretsRepo == nil {
			return nil
		}

		loader := config.NewLoader(d.config, d.repos.secretsRepo)

		version, err := loader.Load(ctx)
		if err != nil {
			return fmt.Errorf("loading secrets from Vault: %w", err)
		}

		d.configLoader = loader

		d.infra.logger.Info().
			Uint("version", version).
			Msg("secrets applied from Vault")

		if !d.config.IsProduction() {
			d.infra.logger.Debug().RawJSON("config", []byte(loader.Dump())).Msg("effective configuration")
		}

		return nil
	}
}

func WithTelemetryResource(ctx context.Context) DependencyOption {
	return func(d *dependencies) error {
		res, err := infrastructure.NewResource(ctx, d.config.App)
		if err != nil {
			return fmt.Errorf("initializing telemetry resource: %w", err)
		}

		d.infra.resource = res

		return nil
	}
}

func WithTracing(ctx context.Context) DependencyOption {
	return func(d *dependencies) error {
		tp, shutdown, err := infrastructure.NewTracerProvider(ctx, d.infra.resource, d.config.Telemetry)
		if err != nil {
			return fmt.Errorf("initializing tracer: %w", err)
		}

		d.infra.tracerProvider = tp
		d.addCleanup("tracer", cleanupFunc(shutdown))

		return nil
	}
}

func WithMetrics() DependencyOption {
	return func(d *dependencies) error {
		if !d.config.Telemetry.Metrics.Enabled {
			d.infra.metricsClient = noop.NewMetricsClient()

			return nil
		}

		client := otelmetrics.NewClient(d.config.App.ServiceName, d.infra.resource)

		d.infra.metricsClient = client
		d.addCleanup("metrics", client.Shutdown)

		return nil
	}
}

// WithStorage selects the device repository for the configured driver and wraps
// it in the storage circuit breaker.
func WithStorage(ctx context.Context) DependencyOption {
	return func(d *dependencies) error {
		translator := repos.NewCriteriaTranslator()

		switch d.config.Storage.Driver {
		case config.StorageDriverPostgres:
			pool, err := infraPostgres.NewPool(ctx, d.config.Database, d.config.Backoff, d.infra.logger)
			if err != nil {
				return fmt.Errorf("connecting to database: %w", err)
			}

			d.addCleanup("postgres", func(context.Context) error {
				pool.Close()

				return nil
			})

			repo := repos.NewDevicesRepository(pool, repos.NewPgxScanner(), translator, d.infra.logger)
			if err := repo.EnsureSchema(ctx); err != nil {
				return fmt.Errorf("preparing devices schema: %w", err)
			}

			d.repos.deviceRepo = repo
		case config.StorageDriverSQLite:
			db, err := infraSQLite.Open(ctx, d.config.SQLite)
			if err != nil {
				return fmt.Errorf("opening sqlite database: %w", err)
			}

			d.addCleanup("sqlite", func(context.Context) error {
				return db.Close()
			})

			repo := repos.NewSQLiteDevicesRepository(db, repos.NewStdScanner(), translator, d.infra.logger)
			if err := repo.EnsureSchema(ctx); err != nil {
				return fmt.Errorf("preparing devices schema: %w", err)
			}

			d.repos.deviceRepo = repo
		case config.StorageDriverMemory:
			d.repos.deviceRepo = repos.NewMemoryDevicesRepository()
		default:
			return fmt.Errorf("unsupported storage driver %q", d.config.Storage.Driver)
		}

		d.infra.logger.Info().
			Str("driver", d.config.Storage.Driver).
			Msg("device storage ready")

		if d.config.CircuitBreaker.Enabled {
			d.repos.deviceRepo = repos.NewCircuitBreakingRepository(
				d.repos.deviceRepo,
				d.config.CircuitBreaker,
				d.infra.logger,
			)
		}

		return nil
	}
}

// WithCache connects Redis and wires the adapters built on it. Everything stays
// nil when the cache is disabled.
func WithCache(ctx context.Context) DependencyOption {
	return func(d *dependencies) error {
		if !d.config.Cache.Enabled {
			return nil
		}

		client, err := infrastructure.ConnectRedis(ctx, d.config.Cache, d.config.Backoff, d.infra.logger)
		if err != nil {
			return fmt.Errorf("connecting to cache: %w", err)
		}

		d.infra.cacheClient = client
		d.addCleanup("cache", func(context.Context) error {
			return client.Close()
		})

		if d.config.DevicesCache.Enabled {
			devicesCache := repos.NewDevicesCacheRepository(client, d.infra.logger)

			d.repos.devicesCache = devicesCache
			d.repos.queryCache = repos.NewGetDeviceCacheAdapter(devicesCache)
		}

		if d.config.Idempotency.Enabled {
			d.repos.idempotencyRepo = repos.NewIdempotencyRepository(client)
		}

		return nil
	}
}

// WithRateLimitStore keeps quotas in Redis when available and in process memory
// otherwise.
func WithRateLimitStore() DependencyOption {
	return func(d *dependencies) error {
		if !d.config.RateLimiting.Enabled {
			return nil
		}

		if d.infra.cacheClient != nil {
			d.repos.rateLimitStore = repos.NewRateLimitStore(d.infra.cacheClient)

			return nil
		}

		store, err := memstore.NewCtx(rateLimitMemoryKeys)
		if err != nil {
			return fmt.Errorf("creating in-memory rate limit store: %w", err)
		}

		d.repos.rateLimitStore = store
		d.infra.logger.Warn().Msg("rate limiting quotas are kept per instance, cache is disabled")

		return nil
	}
}

func WithServices() DependencyOption {
	return func(d *dependencies) error {
		d.services.devices = services.NewDevicesService(d.repos.deviceRepo, services.NewIdentityAssigner())
		d.services.health = services.NewHealthService(d.config.App, d.healthDependencies()...)

		return nil
	}
}

func WithApplication() DependencyOption {
	return func(d *dependencies) error {
		caching := usecases.DeviceCaching{
			Config: decorator.CacheConfig{
				Enabled: d.repos.queryCache != nil,
				TTL:     d.config.DevicesCache.DeviceTTL,
			},
		}

		// Interfaces stay untyped nil when the cache is off.
		if d.repos.devicesCache != nil {
			caching.Cache = d.repos.devicesCache
			caching.QueryCache = d.repos.queryCache
		}

		d.app = usecases.NewApplication(
			d.services.devices,
			d.services.health,
			caching,
			d.infra.logger,
			d.infra.metricsClient,
			d.infra.tracerProvider,
		)

		return nil
	}
}

func WithHTTPServer() DependencyOption {
	return func(d *dependencies) error {
		routerCfg := inboundhttp.RouterConfig{
			App:            d.app,
			Logger:         d.infra.logger,
			MetricsClient:  d.infra.metricsClient,
			TracerProvider: d.infra.tracerProvider,
			RateLimitStore: d.repos.rateLimitStore,
			Config:         d.config,
		}

		if d.repos.idempotencyRepo != nil {
			routerCfg.IdempotencyCache = d.repos.idempotencyRepo
		}

		router, err := inboundhttp.NewRouter(routerCfg)
		if err != nil {
			return fmt.Errorf("building http router: %w", err)
		}

		server := &http.Server{
			Addr:         d.config.HTTPServer.Address(),
			Handler:      router,
			ReadTimeout:  d.config.HTTPServer.ReadTimeout,
			WriteTimeout: d.config.HTTPServer.WriteTimeout,
			IdleTimeout:  d.config.HTTPServer.IdleTimeout,
		}

		d.infra.publicHttpServer = server

		return nil
	}
}

func WithAdminServer() DependencyOption {
	return func(d *dependencies) error {
		if !d.config.AdminServer.Enabled {
			return nil
		}

		adminCfg := inboundhttp.AdminRouterConfig{
			MetricsClient: d.infra.metricsClient,
			MetricsPath:   d.config.Telemetry.Metrics.Path,
			Logger:        d.infra.logger,
		}

		if d.repos.devicesCache != nil {
			adminCfg.DevicesCache = d.repos.devicesCache
		}

		server := &http.Server{
			Addr:         d.config.AdminServer.Address(),
			Handler:      inboundhttp.NewAdminRouter(adminCfg),
			ReadTimeout:  d.config.HTTPServer.ReadTimeout,
			WriteTimeout: d.config.HTTPServer.WriteTimeout,
			IdleTimeout:  d.config.HTTPServer.IdleTimeout,
		}

		d.infra.adminHttpServer = server

		return nil
	}
}
