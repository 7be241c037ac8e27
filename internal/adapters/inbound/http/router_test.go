package http_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	inboundhttp "github.com/architeacher/device-inventory/internal/adapters/inbound/http"
	"github.com/architeacher/device-inventory/internal/adapters/inbound/http/handlers"
	"github.com/architeacher/device-inventory/internal/adapters/repos"
	"github.com/architeacher/device-inventory/internal/config"
	"github.com/architeacher/device-inventory/internal/domain/model"
	"github.com/architeacher/device-inventory/internal/infrastructure"
	"github.com/architeacher/device-inventory/internal/services"
	"github.com/architeacher/device-inventory/internal/usecases"
	"github.com/architeacher/device-inventory/pkg/decorator"
	"github.com/architeacher/device-inventory/pkg/logger"
	metricsNoop "github.com/architeacher/device-inventory/pkg/metrics/noop"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/throttled/throttled/v2/store/memstore"
	traceNoop "go.opentelemetry.io/otel/trace/noop"
)

func testConfig() *config.ServiceConfig {
	return &config.ServiceConfig{
		App:        config.App{ServiceName: "svc-devices", ServiceVersion: "test"},
		HTTPServer: config.HTTPServer{RequestTimeout: 5 * time.Second},
		RateLimiting: config.RateLimiting{
			Enabled:           true,
			RequestsPerSecond: 1000,
			BurstSize:         1000,
			SkipPaths:         []string{handlers.HealthPath},
		},
		Idempotency: config.Idempotency{
			Enabled:        true,
			CacheTTL:       time.Hour,
			LockTTL:        time.Second,
			HeaderName:     "Idempotency-Key",
			ReplayedHeader: "Idempotent-Replayed",
		},
		DevicesCache: config.DevicesCache{Enabled: true, DeviceTTL: time.Minute},
	}
}

func newMemoryRouter(t *testing.T) http.Handler {
	t.Helper()

	log := logger.NewTestLogger()
	repo := repos.NewMemoryDevicesRepository()
	cfg := testConfig()

	store, err := memstore.NewCtx(64)
	require.NoError(t, err)

	app := usecases.NewApplication(
		services.NewDevicesService(repo, services.NewIdentityAssigner()),
		services.NewHealthService(cfg.App, services.Dependency{Name: "database", Checker: repo, Required: true}),
		usecases.DeviceCaching{},
		log,
		metricsNoop.NewMetricsClient(),
		traceNoop.NewTracerProvider(),
	)

	router, err := inboundhttp.NewRouter(inboundhttp.RouterConfig{
		App:            app,
		Logger:         log,
		MetricsClient:  metricsNoop.NewMetricsClient(),
		TracerProvider: traceNoop.NewTracerProvider(),
		RateLimitStore: store,
		Config:         cfg,
	})
	require.NoError(t, err)

	return router
}

func serve(t *testing.T, router http.Handler, method, target, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())

	return out
}

func TestRouter_DeviceLifecycle(t *testing.T) {
	t.Parallel()

	router := newMemoryRouter(t)

	rec := serve(t, router, http.MethodPost, "/devices", `{"name":"5530","brand":"nokia","state":"AVAILABLE"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	created := decodeBody[handlers.DeviceDTO](t, rec)
	require.NotEmpty(t, created.ID)
	require.False(t, created.CreationTime.IsZero())

	devicePath := "/devices/" + created.ID

	rec = serve(t, router, http.MethodPut, devicePath, `{"name":"5530","brand":"nokia","state":"IN_USE"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "IN_USE", decodeBody[handlers.DeviceDTO](t, rec).State)

	rec = serve(t, router, http.MethodDelete, devicePath, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	errBody := decodeBody[handlers.ErrorResponse](t, rec)
	require.Equal(t, http.StatusBadRequest, errBody.Status)
	require.Equal(t, "Bad Request", errBody.StatusMessage)
	require.Equal(t, []string{model.MessageCannotDeleteInUse}, errBody.Errors)

	rec = serve(t, router, http.MethodPatch, devicePath, `{"state":"MAINTENANCE"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	patched := decodeBody[handlers.DeviceDTO](t, rec)
	require.Equal(t, "MAINTENANCE", patched.State)
	require.Equal(t, created.ID, patched.ID)
	require.Equal(t, created.CreationTime, patched.CreationTime)

	rec = serve(t, router, http.MethodDelete, devicePath, "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = serve(t, router, http.MethodGet, devicePath, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, []string{model.MessageDeviceNotFound}, decodeBody[handlers.ErrorResponse](t, rec).Errors)
}

func TestRouter_EdgeBehaviour(t *testing.T) {
	t.Parallel()

	router := newMemoryRouter(t)

	rec := serve(t, router, http.MethodGet, "/devices", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"devices":[]}`, rec.Body.String())
	require.NotEmpty(t, rec.Header().Get("X-Request-Id"))
	require.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)

	rec = serve(t, router, http.MethodGet, "/devices", "", "If-None-Match", etag)
	require.Equal(t, http.StatusNotModified, rec.Code)

	rec = serve(t, router, http.MethodGet, "/unknown", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, []string{inboundhttp.MessageRouteNotFound}, decodeBody[handlers.ErrorResponse](t, rec).Errors)

	rec = serve(t, router, http.MethodPost, "/devices/"+model.NewDeviceID().String(), `{}`)
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = serve(t, router, http.MethodGet, handlers.ReadinessPath, "")
	require.Equal(t, http.StatusOK, rec.Code)
}

type RedisBackedRouterTestSuite struct {
	suite.Suite
	miniRedis   *miniredis.Miniredis
	redisClient *infrastructure.RedisClient
	router      http.Handler
}

func TestRedisBackedRouterTestSuite(t *testing.T) {
	t.Parallel()
	suite.Run(t, new(RedisBackedRouterTestSuite))
}

func (s *RedisBackedRouterTestSuite) SetupTest() {
	var err error
	s.miniRedis, err = miniredis.Run()
	s.Require().NoError(err)

	log := logger.NewTestLogger()
	cfg := testConfig()
	cfg.Cache = config.Cache{
		Enabled:      true,
		Address:      s.miniRedis.Addr(),
		PoolSize:     5,
		DialTimeout:  time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	}

	s.redisClient = infrastructure.NewRedisClient(cfg.Cache, log)
	devicesCache := repos.NewDevicesCacheRepository(s.redisClient, log)
	repo := repos.NewMemoryDevicesRepository()

	app := usecases.NewApplication(
		services.NewDevicesService(repo, services.NewIdentityAssigner()),
		services.NewHealthService(cfg.App,
			services.Dependency{Name: "database", Checker: repo, Required: true},
			services.Dependency{Name: "cache", Checker: s.redisClient},
		),
		usecases.DeviceCaching{
			Cache:      devicesCache,
			QueryCache: repos.NewGetDeviceCacheAdapter(devicesCache),
			Config:     decorator.CacheConfig{Enabled: true, TTL: cfg.DevicesCache.DeviceTTL},
		},
		log,
		metricsNoop.NewMetricsClient(),
		traceNoop.NewTracerProvider(),
	)

	s.router, err = inboundhttp.NewRouter(inboundhttp.RouterConfig{
		App:              app,
		Logger:           log,
		MetricsClient:    metricsNoop.NewMetricsClient(),
		TracerProvider:   traceNoop.NewTracerProvider(),
		IdempotencyCache: repos.NewIdempotencyRepository(s.redisClient),
		RateLimitStore:   repos.NewRateLimitStore(s.redisClient),
		Config:           cfg,
	})
	s.Require().NoError(err)
}

func (s *RedisBackedRouterTestSuite) TearDownTest() {
	_ = s.redisClient.Close()
	s.miniRedis.Close()
}

func (s *RedisBackedRouterTestSuite) TestReadThroughCacheIsInvalidatedOnWrite() {
	t := s.T()

	created := decodeBody[handlers.DeviceDTO](t,
		serve(t, s.router, http.MethodPost, "/devices", `{"name":"5530","brand":"nokia","state":"AVAILABLE"}`))
	devicePath := "/devices/" + created.ID

	rec := serve(t, s.router, http.MethodGet, devicePath, "")
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Require().Equal(string(decorator.CacheStatusMiss), rec.Header().Get(handlers.CacheStatusHeader))

	rec = serve(t, s.router, http.MethodGet, devicePath, "")
	s.Require().Equal(string(decorator.CacheStatusHit), rec.Header().Get(handlers.CacheStatusHeader))

	rec = serve(t, s.router, http.MethodPatch, devicePath, `{"name":"3310"}`)
	s.Require().Equal(http.StatusOK, rec.Code)

	rec = serve(t, s.router, http.MethodGet, devicePath, "")
	s.Require().Equal(string(decorator.CacheStatusMiss), rec.Header().Get(handlers.CacheStatusHeader))
	s.Require().Equal("3310", decodeBody[handlers.DeviceDTO](t, rec).Name)
}

func (s *RedisBackedRouterTestSuite) TestIdempotentCreateIsReplayed() {
	t := s.T()
	body := `{"name":"5530","brand":"nokia","state":"AVAILABLE"}`

	first := serve(t, s.router, http.MethodPost, "/devices", body, "Idempotency-Key", "create-5530-nokia-0001")
	s.Require().Equal(http.StatusCreated, first.Code)

	second := serve(t, s.router, http.MethodPost, "/devices", body, "Idempotency-Key", "create-5530-nokia-0001")
	s.Require().Equal(http.StatusCreated, second.Code)
	s.Require().Equal("true", second.Header().Get("Idempotent-Replayed"))
	s.Require().Equal(first.Body.String(), second.Body.String())

	list := decodeBody[handlers.DevicesDTO](t, serve(t, s.router, http.MethodGet, "/devices", ""))
	s.Require().Len(list.Devices, 1)
}

func (s *RedisBackedRouterTestSuite) TestReadinessReportsCache() {
	t := s.T()

	rec := serve(t, s.router, http.MethodGet, handlers.ReadinessPath, "")
	s.Require().Equal(http.StatusOK, rec.Code)

	readiness := decodeBody[handlers.ReadinessResponse](t, rec)
	s.Require().Equal(model.DependencyStatusUp, readiness.Checks["cache"].Status)

	s.miniRedis.Close()

	rec = serve(t, s.router, http.MethodGet, handlers.ReadinessPath, "")
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Require().Equal(model.HealthStatusDegraded, decodeBody[handlers.ReadinessResponse](t, rec).Status)
}
