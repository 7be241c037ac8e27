package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/architeacher/device-inventory/internal/adapters/inbound/http/handlers"
	"github.com/architeacher/device-inventory/internal/adapters/repos"
	"github.com/architeacher/device-inventory/internal/config"
	"github.com/architeacher/device-inventory/internal/services"
	"github.com/architeacher/device-inventory/internal/usecases"
	"github.com/architeacher/device-inventory/pkg/logger"
	metricsNoop "github.com/architeacher/device-inventory/pkg/metrics/noop"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	traceNoop "go.opentelemetry.io/otel/trace/noop"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	log := logger.NewTestLogger()
	repo := repos.NewMemoryDevicesRepository()

	app := usecases.NewApplication(
		services.NewDevicesService(repo, services.NewIdentityAssigner()),
		services.NewHealthService(
			config.App{ServiceName: "svc-devices", ServiceVersion: "test"},
			services.Dependency{Name: "database", Checker: repo, Required: true},
		),
		usecases.DeviceCaching{},
		log,
		metricsNoop.NewMetricsClient(),
		traceNoop.NewTracerProvider(),
	)

	router := chi.NewRouter()
	router.Route(handlers.DevicesPath, handlers.NewDeviceHandler(app, log).Routes)
	router.Route(handlers.HealthPath, handlers.NewHealthHandler(app, log).Routes)

	return router
}

func doRequest(t *testing.T, router http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))

	return out
}

func createDevice(t *testing.T, router http.Handler, body string) handlers.DeviceDTO {
	t.Helper()

	rec := doRequest(t, router, http.MethodPost, handlers.DevicesPath, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	return decode[handlers.DeviceDTO](t, rec)
}
