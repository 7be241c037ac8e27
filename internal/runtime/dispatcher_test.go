package runtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("creates service context with default values", func(t *testing.T) {
		t.Parallel()

		serviceCtx := New()

		require.NotNil(t, serviceCtx)
		require.NotNil(t, serviceCtx.shutdownChannel)
		require.Nil(t, serviceCtx.deps)
		require.Nil(t, serviceCtx.serverReady)
		require.Empty(t, serviceCtx.dependencyOpts)
	})

	t.Run("creates service context with options", func(t *testing.T) {
		t.Parallel()

		ch := make(chan os.Signal, 1)
		serviceCtx := New(
			WithServiceTermination(ch),
			WithWaitingForServer(),
			WithDependencyOptions(func(*dependencies) error { return nil }),
		)

		require.NotNil(t, serviceCtx)
		require.Equal(t, ch, serviceCtx.shutdownChannel)
		require.NotNil(t, serviceCtx.serverReady)
		require.Len(t, serviceCtx.dependencyOpts, 1)
	})
}

func setMemoryEnvironment(t *testing.T) {
	t.Helper()

	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("HTTP_SERVER_HOST", "127.0.0.1")
	t.Setenv("HTTP_SERVER_PORT", "0")
	t.Setenv("ADMIN_SERVER_HOST", "127.0.0.1")
	t.Setenv("ADMIN_SERVER_PORT", "0")
	t.Setenv("CACHE_ENABLED", "false")
	t.Setenv("VAULT_ENABLED", "false")
	t.Setenv("TRACES_ENABLED", "false")
	t.Setenv("METRICS_ENABLED", "true")
	t.Setenv("LOG_LEVEL", "error")
}

func TestInitializeDependencies_MemoryStorage(t *testing.T) {
	setMemoryEnvironment(t)

	deps, err := initializeDependencies(context.Background())
	require.NoError(t, err)

	require.NotNil(t, deps.app)
	require.NotNil(t, deps.infra.publicHttpServer)
	require.NotNil(t, deps.infra.adminHttpServer)
	require.NotNil(t, deps.repos.rateLimitStore)
	require.Nil(t, deps.infra.cacheClient)
	require.Nil(t, deps.repos.devicesCache)
	require.Nil(t, deps.repos.idempotencyRepo)
	require.Contains(t, deps.cleanupFuncs, "tracer")
	require.Contains(t, deps.cleanupFuncs, "metrics")

	handler := deps.infra.publicHttpServer.Handler

	create := httptest.NewRecorder()
	handler.ServeHTTP(create, httptest.NewRequest(
		http.MethodPost, "/devices", strings.NewReader(`{"name":"5530","brand":"nokia","state":"AVAILABLE"}`),
	))
	require.Equal(t, http.StatusCreated, create.Code, create.Body.String())

	location := create.Header().Get("Location")
	require.True(t, strings.HasPrefix(location, "/devices/"))

	get := httptest.NewRecorder()
	handler.ServeHTTP(get, httptest.NewRequest(http.MethodGet, location, nil))
	require.Equal(t, http.StatusOK, get.Code)

	readiness := httptest.NewRecorder()
	handler.ServeHTTP(readiness, httptest.NewRequest(http.MethodGet, "/health/readiness", nil))
	require.Equal(t, http.StatusOK, readiness.Code)

	metricsRecorder := httptest.NewRecorder()
	deps.infra.adminHttpServer.Handler.ServeHTTP(metricsRecorder, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, metricsRecorder.Code)
}

func TestInitializeDependencies_OverridesApplyAfterDefaults(t *testing.T) {
	setMemoryEnvironment(t)
	t.Setenv("ADMIN_SERVER_ENABLED", "false")

	var seen *dependencies

	deps, err := initializeDependencies(context.Background(), func(d *dependencies) error {
		seen = d

		return nil
	})
	require.NoError(t, err)
	require.Same(t, deps, seen)
	require.NotNil(t, seen.app)
	require.Nil(t, deps.infra.adminHttpServer)
}

func TestInitializeDependencies_RejectsInvalidConfiguration(t *testing.T) {
	setMemoryEnvironment(t)
	t.Setenv("STORAGE_DRIVER", "mongodb")

	deps, err := initializeDependencies(context.Background())
	require.Error(t, err)
	require.Nil(t, deps)
	require.Contains(t, err.Error(), "unsupported storage driver")
}

func TestRun_StopsOnTerminationSignal(t *testing.T) {
	setMemoryEnvironment(t)

	ch := make(chan os.Signal, 1)
	srv := New(WithServiceTermination(ch), WithWaitingForServer())

	done := make(chan struct{})
	go func() {
		defer close(done)
		srv.Run()
	}()

	srv.WaitForServer()
	ch <- syscall.SIGTERM

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("service did not stop after the termination signal")
	}

	require.ErrorIs(t, srv.serverCtx.Err(), context.Canceled)
}

func TestRun_IgnoresSignalsAfterShutdownStarts(t *testing.T) {
	setMemoryEnvironment(t)

	// Keeps the test binary alive when SIGINT arrives below.
	guard := make(chan os.Signal, 1)
	signal.Notify(guard, syscall.SIGINT)
	t.Cleanup(func() { signal.Stop(guard) })

	ch := make(chan os.Signal, 1)
	srv := New(WithServiceTermination(ch), WithWaitingForServer())

	done := make(chan struct{})
	go func() {
		defer close(done)
		srv.Run()
	}()

	srv.WaitForServer()
	ch <- syscall.SIGTERM

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("service did not stop after the termination signal")
	}

	process, err := os.FindProcess(os.Getpid())
	require.NoError(t, err)
	require.NoError(t, process.Signal(syscall.SIGINT))

	select {
	case <-guard:
	case <-time.After(5 * time.Second):
		t.Fatal("signal was not delivered")
	}

	require.Empty(t, ch)
	require.NotPanics(t, func() { ch <- syscall.SIGTERM })
}
