package handlers

import (
	"net/http"
	"time"

	"github.com/architeacher/device-inventory/internal/domain/model"
	"github.com/architeacher/device-inventory/internal/usecases"
	"github.com/architeacher/device-inventory/internal/usecases/queries"
	"github.com/architeacher/device-inventory/pkg/logger"
	"github.com/go-chi/chi/v5"
)

const (
	HealthPath    = "/health"
	LivenessPath  = HealthPath + "/liveness"
	ReadinessPath = HealthPath + "/readiness"
)

type (
	LivenessResponse struct {
		Status    model.HealthStatus `json:"status"`
		Timestamp time.Time          `json:"timestamp"`
		Version   string             `json:"version,omitempty"`
	}

	DependencyCheckResponse struct {
		Status      model.DependencyStatus `json:"status"`
		LatencyMs   uint64                 `json:"latencyMs"`
		Message     string                 `json:"message,omitempty"`
		Error       string                 `json:"error,omitempty"`
		LastChecked time.Time              `json:"lastChecked"`
	}

	ReadinessResponse struct {
		Status    model.HealthStatus                 `json:"status"`
		Timestamp time.Time                          `json:"timestamp"`
		Version   string                             `json:"version,omitempty"`
		Checks    map[string]DependencyCheckResponse `json:"checks,omitempty"`
	}

	HealthResponse struct {
		Status    model.HealthStatus                 `json:"status"`
		Timestamp time.Time                          `json:"timestamp"`
		Version   VersionResponse                    `json:"version"`
		Uptime    UptimeResponse                     `json:"uptime"`
		Checks    map[string]DependencyCheckResponse `json:"checks,omitempty"`
		System    SystemResponse                     `json:"system"`
	}

	VersionResponse struct {
		API   string `json:"api"`
		Build string `json:"build,omitempty"`
		Go    string `json:"go"`
	}

	UptimeResponse struct {
		StartedAt       time.Time `json:"startedAt"`
		Duration        string    `json:"duration"`
		DurationSeconds uint64    `json:"durationSeconds"`
	}

	SystemResponse struct {
		Goroutines uint    `json:"goroutines"`
		CPUCores   uint    `json:"cpuCores"`
		AllocMB    float64 `json:"allocMB"`
		SysMB      float64 `json:"sysMB"`
		GCCycles   uint32  `json:"gcCycles"`
	}

	HealthHandler struct {
		app    *usecases.Application
		logger logger.Logger
	}
)

func NewHealthHandler(app *usecases.Application, log logger.Logger) *HealthHandler {
	return &HealthHandler{
		app:    app,
		logger: log,
	}
}

func (h *HealthHandler) Routes(r chi.Router) {
	r.Get("/", h.HealthCheck)
	r.Get("/liveness", h.LivenessCheck)
	r.Get("/readiness", h.ReadinessCheck)
}

func (h *HealthHandler) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	result, err := h.app.Queries.FetchLiveness.Execute(r.Context(), queries.FetchLivenessQuery{})
	if err != nil {
		writeJSONResponse(w, http.StatusServiceUnavailable, LivenessResponse{
			Status:    model.HealthStatusDown,
			Timestamp: time.Now().UTC(),
		})

		return
	}

	writeJSONResponse(w, http.StatusOK, LivenessResponse{
		Status:    result.Status,
		Timestamp: result.Timestamp,
		Version:   result.Version,
	})
}

// ReadinessCheck answers 503 only when a required dependency is down. A degraded
// optional dependency keeps the service in rotation.
func (h *HealthHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	result, err := h.app.Queries.FetchReadiness.Execute(r.Context(), queries.FetchReadinessQuery{})
	if err != nil {
		h.logger.WithContext(r.Context()).Error().Err(err).Msg("readiness check failed")

		writeJSONResponse(w, http.StatusServiceUnavailable, ReadinessResponse{
			Status:    model.HealthStatusDown,
			Timestamp: time.Now().UTC(),
		})

		return
	}

	writeJSONResponse(w, statusCodeFor(result.Status), ReadinessResponse{
		Status:    result.Status,
		Timestamp: result.Timestamp,
		Version:   result.Version,
		Checks:    toDependencyChecks(result.Checks),
	})
}

func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	result, err := h.app.Queries.FetchHealthReport.Execute(r.Context(), queries.FetchHealthReportQuery{})
	if err != nil {
		h.logger.WithContext(r.Context()).Error().Err(err).Msg("health check failed")

		writeJSONResponse(w, http.StatusServiceUnavailable, ReadinessResponse{
			Status:    model.HealthStatusDown,
			Timestamp: time.Now().UTC(),
		})

		return
	}

	writeJSONResponse(w, statusCodeFor(result.Status), HealthResponse{
		Status:    result.Status,
		Timestamp: result.Timestamp,
		Version: VersionResponse{
			API:   result.Version.API,
			Build: result.Version.Build,
			Go:    result.Version.Go,
		},
		Uptime: UptimeResponse{
			StartedAt:       result.Uptime.StartedAt,
			Duration:        result.Uptime.Duration,
			DurationSeconds: result.Uptime.DurationSeconds,
		},
		Checks: toDependencyChecks(result.Checks),
		System: SystemResponse{
			Goroutines: result.System.Goroutines,
			CPUCores:   result.System.CPUCores,
			AllocMB:    result.System.Memory.AllocMB,
			SysMB:      result.System.Memory.SysMB,
			GCCycles:   result.System.Memory.GCCycles,
		},
	})
}

func statusCodeFor(status model.HealthStatus) int {
	if status == model.HealthStatusDown {
		return http.StatusServiceUnavailable
	}

	return http.StatusOK
}

func toDependencyChecks(checks map[string]model.DependencyCheck) map[string]DependencyCheckResponse {
	if len(checks) == 0 {
		return nil
	}

	out := make(map[string]DependencyCheckResponse, len(checks))
	for name, check := range checks {
		out[name] = DependencyCheckResponse{
			Status:      check.Status,
			LatencyMs:   check.LatencyMs,
			Message:     check.Message,
			Error:       check.Error,
			LastChecked: check.LastChecked,
		}
	}

	return out
}
