package services

import (
	"context"
	"runtime"
	"time"

	"github.com/architeacher/device-inventory/internal/config"
	"github.com/architeacher/device-inventory/internal/domain/model"
	"github.com/architeacher/device-inventory/internal/ports"
)

const bytesPerMB = 1024 * 1024

type (
	// Dependency is a backing service probed by readiness and health checks.
	// The service is down when a required dependency is down.
	Dependency struct {
		Name     string
		Checker  ports.DatabaseHealthChecker
		Required bool
	}

	HealthService struct {
		app          config.App
		startedAt    time.Time
		dependencies []Dependency
		required     map[string]bool
	}
)

func NewHealthService(app config.App, dependencies ...Dependency) *HealthService {
	required := make(map[string]bool, len(dependencies))
	for _, dependency := range dependencies {
		required[dependency.Name] = dependency.Required
	}

	return &HealthService{
		app:          app,
		startedAt:    time.Now().UTC(),
		dependencies: dependencies,
		required:     required,
	}
}

func (s *HealthService) Liveness(context.Context) (*model.LivenessReport, error) {
	return &model.LivenessReport{
		Status:    model.HealthStatusOK,
		Timestamp: time.Now().UTC(),
		Version:   s.app.ServiceVersion,
	}, nil
}

func (s *HealthService) Readiness(ctx context.Context) (*model.ReadinessReport, error) {
	checks := s.runChecks(ctx)

	return &model.ReadinessReport{
		Status:    model.OverallStatus(checks, s.required),
		Timestamp: time.Now().UTC(),
		Version:   s.app.ServiceVersion,
		Checks:    checks,
	}, nil
}

func (s *HealthService) Health(ctx context.Context) (*model.HealthReport, error) {
	checks := s.runChecks(ctx)
	now := time.Now().UTC()
	uptime := now.Sub(s.startedAt)

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return &model.HealthReport{
		Status:    model.OverallStatus(checks, s.required),
		Timestamp: now,
		Version: model.VersionInfo{
			API:   s.app.ServiceVersion,
			Build: s.app.CommitSHA,
			Go:    runtime.Version(),
		},
		Uptime: model.UptimeInfo{
			StartedAt:       s.startedAt,
			Duration:        uptime.Round(time.Second).String(),
			DurationSeconds: uint64(uptime.Seconds()),
		},
		Checks: checks,
		System: model.SystemInfo{
			Memory: model.MemoryInfo{
				AllocMB:      float64(mem.Alloc) / bytesPerMB,
				TotalAllocMB: float64(mem.TotalAlloc) / bytesPerMB,
				SysMB:        float64(mem.Sys) / bytesPerMB,
				GCCycles:     mem.NumGC,
			},
			Goroutines: uint(runtime.NumGoroutine()),
			CPUCores:   uint(runtime.NumCPU()),
		},
	}, nil
}

func (s *HealthService) runChecks(ctx context.Context) map[string]model.DependencyCheck {
	checks := make(map[string]model.DependencyCheck, len(s.dependencies))

	for _, dependency := range s.dependencies {
		start := time.Now()
		err := dependency.Checker.Ping(ctx)

		check := model.DependencyCheck{
			Status:      model.DependencyStatusUp,
			LatencyMs:   uint64(time.Since(start).Milliseconds()),
			Message:     "ok",
			LastChecked: start.UTC(),
		}

		if err != nil {
			check.Status = model.DependencyStatusDown
			check.Message = "unavailable"
			check.Error = err.Error()
		}

		checks[dependency.Name] = check
	}

	return checks
}
