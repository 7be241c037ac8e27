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

// The probe queries carry no parameters; each one reads a different report from
// the same health checker.
type (
	FetchLivenessQuery     struct{}
	FetchReadinessQuery    struct{}
	FetchHealthReportQuery struct{}

	FetchLivenessQueryHandler     = decorator.QueryHandler[FetchLivenessQuery, *model.LivenessReport]
	FetchReadinessQueryHandler    = decorator.QueryHandler[FetchReadinessQuery, *model.ReadinessReport]
	FetchHealthReportQueryHandler = decorator.QueryHandler[FetchHealthReportQuery, *model.HealthReport]

	// probeHandler adapts one HealthChecker method to a query handler.
	probeHandler[Q any, R any] struct {
		probe func(ctx context.Context) (R, error)
	}
)

func (h probeHandler[Q, R]) Execute(ctx context.Context, _ Q) (R, error) {
	return h.probe(ctx)
}

func NewFetchLivenessQueryHandler(
	healthChecker ports.HealthChecker,
	log logger.Logger,
	metricsClient metrics.Client,
	tracerProvider otelTrace.TracerProvider,
) FetchLivenessQueryHandler {
	return decorator.ApplyQueryDecorators[FetchLivenessQuery, *model.LivenessReport](
		probeHandler[FetchLivenessQuery, *model.LivenessReport]{probe: healthChecker.Liveness},
		log,
		metricsClient,
		tracerProvider,
	)
}

func NewFetchReadinessQueryHandler(
	healthChecker ports.HealthChecker,
	log logger.Logger,
	metricsClient metrics.Client,
	tracerProvider otelTrace.TracerProvider,
) FetchReadinessQueryHandler {
	return decorator.ApplyQueryDecorators[FetchReadinessQuery, *model.ReadinessReport](
		probeHandler[FetchReadinessQuery, *model.ReadinessReport]{probe: healthChecker.Readiness},
		log,
		metricsClient,
		tracerProvider,
	)
}

func NewFetchHealthReportQueryHandler(
	healthChecker ports.HealthChecker,
	log logger.Logger,
	metricsClient metrics.Client,
	tracerProvider otelTrace.TracerProvider,
) FetchHealthReportQueryHandler {
	return decorator.ApplyQueryDecorators[FetchHealthReportQuery, *model.HealthReport](
		probeHandler[FetchHealthReportQuery, *model.HealthReport]{probe: healthChecker.Health},
		log,
		metricsClient,
		tracerProvider,
	)
}
