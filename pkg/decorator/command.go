package decorator

import (
	"context"
	"reflect"

	"github.com/architeacher/device-inventory/pkg/logger"
	"github.com/architeacher/device-inventory/pkg/metrics"
	otelTrace "go.opentelemetry.io/otel/trace"
)

type (
	Command any

	CommandHandler[C Command, R any] interface {
		Handle(context.Context, C) (R, error)
	}
)

// ApplyCommandDecorators wraps a command handler with logging, metrics and tracing,
// outermost first. The span therefore covers only the handler itself.
func ApplyCommandDecorators[C Command, R any](
	handler CommandHandler[C, R],
	log logger.Logger,
	metricsClient metrics.Client,
	tracerProvider otelTrace.TracerProvider,
) CommandHandler[C, R] {
	traced := commandTracingDecorator[C, R]{base: handler, tracerProvider: tracerProvider}
	measured := commandMetricsDecorator[C, R]{base: traced, client: metricsClient}

	return commandLoggingDecorator[C, R]{base: measured, logger: log}
}

// generateActionName names a command or query after its type, dropping the package
// qualifier and any pointer indirection.
func generateActionName(message any) string {
	t := reflect.TypeOf(message)
	if t == nil {
		return "unknown"
	}

	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	return t.Name()
}
