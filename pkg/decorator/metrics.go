package decorator

import (
	"context"
	"strings"
	"time"

	"github.com/architeacher/device-inventory/pkg/metrics"
	"go.opentelemetry.io/otel/attribute"
)

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"

	kindCommand = "commands"
	kindQuery   = "queries"
)

type (
	commandMetricsDecorator[C Command, R any] struct {
		base   CommandHandler[C, R]
		client metrics.Client
	}

	queryMetricsDecorator[Q Query, R Result] struct {
		base   QueryHandler[Q, R]
		client metrics.Client
	}
)

func (d commandMetricsDecorator[C, R]) Handle(ctx context.Context, cmd C) (R, error) {
	start := time.Now()

	result, err := d.base.Handle(ctx, cmd)
	recordExecution(ctx, d.client, kindCommand, generateActionName(cmd), start, err)

	return result, err
}

func (d queryMetricsDecorator[Q, R]) Execute(ctx context.Context, query Q) (R, error) {
	start := time.Now()

	result, err := d.base.Execute(ctx, query)
	recordExecution(ctx, d.client, kindQuery, generateActionName(query), start, err)

	return result, err
}

// recordExecution emits "<kind>.duration" and "<kind>.total", both labelled with the
// lower cased action name; the counter also carries the outcome.
func recordExecution(ctx context.Context, client metrics.Client, kind, action string, start time.Time, err error) {
	if client == nil {
		return
	}

	actionAttr := attribute.String("action", strings.ToLower(action))

	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}

	client.Inc(ctx, kind+".duration", time.Since(start).Seconds(), actionAttr)
	client.Inc(ctx, kind+".total", int64(1), actionAttr, attribute.String("outcome", outcome))
}
