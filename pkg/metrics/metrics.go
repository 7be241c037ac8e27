// Package metrics defines the instrument facade used by HTTP middleware and the
// use case decorators. Implementations live in the otel and noop subpackages.
package metrics

import (
	"context"
	"fmt"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	UnitCount   = "1"
	UnitSeconds = "s"
	UnitBytes   = "By"
)

type (
	// Client records a value under key. Integer values feed counters, float values
	// feed duration histograms.
	Client interface {
		Inc(ctx context.Context, key string, value any, attributes ...attribute.KeyValue)
		Handler() http.Handler
		Shutdown(ctx context.Context) error
	}

	// Descriptor is the optional metadata attached to an instrument on first use.
	Descriptor struct {
		Description string
		Unit        string
	}
)

func (d Descriptor) options() []metric.InstrumentOption {
	var opts []metric.InstrumentOption

	if d.Description != "" {
		opts = append(opts, metric.WithDescription(d.Description))
	}

	if d.Unit != "" {
		opts = append(opts, metric.WithUnit(d.Unit))
	}

	return opts
}

func RegisterInt64Counter(m metric.Meter, descriptor Descriptor, name string) (metric.Int64Counter, error) {
	opts := make([]metric.Int64CounterOption, 0, 2)
	for _, opt := range descriptor.options() {
		opts = append(opts, opt)
	}

	counter, err := m.Int64Counter(name, opts...)
	if err != nil {
		return nil, fmt.Errorf("registering counter %q: %w", name, err)
	}

	return counter, nil
}

func RegisterFloat64Histogram(m metric.Meter, descriptor Descriptor, name string) (metric.Float64Histogram, error) {
	opts := make([]metric.Float64HistogramOption, 0, 2)
	for _, opt := range descriptor.options() {
		opts = append(opts, opt)
	}

	histogram, err := m.Float64Histogram(name, opts...)
	if err != nil {
		return nil, fmt.Errorf("registering histogram %q: %w", name, err)
	}

	return histogram, nil
}
