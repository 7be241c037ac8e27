// Package otel provides a metrics.Client backed by the OpenTelemetry SDK. Instruments
// are created lazily on first use: integer values feed counters, floating point
// values feed histograms.
package otel

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/architeacher/device-inventory/pkg/metrics"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	noopmetric "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/resource"
)

type (
	Client struct {
		provider *sdkmetric.MeterProvider
		reader   *sdkmetric.ManualReader
		meter    metric.Meter

		mu         sync.Mutex
		counters   map[string]metric.Int64Counter
		histograms map[string]metric.Float64Histogram
	}

	snapshotPoint struct {
		Name       string            `json:"name"`
		Attributes map[string]string `json:"attributes,omitempty"`
		Value      any               `json:"value"`
	}
)

var _ metrics.Client = (*Client)(nil)

func NewClient(serviceName string, res *resource.Resource) *Client {
	reader := sdkmetric.NewManualReader()

	opts := []sdkmetric.Option{sdkmetric.WithReader(reader)}
	if res != nil {
		opts = append(opts, sdkmetric.WithResource(res))
	}

	provider := sdkmetric.NewMeterProvider(opts...)

	return &Client{
		provider:   provider,
		reader:     reader,
		meter:      provider.Meter(serviceName),
		counters:   make(map[string]metric.Int64Counter),
		histograms: make(map[string]metric.Float64Histogram),
	}
}

func (c *Client) Inc(ctx context.Context, key string, value any, attributes ...attribute.KeyValue) {
	opt := metric.WithAttributes(attributes...)

	switch v := value.(type) {
	case int:
		c.counter(key).Add(ctx, int64(v), opt)
	case int64:
		c.counter(key).Add(ctx, v, opt)
	case uint64:
		c.counter(key).Add(ctx, int64(v), opt) //nolint:gosec // sizes stay far below MaxInt64
	case float64:
		c.histogram(key).Record(ctx, v, opt)
	}
}

// Handler serves a JSON snapshot of every collected data point.
func (c *Client) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var rm metricdata.ResourceMetrics
		if err := c.reader.Collect(r.Context(), &rm); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)

			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(flatten(rm))
	})
}

func (c *Client) Shutdown(ctx context.Context) error {
	return c.provider.Shutdown(ctx)
}

func (c *Client) counter(name string) metric.Int64Counter {
	c.mu.Lock()
	defer c.mu.Unlock()

	if counter, ok := c.counters[name]; ok {
		return counter
	}

	counter, err := metrics.RegisterInt64Counter(c.meter, metrics.Descriptor{Unit: metrics.UnitCount}, name)
	if err != nil {
		return noopmetric.Int64Counter{}
	}

	c.counters[name] = counter

	return counter
}

func (c *Client) histogram(name string) metric.Float64Histogram {
	c.mu.Lock()
	defer c.mu.Unlock()

	if histogram, ok := c.histograms[name]; ok {
		return histogram
	}

	histogram, err := metrics.RegisterFloat64Histogram(c.meter, metrics.Descriptor{Unit: metrics.UnitSeconds}, name)
	if err != nil {
		return noopmetric.Float64Histogram{}
	}

	c.histograms[name] = histogram

	return histogram
}

func flatten(rm metricdata.ResourceMetrics) []snapshotPoint {
	points := make([]snapshotPoint, 0)

	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					points = append(points, snapshotPoint{Name: m.Name, Attributes: attrMap(dp.Attributes), Value: dp.Value})
				}
			case metricdata.Histogram[float64]:
				for _, dp := range data.DataPoints {
					points = append(points, snapshotPoint{
						Name:       m.Name,
						Attributes: attrMap(dp.Attributes),
						Value:      map[string]any{"count": dp.Count, "sum": dp.Sum},
					})
				}
			}
		}
	}

	return points
}

func attrMap(set attribute.Set) map[string]string {
	if set.Len() == 0 {
		return nil
	}

	out := make(map[string]string, set.Len())

	for _, kv := range set.ToSlice() {
		out[string(kv.Key)] = kv.Value.Emit()
	}

	return out
}
