package healthcheck

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/trackerhq/tracker/internal/healthcheck"

type pollMetrics struct {
	pollTotal     metric.Int64Counter
	pollDuration  metric.Float64Histogram
	endpointGauge metric.Int64Gauge
}

func newPollMetrics() (*pollMetrics, error) {
	meter := otel.Meter(meterName)

	pollTotal, err := meter.Int64Counter(
		"tracker.health.poll.total",
		metric.WithDescription("Total number of health status polls"),
		metric.WithUnit("{poll}"),
	)
	if err != nil {
		return nil, err
	}

	pollDuration, err := meter.Float64Histogram(
		"tracker.health.poll.duration",
		metric.WithDescription("Duration of health status polls in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	endpointGauge, err := meter.Int64Gauge(
		"tracker.health.endpoints",
		metric.WithDescription("Monitored endpoints by status at the last poll"),
		metric.WithUnit("{endpoint}"),
	)
	if err != nil {
		return nil, err
	}

	return &pollMetrics{
		pollTotal:     pollTotal,
		pollDuration:  pollDuration,
		endpointGauge: endpointGauge,
	}, nil
}

func (m *pollMetrics) record(duration time.Duration, endpoints []Endpoint, err error) {
	ctx := context.TODO()
	attrs := []attribute.KeyValue{attribute.Bool("error", err != nil)}
	m.pollTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.pollDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))

	if err != nil {
		return
	}
	counts := map[Status]int64{StatusUp: 0, StatusDown: 0, StatusUnknown: 0}
	for _, ep := range endpoints {
		counts[ep.Status]++
	}
	for status, n := range counts {
		m.endpointGauge.Record(ctx, n, metric.WithAttributes(attribute.String("status", status.String())))
	}
}
