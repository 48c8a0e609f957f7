package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/LoriKarikari/pulse/internal/version"
)

type Metrics struct {
	webhookEventsTotal metric.Int64Counter
	pipelinesTotal     metric.Int64Counter
	deploymentsTotal   metric.Int64Counter

	webhookDuration metric.Float64Histogram

	lastEventTimestamp metric.Int64Gauge
	info               metric.Int64Gauge
}

func newMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.webhookEventsTotal, err = meter.Int64Counter(
		"pulse_webhook_events_total",
		metric.WithDescription("Total number of webhook events received"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, err
	}

	m.pipelinesTotal, err = meter.Int64Counter(
		"pulse_pipelines_total",
		metric.WithDescription("Total number of pipeline upserts"),
		metric.WithUnit("{pipeline}"),
	)
	if err != nil {
		return nil, err
	}

	m.deploymentsTotal, err = meter.Int64Counter(
		"pulse_deployments_total",
		metric.WithDescription("Total number of deployment records"),
		metric.WithUnit("{deployment}"),
	)
	if err != nil {
		return nil, err
	}

	m.webhookDuration, err = meter.Float64Histogram(
		"pulse_webhook_duration_seconds",
		metric.WithDescription("Duration of webhook ingestion"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	m.lastEventTimestamp, err = meter.Int64Gauge(
		"pulse_last_event_timestamp",
		metric.WithDescription("Unix timestamp of the last processed event"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	m.info, err = meter.Int64Gauge(
		"pulse_info",
		metric.WithDescription("Pulse build information"),
	)
	if err != nil {
		return nil, err
	}

	m.info.Record(context.Background(), 1,
		metric.WithAttributes(
			attribute.String("version", version.Version()),
			attribute.String("commit", version.Commit()),
		),
	)

	return m, nil
}

func (m *Metrics) RecordWebhookEvent(ctx context.Context, provider, outcome string, duration time.Duration) {
	m.webhookEventsTotal.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("outcome", outcome),
		),
	)
	m.webhookDuration.Record(ctx, duration.Seconds(),
		metric.WithAttributes(attribute.String("provider", provider)),
	)
	m.lastEventTimestamp.Record(ctx, time.Now().Unix(),
		metric.WithAttributes(attribute.String("provider", provider)),
	)
}

func (m *Metrics) RecordPipeline(ctx context.Context, provider, status string) {
	m.pipelinesTotal.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("status", status),
		),
	)
}

func (m *Metrics) RecordDeployment(ctx context.Context, environment, status string) {
	m.deploymentsTotal.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("environment", environment),
			attribute.String("status", status),
		),
	)
}
