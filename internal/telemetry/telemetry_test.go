package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
)

const errNewFmt = "New() error = %v"

func setupProvider(t *testing.T) *Provider {
	t.Helper()
	registry := prometheus.NewRegistry()
	provider, err := New(WithRegistry(registry))
	if err != nil {
		t.Fatalf(errNewFmt, err)
	}
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	return provider
}

func getMetricsBody(t *testing.T, provider *Provider) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	provider.Handler().ServeHTTP(rec, req)
	return rec.Body.String()
}

func TestNew(t *testing.T) {
	provider := setupProvider(t)

	if provider.Metrics == nil {
		t.Error("expected Metrics to be initialized")
	}
	if provider.meterProvider == nil {
		t.Error("expected meterProvider to be initialized")
	}
}

func TestNewWithoutRegistry(t *testing.T) {
	provider, err := New()
	if err != nil {
		t.Fatalf(errNewFmt, err)
	}
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	if provider.registry == nil {
		t.Error("expected default registry to be created when not provided")
	}
}

func TestSetGlobal(t *testing.T) {
	previous := otel.GetMeterProvider()
	t.Cleanup(func() { otel.SetMeterProvider(previous) })

	provider := setupProvider(t)
	provider.SetGlobal()
}

func TestHandler(t *testing.T) {
	provider := setupProvider(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	provider.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "pulse_info") {
		t.Error("expected response to contain pulse_info metric")
	}
}

func TestRecordWebhookEvent(t *testing.T) {
	provider := setupProvider(t)

	provider.Metrics.RecordWebhookEvent(context.Background(), "github", "processed", 50*time.Millisecond)

	body := getMetricsBody(t, provider)
	if !strings.Contains(body, "pulse_webhook_events_total") {
		t.Error("expected pulse_webhook_events_total metric")
	}
	if !strings.Contains(body, `provider="github"`) {
		t.Error("expected metric to have provider label")
	}
	if !strings.Contains(body, `outcome="processed"`) {
		t.Error("expected metric to have outcome label")
	}
	if !strings.Contains(body, "pulse_webhook_duration_seconds") {
		t.Error("expected pulse_webhook_duration_seconds metric")
	}
}

func TestRecordPipeline(t *testing.T) {
	provider := setupProvider(t)

	provider.Metrics.RecordPipeline(context.Background(), "gitlab", "success")

	body := getMetricsBody(t, provider)
	if !strings.Contains(body, "pulse_pipelines_total") {
		t.Error("expected pulse_pipelines_total metric")
	}
	if !strings.Contains(body, `status="success"`) {
		t.Error("expected metric to have status label")
	}
}

func TestRecordDeployment(t *testing.T) {
	provider := setupProvider(t)

	provider.Metrics.RecordDeployment(context.Background(), "production", "success")

	body := getMetricsBody(t, provider)
	if !strings.Contains(body, "pulse_deployments_total") {
		t.Error("expected pulse_deployments_total metric")
	}
	if !strings.Contains(body, `environment="production"`) {
		t.Error("expected metric to have environment label")
	}
}

func TestIsolatedRegistries(t *testing.T) {
	provider1 := setupProvider(t)
	provider2 := setupProvider(t)

	provider1.Metrics.RecordPipeline(context.Background(), "github", "success")
	provider2.Metrics.RecordPipeline(context.Background(), "jenkins", "failed")

	body1 := getMetricsBody(t, provider1)
	body2 := getMetricsBody(t, provider2)

	if !strings.Contains(body1, `provider="github"`) {
		t.Error("provider1 should have github metric")
	}
	if strings.Contains(body1, `provider="jenkins"`) {
		t.Error("provider1 should NOT have jenkins metric (isolation failed)")
	}
	if !strings.Contains(body2, `provider="jenkins"`) {
		t.Error("provider2 should have jenkins metric")
	}
}
