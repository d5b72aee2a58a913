package instrumentation

import (
	"context"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	out := make(map[string]metricdata.Aggregation)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func counterTotal(t *testing.T, data metricdata.Aggregation) int64 {
	t.Helper()
	sum, ok := data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("expected int64 sum, got %T", data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestMetrics_PipelineRecording(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordItem(ctx, StatusSuccess, "", 2*time.Second)
	m.RecordItem(ctx, StatusError, "UnsupportedContentType", time.Millisecond)
	m.RecordStage(ctx, "summary", StatusSuccess, time.Second)
	m.RecordStage(ctx, "priority", StatusError, time.Second)
	m.RecordStageRetry(ctx, "priority")
	m.RecordCacheLookup(ctx, true)
	m.RecordCacheLookup(ctx, false)
	m.RecordGoogleAPIOperation(ctx, ServiceDrive, OperationExport, StatusSuccess, 300*time.Millisecond)
	m.RecordLLMRequest(ctx, "llama-3.1-70b-versatile", StatusSuccess, time.Second)
	m.RecordToolInvocation(ctx, "drive_report", StatusSuccess, 5*time.Second)

	got := collect(t, reader)

	tests := []struct {
		name string
		want int64
	}{
		{"pipeline_items_total", 2},
		{"pipeline_stage_calls_total", 2},
		{"pipeline_stage_retries_total", 1},
		{"pipeline_cache_lookups_total", 2},
		{"google_api_operations_total", 1},
		{"llm_requests_total", 1},
		{"mcp_tool_invocations_total", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, ok := got[tt.name]
			if !ok {
				t.Fatalf("metric %s not recorded", tt.name)
			}
			if total := counterTotal(t, data); total != tt.want {
				t.Errorf("%s = %d, want %d", tt.name, total, tt.want)
			}
		})
	}

	for _, name := range []string{
		"pipeline_item_duration_seconds",
		"pipeline_stage_duration_seconds",
		"google_api_operation_duration_seconds",
		"llm_request_duration_seconds",
		"mcp_tool_duration_seconds",
	} {
		if _, ok := got[name].(metricdata.Histogram[float64]); !ok {
			t.Errorf("expected histogram %s, got %T", name, got[name])
		}
	}
}

func TestMetrics_NilSafe(t *testing.T) {
	ctx := context.Background()
	for _, m := range []*Metrics{nil, {}} {
		// Should not panic
		m.RecordItem(ctx, StatusSuccess, "", time.Second)
		m.RecordStage(ctx, "summary", StatusSuccess, time.Second)
		m.RecordStageRetry(ctx, "summary")
		m.RecordCacheLookup(ctx, true)
		m.RecordGoogleAPIOperation(ctx, ServiceGmail, OperationList, StatusSuccess, time.Second)
		m.RecordLLMRequest(ctx, "model", StatusError, time.Second)
		m.RecordToolInvocation(ctx, "email_report", StatusSuccess, time.Second)
	}
}

func TestMetrics_FromProvider(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	provider, err := NewProvider(ctx, Config{
		ServiceName:     "test-service",
		ServiceVersion:  "1.0.0",
		Enabled:         true,
		MetricsExporter: "prometheus",
		TracingExporter: "none",
	})
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}
	defer func() { _ = provider.Shutdown(ctx) }()

	metrics := provider.Metrics()
	if metrics == nil {
		t.Fatal("expected metrics to be non-nil")
	}

	// Should not panic
	metrics.RecordItem(ctx, StatusSuccess, "", 100*time.Millisecond)
	metrics.RecordGoogleAPIOperation(ctx, ServiceCalendar, OperationCreate, StatusError, 500*time.Millisecond)
}
