package instrumentation

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys
const (
	attrStatus    = "status"
	attrReason    = "reason"
	attrStage     = "stage"
	attrOperation = "operation"
	attrService   = "service"
	attrResult    = "result"
	attrTool      = "tool"
	attrModel     = "model"
)

// Metrics provides methods for recording observability metrics.
//
// All methods are safe to call on a nil *Metrics or on a Metrics created for
// a disabled provider; they record nothing in that case.
type Metrics struct {
	// Pipeline metrics
	itemsTotal        metric.Int64Counter
	itemDuration      metric.Float64Histogram
	stageCallsTotal   metric.Int64Counter
	stageDuration     metric.Float64Histogram
	stageRetriesTotal metric.Int64Counter
	cacheLookupsTotal metric.Int64Counter

	// Google API metrics
	googleAPIOperationsTotal   metric.Int64Counter
	googleAPIOperationDuration metric.Float64Histogram

	// Analysis capability metrics
	llmRequestsTotal   metric.Int64Counter
	llmRequestDuration metric.Float64Histogram

	// MCP Tool metrics
	toolInvocationsTotal metric.Int64Counter
	toolDuration         metric.Float64Histogram
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	latencyBuckets := metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0)

	// Pipeline metrics
	m.itemsTotal, err = meter.Int64Counter(
		"pipeline_items_total",
		metric.WithDescription("Total number of items resolved by the pipeline"),
		metric.WithUnit("{item}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline_items_total counter: %w", err)
	}

	m.itemDuration, err = meter.Float64Histogram(
		"pipeline_item_duration_seconds",
		metric.WithDescription("Time from extraction start to report or failure"),
		metric.WithUnit("s"),
		latencyBuckets,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline_item_duration_seconds histogram: %w", err)
	}

	m.stageCallsTotal, err = meter.Int64Counter(
		"pipeline_stage_calls_total",
		metric.WithDescription("Total number of analysis stage executions"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline_stage_calls_total counter: %w", err)
	}

	m.stageDuration, err = meter.Float64Histogram(
		"pipeline_stage_duration_seconds",
		metric.WithDescription("Analysis stage duration in seconds, retries included"),
		metric.WithUnit("s"),
		latencyBuckets,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline_stage_duration_seconds histogram: %w", err)
	}

	m.stageRetriesTotal, err = meter.Int64Counter(
		"pipeline_stage_retries_total",
		metric.WithDescription("Total number of analysis stage retries"),
		metric.WithUnit("{retry}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline_stage_retries_total counter: %w", err)
	}

	m.cacheLookupsTotal, err = meter.Int64Counter(
		"pipeline_cache_lookups_total",
		metric.WithDescription("Total number of stage result cache lookups"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline_cache_lookups_total counter: %w", err)
	}

	// Google API metrics
	m.googleAPIOperationsTotal, err = meter.Int64Counter(
		"google_api_operations_total",
		metric.WithDescription("Total number of Google API operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create google_api_operations_total counter: %w", err)
	}

	m.googleAPIOperationDuration, err = meter.Float64Histogram(
		"google_api_operation_duration_seconds",
		metric.WithDescription("Google API operation duration in seconds"),
		metric.WithUnit("s"),
		latencyBuckets,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create google_api_operation_duration_seconds histogram: %w", err)
	}

	// Analysis capability metrics
	m.llmRequestsTotal, err = meter.Int64Counter(
		"llm_requests_total",
		metric.WithDescription("Total number of requests to the text analysis service"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create llm_requests_total counter: %w", err)
	}

	m.llmRequestDuration, err = meter.Float64Histogram(
		"llm_request_duration_seconds",
		metric.WithDescription("Text analysis request duration in seconds"),
		metric.WithUnit("s"),
		latencyBuckets,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create llm_request_duration_seconds histogram: %w", err)
	}

	// MCP Tool metrics
	m.toolInvocationsTotal, err = meter.Int64Counter(
		"mcp_tool_invocations_total",
		metric.WithDescription("Total number of MCP tool invocations"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_invocations_total counter: %w", err)
	}

	m.toolDuration, err = meter.Float64Histogram(
		"mcp_tool_duration_seconds",
		metric.WithDescription("MCP tool execution duration in seconds"),
		metric.WithUnit("s"),
		latencyBuckets,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_duration_seconds histogram: %w", err)
	}

	return m, nil
}

// RecordItem records a resolved item. status is StatusSuccess or StatusError;
// reason is the failure reason and empty on success.
func (m *Metrics) RecordItem(ctx context.Context, status, reason string, duration time.Duration) {
	if m == nil || m.itemsTotal == nil || m.itemDuration == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrStatus, status),
		attribute.String(attrReason, reason),
	)
	m.itemsTotal.Add(ctx, 1, attrs)
	m.itemDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String(attrStatus, status)))
}

// RecordStage records one stage execution, retries included.
func (m *Metrics) RecordStage(ctx context.Context, stage, status string, duration time.Duration) {
	if m == nil || m.stageCallsTotal == nil || m.stageDuration == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrStage, stage),
		attribute.String(attrStatus, status),
	)
	m.stageCallsTotal.Add(ctx, 1, attrs)
	m.stageDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordStageRetry records a retried stage attempt.
func (m *Metrics) RecordStageRetry(ctx context.Context, stage string) {
	if m == nil || m.stageRetriesTotal == nil {
		return
	}
	m.stageRetriesTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrStage, stage)))
}

// RecordCacheLookup records a stage result cache lookup.
func (m *Metrics) RecordCacheLookup(ctx context.Context, hit bool) {
	if m == nil || m.cacheLookupsTotal == nil {
		return
	}
	result := CacheMiss
	if hit {
		result = CacheHit
	}
	m.cacheLookupsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrResult, result)))
}

// RecordGoogleAPIOperation records a Google API operation with service, operation,
// status, and duration.
//
// Parameters:
//   - service: Google service name (gmail, calendar, drive, meet, tasks)
//   - operation: Operation type (list, get, export, create)
//   - status: Result status ("success" or "error")
//   - duration: Time taken for the operation
func (m *Metrics) RecordGoogleAPIOperation(ctx context.Context, service, operation, status string, duration time.Duration) {
	if m == nil || m.googleAPIOperationsTotal == nil || m.googleAPIOperationDuration == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrService, service),
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	)
	m.googleAPIOperationsTotal.Add(ctx, 1, attrs)
	m.googleAPIOperationDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordLLMRequest records one HTTP request to the text analysis service.
func (m *Metrics) RecordLLMRequest(ctx context.Context, model, status string, duration time.Duration) {
	if m == nil || m.llmRequestsTotal == nil || m.llmRequestDuration == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrModel, model),
		attribute.String(attrStatus, status),
	)
	m.llmRequestsTotal.Add(ctx, 1, attrs)
	m.llmRequestDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordToolInvocation records an MCP tool invocation with tool name, status, and duration.
func (m *Metrics) RecordToolInvocation(ctx context.Context, toolName, status string, duration time.Duration) {
	if m == nil || m.toolInvocationsTotal == nil || m.toolDuration == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrTool, toolName),
		attribute.String(attrStatus, status),
	)
	m.toolInvocationsTotal.Add(ctx, 1, attrs)
	m.toolDuration.Record(ctx, duration.Seconds(), attrs)
}
