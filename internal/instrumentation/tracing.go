package instrumentation

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the default tracer name for the workdigest module.
const TracerName = "github.com/teemow/workdigest"

// Span attribute keys.
const (
	SpanAttrBatch       = "pipeline.batch_id"
	SpanAttrItem        = "pipeline.item_id"
	SpanAttrContentType = "pipeline.content_type"
	SpanAttrStage       = "pipeline.stage"
	SpanAttrTool        = "mcp.tool"
	SpanAttrService     = "google.service"
	SpanAttrOperation   = "google.operation"
	SpanAttrModel       = "llm.model"
)

func tracer() trace.Tracer {
	return otel.GetTracerProvider().Tracer(TracerName)
}

// StartSpan starts a new span with the given name and attributes.
// The caller is responsible for ending the span with defer span.End().
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer().Start(ctx, name, trace.WithAttributes(attrs...))
}

// StartBatchSpan starts the root span of a pipeline run.
func StartBatchSpan(ctx context.Context, batchID string) (context.Context, trace.Span) {
	return tracer().Start(ctx, "pipeline.batch",
		trace.WithAttributes(attribute.String(SpanAttrBatch, batchID)))
}

// StartItemSpan starts the span covering one item from extraction to its
// report or failure.
func StartItemSpan(ctx context.Context, itemID, contentType string) (context.Context, trace.Span) {
	return tracer().Start(ctx, "pipeline.item",
		trace.WithAttributes(
			attribute.String(SpanAttrItem, itemID),
			attribute.String(SpanAttrContentType, contentType),
		))
}

// StartStageSpan starts the span of one analysis stage, retries included.
func StartStageSpan(ctx context.Context, stage, itemID string) (context.Context, trace.Span) {
	return tracer().Start(ctx, "pipeline.stage."+stage,
		trace.WithAttributes(
			attribute.String(SpanAttrStage, stage),
			attribute.String(SpanAttrItem, itemID),
		))
}

// StartLLMSpan starts a client span for a request to the text analysis service.
func StartLLMSpan(ctx context.Context, model string) (context.Context, trace.Span) {
	return tracer().Start(ctx, "llm.chat_completion",
		trace.WithAttributes(attribute.String(SpanAttrModel, model)),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// StartToolSpan starts a span for an MCP tool invocation.
func StartToolSpan(ctx context.Context, toolName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := make([]attribute.KeyValue, 0, len(attrs)+1)
	allAttrs = append(allAttrs, attribute.String(SpanAttrTool, toolName))
	allAttrs = append(allAttrs, attrs...)

	return tracer().Start(ctx, "tool."+toolName,
		trace.WithAttributes(allAttrs...),
		trace.WithSpanKind(trace.SpanKindServer),
	)
}

// StartGoogleAPISpan starts a span for Google API operations.
func StartGoogleAPISpan(ctx context.Context, service, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := make([]attribute.KeyValue, 0, len(attrs)+2)
	allAttrs = append(allAttrs,
		attribute.String(SpanAttrService, service),
		attribute.String(SpanAttrOperation, operation),
	)
	allAttrs = append(allAttrs, attrs...)

	return tracer().Start(ctx, "google."+service+"."+operation,
		trace.WithAttributes(allAttrs...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// SetSpanError records an error on the span and sets the status to error.
func SetSpanError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// SetSpanSuccess sets the span status to OK.
func SetSpanSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}

// GetTraceID returns the trace ID from the current span in context.
// Returns empty string if no valid span is present.
func GetTraceID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		return span.SpanContext().TraceID().String()
	}
	return ""
}
