// Package instrumentation provides OpenTelemetry metrics and tracing for
// workdigest.
//
// # Metrics
//
// Pipeline:
//   - pipeline_items_total: items resolved, by status and failure reason
//   - pipeline_item_duration_seconds: time from extraction to report or failure
//   - pipeline_stage_calls_total / pipeline_stage_duration_seconds: stage executions
//   - pipeline_stage_retries_total: retried stage attempts
//   - pipeline_cache_lookups_total: stage result cache hits and misses
//
// Collaborators:
//   - google_api_operations_total / google_api_operation_duration_seconds
//   - llm_requests_total / llm_request_duration_seconds
//   - mcp_tool_invocations_total / mcp_tool_duration_seconds
//
// # Tracing
//
// A run produces one pipeline.batch span with a pipeline.item child per
// item and a pipeline.stage.<name> grandchild per stage. Google API calls,
// requests to the analysis service and MCP tool calls get their own spans.
//
// # Configuration
//
// Instrumentation can be configured via environment variables:
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: true)
//   - METRICS_EXPORTER: prometheus, otlp or stdout (default: prometheus)
//   - TRACING_EXPORTER: otlp, stdout or none (default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 0.1)
//   - OTEL_SERVICE_NAME: Service name (default: workdigest)
//
// A nil *Metrics records nothing, so components accept one unconditionally.
package instrumentation
