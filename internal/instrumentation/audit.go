package instrumentation

import (
	"context"
	"log/slog"
	"time"

	"github.com/teemow/workdigest/internal/logging"
)

// Run kinds recorded by the audit log.
const (
	RunKindBatch = "batch"
	RunKindTool  = "tool"
)

// RunRecord describes one finished batch run or MCP tool invocation.
type RunRecord struct {
	Kind    string // RunKindBatch or RunKindTool
	Name    string // report profile or tool name
	Account string
	Filter  string

	Total      int
	Successful int
	Failed     int

	StartTime time.Time
	Duration  time.Duration
	Error     string
	TraceID   string
}

// NewRunRecord starts timing a run.
func NewRunRecord(kind, name string) *RunRecord {
	return &RunRecord{Kind: kind, Name: name, StartTime: time.Now()}
}

// WithAccount sets the Google account the run used.
func (r *RunRecord) WithAccount(account string) *RunRecord {
	r.Account = account
	return r
}

// WithFilter sets the source filter of the run.
func (r *RunRecord) WithFilter(filter string) *RunRecord {
	r.Filter = filter
	return r
}

// WithCounts sets the item counts of a batch run.
func (r *RunRecord) WithCounts(total, successful, failed int) *RunRecord {
	r.Total, r.Successful, r.Failed = total, successful, failed
	return r
}

// Complete stops timing and records the trace context and the error, if any.
func (r *RunRecord) Complete(ctx context.Context, err error) *RunRecord {
	r.Duration = time.Since(r.StartTime)
	r.TraceID = GetTraceID(ctx)
	if err != nil {
		r.Error = err.Error()
	}
	return r
}

// Success reports whether the run finished without error.
func (r *RunRecord) Success() bool {
	return r.Error == ""
}

// LogAttrs returns the attributes of the record. Account and filter are
// only included when includeDetails is set.
func (r *RunRecord) LogAttrs(includeDetails bool) []slog.Attr {
	attrs := []slog.Attr{
		slog.String("kind", r.Kind),
		slog.String("name", r.Name),
		slog.Duration("duration", r.Duration),
		slog.Bool("success", r.Success()),
	}
	if r.Kind == RunKindBatch {
		attrs = append(attrs,
			slog.Int("total", r.Total),
			slog.Int("successful", r.Successful),
			slog.Int("failed", r.Failed))
	}
	if includeDetails {
		if r.Account != "" {
			attrs = append(attrs, slog.String("account", r.Account))
		}
		if r.Filter != "" {
			attrs = append(attrs, slog.String("filter", r.Filter))
		}
	}
	if r.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", r.TraceID))
	}
	if r.Error != "" {
		attrs = append(attrs, slog.String("error", r.Error))
	}
	return attrs
}

// AuditLogger writes one log line per finished run.
type AuditLogger struct {
	logger         *slog.Logger
	includeDetails bool
	enabled        bool
}

// NewAuditLogger creates an AuditLogger. A nil logger uses slog.Default().
func NewAuditLogger(logger *slog.Logger, config AuditLoggingConfig) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:         logger.With(logging.Component("audit")),
		includeDetails: config.IncludeDetails,
		enabled:        config.Enabled,
	}
}

// Log writes the record. It is a no-op on a nil or disabled logger.
func (al *AuditLogger) Log(ctx context.Context, r *RunRecord) {
	if al == nil || !al.enabled || r == nil {
		return
	}

	level := slog.LevelInfo
	msg := r.Kind + "_completed"
	if !r.Success() {
		level = slog.LevelWarn
		msg = r.Kind + "_failed"
	}
	al.logger.LogAttrs(ctx, level, msg, r.LogAttrs(al.includeDetails)...)
}
