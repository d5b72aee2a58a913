package instrumentation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
)

func TestRunRecord_LogAttrs(t *testing.T) {
	r := NewRunRecord(RunKindBatch, "drive").
		WithAccount("work").
		WithFilter("budget").
		WithCounts(3, 2, 1).
		Complete(context.Background(), nil)

	if !r.Success() {
		t.Error("expected success")
	}
	if r.Duration < 0 {
		t.Error("duration should not be negative")
	}

	keys := func(attrs []slog.Attr) map[string]string {
		out := make(map[string]string)
		for _, a := range attrs {
			out[a.Key] = a.Value.String()
		}
		return out
	}

	plain := keys(r.LogAttrs(false))
	if _, ok := plain["filter"]; ok {
		t.Error("filter must be omitted without details")
	}
	if _, ok := plain["account"]; ok {
		t.Error("account must be omitted without details")
	}
	if plain["total"] != "3" || plain["failed"] != "1" {
		t.Errorf("unexpected counts: %v", plain)
	}

	detailed := keys(r.LogAttrs(true))
	if detailed["filter"] != "budget" || detailed["account"] != "work" {
		t.Errorf("expected details, got %v", detailed)
	}

	tool := NewRunRecord(RunKindTool, "email_report").Complete(context.Background(), errors.New("boom"))
	attrs := keys(tool.LogAttrs(false))
	if _, ok := attrs["total"]; ok {
		t.Error("tool records carry no counts")
	}
	if attrs["error"] != "boom" {
		t.Errorf("error = %q", attrs["error"])
	}
}

func TestAuditLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	al := NewAuditLogger(logger, AuditLoggingConfig{Enabled: true})
	al.Log(context.Background(), NewRunRecord(RunKindBatch, "email").Complete(context.Background(), nil))
	al.Log(context.Background(), NewRunRecord(RunKindTool, "drive_report").Complete(context.Background(), errors.New("quota")))

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}

	var first, second map[string]any
	if err := json.Unmarshal(lines[0], &first); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(lines[1], &second); err != nil {
		t.Fatal(err)
	}
	if first["msg"] != "batch_completed" || first["level"] != "INFO" || first["component"] != "audit" {
		t.Errorf("unexpected first record: %v", first)
	}
	if second["msg"] != "tool_failed" || second["level"] != "WARN" {
		t.Errorf("unexpected second record: %v", second)
	}
}

func TestAuditLogger_DisabledAndNil(t *testing.T) {
	var buf bytes.Buffer
	al := NewAuditLogger(slog.New(slog.NewTextHandler(&buf, nil)), AuditLoggingConfig{Enabled: false})
	al.Log(context.Background(), NewRunRecord(RunKindBatch, "x"))
	if buf.Len() != 0 {
		t.Errorf("disabled logger wrote %q", buf.String())
	}

	var nilLogger *AuditLogger
	nilLogger.Log(context.Background(), NewRunRecord(RunKindBatch, "x")) // Should not panic
}
