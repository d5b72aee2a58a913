package report_tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/workdigest/internal/app"
	"github.com/teemow/workdigest/internal/config"
	"github.com/teemow/workdigest/internal/llm"
	"github.com/teemow/workdigest/internal/server"
)

func newServerContext(t *testing.T) *server.ServerContext {
	t.Helper()
	model := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []llm.Message `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		answer := "- Budget approved"
		if strings.Contains(req.Messages[len(req.Messages)-1].Content, "tasks assigned") {
			answer = "1. Ann Lee books the venue"
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": answer}}},
		})
	}))
	t.Cleanup(model.Close)

	cfg := config.Default()
	cfg.LLM.BaseURL = model.URL
	cfg.LLM.APIKey = "test-key"
	cfg.LLM.RequestsPerMinute = -1
	cfg.LLM.MaxRetries = -1

	a, err := app.New(context.Background(), cfg, app.Options{})
	require.NoError(t, err)
	sc := server.NewServerContext(context.Background(), a)
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc
}

func writeTranscript(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "offsite.txt"),
		[]byte("Ann Lee: I will book the venue.\nBob Stone: Budget is approved.\n"), 0o644))
	return dir
}

func call(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestRegisterReportTools(t *testing.T) {
	s := mcpserver.NewMCPServer("test", "1.0.0", mcpserver.WithToolCapabilities(true))
	require.NoError(t, RegisterReportTools(s, newServerContext(t), false))

	tools := s.ListTools()
	for _, name := range []string{"drive_report", "email_report", "transcript_report"} {
		assert.Contains(t, tools, name)
	}
}

func TestHandleTranscriptReport(t *testing.T) {
	sc := newServerContext(t)

	res, err := handleTranscriptReport(context.Background(), call(map[string]any{"path": writeTranscript(t)}), sc, false)
	require.NoError(t, err)
	require.False(t, res.IsError, resultText(t, res))

	text := resultText(t, res)
	assert.Contains(t, text, "offsite.txt")
	assert.Contains(t, text, "Ann Lee, Bob Stone")
	assert.Contains(t, text, "- Ann Lee books the venue")
}

func TestHandleTranscriptReport_JSON(t *testing.T) {
	sc := newServerContext(t)

	res, err := handleTranscriptReport(context.Background(), call(map[string]any{
		"path":   writeTranscript(t),
		"format": "json",
	}), sc, false)
	require.NoError(t, err)
	require.False(t, res.IsError)

	var doc struct {
		Summary struct {
			Total      int `json:"total"`
			Successful int `json:"successful"`
		} `json:"summary"`
	}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &doc))
	assert.Equal(t, 1, doc.Summary.Total)
	assert.Equal(t, 1, doc.Summary.Successful)
}

func TestHandlers_InvalidArguments(t *testing.T) {
	sc := newServerContext(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		handler func(context.Context, mcp.CallToolRequest, *server.ServerContext) (*mcp.CallToolResult, error)
		args    map[string]any
		want    string
	}{
		{name: "drive without folder", handler: handleDriveReport, args: map[string]any{}, want: "folder is required"},
		{name: "negative max messages", handler: handleEmailReport, args: map[string]any{"max_messages": -1.0}, want: "must not be negative"},
		{name: "transcript without input", handler: transcriptHandler(false), args: map[string]any{}, want: "conference record is required"},
		{name: "unknown format", handler: transcriptHandler(false), args: map[string]any{"path": writeTranscript(t), "format": "pdf"}, want: "unknown report format"},
		{name: "tasks in read-only mode", handler: transcriptHandler(true), args: map[string]any{"path": writeTranscript(t), "tasks_list": "@default"}, want: "read-only"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := tt.handler(ctx, call(tt.args), sc)
			require.NoError(t, err)
			assert.True(t, res.IsError)
			assert.Contains(t, resultText(t, res), tt.want)
		})
	}
}

func transcriptHandler(readOnly bool) func(context.Context, mcp.CallToolRequest, *server.ServerContext) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
		return handleTranscriptReport(ctx, req, sc, readOnly)
	}
}
