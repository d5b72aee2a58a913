package calendar_tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/teemow/workdigest/internal/app"
	"github.com/teemow/workdigest/internal/config"
	"github.com/teemow/workdigest/internal/llm"
	"github.com/teemow/workdigest/internal/server"
)

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newServerContext(t *testing.T) (*server.ServerContext, *atomic.Int32) {
	t.Helper()
	model := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []llm.Message `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		user := req.Messages[len(req.Messages)-1].Content

		answer := `{"action":"list","start":"2024-09-03T00:00:00"}`
		switch {
		case strings.Contains(user, "book"):
			answer = "Sure:\n```json\n{\"action\":\"create\",\"start\":\"2024-09-03T15:00:00\",\"summary\":\"Design review\"}\n```"
		case strings.Contains(user, "gibberish"):
			answer = "I am not sure what you mean."
		}
		writeJSON(w, map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": answer}}},
		})
	}))
	t.Cleanup(model.Close)

	var created atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("GET /calendars/primary/events", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"items": []map[string]any{{
			"id":      "e1",
			"summary": "Standup",
			"start":   map[string]string{"dateTime": "2024-09-03T09:00:00-05:00"},
			"end":     map[string]string{"dateTime": "2024-09-03T09:15:00-05:00"},
		}}})
	})
	mux.HandleFunc("POST /calendars/primary/events", func(w http.ResponseWriter, r *http.Request) {
		var ev map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&ev))
		created.Add(1)
		ev["id"] = "e2"
		ev["htmlLink"] = "https://calendar.google.com/event?eid=e2"
		writeJSON(w, ev)
	})
	google := httptest.NewServer(mux)
	t.Cleanup(google.Close)

	cfg := config.Default()
	cfg.LLM.BaseURL = model.URL
	cfg.LLM.APIKey = "test-key"
	cfg.LLM.RequestsPerMinute = -1
	cfg.LLM.MaxRetries = -1

	a, err := app.New(context.Background(), cfg, app.Options{
		GoogleOptions: []option.ClientOption{option.WithEndpoint(google.URL + "/"), option.WithoutAuthentication()},
	})
	require.NoError(t, err)
	sc := server.NewServerContext(context.Background(), a)
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc, &created
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

func TestRegisterCalendarTools(t *testing.T) {
	sc, _ := newServerContext(t)
	s := mcpserver.NewMCPServer("test", "1.0.0", mcpserver.WithToolCapabilities(true))
	require.NoError(t, RegisterCalendarTools(s, sc, true))

	tools := s.ListTools()
	require.Contains(t, tools, "calendar_request")
	assert.Contains(t, tools["calendar_request"].Tool.InputSchema.Required, "query")
}

func TestHandleCalendarRequest_List(t *testing.T) {
	sc, _ := newServerContext(t)

	res, err := handleCalendarRequest(context.Background(), call(map[string]any{"query": "what is on Tuesday"}), sc, true)
	require.NoError(t, err)
	require.False(t, res.IsError, resultText(t, res))
	assert.Contains(t, resultText(t, res), "Standup")
}

func TestHandleCalendarRequest_CreateJSON(t *testing.T) {
	sc, created := newServerContext(t)

	res, err := handleCalendarRequest(context.Background(), call(map[string]any{
		"query":  "book a design review at 3pm",
		"format": "json",
	}), sc, false)
	require.NoError(t, err)
	require.False(t, res.IsError, resultText(t, res))

	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &out))
	assert.Equal(t, "create", out["action"])
	assert.Equal(t, int32(1), created.Load())
}

func TestHandleCalendarRequest_Errors(t *testing.T) {
	tests := []struct {
		name     string
		args     map[string]any
		readOnly bool
		want     string
	}{
		{name: "missing query", args: map[string]any{}, want: "query is required"},
		{name: "read-only create", args: map[string]any{"query": "book a design review"}, readOnly: true, want: "read-only"},
		{name: "unparseable answer", args: map[string]any{"query": "gibberish"}, want: "Could not understand"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc, created := newServerContext(t)
			res, err := handleCalendarRequest(context.Background(), call(tt.args), sc, tt.readOnly)
			require.NoError(t, err)
			assert.True(t, res.IsError)
			assert.Contains(t, resultText(t, res), tt.want)
			assert.Equal(t, int32(0), created.Load())
		})
	}
}
