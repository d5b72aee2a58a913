package app

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/teemow/workdigest/internal/config"
	"github.com/teemow/workdigest/internal/instrumentation"
	"github.com/teemow/workdigest/internal/llm"
	"github.com/teemow/workdigest/internal/pipeline"
	"github.com/teemow/workdigest/internal/schedule"
)

// fakeModel answers chat completions by recognizing the prompt.
func fakeModel(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []llm.Message `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		system, user := req.Messages[0].Content, req.Messages[len(req.Messages)-1].Content

		var answer string
		switch {
		case strings.Contains(system, "calendar assistant"):
			answer = `{"action":"create","start":"2024-09-03T10:00:00","summary":"Launch review"}`
		case strings.Contains(user, "Files:"):
			answer = "[1]"
		case strings.Contains(user, "Categorize the priority"):
			answer = "Medium Priority: routine planning document"
		case strings.Contains(user, "Summarize"):
			answer = "Plans for the launch."
		case strings.Contains(user, "tasks assigned"):
			answer = "1. Jane Doe sends the deck"
		case strings.Contains(user, "deadlines"):
			answer = "- Deck due Friday"
		default:
			answer = "- Launch moved to Friday"
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": answer}}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

type fakeWorkspace struct {
	mu     sync.Mutex
	tasks  []string
	events []string
}

func (f *fakeWorkspace) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /files", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"files": []map[string]any{
			{"id": "d1", "name": "Launch plan", "mimeType": "application/vnd.google-apps.document"},
			{"id": "p1", "name": "photo.png", "mimeType": "image/png"},
		}})
	})
	mux.HandleFunc("GET /files/d1/export", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("Launch is on Friday."))
	})
	mux.HandleFunc("POST /tasks/v1/lists/{list}/tasks", func(w http.ResponseWriter, r *http.Request) {
		var task map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&task))
		f.mu.Lock()
		f.tasks = append(f.tasks, r.PathValue("list")+": "+task["title"].(string))
		f.mu.Unlock()
		writeJSON(w, map[string]any{"id": "t1", "title": task["title"]})
	})
	mux.HandleFunc("GET /gmail/v1/users/me/messages", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"messages": []map[string]string{{"id": "m1"}, {"id": "gone"}, {"id": "m3"}}})
	})
	mux.HandleFunc("GET /gmail/v1/users/me/messages/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if id == "gone" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"code":404,"message":"Not Found"}}`))
			return
		}
		writeJSON(w, map[string]any{
			"id": id,
			"payload": map[string]any{
				"mimeType": "text/plain",
				"headers": []map[string]string{
					{"name": "Subject", "value": "Launch " + id},
					{"name": "From", "value": "Jane Doe <jane@example.com>"},
				},
				"body": map[string]string{"data": base64.URLEncoding.EncodeToString([]byte("The launch moved to Friday."))},
			},
		})
	})
	mux.HandleFunc("POST /calendars/primary/events", func(w http.ResponseWriter, r *http.Request) {
		var ev map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&ev))
		f.mu.Lock()
		f.events = append(f.events, ev["summary"].(string))
		f.mu.Unlock()
		ev["id"] = "e1"
		writeJSON(w, ev)
	})
	return mux
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newTestApp(t *testing.T, audit *bytes.Buffer) (*App, *fakeWorkspace) {
	t.Helper()
	model := fakeModel(t)
	ws := &fakeWorkspace{}
	google := httptest.NewServer(ws.handler(t))
	t.Cleanup(google.Close)

	cfg := config.Default()
	cfg.LLM.BaseURL = model.URL
	cfg.LLM.APIKey = "test-key"
	cfg.LLM.RequestsPerMinute = -1
	cfg.LLM.MaxRetries = -1

	opts := Options{
		GoogleOptions: []option.ClientOption{
			option.WithEndpoint(google.URL + "/"),
			option.WithoutAuthentication(),
		},
	}
	if audit != nil {
		opts.Audit = instrumentation.NewAuditLogger(
			slog.New(slog.NewJSONHandler(audit, nil)),
			instrumentation.AuditLoggingConfig{Enabled: true})
	}

	a, err := New(context.Background(), cfg, opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a, ws
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Pipeline.Concurrency = 0

	_, err := New(context.Background(), cfg, Options{})
	assert.Error(t, err)
}

func TestNew_WithoutAPIKey(t *testing.T) {
	a, err := New(context.Background(), config.Default(), Options{})
	require.NoError(t, err)

	_, err = a.LLM()
	assert.ErrorIs(t, err, config.ErrMissingAPIKey)

	_, err = a.DriveReport(context.Background(), "", "folder1", "")
	assert.ErrorIs(t, err, config.ErrMissingAPIKey)
}

func TestDriveReport(t *testing.T) {
	var audit bytes.Buffer
	a, _ := newTestApp(t, &audit)

	result, err := a.DriveReport(context.Background(), "", "https://drive.google.com/drive/folders/folder1", "")
	require.NoError(t, err)
	require.Equal(t, 2, result.Len())

	reports := result.Reports()
	require.Len(t, reports, 1)
	assert.Equal(t, "Launch plan", reports[0].DisplayName)
	assert.Equal(t, "Plans for the launch.", reports[0].Fields[pipeline.StageSummary])
	assert.Equal(t, "Medium Priority: routine planning document", reports[0].Fields[pipeline.StagePriority])

	failures := result.Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, "p1", failures[0].ItemID)
	assert.Equal(t, pipeline.ReasonUnsupportedContentType, failures[0].Reason)

	assert.Contains(t, audit.String(), `"msg":"batch_completed"`)
	assert.Contains(t, audit.String(), `"name":"drive"`)
}

func TestEmailReport_IsolatesMissingMessage(t *testing.T) {
	a, _ := newTestApp(t, nil)

	result, err := a.EmailReport(context.Background(), "", 0, "")
	require.NoError(t, err)
	require.Equal(t, 3, result.Len())

	reports := result.Reports()
	require.Len(t, reports, 2)
	assert.Equal(t, "Launch m1", reports[0].DisplayName)
	assert.Equal(t, "Launch m3", reports[1].DisplayName)
	assert.Equal(t, "Jane Doe <jane@example.com>", reports[0].Metadata["sender"])
	assert.Equal(t, "Plans for the launch.", reports[0].Fields[pipeline.StageSummary])

	failures := result.Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, "gone", failures[0].ItemID)
	assert.Equal(t, pipeline.ReasonNotFound, failures[0].Reason)
}

func TestDriveReport_Topic(t *testing.T) {
	a, _ := newTestApp(t, nil)

	result, err := a.DriveReport(context.Background(), "", "folder1", "launch")
	require.NoError(t, err)
	require.Equal(t, 1, result.Len())
	assert.True(t, result.Entries[0].Succeeded())
}

func TestTranscriptReport_PushActionItems(t *testing.T) {
	a, ws := newTestApp(t, nil)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sync.txt"),
		[]byte("Jane Doe: I will send the deck by Friday.\nJohn Smith: Great."), 0o600))

	result, err := a.TranscriptReport(context.Background(), "", TranscriptInput{Path: dir}, "")
	require.NoError(t, err)
	reports := result.Reports()
	require.Len(t, reports, 1)
	assert.Equal(t, "Jane Doe, John Smith", reports[0].Fields[pipeline.StageParticipants])
	assert.Equal(t, "- Jane Doe sends the deck", reports[0].Fields[pipeline.StageActionItems])
	assert.Equal(t, "- Deck due Friday", reports[0].Fields[pipeline.StageDeadlines])

	n, err := a.PushActionItems(context.Background(), "", "", result)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"@default: Jane Doe sends the deck"}, ws.tasks)
}

func TestTranscriptReport_NeedsInput(t *testing.T) {
	a, _ := newTestApp(t, nil)

	_, err := a.TranscriptReport(context.Background(), "", TranscriptInput{}, "")
	assert.Error(t, err)
}

func TestCalendarRequest(t *testing.T) {
	a, ws := newTestApp(t, nil)

	res, err := a.CalendarRequest(context.Background(), "", "Set up a launch review on Tuesday at 10")
	require.NoError(t, err)
	assert.Equal(t, schedule.ActionCreate, res.Action)
	require.NotNil(t, res.Created)
	assert.Equal(t, []string{"Launch review"}, ws.events)
}

func TestAccount(t *testing.T) {
	a, _ := newTestApp(t, nil)
	assert.Equal(t, "work", a.Account("work"))
	assert.Equal(t, "default", a.Account(""))
}

func TestProfileByName(t *testing.T) {
	for _, name := range []string{ProfileDrive, ProfileEmail, ProfileTranscript} {
		p, ok := ProfileByName(name)
		require.True(t, ok)
		assert.Equal(t, name, p.Name)
		assert.NotEmpty(t, p.Stages)
	}
	_, ok := ProfileByName("slides")
	assert.False(t, ok)

	email := EmailProfile()
	assert.Contains(t, email.Stages[1].Constraints.Guidance, "Newsletters")
	assert.Equal(t, 30, email.Stages[0].Constraints.MaxWords)
}
