package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/workdigest/internal/pipeline"
)

func chatHandler(t *testing.T, content string, calls *atomic.Int32) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": content}, "finish_reason": "stop"},
			},
		})
	}
}

func newTestClient(t *testing.T, url string, mutate ...func(*Config)) *Client {
	t.Helper()
	cfg := Config{
		BaseURL:           url,
		APIKey:            "test-key",
		Model:             "test-model",
		RequestsPerMinute: -1,
		MaxRetries:        2,
	}
	for _, m := range mutate {
		m(&cfg)
	}
	c, err := NewClient(cfg)
	require.NoError(t, err)
	return c
}

func TestNewClient_RequiresAPIKey(t *testing.T) {
	_, err := NewClient(Config{})
	assert.Error(t, err)
}

func TestNewClient_Defaults(t *testing.T) {
	c, err := NewClient(Config{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, c.Model())
	assert.Equal(t, DefaultBaseURL, c.cfg.BaseURL)
	assert.NotNil(t, c.limiter)
}

func TestAnalyze(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(chatHandler(t, "  Low Priority: newsletter \n", &calls))
	defer srv.Close()

	c := newTestClient(t, srv.URL+"/")
	out, err := c.Analyze(context.Background(), pipeline.StagePriority, "weekly digest", pipeline.Constraints{
		Instruction: "Categorize.",
		Labels:      pipeline.PriorityLevels,
	})
	require.NoError(t, err)
	assert.Equal(t, "Low Priority: newsletter", out)
	assert.EqualValues(t, 1, calls.Load())
}

func TestAnalyze_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	ok := chatHandler(t, "done", &calls)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Load() == 0 {
			calls.Add(1)
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		ok(w, r)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	out, err := c.Analyze(context.Background(), "summary", "text", pipeline.Constraints{})
	require.NoError(t, err)
	assert.Equal(t, "done", out)
	assert.EqualValues(t, 2, calls.Load())
}

func TestAnalyze_ClientErrorIsUnavailable(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"error":{"message":"invalid key"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := c.Analyze(context.Background(), "summary", "text", pipeline.Constraints{})
	require.Error(t, err)
	assert.ErrorIs(t, err, pipeline.ErrCapabilityUnavailable)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusUnauthorized, se.StatusCode)
	assert.EqualValues(t, 1, calls.Load(), "4xx must not be retried")
}

func TestAnalyze_RetriesExhausted(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, func(cfg *Config) { cfg.MaxRetries = 1 })
	_, err := c.Analyze(context.Background(), "summary", "text", pipeline.Constraints{})
	assert.ErrorIs(t, err, pipeline.ErrCapabilityUnavailable)
	assert.EqualValues(t, 2, calls.Load())
}

func TestAnalyze_DeadlineIsTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := newTestClient(t, srv.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Analyze(ctx, "summary", "text", pipeline.Constraints{})
	assert.ErrorIs(t, err, pipeline.ErrTimeout)
}

func TestAnalyze_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := c.Analyze(context.Background(), "summary", "text", pipeline.Constraints{})
	assert.ErrorIs(t, err, pipeline.ErrCapabilityUnavailable)
}

func TestStagePrompt(t *testing.T) {
	msgs := stagePrompt("action_items", "Jane Doe will send the deck.", pipeline.Constraints{
		Instruction: "List the tasks.",
		Guidance:    "People mentioned: Jane Doe.",
	})
	require.Len(t, msgs, 2)
	user := msgs[1].Content
	assert.True(t, strings.HasPrefix(user, "List the tasks."))
	assert.Contains(t, user, "People mentioned: Jane Doe.")
	assert.True(t, strings.HasSuffix(user, "Jane Doe will send the deck."))
}

func TestSelectRelevant(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(chatHandler(t, "Related files: [3, 1, 3, 9]", &calls))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	got, err := c.SelectRelevant(context.Background(), "budget", []string{"Budget 2024", "Team offsite", "Budget review"})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2}, got)

	got, err = c.SelectRelevant(context.Background(), "budget", nil)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.EqualValues(t, 1, calls.Load())
}

func TestParseSelection(t *testing.T) {
	tests := []struct {
		name    string
		out     string
		want    []int
		wantErr bool
	}{
		{name: "plain", out: "[1, 2]", want: []int{0, 1}},
		{name: "empty", out: "[]", want: []int{}},
		{name: "wrapped in prose", out: "The related files are [2].", want: []int{1}},
		{name: "out of range dropped", out: "[0, 5]", want: []int{}},
		{name: "no array", out: "none of them", wantErr: true},
		{name: "not numbers", out: `["a"]`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseSelection(tt.out, 3)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
