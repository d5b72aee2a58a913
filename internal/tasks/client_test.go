package tasks

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	tasks "google.golang.org/api/tasks/v1"
)

type fakeTasks struct {
	t        *testing.T
	list     string
	inserted *tasks.Task
}

func (f *fakeTasks) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /tasks/v1/users/@me/lists", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"items": []map[string]any{
				{"id": "L1", "title": "My Tasks", "updated": "2024-05-01T10:00:00Z"},
				{"id": "L2", "title": "Meetings"},
			},
		})
	})
	mux.HandleFunc("POST /tasks/v1/lists/{list}/tasks", func(w http.ResponseWriter, r *http.Request) {
		var task tasks.Task
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&task))
		f.list = r.PathValue("list")
		f.inserted = &task
		task.Id = "T1"
		task.Status = "needsAction"
		writeJSON(w, task)
	})
	return mux
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T) (*Client, *fakeTasks) {
	t.Helper()
	fake := &fakeTasks{t: t}
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	client, err := NewClient(context.Background(), nil,
		option.WithEndpoint(srv.URL+"/"),
		option.WithoutAuthentication())
	require.NoError(t, err)
	return client, fake
}

func TestListTaskLists(t *testing.T) {
	client, _ := newTestClient(t)

	lists, err := client.ListTaskLists(context.Background())
	require.NoError(t, err)
	require.Len(t, lists, 2)
	assert.Equal(t, "My Tasks", lists[0].Title)
	assert.False(t, lists[0].Updated.IsZero())
	assert.True(t, lists[1].Updated.IsZero())
}

func TestResolveList(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	id, err := client.ResolveList(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, DefaultList, id)

	id, err = client.ResolveList(ctx, "meetings")
	require.NoError(t, err)
	assert.Equal(t, "L2", id)

	id, err = client.ResolveList(ctx, "L1")
	require.NoError(t, err)
	assert.Equal(t, "L1", id)

	_, err = client.ResolveList(ctx, "Groceries")
	assert.Error(t, err)
}

func TestCreateTask(t *testing.T) {
	client, fake := newTestClient(t)
	due := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)

	task, err := client.CreateTask(context.Background(), "L2", TaskInput{
		Title: "Send the deck",
		Notes: "From: weekly sync",
		Due:   due,
	})
	require.NoError(t, err)
	assert.Equal(t, "T1", task.ID)
	assert.Equal(t, "needsAction", task.Status)
	assert.True(t, task.Due.Equal(due))

	assert.Equal(t, "L2", fake.list)
	assert.Equal(t, "From: weekly sync", fake.inserted.Notes)

	_, err = client.CreateTask(context.Background(), "L2", TaskInput{Title: "  "})
	assert.Error(t, err)
}

func TestToTask(t *testing.T) {
	assert.Equal(t, Task{}, toTask(nil))

	task := toTask(&tasks.Task{
		Id:    "x",
		Title: "Review",
		Due:   "not a date",
		Links: []*tasks.TaskLinks{{Type: "email", Link: "https://mail.google.com/x"}},
	})
	assert.True(t, task.Due.IsZero())
	require.Len(t, task.Links, 1)
	assert.Equal(t, "email", task.Links[0].Type)
}
