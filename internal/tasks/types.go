package tasks

import (
	"time"

	tasks "google.golang.org/api/tasks/v1"
)

// DefaultList is the task list id Google assigns to "My Tasks".
const DefaultList = "@default"

// TaskList represents a Google Tasks task list
type TaskList struct {
	ID      string
	Title   string
	Updated time.Time
}

// Task represents a Google Tasks task
type Task struct {
	ID     string
	Title  string
	Notes  string
	Status string // "needsAction" or "completed"
	Due    time.Time
	Links  []Link
}

// Link is a related link attached to a task.
type Link struct {
	Type        string
	Description string
	Link        string
}

// TaskInput is the input for creating a task
type TaskInput struct {
	Title string
	Notes string
	Due   time.Time
}

func toTaskList(tl *tasks.TaskList) TaskList {
	if tl == nil {
		return TaskList{}
	}
	return TaskList{
		ID:      tl.Id,
		Title:   tl.Title,
		Updated: parseTime(tl.Updated),
	}
}

func toTask(t *tasks.Task) Task {
	if t == nil {
		return Task{}
	}

	result := Task{
		ID:     t.Id,
		Title:  t.Title,
		Notes:  t.Notes,
		Status: t.Status,
		Due:    parseTime(t.Due),
	}
	for _, l := range t.Links {
		result.Links = append(result.Links, Link{
			Type:        l.Type,
			Description: l.Description,
			Link:        l.Link,
		})
	}
	return result
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
