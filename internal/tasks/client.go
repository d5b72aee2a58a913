package tasks

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/api/option"
	tasks "google.golang.org/api/tasks/v1"

	"github.com/teemow/workdigest/internal/google"
	"github.com/teemow/workdigest/internal/instrumentation"
)

// Client wraps the Google Tasks service
type Client struct {
	svc     *tasks.Service
	metrics *instrumentation.Metrics
}

// NewClient creates a Tasks client. Authentication and endpoint are set
// through opts.
func NewClient(ctx context.Context, metrics *instrumentation.Metrics, opts ...option.ClientOption) (*Client, error) {
	svc, err := tasks.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Tasks service: %w", err)
	}
	return &Client{svc: svc, metrics: metrics}, nil
}

// ListTaskLists lists all task lists for the authenticated user
func (c *Client) ListTaskLists(ctx context.Context) ([]TaskList, error) {
	var lists []TaskList
	err := google.Call(ctx, c.metrics, instrumentation.ServiceTasks, instrumentation.OperationList, func(ctx context.Context) error {
		return c.svc.Tasklists.List().Pages(ctx, func(resp *tasks.TaskLists) error {
			for _, tl := range resp.Items {
				lists = append(lists, toTaskList(tl))
			}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list task lists: %w", google.ClassifyError(err))
	}
	return lists, nil
}

// ResolveList returns the id of the task list whose id or title equals
// nameOrID. An empty value resolves to DefaultList.
func (c *Client) ResolveList(ctx context.Context, nameOrID string) (string, error) {
	nameOrID = strings.TrimSpace(nameOrID)
	if nameOrID == "" || nameOrID == DefaultList {
		return DefaultList, nil
	}

	lists, err := c.ListTaskLists(ctx)
	if err != nil {
		return "", err
	}
	for _, tl := range lists {
		if tl.ID == nameOrID || strings.EqualFold(tl.Title, nameOrID) {
			return tl.ID, nil
		}
	}
	return "", fmt.Errorf("task list %q not found", nameOrID)
}

// CreateTask adds a task to the given list.
func (c *Client) CreateTask(ctx context.Context, taskListID string, input TaskInput) (*Task, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, fmt.Errorf("task title is required")
	}

	task := &tasks.Task{
		Title: input.Title,
		Notes: input.Notes,
	}
	if !input.Due.IsZero() {
		task.Due = input.Due.UTC().Format(time.RFC3339)
	}

	var created *tasks.Task
	err := google.Call(ctx, c.metrics, instrumentation.ServiceTasks, instrumentation.OperationCreate, func(ctx context.Context) error {
		var err error
		created, err = c.svc.Tasks.Insert(taskListID, task).Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", google.ClassifyError(err))
	}

	result := toTask(created)
	return &result, nil
}
