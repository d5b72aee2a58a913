package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/teemow/workdigest/internal/logging"
	"github.com/teemow/workdigest/internal/pipeline"
	"github.com/teemow/workdigest/internal/tasks"
)

const maxTaskTitle = 1024

// TaskCreator adds tasks to a task list.
type TaskCreator interface {
	CreateTask(ctx context.Context, taskListID string, input tasks.TaskInput) (*tasks.Task, error)
}

// TaskSink turns the action items of transcript reports into tasks.
type TaskSink struct {
	creator TaskCreator
	listID  string
	logger  *slog.Logger
}

// NewTaskSink creates a TaskSink adding tasks to listID.
func NewTaskSink(creator TaskCreator, listID string, logger *slog.Logger) *TaskSink {
	if listID == "" {
		listID = tasks.DefaultList
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskSink{creator: creator, listID: listID, logger: logger}
}

// Push creates one task per action item and returns how many were created.
// A failed task does not stop the others; all failures are returned joined.
func (s *TaskSink) Push(ctx context.Context, result *pipeline.BatchResult) (int, error) {
	var (
		created int
		errs    []error
	)
	for _, r := range result.Reports() {
		for _, item := range ListItems(r.Fields[pipeline.StageActionItems]) {
			if err := ctx.Err(); err != nil {
				return created, errors.Join(append(errs, err)...)
			}

			notes := "From: " + r.DisplayName
			if r.Link != "" {
				notes += "\n" + r.Link
			}
			_, err := s.creator.CreateTask(ctx, s.listID, tasks.TaskInput{
				Title: clipTitle(item),
				Notes: notes,
			})
			if err != nil {
				s.logger.Warn("failed to create task", logging.ItemID(r.ItemID), logging.Err(err))
				errs = append(errs, fmt.Errorf("%s: %w", r.DisplayName, err))
				continue
			}
			created++
		}
	}
	return created, errors.Join(errs...)
}

// ListItems splits a validated list stage output into its items. "None"
// yields no items.
func ListItems(output string) []string {
	var items []string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.EqualFold(line, "none") {
			continue
		}
		if item := strings.TrimSpace(strings.TrimPrefix(line, "- ")); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func clipTitle(s string) string {
	r := []rune(s)
	if len(r) <= maxTaskTitle {
		return s
	}
	return string(r[:maxTaskTitle-3]) + "..."
}
