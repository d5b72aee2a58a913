package calendar

import (
	"context"
	"fmt"
	"time"

	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/teemow/workdigest/internal/google"
	"github.com/teemow/workdigest/internal/instrumentation"
)

// PrimaryCalendar is the calendar id of the user's main calendar.
const PrimaryCalendar = "primary"

// Client wraps the Google Calendar API service
type Client struct {
	svc     *calendar.Service
	metrics *instrumentation.Metrics
}

// NewClient creates a Calendar client. Authentication and endpoint are set
// through opts.
func NewClient(ctx context.Context, metrics *instrumentation.Metrics, opts ...option.ClientOption) (*Client, error) {
	svc, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Calendar service: %w", err)
	}
	return &Client{svc: svc, metrics: metrics}, nil
}

// ListEvents lists single events of a calendar between timeMin and timeMax,
// ordered by start time.
func (c *Client) ListEvents(ctx context.Context, calendarID string, timeMin, timeMax time.Time, maxResults int) ([]EventSummary, error) {
	if !timeMax.After(timeMin) {
		return nil, fmt.Errorf("end %s must be after start %s", timeMax.Format(time.RFC3339), timeMin.Format(time.RFC3339))
	}

	var events *calendar.Events
	err := google.Call(ctx, c.metrics, instrumentation.ServiceCalendar, instrumentation.OperationList, func(ctx context.Context) error {
		call := c.svc.Events.List(calendarID).
			Context(ctx).
			TimeMin(timeMin.Format(time.RFC3339)).
			TimeMax(timeMax.Format(time.RFC3339)).
			SingleEvents(true).
			OrderBy("startTime")
		if maxResults > 0 {
			call = call.MaxResults(int64(maxResults))
		}
		var err error
		events, err = call.Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", google.ClassifyError(err))
	}

	summaries := make([]EventSummary, 0, len(events.Items))
	for _, event := range events.Items {
		summaries = append(summaries, toEventSummary(event))
	}
	return summaries, nil
}

// CreateEvent creates a new calendar event
func (c *Client) CreateEvent(ctx context.Context, calendarID string, input EventInput) (*EventSummary, error) {
	if input.Summary == "" {
		return nil, fmt.Errorf("event summary is required")
	}
	if input.Start.IsZero() {
		return nil, fmt.Errorf("event start is required")
	}
	if input.End.IsZero() {
		input.End = input.Start.Add(time.Hour)
	}
	if !input.End.After(input.Start) {
		return nil, fmt.Errorf("event end must be after its start")
	}
	if input.TimeZone == "" {
		input.TimeZone = "UTC"
	}

	event := &calendar.Event{
		Summary:     input.Summary,
		Description: input.Description,
		Location:    input.Location,
		Start: &calendar.EventDateTime{
			DateTime: input.Start.Format(time.RFC3339),
			TimeZone: input.TimeZone,
		},
		End: &calendar.EventDateTime{
			DateTime: input.End.Format(time.RFC3339),
			TimeZone: input.TimeZone,
		},
	}

	var created *calendar.Event
	err := google.Call(ctx, c.metrics, instrumentation.ServiceCalendar, instrumentation.OperationCreate, func(ctx context.Context) error {
		var err error
		created, err = c.svc.Events.Insert(calendarID, event).Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create event: %w", google.ClassifyError(err))
	}

	summary := toEventSummary(created)
	return &summary, nil
}
