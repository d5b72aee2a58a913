package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/teemow/workdigest/internal/calendar"
	"github.com/teemow/workdigest/internal/llm"
	"github.com/teemow/workdigest/internal/logging"
)

const systemPrompt = `You are a calendar assistant. Convert the user's request into one JSON object and nothing else.
Fields:
  "action": "list" to show existing events, "create" to schedule a new event.
  "start": start date and time as YYYY-MM-DDTHH:MM:SS without time zone.
  "end": end date and time as YYYY-MM-DDTHH:MM:SS without time zone. Optional.
  "summary": title of the event to create.
  "location": location of the event. Optional.
  "description": agenda or notes. Optional.
  "time_zone": IANA time zone name, only when the user names one.
  "max_results": number of events to list. Optional.`

// Completer is the language model used to interpret requests.
type Completer interface {
	Complete(ctx context.Context, messages []llm.Message) (string, error)
}

// Calendar is the calendar backend a Router executes plans against.
type Calendar interface {
	ListEvents(ctx context.Context, calendarID string, timeMin, timeMax time.Time, maxResults int) ([]calendar.EventSummary, error)
	CreateEvent(ctx context.Context, calendarID string, input calendar.EventInput) (*calendar.EventSummary, error)
}

// Result is the outcome of a handled request.
type Result struct {
	Plan    Plan                    `json:"-"`
	Action  string                  `json:"action"`
	Events  []calendar.EventSummary `json:"events,omitempty"`
	Created *calendar.EventSummary  `json:"created,omitempty"`
}

// Router interprets and executes calendar requests.
type Router struct {
	completer  Completer
	calendar   Calendar
	calendarID string
	timeZone   string
	now        func() time.Time
	logger     *slog.Logger
	readOnly   bool
}

// Option configures a Router.
type Option func(*Router)

// WithTimeZone sets the zone used when a request names none.
func WithTimeZone(tz string) Option {
	return func(r *Router) {
		if tz != "" {
			r.timeZone = tz
		}
	}
}

// WithCalendarID targets a calendar other than the primary one.
func WithCalendarID(id string) Option {
	return func(r *Router) {
		if id != "" {
			r.calendarID = id
		}
	}
}

// WithClock replaces time.Now, which anchors relative dates like "tomorrow".
func WithClock(now func() time.Time) Option {
	return func(r *Router) {
		r.now = now
	}
}

// WithReadOnly refuses create requests with ErrActionNotAllowed.
func WithReadOnly() Option {
	return func(r *Router) {
		r.readOnly = true
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Router) {
		r.logger = l
	}
}

// NewRouter creates a Router.
func NewRouter(completer Completer, cal Calendar, opts ...Option) *Router {
	r := &Router{
		completer:  completer,
		calendar:   cal,
		calendarID: calendar.PrimaryCalendar,
		timeZone:   DefaultTimeZone,
		now:        time.Now,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Interpret asks the model for the structured form of query and validates it.
func (r *Router) Interpret(ctx context.Context, query string) (Plan, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Plan{}, fmt.Errorf("%w: empty request", ErrInvalidRequest)
	}

	now := r.now()
	if loc, err := time.LoadLocation(r.timeZone); err == nil {
		now = now.In(loc)
	}
	user := fmt.Sprintf("Current date and time: %s (%s, %s).\n\nRequest: %s",
		now.Format(localLayout), now.Weekday(), r.timeZone, query)

	answer, err := r.completer.Complete(ctx, []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: user},
	})
	if err != nil {
		return Plan{}, fmt.Errorf("failed to interpret calendar request: %w", err)
	}

	req, err := ParseRequest(answer)
	if err != nil {
		return Plan{}, err
	}
	return req.Resolve(r.timeZone)
}

// Handle interprets query and runs the resulting plan.
func (r *Router) Handle(ctx context.Context, query string) (*Result, error) {
	plan, err := r.Interpret(ctx, query)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("calendar request interpreted",
		logging.Operation(plan.Action),
		slog.Time("start", plan.Start),
		slog.Time("end", plan.End))
	return r.Execute(ctx, plan)
}

// Execute runs a resolved plan.
func (r *Router) Execute(ctx context.Context, plan Plan) (*Result, error) {
	result := &Result{Plan: plan, Action: plan.Action}

	switch plan.Action {
	case ActionList:
		events, err := r.calendar.ListEvents(ctx, r.calendarID, plan.Start, plan.End, plan.MaxResults)
		if err != nil {
			return nil, err
		}
		result.Events = events
	case ActionCreate:
		if r.readOnly {
			return nil, fmt.Errorf("%w: %s in read-only mode", ErrActionNotAllowed, plan.Action)
		}
		created, err := r.calendar.CreateEvent(ctx, r.calendarID, calendar.EventInput{
			Summary:     plan.Summary,
			Description: plan.Description,
			Location:    plan.Location,
			Start:       plan.Start,
			End:         plan.End,
			TimeZone:    plan.TimeZone,
		})
		if err != nil {
			return nil, err
		}
		result.Created = created
	default:
		return nil, fmt.Errorf("%w: unknown action %q", ErrInvalidRequest, plan.Action)
	}
	return result, nil
}

// Text renders the result for a terminal. Times are shown in the plan's
// time zone.
func (res *Result) Text() string {
	loc, err := time.LoadLocation(res.Plan.TimeZone)
	if err != nil {
		loc = time.UTC
	}

	var b strings.Builder
	switch res.Action {
	case ActionCreate:
		if res.Created == nil {
			return "No event created.\n"
		}
		fmt.Fprintf(&b, "Event created: %s\n", res.Created.Summary)
		fmt.Fprintf(&b, "When: %s - %s\n", res.Created.Start.In(loc).Format(localLayout), res.Created.End.In(loc).Format(localLayout))
		if res.Created.HTMLLink != "" {
			fmt.Fprintf(&b, "Link: %s\n", res.Created.HTMLLink)
		}
	default:
		if len(res.Events) == 0 {
			return "No events found.\n"
		}
		for _, ev := range res.Events {
			title := ev.Summary
			if title == "" {
				title = "No Title"
			}
			if ev.AllDay {
				fmt.Fprintf(&b, "%s  (all day)  %s\n", ev.Start.Format("2006-01-02"), title)
			} else {
				fmt.Fprintf(&b, "%s - %s  %s\n", ev.Start.In(loc).Format(localLayout), ev.End.In(loc).Format("15:04"), title)
			}
			if ev.Location != "" {
				fmt.Fprintf(&b, "    Location: %s\n", ev.Location)
			}
			if ev.Description != "" {
				fmt.Fprintf(&b, "    %s\n", ev.Description)
			}
		}
	}
	return b.String()
}
