package schedule

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Actions a request can be routed to.
const (
	ActionList   = "list"
	ActionCreate = "create"
)

const (
	// DefaultTimeZone is used when neither the request nor the router names one.
	DefaultTimeZone = "America/Chicago"

	// DefaultMaxResults bounds listings that do not ask for a count.
	DefaultMaxResults = 10

	maxResultsLimit = 250
	localLayout     = "2006-01-02T15:04:05"
)

// ErrInvalidRequest is returned when the model's answer cannot be turned
// into a calendar operation.
var ErrInvalidRequest = errors.New("invalid calendar request")

// ErrActionNotAllowed is returned when a read-only router is asked to
// create an event.
var ErrActionNotAllowed = errors.New("calendar action not allowed")

var jsonObject = regexp.MustCompile(`(?s)\{.*\}`)

// Request is the structured form of a calendar request.
type Request struct {
	Action      string `json:"action"`
	Start       string `json:"start"`
	End         string `json:"end,omitempty"`
	Summary     string `json:"summary,omitempty"`
	Location    string `json:"location,omitempty"`
	Description string `json:"description,omitempty"`
	TimeZone    string `json:"time_zone,omitempty"`
	MaxResults  int    `json:"max_results,omitempty"`
}

// Plan is a validated Request with resolved times.
type Plan struct {
	Action      string
	Start       time.Time
	End         time.Time
	Summary     string
	Location    string
	Description string
	TimeZone    string
	MaxResults  int
}

// ParseRequest extracts the JSON object from a model answer. Surrounding
// prose and code fences are ignored.
func ParseRequest(answer string) (Request, error) {
	raw := jsonObject.FindString(answer)
	if raw == "" {
		return Request{}, fmt.Errorf("%w: no JSON object in answer %q", ErrInvalidRequest, clip(answer, 200))
	}

	var req Request
	if err := json.Unmarshal([]byte(raw), &req); err != nil {
		return Request{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	req.Action = strings.ToLower(strings.TrimSpace(req.Action))
	return req, nil
}

// Resolve validates the request and applies defaults. Listings without an
// end cover one day; events without an end last one hour.
func (r Request) Resolve(defaultTZ string) (Plan, error) {
	tz := strings.TrimSpace(r.TimeZone)
	if tz == "" {
		tz = defaultTZ
	}
	if tz == "" {
		tz = DefaultTimeZone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return Plan{}, fmt.Errorf("%w: unknown time zone %q", ErrInvalidRequest, tz)
	}

	plan := Plan{
		Action:      r.Action,
		Summary:     strings.TrimSpace(r.Summary),
		Location:    strings.TrimSpace(r.Location),
		Description: strings.TrimSpace(r.Description),
		TimeZone:    tz,
	}

	if strings.TrimSpace(r.Start) == "" {
		return Plan{}, fmt.Errorf("%w: missing start", ErrInvalidRequest)
	}
	if plan.Start, err = parseLocal(r.Start, loc); err != nil {
		return Plan{}, fmt.Errorf("%w: start: %v", ErrInvalidRequest, err)
	}
	if strings.TrimSpace(r.End) != "" {
		if plan.End, err = parseLocal(r.End, loc); err != nil {
			return Plan{}, fmt.Errorf("%w: end: %v", ErrInvalidRequest, err)
		}
	}

	switch r.Action {
	case ActionList:
		if plan.End.IsZero() {
			plan.End = plan.Start.AddDate(0, 0, 1)
		}
		plan.MaxResults = r.MaxResults
		if plan.MaxResults <= 0 {
			plan.MaxResults = DefaultMaxResults
		}
		plan.MaxResults = min(plan.MaxResults, maxResultsLimit)
	case ActionCreate:
		if plan.Summary == "" {
			return Plan{}, fmt.Errorf("%w: missing summary", ErrInvalidRequest)
		}
		if plan.End.IsZero() {
			plan.End = plan.Start.Add(time.Hour)
		}
	default:
		return Plan{}, fmt.Errorf("%w: unknown action %q", ErrInvalidRequest, r.Action)
	}

	if !plan.End.After(plan.Start) {
		return Plan{}, fmt.Errorf("%w: end %s is not after start %s", ErrInvalidRequest,
			plan.End.Format(localLayout), plan.Start.Format(localLayout))
	}
	return plan, nil
}

// parseLocal reads "YYYY-MM-DDTHH:MM:SS" in loc. Minutes-only times, plain
// dates and RFC 3339 timestamps are accepted as well.
func parseLocal(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.In(loc), nil
	}
	for _, layout := range []string{localLayout, "2006-01-02T15:04", "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse %q as YYYY-MM-DDTHH:MM:SS", s)
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
