package meet

import (
	"context"
	"fmt"
	"time"

	meet "google.golang.org/api/meet/v2"
	"google.golang.org/api/option"

	"github.com/teemow/workdigest/internal/google"
	"github.com/teemow/workdigest/internal/instrumentation"
)

// Client wraps the Google Meet API service
type Client struct {
	svc     *meet.Service
	metrics *instrumentation.Metrics
}

// NewClient creates a Meet client. Authentication and endpoint are set
// through opts.
func NewClient(ctx context.Context, metrics *instrumentation.Metrics, opts ...option.ClientOption) (*Client, error) {
	svc, err := meet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Meet service: %w", err)
	}
	return &Client{svc: svc, metrics: metrics}, nil
}

// CreateSpace creates a new meeting space with the given access type. An
// empty access type uses AccessOpen.
func (c *Client) CreateSpace(ctx context.Context, accessType string) (*Space, error) {
	if accessType == "" {
		accessType = AccessOpen
	}

	var created *meet.Space
	err := google.Call(ctx, c.metrics, instrumentation.ServiceMeet, instrumentation.OperationCreate, func(ctx context.Context) error {
		var err error
		created, err = c.svc.Spaces.Create(&meet.Space{
			Config: &meet.SpaceConfig{AccessType: accessType},
		}).Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create space: %w", google.ClassifyError(err))
	}
	return toSpace(created), nil
}

// ListTranscripts lists all transcripts for a conference record
func (c *Client) ListTranscripts(ctx context.Context, conferenceRecord string) ([]Transcript, error) {
	var transcripts []Transcript
	err := google.Call(ctx, c.metrics, instrumentation.ServiceMeet, instrumentation.OperationList, func(ctx context.Context) error {
		return c.svc.ConferenceRecords.Transcripts.List(conferenceRecord).Pages(ctx, func(resp *meet.ListTranscriptsResponse) error {
			for _, tr := range resp.Transcripts {
				transcript := Transcript{
					Name:      tr.Name,
					State:     tr.State,
					StartTime: parseTime(tr.StartTime),
					EndTime:   parseTime(tr.EndTime),
				}
				if tr.DocsDestination != nil {
					transcript.Document = tr.DocsDestination.Document
				}
				transcripts = append(transcripts, transcript)
			}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list transcripts: %w", google.ClassifyError(err))
	}
	return transcripts, nil
}

// TranscriptEntries retrieves all entries of a transcript in spoken order.
func (c *Client) TranscriptEntries(ctx context.Context, transcriptName string) ([]TranscriptEntry, error) {
	var entries []TranscriptEntry
	err := google.Call(ctx, c.metrics, instrumentation.ServiceMeet, instrumentation.OperationGet, func(ctx context.Context) error {
		return c.svc.ConferenceRecords.Transcripts.Entries.List(transcriptName).Pages(ctx, func(resp *meet.ListTranscriptEntriesResponse) error {
			for _, e := range resp.TranscriptEntries {
				entries = append(entries, TranscriptEntry{
					Participant: e.Participant,
					Text:        e.Text,
					Language:    e.LanguageCode,
					StartTime:   parseTime(e.StartTime),
				})
			}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get transcript entries: %w", google.ClassifyError(err))
	}
	return entries, nil
}

// ParticipantNames maps participant resource names of a conference record
// to display names.
func (c *Client) ParticipantNames(ctx context.Context, conferenceRecord string) (map[string]string, error) {
	names := make(map[string]string)
	err := google.Call(ctx, c.metrics, instrumentation.ServiceMeet, instrumentation.OperationList, func(ctx context.Context) error {
		return c.svc.ConferenceRecords.Participants.List(conferenceRecord).Pages(ctx, func(resp *meet.ListParticipantsResponse) error {
			for _, p := range resp.Participants {
				if name := displayName(p); name != "" {
					names[p.Name] = name
				}
			}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", google.ClassifyError(err))
	}
	return names, nil
}

func displayName(p *meet.Participant) string {
	switch {
	case p.SignedinUser != nil:
		return p.SignedinUser.DisplayName
	case p.AnonymousUser != nil:
		return p.AnonymousUser.DisplayName
	case p.PhoneUser != nil:
		return p.PhoneUser.DisplayName
	}
	return ""
}

// toSpace converts a Meet API Space to our Space type
func toSpace(s *meet.Space) *Space {
	space := &Space{
		Name:        s.Name,
		MeetingURI:  s.MeetingUri,
		MeetingCode: s.MeetingCode,
	}
	if s.Config != nil {
		space.AccessType = s.Config.AccessType
	}
	return space
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
