package meet

import (
	"context"
	"fmt"
	"strings"

	"github.com/teemow/workdigest/internal/pipeline"
)

const unknownSpeaker = "Unknown speaker"

// Source lists the transcripts of a conference record as pipeline items.
type Source struct {
	client *Client
	record string
}

var (
	_ pipeline.Source      = (*Source)(nil)
	_ pipeline.TextFetcher = (*Source)(nil)
)

// NewSource creates a Source for conferenceRecord
// ("conferenceRecords/{id}" or a bare id).
func NewSource(client *Client, conferenceRecord string) *Source {
	return &Source{client: client, record: normalizeRecord(conferenceRecord)}
}

// ListItems returns one item per transcript. A non-empty filter names the
// conference record to use instead of the configured one.
func (s *Source) ListItems(ctx context.Context, filter string) ([]pipeline.Item, error) {
	record := s.record
	if f := strings.TrimSpace(filter); f != "" {
		record = normalizeRecord(f)
	}
	if record == "" {
		return nil, fmt.Errorf("no conference record given")
	}

	transcripts, err := s.client.ListTranscripts(ctx, record)
	if err != nil {
		return nil, err
	}

	items := make([]pipeline.Item, 0, len(transcripts))
	for i, tr := range transcripts {
		name := fmt.Sprintf("Transcript %d of %s", i+1, record)
		if !tr.StartTime.IsZero() {
			name = "Meeting transcript " + tr.StartTime.Format("2006-01-02 15:04")
		}
		item := pipeline.Item{
			ID:          tr.Name,
			DisplayName: name,
			ContentType: pipeline.ContentText,
			MediaType:   pipeline.MediaTypePlain,
			Metadata: map[string]string{
				"conference_record": record,
				"state":             tr.State,
			},
		}
		if tr.Document != "" {
			item.Link = "https://docs.google.com/document/d/" + tr.Document
		}
		items = append(items, item)
	}
	return items, nil
}

// FetchText renders a transcript as "Speaker: text" lines.
func (s *Source) FetchText(ctx context.Context, itemID string, ct pipeline.ContentType) ([]byte, error) {
	if ct != pipeline.ContentText {
		return nil, fmt.Errorf("%w: %s", pipeline.ErrUnsupportedType, ct)
	}

	entries, err := s.client.TranscriptEntries(ctx, itemID)
	if err != nil {
		return nil, err
	}
	names, err := s.client.ParticipantNames(ctx, recordOf(itemID))
	if err != nil {
		return nil, err
	}
	return []byte(RenderTranscript(entries, names)), nil
}

// RenderTranscript formats entries with resolved speaker names.
func RenderTranscript(entries []TranscriptEntry, names map[string]string) string {
	var b strings.Builder
	for _, e := range entries {
		text := strings.TrimSpace(e.Text)
		if text == "" {
			continue
		}
		speaker := names[e.Participant]
		if speaker == "" {
			speaker = unknownSpeaker
		}
		fmt.Fprintf(&b, "%s: %s\n", speaker, text)
	}
	return b.String()
}

func normalizeRecord(s string) string {
	s = strings.Trim(strings.TrimSpace(s), "/")
	if s == "" || strings.HasPrefix(s, "conferenceRecords/") {
		return s
	}
	return "conferenceRecords/" + s
}

// recordOf returns "conferenceRecords/{id}" of a transcript resource name.
func recordOf(transcript string) string {
	parts := strings.SplitN(transcript, "/", 3)
	if len(parts) < 2 {
		return transcript
	}
	return parts[0] + "/" + parts[1]
}
