package gmail

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"
	gmail "google.golang.org/api/gmail/v1"

	"github.com/teemow/workdigest/internal/logging"
	"github.com/teemow/workdigest/internal/pipeline"
)

const (
	// DefaultMaxMessages is the number of messages a report covers by default.
	DefaultMaxMessages = 20

	inboxLabel   = "INBOX"
	fetchWorkers = 5

	headerSubject = "Subject"
	headerFrom    = "From"
	headerDate    = "Date"
)

// Metadata keys set on email items.
const (
	MetaSender = "sender"
	MetaDate   = "date"
)

// Source lists the latest inbox messages as pipeline items and fetches
// their bodies on demand.
type Source struct {
	client      *Client
	maxMessages int64
	logger      *slog.Logger
}

var (
	_ pipeline.Source         = (*Source)(nil)
	_ pipeline.TextFetcher    = (*Source)(nil)
	_ pipeline.PayloadFetcher = (*Source)(nil)
)

// NewSource creates a Source covering the last maxMessages messages. Zero
// uses DefaultMaxMessages.
func NewSource(client *Client, maxMessages int, logger *slog.Logger) *Source {
	if maxMessages <= 0 {
		maxMessages = DefaultMaxMessages
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{client: client, maxMessages: int64(maxMessages), logger: logger}
}

// ListItems returns the newest inbox messages matching the Gmail search
// query filter. Only headers are read here. A message whose headers cannot
// be read is still listed, so its body fetch fails for that item alone.
func (s *Source) ListItems(ctx context.Context, filter string) ([]pipeline.Item, error) {
	ids, err := s.client.ListMessageIDs(ctx, inboxLabel, strings.TrimSpace(filter), s.maxMessages)
	if err != nil {
		return nil, err
	}

	items := make([]pipeline.Item, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchWorkers)
	for i, id := range ids {
		g.Go(func() error {
			msg, err := s.client.GetMessageHeaders(gctx, id, headerSubject, headerFrom, headerDate)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				s.logger.Debug("message headers unavailable", logging.ItemID(id), logging.Err(err))
				msg = &gmail.Message{Id: id}
			}
			items[i] = ItemFromHeaders(msg)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return items, nil
}

// FetchPayload downloads the body of a message, still transfer encoded.
func (s *Source) FetchPayload(ctx context.Context, messageID string) (pipeline.Payload, error) {
	msg, err := s.client.GetMessage(ctx, messageID)
	if err != nil {
		return pipeline.Payload{}, err
	}
	body, err := MessageBody(msg)
	if err != nil {
		return pipeline.Payload{}, err
	}
	if len(body.Data) == 0 {
		return pipeline.Payload{}, fmt.Errorf("%w: message %s has no text part", pipeline.ErrUnsupportedType, messageID)
	}
	return pipeline.Payload{
		Data:      body.Data,
		Encoding:  body.Encoding,
		MediaType: body.MediaType,
		Charset:   body.Charset,
	}, nil
}

// FetchText returns the body of a message as plain UTF-8 text.
func (s *Source) FetchText(ctx context.Context, messageID string, _ pipeline.ContentType) ([]byte, error) {
	p, err := s.FetchPayload(ctx, messageID)
	if err != nil {
		return nil, err
	}
	text, err := pipeline.DecodeText(p.Data, p.Encoding, p.Charset, p.MediaType)
	if err != nil {
		return nil, err
	}
	return []byte(text), nil
}

// ItemFromHeaders converts a message carrying at least its headers into an
// item whose body is fetched later.
func ItemFromHeaders(m *gmail.Message) pipeline.Item {
	subject := strings.TrimSpace(HeaderValue(m, headerSubject))
	if subject == "" {
		subject = "(no subject)"
	}

	return pipeline.Item{
		ID:          m.Id,
		DisplayName: subject,
		Link:        MessageLink(m.Id),
		ContentType: pipeline.ContentText,
		Metadata: map[string]string{
			MetaSender: HeaderValue(m, headerFrom),
			MetaDate:   HeaderValue(m, headerDate),
		},
	}
}

// MessageLink returns the Gmail web link of a message.
func MessageLink(id string) string {
	return "https://mail.google.com/mail/u/0/#inbox/" + id
}
