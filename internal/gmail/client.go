package gmail

import (
	"context"
	"fmt"

	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/teemow/workdigest/internal/google"
	"github.com/teemow/workdigest/internal/instrumentation"
)

const (
	userID      = "me"
	maxPageSize = 100
)

// Client wraps the Gmail Users service
type Client struct {
	svc     *gmail.UsersService
	metrics *instrumentation.Metrics
}

// NewClient creates a Gmail client. Authentication and endpoint are set
// through opts.
func NewClient(ctx context.Context, metrics *instrumentation.Metrics, opts ...option.ClientOption) (*Client, error) {
	svc, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}
	return &Client{svc: svc.Users, metrics: metrics}, nil
}

// ListMessageIDs lists up to maxResults message ids carrying labelID and
// matching q, newest first. It pages until enough ids are collected.
func (c *Client) ListMessageIDs(ctx context.Context, labelID, q string, maxResults int64) ([]string, error) {
	var ids []string
	pageToken := ""

	for {
		remaining := maxResults - int64(len(ids))
		if remaining <= 0 {
			break
		}
		pageSize := min(remaining, maxPageSize)

		var res *gmail.ListMessagesResponse
		err := google.Call(ctx, c.metrics, instrumentation.ServiceGmail, instrumentation.OperationList, func(ctx context.Context) error {
			req := c.svc.Messages.List(userID).Context(ctx).MaxResults(pageSize)
			if labelID != "" {
				req = req.LabelIds(labelID)
			}
			if q != "" {
				req = req.Q(q)
			}
			if pageToken != "" {
				req = req.PageToken(pageToken)
			}
			var err error
			res, err = req.Do()
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list messages: %w", google.ClassifyError(err))
		}

		for _, m := range res.Messages {
			ids = append(ids, m.Id)
		}

		if res.NextPageToken == "" {
			break
		}
		pageToken = res.NextPageToken
	}

	if int64(len(ids)) > maxResults {
		ids = ids[:maxResults]
	}
	return ids, nil
}

// GetMessage retrieves a full Gmail message
func (c *Client) GetMessage(ctx context.Context, messageID string) (*gmail.Message, error) {
	return c.getMessage(ctx, messageID, "full")
}

// GetMessageHeaders retrieves only the given headers of a message.
func (c *Client) GetMessageHeaders(ctx context.Context, messageID string, headers ...string) (*gmail.Message, error) {
	return c.getMessage(ctx, messageID, "metadata", headers...)
}

func (c *Client) getMessage(ctx context.Context, messageID, format string, headers ...string) (*gmail.Message, error) {
	if messageID == "" {
		return nil, fmt.Errorf("messageID is required")
	}

	var msg *gmail.Message
	err := google.Call(ctx, c.metrics, instrumentation.ServiceGmail, instrumentation.OperationGet, func(ctx context.Context) error {
		req := c.svc.Messages.Get(userID, messageID).Context(ctx).Format(format)
		if len(headers) > 0 {
			req = req.MetadataHeaders(headers...)
		}
		var err error
		msg, err = req.Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get message %s: %w", messageID, google.ClassifyError(err))
	}
	return msg, nil
}
