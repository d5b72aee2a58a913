package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// TextFetcher retrieves the content of an item from its backend. For
// ContentExportRequired it must return a plain-text rendering. Errors should
// wrap ErrNotFound, ErrPermissionDenied or ErrUnsupportedType where they apply.
type TextFetcher interface {
	FetchText(ctx context.Context, itemID string, ct ContentType) ([]byte, error)
}

// TextFetcherFunc adapts a function to TextFetcher.
type TextFetcherFunc func(ctx context.Context, itemID string, ct ContentType) ([]byte, error)

func (f TextFetcherFunc) FetchText(ctx context.Context, itemID string, ct ContentType) ([]byte, error) {
	return f(ctx, itemID, ct)
}

// Payload is fetched content together with its transfer encoding, media
// type and charset.
type Payload struct {
	Data      []byte
	Encoding  string
	MediaType string
	Charset   string
}

// PayloadFetcher is implemented by fetchers that only learn how a text item
// is encoded when they fetch it. The extractor prefers FetchPayload over
// FetchText for text items without inline content.
type PayloadFetcher interface {
	FetchPayload(ctx context.Context, itemID string) (Payload, error)
}

// Extractor converts items into text.
type Extractor struct {
	fetcher TextFetcher
	timeout time.Duration
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithFetchTimeout bounds every fetch call.
func WithFetchTimeout(d time.Duration) ExtractorOption {
	return func(e *Extractor) {
		e.timeout = d
	}
}

// NewExtractor creates an Extractor. fetcher may be nil when all items carry
// inline content.
func NewExtractor(fetcher TextFetcher, opts ...ExtractorOption) *Extractor {
	e := &Extractor{fetcher: fetcher}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract returns the text of item. Unsupported items yield an empty
// ExtractedContent together with an UnsupportedContentType error.
func (e *Extractor) Extract(ctx context.Context, item Item) (ExtractedContent, error) {
	out := ExtractedContent{ItemID: item.ID}

	var (
		p   Payload
		err error
	)

	switch item.ContentType {
	case ContentUnsupported:
		return out, newItemError(ReasonUnsupportedContentType, fmt.Errorf("%s has no text rendering", item.ID))

	case ContentExportRequired:
		p, err = e.fetch(ctx, item, ContentExportRequired)
		if err != nil {
			return out, err
		}
		// Exports are always plain UTF-8 text.
		p.Encoding, p.Charset, p.MediaType = EncodingNone, "", MediaTypePlain

	case ContentText:
		p = Payload{Data: item.RawContent, Encoding: item.Encoding, MediaType: item.MediaType, Charset: item.Charset}
		if p.Data == nil {
			p, err = e.fetch(ctx, item, ContentText)
			if err != nil {
				return out, err
			}
		}

	default:
		return out, newItemError(ReasonUnsupportedContentType, fmt.Errorf("unknown content type %q", item.ContentType))
	}

	text, err := DecodeText(p.Data, p.Encoding, p.Charset, p.MediaType)
	if err != nil {
		return out, newItemError(ReasonDecodeError, err)
	}
	if strings.TrimSpace(text) == "" {
		return out, newItemError(ReasonEmptyContent, fmt.Errorf("%s has no text", item.ID))
	}

	out.Text = text
	return out, nil
}

// fetch retrieves the content of item, retrying once when the call runs
// into its deadline. A second timeout fails the item as a stage timeout.
func (e *Extractor) fetch(ctx context.Context, item Item, ct ContentType) (Payload, error) {
	if e.fetcher == nil {
		return Payload{}, newItemError(ReasonFetchFailed, fmt.Errorf("no fetcher configured for %s content", ct))
	}

	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		var p Payload
		p, err = e.fetchOnce(ctx, item, ct)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			break
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return Payload{}, newStageError(ReasonStageTimeout, "fetch", fmt.Errorf("fetch timed out: %w", err))
	}
	return Payload{}, newItemError(classifyFetchError(err), err)
}

func (e *Extractor) fetchOnce(ctx context.Context, item Item, ct ContentType) (Payload, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	if pf, ok := e.fetcher.(PayloadFetcher); ok && ct == ContentText {
		return pf.FetchPayload(ctx, item.ID)
	}
	raw, err := e.fetcher.FetchText(ctx, item.ID, ct)
	if err != nil {
		return Payload{}, err
	}
	return Payload{Data: raw, Encoding: item.Encoding, MediaType: item.MediaType, Charset: item.Charset}, nil
}
