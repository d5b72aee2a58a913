package gmail

import (
	"encoding/base64"
	"fmt"
	"mime"
	"strings"

	gmail "google.golang.org/api/gmail/v1"

	"github.com/teemow/workdigest/internal/pipeline"
)

// Body is the selected text of a message, still transfer encoded.
type Body struct {
	Data      []byte
	Encoding  string
	MediaType string
	Charset   string
}

// HeaderValue extracts a header value from a Gmail message
func HeaderValue(m *gmail.Message, header string) string {
	if m == nil || m.Payload == nil {
		return ""
	}
	for _, h := range m.Payload.Headers {
		if strings.EqualFold(h.Name, header) {
			return h.Value
		}
	}
	return ""
}

// MessageBody selects the text of a message: every text/plain part, or the
// text/html parts when the message has no plain part. Attachments are
// skipped. A single part is returned as delivered by the API. Several parts
// are each decoded with their own charset and joined into one UTF-8 plain
// text payload; a part that cannot be decoded fails the whole body.
func MessageBody(m *gmail.Message) (Body, error) {
	if m == nil || m.Payload == nil {
		return Body{}, nil
	}

	mediaType := pipeline.MediaTypePlain
	parts := partsOfType(m.Payload, pipeline.MediaTypePlain)
	if len(parts) == 0 {
		parts = partsOfType(m.Payload, pipeline.MediaTypeHTML)
		mediaType = pipeline.MediaTypeHTML
	}
	switch len(parts) {
	case 0:
		return Body{}, nil
	case 1:
		return Body{
			Data:      []byte(parts[0].Body.Data),
			Encoding:  pipeline.EncodingBase64URL,
			MediaType: mediaType,
			Charset:   partCharset(parts[0]),
		}, nil
	}

	texts := make([]string, 0, len(parts))
	for i, p := range parts {
		text, err := pipeline.DecodeText([]byte(p.Body.Data), pipeline.EncodingBase64URL, partCharset(p), mediaType)
		if err != nil {
			return Body{}, fmt.Errorf("part %d of message %s: %w", i+1, m.Id, err)
		}
		texts = append(texts, text)
	}
	return Body{
		Data:      []byte(base64.URLEncoding.EncodeToString([]byte(strings.Join(texts, "\n\n")))),
		Encoding:  pipeline.EncodingBase64URL,
		MediaType: pipeline.MediaTypePlain,
	}, nil
}

func partsOfType(root *gmail.MessagePart, mediaType string) []*gmail.MessagePart {
	var parts []*gmail.MessagePart
	walkParts(root, func(p *gmail.MessagePart) {
		if p.Filename != "" || p.Body == nil || p.Body.Data == "" {
			return
		}
		mt, _, err := mime.ParseMediaType(p.MimeType)
		if err != nil {
			mt = strings.ToLower(p.MimeType)
		}
		if mt == mediaType {
			parts = append(parts, p)
		}
	})
	return parts
}

// walkParts recursively walks through message parts
func walkParts(part *gmail.MessagePart, fn func(*gmail.MessagePart)) {
	if part == nil {
		return
	}

	fn(part)

	for _, subpart := range part.Parts {
		walkParts(subpart, fn)
	}
}

func partCharset(p *gmail.MessagePart) string {
	for _, h := range p.Headers {
		if !strings.EqualFold(h.Name, "Content-Type") {
			continue
		}
		if _, params, err := mime.ParseMediaType(h.Value); err == nil {
			return params["charset"]
		}
	}
	return ""
}
