package drive

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/teemow/workdigest/internal/logging"
	"github.com/teemow/workdigest/internal/pipeline"
)

// Selector picks the names related to a topic. It returns indices into names.
type Selector interface {
	SelectRelevant(ctx context.Context, topic string, names []string) ([]int, error)
}

// Source lists the files of one Drive folder as pipeline items.
type Source struct {
	client   *Client
	folderID string
	selector Selector
	logger   *slog.Logger
}

var (
	_ pipeline.Source      = (*Source)(nil)
	_ pipeline.TextFetcher = (*Source)(nil)
)

var folderLink = regexp.MustCompile(`/folders/([A-Za-z0-9_-]+)`)

// ParseFolderID accepts a folder id or a drive.google.com folder link.
func ParseFolderID(s string) (string, error) {
	s = strings.TrimSpace(s)
	if m := folderLink.FindStringSubmatch(s); m != nil {
		return m[1], nil
	}
	if s == "" || strings.ContainsAny(s, "/?'\" ") {
		return "", fmt.Errorf("invalid Drive folder %q", s)
	}
	return s, nil
}

// NewSource creates a Source. selector may be nil, in which case filters are
// applied as full text queries.
func NewSource(client *Client, folderID string, selector Selector, logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{client: client, folderID: folderID, selector: selector, logger: logger}
}

// ListItems returns the files of the folder in name order. A non-empty filter
// is a topic: the selector keeps the related files, or without a selector
// Drive's full text search does.
func (s *Source) ListItems(ctx context.Context, filter string) ([]pipeline.Item, error) {
	filter = strings.TrimSpace(filter)

	query := fmt.Sprintf("'%s' in parents and trashed = false", escapeQuery(s.folderID))
	if filter != "" && s.selector == nil {
		query += fmt.Sprintf(" and fullText contains '%s'", escapeQuery(filter))
	}

	files, err := s.client.ListFiles(ctx, query)
	if err != nil {
		return nil, err
	}

	if filter != "" && s.selector != nil && len(files) > 0 {
		names := make([]string, len(files))
		for i, f := range files {
			names[i] = f.Name
		}
		indices, err := s.selector.SelectRelevant(ctx, filter, names)
		if err != nil {
			return nil, err
		}
		selected := make([]*FileInfo, 0, len(indices))
		for _, i := range indices {
			selected = append(selected, files[i])
		}
		s.logger.Debug("selected files by topic",
			logging.Source("drive"),
			slog.Int("listed", len(files)),
			slog.Int("selected", len(selected)))
		files = selected
	}

	items := make([]pipeline.Item, 0, len(files))
	for _, f := range files {
		items = append(items, itemFromFile(f))
	}
	return items, nil
}

// FetchText exports or downloads the content of a file.
func (s *Source) FetchText(ctx context.Context, itemID string, ct pipeline.ContentType) ([]byte, error) {
	switch ct {
	case pipeline.ContentExportRequired:
		return s.client.ExportText(ctx, itemID)
	case pipeline.ContentText:
		return s.client.Download(ctx, itemID)
	default:
		return nil, fmt.Errorf("%w: %s", pipeline.ErrUnsupportedType, ct)
	}
}

func itemFromFile(f *FileInfo) pipeline.Item {
	item := pipeline.Item{
		ID:          f.ID,
		DisplayName: f.Name,
		Link:        f.Link(),
		ContentType: ContentTypeOf(f.MimeType),
		MediaType:   pipeline.MediaTypePlain,
		Metadata: map[string]string{
			"mime_type": f.MimeType,
		},
	}
	if f.MimeType == pipeline.MediaTypeHTML {
		item.MediaType = pipeline.MediaTypeHTML
	}
	if !f.ModifiedTime.IsZero() {
		item.Metadata["modified"] = f.ModifiedTime.Format("2006-01-02")
	}
	return item
}

// ContentTypeOf maps a Drive MIME type to the way its text is obtained.
func ContentTypeOf(mimeType string) pipeline.ContentType {
	switch {
	case mimeType == DocMimeType, mimeType == SlidesMimeType:
		return pipeline.ContentExportRequired
	case strings.HasPrefix(mimeType, "text/"):
		return pipeline.ContentText
	default:
		return pipeline.ContentUnsupported
	}
}

func escapeQuery(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}
