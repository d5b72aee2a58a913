package files

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/teemow/workdigest/internal/logging"
	"github.com/teemow/workdigest/internal/pipeline"
)

// MaxFileSize is the largest transcript file that is analysed. Larger files
// are reported as unsupported.
const MaxFileSize = 10 << 20

var mediaTypes = map[string]string{
	".txt":  pipeline.MediaTypePlain,
	".md":   pipeline.MediaTypePlain,
	".vtt":  pipeline.MediaTypePlain,
	".srt":  pipeline.MediaTypePlain,
	".html": pipeline.MediaTypeHTML,
	".htm":  pipeline.MediaTypeHTML,
}

// Source lists transcript files of one directory. Subdirectories are not
// visited.
type Source struct {
	dir    string
	logger *slog.Logger
	stat   func(string) (fs.FileInfo, error)
}

var (
	_ pipeline.Source      = (*Source)(nil)
	_ pipeline.TextFetcher = (*Source)(nil)
)

// NewSource creates a Source for dir. A single file may be given instead of
// a directory; it is then the only item.
func NewSource(dir string, logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{dir: dir, logger: logger, stat: os.Stat}
}

// ListItems returns the transcript files sorted by name. A non-empty filter
// is a glob matched against file names, e.g. "standup-*.vtt". A file that
// cannot be inspected is still listed and fails when it is read.
func (s *Source) ListItems(ctx context.Context, filter string) ([]pipeline.Item, error) {
	filter = strings.TrimSpace(filter)
	if filter != "" {
		if _, err := filepath.Match(filter, ""); err != nil {
			return nil, fmt.Errorf("invalid file pattern %q: %w", filter, err)
		}
	}

	root, names, err := s.listNames()
	if err != nil {
		return nil, err
	}

	var items []pipeline.Item
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if filter != "" {
			if ok, _ := filepath.Match(filter, name); !ok {
				continue
			}
		}

		info, err := s.stat(filepath.Join(root, name))
		if err != nil {
			s.logger.Warn("transcript file not inspectable", logging.Source(name), logging.Err(err))
			info = nil
		}
		items = append(items, s.itemFor(root, name, info))
	}
	return items, nil
}

// listNames returns the directory the items live in and the candidate file
// names in it.
func (s *Source) listNames() (string, []string, error) {
	info, err := os.Stat(s.dir)
	if err != nil {
		return "", nil, fmt.Errorf("failed to open transcript location: %w", err)
	}
	if !info.IsDir() {
		return filepath.Dir(s.dir), []string{filepath.Base(s.dir)}, nil
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read transcript directory: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() && !strings.HasPrefix(e.Name(), ".") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return s.dir, names, nil
}

// itemFor builds the item of a file. info is nil when the file could not be
// inspected.
func (s *Source) itemFor(root, name string, info fs.FileInfo) pipeline.Item {
	path := filepath.Join(root, name)
	link := path
	if abs, err := filepath.Abs(path); err == nil {
		link = abs
	}

	item := pipeline.Item{
		ID:          path,
		DisplayName: name,
		Link:        "file://" + filepath.ToSlash(link),
	}
	if info != nil {
		item.Metadata = map[string]string{
			"modified": info.ModTime().Format("2006-01-02"),
			"size":     fmt.Sprint(info.Size()),
		}
	}

	mediaType, ok := mediaTypes[strings.ToLower(filepath.Ext(name))]
	switch {
	case !ok, info != nil && info.Size() > MaxFileSize:
		item.ContentType = pipeline.ContentUnsupported
	default:
		item.ContentType = pipeline.ContentText
		item.MediaType = mediaType
	}
	return item
}

// FetchText reads a transcript file. Caption formats are flattened to
// their text lines.
func (s *Source) FetchText(ctx context.Context, itemID string, ct pipeline.ContentType) ([]byte, error) {
	if ct != pipeline.ContentText {
		return nil, fmt.Errorf("%w: %s", pipeline.ErrUnsupportedType, ct)
	}
	if err := s.contains(itemID); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(itemID)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("%w: %s", pipeline.ErrNotFound, itemID)
	case errors.Is(err, fs.ErrPermission):
		return nil, fmt.Errorf("%w: %s", pipeline.ErrPermissionDenied, itemID)
	case err != nil:
		return nil, fmt.Errorf("failed to read %s: %w", itemID, err)
	}

	switch strings.ToLower(filepath.Ext(itemID)) {
	case ".vtt", ".srt":
		return []byte(CaptionText(string(data))), nil
	}
	return data, nil
}

// contains rejects item ids outside the configured location.
func (s *Source) contains(itemID string) error {
	root := s.dir
	if info, err := os.Stat(s.dir); err == nil && !info.IsDir() {
		if filepath.Clean(itemID) == filepath.Clean(s.dir) {
			return nil
		}
		root = filepath.Dir(s.dir)
	}
	rel, err := filepath.Rel(root, itemID)
	if err != nil || !filepath.IsLocal(rel) {
		return fmt.Errorf("%w: %s is outside %s", pipeline.ErrNotFound, itemID, s.dir)
	}
	return nil
}
