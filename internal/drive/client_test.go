package drive

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/teemow/workdigest/internal/pipeline"
)

type fakeDrive struct {
	t       *testing.T
	queries []string
}

func (f *fakeDrive) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/files":
		f.queries = append(f.queries, r.URL.Query().Get("q"))
		assert.Equal(f.t, "100", r.URL.Query().Get("pageSize"))
		if r.URL.Query().Get("pageToken") == "" {
			writeJSON(w, map[string]any{
				"nextPageToken": "page2",
				"files": []map[string]any{
					{"id": "doc1", "name": "Budget 2024", "mimeType": DocMimeType, "webViewLink": "https://docs.google.com/document/d/doc1/edit"},
					{"id": "txt1", "name": "notes.txt", "mimeType": "text/plain", "modifiedTime": "2024-03-01T10:00:00Z"},
				},
			})
			return
		}
		writeJSON(w, map[string]any{
			"files": []map[string]any{
				{"id": "pdf1", "name": "scan.pdf", "mimeType": "application/pdf"},
				{"id": "page1", "name": "page.html", "mimeType": "text/html"},
			},
		})

	case r.URL.Path == "/files/doc1/export":
		assert.Equal(f.t, "text/plain", r.URL.Query().Get("mimeType"))
		_, _ = w.Write([]byte("Budget is approved."))

	case r.URL.Path == "/files/txt1" && r.URL.Query().Get("alt") == "media":
		_, _ = w.Write([]byte("meeting notes"))

	case r.URL.Path == "/files/secret/export":
		writeError(w, http.StatusForbidden, "insufficientFilePermissions")

	case r.URL.Path == "/files/big/export":
		writeError(w, http.StatusForbidden, "exportSizeLimitExceeded")

	default:
		writeError(w, http.StatusNotFound, "notFound")
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, reason string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": reason,
			"errors":  []map[string]any{{"reason": reason, "message": reason}},
		},
	})
}

func newTestClient(t *testing.T) (*Client, *fakeDrive) {
	t.Helper()
	fake := &fakeDrive{t: t}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	client, err := NewClient(context.Background(), nil,
		option.WithEndpoint(srv.URL+"/"),
		option.WithoutAuthentication())
	require.NoError(t, err)
	return client, fake
}

func TestConvertToFileInfo(t *testing.T) {
	f := convertToFileInfo(&drive.File{
		Id:           "file123",
		Name:         "test.pdf",
		MimeType:     "application/pdf",
		Size:         1024,
		CreatedTime:  "2023-01-01T10:00:00Z",
		ModifiedTime: "not a time",
		Parents:      []string{"parent1"},
	})

	assert.Equal(t, "file123", f.ID)
	assert.Equal(t, int64(1024), f.Size)
	assert.Equal(t, time.Date(2023, 1, 1, 10, 0, 0, 0, time.UTC), f.CreatedTime)
	assert.True(t, f.ModifiedTime.IsZero())
	assert.Equal(t, "https://drive.google.com/file/d/file123/view", f.Link())
}

func TestSource_ListItems(t *testing.T) {
	client, fake := newTestClient(t)
	src := NewSource(client, "folder1", nil, nil)

	items, err := src.ListItems(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, items, 4)

	assert.Equal(t, []string{"'folder1' in parents and trashed = false"}, fake.queries[:1])

	assert.Equal(t, pipeline.ContentExportRequired, items[0].ContentType)
	assert.Equal(t, "https://docs.google.com/document/d/doc1/edit", items[0].Link)

	assert.Equal(t, pipeline.ContentText, items[1].ContentType)
	assert.Nil(t, items[1].RawContent)
	assert.Equal(t, "https://drive.google.com/file/d/txt1/view", items[1].Link)
	assert.Equal(t, "2024-03-01", items[1].Metadata["modified"])

	assert.Equal(t, pipeline.ContentUnsupported, items[2].ContentType)
	assert.Equal(t, pipeline.MediaTypeHTML, items[3].MediaType)
}

func TestSource_FullTextFilterWithoutSelector(t *testing.T) {
	client, fake := newTestClient(t)
	src := NewSource(client, "folder1", nil, nil)

	_, err := src.ListItems(context.Background(), "Bob's plan")
	require.NoError(t, err)
	assert.Equal(t, `'folder1' in parents and trashed = false and fullText contains 'Bob\'s plan'`, fake.queries[0])
}

type selectorFunc func(ctx context.Context, topic string, names []string) ([]int, error)

func (f selectorFunc) SelectRelevant(ctx context.Context, topic string, names []string) ([]int, error) {
	return f(ctx, topic, names)
}

func TestSource_SelectorFilter(t *testing.T) {
	client, fake := newTestClient(t)
	var seen []string
	src := NewSource(client, "folder1", selectorFunc(func(_ context.Context, topic string, names []string) ([]int, error) {
		assert.Equal(t, "budget", topic)
		seen = names
		return []int{0}, nil
	}), nil)

	items, err := src.ListItems(context.Background(), "budget")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "doc1", items[0].ID)
	assert.Equal(t, []string{"Budget 2024", "notes.txt", "scan.pdf", "page.html"}, seen)
	assert.False(t, strings.Contains(fake.queries[0], "fullText"))
}

func TestSource_FetchText(t *testing.T) {
	client, _ := newTestClient(t)
	src := NewSource(client, "folder1", nil, nil)
	ctx := context.Background()

	data, err := src.FetchText(ctx, "doc1", pipeline.ContentExportRequired)
	require.NoError(t, err)
	assert.Equal(t, "Budget is approved.", string(data))

	data, err = src.FetchText(ctx, "txt1", pipeline.ContentText)
	require.NoError(t, err)
	assert.Equal(t, "meeting notes", string(data))

	_, err = src.FetchText(ctx, "gone", pipeline.ContentText)
	assert.ErrorIs(t, err, pipeline.ErrNotFound)

	_, err = src.FetchText(ctx, "secret", pipeline.ContentExportRequired)
	assert.ErrorIs(t, err, pipeline.ErrPermissionDenied)

	_, err = src.FetchText(ctx, "big", pipeline.ContentExportRequired)
	assert.ErrorIs(t, err, pipeline.ErrUnsupportedType)

	_, err = src.FetchText(ctx, "pdf1", pipeline.ContentUnsupported)
	assert.ErrorIs(t, err, pipeline.ErrUnsupportedType)
}

func TestSource_EndToEndExtraction(t *testing.T) {
	client, _ := newTestClient(t)
	src := NewSource(client, "folder1", nil, nil)
	ext := pipeline.NewExtractor(src)

	items, err := src.ListItems(context.Background(), "")
	require.NoError(t, err)

	out, err := ext.Extract(context.Background(), items[0])
	require.NoError(t, err)
	assert.Equal(t, "Budget is approved.", out.Text)

	_, err = ext.Extract(context.Background(), items[2])
	assert.Equal(t, pipeline.ReasonUnsupportedContentType, pipeline.ReasonOf(err))
}

func TestSource_FailuresStayWithTheirFile(t *testing.T) {
	client, _ := newTestClient(t)
	src := NewSource(client, "folder1", nil, nil)
	analyzer := pipeline.AnalyzerFunc(func(_ context.Context, stage, _ string, _ pipeline.Constraints) (string, error) {
		if stage == pipeline.StagePriority {
			return "Medium Priority: budget context", nil
		}
		return "Budget notes.", nil
	})

	coord, err := pipeline.NewCoordinator(src,
		pipeline.NewExtractor(src),
		pipeline.NewRunner(analyzer),
		[]pipeline.Stage{pipeline.SummaryStage("document", 100), pipeline.PriorityStage("document", 20, "")},
		pipeline.DefaultOptions())
	require.NoError(t, err)

	result, err := coord.Run(context.Background(), "")
	require.NoError(t, err)
	require.Equal(t, 4, result.Len())

	reports := result.Reports()
	require.Len(t, reports, 2)
	assert.Equal(t, "doc1", reports[0].ItemID)
	assert.Equal(t, "txt1", reports[1].ItemID)

	reasons := map[string]pipeline.Reason{}
	for _, f := range result.Failures() {
		reasons[f.ItemID] = f.Reason
	}
	assert.Equal(t, map[string]pipeline.Reason{
		"pdf1":  pipeline.ReasonUnsupportedContentType,
		"page1": pipeline.ReasonNotFound,
	}, reasons)
}

func TestParseFolderID(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "1AbC_d-E", want: "1AbC_d-E"},
		{in: "https://drive.google.com/drive/folders/1AbC_d-E?usp=sharing", want: "1AbC_d-E"},
		{in: "https://drive.google.com/drive/u/0/folders/xyz", want: "xyz"},
		{in: "", wantErr: true},
		{in: "a' or 'b", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFolderID(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestContentTypeOf(t *testing.T) {
	assert.Equal(t, pipeline.ContentExportRequired, ContentTypeOf(DocMimeType))
	assert.Equal(t, pipeline.ContentExportRequired, ContentTypeOf(SlidesMimeType))
	assert.Equal(t, pipeline.ContentText, ContentTypeOf("text/markdown"))
	assert.Equal(t, pipeline.ContentUnsupported, ContentTypeOf(FolderMimeType))
	assert.Equal(t, pipeline.ContentUnsupported, ContentTypeOf("application/vnd.google-apps.spreadsheet"))
}
