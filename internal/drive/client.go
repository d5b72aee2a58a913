package drive

import (
	"context"
	"fmt"
	"io"
	"time"

	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/teemow/workdigest/internal/google"
	"github.com/teemow/workdigest/internal/instrumentation"
)

// MIME types with special handling.
const (
	FolderMimeType = "application/vnd.google-apps.folder"
	DocMimeType    = "application/vnd.google-apps.document"
	SlidesMimeType = "application/vnd.google-apps.presentation"
)

const (
	listPageSize = 100
	fileFields   = "id, name, mimeType, size, createdTime, modifiedTime, webViewLink, parents, trashed"

	// maxDownloadSize bounds downloads of plain files.
	maxDownloadSize = 10 << 20
)

// Client wraps the Google Drive API service
type Client struct {
	service *drive.Service
	metrics *instrumentation.Metrics
}

// NewClient creates a Drive client. Authentication and endpoint are set
// through opts, usually option.WithHTTPClient with a client from
// google.Provider.
func NewClient(ctx context.Context, metrics *instrumentation.Metrics, opts ...option.ClientOption) (*Client, error) {
	service, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Drive service: %w", err)
	}
	return &Client{service: service, metrics: metrics}, nil
}

// ListFiles returns every file matching query, following all pages.
func (c *Client) ListFiles(ctx context.Context, query string) ([]*FileInfo, error) {
	var files []*FileInfo
	err := google.Call(ctx, c.metrics, instrumentation.ServiceDrive, instrumentation.OperationList, func(ctx context.Context) error {
		call := c.service.Files.List().
			Context(ctx).
			Q(query).
			PageSize(listPageSize).
			OrderBy("name").
			Fields("nextPageToken, files(" + fileFields + ")")
		return call.Pages(ctx, func(page *drive.FileList) error {
			for _, f := range page.Files {
				files = append(files, convertToFileInfo(f))
			}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", google.ClassifyError(err))
	}
	return files, nil
}

// GetFile retrieves metadata for a specific file
func (c *Client) GetFile(ctx context.Context, fileID string) (*FileInfo, error) {
	if fileID == "" {
		return nil, fmt.Errorf("fileID is required")
	}

	var file *drive.File
	err := google.Call(ctx, c.metrics, instrumentation.ServiceDrive, instrumentation.OperationGet, func(ctx context.Context) error {
		var err error
		file, err = c.service.Files.Get(fileID).Context(ctx).Fields(fileFields).Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get file %s: %w", fileID, google.ClassifyError(err))
	}
	return convertToFileInfo(file), nil
}

// ExportText exports a Google Docs editor file as plain text.
func (c *Client) ExportText(ctx context.Context, fileID string) ([]byte, error) {
	var data []byte
	err := google.Call(ctx, c.metrics, instrumentation.ServiceDrive, instrumentation.OperationExport, func(ctx context.Context) error {
		resp, err := c.service.Files.Export(fileID, "text/plain").Context(ctx).Download()
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		data, err = readLimited(resp.Body)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to export file %s: %w", fileID, google.ClassifyError(err))
	}
	return data, nil
}

// Download returns the content of a binary or text file.
func (c *Client) Download(ctx context.Context, fileID string) ([]byte, error) {
	var data []byte
	err := google.Call(ctx, c.metrics, instrumentation.ServiceDrive, instrumentation.OperationGet, func(ctx context.Context) error {
		resp, err := c.service.Files.Get(fileID).Context(ctx).Download()
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		data, err = readLimited(resp.Body)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to download file %s: %w", fileID, google.ClassifyError(err))
	}
	return data, nil
}

func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxDownloadSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxDownloadSize {
		return nil, fmt.Errorf("file exceeds %d bytes", maxDownloadSize)
	}
	return data, nil
}

// convertToFileInfo converts a Drive API File to our FileInfo type
func convertToFileInfo(f *drive.File) *FileInfo {
	fileInfo := &FileInfo{
		ID:          f.Id,
		Name:        f.Name,
		MimeType:    f.MimeType,
		Size:        f.Size,
		WebViewLink: f.WebViewLink,
		Parents:     f.Parents,
		Trashed:     f.Trashed,
	}

	if f.CreatedTime != "" {
		if t, err := time.Parse(time.RFC3339, f.CreatedTime); err == nil {
			fileInfo.CreatedTime = t
		}
	}
	if f.ModifiedTime != "" {
		if t, err := time.Parse(time.RFC3339, f.ModifiedTime); err == nil {
			fileInfo.ModifiedTime = t
		}
	}

	return fileInfo
}
