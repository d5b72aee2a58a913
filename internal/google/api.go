package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/api/googleapi"

	"github.com/teemow/workdigest/internal/instrumentation"
	"github.com/teemow/workdigest/internal/pipeline"
)

// Call runs fn inside a Google API span and records the operation metric.
func Call(ctx context.Context, m *instrumentation.Metrics, service, operation string, fn func(ctx context.Context) error) error {
	ctx, span := instrumentation.StartGoogleAPISpan(ctx, service, operation)
	defer span.End()

	start := time.Now()
	err := fn(ctx)

	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
		instrumentation.SetSpanError(span, err)
	} else {
		instrumentation.SetSpanSuccess(span)
	}
	m.RecordGoogleAPIOperation(ctx, service, operation, status, time.Since(start))
	return err
}

// ClassifyError wraps a Google API error with the matching pipeline error so
// that fetch failures can be told apart with errors.Is.
func ClassifyError(err error) error {
	if err == nil {
		return nil
	}
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return err
	}
	switch gerr.Code {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %w", pipeline.ErrNotFound, err)
	case http.StatusUnauthorized, http.StatusForbidden:
		for _, item := range gerr.Errors {
			if item.Reason == "exportSizeLimitExceeded" || item.Reason == "fileNotExportable" {
				return fmt.Errorf("%w: %w", pipeline.ErrUnsupportedType, err)
			}
		}
		return fmt.Errorf("%w: %w", pipeline.ErrPermissionDenied, err)
	case http.StatusBadRequest:
		for _, item := range gerr.Errors {
			if item.Reason == "fileNotDownloadable" {
				return fmt.Errorf("%w: %w", pipeline.ErrUnsupportedType, err)
			}
		}
	}
	return err
}
