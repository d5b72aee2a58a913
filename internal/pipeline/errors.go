package pipeline

import (
	"context"
	"errors"
	"fmt"
)

// Reason classifies why an item failed.
type Reason string

const (
	ReasonUnsupportedContentType Reason = "UnsupportedContentType"
	ReasonDecodeError            Reason = "DecodeError"
	ReasonEmptyContent           Reason = "EmptyContent"
	ReasonNotFound               Reason = "NotFound"
	ReasonPermissionDenied       Reason = "PermissionDenied"
	ReasonFetchFailed            Reason = "FetchFailed"
	ReasonStageTimeout           Reason = "StageFailure.Timeout"
	ReasonStageOutOfContract     Reason = "StageFailure.OutOfContract"
	ReasonStageUnavailable       Reason = "StageFailure.CapabilityUnavailable"
	ReasonIncompleteStages       Reason = "IncompleteStages"
)

// IsStageFailure reports whether the reason originates from a stage.
func (r Reason) IsStageFailure() bool {
	switch r {
	case ReasonStageTimeout, ReasonStageOutOfContract, ReasonStageUnavailable:
		return true
	}
	return false
}

// Batch level errors. Both abort a run before any item is processed.
var (
	ErrSourceUnavailable = errors.New("item source unavailable")
	ErrDuplicateItem     = errors.New("item source yielded a duplicate item id")
)

// Errors returned by collaborators. Fetchers and analyzers wrap these so the
// pipeline can classify failures with errors.Is.
var (
	ErrNotFound              = errors.New("not found")
	ErrPermissionDenied      = errors.New("permission denied")
	ErrUnsupportedType       = errors.New("unsupported content type")
	ErrDecode                = errors.New("content could not be decoded")
	ErrCapabilityUnavailable = errors.New("analysis capability unavailable")
	ErrOutOfContract         = errors.New("output out of contract")
	ErrTimeout               = errors.New("capability call timed out")
)

// ItemError is a failure local to one item.
type ItemError struct {
	Reason Reason
	Stage  string
	Err    error
}

func (e *ItemError) Error() string {
	msg := string(e.Reason)
	if e.Stage != "" {
		msg += " in stage " + e.Stage
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ItemError) Unwrap() error {
	return e.Err
}

func newItemError(reason Reason, err error) *ItemError {
	return &ItemError{Reason: reason, Err: err}
}

func newStageError(reason Reason, stage string, err error) *ItemError {
	return &ItemError{Reason: reason, Stage: stage, Err: err}
}

// ReasonOf extracts the failure reason of err. Errors that were not produced by
// the pipeline map to FetchFailed.
func ReasonOf(err error) Reason {
	var ie *ItemError
	if errors.As(err, &ie) {
		return ie.Reason
	}
	return ReasonFetchFailed
}

// failureFor converts an item error into a Failure record.
func failureFor(itemID string, err error) *Failure {
	f := &Failure{ItemID: itemID, Reason: ReasonOf(err)}
	var ie *ItemError
	if errors.As(err, &ie) {
		if ie.Err != nil {
			f.Detail = ie.Err.Error()
		}
		if ie.Stage != "" {
			f.Detail = fmt.Sprintf("stage %s: %s", ie.Stage, f.Detail)
		}
	} else if err != nil {
		f.Detail = err.Error()
	}
	return f
}

// classifyFetchError maps a TextFetcher error to a reason.
func classifyFetchError(err error) Reason {
	switch {
	case errors.Is(err, ErrNotFound):
		return ReasonNotFound
	case errors.Is(err, ErrPermissionDenied):
		return ReasonPermissionDenied
	case errors.Is(err, ErrUnsupportedType):
		return ReasonUnsupportedContentType
	case errors.Is(err, ErrDecode):
		return ReasonDecodeError
	default:
		return ReasonFetchFailed
	}
}

// classifyStageError maps an analyzer error to a stage reason and reports
// whether the attempt may be retried.
func classifyStageError(err error) (Reason, bool) {
	switch {
	case errors.Is(err, ErrOutOfContract):
		return ReasonStageOutOfContract, true
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return ReasonStageTimeout, true
	default:
		return ReasonStageUnavailable, false
	}
}
