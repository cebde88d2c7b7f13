package pipeline

import (
	"errors"
	"fmt"

	"github.com/Shimizu-Technology/sommaire-api/internal/services/validate"
)

// Failure kinds. Every error returned by a run matches exactly one of these
// with errors.Is.
var (
	ErrValidation              = errors.New("validation failed")
	ErrUploadFailed            = errors.New("file upload failed")
	ErrExtractionFailed        = errors.New("text extraction failed")
	ErrSummaryGenerationFailed = errors.New("summary generation failed")
	ErrPersistenceFailed       = errors.New("failed to save summary")
)

// StageError records which stage failed, the failure kind, and the cause.
type StageError struct {
	Stage State
	Kind  error
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Stage, e.Kind, e.Err)
}

// Unwrap lets errors.Is match both the kind and the underlying cause.
func (e *StageError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// kindFor is the failure kind of a stage that ended without returning,
// which only happens on a panic.
func kindFor(stage State) error {
	switch stage {
	case StateValidating:
		return ErrValidation
	case StateUploading:
		return ErrUploadFailed
	case StateExtracting:
		return ErrExtractionFailed
	case StateSummarizing:
		return ErrSummaryGenerationFailed
	default:
		return ErrPersistenceFailed
	}
}

// StageOf returns the failed stage, or "" if err did not come from a run.
func StageOf(err error) State {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}

// UserMessage returns the text shown to the user for a failed run.
//
// Extraction and summarization failures deliberately read the same as an
// upload failure; only validation and persistence get their own wording.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return validate.Message(err)
	case errors.Is(err, ErrPersistenceFailed):
		return "Failed to save summary"
	default:
		return "File upload failed"
	}
}
