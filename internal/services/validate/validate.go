// Package validate checks an upload candidate before any network call is made.
package validate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Shimizu-Technology/sommaire-api/internal/models"
)

// DefaultMaxBytes is the largest PDF we accept (20MB).
const DefaultMaxBytes int64 = 20 << 20

// pdfMIMEPrefix is the only accepted MIME type family. The declared type is
// matched as given: no sniffing, no case folding.
const pdfMIMEPrefix = "application/pdf"

var (
	// ErrValidation is the kind shared by every validation failure.
	ErrValidation = errors.New("validation failed")

	ErrSizeExceeded = fmt.Errorf("%w: file too large", ErrValidation)
	ErrInvalidType  = fmt.Errorf("%w: file must be a PDF", ErrValidation)
)

// SizeError is returned for a candidate over the limit. It matches
// ErrSizeExceeded and ErrValidation with errors.Is.
type SizeError struct {
	Limit int64
}

func (e *SizeError) Error() string {
	return "validation failed: file size must be less than " + FormatLimit(e.Limit)
}

func (e *SizeError) Unwrap() error { return ErrSizeExceeded }

// Validator enforces the size and type constraints on uploads.
type Validator struct {
	MaxBytes int64
}

// New returns a Validator with the given size limit (0 = DefaultMaxBytes).
func New(maxBytes int64) *Validator {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Validator{MaxBytes: maxBytes}
}

// Validate checks size first, then MIME type. The candidate is returned unchanged.
func (v *Validator) Validate(c *models.UploadCandidate) (*models.UploadCandidate, error) {
	if c == nil {
		return nil, fmt.Errorf("%w: invalid file", ErrValidation)
	}

	maxBytes := v.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}

	if c.Size > maxBytes {
		return nil, &SizeError{Limit: maxBytes}
	}

	if !strings.HasPrefix(c.MIMEType, pdfMIMEPrefix) {
		return nil, ErrInvalidType
	}

	return c, nil
}

// FormatLimit renders a byte limit the way the upload form does ("20MB").
func FormatLimit(n int64) string {
	if n > 0 && n%(1<<20) == 0 {
		return fmt.Sprintf("%dMB", n>>20)
	}
	return fmt.Sprintf("%d bytes", n)
}

// Message returns the user-facing text for a validation error.
func Message(err error) string {
	var se *SizeError
	switch {
	case errors.As(err, &se):
		return "File size must be less than " + FormatLimit(se.Limit)
	case errors.Is(err, ErrSizeExceeded):
		return "File size must be less than " + FormatLimit(DefaultMaxBytes)
	case errors.Is(err, ErrInvalidType):
		return "File must be a PDF"
	default:
		return "Invalid File"
	}
}
