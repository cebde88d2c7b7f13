// Package pdf turns an uploaded PDF into plain text for the summarizer.
//
// Parsing uses the ledongthuc/pdf library, a pure Go implementation, so the
// server stays a single static binary.
package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"
)

const pdfMIME = "application/pdf"

// ErrExtractionFailed is returned when a document cannot be fetched or parsed.
var ErrExtractionFailed = errors.New("text extraction failed")

// ExtractionResult holds the output from a PDF text extraction.
type ExtractionResult struct {
	Text      string
	PageCount int
	WordCount int
}

// Extract reads all text from an in-memory PDF.
// A PDF with no text layer yields an empty Text and no error.
func Extract(data []byte) (result *ExtractionResult, err error) {
	if !ValidatePDF(data) {
		return nil, fmt.Errorf("%w: not a PDF document (detected %s)", ErrExtractionFailed, mimetype.Detect(data))
	}

	// The parser panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("%w: corrupt PDF: %v", ErrExtractionFailed, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open PDF: %w", ErrExtractionFailed, err)
	}

	pageCount := reader.NumPage()
	var sb strings.Builder
	for i := 1; i <= pageCount; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			// Image-only pages have nothing to give; keep going.
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(text)
	}

	extracted := strings.TrimSpace(sb.String())
	return &ExtractionResult{
		Text:      extracted,
		PageCount: pageCount,
		WordCount: CountWords(extracted),
	}, nil
}

// CountWords counts whitespace-separated words.
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// ValidatePDF sniffs the content and reports whether it is a PDF. The
// declared type of a downloaded file is not trusted.
func ValidatePDF(data []byte) bool {
	return mimetype.Detect(data).Is(pdfMIME)
}
