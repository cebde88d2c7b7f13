package pdf

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Shimizu-Technology/sommaire-api/internal/services/storage"
)

// URLExtractor fetches a PDF by URL and extracts its text.
//
// URLs pointing at our own /files/ route are read straight from local
// storage instead of looping back through HTTP.
type URLExtractor struct {
	httpClient *http.Client
	maxBytes   int64
	local      *storage.Local
	publicBase string
}

// NewURLExtractor creates an extractor. local may be nil when uploads go to
// an external service.
func NewURLExtractor(timeout time.Duration, maxBytes int64, local *storage.Local, publicBaseURL string) *URLExtractor {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &URLExtractor{
		httpClient: &http.Client{Timeout: timeout},
		maxBytes:   maxBytes,
		local:      local,
		publicBase: publicBaseURL,
	}
}

// ExtractURL returns the document's text. Empty text is not an error.
func (e *URLExtractor) ExtractURL(ctx context.Context, fileURL string) (string, error) {
	result, err := e.ExtractURLDetailed(ctx, fileURL)
	if err != nil {
		return "", err
	}
	return result.Text, nil
}

// ExtractURLDetailed is ExtractURL with page and word counts.
func (e *URLExtractor) ExtractURLDetailed(ctx context.Context, fileURL string) (*ExtractionResult, error) {
	data, err := e.fetch(ctx, fileURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExtractionFailed, err)
	}
	return Extract(data)
}

func (e *URLExtractor) fetch(ctx context.Context, fileURL string) ([]byte, error) {
	if e.local != nil {
		if key, ok := storage.KeyFromURL(e.publicBase, fileURL); ok {
			rc, err := e.local.Open(ctx, key)
			if err != nil {
				return nil, err
			}
			defer rc.Close()
			return e.readCapped(rc)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch returned %d", resp.StatusCode)
	}
	return e.readCapped(resp.Body)
}

// readCapped reads at most maxBytes, failing on anything larger.
func (e *URLExtractor) readCapped(r io.Reader) ([]byte, error) {
	if e.maxBytes <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, e.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read failed: %w", err)
	}
	if int64(len(data)) > e.maxBytes {
		return nil, fmt.Errorf("document larger than %d bytes", e.maxBytes)
	}
	return data, nil
}
