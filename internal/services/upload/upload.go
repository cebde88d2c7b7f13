// Package upload hands validated files to a file-storage service.
//
// The service can be the built-in one (LocalTransport, files served from
// /files/:key) or an external one reached over HTTP (HTTPTransport). Both
// answer with the same array-of-records shape; the Client only ever looks
// at the first record because submissions carry a single file.
package upload

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Shimizu-Technology/sommaire-api/internal/models"
)

// ErrUploadFailed is returned for every failed upload.
var ErrUploadFailed = errors.New("upload failed")

// Transport moves one file to the storage service.
type Transport interface {
	Upload(ctx context.Context, c *models.UploadCandidate, ownerID string) ([]models.UploadResponse, error)
}

// Deleter is implemented by transports that can remove a file they uploaded.
type Deleter interface {
	Delete(ctx context.Context, fileURL string) error
}

// Client performs a single upload attempt per call. There is no retry.
type Client struct {
	transport Transport
}

// NewClient wraps a transport.
func NewClient(t Transport) *Client {
	return &Client{transport: t}
}

// Upload sends the candidate and returns where it landed.
func (c *Client) Upload(ctx context.Context, cand *models.UploadCandidate, ownerID string) (*models.UploadResult, error) {
	resp, err := c.transport.Upload(ctx, cand, ownerID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}
	return FirstResult(resp)
}

// Delete removes an uploaded file when the transport supports it.
func (c *Client) Delete(ctx context.Context, fileURL string) error {
	d, ok := c.transport.(Deleter)
	if !ok {
		return fmt.Errorf("transport %T cannot delete files", c.transport)
	}
	return d.Delete(ctx, fileURL)
}

// FirstResult reads the first record of an upload reply.
// An empty reply or a record without a URL counts as a failed upload.
func FirstResult(resp []models.UploadResponse) (*models.UploadResult, error) {
	if len(resp) == 0 {
		return nil, fmt.Errorf("%w: empty upload response", ErrUploadFailed)
	}

	data := resp[0].ServerData
	if strings.TrimSpace(data.File.URL) == "" {
		return nil, fmt.Errorf("%w: upload response has no file url", ErrUploadFailed)
	}

	return &models.UploadResult{
		URL:      data.File.URL,
		FileName: data.File.Name,
		OwnerID:  data.UserID,
	}, nil
}
