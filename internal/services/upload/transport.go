package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Shimizu-Technology/sommaire-api/internal/models"
	"github.com/Shimizu-Technology/sommaire-api/internal/services/storage"
)

// LocalTransport is the built-in upload service: files go to local storage
// and are served back from PUBLIC_BASE_URL/files/<key>.
type LocalTransport struct {
	store   *storage.Local
	baseURL string
}

// NewLocalTransport creates a transport that writes into store.
func NewLocalTransport(store *storage.Local, publicBaseURL string) *LocalTransport {
	return &LocalTransport{store: store, baseURL: publicBaseURL}
}

// Upload stores the file under a fresh uuid key.
func (t *LocalTransport) Upload(ctx context.Context, c *models.UploadCandidate, ownerID string) ([]models.UploadResponse, error) {
	key := uuid.New().String() + ".pdf"
	if err := t.store.Save(ctx, key, bytes.NewReader(c.Content)); err != nil {
		return nil, err
	}

	return []models.UploadResponse{{
		ServerData: models.UploadServerData{
			UserID: ownerID,
			File: models.UploadFile{
				URL:  storage.PublicURL(t.baseURL, key),
				Name: c.FileName,
			},
		},
	}}, nil
}

// Delete removes a file this transport stored.
func (t *LocalTransport) Delete(ctx context.Context, fileURL string) error {
	key, ok := storage.KeyFromURL(t.baseURL, fileURL)
	if !ok {
		return fmt.Errorf("not a local file url: %s", fileURL)
	}
	return t.store.Delete(ctx, key)
}

// HTTPTransport posts files to an external upload service.
type HTTPTransport struct {
	endpoint   string
	token      string
	httpClient *http.Client
}

// NewHTTPTransport creates a transport for the service at endpoint.
func NewHTTPTransport(endpoint, token string) *HTTPTransport {
	return &HTTPTransport{
		endpoint: endpoint,
		token:    token,
		httpClient: &http.Client{
			Timeout: 2 * time.Minute, // Large PDFs on slow links
		},
	}
}

// Upload sends the file as multipart form data (field "files").
func (t *HTTPTransport) Upload(ctx context.Context, c *models.UploadCandidate, ownerID string) ([]models.UploadResponse, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename="%s"`, escapeQuotes(c.FileName)))
	header.Set("Content-Type", c.MIMEType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("failed to create form part: %w", err)
	}
	if _, err := part.Write(c.Content); err != nil {
		return nil, fmt.Errorf("failed to write form part: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("X-Owner-Id", ownerID)
	if t.token != "" {
		req.Header.Set("Authorization", "Bearer "+t.token)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("upload service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out []models.UploadResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to parse upload response: %w", err)
	}
	return out, nil
}

// Delete asks the upload service to remove a file (DELETE <endpoint>?url=...).
func (t *HTTPTransport) Delete(ctx context.Context, fileURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, t.endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	q := req.URL.Query()
	q.Set("url", fileURL)
	req.URL.RawQuery = q.Encode()
	if t.token != "" {
		req.Header.Set("Authorization", "Bearer "+t.token)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("delete request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("upload service returned %d on delete", resp.StatusCode)
	}
	return nil
}

func escapeQuotes(s string) string {
	return strings.NewReplacer("\\", "\\\\", `"`, "\\\"").Replace(s)
}
