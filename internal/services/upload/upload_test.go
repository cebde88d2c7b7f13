package upload

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Shimizu-Technology/sommaire-api/internal/models"
	"github.com/Shimizu-Technology/sommaire-api/internal/services/storage"
)

type transportFunc func(ctx context.Context, c *models.UploadCandidate, ownerID string) ([]models.UploadResponse, error)

func (f transportFunc) Upload(ctx context.Context, c *models.UploadCandidate, ownerID string) ([]models.UploadResponse, error) {
	return f(ctx, c, ownerID)
}

func reply(url, name, user string) []models.UploadResponse {
	return []models.UploadResponse{{ServerData: models.UploadServerData{
		UserID: user,
		File:   models.UploadFile{URL: url, Name: name},
	}}}
}

func TestClientUpload(t *testing.T) {
	tests := []struct {
		name      string
		transport transportFunc
		want      *models.UploadResult
		wantMsg   string
	}{
		{
			name: "first record is used",
			transport: func(context.Context, *models.UploadCandidate, string) ([]models.UploadResponse, error) {
				r := reply("https://files.test/a.pdf", "a.pdf", "user-1")
				r = append(r, reply("https://files.test/b.pdf", "b.pdf", "user-2")...)
				return r, nil
			},
			want: &models.UploadResult{URL: "https://files.test/a.pdf", FileName: "a.pdf", OwnerID: "user-1"},
		},
		{
			name: "transport error carries its message",
			transport: func(context.Context, *models.UploadCandidate, string) ([]models.UploadResponse, error) {
				return nil, errors.New("quota exceeded")
			},
			wantMsg: "quota exceeded",
		},
		{
			name: "empty reply",
			transport: func(context.Context, *models.UploadCandidate, string) ([]models.UploadResponse, error) {
				return nil, nil
			},
			wantMsg: "empty upload response",
		},
		{
			name: "missing url",
			transport: func(context.Context, *models.UploadCandidate, string) ([]models.UploadResponse, error) {
				return reply("", "a.pdf", "user-1"), nil
			},
			wantMsg: "no file url",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			counting := transportFunc(func(ctx context.Context, c *models.UploadCandidate, owner string) ([]models.UploadResponse, error) {
				calls++
				return tt.transport(ctx, c, owner)
			})

			got, err := NewClient(counting).Upload(context.Background(), &models.UploadCandidate{}, "user-1")
			if calls != 1 {
				t.Errorf("transport called %d times, want exactly 1", calls)
			}

			if tt.wantMsg != "" {
				if !errors.Is(err, ErrUploadFailed) {
					t.Fatalf("error = %v, want ErrUploadFailed", err)
				}
				if !strings.Contains(err.Error(), tt.wantMsg) {
					t.Errorf("error = %q, want it to contain %q", err, tt.wantMsg)
				}
				return
			}
			if err != nil {
				t.Fatalf("Upload() error = %v", err)
			}
			if *got != *tt.want {
				t.Errorf("Upload() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestLocalTransport(t *testing.T) {
	ctx := context.Background()
	store, err := storage.NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocal() error = %v", err)
	}
	lt := NewLocalTransport(store, "http://localhost:8080")
	client := NewClient(lt)

	res, err := client.Upload(ctx, &models.UploadCandidate{
		FileName: "report.pdf",
		Content:  []byte("%PDF-1.4 test"),
		MIMEType: "application/pdf",
	}, "user-42")
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	if !strings.HasPrefix(res.URL, "http://localhost:8080/files/") || !strings.HasSuffix(res.URL, ".pdf") {
		t.Errorf("URL = %q", res.URL)
	}
	if res.FileName != "report.pdf" || res.OwnerID != "user-42" {
		t.Errorf("result = %+v", res)
	}

	key, ok := storage.KeyFromURL("http://localhost:8080", res.URL)
	if !ok {
		t.Fatalf("KeyFromURL(%q) not ok", res.URL)
	}
	rc, err := store.Open(ctx, key)
	if err != nil {
		t.Fatalf("stored file missing: %v", err)
	}
	rc.Close()

	if err := client.Delete(ctx, res.URL); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Open(ctx, key); err == nil {
		t.Error("file should be gone after Delete()")
	}
}

func TestHTTPTransport(t *testing.T) {
	var gotOwner, gotAuth, gotName, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotOwner = r.Header.Get("X-Owner-Id")
		gotAuth = r.Header.Get("Authorization")

		file, header, err := r.FormFile("files")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer file.Close()
		raw, _ := io.ReadAll(file)
		gotName = header.Filename
		gotBody = string(raw)

		_ = json.NewEncoder(w).Encode(reply("https://cdn.test/f/xyz", header.Filename, gotOwner))
	}))
	defer srv.Close()

	client := NewClient(NewHTTPTransport(srv.URL, "secret-token"))
	res, err := client.Upload(context.Background(), &models.UploadCandidate{
		FileName: "paper.pdf",
		Content:  []byte("%PDF-1.7 data"),
		MIMEType: "application/pdf",
	}, "user-7")
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	if gotOwner != "user-7" || gotAuth != "Bearer secret-token" {
		t.Errorf("headers: owner=%q auth=%q", gotOwner, gotAuth)
	}
	if gotName != "paper.pdf" || gotBody != "%PDF-1.7 data" {
		t.Errorf("form: name=%q body=%q", gotName, gotBody)
	}
	want := models.UploadResult{URL: "https://cdn.test/f/xyz", FileName: "paper.pdf", OwnerID: "user-7"}
	if *res != want {
		t.Errorf("Upload() = %+v, want %+v", res, want)
	}
}

func TestHTTPTransportRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "file too large for plan", http.StatusPaymentRequired)
	}))
	defer srv.Close()

	_, err := NewClient(NewHTTPTransport(srv.URL, "")).Upload(context.Background(), &models.UploadCandidate{
		FileName: "x.pdf", MIMEType: "application/pdf",
	}, "user-1")

	if !errors.Is(err, ErrUploadFailed) {
		t.Fatalf("error = %v, want ErrUploadFailed", err)
	}
	if !strings.Contains(err.Error(), "file too large for plan") {
		t.Errorf("error should carry the service message, got %q", err)
	}
}
