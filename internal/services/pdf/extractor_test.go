package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Shimizu-Technology/sommaire-api/internal/services/storage"
)

// buildPDF writes a one-page PDF whose content stream shows text.
// Offsets in the xref table are computed as the objects are written.
func buildPDF(text string) []byte {
	content := fmt.Sprintf("BT /F1 12 Tf 72 712 Td (%s) Tj ET", text)
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func TestExtract(t *testing.T) {
	result, err := Extract(buildPDF("Quarterly revenue grew"))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if result.PageCount != 1 {
		t.Errorf("PageCount = %d, want 1", result.PageCount)
	}
	if !strings.Contains(result.Text, "Quarterly") {
		t.Errorf("Text = %q, want it to contain %q", result.Text, "Quarterly")
	}
	if result.WordCount == 0 {
		t.Error("WordCount should be positive")
	}
}

func TestExtractRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"not a pdf", []byte("<html>hello</html>")},
		{"truncated pdf", []byte("%PDF-1.4\n1 0 obj\n<<")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Extract(tt.data)
			if !errors.Is(err, ErrExtractionFailed) {
				t.Fatalf("Extract() error = %v, want ErrExtractionFailed", err)
			}
		})
	}
}

func TestValidatePDF(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want bool
	}{
		{"pdf header", []byte("%PDF-1.7 rest"), true},
		{"too short", []byte("%PDF"), false},
		{"png", []byte("\x89PNG\r\n"), false},
		{"html", []byte("<html><body>%PDF-1.4</body></html>"), false},
		{"empty", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidatePDF(tt.data); got != tt.want {
				t.Errorf("ValidatePDF() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestURLExtractorHTTP(t *testing.T) {
	doc := buildPDF("Remote document text")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/doc.pdf":
			w.Header().Set("Content-Type", "application/pdf")
			w.Write(doc)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	e := NewURLExtractor(5*time.Second, 1<<20, nil, "")

	text, err := e.ExtractURL(context.Background(), srv.URL+"/doc.pdf")
	if err != nil {
		t.Fatalf("ExtractURL() error = %v", err)
	}
	if !strings.Contains(text, "Remote") {
		t.Errorf("text = %q", text)
	}

	if _, err := e.ExtractURL(context.Background(), srv.URL+"/missing.pdf"); !errors.Is(err, ErrExtractionFailed) {
		t.Errorf("missing document: error = %v, want ErrExtractionFailed", err)
	}
}

func TestURLExtractorSizeCap(t *testing.T) {
	doc := buildPDF("This document is larger than the cap")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(doc)
	}))
	defer srv.Close()

	e := NewURLExtractor(5*time.Second, 64, nil, "")
	if _, err := e.ExtractURL(context.Background(), srv.URL); !errors.Is(err, ErrExtractionFailed) {
		t.Fatalf("error = %v, want ErrExtractionFailed", err)
	}
}

func TestURLExtractorLocalFiles(t *testing.T) {
	ctx := context.Background()
	store, err := storage.NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocal() error = %v", err)
	}
	if err := store.Save(ctx, "local.pdf", bytes.NewReader(buildPDF("Stored locally"))); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	// The base URL is unreachable, so success proves the storage shortcut.
	e := NewURLExtractor(time.Second, 1<<20, store, "http://127.0.0.1:1")
	text, err := e.ExtractURL(ctx, storage.PublicURL("http://127.0.0.1:1", "local.pdf"))
	if err != nil {
		t.Fatalf("ExtractURL() error = %v", err)
	}
	if !strings.Contains(text, "Stored") {
		t.Errorf("text = %q", text)
	}
}
