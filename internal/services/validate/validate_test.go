package validate

import (
	"errors"
	"testing"

	"github.com/Shimizu-Technology/sommaire-api/internal/models"
)

var minimalPDF = []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\ntrailer\n<<>>\n%%EOF\n")

func TestValidate(t *testing.T) {
	v := New(0)

	tests := []struct {
		name      string
		candidate models.UploadCandidate
		wantErr   error
	}{
		{
			name:      "2MB pdf passes",
			candidate: models.UploadCandidate{Size: 2 << 20, MIMEType: "application/pdf"},
		},
		{
			name:      "exactly 20MB passes",
			candidate: models.UploadCandidate{Size: 20 << 20, MIMEType: "application/pdf"},
		},
		{
			name:      "pdf with parameters passes",
			candidate: models.UploadCandidate{Size: 1024, MIMEType: "application/pdf; charset=binary"},
		},
		{
			name:      "25MB pdf is too large",
			candidate: models.UploadCandidate{Size: 25 << 20, MIMEType: "application/pdf"},
			wantErr:   ErrSizeExceeded,
		},
		{
			name:      "size is checked before type",
			candidate: models.UploadCandidate{Size: 25 << 20, MIMEType: "image/png"},
			wantErr:   ErrSizeExceeded,
		},
		{
			name:      "png is rejected",
			candidate: models.UploadCandidate{Size: 1024, MIMEType: "image/png"},
			wantErr:   ErrInvalidType,
		},
		{
			name:      "text is rejected",
			candidate: models.UploadCandidate{Size: 10, MIMEType: "text/plain"},
			wantErr:   ErrInvalidType,
		},
		{
			name:      "missing type and content is rejected",
			candidate: models.UploadCandidate{Size: 10},
			wantErr:   ErrInvalidType,
		},
		{
			name: "octet-stream pdf content is rejected",
			candidate: models.UploadCandidate{
				Size: int64(len(minimalPDF)), MIMEType: "application/octet-stream", Content: minimalPDF,
			},
			wantErr: ErrInvalidType,
		},
		{
			name: "empty type with pdf content is rejected",
			candidate: models.UploadCandidate{
				Size: int64(len(minimalPDF)), Content: minimalPDF,
			},
			wantErr: ErrInvalidType,
		},
		{
			name:      "upper-case type is rejected",
			candidate: models.UploadCandidate{Size: 1024, MIMEType: "APPLICATION/PDF"},
			wantErr:   ErrInvalidType,
		},
		{
			name:      "leading space is rejected",
			candidate: models.UploadCandidate{Size: 1024, MIMEType: " application/pdf"},
			wantErr:   ErrInvalidType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := tt.candidate
			got, err := v.Validate(&c)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Validate() error = %v, want %v", err, tt.wantErr)
				}
				if !errors.Is(err, ErrValidation) {
					t.Errorf("error %v should be a validation error", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate() error = %v", err)
			}
			if got != &c {
				t.Error("Validate() should return the candidate unchanged")
			}
		})
	}
}

// Any size over the limit is rejected whatever the declared type.
func TestValidateSizeWinsForAllTypes(t *testing.T) {
	v := New(0)
	types := []string{"application/pdf", "image/jpeg", "", "text/html", "application/zip"}
	sizes := []int64{DefaultMaxBytes + 1, 21 << 20, 100 << 20}

	for _, mt := range types {
		for _, size := range sizes {
			_, err := v.Validate(&models.UploadCandidate{Size: size, MIMEType: mt})
			if !errors.Is(err, ErrSizeExceeded) {
				t.Errorf("size=%d type=%q: error = %v, want ErrSizeExceeded", size, mt, err)
			}
		}
	}
}

func TestMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{ErrSizeExceeded, "File size must be less than 20MB"},
		{&SizeError{Limit: DefaultMaxBytes}, "File size must be less than 20MB"},
		{&SizeError{Limit: 5 << 20}, "File size must be less than 5MB"},
		{&SizeError{Limit: 1000}, "File size must be less than 1000 bytes"},
		{ErrInvalidType, "File must be a PDF"},
		{ErrValidation, "Invalid File"},
	}
	for _, tt := range tests {
		if got := Message(tt.err); got != tt.want {
			t.Errorf("Message(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestSizeErrorFollowsConfiguredLimit(t *testing.T) {
	v := New(5 << 20)
	_, err := v.Validate(&models.UploadCandidate{Size: 6 << 20, MIMEType: "application/pdf"})
	if !errors.Is(err, ErrSizeExceeded) || !errors.Is(err, ErrValidation) {
		t.Fatalf("error = %v, want ErrSizeExceeded", err)
	}
	if got := Message(err); got != "File size must be less than 5MB" {
		t.Errorf("Message() = %q", got)
	}
}
