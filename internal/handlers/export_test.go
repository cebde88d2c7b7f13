// export_test.go contains tests for the export format helpers.
//
// Go Pattern: Table-driven tests are the standard Go testing pattern.
// You define a slice of test cases (each with a name, inputs, and expected
// outputs), then loop through them.
package handlers

import (
	"strings"
	"testing"
	"time"

	"github.com/Shimizu-Technology/sommaire-api/internal/models"
)

// TestSanitizeFilename verifies filename sanitization.
func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"clean filename", "Quarterly Report", "Quarterly Report"},
		{"slashes and colons", "Part 1/2: The Beginning", "Part 1-2- The Beginning"},
		{"special characters", "What is Go? <A Guide>", "What is Go- -A Guide-"},
		{"empty string", "", ""},
		{"long title gets truncated", strings.Repeat("a", 200), strings.Repeat("a", 100)},
		{"multi-byte title truncated by rune", strings.Repeat("é", 150), strings.Repeat("é", 100)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeFilename(tt.input); got != tt.expected {
				t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestPlainText(t *testing.T) {
	md := "# 📊 Quarterly Report\n• **Revenue** grew\n  ## Details\nplain line"
	want := "📊 Quarterly Report\n- Revenue grew\nDetails\nplain line"
	if got := plainText(md); got != want {
		t.Errorf("plainText() = %q, want %q", got, want)
	}
}

func TestRenderMarkdown(t *testing.T) {
	s := &models.Summary{
		FileName:    "report.pdf",
		SummaryText: "# Title\n• point",
		WordCount:   1200,
		ModelUsed:   "gpt-4o-mini",
		CreatedAt:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	out := renderMarkdown(s)
	for _, want := range []string{"| Source | report.pdf |", "| Words in source | 1200 |", "2026-01-02 03:04:05 UTC", "# Title\n• point\n"} {
		if !strings.Contains(out, want) {
			t.Errorf("renderMarkdown() missing %q in:\n%s", want, out)
		}
	}
}

func TestReadingMinutes(t *testing.T) {
	tests := []struct {
		words int
		want  int
	}{
		{0, 1},
		{199, 1},
		{201, 2},
		{1000, 5},
	}
	for _, tt := range tests {
		if got := readingMinutes(strings.Repeat("w ", tt.words)); got != tt.want {
			t.Errorf("readingMinutes(%d words) = %d, want %d", tt.words, got, tt.want)
		}
	}
}
