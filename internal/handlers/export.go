// export.go handles summary export in multiple formats.
//
// Supported formats:
//   - md   — The summary's Markdown with a metadata table
//   - txt  — The summary as plain text
//   - json — Full JSON with all metadata
//
// Go Pattern: Each export format is its own function. This makes it easy
// to add new formats later — just add a case to the switch and a new
// formatter function.
package handlers

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Shimizu-Technology/sommaire-api/internal/models"
)

// ExportSummary exports a summary in the requested format.
// GET /api/v1/summaries/:id/export?format=md|txt|json
func (h *Handler) ExportSummary(c *gin.Context) {
	format := c.DefaultQuery("format", "md")

	// Validate format before doing any database work
	validFormats := map[string]bool{"md": true, "txt": true, "json": true}
	if !validFormats[format] {
		respondError(c, http.StatusBadRequest, "invalid_format", "Supported formats: md, txt, json")
		return
	}

	s, ok := h.lookupSummary(c)
	if !ok {
		return
	}

	filename := sanitizeFilename(s.Title)
	if filename == "" {
		filename = "summary-" + s.ID
	}

	switch format {
	case "md":
		exportMarkdown(c, s, filename)
	case "txt":
		exportTXT(c, s, filename)
	case "json":
		exportJSON(c, s, filename)
	}
}

// exportMarkdown returns the summary with a metadata header.
func exportMarkdown(c *gin.Context, s *models.Summary, filename string) {
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.md"`, filename))
	c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(renderMarkdown(s)))
}

func renderMarkdown(s *models.Summary) string {
	var sb strings.Builder

	sb.WriteString("| Field | Value |\n")
	sb.WriteString("|-------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Source | %s |\n", s.FileName))
	sb.WriteString(fmt.Sprintf("| Words in source | %d |\n", s.WordCount))
	sb.WriteString(fmt.Sprintf("| Model | %s |\n", s.ModelUsed))
	sb.WriteString(fmt.Sprintf("| Created | %s |\n", s.CreatedAt.Format("2006-01-02 15:04:05 MST")))
	sb.WriteString("\n---\n\n")
	sb.WriteString(s.SummaryText)
	sb.WriteString("\n")
	return sb.String()
}

// exportTXT strips the Markdown markers that read badly as plain text.
func exportTXT(c *gin.Context, s *models.Summary, filename string) {
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.txt"`, filename))
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(plainText(s.SummaryText)))
}

func plainText(md string) string {
	lines := strings.Split(md, "\n")
	for i, line := range lines {
		trimmed := strings.TrimLeft(line, " ")
		switch {
		case strings.HasPrefix(trimmed, "#"):
			lines[i] = strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
		case strings.HasPrefix(trimmed, "• "):
			lines[i] = "- " + strings.TrimPrefix(trimmed, "• ")
		}
		lines[i] = strings.ReplaceAll(lines[i], "**", "")
	}
	return strings.Join(lines, "\n")
}

// exportJSON returns the full summary data as JSON.
func exportJSON(c *gin.Context, s *models.Summary, filename string) {
	exportData := map[string]interface{}{
		"id":           s.ID,
		"title":        s.Title,
		"file_name":    s.FileName,
		"file_url":     s.FileURL,
		"summary_text": s.SummaryText,
		"word_count":   s.WordCount,
		"reading_time": fmt.Sprintf("%d min", readingMinutes(s.SummaryText)),
		"backend":      s.Backend,
		"model_used":   s.ModelUsed,
		"status":       s.Status,
		"created_at":   s.CreatedAt,
		"updated_at":   s.UpdatedAt,
	}

	jsonBytes, err := json.MarshalIndent(exportData, "", "  ")
	if err != nil {
		respondError(c, http.StatusInternalServerError, "export_error", "Failed to generate JSON export")
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.json"`, filename))
	c.Data(http.StatusOK, "application/json; charset=utf-8", jsonBytes)
}

// readingMinutes estimates reading time at 200 words per minute, minimum 1.
func readingMinutes(text string) int {
	m := int(math.Ceil(float64(len(strings.Fields(text))) / 200.0))
	if m < 1 {
		return 1
	}
	return m
}

// sanitizeFilename removes characters that aren't safe for filenames.
// Go Pattern: Keep it simple — replace unsafe characters with hyphens
// and trim the result. This is just for the Content-Disposition header.
func sanitizeFilename(name string) string {
	replacer := strings.NewReplacer(
		"/", "-", "\\", "-", ":", "-", "*", "-",
		"?", "-", "\"", "-", "<", "-", ">", "-",
		"|", "-", "\n", " ", "\r", "",
	)
	name = replacer.Replace(name)

	// Collapse multiple hyphens/spaces
	for strings.Contains(name, "  ") {
		name = strings.ReplaceAll(name, "  ", " ")
	}
	for strings.Contains(name, "--") {
		name = strings.ReplaceAll(name, "--", "-")
	}

	name = strings.TrimSpace(name)

	// Limit length (in runes, so multi-byte titles aren't cut mid-character)
	if r := []rune(name); len(r) > 100 {
		name = strings.TrimSpace(string(r[:100]))
	}

	return name
}
