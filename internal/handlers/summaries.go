// summaries.go handles the PDF summary endpoints: submitting a PDF, picking
// up a client-side upload, and reading back or deleting saved summaries.
package handlers

import (
	"context"
	"errors"
	"io"
	"log"
	"math"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Shimizu-Technology/sommaire-api/internal/database"
	"github.com/Shimizu-Technology/sommaire-api/internal/middleware"
	"github.com/Shimizu-Technology/sommaire-api/internal/models"
	"github.com/Shimizu-Technology/sommaire-api/internal/pipeline"
	"github.com/Shimizu-Technology/sommaire-api/internal/services/notify"
	"github.com/Shimizu-Technology/sommaire-api/internal/services/validate"
)

// multipartOverhead is the room left in the request body for form framing.
const multipartOverhead = 1 << 20

// CreateSummary runs the full pipeline on an uploaded PDF.
// POST /api/v1/summaries
//
// Accepts multipart file upload with field name "file". Processing is
// synchronous; the response carries the saved summary and the progress
// events the run emitted. Browsers (Accept: text/html) get a 303 to the
// summary page instead.
func (h *Handler) CreateSummary(c *gin.Context) {
	cand, ok := h.readCandidate(c)
	if !ok {
		return
	}

	events := &notify.Recorder{}
	run, err := h.Pipeline.Run(c.Request.Context(), cand, middleware.OwnerID(c), h.sinkFor(c, events))
	h.respondRun(c, run, err, events)
}

// GenerateSummary continues from a file the client already uploaded to the
// storage service. The body wraps that service's reply as
// {"upload_response": [...]}; only file URLs under FileURLPrefixes are fetched.
// POST /api/v1/summaries/generate
func (h *Handler) GenerateSummary(c *gin.Context) {
	var req models.GenerateSummaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", "upload_response is required")
		return
	}

	// Only the first record is used, and the server fetches its URL.
	if len(req.UploadResponse) > 0 && !h.fileURLAllowed(req.UploadResponse[0].ServerData.File.URL) {
		respondError(c, http.StatusBadRequest, "invalid_file_url", "File URL is not served by the upload service")
		return
	}

	// The summary belongs to whoever is authenticated, not to whatever
	// user ID the client put in the reply.
	owner := middleware.OwnerID(c)
	for i := range req.UploadResponse {
		req.UploadResponse[i].ServerData.UserID = owner
	}

	events := &notify.Recorder{}
	run, err := h.Pipeline.Generate(c.Request.Context(), req.UploadResponse, h.sinkFor(c, events))
	h.respondRun(c, run, err, events)
}

// StreamSummary is CreateSummary with progress pushed as Server-Sent Events.
// POST /api/v1/summaries/stream
//
// Each stage emits a "progress" event carrying a toast; the final event is
// "done" (with the saved summary) or "failed" (with the failure body).
func (h *Handler) StreamSummary(c *gin.Context) {
	cand, ok := h.readCandidate(c)
	if !ok {
		return
	}

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	// The pipeline calls notifiers on this goroutine, so writing straight
	// to the response is safe.
	events := &notify.Recorder{}
	push := notify.Func(func(_ context.Context, e notify.Event) error {
		c.SSEvent("progress", toastFor(e))
		c.Writer.Flush()
		return nil
	})
	run, err := h.Pipeline.Run(c.Request.Context(), cand, middleware.OwnerID(c), notify.Multi{push, h.sinkFor(c, events)})

	if err != nil {
		_, body := failureBody(run, err, events)
		c.SSEvent("failed", body)
	} else {
		c.SSEvent("done", successBody(run, events))
	}
	c.Writer.Flush()
}

// ListSummaries returns the current user's summaries, newest first.
// GET /api/v1/summaries?page=1&per_page=20&search=report
func (h *Handler) ListSummaries(c *gin.Context) {
	var params models.SummaryListParams
	if err := c.ShouldBindQuery(&params); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_params", "Invalid query parameters")
		return
	}
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PerPage < 1 || params.PerPage > 100 {
		params.PerPage = 20
	}
	params.UserID = middleware.OwnerID(c)

	summaries, total, err := h.DB.ListSummaries(c.Request.Context(), params)
	if err != nil {
		log.Printf("❌ Failed to list summaries: %v", err)
		respondError(c, http.StatusInternalServerError, "database_error", "Failed to list summaries")
		return
	}
	if summaries == nil {
		summaries = []models.Summary{}
	}

	c.JSON(http.StatusOK, models.PaginatedResponse[models.Summary]{
		Data:       summaries,
		Page:       params.Page,
		PerPage:    params.PerPage,
		TotalItems: total,
		TotalPages: int(math.Ceil(float64(total) / float64(params.PerPage))),
	})
}

// GetSummary returns one of the current user's summaries.
// GET /api/v1/summaries/:id
func (h *Handler) GetSummary(c *gin.Context) {
	s, ok := h.lookupSummary(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, s)
}

// DeleteSummary removes a summary and, when possible, its uploaded file.
// DELETE /api/v1/summaries/:id
func (h *Handler) DeleteSummary(c *gin.Context) {
	id, ok := parseID(c, "Summary")
	if !ok {
		return
	}

	fileURL, err := h.DB.DeleteSummary(c.Request.Context(), id, middleware.OwnerID(c))
	if err != nil {
		summaryLookupFailed(c, id, err)
		return
	}

	// The summary is gone either way; a leftover file is only logged.
	if h.Remover != nil && fileURL != "" {
		if err := h.Remover.Delete(c.Request.Context(), fileURL); err != nil {
			log.Printf("⚠️  Summary %s deleted but file %s was not: %v", id, fileURL, err)
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": "Summary deleted"})
}

// readCandidate builds the upload candidate from the "file" form field.
// An oversized body still becomes a candidate so the run reports it as a
// validation failure like any other.
func (h *Handler) readCandidate(c *gin.Context) (*models.UploadCandidate, bool) {
	limit := h.MaxUploadBytes
	if limit <= 0 {
		limit = validate.DefaultMaxBytes
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+multipartOverhead)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			size := c.Request.ContentLength
			if size <= limit {
				size = limit + 1
			}
			return &models.UploadCandidate{Size: size}, true
		}
		respondError(c, http.StatusBadRequest, "invalid_request", "No PDF file provided. Upload a file with the field name 'file'.")
		return nil, false
	}
	defer file.Close()

	cand := &models.UploadCandidate{
		FileName: header.Filename,
		Size:     header.Size,
		MIMEType: header.Header.Get("Content-Type"),
	}
	if header.Size > limit {
		// No point reading what validation will reject.
		return cand, true
	}

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(c, http.StatusBadRequest, "read_error", "Failed to read uploaded file")
		return nil, false
	}
	cand.Content = data
	return cand, true
}

// sinkFor collects events for the response and forwards them to the
// user's webhooks.
func (h *Handler) sinkFor(c *gin.Context, events *notify.Recorder) notify.Notifier {
	if h.Webhooks == nil {
		return events
	}
	return notify.Multi{events, h.Webhooks.Notifier(middleware.OwnerID(c))}
}

// respondRun writes the outcome of a finished run.
func (h *Handler) respondRun(c *gin.Context, run *pipeline.Run, err error, events *notify.Recorder) {
	if err != nil {
		status, body := failureBody(run, err, events)
		c.JSON(status, body)
		return
	}

	if wantsHTML(c) {
		c.Redirect(http.StatusSeeOther, run.RedirectPath())
		return
	}
	c.JSON(http.StatusCreated, successBody(run, events))
}

func successBody(run *pipeline.Run, events *notify.Recorder) models.CreateSummaryResponse {
	return models.CreateSummaryResponse{
		ID:          run.Summary.ID,
		RedirectURL: run.RedirectPath(),
		Summary:     *run.Summary,
		Events:      toasts(events),
	}
}

// failureBody maps a failed run to an HTTP status and body.
func failureBody(run *pipeline.Run, err error, events *notify.Recorder) (int, models.RunFailureResponse) {
	status, code := http.StatusInternalServerError, "run_failed"
	switch {
	case errors.Is(err, pipeline.ErrValidation):
		status, code = http.StatusBadRequest, "validation_failed"
	case errors.Is(err, pipeline.ErrUploadFailed):
		status, code = http.StatusBadGateway, "upload_failed"
	case errors.Is(err, pipeline.ErrExtractionFailed):
		status, code = http.StatusUnprocessableEntity, "extraction_failed"
	case errors.Is(err, pipeline.ErrSummaryGenerationFailed):
		status, code = http.StatusBadGateway, "summary_generation_failed"
	case errors.Is(err, pipeline.ErrPersistenceFailed):
		status, code = http.StatusInternalServerError, "persistence_failed"
	}

	stage := string(pipeline.StageOf(err))
	if stage == "" && run != nil {
		stage = string(run.State)
	}
	return status, models.RunFailureResponse{
		ErrorResponse: models.ErrorResponse{
			Error:   code,
			Message: pipeline.UserMessage(err),
			Code:    status,
		},
		Stage:  stage,
		Events: toasts(events),
	}
}

func toastFor(e notify.Event) models.Toast {
	return models.Toast{Kind: e.Kind, Title: e.Title, Description: e.Description}
}

func toasts(r *notify.Recorder) []models.Toast {
	out := []models.Toast{}
	for _, e := range r.Events() {
		out = append(out, toastFor(e))
	}
	return out
}

func wantsHTML(c *gin.Context) bool {
	accept := c.GetHeader("Accept")
	return strings.Contains(accept, "text/html") && !strings.Contains(accept, "application/json")
}

func (h *Handler) lookupSummary(c *gin.Context) (*models.Summary, bool) {
	id, ok := parseID(c, "Summary")
	if !ok {
		return nil, false
	}
	s, err := h.DB.GetSummary(c.Request.Context(), id, middleware.OwnerID(c))
	if err != nil {
		summaryLookupFailed(c, id, err)
		return nil, false
	}
	return s, true
}

func summaryLookupFailed(c *gin.Context, id string, err error) {
	if errors.Is(err, database.ErrNotFound) {
		respondError(c, http.StatusNotFound, "not_found", "Summary not found")
		return
	}
	log.Printf("❌ Summary %s: %v", id, err)
	respondError(c, http.StatusInternalServerError, "database_error", "Failed to load summary")
}

// parseID reads the :id path parameter. Malformed IDs can't exist, so
// they get the same 404 as missing ones.
func parseID(c *gin.Context, what string) (string, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusNotFound, "not_found", what+" not found")
		return "", false
	}
	return id.String(), true
}

// fileURLAllowed reports whether raw matches one of FileURLPrefixes by
// scheme, host and cleaned path prefix. Userinfo is never allowed.
func (h *Handler) fileURLAllowed(raw string) bool {
	if len(h.FileURLPrefixes) == 0 {
		return true
	}
	u, err := url.Parse(raw)
	if err != nil || u.User != nil || u.Host == "" {
		return false
	}
	p := path.Clean("/" + u.Path)

	for _, prefix := range h.FileURLPrefixes {
		allowed, err := url.Parse(prefix)
		if err != nil || allowed.Host == "" {
			continue
		}
		if !strings.EqualFold(u.Scheme, allowed.Scheme) || !strings.EqualFold(u.Host, allowed.Host) {
			continue
		}
		if strings.HasPrefix(p, allowed.Path) || allowed.Path == "" {
			return true
		}
	}
	return false
}
