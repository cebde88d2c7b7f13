// uploads.go exposes the upload service on its own, for clients that upload
// first and call /summaries/generate with the reply.
package handlers

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Shimizu-Technology/sommaire-api/internal/middleware"
	"github.com/Shimizu-Technology/sommaire-api/internal/models"
	"github.com/Shimizu-Technology/sommaire-api/internal/services/validate"
)

// UploadTransport stores one file and answers in the upload service's shape.
type UploadTransport interface {
	Upload(ctx context.Context, c *models.UploadCandidate, ownerID string) ([]models.UploadResponse, error)
}

// UploadFile validates and stores a PDF without summarizing it.
// POST /api/v1/uploads
//
// Response: [{"serverData": {"userId": "...", "file": {"url": "...", "name": "..."}}}]
func (h *Handler) UploadFile(c *gin.Context) {
	if h.Uploads == nil {
		respondError(c, http.StatusNotFound, "not_found", "Uploads are not enabled")
		return
	}

	cand, ok := h.readCandidate(c)
	if !ok {
		return
	}

	if _, err := validate.New(h.MaxUploadBytes).Validate(cand); err != nil {
		respondError(c, http.StatusBadRequest, "validation_failed", validate.Message(err))
		return
	}

	resp, err := h.Uploads.Upload(c.Request.Context(), cand, middleware.OwnerID(c))
	if err != nil {
		log.Printf("❌ Upload of %s failed: %v", cand.FileName, err)
		respondError(c, http.StatusBadGateway, "upload_failed", "File upload failed")
		return
	}

	c.JSON(http.StatusOK, resp)
}
