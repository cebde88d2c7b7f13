// files.go serves PDFs held by the built-in upload service.
package handlers

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
)

// ServeFile streams a stored PDF.
// GET /files/:key
//
// File URLs are handed to the extractor and to external services, so this
// route is public; keys are random UUIDs.
func (h *Handler) ServeFile(c *gin.Context) {
	if h.Files == nil {
		respondError(c, http.StatusNotFound, "not_found", "File not found")
		return
	}

	p, err := h.Files.Path(c.Param("key"))
	if err != nil {
		respondError(c, http.StatusNotFound, "not_found", "File not found")
		return
	}
	if _, err := os.Stat(p); err != nil {
		respondError(c, http.StatusNotFound, "not_found", "File not found")
		return
	}

	c.Header("Content-Type", "application/pdf")
	c.Header("Cache-Control", "private, max-age=3600")
	c.File(p)
}
