// webhooks.go handles webhook management HTTP endpoints.
package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Shimizu-Technology/sommaire-api/internal/database"
	"github.com/Shimizu-Technology/sommaire-api/internal/middleware"
	"github.com/Shimizu-Technology/sommaire-api/internal/models"
	webhookservice "github.com/Shimizu-Technology/sommaire-api/internal/services/webhook"
)

// CreateWebhook registers a new webhook endpoint for the current user.
// POST /api/v1/webhooks
func (h *Handler) CreateWebhook(c *gin.Context) {
	var req models.CreateWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", "URL and at least one event are required")
		return
	}

	for _, event := range req.Events {
		if !models.ValidWebhookEvents[event] {
			respondError(c, http.StatusBadRequest, "invalid_event", "Invalid event type: "+event)
			return
		}
	}

	secret, err := webhookservice.GenerateSecret()
	if err != nil {
		log.Printf("❌ Failed to generate webhook secret: %v", err)
		respondError(c, http.StatusInternalServerError, "generation_error", "Failed to generate webhook secret")
		return
	}

	wh := &models.Webhook{
		UserID: middleware.OwnerID(c),
		URL:    req.URL,
		Events: req.Events,
		Secret: secret,
		Active: true,
	}

	if err := h.DB.CreateWebhook(c.Request.Context(), wh); err != nil {
		log.Printf("❌ Failed to create webhook: %v", err)
		respondError(c, http.StatusInternalServerError, "database_error", "Failed to create webhook")
		return
	}

	// Return webhook with secret (only shown once, like API keys)
	c.JSON(http.StatusCreated, gin.H{
		"id":         wh.ID,
		"url":        wh.URL,
		"events":     wh.Events,
		"secret":     secret,
		"active":     wh.Active,
		"created_at": wh.CreatedAt,
	})
}

// ListWebhooks returns the current user's webhooks.
// GET /api/v1/webhooks
func (h *Handler) ListWebhooks(c *gin.Context) {
	webhooks, err := h.DB.ListWebhooks(c.Request.Context(), middleware.OwnerID(c))
	if err != nil {
		respondError(c, http.StatusInternalServerError, "database_error", "Failed to list webhooks")
		return
	}

	if webhooks == nil {
		webhooks = []models.Webhook{}
	}
	c.JSON(http.StatusOK, webhooks)
}

// GetWebhook returns one of the current user's webhooks. The secret is never
// shown again after creation.
// GET /api/v1/webhooks/:id
func (h *Handler) GetWebhook(c *gin.Context) {
	id, ok := parseID(c, "Webhook")
	if !ok {
		return
	}

	wh, err := h.DB.GetWebhook(c.Request.Context(), id, middleware.OwnerID(c))
	if err != nil {
		webhookLookupFailed(c, id, err)
		return
	}
	c.JSON(http.StatusOK, wh)
}

// UpdateWebhook toggles a webhook's active state.
// PATCH /api/v1/webhooks/:id
func (h *Handler) UpdateWebhook(c *gin.Context) {
	id, ok := parseID(c, "Webhook")
	if !ok {
		return
	}

	var req models.UpdateWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Active == nil {
		respondError(c, http.StatusBadRequest, "invalid_request", "active field is required (true/false)")
		return
	}

	if err := h.DB.UpdateWebhookActive(c.Request.Context(), id, middleware.OwnerID(c), *req.Active); err != nil {
		webhookLookupFailed(c, id, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Webhook updated", "active": *req.Active})
}

// DeleteWebhook removes a webhook.
// DELETE /api/v1/webhooks/:id
func (h *Handler) DeleteWebhook(c *gin.Context) {
	id, ok := parseID(c, "Webhook")
	if !ok {
		return
	}

	if err := h.DB.DeleteWebhook(c.Request.Context(), id, middleware.OwnerID(c)); err != nil {
		webhookLookupFailed(c, id, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Webhook deleted"})
}

// ListWebhookDeliveries returns recent delivery attempts for one webhook.
// GET /api/v1/webhooks/:id/deliveries
func (h *Handler) ListWebhookDeliveries(c *gin.Context) {
	id, ok := parseID(c, "Webhook")
	if !ok {
		return
	}

	deliveries, err := h.DB.ListWebhookDeliveries(c.Request.Context(), id, middleware.OwnerID(c), 50)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "database_error", "Failed to list deliveries")
		return
	}

	if deliveries == nil {
		deliveries = []models.WebhookDelivery{}
	}
	c.JSON(http.StatusOK, deliveries)
}

func webhookLookupFailed(c *gin.Context, id string, err error) {
	if errors.Is(err, database.ErrNotFound) {
		respondError(c, http.StatusNotFound, "not_found", "Webhook not found")
		return
	}
	log.Printf("❌ Webhook %s: %v", id, err)
	respondError(c, http.StatusInternalServerError, "database_error", "Webhook lookup failed")
}
