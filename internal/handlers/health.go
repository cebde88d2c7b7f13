// Package handlers contains HTTP handler functions for the API.
//
// Go Pattern: Handlers in Gin receive a *gin.Context which provides:
// - Request data (params, query, body, headers)
// - Response methods (JSON, String, Status)
// - Middleware data (c.Get/c.Set)
//
// Go handlers are plain functions. We group related handlers into a struct
// (Handler) that holds shared dependencies.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Shimizu-Technology/sommaire-api/internal/models"
	"github.com/Shimizu-Technology/sommaire-api/internal/pipeline"
	"github.com/Shimizu-Technology/sommaire-api/internal/services/notify"
	"github.com/Shimizu-Technology/sommaire-api/internal/services/storage"
)

// Store is everything the handlers read and write in the database.
// *database.DB satisfies it.
type Store interface {
	HealthCheck(ctx context.Context) error

	CreateUser(ctx context.Context, u *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	CreateAPIKey(ctx context.Context, key *models.APIKey) error
	ListAPIKeys(ctx context.Context, userID string) ([]models.APIKey, error)
	RevokeAPIKey(ctx context.Context, id, userID string) error

	GetSummary(ctx context.Context, id, userID string) (*models.Summary, error)
	ListSummaries(ctx context.Context, params models.SummaryListParams) ([]models.Summary, int, error)
	DeleteSummary(ctx context.Context, id, userID string) (string, error)

	CreateWebhook(ctx context.Context, w *models.Webhook) error
	GetWebhook(ctx context.Context, id, userID string) (*models.Webhook, error)
	ListWebhooks(ctx context.Context, userID string) ([]models.Webhook, error)
	UpdateWebhookActive(ctx context.Context, id, userID string, active bool) error
	DeleteWebhook(ctx context.Context, id, userID string) error
	ListWebhookDeliveries(ctx context.Context, webhookID, userID string, limit int) ([]models.WebhookDelivery, error)
}

// Runner starts summary runs. *pipeline.Orchestrator satisfies it.
type Runner interface {
	Run(ctx context.Context, c *models.UploadCandidate, ownerID string, n notify.Notifier) (*pipeline.Run, error)
	Generate(ctx context.Context, resp []models.UploadResponse, n notify.Notifier) (*pipeline.Run, error)
}

// FileRemover deletes an uploaded file by its public URL.
type FileRemover interface {
	Delete(ctx context.Context, fileURL string) error
}

// WebhookNotifier builds a per-user sink for run events.
type WebhookNotifier interface {
	Notifier(userID string) notify.Notifier
}

// Handler holds shared dependencies for all HTTP handlers.
// Go Pattern: Dependency injection via struct fields. Instead of global
// variables or service locators, we pass dependencies explicitly.
// This makes testing easy — just create a Handler with fake dependencies.
type Handler struct {
	DB               Store
	Pipeline         Runner
	Uploads          UploadTransport
	Files            *storage.Local  // nil when uploads go to an external service
	Remover          FileRemover     // may be nil; deleting a summary then keeps its file
	Webhooks         WebhookNotifier // may be nil
	JWTSecret        string
	DefaultRateLimit int
	MaxUploadBytes   int64
	FileURLPrefixes  []string // where /generate may fetch from; empty allows any URL
	Backend          string
	Version          string
}

// HealthCheck returns the API health status.
// GET /api/v1/health
func (h *Handler) HealthCheck(c *gin.Context) {
	// Check database connectivity
	dbStatus := "healthy"
	if err := h.DB.HealthCheck(c.Request.Context()); err != nil {
		dbStatus = "unhealthy: " + err.Error()
	}

	c.JSON(http.StatusOK, models.HealthResponse{
		Status:   "ok",
		Version:  h.Version,
		Database: dbStatus,
		Backend:  h.Backend,
	})
}

// respondError writes the standard error body.
func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, models.ErrorResponse{
		Error:   code,
		Message: message,
		Code:    status,
	})
}
