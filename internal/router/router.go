// Package router sets up all HTTP routes for the API.
package router

import (
	"github.com/gin-gonic/gin"

	"github.com/Shimizu-Technology/sommaire-api/internal/handlers"
	"github.com/Shimizu-Technology/sommaire-api/internal/metrics"
	"github.com/Shimizu-Technology/sommaire-api/internal/middleware"
)

// Options carries what the routes need beyond the handler itself.
type Options struct {
	Auth             middleware.AuthStore
	Docs             *handlers.Docs
	Metrics          *metrics.Metrics // nil disables /metrics and request metrics
	JWTSecret        string
	AllowedOrigins   []string
	DefaultRateLimit int
	OwnerUserID      string
}

// Setup creates and configures the Gin router with all routes.
func Setup(h *handlers.Handler, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	if opts.Metrics != nil {
		r.Use(opts.Metrics.Middleware())
	}
	r.Use(middleware.CORS(opts.AllowedOrigins))

	rateLimiter := middleware.NewRateLimiter(opts.DefaultRateLimit, opts.OwnerUserID)

	// --- Public Routes (no auth required) ---
	r.GET("/api/v1/health", h.HealthCheck)
	if opts.Metrics != nil {
		r.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))
	}

	// Uploaded files and the page a browser lands on after a successful upload
	r.GET("/files/:key", h.ServeFile)
	r.GET("/summaries/:id", h.SummaryPage)

	// API Documentation
	if opts.Docs != nil {
		r.GET("/api/docs", opts.Docs.ServeSwaggerUI)
		r.GET("/api/docs/openapi.yaml", opts.Docs.ServeYAML)
		r.GET("/api/docs/openapi.json", opts.Docs.ServeJSON)
	}

	// --- Auth Routes — public ---
	r.POST("/api/v1/auth/register", h.Register)
	r.POST("/api/v1/auth/login", h.Login)

	// --- JWT-only routes: account management ---
	jwtProtected := r.Group("/api/v1")
	jwtProtected.Use(middleware.JWTAuth(opts.Auth, opts.JWTSecret))
	{
		jwtProtected.GET("/auth/me", h.GetMe)
		jwtProtected.POST("/auth/refresh", h.RefreshToken)

		jwtProtected.POST("/keys", h.CreateAPIKey)
		jwtProtected.GET("/keys", h.ListAPIKeys)
		jwtProtected.DELETE("/keys/:id", h.RevokeAPIKey)
	}

	// --- Protected Routes (API key OR JWT) ---
	protected := r.Group("/api/v1")
	protected.Use(middleware.DualAuth(opts.Auth, opts.JWTSecret))
	protected.Use(rateLimiter.RateLimit())
	{
		protected.POST("/uploads", h.UploadFile)

		// Summary endpoints; static segments before :id
		protected.POST("/summaries", h.CreateSummary)
		protected.POST("/summaries/stream", h.StreamSummary)
		protected.POST("/summaries/generate", h.GenerateSummary)
		protected.GET("/summaries", h.ListSummaries)
		protected.GET("/summaries/:id", h.GetSummary)
		protected.GET("/summaries/:id/export", h.ExportSummary)
		protected.DELETE("/summaries/:id", h.DeleteSummary)

		// Webhook management
		protected.POST("/webhooks", h.CreateWebhook)
		protected.GET("/webhooks", h.ListWebhooks)
		protected.GET("/webhooks/:id", h.GetWebhook)
		protected.PATCH("/webhooks/:id", h.UpdateWebhook)
		protected.DELETE("/webhooks/:id", h.DeleteWebhook)
		protected.GET("/webhooks/:id/deliveries", h.ListWebhookDeliveries)
	}

	return r
}
