// Package models defines the data structures used throughout the application.
//
// Go Pattern: Models are plain structs with JSON tags for serialization.
// The `db` tags work with sqlx for database column mapping; the database
// package owns all persistence.
package models

import (
	"time"
)

// SummaryStatus represents the lifecycle state of a stored summary.
type SummaryStatus string

const (
	SummaryCompleted SummaryStatus = "completed"
)

// UploadCandidate is a file the user picked, before anything is sent anywhere.
// It is never persisted.
type UploadCandidate struct {
	FileName string
	Content  []byte
	Size     int64  // Declared size in bytes
	MIMEType string // Declared MIME type (from the multipart header)
}

// UploadResponse is one element of the upload service's reply.
// The wire shape is [{ "serverData": { "userId": ..., "file": { "url": ..., "name": ... } } }].
type UploadResponse struct {
	ServerData UploadServerData `json:"serverData"`
}

// UploadServerData is the server-side half of an upload reply.
type UploadServerData struct {
	UserID string     `json:"userId"`
	File   UploadFile `json:"file"`
}

// UploadFile describes where the uploaded file now lives.
type UploadFile struct {
	URL  string `json:"url"`
	Name string `json:"name"`
}

// UploadResult is what the pipeline keeps from an upload: where the file is and who owns it.
type UploadResult struct {
	URL      string `json:"url"`
	FileName string `json:"file_name"`
	OwnerID  string `json:"owner_id"`
}

// Summary is a persisted PDF summary.
type Summary struct {
	ID          string        `json:"id" db:"id"`
	UserID      string        `json:"user_id" db:"user_id"`
	FileURL     string        `json:"file_url" db:"original_file_url"`
	FileName    string        `json:"file_name" db:"file_name"`
	Title       string        `json:"title" db:"title"`
	SummaryText string        `json:"summary_text" db:"summary_text"`
	Status      SummaryStatus `json:"status" db:"status"`
	Backend     string        `json:"backend" db:"backend"`
	ModelUsed   string        `json:"model_used" db:"model_used"`
	WordCount   int           `json:"word_count" db:"word_count"` // Words in the source text
	CreatedAt   time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at" db:"updated_at"`
}

// User represents a registered account. Summaries and API keys belong to users.
type User struct {
	ID           string    `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Name         string    `json:"name" db:"name"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// APIKey represents an API key for authentication.
// Note: We store the HASH of the key, never the raw key itself.
type APIKey struct {
	ID         string     `json:"id" db:"id"`
	UserID     string     `json:"user_id" db:"user_id"`
	KeyHash    string     `json:"-" db:"key_hash"`            // "-" means never serialize to JSON
	KeyPrefix  string     `json:"key_prefix" db:"key_prefix"` // First 8 chars for identification
	Name       string     `json:"name" db:"name"`
	Active     bool       `json:"active" db:"active"`
	RateLimit  int        `json:"rate_limit" db:"rate_limit"` // Requests per hour
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty" db:"last_used_at"` // Pointer = nullable
}

// Webhook is a user-registered endpoint that receives summary events.
type Webhook struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	URL       string    `json:"url" db:"url"`
	Events    []string  `json:"events" db:"events"`
	Secret    string    `json:"-" db:"secret"`
	Active    bool      `json:"active" db:"active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// WebhookDelivery records one delivery attempt sequence for a webhook.
type WebhookDelivery struct {
	ID           string     `json:"id" db:"id"`
	WebhookID    string     `json:"webhook_id" db:"webhook_id"`
	Event        string     `json:"event" db:"event"`
	Payload      string     `json:"payload" db:"payload"`
	Status       string     `json:"status" db:"status"` // "pending", "success", "failed"
	Attempts     int        `json:"attempts" db:"attempts"`
	LastError    string     `json:"last_error,omitempty" db:"last_error"`
	ResponseCode int        `json:"response_code,omitempty" db:"response_code"`
	DeliveredAt  *time.Time `json:"delivered_at,omitempty" db:"delivered_at"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
}

// Webhook event names.
const (
	EventSummaryCompleted = "summary.completed"
	EventSummaryFailed    = "summary.failed"
)

// ValidWebhookEvents lists the events a webhook may subscribe to.
var ValidWebhookEvents = map[string]bool{
	EventSummaryCompleted: true,
	EventSummaryFailed:    true,
}

// WebhookPayload is the JSON body POSTed to webhook endpoints.
type WebhookPayload struct {
	Event     string      `json:"event"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// --- Request/Response DTOs (Data Transfer Objects) ---
// Go Pattern: Separate structs for API input/output vs database models.

// RegisterRequest is the JSON body for POST /api/v1/auth/register.
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Name     string `json:"name" binding:"required"`
}

// LoginRequest is the JSON body for POST /api/v1/auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse is returned after a successful register or login.
type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// CreateAPIKeyRequest is the JSON body for POST /api/v1/keys.
type CreateAPIKeyRequest struct {
	Name      string `json:"name" binding:"required"`
	RateLimit int    `json:"rate_limit,omitempty"` // 0 = use default
}

// CreateAPIKeyResponse includes the raw key — shown only once at creation time.
type CreateAPIKeyResponse struct {
	APIKey
	RawKey string `json:"raw_key"`
}

// CreateWebhookRequest is the JSON body for POST /api/v1/webhooks.
type CreateWebhookRequest struct {
	URL    string   `json:"url" binding:"required,url"`
	Events []string `json:"events" binding:"required,min=1"`
}

// UpdateWebhookRequest is the JSON body for PATCH /api/v1/webhooks/:id.
type UpdateWebhookRequest struct {
	Active *bool `json:"active"`
}

// GenerateSummaryRequest is the JSON body for POST /api/v1/summaries/generate.
// It carries the upload service's reply as-is.
type GenerateSummaryRequest struct {
	UploadResponse []UploadResponse `json:"upload_response" binding:"required"`
}

// Toast is a transient status message, shaped for a toast notification.
type Toast struct {
	Kind        string `json:"kind"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// CreateSummaryResponse is returned when a pipeline run succeeds.
type CreateSummaryResponse struct {
	ID          string  `json:"id"`
	RedirectURL string  `json:"redirect_url"`
	Summary     Summary `json:"summary"`
	Events      []Toast `json:"events"`
}

// RunFailureResponse is returned when a pipeline run fails after validation.
type RunFailureResponse struct {
	ErrorResponse
	Stage  string  `json:"stage"`
	Events []Toast `json:"events"`
}

// SummaryListParams holds query parameters for listing summaries.
type SummaryListParams struct {
	Page    int    `form:"page"`
	PerPage int    `form:"per_page"`
	Search  string `form:"search"` // Search in title/file name
	UserID  string `form:"-"`
}

// PaginatedResponse wraps a list response with pagination metadata.
type PaginatedResponse[T any] struct {
	Data       []T `json:"data"`
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalItems int `json:"total_items"`
	TotalPages int `json:"total_pages"`
}

// ErrorResponse is a standard error format for all API errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// HealthResponse is returned by the health check endpoint.
type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Database string `json:"database"`
	Backend  string `json:"backend"`
}
