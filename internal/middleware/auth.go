// Package middleware provides HTTP middleware for the API.
//
// Go Pattern: Middleware in Go is a function that wraps an HTTP handler.
// In Gin, middleware is a gin.HandlerFunc that calls c.Next() to continue
// the chain, or c.Abort() to stop processing.
package middleware

import (
	"context"
	"crypto/sha256"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Shimizu-Technology/sommaire-api/internal/models"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	apiKeyContextKey contextKey = "api_key"
	userContextKey   contextKey = "user"
)

// AuthStore is what authentication needs from the database.
// *database.DB satisfies it; tests pass an in-memory fake.
type AuthStore interface {
	GetAPIKeyByHash(ctx context.Context, hash string) (*models.APIKey, error)
	UpdateAPIKeyLastUsed(ctx context.Context, id string) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// authenticateAPIKey resolves an X-API-Key header value to its key.
func authenticateAPIKey(c *gin.Context, store AuthStore, rawKey string) (*models.APIKey, bool) {
	apiKey, err := store.GetAPIKeyByHash(c.Request.Context(), HashAPIKey(rawKey))
	if err != nil {
		return nil, false
	}
	c.Set(string(apiKeyContextKey), apiKey)

	// Fire and forget; the request context ends before this may run.
	go func(id string) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = store.UpdateAPIKeyLastUsed(ctx, id)
	}(apiKey.ID)

	return apiKey, true
}

// GetAPIKey retrieves the authenticated API key from the request context.
// It is nil for requests authenticated with a JWT.
func GetAPIKey(c *gin.Context) *models.APIKey {
	val, exists := c.Get(string(apiKeyContextKey))
	if !exists {
		return nil
	}
	// The comma-ok idiom is safe; it won't panic on the wrong type.
	key, ok := val.(*models.APIKey)
	if !ok {
		return nil
	}
	return key
}

// OwnerID returns the user on whose behalf the request runs: the JWT user,
// or the user the API key belongs to. Empty when unauthenticated.
func OwnerID(c *gin.Context) string {
	if user := GetUser(c); user != nil {
		return user.ID
	}
	if key := GetAPIKey(c); key != nil {
		return key.UserID
	}
	return ""
}

// HashAPIKey creates a SHA-256 hash of an API key.
// We store hashes, not raw keys; same principle as password hashing.
func HashAPIKey(key string) string {
	hash := sha256.Sum256([]byte(key))
	return fmt.Sprintf("%x", hash)
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{
		Error:   "unauthorized",
		Message: message,
		Code:    http.StatusUnauthorized,
	})
}
