// apikeys.go handles API key management endpoints.
//
// Keys belong to the logged-in user, and these routes accept only a JWT, so
// an API key can never be used to mint or revoke other keys.
package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Shimizu-Technology/sommaire-api/internal/database"
	"github.com/Shimizu-Technology/sommaire-api/internal/middleware"
	"github.com/Shimizu-Technology/sommaire-api/internal/models"
)

// CreateAPIKey generates a new API key for the current user.
// POST /api/v1/keys
//
// Request body:
//
//	{"name": "My App", "rate_limit": 200}
//
// Response includes the raw key — SAVE IT! It's only shown once.
func (h *Handler) CreateAPIKey(c *gin.Context) {
	var req models.CreateAPIKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", "name is required")
		return
	}

	// Go Pattern: crypto/rand is the cryptographically secure random source.
	// NEVER use math/rand for security-sensitive things like API keys!
	rawKey, err := generateAPIKey()
	if err != nil {
		log.Printf("❌ Failed to generate API key: %v", err)
		respondError(c, http.StatusInternalServerError, "generation_error", "Failed to generate API key")
		return
	}

	rateLimit := req.RateLimit
	if rateLimit <= 0 {
		rateLimit = h.DefaultRateLimit
	}

	// Create the key record with the HASH (never store the raw key)
	key := &models.APIKey{
		UserID:    middleware.OwnerID(c),
		KeyHash:   middleware.HashAPIKey(rawKey),
		KeyPrefix: rawKey[:8] + "...", // Show first 8 chars for identification
		Name:      req.Name,
		Active:    true,
		RateLimit: rateLimit,
	}

	if err := h.DB.CreateAPIKey(c.Request.Context(), key); err != nil {
		log.Printf("❌ Failed to create API key: %v", err)
		respondError(c, http.StatusInternalServerError, "database_error", "Failed to create API key")
		return
	}

	c.JSON(http.StatusCreated, models.CreateAPIKeyResponse{
		APIKey: *key,
		RawKey: rawKey,
	})
}

// ListAPIKeys returns the current user's API keys (without the raw values).
// GET /api/v1/keys
func (h *Handler) ListAPIKeys(c *gin.Context) {
	keys, err := h.DB.ListAPIKeys(c.Request.Context(), middleware.OwnerID(c))
	if err != nil {
		respondError(c, http.StatusInternalServerError, "database_error", "Failed to list API keys")
		return
	}

	if keys == nil {
		keys = []models.APIKey{}
	}
	c.JSON(http.StatusOK, keys)
}

// RevokeAPIKey deactivates one of the current user's API keys.
// DELETE /api/v1/keys/:id
func (h *Handler) RevokeAPIKey(c *gin.Context) {
	id, ok := parseID(c, "API key")
	if !ok {
		return
	}

	if err := h.DB.RevokeAPIKey(c.Request.Context(), id, middleware.OwnerID(c)); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(c, http.StatusNotFound, "not_found", "API key not found")
			return
		}
		log.Printf("❌ Failed to revoke API key %s: %v", id, err)
		respondError(c, http.StatusInternalServerError, "database_error", "Failed to revoke API key")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "API key revoked"})
}

// generateAPIKey creates a cryptographically secure random API key.
// Format: "sk_" prefix + 32 random hex characters.
func generateAPIKey() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return "sk_" + hex.EncodeToString(bytes), nil
}
