// users.go handles accounts and the API keys that belong to them.
package database

import (
	"context"
	"fmt"

	"github.com/Shimizu-Technology/sommaire-api/internal/models"
)

// CreateUser inserts a new user record.
func (db *DB) CreateUser(ctx context.Context, u *models.User) error {
	query := `
		INSERT INTO users (email, password_hash, name)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	return db.QueryRowContext(ctx, query,
		u.Email, u.PasswordHash, u.Name,
	).Scan(&u.ID, &u.CreatedAt)
}

// GetUserByEmail retrieves a user by email address.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := db.GetContext(ctx, &u,
		`SELECT id, email, password_hash, name, created_at FROM users WHERE email = $1`, email)
	if err != nil {
		return nil, notFound("user", err)
	}
	return &u, nil
}

// GetUserByID retrieves a user by ID.
func (db *DB) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	err := db.GetContext(ctx, &u,
		`SELECT id, email, password_hash, name, created_at FROM users WHERE id = $1`, id)
	if err != nil {
		return nil, notFound("user", err)
	}
	return &u, nil
}

// --- API Key Operations ---

const apiKeyColumns = `id, user_id, key_hash, key_prefix, name, active, rate_limit, created_at, last_used_at`

// CreateAPIKey inserts a new API key for key.UserID.
func (db *DB) CreateAPIKey(ctx context.Context, key *models.APIKey) error {
	query := `
		INSERT INTO api_keys (user_id, key_hash, key_prefix, name, active, rate_limit)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	return db.QueryRowContext(ctx, query,
		key.UserID, key.KeyHash, key.KeyPrefix, key.Name, key.Active, key.RateLimit,
	).Scan(&key.ID, &key.CreatedAt)
}

// GetAPIKeyByHash retrieves an active API key by its hash (used during authentication).
func (db *DB) GetAPIKeyByHash(ctx context.Context, hash string) (*models.APIKey, error) {
	var key models.APIKey
	err := db.GetContext(ctx, &key,
		`SELECT `+apiKeyColumns+` FROM api_keys WHERE key_hash = $1 AND active = true`, hash)
	if err != nil {
		return nil, notFound("API key", err)
	}
	return &key, nil
}

// UpdateAPIKeyLastUsed bumps the last_used_at timestamp.
func (db *DB) UpdateAPIKeyLastUsed(ctx context.Context, id string) error {
	_, err := db.ExecContext(ctx, `UPDATE api_keys SET last_used_at = NOW() WHERE id = $1`, id)
	return err
}

// ListAPIKeys returns a user's API keys (active and revoked).
func (db *DB) ListAPIKeys(ctx context.Context, userID string) ([]models.APIKey, error) {
	keys := []models.APIKey{}
	err := db.SelectContext(ctx, &keys,
		`SELECT `+apiKeyColumns+` FROM api_keys WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list API keys: %w", err)
	}
	return keys, nil
}

// RevokeAPIKey deactivates one of userID's API keys.
func (db *DB) RevokeAPIKey(ctx context.Context, id, userID string) error {
	result, err := db.ExecContext(ctx,
		`UPDATE api_keys SET active = false WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to revoke key: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("API key %w", ErrNotFound)
	}
	return nil
}
