// webhooks.go handles webhook subscriptions and their delivery log.
package database

import (
	"context"
	"fmt"

	"github.com/lib/pq"

	"github.com/Shimizu-Technology/sommaire-api/internal/models"
)

const webhookColumns = `id, user_id, url, events, secret, active, created_at`

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanWebhook reads one row. sqlx can't map TEXT[] onto []string by itself,
// so events go through pq.Array.
func scanWebhook(row scanner) (models.Webhook, error) {
	var w models.Webhook
	err := row.Scan(&w.ID, &w.UserID, &w.URL, pq.Array(&w.Events), &w.Secret, &w.Active, &w.CreatedAt)
	return w, err
}

// CreateWebhook inserts a new webhook record.
func (db *DB) CreateWebhook(ctx context.Context, w *models.Webhook) error {
	query := `
		INSERT INTO webhooks (user_id, url, events, secret, active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	return db.QueryRowContext(ctx, query,
		w.UserID, w.URL, pq.Array(w.Events), w.Secret, w.Active,
	).Scan(&w.ID, &w.CreatedAt)
}

// GetWebhook retrieves one of userID's webhooks.
func (db *DB) GetWebhook(ctx context.Context, id, userID string) (*models.Webhook, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+webhookColumns+` FROM webhooks WHERE id = $1 AND user_id = $2`, id, userID)
	w, err := scanWebhook(row)
	if err != nil {
		return nil, notFound("webhook", err)
	}
	return &w, nil
}

// ListWebhooks returns all of a user's webhooks.
func (db *DB) ListWebhooks(ctx context.Context, userID string) ([]models.Webhook, error) {
	return db.queryWebhooks(ctx,
		`SELECT `+webhookColumns+` FROM webhooks WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

// GetActiveWebhooksForEvent returns a user's active webhooks subscribed to event.
func (db *DB) GetActiveWebhooksForEvent(ctx context.Context, userID, event string) ([]models.Webhook, error) {
	return db.queryWebhooks(ctx,
		`SELECT `+webhookColumns+` FROM webhooks WHERE user_id = $1 AND active = true AND $2 = ANY(events)`,
		userID, event)
}

func (db *DB) queryWebhooks(ctx context.Context, query string, args ...interface{}) ([]models.Webhook, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list webhooks: %w", err)
	}
	defer rows.Close()

	webhooks := []models.Webhook{}
	for rows.Next() {
		w, err := scanWebhook(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan webhook: %w", err)
		}
		webhooks = append(webhooks, w)
	}
	return webhooks, rows.Err()
}

// UpdateWebhookActive toggles one of userID's webhooks.
func (db *DB) UpdateWebhookActive(ctx context.Context, id, userID string, active bool) error {
	result, err := db.ExecContext(ctx,
		`UPDATE webhooks SET active = $3 WHERE id = $1 AND user_id = $2`, id, userID, active)
	if err != nil {
		return fmt.Errorf("failed to update webhook: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("webhook %w", ErrNotFound)
	}
	return nil
}

// DeleteWebhook removes one of userID's webhooks.
func (db *DB) DeleteWebhook(ctx context.Context, id, userID string) error {
	result, err := db.ExecContext(ctx, `DELETE FROM webhooks WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete webhook: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("webhook %w", ErrNotFound)
	}
	return nil
}

// --- Delivery log ---

// CreateWebhookDelivery inserts a new webhook delivery record.
func (db *DB) CreateWebhookDelivery(ctx context.Context, d *models.WebhookDelivery) error {
	query := `
		INSERT INTO webhook_deliveries (webhook_id, event, payload, status, attempts, last_error, response_code)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	return db.QueryRowContext(ctx, query,
		d.WebhookID, d.Event, d.Payload, d.Status, d.Attempts, d.LastError, d.ResponseCode,
	).Scan(&d.ID, &d.CreatedAt)
}

// UpdateWebhookDelivery updates a delivery record after an attempt.
func (db *DB) UpdateWebhookDelivery(ctx context.Context, d *models.WebhookDelivery) error {
	query := `
		UPDATE webhook_deliveries
		SET status = $2, attempts = $3, last_error = $4, response_code = $5, delivered_at = $6
		WHERE id = $1`

	_, err := db.ExecContext(ctx, query,
		d.ID, d.Status, d.Attempts, d.LastError, d.ResponseCode, d.DeliveredAt,
	)
	return err
}

// ListWebhookDeliveries returns recent deliveries for one of userID's webhooks.
func (db *DB) ListWebhookDeliveries(ctx context.Context, webhookID, userID string, limit int) ([]models.WebhookDelivery, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	deliveries := []models.WebhookDelivery{}
	err := db.SelectContext(ctx, &deliveries,
		`SELECT wd.* FROM webhook_deliveries wd
		 JOIN webhooks w ON w.id = wd.webhook_id
		 WHERE wd.webhook_id = $1 AND w.user_id = $2
		 ORDER BY wd.created_at DESC LIMIT $3`,
		webhookID, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list webhook deliveries: %w", err)
	}
	return deliveries, nil
}
