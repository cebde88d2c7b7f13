// Package database handles PostgreSQL connections and queries.
//
// Go Pattern: We use the `sqlx` package which extends Go's standard `database/sql`
// with convenient features like scanning rows into structs. Unlike an ORM,
// you write raw SQL, which gives you full control over every query.
//
// Go's database/sql has built-in connection pooling: you create one *sqlx.DB
// at startup and share it across the whole application. It's safe for
// concurrent use by multiple goroutines.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver; the underscore import runs its init()

	"github.com/Shimizu-Technology/sommaire-api/internal/models"
)

// ErrNotFound is returned when a lookup matches no row (or a row owned by
// someone else).
var ErrNotFound = errors.New("not found")

// DB wraps the sqlx database connection with our application-specific methods.
// Go Pattern: Embedding (*sqlx.DB) gives us all of sqlx's methods automatically,
// plus we can add our own.
type DB struct {
	*sqlx.DB
}

// New creates a new database connection with connection pooling configured.
func New(databaseURL string) (*DB, error) {
	// sqlx.Connect both opens the connection and pings the database
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Tuned for serverless PostgreSQL, which closes idle connections quickly.
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(2 * time.Minute)
	db.SetConnMaxIdleTime(30 * time.Second)

	return &DB{db}, nil
}

// NewFromSQL wraps an existing *sql.DB (tests pass a sqlmock connection).
func NewFromSQL(db *sql.DB) *DB {
	return &DB{sqlx.NewDb(db, "postgres")}
}

// HealthCheck verifies the database connection is alive.
func (db *DB) HealthCheck(ctx context.Context) error {
	return db.PingContext(ctx)
}

// notFound maps sql.ErrNoRows to ErrNotFound and wraps anything else.
func notFound(what string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %w", what, ErrNotFound)
	}
	return fmt.Errorf("failed to load %s: %w", what, err)
}

// --- Summary Operations ---

const summaryColumns = `id, user_id, original_file_url, file_name, title, summary_text, status, backend, model_used, word_count, created_at, updated_at`

// CreateSummary inserts a finished summary and fills in its ID and timestamps.
func (db *DB) CreateSummary(ctx context.Context, s *models.Summary) error {
	query := `
		INSERT INTO pdf_summaries (user_id, original_file_url, file_name, title, summary_text, status, backend, model_used, word_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`

	// QueryRowContext executes a query that returns a single row.
	// Scan() reads the returned columns into our struct fields.
	err := db.QueryRowContext(ctx, query,
		s.UserID, s.FileURL, s.FileName, s.Title, s.SummaryText,
		s.Status, s.Backend, s.ModelUsed, s.WordCount,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert summary: %w", err)
	}
	return nil
}

// GetSummary retrieves one of userID's summaries.
func (db *DB) GetSummary(ctx context.Context, id, userID string) (*models.Summary, error) {
	var s models.Summary
	// GetContext scans directly into a struct using the `db:"column"` tags.
	err := db.GetContext(ctx, &s,
		`SELECT `+summaryColumns+` FROM pdf_summaries WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return nil, notFound("summary", err)
	}
	return &s, nil
}

// ListSummaries returns a page of a user's summaries, newest first.
func (db *DB) ListSummaries(ctx context.Context, params models.SummaryListParams) ([]models.Summary, int, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PerPage < 1 || params.PerPage > 100 {
		params.PerPage = 20
	}

	conditions := []string{"user_id = $1"}
	args := []interface{}{params.UserID}
	argNum := 2

	if params.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(title ILIKE $%d OR file_name ILIKE $%d)", argNum, argNum))
		args = append(args, "%"+params.Search+"%")
		argNum++
	}

	whereClause := "WHERE " + strings.Join(conditions, " AND ")

	var total int
	if err := db.GetContext(ctx, &total, "SELECT COUNT(*) FROM pdf_summaries "+whereClause, args...); err != nil {
		return nil, 0, fmt.Errorf("count query failed: %w", err)
	}

	offset := (params.Page - 1) * params.PerPage
	selectQuery := fmt.Sprintf(
		"SELECT %s FROM pdf_summaries %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		summaryColumns, whereClause, argNum, argNum+1,
	)
	args = append(args, params.PerPage, offset)

	summaries := []models.Summary{}
	if err := db.SelectContext(ctx, &summaries, selectQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list query failed: %w", err)
	}

	return summaries, total, nil
}

// DeleteSummary removes one of userID's summaries and returns its file URL,
// so the caller can clean up the upload if it wants to.
func (db *DB) DeleteSummary(ctx context.Context, id, userID string) (string, error) {
	var fileURL string
	err := db.QueryRowContext(ctx,
		`DELETE FROM pdf_summaries WHERE id = $1 AND user_id = $2 RETURNING original_file_url`,
		id, userID,
	).Scan(&fileURL)
	if err != nil {
		return "", notFound("summary", err)
	}
	return fileURL, nil
}

// SummaryExistsForFileURL reports whether any summary references fileURL.
func (db *DB) SummaryExistsForFileURL(ctx context.Context, fileURL string) (bool, error) {
	var exists bool
	err := db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM pdf_summaries WHERE original_file_url = $1)`, fileURL)
	if err != nil {
		return false, fmt.Errorf("failed to check summary for file: %w", err)
	}
	return exists, nil
}
