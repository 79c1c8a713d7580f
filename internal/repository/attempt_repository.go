package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/maheshrc27/postflow/internal/models"
)

// PublishAttemptRepository is an append-only log: attempts are created
// and read, never updated or deleted.
type PublishAttemptRepository interface {
	Create(ctx context.Context, a *models.PublishAttempt) error
	ListByRequestID(ctx context.Context, requestID string) ([]*models.PublishAttempt, error)
	CountByRequestID(ctx context.Context, requestID string) (int, error)
}

type publishAttemptRepository struct {
	db *sql.DB
}

func NewPublishAttemptRepository(db *sql.DB) PublishAttemptRepository {
	return &publishAttemptRepository{db: db}
}

func (r *publishAttemptRepository) Create(ctx context.Context, a *models.PublishAttempt) error {
	query := `
		INSERT INTO publish_attempts (id, request_id, attempt_number, outcome, platform_post_id, reason, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		a.ID,
		a.RequestID,
		a.Number,
		a.Outcome,
		a.PlatformPostID,
		a.Reason,
		a.StartedAt,
		a.FinishedAt,
	)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *publishAttemptRepository) ListByRequestID(ctx context.Context, requestID string) ([]*models.PublishAttempt, error) {
	query := `
		SELECT id, request_id, attempt_number, outcome, platform_post_id, reason, started_at, finished_at
		FROM publish_attempts
		WHERE request_id = $1
		ORDER BY attempt_number
	`
	rows, err := r.db.QueryContext(ctx, query, requestID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var attempts []*models.PublishAttempt
	for rows.Next() {
		var a models.PublishAttempt
		err := rows.Scan(&a.ID, &a.RequestID, &a.Number, &a.Outcome, &a.PlatformPostID, &a.Reason, &a.StartedAt, &a.FinishedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		attempts = append(attempts, &a)
	}

	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return attempts, nil
}

func (r *publishAttemptRepository) CountByRequestID(ctx context.Context, requestID string) (int, error) {
	query := `SELECT COUNT(*) FROM publish_attempts WHERE request_id = $1`

	var count int
	err := r.db.QueryRowContext(ctx, query, requestID).Scan(&count)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return count, nil
}
