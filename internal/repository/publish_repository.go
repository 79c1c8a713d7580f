package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"github.com/maheshrc27/postflow/internal/models"
)

type PublishRequestRepository interface {
	Create(ctx context.Context, r *models.PublishRequest) error
	GetByID(ctx context.Context, id string) (*models.PublishRequest, error)
	ListByUserID(ctx context.Context, userID int64) ([]*models.PublishRequest, error)
	ListByAccountID(ctx context.Context, accountID int64) ([]*models.PublishRequest, error)
	ListByStatus(ctx context.Context, status string) ([]*models.PublishRequest, error)
	// UpdateStatusIf performs a compare-and-set transition and reports
	// whether the row actually moved. Dispatch-once semantics depend on it.
	UpdateStatusIf(ctx context.Context, id, from, to string) (bool, error)
	// Requeue moves a dispatched request back to scheduled with a new
	// attempt time.
	Requeue(ctx context.Context, id string, nextAttemptAt time.Time) (bool, error)
	SetPlatformPostID(ctx context.Context, id, platformPostID string) error
	CheckByUserID(ctx context.Context, id string, userID int64) (bool, error)
}

type publishRequestRepository struct {
	db *sql.DB
}

func NewPublishRequestRepository(db *sql.DB) PublishRequestRepository {
	return &publishRequestRepository{db: db}
}

const publishRequestColumns = `id, user_id, account_id, media_ref, title, caption, hashtags, scheduled_time, priority, status, next_attempt_at, platform_post_id, created_at, updated_at`

func (r *publishRequestRepository) Create(ctx context.Context, req *models.PublishRequest) error {
	query := `
		INSERT INTO publish_requests (id, user_id, account_id, media_ref, title, caption, hashtags, scheduled_time, priority, status, next_attempt_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.db.ExecContext(ctx, query,
		req.ID,
		req.UserID,
		req.AccountID,
		req.MediaRef,
		req.Title,
		req.Caption,
		pq.Array(req.Hashtags),
		req.ScheduledTime,
		req.Priority,
		req.Status,
		req.NextAttemptAt,
	)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *publishRequestRepository) GetByID(ctx context.Context, id string) (*models.PublishRequest, error) {
	query := `SELECT ` + publishRequestColumns + ` FROM publish_requests WHERE id = $1`
	row := r.db.QueryRowContext(ctx, query, id)

	req, err := scanPublishRequest(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return req, nil
}

func (r *publishRequestRepository) ListByUserID(ctx context.Context, userID int64) ([]*models.PublishRequest, error) {
	query := `SELECT ` + publishRequestColumns + ` FROM publish_requests WHERE user_id = $1 ORDER BY scheduled_time`
	return r.list(ctx, query, userID)
}

func (r *publishRequestRepository) ListByAccountID(ctx context.Context, accountID int64) ([]*models.PublishRequest, error) {
	query := `SELECT ` + publishRequestColumns + ` FROM publish_requests WHERE account_id = $1 ORDER BY scheduled_time`
	return r.list(ctx, query, accountID)
}

func (r *publishRequestRepository) ListByStatus(ctx context.Context, status string) ([]*models.PublishRequest, error) {
	query := `SELECT ` + publishRequestColumns + ` FROM publish_requests WHERE status = $1 ORDER BY scheduled_time`
	return r.list(ctx, query, status)
}

func (r *publishRequestRepository) list(ctx context.Context, query string, arg interface{}) ([]*models.PublishRequest, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var requests []*models.PublishRequest
	for rows.Next() {
		req, err := scanPublishRequest(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		requests = append(requests, req)
	}

	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return requests, nil
}

func (r *publishRequestRepository) UpdateStatusIf(ctx context.Context, id, from, to string) (bool, error) {
	query := `
		UPDATE publish_requests
		SET status = $3, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND status = $2
	`
	result, err := r.db.ExecContext(ctx, query, id, from, to)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (r *publishRequestRepository) Requeue(ctx context.Context, id string, nextAttemptAt time.Time) (bool, error) {
	query := `
		UPDATE publish_requests
		SET status = $2, next_attempt_at = $3, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND status = $4
	`
	result, err := r.db.ExecContext(ctx, query, id, models.RequestStatusScheduled, nextAttemptAt, models.RequestStatusDispatched)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (r *publishRequestRepository) SetPlatformPostID(ctx context.Context, id, platformPostID string) error {
	query := `UPDATE publish_requests SET platform_post_id = $2, updated_at = CURRENT_TIMESTAMP WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id, platformPostID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *publishRequestRepository) CheckByUserID(ctx context.Context, id string, userID int64) (bool, error) {
	query := `SELECT 1 FROM publish_requests WHERE id = $1 AND user_id = $2`

	var result int
	err := r.db.QueryRowContext(ctx, query, id, userID).Scan(&result)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		slog.Info(err.Error())
		return false, err
	}

	return result == 1, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPublishRequest(row rowScanner) (*models.PublishRequest, error) {
	var req models.PublishRequest
	var platformPostID sql.NullString
	err := row.Scan(
		&req.ID,
		&req.UserID,
		&req.AccountID,
		&req.MediaRef,
		&req.Title,
		&req.Caption,
		pq.Array(&req.Hashtags),
		&req.ScheduledTime,
		&req.Priority,
		&req.Status,
		&req.NextAttemptAt,
		&platformPostID,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if platformPostID.Valid {
		req.PlatformPostID = platformPostID.String
	}
	return &req, nil
}
