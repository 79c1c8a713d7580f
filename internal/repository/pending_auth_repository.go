package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/maheshrc27/postflow/internal/models"
)

type PendingAuthRepository interface {
	Create(ctx context.Context, p *models.PendingAuthorization) error
	// Consume atomically removes and returns the record for state, so a
	// state can be redeemed at most once.
	Consume(ctx context.Context, state string) (*models.PendingAuthorization, bool, error)
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

type pendingAuthRepository struct {
	db *sql.DB
}

func NewPendingAuthRepository(db *sql.DB) PendingAuthRepository {
	return &pendingAuthRepository{db: db}
}

func (r *pendingAuthRepository) Create(ctx context.Context, p *models.PendingAuthorization) error {
	query := `
		INSERT INTO pending_authorizations (state, user_id, platform, code_verifier, scopes, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query, p.State, p.UserID, p.Platform, p.CodeVerifier, p.Scopes, p.CreatedAt, p.ExpiresAt)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *pendingAuthRepository) Consume(ctx context.Context, state string) (*models.PendingAuthorization, bool, error) {
	query := `
		DELETE FROM pending_authorizations
		WHERE state = $1
		RETURNING state, user_id, platform, code_verifier, scopes, created_at, expires_at
	`
	row := r.db.QueryRowContext(ctx, query, state)

	var p models.PendingAuthorization
	err := row.Scan(&p.State, &p.UserID, &p.Platform, &p.CodeVerifier, &p.Scopes, &p.CreatedAt, &p.ExpiresAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		slog.Info(err.Error())
		return nil, false, err
	}

	return &p, true, nil
}

func (r *pendingAuthRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	query := `DELETE FROM pending_authorizations WHERE expires_at < $1`
	result, err := r.db.ExecContext(ctx, query, before)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return affected, nil
}
