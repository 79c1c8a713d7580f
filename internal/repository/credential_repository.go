package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/maheshrc27/postflow/internal/models"
)

type CredentialRepository interface {
	Get(ctx context.Context, accountID int64) (*models.Credential, error)
	Upsert(ctx context.Context, cred *models.Credential) error
	Delete(ctx context.Context, accountID int64) error
	// ListExpiring returns credentials whose access token expires inside
	// the given interval, plus any already past expiry.
	ListExpiring(ctx context.Context, initialTime, finalTime time.Time) ([]*models.Credential, error)
}

type credentialRepository struct {
	db *sql.DB
}

func NewCredentialRepository(db *sql.DB) CredentialRepository {
	return &credentialRepository{db: db}
}

func (r *credentialRepository) Get(ctx context.Context, accountID int64) (*models.Credential, error) {
	query := `
		SELECT account_id, platform, access_token, refresh_token, expires_at, updated_at
		FROM credentials WHERE account_id = $1
	`
	row := r.db.QueryRowContext(ctx, query, accountID)

	var c models.Credential
	var expiresAt, updatedAt sql.NullTime
	err := row.Scan(&c.AccountID, &c.Platform, &c.AccessToken, &c.RefreshToken, &expiresAt, &updatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	if expiresAt.Valid {
		c.ExpiresAt = expiresAt.Time
	}
	if updatedAt.Valid {
		c.UpdatedAt = updatedAt.Time
	}

	return &c, nil
}

func (r *credentialRepository) Upsert(ctx context.Context, cred *models.Credential) error {
	query := `
		INSERT INTO credentials (account_id, platform, access_token, refresh_token, expires_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, CURRENT_TIMESTAMP)
		ON CONFLICT (account_id) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			expires_at = EXCLUDED.expires_at,
			updated_at = CURRENT_TIMESTAMP
	`
	_, err := r.db.ExecContext(ctx, query, cred.AccountID, cred.Platform, cred.AccessToken, cred.RefreshToken, nullTime(cred.ExpiresAt))
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *credentialRepository) Delete(ctx context.Context, accountID int64) error {
	query := `DELETE FROM credentials WHERE account_id = $1`
	_, err := r.db.ExecContext(ctx, query, accountID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *credentialRepository) ListExpiring(ctx context.Context, initialTime, finalTime time.Time) ([]*models.Credential, error) {
	query := `
		SELECT account_id, platform, access_token, refresh_token, expires_at, updated_at
		FROM credentials
		WHERE expires_at IS NOT NULL
		AND (expires_at BETWEEN $1 AND $2 OR expires_at < $1)
	`
	rows, err := r.db.QueryContext(ctx, query, initialTime, finalTime)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var credentials []*models.Credential
	for rows.Next() {
		var c models.Credential
		var expiresAt, updatedAt sql.NullTime
		err := rows.Scan(&c.AccountID, &c.Platform, &c.AccessToken, &c.RefreshToken, &expiresAt, &updatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		if expiresAt.Valid {
			c.ExpiresAt = expiresAt.Time
		}
		if updatedAt.Valid {
			c.UpdatedAt = updatedAt.Time
		}
		credentials = append(credentials, &c)
	}

	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return credentials, nil
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}
