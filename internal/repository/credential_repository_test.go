package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maheshrc27/postflow/internal/models"
)

func TestCredentialRepository_Upsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewCredentialRepository(db)
	expires := time.Now().Add(time.Hour)

	mock.ExpectExec(`INSERT INTO credentials`).
		WithArgs(int64(10), "tiktok", "enc-access", "enc-refresh", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.Upsert(context.Background(), &models.Credential{
		AccountID:    10,
		Platform:     "tiktok",
		AccessToken:  "enc-access",
		RefreshToken: "enc-refresh",
		ExpiresAt:    expires,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCredentialRepository_Get_NullExpiry(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewCredentialRepository(db)

	columns := []string{"account_id", "platform", "access_token", "refresh_token", "expires_at", "updated_at"}
	mock.ExpectQuery(`SELECT .+ FROM credentials WHERE account_id = \$1`).
		WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows(columns).AddRow(
			int64(10), "instagram", "enc-access", "", nil, time.Now(),
		))

	cred, err := repo.Get(context.Background(), 10)
	require.NoError(t, err)
	require.NotNil(t, cred)
	assert.True(t, cred.ExpiresAt.IsZero())
	assert.Empty(t, cred.RefreshToken)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCredentialRepository_Get_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewCredentialRepository(db)

	mock.ExpectQuery(`SELECT .+ FROM credentials WHERE account_id = \$1`).
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"account_id"}))

	cred, err := repo.Get(context.Background(), 99)
	require.NoError(t, err)
	assert.Nil(t, cred)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCredentialRepository_ListExpiring(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewCredentialRepository(db)
	now := time.Now()

	columns := []string{"account_id", "platform", "access_token", "refresh_token", "expires_at", "updated_at"}
	mock.ExpectQuery(`SELECT .+ FROM credentials`).
		WithArgs(now, now.Add(30*time.Minute)).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(int64(10), "tiktok", "a", "r", now.Add(5*time.Minute), now).
			AddRow(int64(11), "youtube", "a", "r", now.Add(-time.Minute), now))

	creds, err := repo.ListExpiring(context.Background(), now, now.Add(30*time.Minute))
	require.NoError(t, err)
	require.Len(t, creds, 2)
	assert.Equal(t, int64(10), creds[0].AccountID)
	assert.Equal(t, int64(11), creds[1].AccountID)
	require.NoError(t, mock.ExpectationsWereMet())
}
