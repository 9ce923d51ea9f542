package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundspire/api/internal/domain"
)

func setupMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return sqlx.NewDb(db, "sqlmock"), mock
}

var credentialRowColumns = []string{
	"user_id", "access_token", "refresh_token", "expires_at", "scope", "token_type", "created_at", "updated_at",
}

func TestCredentialRepository_FindByUser(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewCredentialRepository(db)
	expires := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM spotify_credentials WHERE user_id = $1`)).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows(credentialRowColumns).
			AddRow(int64(42), "access", "refresh", expires, "user-top-read", "Bearer", expires, expires))

	cred, err := repo.FindByUser(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, int64(42), cred.UserID)
	assert.Equal(t, "access", cred.AccessToken)
	assert.Equal(t, "refresh", cred.RefreshToken)
	assert.True(t, expires.Equal(cred.ExpiresAt))
	assert.Equal(t, "user-top-read", cred.Scope)
}

func TestCredentialRepository_FindByUser_NotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewCredentialRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM spotify_credentials WHERE user_id = $1`)).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(credentialRowColumns))

	_, err := repo.FindByUser(context.Background(), 7)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCredentialRepository_Upsert(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewCredentialRepository(db)
	expires := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`ON CONFLICT (user_id)`)).
		WithArgs(int64(42), "access", "refresh", expires, "user-top-read", "Bearer").
		WillReturnRows(sqlmock.NewRows(credentialRowColumns).
			AddRow(int64(42), "access", "refresh", expires, "user-top-read", "Bearer", now, now))

	cred, err := repo.Upsert(context.Background(), domain.OAuthCredential{
		UserID:       42,
		AccessToken:  "access",
		RefreshToken: "refresh",
		ExpiresAt:    expires,
		Scope:        "user-top-read",
		TokenType:    "Bearer",
	})
	require.NoError(t, err)
	assert.Equal(t, "refresh", cred.RefreshToken)
}

func TestCredentialRepository_Delete(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewCredentialRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM spotify_credentials WHERE user_id = $1`)).
		WithArgs(int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, repo.Delete(context.Background(), 42))
}

func TestCredentialRepository_Delete_Error(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewCredentialRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM spotify_credentials`)).
		WithArgs(int64(42)).
		WillReturnError(errors.New("connection reset"))

	err := repo.Delete(context.Background(), 42)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "delete credential for user 42")
}

func TestUserRepository_FindByID_NotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE id = $1`)).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.FindByID(context.Background(), 3)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUserRepository_SetSpotifyLinked(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET spotify_linked = $1`)).
		WithArgs(true, int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.SetSpotifyLinked(context.Background(), 9, true))
}

func TestMigrate(t *testing.T) {
	db, mock := setupMockDB(t)

	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS spotify_credentials`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, Migrate(context.Background(), db))
}
