package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/soundspire/api/internal/domain"
)

const credentialColumns = `user_id, access_token, refresh_token, expires_at, scope, token_type, created_at, updated_at`

// CredentialRepository stores one Spotify credential per user.
type CredentialRepository struct {
	db *sqlx.DB
}

// NewCredentialRepository creates a new CredentialRepository.
func NewCredentialRepository(db *sqlx.DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

// FindByUser returns the credential for userID, or domain.ErrNotFound.
func (r *CredentialRepository) FindByUser(ctx context.Context, userID int64) (*domain.OAuthCredential, error) {
	var cred domain.OAuthCredential
	err := r.db.GetContext(ctx, &cred,
		`SELECT `+credentialColumns+` FROM spotify_credentials WHERE user_id = $1`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find credential for user %d: %w", userID, err)
	}
	return &cred, nil
}

// Upsert inserts the credential or replaces the stored fields for the same user.
func (r *CredentialRepository) Upsert(ctx context.Context, cred domain.OAuthCredential) (*domain.OAuthCredential, error) {
	var result domain.OAuthCredential
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO spotify_credentials (user_id, access_token, refresh_token, expires_at, scope, token_type)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (user_id)
		 DO UPDATE SET access_token = EXCLUDED.access_token,
		               refresh_token = EXCLUDED.refresh_token,
		               expires_at = EXCLUDED.expires_at,
		               scope = EXCLUDED.scope,
		               token_type = EXCLUDED.token_type,
		               updated_at = NOW()
		 RETURNING `+credentialColumns,
		cred.UserID, cred.AccessToken, cred.RefreshToken, cred.ExpiresAt, cred.Scope, cred.TokenType,
	).StructScan(&result)
	if err != nil {
		return nil, fmt.Errorf("upsert credential for user %d: %w", cred.UserID, err)
	}
	return &result, nil
}

// Delete removes the credential for userID. Deleting a missing record is not an error.
func (r *CredentialRepository) Delete(ctx context.Context, userID int64) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM spotify_credentials WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("delete credential for user %d: %w", userID, err)
	}
	return nil
}
