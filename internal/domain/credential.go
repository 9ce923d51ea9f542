package domain

import "time"

// OAuthCredential is the Spotify grant stored for a single user.
// Token values are never serialized.
type OAuthCredential struct {
	UserID       int64     `json:"user_id" db:"user_id"`
	AccessToken  string    `json:"-" db:"access_token"`
	RefreshToken string    `json:"-" db:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at" db:"expires_at"`
	Scope        string    `json:"scope" db:"scope"`
	TokenType    string    `json:"token_type" db:"token_type"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// ValidAt reports whether the access token is still usable at t with the given margin.
func (c OAuthCredential) ValidAt(t time.Time, margin time.Duration) bool {
	return c.ExpiresAt.After(t.Add(margin))
}
