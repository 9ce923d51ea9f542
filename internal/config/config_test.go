package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("DATABASE_URL", "postgres://localhost/test")
	t.Setenv("SPOTIFY_CLIENT_ID", "client-id")
	t.Setenv("SPOTIFY_CLIENT_SECRET", "client-secret")
	t.Setenv("SPOTIFY_REDIRECT_BASE_URL", "https://soundspire.example/")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, DefaultSpotifyScopes, cfg.SpotifyScopes)
	assert.Equal(t, 10*time.Second, cfg.SpotifyHTTPTimeout)
	assert.Equal(t, "https://api.spotify.com/v1", cfg.SpotifyAPIBaseURL)
	assert.True(t, cfg.MetricsEnabled)
	assert.Equal(t, "https://soundspire.example/api/v1/spotify/callback", cfg.SpotifyRedirectURL())
}

func TestLoad_ScopeList(t *testing.T) {
	setRequired(t)
	t.Setenv("SPOTIFY_SCOPES", "user-top-read, user-read-email  playlist-read-private")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"user-top-read", "user-read-email", "playlist-read-private"}, cfg.SpotifyScopes)
}

func TestLoad_MissingRequired(t *testing.T) {
	keys := []string{
		"JWT_SECRET",
		"SPOTIFY_CLIENT_ID",
		"SPOTIFY_CLIENT_SECRET",
		"SPOTIFY_REDIRECT_BASE_URL",
	}

	for _, key := range keys {
		t.Run(key, func(t *testing.T) {
			setRequired(t)
			t.Setenv(key, "")

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), key)
		})
	}
}

func TestLoad_EmptyScopeList(t *testing.T) {
	setRequired(t)
	t.Setenv("SPOTIFY_SCOPES", " , ")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SPOTIFY_SCOPES")
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"PORT", "eighty"},
		{"SPOTIFY_HTTP_TIMEOUT", "soon"},
		{"METRICS_ENABLED", "maybe"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			setRequired(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}
