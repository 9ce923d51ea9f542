package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/soundspire/api/internal/domain"
	"github.com/soundspire/api/internal/spotify"
)

const (
	spotifyStateCookie = "spotify_oauth_state"
	spotifyStatePath   = "/api/v1/spotify"

	defaultTopLimit = 20
)

// SpotifyAccounts manages a user's Spotify connection.
type SpotifyAccounts interface {
	AuthURL(state string) string
	CompleteAuthorization(ctx context.Context, userID int64, code string) (*domain.OAuthCredential, error)
	Credential(ctx context.Context, userID int64) (*domain.OAuthCredential, error)
	Disconnect(ctx context.Context, userID int64) error
}

// SpotifyAPI reads a user's Spotify data.
type SpotifyAPI interface {
	Profile(ctx context.Context, userID int64) (*spotify.Profile, error)
	TopArtists(ctx context.Context, userID int64, tr spotify.TimeRange, limit int) ([]spotify.Artist, error)
	TopTracks(ctx context.Context, userID int64, tr spotify.TimeRange, limit int) ([]spotify.Track, error)
	TopGenres(ctx context.Context, userID int64, tr spotify.TimeRange, limit int) ([]spotify.Genre, error)
}

// SpotifyHandler serves the Spotify connect flow and the data read through it.
type SpotifyHandler struct {
	accounts    SpotifyAccounts
	api         SpotifyAPI
	frontendURL string
}

// NewSpotifyHandler creates a new SpotifyHandler.
func NewSpotifyHandler(accounts SpotifyAccounts, api SpotifyAPI, frontendURL string) *SpotifyHandler {
	return &SpotifyHandler{accounts: accounts, api: api, frontendURL: frontendURL}
}

// Connect starts the authorization round trip.
func (h *SpotifyHandler) Connect(c echo.Context) error {
	state, err := issueState(c, spotifyStateCookie, spotifyStatePath)
	if err != nil {
		return err
	}
	return c.Redirect(http.StatusTemporaryRedirect, h.accounts.AuthURL(state))
}

type callbackParams struct {
	Code  string `query:"code" validate:"required"`
	State string `query:"state" validate:"required"`
	Error string `query:"error"`
}

// Callback finishes the authorization round trip. The state is checked before the
// code is exchanged.
func (h *SpotifyHandler) Callback(c echo.Context) error {
	userID, ok := GetUserID(c)
	if !ok {
		return domain.ErrUnauthorized
	}

	var params callbackParams
	if err := c.Bind(&params); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if params.Error != "" {
		clearState(c, spotifyStateCookie, spotifyStatePath)
		return fmt.Errorf("%w: spotify authorization denied: %s", domain.ErrInvalidInput, params.Error)
	}
	if err := c.Validate(&params); err != nil {
		return err
	}
	if err := verifyState(c, spotifyStateCookie, params.State); err != nil {
		slog.Warn("spotify callback state rejected", "user_id", userID, "error", err)
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	clearState(c, spotifyStateCookie, spotifyStatePath)

	if _, err := h.accounts.CompleteAuthorization(c.Request().Context(), userID, params.Code); err != nil {
		return err
	}

	return c.Redirect(http.StatusFound, h.frontendURL+"/settings?spotify=connected")
}

type connectionStatus struct {
	Connected bool       `json:"connected"`
	Scope     string     `json:"scope,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Status reports whether the user has a Spotify credential on file.
func (h *SpotifyHandler) Status(c echo.Context) error {
	userID, ok := GetUserID(c)
	if !ok {
		return domain.ErrUnauthorized
	}

	cred, err := h.accounts.Credential(c.Request().Context(), userID)
	if errors.Is(err, domain.ErrNotConnected) {
		return JSON(c, http.StatusOK, connectionStatus{Connected: false})
	}
	if err != nil {
		return err
	}

	return JSON(c, http.StatusOK, connectionStatus{
		Connected: true,
		Scope:     cred.Scope,
		ExpiresAt: &cred.ExpiresAt,
	})
}

// Disconnect removes the user's Spotify credential.
func (h *SpotifyHandler) Disconnect(c echo.Context) error {
	userID, ok := GetUserID(c)
	if !ok {
		return domain.ErrUnauthorized
	}

	if err := h.accounts.Disconnect(c.Request().Context(), userID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Profile returns the user's Spotify profile.
func (h *SpotifyHandler) Profile(c echo.Context) error {
	userID, ok := GetUserID(c)
	if !ok {
		return domain.ErrUnauthorized
	}

	profile, err := h.api.Profile(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, profile)
}

type topParams struct {
	TimeRange string `query:"time_range" validate:"omitempty,oneof=short_term medium_term long_term"`
	Limit     int    `query:"limit" validate:"omitempty,min=1,max=50"`
}

// TopArtists returns the user's top artists.
func (h *SpotifyHandler) TopArtists(c echo.Context) error {
	return h.top(c, func(ctx context.Context, userID int64, tr spotify.TimeRange, limit int) (any, error) {
		return h.api.TopArtists(ctx, userID, tr, limit)
	})
}

// TopTracks returns the user's top tracks.
func (h *SpotifyHandler) TopTracks(c echo.Context) error {
	return h.top(c, func(ctx context.Context, userID int64, tr spotify.TimeRange, limit int) (any, error) {
		return h.api.TopTracks(ctx, userID, tr, limit)
	})
}

// TopGenres returns up to limit genres ranked across the user's top artists.
func (h *SpotifyHandler) TopGenres(c echo.Context) error {
	return h.top(c, func(ctx context.Context, userID int64, tr spotify.TimeRange, limit int) (any, error) {
		return h.api.TopGenres(ctx, userID, tr, limit)
	})
}

func (h *SpotifyHandler) top(c echo.Context, fetch func(context.Context, int64, spotify.TimeRange, int) (any, error)) error {
	userID, ok := GetUserID(c)
	if !ok {
		return domain.ErrUnauthorized
	}

	var params topParams
	if err := c.Bind(&params); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if err := c.Validate(&params); err != nil {
		return err
	}
	if params.TimeRange == "" {
		params.TimeRange = string(spotify.TimeRangeMedium)
	}
	if params.Limit == 0 {
		params.Limit = defaultTopLimit
	}

	items, err := fetch(c.Request().Context(), userID, spotify.TimeRange(params.TimeRange), params.Limit)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, items)
}
