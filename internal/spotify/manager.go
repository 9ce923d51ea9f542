package spotify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/soundspire/api/internal/domain"
	"github.com/soundspire/api/internal/metrics"
)

const (
	// issueMargin is subtracted from expires_in when a token is stored.
	issueMargin = 60 * time.Second
	// readMargin is added to now when a stored token is checked.
	readMargin = 30 * time.Second

	defaultExpiresIn = time.Hour

	refreshReasonExpired      = "expired"
	refreshReasonUnauthorized = "unauthorized"
)

// CredentialStore persists one credential per user.
// FindByUser returns domain.ErrNotFound when the user has none.
type CredentialStore interface {
	FindByUser(ctx context.Context, userID int64) (*domain.OAuthCredential, error)
	Upsert(ctx context.Context, cred domain.OAuthCredential) (*domain.OAuthCredential, error)
	Delete(ctx context.Context, userID int64) error
}

// LinkStore flips the linked flag on the user entity.
type LinkStore interface {
	SetSpotifyLinked(ctx context.Context, userID int64, linked bool) error
}

// Config holds the Spotify application registration.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
	AuthURL      string
	TokenURL     string
}

// Option configures a Manager.
type Option func(*Manager)

// WithHTTPClient sets the client used for token endpoint calls.
func WithHTTPClient(c *http.Client) Option {
	return func(m *Manager) {
		if c != nil {
			m.httpClient = c
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(m *Manager) {
		if r != nil {
			m.metrics = r
		}
	}
}

// Manager owns the authorization code exchange, refresh and validity checks
// for Spotify credentials.
type Manager struct {
	oauth      *oauth2.Config
	creds      CredentialStore
	users      LinkStore
	httpClient *http.Client
	metrics    metrics.Recorder
	now        func() time.Time
	refreshes  singleflight.Group
}

// NewManager creates a new Manager.
func NewManager(creds CredentialStore, users LinkStore, cfg Config, opts ...Option) *Manager {
	endpoint := Endpoint
	if cfg.AuthURL != "" {
		endpoint.AuthURL = cfg.AuthURL
	}
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}

	m := &Manager{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     endpoint,
			Scopes:       cfg.Scopes,
			RedirectURL:  cfg.RedirectURL,
		},
		creds:      creds,
		users:      users,
		httpClient: http.DefaultClient,
		metrics:    metrics.NoopMetrics{},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// AuthURL returns the authorize endpoint URL for the given anti-forgery state.
// The caller is responsible for remembering state until the callback.
func (m *Manager) AuthURL(state string) string {
	return m.oauth.AuthCodeURL(state)
}

// CompleteAuthorization exchanges code for a credential and stores it for userID.
// The caller must have verified the state parameter already.
func (m *Manager) CompleteAuthorization(ctx context.Context, userID int64, code string) (*domain.OAuthCredential, error) {
	token, err := m.oauth.Exchange(m.clientContext(ctx), code)
	if err != nil {
		m.metrics.RecordTokenExchange(false)
		return nil, providerError(domain.ErrExchange, "exchange authorization code", err)
	}
	m.metrics.RecordTokenExchange(true)

	cred := domain.OAuthCredential{
		UserID:       userID,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    m.expiresAt(token),
		Scope:        scopeOf(token),
		TokenType:    token.TokenType,
	}
	if cred.TokenType == "" {
		cred.TokenType = "Bearer"
	}

	// A code grant may omit refresh_token; keep the one already on file.
	if cred.RefreshToken == "" {
		existing, err := m.creds.FindByUser(ctx, userID)
		switch {
		case err == nil:
			cred.RefreshToken = existing.RefreshToken
		case !errors.Is(err, domain.ErrNotFound):
			return nil, fmt.Errorf("load spotify credential: %w", err)
		}
	}

	saved, err := m.creds.Upsert(ctx, cred)
	if err != nil {
		return nil, fmt.Errorf("store spotify credential: %w", err)
	}
	if err := m.users.SetSpotifyLinked(ctx, userID, true); err != nil {
		return nil, err
	}

	slog.Info("spotify account connected", "user_id", userID, "scope", saved.Scope)
	return saved, nil
}

// AccessToken returns a usable access token for userID, refreshing it first when it
// expires within the read margin.
func (m *Manager) AccessToken(ctx context.Context, userID int64) (string, error) {
	cred, err := m.load(ctx, userID)
	if err != nil {
		return "", err
	}
	if cred.ValidAt(m.now(), readMargin) {
		return cred.AccessToken, nil
	}

	refreshed, err := m.refresh(ctx, cred, refreshReasonExpired)
	if err != nil {
		return "", err
	}
	return refreshed.AccessToken, nil
}

// ForceRefresh refreshes the credential for userID regardless of its expiry.
func (m *Manager) ForceRefresh(ctx context.Context, userID int64) (string, error) {
	cred, err := m.load(ctx, userID)
	if err != nil {
		return "", err
	}

	refreshed, err := m.refresh(ctx, cred, refreshReasonUnauthorized)
	if err != nil {
		return "", err
	}
	return refreshed.AccessToken, nil
}

// Credential returns the stored credential for userID.
func (m *Manager) Credential(ctx context.Context, userID int64) (*domain.OAuthCredential, error) {
	return m.load(ctx, userID)
}

// Disconnect removes the stored credential and clears the linked flag.
// Disconnecting a user without a credential succeeds.
func (m *Manager) Disconnect(ctx context.Context, userID int64) error {
	if err := m.creds.Delete(ctx, userID); err != nil {
		return err
	}
	if err := m.users.SetSpotifyLinked(ctx, userID, false); err != nil {
		return err
	}
	slog.Info("spotify account disconnected", "user_id", userID)
	return nil
}

func (m *Manager) load(ctx context.Context, userID int64) (*domain.OAuthCredential, error) {
	cred, err := m.creds.FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotConnected
		}
		return nil, err
	}
	return cred, nil
}

// refresh runs the refresh grant for the credential loaded by the caller.
// Concurrent refreshes for the same user share a single provider call, which
// outlives any one caller's context.
func (m *Manager) refresh(ctx context.Context, loaded *domain.OAuthCredential, reason string) (*domain.OAuthCredential, error) {
	ch := m.refreshes.DoChan(strconv.FormatInt(loaded.UserID, 10), func() (any, error) {
		return m.doRefresh(context.WithoutCancel(ctx), loaded, reason)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*domain.OAuthCredential), nil
	}
}

func (m *Manager) doRefresh(ctx context.Context, loaded *domain.OAuthCredential, reason string) (*domain.OAuthCredential, error) {
	// The caller's copy may predate a refresh that finished since it was read.
	cred, err := m.load(ctx, loaded.UserID)
	if err != nil {
		return nil, err
	}
	switch {
	case reason == refreshReasonExpired && cred.ValidAt(m.now(), readMargin):
		return cred, nil
	case reason == refreshReasonUnauthorized && cred.AccessToken != loaded.AccessToken:
		return cred, nil
	}

	src := m.oauth.TokenSource(m.clientContext(ctx), &oauth2.Token{RefreshToken: cred.RefreshToken})
	token, err := src.Token()
	if err != nil {
		m.metrics.RecordTokenRefresh(reason, false)
		if !rejected(err) {
			return nil, providerError(domain.ErrUpstream, "refresh spotify token", err)
		}
		m.clearRejected(ctx, cred)
		return nil, providerError(domain.ErrRefresh, "refresh spotify token", err)
	}
	m.metrics.RecordTokenRefresh(reason, true)

	updated := *cred
	updated.AccessToken = token.AccessToken
	updated.ExpiresAt = m.expiresAt(token)
	// Rotation is optional; keep what the provider left out.
	if token.RefreshToken != "" {
		updated.RefreshToken = token.RefreshToken
	}
	if scope := scopeOf(token); scope != "" {
		updated.Scope = scope
	}
	if token.TokenType != "" {
		updated.TokenType = token.TokenType
	}

	saved, err := m.creds.Upsert(ctx, updated)
	if err != nil {
		return nil, fmt.Errorf("store refreshed spotify credential: %w", err)
	}
	return saved, nil
}

// clearRejected disconnects the user unless the rejected refresh token has
// already been replaced in the store.
func (m *Manager) clearRejected(ctx context.Context, rejectedCred *domain.OAuthCredential) {
	current, err := m.creds.FindByUser(ctx, rejectedCred.UserID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			slog.Error("reload rejected spotify credential", "user_id", rejectedCred.UserID, "error", err)
		}
		return
	}
	if current.RefreshToken != rejectedCred.RefreshToken {
		slog.Info("spotify refresh rejected for a replaced token, keeping credential", "user_id", rejectedCred.UserID)
		return
	}

	slog.Warn("spotify refresh rejected, clearing credential", "user_id", rejectedCred.UserID)
	if err := m.Disconnect(ctx, rejectedCred.UserID); err != nil {
		slog.Error("clear rejected spotify credential", "user_id", rejectedCred.UserID, "error", err)
	}
}

func (m *Manager) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)
}

// expiresAt derives the stored expiry from expires_in using the manager clock.
func (m *Manager) expiresAt(token *oauth2.Token) time.Time {
	expiresIn := defaultExpiresIn
	switch v := token.Extra("expires_in").(type) {
	case float64:
		expiresIn = time.Duration(v) * time.Second
	case json.Number:
		if n, err := v.Int64(); err == nil {
			expiresIn = time.Duration(n) * time.Second
		}
	case string:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			expiresIn = time.Duration(n) * time.Second
		}
	default:
		if !token.Expiry.IsZero() {
			return token.Expiry.Add(-issueMargin)
		}
	}
	return m.now().Add(expiresIn - issueMargin)
}

func scopeOf(token *oauth2.Token) string {
	scope, _ := token.Extra("scope").(string)
	return scope
}

// rejected reports whether the provider refused the grant itself, as opposed to
// failing transiently.
func rejected(err error) bool {
	var re *oauth2.RetrieveError
	if !errors.As(err, &re) || re.Response == nil {
		return false
	}
	return re.Response.StatusCode >= 400 && re.Response.StatusCode < 500
}

func providerError(kind error, op string, err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) && re.Response != nil {
		return &domain.ProviderError{
			Kind:   kind,
			Status: re.Response.StatusCode,
			Body:   string(re.Body),
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
