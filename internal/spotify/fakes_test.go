package spotify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/soundspire/api/internal/domain"
)

var testNow = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

// memoryStore implements CredentialStore and LinkStore.
type memoryStore struct {
	mu      sync.Mutex
	creds   map[int64]domain.OAuthCredential
	linked  map[int64]bool
	upserts int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		creds:  make(map[int64]domain.OAuthCredential),
		linked: make(map[int64]bool),
	}
}

func (s *memoryStore) FindByUser(_ context.Context, userID int64) (*domain.OAuthCredential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.creds[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &c, nil
}

func (s *memoryStore) Upsert(_ context.Context, cred domain.OAuthCredential) (*domain.OAuthCredential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upserts++
	s.creds[cred.UserID] = cred
	return &cred, nil
}

func (s *memoryStore) Delete(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.creds, userID)
	return nil
}

func (s *memoryStore) SetSpotifyLinked(_ context.Context, userID int64, linked bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.linked[userID] = linked
	return nil
}

func (s *memoryStore) put(cred domain.OAuthCredential) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds[cred.UserID] = cred
	s.linked[cred.UserID] = true
}

func (s *memoryStore) get(userID int64) (domain.OAuthCredential, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.creds[userID]
	return c, ok
}

// fakeProvider is a token endpoint that records every grant it receives.
type fakeProvider struct {
	*httptest.Server

	mu           sync.Mutex
	codeCalls    int
	refreshCalls int
	forms        []url.Values

	// codeStatus/refreshStatus default to 200.
	codeStatus    int
	refreshStatus int
	errorBody     string
	// refreshResponse builds the success body for the n-th refresh (1-based).
	refreshResponse func(n int) map[string]any
	// refreshGate, when set, holds refresh grants until it is closed.
	refreshGate chan struct{}
	// acceptRefresh, when set, rejects refresh tokens it returns false for.
	acceptRefresh func(token string) bool
	// omitCodeRefresh drops refresh_token from code grant responses.
	omitCodeRefresh bool
}

func newFakeProvider(t *testing.T) *fakeProvider {
	t.Helper()
	p := &fakeProvider{
		errorBody: `{"error":"invalid_grant","error_description":"Invalid authorization code"}`,
		refreshResponse: func(n int) map[string]any {
			return map[string]any{
				"access_token": fmt.Sprintf("refreshed-access-%d", n),
				"token_type":   "Bearer",
				"expires_in":   3600,
			}
		},
	}
	p.Server = httptest.NewServer(http.HandlerFunc(p.handle))
	t.Cleanup(p.Close)
	return p
}

func (p *fakeProvider) handle(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	p.mu.Lock()
	p.forms = append(p.forms, r.PostForm)
	var (
		status = http.StatusOK
		body   map[string]any
	)
	switch r.PostForm.Get("grant_type") {
	case "authorization_code":
		p.codeCalls++
		if p.codeStatus != 0 {
			status = p.codeStatus
		}
		body = map[string]any{
			"access_token":  "initial-access",
			"token_type":    "Bearer",
			"scope":         "user-read-email user-top-read",
			"expires_in":    3600,
			"refresh_token": "initial-refresh",
		}
		if p.omitCodeRefresh {
			delete(body, "refresh_token")
		}
	case "refresh_token":
		p.refreshCalls++
		if p.refreshStatus != 0 {
			status = p.refreshStatus
		}
		if p.acceptRefresh != nil && !p.acceptRefresh(r.PostForm.Get("refresh_token")) {
			status = http.StatusBadRequest
		}
		if status == http.StatusOK {
			body = p.refreshResponse(p.refreshCalls)
		}
	default:
		status = http.StatusBadRequest
	}
	errorBody := p.errorBody
	gate := p.refreshGate
	p.mu.Unlock()

	if gate != nil && r.PostForm.Get("grant_type") == "refresh_token" {
		<-gate
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if status != http.StatusOK {
		_, _ = w.Write([]byte(errorBody))
		return
	}
	_ = json.NewEncoder(w).Encode(body)
}

func (p *fakeProvider) counts() (code, refresh int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.codeCalls, p.refreshCalls
}

func (p *fakeProvider) lastForm() url.Values {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.forms) == 0 {
		return nil
	}
	return p.forms[len(p.forms)-1]
}

func newTestManager(t *testing.T, provider *fakeProvider, store *memoryStore) *Manager {
	t.Helper()
	return NewManager(store, store, Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "https://soundspire.example/api/v1/spotify/callback",
		Scopes:       []string{"user-read-email", "user-top-read"},
		AuthURL:      provider.URL + "/authorize",
		TokenURL:     provider.URL + "/api/token",
	},
		WithHTTPClient(provider.Client()),
		WithClock(func() time.Time { return testNow }),
	)
}
