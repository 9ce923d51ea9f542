package spotify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/soundspire/api/internal/domain"
	"github.com/soundspire/api/internal/metrics"
)

// maxBodySize caps how much of a Web API response is read.
const maxBodySize = 4 << 20

// TokenProvider supplies access tokens for a user.
type TokenProvider interface {
	AccessToken(ctx context.Context, userID int64) (string, error)
	ForceRefresh(ctx context.Context, userID int64) (string, error)
}

// Client performs authenticated Web API requests for a user.
type Client struct {
	tokens     TokenProvider
	httpClient *http.Client
	baseURL    string
	metrics    metrics.Recorder
}

// NewClient creates a new Client. An empty baseURL selects DefaultAPIBaseURL.
func NewClient(tokens TokenProvider, httpClient *http.Client, baseURL string, rec metrics.Recorder) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if baseURL == "" {
		baseURL = DefaultAPIBaseURL
	}
	if rec == nil {
		rec = metrics.NoopMetrics{}
	}
	return &Client{
		tokens:     tokens,
		httpClient: httpClient,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		metrics:    rec,
	}
}

// Get issues a GET to url on behalf of userID and returns the JSON body.
//
// A 401 response triggers one forced refresh and one retry. Any other
// unsuccessful response, or a second 401, is returned as a *domain.ProviderError
// of kind domain.ErrUpstream.
func (c *Client) Get(ctx context.Context, userID int64, url string) (json.RawMessage, error) {
	token, err := c.tokens.AccessToken(ctx, userID)
	if err != nil {
		return nil, err
	}

	status, body, err := c.get(ctx, url, token)
	if err != nil {
		return nil, err
	}

	if status == http.StatusUnauthorized {
		slog.Info("spotify rejected access token, forcing refresh", "user_id", userID)
		token, err = c.tokens.ForceRefresh(ctx, userID)
		if err != nil {
			return nil, err
		}
		status, body, err = c.get(ctx, url, token)
		if err != nil {
			return nil, err
		}
	}

	if status < 200 || status > 299 {
		return nil, &domain.ProviderError{Kind: domain.ErrUpstream, Status: status, Body: string(body)}
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("decode spotify response from %s: invalid JSON", url)
	}
	return body, nil
}

// GetJSON calls Get and decodes the body into out.
func (c *Client) GetJSON(ctx context.Context, userID int64, url string, out any) error {
	body, err := c.Get(ctx, userID, url)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode spotify response from %s: %w", url, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, url, token string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("spotify request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return 0, nil, fmt.Errorf("read spotify response: %w", err)
	}
	c.metrics.RecordUpstreamRequest(resp.StatusCode)
	return resp.StatusCode, body, nil
}
