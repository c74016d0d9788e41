// Package cde is a thin REST client for a provider's project, connection and
// user-settings endpoints. Every call carries the provider's bearer token.
package cde

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/pysugar/cde-nexus/internal/logging"
	"github.com/pysugar/cde-nexus/internal/util"
)

var (
	// ErrNotConnected means no valid token exists for the provider; nothing was sent.
	ErrNotConnected = errors.New("provider not connected")
	// ErrUnauthorized means the provider rejected the token (HTTP 401).
	ErrUnauthorized = errors.New("provider rejected credentials")
)

// TokenSource yields a currently valid bearer token for a provider.
type TokenSource interface {
	GetAccessToken(ctx context.Context, provider string) (string, bool)
}

// BaseURLs resolves a provider's REST base URL.
type BaseURLs interface {
	APIBaseURL(provider string) (string, bool)
}

type Project struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Number string `json:"number,omitempty"`
	Status string `json:"status,omitempty"`
}

type Connection struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	ProjectID string `json:"project_id,omitempty"`
	Status    string `json:"status,omitempty"`
}

// UserSettings is kept opaque; the service only relays it.
type UserSettings map[string]any

// Client calls provider REST APIs.
type Client struct {
	httpClient *http.Client
	tokens     TokenSource
	baseURLs   BaseURLs
}

// NewClient creates a client. A nil httpClient uses a 60s-timeout client.
func NewClient(tokens TokenSource, baseURLs BaseURLs, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{httpClient: httpClient, tokens: tokens, baseURLs: baseURLs}
}

// ListProjects returns the projects visible to the connected account.
func (c *Client) ListProjects(ctx context.Context, provider string) ([]Project, error) {
	var projects []Project
	if err := c.do(ctx, provider, http.MethodGet, "/projects", nil, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// ListConnections returns the account's CDE connections.
func (c *Client) ListConnections(ctx context.Context, provider string) ([]Connection, error) {
	var conns []Connection
	if err := c.do(ctx, provider, http.MethodGet, "/connections", nil, &conns); err != nil {
		return nil, err
	}
	return conns, nil
}

// GetUserSettings returns the user's settings.
func (c *Client) GetUserSettings(ctx context.Context, provider string) (UserSettings, error) {
	settings := UserSettings{}
	if err := c.do(ctx, provider, http.MethodGet, "/users/me/settings", nil, &settings); err != nil {
		return nil, err
	}
	return settings, nil
}

// UpdateUserSettings replaces the user's settings and returns the stored result.
func (c *Client) UpdateUserSettings(ctx context.Context, provider string, settings UserSettings) (UserSettings, error) {
	updated := UserSettings{}
	if err := c.do(ctx, provider, http.MethodPut, "/users/me/settings", settings, &updated); err != nil {
		return nil, err
	}
	return updated, nil
}

func (c *Client) do(ctx context.Context, provider, method, path string, in, out any) error {
	baseURL, ok := c.baseURLs.APIBaseURL(provider)
	if !ok {
		return fmt.Errorf("unknown provider %q", provider)
	}
	accessToken, ok := c.tokens.GetAccessToken(ctx, provider)
	if !ok {
		return ErrNotConnected
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if reqID := logging.GetRequestID(ctx); reqID != "" {
		req.Header.Set("X-Request-ID", reqID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: read body: %w", method, path, err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		log.Printf("🔒 [%s] %s rejected token on %s %s", logging.GetRequestID(ctx), provider, method, path)
		return ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Printf("⚠️ [%s] %s %s %s failed (%d): %s", logging.GetRequestID(ctx), provider, method, path, resp.StatusCode, util.TruncateBytes(respBody))
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, util.TruncateLog(string(respBody), 256))
	}

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	return nil
}
