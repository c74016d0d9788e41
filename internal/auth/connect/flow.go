// Package connect runs the OAuth2 authorization-code handshake that connects a
// provider and hands the resulting tokens to the token store.
package connect

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pysugar/cde-nexus/internal/auth/token"
	"golang.org/x/oauth2"
)

// TokenWriter receives the tokens of a completed handshake.
type TokenWriter interface {
	StoreNewTokens(provider string, tokens token.TokenSet) error
}

// Flow serves the login redirect and callback endpoints.
type Flow struct {
	configs    token.ConfigSource
	tokens     TokenWriter
	httpClient *http.Client
	state      string // CSRF state, one per process
}

// NewFlow creates a connect flow. A nil httpClient uses a 30s-timeout client.
func NewFlow(configs token.ConfigSource, tokens TokenWriter, httpClient *http.Client) *Flow {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	b := make([]byte, 16)
	rand.Read(b)
	return &Flow{
		configs:    configs,
		tokens:     tokens,
		httpClient: httpClient,
		state:      hex.EncodeToString(b),
	}
}

// LoginPath is where a client is sent to (re)connect provider.
func LoginPath(provider string) string {
	return "/auth/" + provider + "/login"
}

// HandleLogin redirects to the provider's consent page.
func (f *Flow) HandleLogin(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	config, ok := f.configs.OAuthConfig(provider, callbackURL(r, provider))
	if !ok {
		http.Error(w, fmt.Sprintf("Unknown provider: %s", provider), http.StatusNotFound)
		return
	}

	url := config.AuthCodeURL(f.state, oauth2.AccessTypeOffline)
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

// HandleCallback exchanges the authorization code and stores the tokens.
func (f *Flow) HandleCallback(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	query := r.URL.Query()

	if query.Get("state") != f.state {
		http.Error(w, "Invalid state token", http.StatusBadRequest)
		return
	}
	if errCode := query.Get("error"); errCode != "" {
		log.Printf("❌ %s authorization denied: %s %s", provider, errCode, query.Get("error_description"))
		http.Error(w, fmt.Sprintf("Authorization failed: %s", errCode), http.StatusBadRequest)
		return
	}

	config, ok := f.configs.OAuthConfig(provider, callbackURL(r, provider))
	if !ok {
		http.Error(w, fmt.Sprintf("Unknown provider: %s", provider), http.StatusNotFound)
		return
	}

	ctx := context.WithValue(r.Context(), oauth2.HTTPClient, f.httpClient)
	tok, err := config.Exchange(ctx, query.Get("code"))
	if err != nil {
		log.Printf("❌ Token exchange failed for %s: %v", provider, err)
		http.Error(w, fmt.Sprintf("Token exchange failed: %v", err), http.StatusBadGateway)
		return
	}

	if err := f.tokens.StoreNewTokens(provider, token.TokenSetFromOAuth2(tok, time.Now())); err != nil {
		log.Printf("⚠️ Failed to save tokens for %s: %v", provider, err)
		http.Error(w, "Failed to save tokens", http.StatusInternalServerError)
		return
	}

	log.Printf("✅ Connected provider: %s", provider)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":   "connected",
		"provider": provider,
	})
}

// callbackURL builds the redirect URL from the incoming request's host.
func callbackURL(r *http.Request, provider string) string {
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/auth/%s/callback", scheme, r.Host, provider)
}
