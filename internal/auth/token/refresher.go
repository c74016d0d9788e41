package token

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// DefaultExpiresIn is assumed when a provider reports no token lifetime.
const DefaultExpiresIn = 3600

var errEmptyRefresh = errors.New("refresh returned no access token")

// ConfigSource resolves a provider's OAuth2 client configuration.
type ConfigSource interface {
	OAuthConfig(provider, redirectURL string) (*oauth2.Config, bool)
}

// OAuthRefresher refreshes tokens against each provider's OAuth2 token endpoint.
type OAuthRefresher struct {
	configs    ConfigSource
	httpClient *http.Client
}

// NewOAuthRefresher creates a refresher. A nil httpClient uses a 30s-timeout client.
func NewOAuthRefresher(configs ConfigSource, httpClient *http.Client) *OAuthRefresher {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &OAuthRefresher{configs: configs, httpClient: httpClient}
}

// Refresh implements Refresher.
func (r *OAuthRefresher) Refresh(ctx context.Context, provider, refreshToken string) (*TokenSet, error) {
	config, ok := r.configs.OAuthConfig(provider, "")
	if !ok {
		return nil, fmt.Errorf("unknown provider %q", provider)
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, r.httpClient)
	tokenSource := config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})

	newToken, err := tokenSource.Token()
	if err != nil {
		kind := "transient"
		if isPermanentRefreshError(err) {
			kind = "permanent"
		}
		return nil, fmt.Errorf("%s refresh failure for %s: %w", kind, provider, err)
	}

	set := TokenSetFromOAuth2(newToken, time.Now())
	return &set, nil
}

// TokenSetFromOAuth2 converts an oauth2 token response into a TokenSet.
func TokenSetFromOAuth2(tok *oauth2.Token, now time.Time) TokenSet {
	set := TokenSet{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresIn:    tok.ExpiresIn,
		TokenType:    tok.TokenType,
	}
	if set.ExpiresIn <= 0 && !tok.Expiry.IsZero() {
		set.ExpiresIn = int64(tok.Expiry.Sub(now).Round(time.Second) / time.Second)
	}
	if set.ExpiresIn <= 0 {
		set.ExpiresIn = DefaultExpiresIn
	}
	if scope, ok := tok.Extra("scope").(string); ok {
		set.Scope = scope
	}
	return set
}

func isPermanentRefreshError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	permanentMarkers := []string{
		"invalid_grant",
		"invalid_client",
		"unauthorized_client",
		"token has been expired or revoked",
		"revoked",
	}
	for _, marker := range permanentMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
