package token

import (
	"context"
	"encoding/json"
	"log"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	// TableKey is the settings slot holding the serialized token table.
	TableKey = "oauth_tokens"

	// RefreshThreshold is how long before expiry a token is treated as expiring.
	// Requests issued with a token inside this window could see it expire mid-flight.
	RefreshThreshold = 5 * time.Minute
)

// OAuthToken is one provider's stored credential set.
type OAuthToken struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int64  `json:"expires_in"` // seconds
	TokenType    string `json:"token_type,omitempty"`
	Scope        string `json:"scope,omitempty"`
	Provider     string `json:"provider"`
	CreatedAt    int64  `json:"created_at"` // epoch ms, stamped by the store
}

// ExpiresAt returns the absolute expiry time.
func (t *OAuthToken) ExpiresAt() time.Time {
	return time.UnixMilli(t.CreatedAt + t.ExpiresIn*1000)
}

// ExpiringSoon reports whether now is within RefreshThreshold of expiry.
func (t *OAuthToken) ExpiringSoon(now time.Time) bool {
	return now.UnixMilli() >= t.CreatedAt+t.ExpiresIn*1000-RefreshThreshold.Milliseconds()
}

// TokenSet is the token payload returned by a handshake or refresh.
// A provider's created_at on the wire is ignored.
type TokenSet struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type,omitempty"`
	Scope        string `json:"scope,omitempty"`
}

// Slot is a durable string-valued key-value slot.
type Slot interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
}

// Refresher exchanges a refresh token for a new token set at the provider.
type Refresher interface {
	Refresh(ctx context.Context, provider, refreshToken string) (*TokenSet, error)
}

// Store keeps one OAuth token per provider in a single serialized table.
//
// The whole table is read on every accessor call and rewritten on every mutation.
// Refreshes are coalesced per provider, so concurrent callers hitting the expiry
// window share one refresh request.
type Store struct {
	slot      Slot
	refresher Refresher
	now       func() time.Time

	mu       sync.Mutex // guards table read-modify-write
	inflight singleflight.Group
}

// NewStore creates a store over slot using refresher for token renewal.
func NewStore(slot Slot, refresher Refresher) *Store {
	return &Store{
		slot:      slot,
		refresher: refresher,
		now:       time.Now,
	}
}

// GetAccessToken returns a currently valid bearer token for provider.
// An expiring token is refreshed first; if that fails the provider is disconnected.
func (s *Store) GetAccessToken(ctx context.Context, provider string) (string, bool) {
	s.mu.Lock()
	tok, ok := s.load()[provider]
	s.mu.Unlock()
	if !ok {
		return "", false
	}

	if !tok.ExpiringSoon(s.now()) {
		return tok.AccessToken, true
	}

	log.Printf("⚠️ Token for %s is expired/expiring, refreshing...", provider)
	refreshed, ok := s.Refresh(ctx, provider)
	if !ok {
		// A caller that gave up has learned nothing about the credentials.
		if ctx.Err() == nil {
			s.dropIfUnchanged(provider, tok)
		}
		return "", false
	}
	return refreshed.AccessToken, true
}

// Refresh renews provider's token using its stored refresh token.
// Without a refresh token nothing is sent. A refresh failure removes the entry
// it was attempted for; an entry replaced in the meantime is kept.
//
// Concurrent callers share one refresh. The shared call is detached from the
// first caller's cancellation; a caller whose ctx ends stops waiting and gets false.
func (s *Store) Refresh(ctx context.Context, provider string) (*OAuthToken, bool) {
	ch := s.inflight.DoChan(provider, func() (any, error) {
		return s.refresh(context.WithoutCancel(ctx), provider)
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		log.Printf("⚠️ Stopped waiting for %s refresh: %v", provider, ctx.Err())
		return nil, false
	case res = <-ch:
	}

	refreshed, _ := res.Val.(*OAuthToken)
	if res.Err != nil || refreshed == nil {
		return nil, false
	}
	// Callers sharing one refresh must not share the pointer.
	tok := *refreshed
	return &tok, true
}

func (s *Store) refresh(ctx context.Context, provider string) (*OAuthToken, error) {
	s.mu.Lock()
	current, ok := s.load()[provider]
	s.mu.Unlock()
	if !ok || current.RefreshToken == "" {
		return nil, nil
	}

	set, err := s.refresher.Refresh(ctx, provider, current.RefreshToken)
	if err == nil && (set == nil || set.AccessToken == "") {
		err = errEmptyRefresh
	}
	if err != nil {
		log.Printf("❌ Refresh token failed for %s: %v", provider, err)
		s.dropIfUnchanged(provider, current)
		return nil, err
	}

	// Providers that do not rotate refresh tokens omit them from the response.
	if set.RefreshToken == "" {
		set.RefreshToken = current.RefreshToken
	}
	tok, err := s.put(provider, *set)
	if err != nil {
		log.Printf("⚠️ Failed to save refreshed token for %s: %v", provider, err)
		return nil, err
	}

	log.Printf("✅ Refreshed token for: %s (expires: %s)", provider, tok.ExpiresAt().Format(time.RFC3339))
	return tok, nil
}

// StoreNewTokens upserts provider's tokens, stamping the creation time.
func (s *Store) StoreNewTokens(provider string, tokens TokenSet) error {
	_, err := s.put(provider, tokens)
	return err
}

func (s *Store) put(provider string, tokens TokenSet) (*OAuthToken, error) {
	tok := &OAuthToken{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresIn:    tokens.ExpiresIn,
		TokenType:    tokens.TokenType,
		Scope:        tokens.Scope,
		Provider:     provider,
		CreatedAt:    s.now().UnixMilli(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	table := s.load()
	table[provider] = *tok
	if err := s.save(table); err != nil {
		return nil, err
	}
	return tok, nil
}

// RemoveProviderTokens deletes provider's entry. Removing a missing entry is not an error.
func (s *Store) RemoveProviderTokens(provider string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	table := s.load()
	if _, ok := table[provider]; !ok {
		return nil
	}
	delete(table, provider)
	return s.save(table)
}

// dropIfUnchanged removes provider's entry only if it is still the one that was
// read as seen. Tokens stored by a reconnect in the meantime survive.
func (s *Store) dropIfUnchanged(provider string, seen OAuthToken) {
	s.mu.Lock()
	defer s.mu.Unlock()
	table := s.load()
	stored, ok := table[provider]
	if !ok {
		return
	}
	if stored.CreatedAt != seen.CreatedAt || stored.AccessToken != seen.AccessToken || stored.RefreshToken != seen.RefreshToken {
		log.Printf("ℹ️ Tokens for %s were replaced during refresh, keeping them", provider)
		return
	}
	delete(table, provider)
	if err := s.save(table); err != nil {
		log.Printf("⚠️ Failed to drop tokens for %s: %v", provider, err)
	}
}

// IsProviderConnected reports whether provider has a stored entry, expired or not.
func (s *Store) IsProviderConnected(provider string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.load()[provider]
	return ok
}

// GetConnectedProviders returns the sorted names of all providers with stored tokens.
func (s *Store) GetConnectedProviders() []string {
	s.mu.Lock()
	table := s.load()
	s.mu.Unlock()

	providers := make([]string, 0, len(table))
	for provider := range table {
		providers = append(providers, provider)
	}
	sort.Strings(providers)
	return providers
}

// load reads the token table. Read or parse failures yield an empty table.
// Caller must hold s.mu.
func (s *Store) load() map[string]OAuthToken {
	table := make(map[string]OAuthToken)

	raw, ok, err := s.slot.Get(TableKey)
	if err != nil {
		log.Printf("⚠️ Failed to read token table: %v", err)
		return table
	}
	if !ok || raw == "" {
		return table
	}
	if err := json.Unmarshal([]byte(raw), &table); err != nil || table == nil {
		log.Printf("⚠️ Token table is corrupt, treating as empty: %v", err)
		return make(map[string]OAuthToken)
	}
	return table
}

// save rewrites the whole table. Caller must hold s.mu.
func (s *Store) save(table map[string]OAuthToken) error {
	data, err := json.Marshal(table)
	if err != nil {
		return err
	}
	return s.slot.Set(TableKey, string(data))
}
