package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/oauth2"
	"gopkg.in/yaml.v3"
)

var providerIDRegexp = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

type fileConfig struct {
	Providers []ProviderConfig `yaml:"providers"`
}

// ProviderConfig is one provider entry in the catalog file.
type ProviderConfig struct {
	ID           string   `yaml:"id"`
	Name         string   `yaml:"name"`
	Enabled      *bool    `yaml:"enabled"`
	AuthURL      string   `yaml:"auth_url"`
	TokenURL     string   `yaml:"token_url"`
	APIBaseURL   string   `yaml:"api_base_url"`
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	Scopes       []string `yaml:"scopes"`
}

// ProviderInfo is the public view of a provider (no secrets).
type ProviderInfo struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Enabled         bool     `json:"enabled"`
	Configured      bool     `json:"configured"` // client credentials present
	AuthURL         string   `json:"auth_url"`
	TokenURL        string   `json:"token_url"`
	APIBaseURL      string   `json:"api_base_url"`
	Scopes          []string `json:"scopes,omitempty"`
	ClientIDEnv     string   `json:"client_id_env"`
	ClientSecretEnv string   `json:"client_secret_env"`
}

type provider struct {
	info         ProviderInfo
	clientID     string
	clientSecret string
}

// Catalog holds the OAuth providers the service can connect to. It is immutable after Load.
type Catalog struct {
	byID map[string]provider
	ids  []string
}

// Load reads the catalog from path, or from the first default location when path is
// empty. With no file at all the built-in providers are used. Client credentials may
// be overridden per provider via NEXUS_<ID>_CLIENT_ID / NEXUS_<ID>_CLIENT_SECRET.
func Load(path string) (*Catalog, error) {
	cfgProviders, err := loadConfigProviders(path)
	if err != nil {
		return nil, err
	}
	if len(cfgProviders) == 0 {
		cfgProviders = defaultProviders()
	}
	return New(cfgProviders), nil
}

// New builds a catalog from already-parsed entries. Invalid or duplicate IDs are skipped.
func New(cfgProviders []ProviderConfig) *Catalog {
	c := &Catalog{byID: make(map[string]provider)}
	for _, cfg := range cfgProviders {
		p, ok := normalizeConfig(cfg)
		if !ok {
			continue
		}
		if _, dup := c.byID[p.info.ID]; dup {
			continue
		}
		c.byID[p.info.ID] = p
		c.ids = append(c.ids, p.info.ID)
	}
	sort.Strings(c.ids)
	return c
}

// Providers returns all providers sorted by ID.
func (c *Catalog) Providers() []ProviderInfo {
	result := make([]ProviderInfo, 0, len(c.ids))
	for _, id := range c.ids {
		result = append(result, c.byID[id].publicInfo())
	}
	return result
}

// Get returns provider metadata by ID.
func (c *Catalog) Get(id string) (ProviderInfo, bool) {
	p, ok := c.byID[normalizeProviderID(id)]
	if !ok {
		return ProviderInfo{}, false
	}
	return p.publicInfo(), true
}

// APIBaseURL returns the REST base URL of an enabled provider.
func (c *Catalog) APIBaseURL(id string) (string, bool) {
	p, ok := c.byID[normalizeProviderID(id)]
	if !ok || !p.info.Enabled || p.info.APIBaseURL == "" {
		return "", false
	}
	return p.info.APIBaseURL, true
}

// OAuthConfig returns the OAuth2 client configuration of an enabled provider.
func (c *Catalog) OAuthConfig(id, redirectURL string) (*oauth2.Config, bool) {
	p, ok := c.byID[normalizeProviderID(id)]
	if !ok || !p.info.Enabled {
		return nil, false
	}
	return &oauth2.Config{
		ClientID:     p.clientID,
		ClientSecret: p.clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       append([]string(nil), p.info.Scopes...),
		Endpoint: oauth2.Endpoint{
			AuthURL:  p.info.AuthURL,
			TokenURL: p.info.TokenURL,
		},
	}, true
}

func (p provider) publicInfo() ProviderInfo {
	info := p.info
	info.Scopes = append([]string(nil), info.Scopes...)
	return info
}

func loadConfigProviders(path string) ([]ProviderConfig, error) {
	path, err := resolveConfigPath(path)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read providers file %q: %w", path, err)
	}

	var cfg fileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse providers file %q: %w", path, err)
	}

	return cfg.Providers, nil
}

func resolveConfigPath(explicit string) (string, error) {
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", err
		}
		return explicit, nil
	}

	candidates := []string{
		"config/providers.yaml",
		"/etc/nexus/providers.yaml",
	}
	if homeDir, err := os.UserHomeDir(); err == nil && homeDir != "" {
		candidates = append(candidates, filepath.Join(homeDir, ".config", "nexus", "providers.yaml"))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", nil
}

func normalizeConfig(cfg ProviderConfig) (provider, bool) {
	id := normalizeProviderID(cfg.ID)
	if !providerIDRegexp.MatchString(id) {
		return provider{}, false
	}

	enabled := true
	if cfg.Enabled != nil {
		enabled = *cfg.Enabled
	}

	name := strings.TrimSpace(cfg.Name)
	if name == "" {
		name = id
	}

	clientIDEnv := providerEnvName(id, "CLIENT_ID")
	clientID := strings.TrimSpace(cfg.ClientID)
	if v := strings.TrimSpace(os.Getenv(clientIDEnv)); v != "" {
		clientID = v
	}

	clientSecretEnv := providerEnvName(id, "CLIENT_SECRET")
	clientSecret := strings.TrimSpace(cfg.ClientSecret)
	if v := strings.TrimSpace(os.Getenv(clientSecretEnv)); v != "" {
		clientSecret = v
	}

	authURL := strings.TrimSpace(cfg.AuthURL)
	tokenURL := strings.TrimSpace(cfg.TokenURL)

	info := ProviderInfo{
		ID:              id,
		Name:            name,
		Enabled:         enabled,
		Configured:      clientID != "" && authURL != "" && tokenURL != "",
		AuthURL:         authURL,
		TokenURL:        tokenURL,
		APIBaseURL:      strings.TrimRight(strings.TrimSpace(cfg.APIBaseURL), "/"),
		Scopes:          normalizeScopes(cfg.Scopes),
		ClientIDEnv:     clientIDEnv,
		ClientSecretEnv: clientSecretEnv,
	}

	return provider{info: info, clientID: clientID, clientSecret: clientSecret}, true
}

func normalizeScopes(scopes []string) []string {
	if len(scopes) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(scopes))
	result := make([]string, 0, len(scopes))
	for _, scope := range scopes {
		s := strings.TrimSpace(scope)
		if s == "" {
			continue
		}
		if _, exists := seen[s]; exists {
			continue
		}
		seen[s] = struct{}{}
		result = append(result, s)
	}
	return result
}

func normalizeProviderID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

func providerEnvName(id, suffix string) string {
	upper := strings.ToUpper(id)
	replacer := strings.NewReplacer("-", "_", ".", "_", "/", "_", " ", "_")
	upper = replacer.Replace(upper)
	return fmt.Sprintf("NEXUS_%s_%s", upper, suffix)
}

func defaultProviders() []ProviderConfig {
	return []ProviderConfig{
		{
			ID:         "box",
			Name:       "Box",
			AuthURL:    "https://account.box.com/api/oauth2/authorize",
			TokenURL:   "https://api.box.com/oauth2/token",
			APIBaseURL: "https://api.box.com/2.0",
		},
		{
			ID:         "autodesk",
			Name:       "Autodesk Construction Cloud",
			AuthURL:    "https://developer.api.autodesk.com/authentication/v2/authorize",
			TokenURL:   "https://developer.api.autodesk.com/authentication/v2/token",
			APIBaseURL: "https://developer.api.autodesk.com",
			Scopes:     []string{"data:read", "data:write", "account:read"},
		},
		{
			ID:         "procore",
			Name:       "Procore",
			AuthURL:    "https://login.procore.com/oauth/authorize",
			TokenURL:   "https://login.procore.com/oauth/token",
			APIBaseURL: "https://api.procore.com/rest/v1.0",
		},
	}
}
