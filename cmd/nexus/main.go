package main

import (
	"log"
	"net/http"
	"os"
	"time"

	"github.com/pysugar/cde-nexus/internal/api"
	"github.com/pysugar/cde-nexus/internal/auth/connect"
	"github.com/pysugar/cde-nexus/internal/auth/token"
	"github.com/pysugar/cde-nexus/internal/cde"
	"github.com/pysugar/cde-nexus/internal/db"
	"github.com/pysugar/cde-nexus/internal/providers/catalog"
	"github.com/pysugar/cde-nexus/internal/report"
	"github.com/pysugar/cde-nexus/internal/version"
)

func main() {
	dbPath := os.Getenv("NEXUS_DB_PATH")
	if dbPath == "" {
		dbPath = "nexus.db"
	}

	// Initialize database
	database, err := db.InitDB(dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Load OAuth provider catalog
	cat, err := catalog.Load(os.Getenv("NEXUS_PROVIDERS_FILE"))
	if err != nil {
		log.Fatalf("Failed to load provider catalog: %v", err)
	}
	for _, p := range cat.Providers() {
		if !p.Configured {
			log.Printf("⚠️ Provider %s has no client credentials (set %s)", p.ID, p.ClientIDEnv)
		}
	}

	// Shared outbound client; refresh and pass-through calls rely on its timeout
	httpClient := &http.Client{Timeout: httpTimeout()}

	tokens := token.NewStore(db.NewSettingsSlot(database), token.NewOAuthRefresher(cat, httpClient))
	log.Printf("📦 Connected providers: %v", tokens.GetConnectedProviders())

	router := api.NewRouter(api.Deps{
		DB:            database,
		Catalog:       cat,
		Tokens:        tokens,
		Connect:       connect.NewFlow(cat, tokens, httpClient),
		Reports:       report.NewService(database),
		CDE:           cde.NewClient(tokens, cat, httpClient),
		AdminPassword: os.Getenv("NEXUS_ADMIN_PASSWORD"),
	})

	// Start server
	host := os.Getenv("HOST")
	if host == "" {
		host = "127.0.0.1" // Default to localhost, set HOST=0.0.0.0 for LAN access
	}
	port := os.Getenv("PORT")
	if port == "" {
		if os.Getenv("NEXUS_MODE") == "release" {
			port = "8086"
		} else {
			port = "8080"
		}
	}

	addr := host + ":" + port
	displayURL := "localhost:" + port
	if host == "0.0.0.0" {
		displayURL = "<your-ip>:" + port
	}

	log.Printf("🚀 CDE-Nexus %s starting on http://%s", version.Version, addr)
	log.Printf("🔗 Connect a provider: http://%s/auth/{provider}/login", displayURL)
	log.Printf("📝 Reports API: http://%s/api/reports", displayURL)

	if err := http.ListenAndServe(addr, router); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// httpTimeout reads NEXUS_HTTP_TIMEOUT (e.g. "45s"), defaulting to 60s.
func httpTimeout() time.Duration {
	if raw := os.Getenv("NEXUS_HTTP_TIMEOUT"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			return d
		}
		log.Printf("⚠️ Ignoring invalid NEXUS_HTTP_TIMEOUT=%q", raw)
	}
	return 60 * time.Second
}
