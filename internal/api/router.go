// Package api wires the HTTP routes of the service.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/pysugar/cde-nexus/internal/api/handlers"
	"github.com/pysugar/cde-nexus/internal/api/middleware"
	"github.com/pysugar/cde-nexus/internal/auth/connect"
	"github.com/pysugar/cde-nexus/internal/auth/token"
	"github.com/pysugar/cde-nexus/internal/cde"
	"github.com/pysugar/cde-nexus/internal/logging"
	"github.com/pysugar/cde-nexus/internal/providers/catalog"
	"github.com/pysugar/cde-nexus/internal/report"
	"gorm.io/gorm"
)

// Deps are the services the router dispatches to.
type Deps struct {
	DB            *gorm.DB
	Catalog       *catalog.Catalog
	Tokens        *token.Store
	Connect       *connect.Flow
	Reports       *report.Service
	CDE           *cde.Client
	AdminPassword string
}

// NewRouter builds the chi router.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(logging.Middleware)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)

	// ============================================
	// OAuth connect flow (browser redirects, no API key)
	// ============================================
	r.Get("/auth/{provider}/login", d.Connect.HandleLogin)
	r.Get("/auth/{provider}/callback", d.Connect.HandleCallback)

	// ============================================
	// API (API key, optional admin password)
	// ============================================
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.OptionalAdminAuth(d.AdminPassword))
		r.Use(middleware.APIKeyAuth(d.DB))

		r.Get("/version", handlers.VersionHandler())
		r.Post("/config/apikey/regenerate", handlers.RegenerateAPIKeyHandler(d.DB))

		// Provider connections
		r.Get("/providers", handlers.ProvidersHandler(d.Catalog, d.Tokens))
		r.Delete("/providers/{provider}", handlers.DisconnectHandler(d.Tokens))
		r.Post("/providers/{provider}/refresh", handlers.RefreshHandler(d.Tokens))

		// Provider REST pass-through
		r.Route("/cde/{provider}", func(r chi.Router) {
			r.Get("/projects", handlers.ProjectsHandler(d.CDE))
			r.Get("/connections", handlers.ConnectionsHandler(d.CDE))
			r.Get("/settings", handlers.GetSettingsHandler(d.CDE))
			r.Put("/settings", handlers.UpdateSettingsHandler(d.CDE))
		})

		// Reports
		r.Get("/reports", handlers.ListReportsHandler(d.Reports))
		r.Post("/reports", handlers.CreateReportHandler(d.Reports))
		r.Route("/reports/{id}", func(r chi.Router) {
			r.Get("/", handlers.GetReportHandler(d.Reports))
			r.Put("/", handlers.UpdateReportHandler(d.Reports))
			r.Delete("/", handlers.DeleteReportHandler(d.Reports))
			r.Get("/grid", handlers.ReportGridHandler(d.Reports))
			r.Post("/grid/ops", handlers.GridOpHandler(d.Reports))
			r.Get("/html", handlers.ReportHTMLHandler(d.Reports))
		})
	})

	return r
}
