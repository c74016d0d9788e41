package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pysugar/cde-nexus/internal/auth/connect"
	"github.com/pysugar/cde-nexus/internal/auth/token"
	"github.com/pysugar/cde-nexus/internal/logging"
	"github.com/pysugar/cde-nexus/internal/providers/catalog"
)

// ProvidersHandler lists catalog providers with their connection state.
func ProvidersHandler(cat *catalog.Catalog, store *token.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		connected := make(map[string]bool)
		for _, id := range store.GetConnectedProviders() {
			connected[id] = true
		}

		providers := make([]map[string]any, 0)
		for _, p := range cat.Providers() {
			providers = append(providers, map[string]any{
				"id":         p.ID,
				"name":       p.Name,
				"enabled":    p.Enabled,
				"configured": p.Configured,
				"connected":  connected[p.ID],
				"login_url":  connect.LoginPath(p.ID),
			})
		}

		writeJSON(w, http.StatusOK, map[string]any{"providers": providers})
	}
}

// DisconnectHandler forgets a provider's tokens.
func DisconnectHandler(store *token.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		provider := chi.URLParam(r, "provider")
		if err := store.RemoveProviderTokens(provider); err != nil {
			logging.Printf(r.Context(), "⚠️ Failed to remove tokens for %s: %v", provider, err)
			writeError(w, http.StatusInternalServerError, "failed to remove tokens")
			return
		}
		logging.Printf(r.Context(), "🔌 Disconnected provider: %s", provider)
		w.WriteHeader(http.StatusNoContent)
	}
}

// RefreshHandler forces a token refresh for one provider.
func RefreshHandler(store *token.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		provider := chi.URLParam(r, "provider")
		if !store.IsProviderConnected(provider) {
			writeError(w, http.StatusNotFound, "provider not connected")
			return
		}

		tok, ok := store.Refresh(r.Context(), provider)
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]any{
				"error":     map[string]string{"message": "refresh failed", "type": "reauthorization_required"},
				"login_url": connect.LoginPath(provider),
				"connected": store.IsProviderConnected(provider),
			})
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"status":     "ok",
			"provider":   provider,
			"expires_at": tok.ExpiresAt(),
		})
	}
}
