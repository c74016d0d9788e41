package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pysugar/cde-nexus/internal/cde"
)

func ProjectsHandler(client *cde.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		provider := chi.URLParam(r, "provider")
		projects, err := client.ListProjects(r.Context(), provider)
		if err != nil {
			writeCDEError(w, r, provider, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"projects": projects})
	}
}

func ConnectionsHandler(client *cde.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		provider := chi.URLParam(r, "provider")
		conns, err := client.ListConnections(r.Context(), provider)
		if err != nil {
			writeCDEError(w, r, provider, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"connections": conns})
	}
}

func GetSettingsHandler(client *cde.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		provider := chi.URLParam(r, "provider")
		settings, err := client.GetUserSettings(r.Context(), provider)
		if err != nil {
			writeCDEError(w, r, provider, err)
			return
		}
		writeJSON(w, http.StatusOK, settings)
	}
}

func UpdateSettingsHandler(client *cde.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		provider := chi.URLParam(r, "provider")
		var in cde.UserSettings
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&in); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		settings, err := client.UpdateUserSettings(r.Context(), provider, in)
		if err != nil {
			writeCDEError(w, r, provider, err)
			return
		}
		writeJSON(w, http.StatusOK, settings)
	}
}
