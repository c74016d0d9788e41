package handlers

import (
	"net/http"

	"github.com/pysugar/cde-nexus/internal/db"
	"github.com/pysugar/cde-nexus/internal/version"
	"gorm.io/gorm"
)

// RegenerateAPIKeyHandler issues a new API key; the old one stops working immediately.
func RegenerateAPIKeyHandler(database *gorm.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"api_key": db.RegenerateAPIKey(database)})
	}
}

func VersionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, version.Info())
	}
}
