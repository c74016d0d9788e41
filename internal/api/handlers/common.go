package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pysugar/cde-nexus/internal/auth/connect"
	"github.com/pysugar/cde-nexus/internal/cde"
	"github.com/pysugar/cde-nexus/internal/logging"
	"github.com/pysugar/cde-nexus/internal/report"
	"github.com/pysugar/cde-nexus/internal/report/grid"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{"message": message},
	})
}

// writeReportError maps report/grid errors to HTTP statuses.
func writeReportError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, report.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, report.ErrInvalidFormat),
		errors.Is(err, grid.ErrMalformedContent),
		errors.Is(err, grid.ErrUnknownOp):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, report.ErrNotTabular), errors.Is(err, report.ErrNotNarrative):
		writeError(w, http.StatusConflict, err.Error())
	default:
		logging.Printf(r.Context(), "❌ Report request failed: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// writeCDEError maps provider errors. Credential problems become 401 with the
// login URL so the client can send the user through the connect flow again.
func writeCDEError(w http.ResponseWriter, r *http.Request, provider string, err error) {
	switch {
	case errors.Is(err, cde.ErrNotConnected), errors.Is(err, cde.ErrUnauthorized):
		writeJSON(w, http.StatusUnauthorized, map[string]any{
			"error": map[string]string{
				"message": err.Error(),
				"type":    "reauthorization_required",
			},
			"login_url": connect.LoginPath(provider),
		})
	default:
		logging.Printf(r.Context(), "❌ %s request failed: %v", provider, err)
		writeError(w, http.StatusBadGateway, err.Error())
	}
}
