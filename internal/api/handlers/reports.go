package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pysugar/cde-nexus/internal/report"
	"github.com/pysugar/cde-nexus/internal/report/grid"
)

// maxReportBody bounds report and grid-op request bodies.
const maxReportBody = 4 << 20

func ListReportsHandler(svc *report.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reports, err := svc.List(r.Context(), r.URL.Query().Get("project_id"))
		if err != nil {
			writeReportError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"reports": reports})
	}
}

func CreateReportHandler(svc *report.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in report.NewReport
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxReportBody)).Decode(&in); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		rep, err := svc.Create(r.Context(), in)
		if err != nil {
			writeReportError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, rep)
	}
}

func GetReportHandler(svc *report.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rep, err := svc.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeReportError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, rep)
	}
}

// UpdateReportHandler saves editor content (and optionally a new title).
func UpdateReportHandler(svc *report.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Title   string `json:"title"`
			Content string `json:"content"`
		}
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxReportBody)).Decode(&in); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		rep, err := svc.UpdateContent(r.Context(), chi.URLParam(r, "id"), in.Title, in.Content)
		if err != nil {
			writeReportError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, rep)
	}
}

func DeleteReportHandler(svc *report.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeReportError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func ReportGridHandler(svc *report.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g, err := svc.Grid(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeReportError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, g)
	}
}

// GridOpHandler applies one grid edit and returns the resulting grid.
func GridOpHandler(svc *report.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var op grid.Op
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxReportBody)).Decode(&op); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		g, res, err := svc.ApplyGridOp(r.Context(), chi.URLParam(r, "id"), op)
		if err != nil {
			writeReportError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"result": res,
			"grid":   g,
		})
	}
}

func ReportHTMLHandler(svc *report.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		html, err := svc.RenderHTML(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeReportError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(html))
	}
}
