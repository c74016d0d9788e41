package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/pysugar/cde-nexus/internal/auth/connect"
	"github.com/pysugar/cde-nexus/internal/auth/token"
	"github.com/pysugar/cde-nexus/internal/cde"
	"github.com/pysugar/cde-nexus/internal/db"
	"github.com/pysugar/cde-nexus/internal/providers/catalog"
	"github.com/pysugar/cde-nexus/internal/report"
	"github.com/pysugar/cde-nexus/internal/report/grid"
	"gorm.io/gorm"
)

type testEnv struct {
	router http.Handler
	tokens *token.Store
}

func newTestEnv(t *testing.T, cdeURL string) *testEnv {
	t.Helper()
	database, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	sqlDB, err := database.DB()
	if err != nil {
		t.Fatalf("failed to get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	if err := db.Migrate(database); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	cat := catalog.New([]catalog.ProviderConfig{{
		ID:         "box",
		Name:       "Box",
		AuthURL:    "https://account.box.com/api/oauth2/authorize",
		TokenURL:   "https://api.box.com/oauth2/token",
		APIBaseURL: cdeURL,
		ClientID:   "client",
	}})
	tokens := token.NewStore(db.NewSettingsSlot(database), token.NewOAuthRefresher(cat, nil))

	return &testEnv{
		tokens: tokens,
		router: NewRouter(Deps{
			DB:      database,
			Catalog: cat,
			Tokens:  tokens,
			Connect: connect.NewFlow(cat, tokens, nil),
			Reports: report.NewService(database),
			CDE:     cde.NewClient(tokens, cat, nil),
		}),
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestTabularReportLifecycle(t *testing.T) {
	env := newTestEnv(t, "http://unused.invalid")

	rec := env.do(t, "POST", "/api/reports", map[string]string{"project_id": "p1", "title": "Snags", "format": "tabular"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
	}
	created := decode[struct {
		ID string `json:"id"`
	}](t, rec)

	rec = env.do(t, "GET", "/api/reports/"+created.ID+"/grid", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("grid: %d %s", rec.Code, rec.Body.String())
	}
	g := decode[grid.Grid](t, rec)
	if rows, cols := g.Shape(); rows != 6 || cols != 5 {
		t.Fatalf("expected default grid, got %dx%d", rows, cols)
	}

	op := grid.Op{Op: grid.OpSetCell, RowID: g.Rows[1].ID, CellID: g.Rows[1].Cells[0].ID, Value: "Cracked tile"}
	rec = env.do(t, "POST", "/api/reports/"+created.ID+"/grid/ops", op)
	if rec.Code != http.StatusOK {
		t.Fatalf("grid op: %d %s", rec.Code, rec.Body.String())
	}
	opResp := decode[struct {
		Result grid.Result `json:"result"`
	}](t, rec)
	if !opResp.Result.Changed {
		t.Fatal("expected set_cell to change the grid")
	}

	rec = env.do(t, "GET", "/api/reports/"+created.ID, nil)
	if !strings.Contains(rec.Body.String(), "Cracked tile") {
		t.Fatalf("expected saved content, got %s", rec.Body.String())
	}

	// The grid as served can be saved back as the report content.
	rec = env.do(t, "GET", "/api/reports/"+created.ID+"/grid", nil)
	served := rec.Body.String()
	rec = env.do(t, "PUT", "/api/reports/"+created.ID, map[string]string{"content": served})
	if rec.Code != http.StatusOK {
		t.Fatalf("saving served grid: %d %s", rec.Code, rec.Body.String())
	}
	rec = env.do(t, "GET", "/api/reports/"+created.ID+"/grid", nil)
	if saved := decode[grid.Grid](t, rec); saved.Rows[1].Cells[0].Value != "Cracked tile" || saved.Rows[1].ID != g.Rows[1].ID {
		t.Fatalf("unexpected grid after save: %s", rec.Body.String())
	}

	rec = env.do(t, "POST", "/api/reports/"+created.ID+"/grid/ops", grid.Op{Op: "split"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown op, got %d", rec.Code)
	}

	rec = env.do(t, "PUT", "/api/reports/"+created.ID, map[string]string{"content": "plain text"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed tabular content, got %d", rec.Code)
	}

	rec = env.do(t, "GET", "/api/reports/"+created.ID+"/html", nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 rendering a tabular report, got %d", rec.Code)
	}

	rec = env.do(t, "DELETE", "/api/reports/"+created.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: %d", rec.Code)
	}
	rec = env.do(t, "GET", "/api/reports/"+created.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestNarrativeReportHTML(t *testing.T) {
	env := newTestEnv(t, "http://unused.invalid")

	rec := env.do(t, "POST", "/api/reports", map[string]string{"title": "Diary", "content": "## Weather\n\nRain"})
	created := decode[struct {
		ID string `json:"id"`
	}](t, rec)

	rec = env.do(t, "GET", "/api/reports/"+created.ID+"/html", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "<h2>Weather</h2>") {
		t.Fatalf("unexpected html response: %d %s", rec.Code, rec.Body.String())
	}
}

func TestProviderConnectionAndPassThrough(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer at-box" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode([]cde.Project{{ID: "42", Name: "Hospital wing"}})
	}))
	defer upstream.Close()

	env := newTestEnv(t, upstream.URL)

	type providersResp struct {
		Providers []struct {
			ID        string `json:"id"`
			Connected bool   `json:"connected"`
			LoginURL  string `json:"login_url"`
		} `json:"providers"`
	}

	resp := decode[providersResp](t, env.do(t, "GET", "/api/providers", nil))
	if len(resp.Providers) != 1 || resp.Providers[0].Connected {
		t.Fatalf("expected disconnected box, got %+v", resp.Providers)
	}

	rec := env.do(t, "GET", "/api/cde/box/projects", nil)
	if rec.Code != http.StatusUnauthorized || !strings.Contains(rec.Body.String(), "/auth/box/login") {
		t.Fatalf("expected 401 with login url, got %d %s", rec.Code, rec.Body.String())
	}

	if err := env.tokens.StoreNewTokens("box", token.TokenSet{AccessToken: "at-box", RefreshToken: "rt", ExpiresIn: 3600}); err != nil {
		t.Fatalf("store tokens: %v", err)
	}
	resp = decode[providersResp](t, env.do(t, "GET", "/api/providers", nil))
	if !resp.Providers[0].Connected {
		t.Fatal("expected box to be connected")
	}

	rec = env.do(t, "GET", "/api/cde/box/projects", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Hospital wing") {
		t.Fatalf("unexpected projects response: %d %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, "DELETE", "/api/providers/box", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("disconnect: %d", rec.Code)
	}
	if env.tokens.IsProviderConnected("box") {
		t.Fatal("expected tokens to be removed")
	}

	rec = env.do(t, "POST", "/api/providers/box/refresh", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 refreshing a disconnected provider, got %d", rec.Code)
	}
}

func TestRequestIDEchoed(t *testing.T) {
	env := newTestEnv(t, "http://unused.invalid")
	rec := env.do(t, "GET", "/api/version", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("version: %d", rec.Code)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected request id header")
	}
}
