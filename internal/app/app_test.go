package app

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/adcopysurge/backend/internal/config"
	"github.com/adcopysurge/backend/internal/db"
)

func TestNewEngine_WiresRoutes(t *testing.T) {
	conn, err := db.Open(db.BuildSQLiteDSN(filepath.Join(t.TempDir(), "app.db")))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	cfg := config.Default()
	cfg.AdminToken = "token"
	deps := buildComponents(conn, cfg)
	t.Cleanup(func() { _ = deps.limiter.Close() })
	engine := newEngine(conn, cfg, deps)

	cases := []struct {
		method string
		path   string
		header map[string]string
		want   int
	}{
		{http.MethodGet, "/healthz", nil, http.StatusOK},
		{http.MethodOptions, "/v0/front/analyses", nil, http.StatusNoContent},
		{http.MethodGet, "/v0/front/credits", map[string]string{"X-User-ID": "u1"}, http.StatusOK},
		{http.MethodGet, "/v0/front/credits", nil, http.StatusUnauthorized},
		{http.MethodGet, "/v0/admin/credits/u1", map[string]string{"Authorization": "Bearer token"}, http.StatusOK},
		{http.MethodGet, "/nope", nil, http.StatusNotFound},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(tc.method, tc.path, nil)
		for k, v := range tc.header {
			req.Header.Set(k, v)
		}
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)
		if w.Code != tc.want {
			t.Fatalf("%s %s: expected %d, got %d: %s", tc.method, tc.path, tc.want, w.Code, w.Body.String())
		}
	}
}

func TestBuildComponents_GeneratorDisabledWithoutKey(t *testing.T) {
	conn, err := db.Open(db.BuildSQLiteDSN(filepath.Join(t.TempDir(), "gen.db")))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	deps := buildComponents(conn, config.Default())
	t.Cleanup(func() { _ = deps.limiter.Close() })
	if deps.service == nil || deps.ledger == nil || deps.resolver == nil {
		t.Fatalf("expected all components to be built")
	}
}
