package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/adcopysurge/backend/internal/credits"
	"github.com/adcopysurge/backend/internal/db"

	"github.com/gin-gonic/gin"
)

const testToken = "s3cret"

func newTestRouter(t *testing.T, token string) (*gin.Engine, *credits.Ledger) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	conn, err := db.Open(db.BuildSQLiteDSN(filepath.Join(t.TempDir(), "admin.db")))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	ledger := credits.NewLedger(conn, credits.StaticTier(credits.TierGrowth))
	r := gin.New()
	RegisterAdminRoutes(r, conn, ledger, token)
	return r, ledger
}

func doAdmin(r *gin.Engine, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthzAndMetrics(t *testing.T) {
	r, _ := newTestRouter(t, "")
	if w := doAdmin(r, http.MethodGet, "/healthz", "", ""); w.Code != http.StatusOK {
		t.Fatalf("healthz: expected 200, got %d", w.Code)
	}
	if w := doAdmin(r, http.MethodGet, "/metrics", "", ""); w.Code != http.StatusOK {
		t.Fatalf("metrics: expected 200, got %d", w.Code)
	}
}

func TestAdminRoutes_DisabledWithoutToken(t *testing.T) {
	r, _ := newTestRouter(t, "")
	w := doAdmin(r, http.MethodPost, "/v0/admin/credits/user-1/bonus", "anything", `{"amount":5}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 when admin routes are disabled, got %d", w.Code)
	}
}

func TestAdminRoutes_RejectBadToken(t *testing.T) {
	r, _ := newTestRouter(t, testToken)
	cases := []struct {
		name   string
		header string
	}{
		{"missing", ""},
		{"wrong", "Bearer nope"},
		{"scheme", "Token " + testToken},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/v0/admin/credits/user-1", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", tc.name, w.Code)
		}
	}
}

func TestAdminRoutes_BonusResetAndReconcile(t *testing.T) {
	r, ledger := newTestRouter(t, testToken)

	w := doAdmin(r, http.MethodPost, "/v0/admin/credits/user-1/bonus", testToken, `{"amount":25,"reason":"support"}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("bonus before account exists: expected 404, got %d", w.Code)
	}

	if _, err := ledger.GetBalance(context.Background(), "user-1"); err != nil {
		t.Fatalf("get balance: %v", err)
	}
	w = doAdmin(r, http.MethodPost, "/v0/admin/credits/user-1/bonus", testToken, `{"amount":25,"reason":"support"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("bonus: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	w = doAdmin(r, http.MethodPost, "/v0/admin/credits/user-1/bonus", testToken, `{"amount":0}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("zero bonus: expected 400, got %d", w.Code)
	}

	w = doAdmin(r, http.MethodGet, "/v0/admin/credits/user-1", testToken, "")
	if w.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", w.Code)
	}
	var got map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["credits"].(float64) != 125 || got["drift"].(float64) != 0 {
		t.Fatalf("unexpected account view: %v", got)
	}

	w = doAdmin(r, http.MethodPost, "/v0/admin/credits/user-1/reset", testToken, `{"tier":"gold"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("unknown tier: expected 400, got %d", w.Code)
	}
	w = doAdmin(r, http.MethodPost, "/v0/admin/credits/user-1/reset", testToken, `{"tier":"agency-unlimited"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("reset: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["unlimited"] != true || got["credits"].(float64) != float64(credits.UnlimitedDisplayCredits) {
		t.Fatalf("unexpected reset view: %v", got)
	}
}
