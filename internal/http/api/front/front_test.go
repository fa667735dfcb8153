package front

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/adcopysurge/backend/internal/analysis"
	"github.com/adcopysurge/backend/internal/credits"
	"github.com/adcopysurge/backend/internal/db"
	"github.com/adcopysurge/backend/internal/ratelimit"
	"github.com/adcopysurge/backend/internal/scoring"

	"github.com/gin-gonic/gin"
)

const sampleAd = `{"headline":"Save 30% on project software","body_text":"Join 10,000 teams who ship faster with our planner. Free setup and a 30-day money back guarantee.","cta":"Start your free trial","platform":"facebook"}`

func newTestRouter(t *testing.T, rl ratelimit.SettingsConfig) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	conn, err := db.Open(db.BuildSQLiteDSN(filepath.Join(t.TempDir(), "front.db")))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	tierOf := credits.StaticTier(credits.TierFree)
	ledger := credits.NewLedger(conn, tierOf)
	service := analysis.NewService(conn, ledger, scoring.NewCalibrator(scoring.DefaultConfig()), nil)

	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	provider := func() ratelimit.SettingsConfig { return rl }
	manager := ratelimit.NewManager(provider, func() time.Time { return now }, nil)
	t.Cleanup(func() { _ = manager.Close() })

	r := gin.New()
	RegisterFrontRoutes(r, Deps{
		Credits:  ledger,
		Analyzer: service,
		Limiter:  manager,
		Resolver: ratelimit.NewResolver(provider, tierOf),
	})
	return r
}

func doRequest(r *gin.Engine, method, path, userID, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set(HeaderUserID, userID)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return out
}

func TestFrontRoutes_RequireUserHeader(t *testing.T) {
	r := newTestRouter(t, ratelimit.SettingsConfig{})
	w := doRequest(r, http.MethodGet, "/v0/front/credits", "", "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestFrontRoutes_AnalyzeListAndGet(t *testing.T) {
	r := newTestRouter(t, ratelimit.SettingsConfig{})

	w := doRequest(r, http.MethodGet, "/v0/front/credits", "user-1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("credits: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	balance := decode(t, w)["balance"].(map[string]any)
	if balance["credits"].(float64) != 5 || balance["tier"] != "free" {
		t.Fatalf("unexpected balance: %v", balance)
	}

	w = doRequest(r, http.MethodPost, "/v0/front/analyses", "user-1", sampleAd)
	if w.Code != http.StatusCreated {
		t.Fatalf("analyze: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	created := decode(t, w)
	if created["remaining_credits"].(float64) != 4 {
		t.Fatalf("expected 4 remaining credits, got %v", created["remaining_credits"])
	}
	view := created["analysis"].(map[string]any)
	id := view["id"].(string)
	score := view["overall_score"].(float64)
	if score < 10 || score > 100 {
		t.Fatalf("overall score out of range: %v", score)
	}
	if _, ok := created["notice"]; ok {
		t.Fatalf("unexpected notice without alternatives: %v", created["notice"])
	}

	w = doRequest(r, http.MethodGet, "/v0/front/analyses?q=PROJECT", "user-1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", w.Code)
	}
	if total := decode(t, w)["total"].(float64); total != 1 {
		t.Fatalf("expected 1 analysis, got %v", total)
	}

	w = doRequest(r, http.MethodGet, "/v0/front/analyses/"+id, "user-1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", w.Code)
	}
	w = doRequest(r, http.MethodGet, "/v0/front/analyses/"+id, "user-2", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("get other user: expected 404, got %d", w.Code)
	}

	w = doRequest(r, http.MethodGet, "/v0/front/credits/transactions?limit=10", "user-1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("transactions: expected 200, got %d", w.Code)
	}
	rows := decode(t, w)["transactions"].([]any)
	if len(rows) != 2 {
		t.Fatalf("expected grant and charge rows, got %d", len(rows))
	}
	if first := rows[0].(map[string]any); first["operation"] != "charge" || first["amount"].(float64) != -1 {
		t.Fatalf("unexpected newest row: %v", first)
	}
}

func TestFrontRoutes_InvalidInput(t *testing.T) {
	r := newTestRouter(t, ratelimit.SettingsConfig{})
	w := doRequest(r, http.MethodPost, "/v0/front/analyses", "user-1", `{"headline":"Hi","body_text":"Body","platform":"myspace"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	w = doRequest(r, http.MethodPost, "/v0/front/analyses", "user-1", `{not json`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad json, got %d", w.Code)
	}

	w = doRequest(r, http.MethodGet, "/v0/front/credits", "user-1", "")
	if got := decode(t, w)["balance"].(map[string]any)["credits"].(float64); got != 5 {
		t.Fatalf("invalid input must not charge, got %v credits", got)
	}
}

func TestFrontRoutes_PaymentRequiredWhenExhausted(t *testing.T) {
	r := newTestRouter(t, ratelimit.SettingsConfig{})
	for i := 0; i < 5; i++ {
		if w := doRequest(r, http.MethodPost, "/v0/front/analyses", "user-1", sampleAd); w.Code != http.StatusCreated {
			t.Fatalf("analysis %d: expected 201, got %d", i, w.Code)
		}
	}
	w := doRequest(r, http.MethodPost, "/v0/front/analyses", "user-1", sampleAd)
	if w.Code != http.StatusPaymentRequired {
		t.Fatalf("expected 402, got %d: %s", w.Code, w.Body.String())
	}
	body := decode(t, w)
	if body["required"].(float64) != 1 || body["available"].(float64) != 0 {
		t.Fatalf("unexpected 402 body: %v", body)
	}
}

func TestFrontRoutes_RateLimited(t *testing.T) {
	r := newTestRouter(t, ratelimit.SettingsConfig{OpLimits: map[string]int{"basic_analysis": 1}})
	if w := doRequest(r, http.MethodPost, "/v0/front/analyses", "user-1", sampleAd); w.Code != http.StatusCreated {
		t.Fatalf("first: expected 201, got %d", w.Code)
	}
	w := doRequest(r, http.MethodPost, "/v0/front/analyses", "user-1", sampleAd)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("second: expected 429, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}

	w = doRequest(r, http.MethodGet, "/v0/front/credits", "user-1", "")
	if got := decode(t, w)["balance"].(map[string]any)["credits"].(float64); got != 4 {
		t.Fatalf("rate limited request must not charge, got %v credits", got)
	}
}
