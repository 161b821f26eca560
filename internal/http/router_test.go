package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-email-collector/internal/config"
	"github.com/tbourn/go-email-collector/internal/domain"
	"github.com/tbourn/go-email-collector/internal/http/handlers"
	"github.com/tbourn/go-email-collector/internal/repo"
)

// --- test DB helper (pure-Go sqlite, no CGO) ---
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:routerdb_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func testConfig() config.Config {
	return config.Config{
		MaxBodyBytes: 1 << 20,
		CORS:         config.CORSConfig{AllowedOrigins: nil},
		Security:     config.SecurityConfig{EnableHSTS: false},
		OTEL:         config.OTELConfig{ServiceName: "test-svc"},
	}
}

func newTestRouter(t *testing.T, cfg config.Config) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)
	r := gin.New()
	RegisterRoutes(r, db, cfg)
	return r, db
}

func do(r http.Handler, method, target, contentType, body string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func envelope(t *testing.T, w *httptest.ResponseRecorder) handlers.ErrorResponse {
	t.Helper()
	var er handlers.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
		t.Fatalf("decode envelope: %v (%s)", err, w.Body.String())
	}
	if er.Code != w.Code {
		t.Fatalf("envelope code %d != status %d", er.Code, w.Code)
	}
	if er.Time.IsZero() {
		t.Fatalf("envelope time must be set")
	}
	if er.RequestID == "" || er.RequestID != w.Header().Get("X-Request-ID") {
		t.Fatalf("envelope request_id %q does not match header %q", er.RequestID, w.Header().Get("X-Request-ID"))
	}
	return er
}

func countEmails(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	if err := db.Model(&domain.Email{}).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

// --- submissions ---

func TestSubmit_StoresLowercasedAndRejectsCaseVariants(t *testing.T) {
	r, db := newTestRouter(t, testConfig())

	w := do(r, http.MethodPost, "/", "application/json", `{"email":"User@Example.com"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("POST / = %d %s", w.Code, w.Body.String())
	}
	var created domain.Email
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Name != "user@example.com" {
		t.Fatalf("stored name = %q", created.Name)
	}
	if _, err := uuid.Parse(created.ID); err != nil {
		t.Fatalf("id not assigned: %q", created.ID)
	}

	// Retrievable under any case.
	w = do(r, http.MethodGet, "/emails?name=USER%40example.COM", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET /emails = %d %s", w.Code, w.Body.String())
	}
	var fetched domain.Email
	_ = json.Unmarshal(w.Body.Bytes(), &fetched)
	if fetched.ID != created.ID {
		t.Fatalf("fetched %+v, want id %s", fetched, created.ID)
	}

	for _, variant := range []string{"USER@EXAMPLE.COM", "user@example.com", "uSeR@eXaMpLe.CoM"} {
		w = do(r, http.MethodPost, "/", "application/json", `{"email":"`+variant+`"}`)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("resubmit %q = %d", variant, w.Code)
		}
		er := envelope(t, w)
		if er.Error != "Email with name '"+variant+"' already exists" || er.Message != er.Error {
			t.Fatalf("unexpected duplicate envelope: %+v", er)
		}
	}
	if n := countEmails(t, db); n != 1 {
		t.Fatalf("expected one stored record, got %d", n)
	}
}

func TestSubmit_MalformedEmails(t *testing.T) {
	r, db := newTestRouter(t, testConfig())

	for _, body := range []string{`{"email":"missing-at.example.com"}`, `{"email":""}`, `{}`} {
		w := do(r, http.MethodPost, "/", "application/json", body)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("%s -> %d", body, w.Code)
		}
		er := envelope(t, w)
		if len(er.Errors) == 0 || !strings.HasPrefix(er.Errors[0], "email: ") {
			t.Fatalf("%s -> errors %q, want an email entry", body, er.Errors)
		}
	}
	if n := countEmails(t, db); n != 0 {
		t.Fatalf("nothing should be stored, got %d", n)
	}
}

func TestSubmit_TypeMismatchAndMissingBody(t *testing.T) {
	r, _ := newTestRouter(t, testConfig())

	w := do(r, http.MethodPost, "/", "application/json", `{"email":true}`)
	if w.Code != http.StatusBadRequest || envelope(t, w).Error != "bool for email should be of type string" {
		t.Fatalf("type mismatch: %d %s", w.Code, w.Body.String())
	}

	w = do(r, http.MethodPost, "/", "application/json", "")
	if w.Code != http.StatusBadRequest || envelope(t, w).Error != "body part is missing" {
		t.Fatalf("missing body: %d %s", w.Code, w.Body.String())
	}
}

func TestSubmit_BodyTooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.MaxBodyBytes = 16
	r, _ := newTestRouter(t, cfg)

	w := do(r, http.MethodPost, "/", "application/json", `{"email":"someone-with-a-long-name@example.com"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("oversized body = %d %s", w.Code, w.Body.String())
	}
	if er := envelope(t, w); !strings.Contains(er.Error, "too large") {
		t.Fatalf("unexpected envelope: %+v", er)
	}
}

// --- routing failures ---

func TestFallbacks_404_405_415(t *testing.T) {
	r, _ := newTestRouter(t, testConfig())

	w := do(r, http.MethodPost, "/nowhere", "application/json", `{}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown route = %d", w.Code)
	}
	if er := envelope(t, w); er.Error != "No handler found for POST /nowhere" {
		t.Fatalf("404 envelope: %+v", er)
	}

	w = do(r, http.MethodGet, "/", "", "")
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET / = %d", w.Code)
	}
	if er := envelope(t, w); er.Error != "GET method is not supported for this request. Supported methods are POST" {
		t.Fatalf("405 envelope: %+v", er)
	}
	if got := w.Header().Get("Allow"); got != "POST" {
		t.Fatalf("Allow = %q", got)
	}

	w = do(r, http.MethodDelete, "/emails", "", "")
	if w.Code != http.StatusMethodNotAllowed ||
		envelope(t, w).Error != "DELETE method is not supported for this request. Supported methods are GET" {
		t.Fatalf("DELETE /emails = %d %s", w.Code, w.Body.String())
	}

	w = do(r, http.MethodPost, "/", "text/plain", `{"email":"a@b.io"}`)
	if w.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("text/plain = %d", w.Code)
	}
	if er := envelope(t, w); er.Error != "text/plain media type is not supported. Supported media types are application/json" {
		t.Fatalf("415 envelope: %+v", er)
	}

	w = do(r, http.MethodPost, "/", "", `{"email":"a@b.io"}`)
	if w.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("no content type = %d", w.Code)
	}
}

func TestGetEmail_MissingAndUnknown(t *testing.T) {
	r, db := newTestRouter(t, testConfig())

	w := do(r, http.MethodGet, "/emails", "", "")
	if w.Code != http.StatusBadRequest || envelope(t, w).Error != "name parameter is missing" {
		t.Fatalf("missing param: %d %s", w.Code, w.Body.String())
	}

	// Repeated misses never write.
	for i := 0; i < 3; i++ {
		w = do(r, http.MethodGet, "/emails?name=ghost%40example.com", "", "")
		if w.Code != http.StatusUnprocessableEntity {
			t.Fatalf("unknown = %d", w.Code)
		}
	}
	if n := countEmails(t, db); n != 0 {
		t.Fatalf("lookups must not write, got %d rows", n)
	}
}

func TestRecovery_PanicBecomes500Envelope(t *testing.T) {
	r, _ := newTestRouter(t, testConfig())
	r.GET("/boom", func(c *gin.Context) { panic("kaboom") })

	w := do(r, http.MethodGet, "/boom", "", "")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("panic = %d", w.Code)
	}
	if er := envelope(t, w); er.Error != "kaboom" {
		t.Fatalf("500 envelope: %+v", er)
	}
}

// --- ambient endpoints ---

func TestHealthMetricsAndCORSAllowAll(t *testing.T) {
	r, _ := newTestRouter(t, testConfig())

	w := do(r, http.MethodGet, "/health", "", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"ok"`) {
		t.Fatalf("GET /health = %d %s", w.Code, w.Body.String())
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("AllowAllOrigins expected '*', got %q", got)
	}
	if w.Header().Get("X-Content-Type-Options") != "nosniff" || w.Header().Get("Cache-Control") != "no-store" {
		t.Fatalf("security headers missing: %#v", w.Header())
	}

	// Generate one failure so the failure counter has a series.
	do(r, http.MethodGet, "/nowhere", "", "")
	w = do(r, http.MethodGet, "/metrics", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET /metrics = %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "http_requests_total") || !strings.Contains(body, `http_failures_total{kind="route_not_found",status="404"}`) {
		t.Fatalf("metrics missing expected series")
	}
}

func TestHealth_DBClosed(t *testing.T) {
	r, db := newTestRouter(t, testConfig())
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db: %v", err)
	}
	_ = sqlDB.Close()

	w := do(r, http.MethodGet, "/health", "", "")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("health with closed db = %d", w.Code)
	}
	envelope(t, w)
}

func TestCORS_Allowlist(t *testing.T) {
	cfg := testConfig()
	cfg.CORS.AllowedOrigins = []string{"https://ok.example"}
	r, _ := newTestRouter(t, cfg)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://ok.example")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://ok.example" {
		t.Fatalf("allowlisted origin not echoed: %q", got)
	}

	// Preflight for the submission endpoint.
	req = httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://ok.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("preflight = %d", w.Code)
	}
}

func TestSwaggerToggle(t *testing.T) {
	r, _ := newTestRouter(t, testConfig())
	if w := do(r, http.MethodGet, "/swagger/doc.json", "", ""); w.Code != http.StatusNotFound {
		t.Fatalf("swagger should be off by default, got %d", w.Code)
	}

	cfg := testConfig()
	cfg.SwaggerEnabled = true
	r, _ = newTestRouter(t, cfg)
	w := do(r, http.MethodGet, "/swagger/doc.json", "", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "/emails") {
		t.Fatalf("swagger doc = %d", w.Code)
	}
}

func TestGzipEnabled(t *testing.T) {
	cfg := testConfig()
	cfg.GzipEnabled = true
	r, _ := newTestRouter(t, cfg)

	req := httptest.NewRequest(http.MethodGet, "/nowhere", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound || w.Header().Get("Content-Encoding") != "gzip" {
		t.Fatalf("expected gzipped 404, got %d %q", w.Code, w.Header().Get("Content-Encoding"))
	}
	if bytes.HasPrefix(w.Body.Bytes(), []byte("{")) {
		t.Fatalf("body was not compressed")
	}
}

// --- helpers ---

func TestMatchRoute(t *testing.T) {
	cases := []struct {
		pattern, path string
		want          bool
	}{
		{"/", "/", true},
		{"/", "/emails", false},
		{"/emails", "/emails", true},
		{"/emails", "/emails/x", false},
		{"/emails/:id", "/emails/42", true},
		{"/emails/:id", "/emails", false},
		{"/swagger/*any", "/swagger/index.html", true},
		{"/swagger/*any", "/swagger/", true},
	}
	for _, tc := range cases {
		if got := matchRoute(tc.pattern, tc.path); got != tc.want {
			t.Fatalf("matchRoute(%q, %q) = %v, want %v", tc.pattern, tc.path, got, tc.want)
		}
	}
}

func TestLimitBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(limitBody(4))
	r.POST("/x", func(c *gin.Context) {
		_, err := io.ReadAll(c.Request.Body)
		if err == nil {
			c.Status(http.StatusOK)
			return
		}
		c.Status(http.StatusRequestEntityTooLarge)
	})
	if w := do(r, http.MethodPost, "/x", "", "abc"); w.Code != http.StatusOK {
		t.Fatalf("small body = %d", w.Code)
	}
	if w := do(r, http.MethodPost, "/x", "", "abcdefgh"); w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("large body = %d", w.Code)
	}
}
