package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-email-collector/internal/fault"
)

func TestConsumes(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name     string
		ct       string
		wantPass bool
		wantType string
	}{
		{"json", "application/json", true, ""},
		{"json_charset", "application/json; charset=utf-8", true, ""},
		{"json_upper", "Application/JSON", true, ""},
		{"text", "text/plain", false, "text/plain"},
		{"missing", "", false, "application/octet-stream"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var (
				called bool
				errs   []*gin.Error
			)
			r := gin.New()
			r.Use(func(c *gin.Context) {
				c.Next()
				errs = c.Errors
			})
			r.POST("/", Consumes("application/json"), func(c *gin.Context) {
				called = true
				c.Status(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`))
			if tc.ct != "" {
				req.Header.Set("Content-Type", tc.ct)
			}
			r.ServeHTTP(httptest.NewRecorder(), req)

			if called != tc.wantPass {
				t.Fatalf("handler called=%v, want %v", called, tc.wantPass)
			}
			if tc.wantPass {
				return
			}
			if len(errs) != 1 {
				t.Fatalf("expected one recorded error, got %d", len(errs))
			}
			var mt *fault.MediaTypeError
			if !errors.As(errs[0].Err, &mt) {
				t.Fatalf("expected MediaTypeError, got %T", errs[0].Err)
			}
			if mt.ContentType != tc.wantType || len(mt.Supported) != 1 || mt.Supported[0] != "application/json" {
				t.Fatalf("unexpected error: %+v", mt)
			}
		})
	}
}
