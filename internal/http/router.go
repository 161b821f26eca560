// Package httpapi wires the HTTP transport (Gin) to the email service,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, error classification,
// panic recovery, metrics, compression, CORS and security headers.
//
// Every failure on every route, including unknown routes and wrong methods,
// leaves through handlers.ErrorHandler and is answered with the standard
// error envelope.
package httpapi

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	_ "github.com/tbourn/go-email-collector/docs"
	"github.com/tbourn/go-email-collector/internal/config"
	"github.com/tbourn/go-email-collector/internal/domain"
	"github.com/tbourn/go-email-collector/internal/fault"
	"github.com/tbourn/go-email-collector/internal/http/handlers"
	"github.com/tbourn/go-email-collector/internal/http/middleware"
	"github.com/tbourn/go-email-collector/internal/repo"
	"github.com/tbourn/go-email-collector/internal/services"
)

// emailRepoShim adapts the repository free functions to the
// services.EmailRepo interface expected by the EmailService.
type emailRepoShim struct{}

// FindEmailByName proxies repo.FindEmailByName.
func (emailRepoShim) FindEmailByName(ctx context.Context, db *gorm.DB, name string) (*domain.Email, error) {
	return repo.FindEmailByName(ctx, db, name)
}

// SaveEmail proxies repo.SaveEmail.
func (emailRepoShim) SaveEmail(ctx context.Context, db *gorm.DB, e *domain.Email) (*domain.Email, error) {
	return repo.SaveEmail(ctx, db, e)
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Logger: structured access log with PII scrubbing
//  4. Metrics: sees the final status written below it
//  5. Gzip (optional): wraps the writer the envelope is written through
//  6. ErrorHandler: classifies recorded errors into the envelope
//  7. Recovery: turns panics into recorded errors
//  8. Body size limiter
//  9. CORS and security headers
func RegisterRoutes(r *gin.Engine, db *gorm.DB, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(middleware.RedactOptions{
		MaskHeaders: []string{"X-API-Key"},
	}))
	r.Use(middleware.Metrics())
	if cfg.GzipEnabled {
		r.Use(gzip.Gzip(gzip.DefaultCompression))
	}
	r.Use(handlers.ErrorHandler())
	r.Use(middleware.Recovery())
	r.Use(limitBody(cfg.MaxBodyBytes))
	r.Use(corsHandlers(cfg.CORS.AllowedOrigins)...)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS: cfg.Security.EnableHSTS,
		HSTSMaxAge: cfg.Security.HSTSMaxAge,
		NoStore:    true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, &fault.RouteNotFoundError{Method: c.Request.Method, URL: c.Request.URL.Path})
	})
	r.NoMethod(func(c *gin.Context) {
		allowed := allowedMethods(r, c.Request.URL.Path)
		c.Header("Allow", strings.Join(allowed, ", "))
		handlers.Fail(c, &fault.MethodNotAllowedError{Method: c.Request.Method, Supported: allowed})
	})

	// Liveness/health, including a DB round trip.
	r.GET("/health", func(c *gin.Context) {
		if err := pingDB(c.Request.Context(), db); err != nil {
			handlers.Fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: service ← repo/db
	h := handlers.New(services.NewEmailService(db, emailRepoShim{}))

	r.POST("/", middleware.Consumes("application/json"), h.SubmitEmail)
	r.GET("/emails", h.GetEmail)
}

// corsHandlers returns the CORS middleware chain. With no configured origins
// every origin is allowed; otherwise the request Origin is echoed only when
// it is on the allowlist.
func corsHandlers(origins []string) []gin.HandlerFunc {
	base := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-Request-ID"},
		ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}

	if len(origins) == 0 {
		base.AllowAllOrigins = true
		return []gin.HandlerFunc{
			// Set ACAO even without an Origin header (simple health checks).
			func(c *gin.Context) {
				c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
				c.Next()
			},
			cors.New(base),
		}
	}

	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	base.AllowOrigins = origins
	return []gin.HandlerFunc{
		func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		},
		cors.New(base),
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}

// allowedMethods lists, sorted, the methods registered for routes matching
// path.
func allowedMethods(r *gin.Engine, path string) []string {
	seen := map[string]struct{}{}
	for _, ri := range r.Routes() {
		if matchRoute(ri.Path, path) {
			seen[ri.Method] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for m := range seen {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// matchRoute reports whether path fits a Gin route pattern. ":name"
// matches one non-empty segment and "*name" matches the rest.
func matchRoute(pattern, path string) bool {
	ps := strings.Split(strings.Trim(pattern, "/"), "/")
	xs := strings.Split(strings.Trim(path, "/"), "/")
	for i, seg := range ps {
		if strings.HasPrefix(seg, "*") {
			return true
		}
		if i >= len(xs) {
			return false
		}
		if strings.HasPrefix(seg, ":") {
			if xs[i] == "" {
				return false
			}
			continue
		}
		if seg != xs[i] {
			return false
		}
	}
	return len(ps) == len(xs)
}

func pingDB(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return sqlDB.PingContext(ctx)
}
