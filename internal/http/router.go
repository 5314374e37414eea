// Package httpapi wires the HTTP transport (Gin) to the application
// services, middleware, and route handlers. It centralizes cross-cutting
// concerns such as tracing, correlation IDs, logging/redaction, panic
// recovery, metrics, CORS, security headers, and rate limiting.
//
// Design goals:
//   - Observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/acervopress/go-newsstand-backend/internal/auth"
	"github.com/acervopress/go-newsstand-backend/internal/catalog"
	"github.com/acervopress/go-newsstand-backend/internal/config"
	"github.com/acervopress/go-newsstand-backend/internal/downloads"
	"github.com/acervopress/go-newsstand-backend/internal/entitlements"
	"github.com/acervopress/go-newsstand-backend/internal/http/handlers"
	"github.com/acervopress/go-newsstand-backend/internal/http/middleware"
	"github.com/acervopress/go-newsstand-backend/internal/payments"
)

// Deps carries everything the router needs. DB may be nil when the catalog
// is served remotely; Remote may be nil when the catalog is local-only.
type Deps struct {
	DB       *gorm.DB
	Remote   *catalog.Client
	Payments *payments.Service
	Records  *entitlements.Service
	Auth     *auth.Service
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given
// Gin engine.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with buyer data scrubbed
//  4. Recovery: capture panics after logging
//  5. Body size limiter
//  6. Gzip compression for catalog payloads
//  7. Metrics
//  8. Rate limiter (per admin session/IP)
//  9. CORS and security headers
func RegisterRoutes(r *gin.Engine, deps Deps, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{
			"X-API-Key",
		},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 6) Compress list responses; cover images and PDFs are served
	// elsewhere so there is nothing incompressible on this surface.
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	// 7) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 8) Token-bucket rate limiter per admin session/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyBySessionOrIP())
	r.Use(rl.Handler())

	// 9) CORS posture. Credentials (the session cookie) are only allowed
	// with an explicit origin allowlist; the wildcard fallback stays
	// credential-free.
	if len(cfg.CORS.AllowedOrigins) == 0 {
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "ETag"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "ETag"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Dependency injection: handlers ← services
	lookup := &catalog.Lookup{DB: deps.DB, Client: deps.Remote}
	dlSvc := &downloads.Service{
		Transactions: deps.Payments,
		Recorder:     deps.Records,
		Items:        lookup,
		AssetBaseURL: cfg.AssetBaseURL,
	}
	h := handlers.New(lookup, deps.Payments, deps.Records, dlSvc, deps.Auth,
		deps.DB, deps.Remote, cfg.Security.EnableHSTS)

	// Public API
	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		// Catalog
		api.GET("/issues", h.ListIssues)
		api.GET("/issues/:id", h.GetIssue)

		// Checkout
		api.POST("/checkout", h.Checkout)
		api.POST("/checkout/confirm", h.ConfirmCheckout)

		// Purchases and downloads
		api.POST("/purchases", h.RecordPurchase)
		api.POST("/downloads", h.ResolveDownload)

		// Administration
		admin := api.Group("/admin")
		admin.POST("/login", h.AdminLogin)
		guarded := admin.Group("")
		guarded.Use(h.RequireAdmin())
		{
			guarded.GET("/session", h.AdminSession)
			guarded.POST("/logout", h.AdminLogout)
			guarded.POST("/issues", h.CreateIssue)
			guarded.PUT("/issues/:id", h.UpdateIssue)
			guarded.DELETE("/issues/:id", h.DeleteIssue)
		}
	}
}

// limitBody caps the request body for all endpoints via http.MaxBytesReader.
// Reads beyond the cap error downstream.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
