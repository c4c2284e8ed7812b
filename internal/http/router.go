// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, idempotency, and rate limiting.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/portal-rpa/docs"
	"github.com/tbourn/portal-rpa/internal/config"
	"github.com/tbourn/portal-rpa/internal/http/handlers"
	"github.com/tbourn/portal-rpa/internal/http/middleware"
	"github.com/tbourn/portal-rpa/internal/repo"
)

// Deps are the services the routes dispatch to.
type Deps struct {
	// DB holds completed submission results. When nil, Idempotency-Key
	// headers are still validated but never detected as replays here.
	DB *gorm.DB

	Alloc    handlers.IDAllocator
	Subs     handlers.Submitter
	Records  handlers.Records
	Settings handlers.Settings

	// Registry receives the HTTP collectors and backs /metrics. Nil means
	// the process-wide default registry.
	Registry *prometheus.Registry
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter and gzip
//  6. Metrics
//  7. Idempotency validator (before rate limiter to allow bypass on replay)
//  8. Rate limiter (per client IP, bypass on replay)
//  9. CORS and Security headers
func RegisterRoutes(r *gin.Engine, cfg config.Config, d Deps) error {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{middleware.HeaderIdempotencyKey},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB); compress responses
	r.Use(limitBody(1 << 20))
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	// 6) Prometheus metrics and /metrics endpoint
	var (
		reg      prometheus.Registerer = prometheus.DefaultRegisterer
		gatherer prometheus.Gatherer   = prometheus.DefaultGatherer
	)
	if d.Registry != nil {
		reg, gatherer = d.Registry, d.Registry
	}
	hm, err := middleware.NewHTTPMetrics(reg)
	if err != nil {
		return err
	}
	r.Use(hm.Handler())
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	// 7) Idempotency validation (before rate limiting)
	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{MaxLen: 200},
		replayLookup(d.DB),
	))

	// 8) Token-bucket rate limiter per client IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByClientIP())
	r.Use(rl.Handler())

	// 9) CORS posture (allow all if none configured)
	r.Use(corsMiddleware(cfg.CORS.AllowedOrigins)...)

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      true,
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

	if cfg.SwaggerEnabled {
		docs.SwaggerInfo.BasePath = cfg.APIBasePath
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	h := handlers.New(d.Alloc, d.Subs, d.Records, d.Settings)

	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		api.POST("/generate-id", h.GenerateID)

		api.POST("/submissions/company", h.SubmitCompany)
		api.POST("/submissions/individual", h.SubmitIndividual)
	}

	admin := api.Group("", middleware.APIKey(cfg.APIKey))
	{
		admin.GET("/config", h.GetConfig)
		admin.PUT("/config", h.PutConfig)

		admin.GET("/db/counter-state", h.CounterState)
		admin.GET("/db/id-mappings", h.ListIDMappings)
	}
	return nil
}

// replayLookup reports whether a non-expired result exists for the route's
// kind and key. Lookup errors read as "not found"; the service checks again.
func replayLookup(db *gorm.DB) middleware.IdempotencyLookup {
	if db == nil {
		return nil
	}
	return func(ctx context.Context, kind, key string, now time.Time) (bool, error) {
		rec, err := repo.GetSubmissionResult(ctx, db, kind, key, now)
		if err != nil || rec == nil {
			return false, nil
		}
		return true, nil
	}
}

func corsMiddleware(origins []string) []gin.HandlerFunc {
	base := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders: []string{
			"Origin", "Content-Type", "Accept",
			middleware.HeaderAPIKey, middleware.HeaderIdempotencyKey,
		},
		ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "Retry-After", "Idempotency-Replayed"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}

	if len(origins) == 0 {
		base.AllowAllOrigins = true
		return []gin.HandlerFunc{
			// ACAO: * even without an Origin header, for health checks.
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

// limitBody caps the request body at maxBytes. Reads past the cap fail.
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
