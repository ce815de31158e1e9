package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tendant/simple-org-slim/internal/config"
	"github.com/tendant/simple-org-slim/internal/http/features/health"
	"github.com/tendant/simple-org-slim/internal/http/features/me"
	"github.com/tendant/simple-org-slim/internal/http/features/org"
	"github.com/tendant/simple-org-slim/internal/http/features/session"
	"github.com/tendant/simple-org-slim/internal/http/middleware"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Logger          *slog.Logger
	Lifecycle       org.Lifecycle
	Sessions        session.Authenticator
	Tokens          middleware.TokenValidator
	Admins          me.AdminFinder
	Organizations   me.OrganizationFinder
	RateLimitConfig config.RateLimitConfig
	SecurityHeaders config.SecurityHeadersConfig
	Validation      config.ValidationConfig
	MetricsEnabled  bool
}

// NewRouter creates a new HTTP router with all routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	r := chi.NewRouter()

	// Apply global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.Recover(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))
	if cfg.MetricsEnabled {
		r.Use(middleware.Metrics())
	}
	r.Use(middleware.SecurityHeaders(cfg.SecurityHeaders))
	r.Use(middleware.RequestSizeLimit(cfg.Validation.MaxRequestBodySize))

	// Health check
	r.Get("/", health.Check)
	r.Get("/health", health.Check)

	if cfg.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	rateLimiters := middleware.CreateRateLimiters(cfg.RateLimitConfig, cfg.Logger)
	requireAdmin := middleware.Auth(cfg.Tokens)

	// Organization routes
	orgHandler := org.NewHandler(cfg.Logger, cfg.Lifecycle)
	r.Route("/org", func(r chi.Router) {
		r.Use(rateLimiters[middleware.LimiterOrg])
		r.Post("/create", orgHandler.Create)
		r.Get("/get", orgHandler.Get)

		r.Group(func(r chi.Router) {
			r.Use(requireAdmin)
			r.Put("/update", orgHandler.Update)
			r.Delete("/delete", orgHandler.Delete)
		})
	})

	// Admin session routes
	sessionHandler := session.NewHandler(cfg.Logger, cfg.Sessions)
	meHandler := me.NewHandler(cfg.Logger, cfg.Admins, cfg.Organizations)
	r.Route("/admin", func(r chi.Router) {
		r.With(rateLimiters[middleware.LimiterAuth]).Post("/login", sessionHandler.Login)
		r.With(requireAdmin).Get("/me", meHandler.GetMe)
	})

	return r
}
