// Package orgsvc assembles the organization management service: document
// store repositories, the tenant collection manager, the lifecycle manager,
// admin sessions and the HTTP routes.
//
// Basic usage:
//
//	store, _ := boltstore.Open("org_management.db")
//	_ = repository.EnsureIndexes(ctx, store)
//
//	svc, err := orgsvc.New(orgsvc.Config{
//	    Store:     store,
//	    JWTSecret: "your-secret-key-at-least-32-chars",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	http.ListenAndServe(":8080", svc.Router())
//
// Operator tools that never issue tokens use NewLifecycle instead:
//
//	manager, err := orgsvc.NewLifecycle(orgsvc.Config{Store: store})
//	report, err := manager.Audit(ctx)
package orgsvc

import (
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/tendant/simple-org-slim/internal/config"
	httpserver "github.com/tendant/simple-org-slim/internal/http"
	"github.com/tendant/simple-org-slim/internal/http/middleware"
	"github.com/tendant/simple-org-slim/internal/telemetry"
	"github.com/tendant/simple-org-slim/pkg/auth"
	"github.com/tendant/simple-org-slim/pkg/docstore"
	"github.com/tendant/simple-org-slim/pkg/lifecycle"
	"github.com/tendant/simple-org-slim/pkg/repository"
	"github.com/tendant/simple-org-slim/pkg/tenant"
)

// Config holds the configuration for the service.
type Config struct {
	// Store is the document store holding metadata and tenant collections (required).
	Store docstore.Store

	// JWTSecret signs access tokens (required by New, min 32 chars).
	JWTSecret string

	// JWTIssuer is the issuer claim in access tokens (default: "simple-org").
	JWTIssuer string

	// AccessTokenTTL is the lifetime of access tokens (default: 15 minutes).
	AccessTokenTTL time.Duration

	// CopyBatchSize bounds the documents held in memory while a rename
	// migrates a tenant collection (default: 500).
	CopyBatchSize int

	// Compensate rolls back completed steps when a later step fails.
	Compensate bool

	PasswordPolicy  config.PasswordPolicyConfig
	Validation      config.ValidationConfig
	RateLimit       config.RateLimitConfig
	SecurityHeaders config.SecurityHeadersConfig

	// MetricsEnabled records Prometheus metrics and serves /metrics.
	MetricsEnabled bool

	// Logger is the structured logger (default: JSON to stdout).
	Logger *slog.Logger
}

// FromConfig builds a service configuration from loaded settings.
func FromConfig(store docstore.Store, cfg *config.Config, logger *slog.Logger) Config {
	return Config{
		Store:           store,
		JWTSecret:       cfg.JWTSecret,
		JWTIssuer:       cfg.JWTIssuer,
		AccessTokenTTL:  cfg.AccessTokenTTL,
		CopyBatchSize:   cfg.Lifecycle.CopyBatchSize,
		Compensate:      cfg.Lifecycle.Compensate,
		PasswordPolicy:  cfg.PasswordPolicy,
		Validation:      cfg.Validation,
		RateLimit:       cfg.RateLimit,
		SecurityHeaders: cfg.SecurityHeaders,
		MetricsEnabled:  cfg.MetricsEnabled,
		Logger:          logger,
	}
}

// Service is an assembled organization management service.
type Service struct {
	config         Config
	orgsRepo       *repository.OrganizationsRepository
	adminsRepo     *repository.AdminsRepository
	tenants        *tenant.Manager
	lifecycle      *lifecycle.Manager
	sessionService *auth.SessionService
}

// New creates a service with the given configuration.
func New(cfg Config) (*Service, error) {
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("orgsvc: JWTSecret is required")
	}
	if len(cfg.JWTSecret) < 32 {
		return nil, errors.New("orgsvc: JWTSecret must be at least 32 characters")
	}
	applyDefaults(&cfg)

	svc := build(cfg)
	svc.sessionService = auth.NewSessionService(auth.SessionConfig{
		AccessTokenTTL: cfg.AccessTokenTTL,
		JWTSecret:      []byte(cfg.JWTSecret),
		Issuer:         cfg.JWTIssuer,
	}, svc.adminsRepo, svc.orgsRepo, auth.NewHasher())

	return svc, nil
}

// NewLifecycle creates only the lifecycle manager. No token secret is needed.
func NewLifecycle(cfg Config) (*lifecycle.Manager, error) {
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	return build(cfg).lifecycle, nil
}

func build(cfg Config) *Service {
	hasher := auth.NewHasher()
	orgsRepo := repository.NewOrganizationsRepository(cfg.Store)
	adminsRepo := repository.NewAdminsRepository(cfg.Store, hasher)

	tenantOpts := []tenant.Option{
		tenant.WithBatchSize(cfg.CopyBatchSize),
		tenant.WithLogger(cfg.Logger),
	}
	opts := lifecycle.Options{
		Compensate:            cfg.Compensate,
		StrictEmailValidation: cfg.Validation.StrictEmailValidation,
		BlockDisposableEmail:  cfg.Validation.BlockDisposableEmail,
		Logger:                cfg.Logger,
	}
	if policy := auth.NewPasswordPolicy(cfg.PasswordPolicy); policy.HasRequirements() {
		opts.PasswordPolicy = policy
	}
	if cfg.MetricsEnabled {
		tenantOpts = append(tenantOpts, tenant.WithCopyObserver(telemetry.ObserveCopiedDocuments))
		opts.Recorder = telemetry.LifecycleRecorder{}
	}

	tenants := tenant.NewManager(cfg.Store, tenantOpts...)

	return &Service{
		config:     cfg,
		orgsRepo:   orgsRepo,
		adminsRepo: adminsRepo,
		tenants:    tenants,
		lifecycle:  lifecycle.NewManager(orgsRepo, adminsRepo, tenants, hasher, opts),
	}
}

// Router returns the HTTP handler with every route mounted:
//
//	GET    /, /health     - Health check
//	GET    /metrics       - Prometheus metrics (if enabled)
//	POST   /org/create    - Create organization and admin
//	GET    /org/get       - Get organization metadata
//	PUT    /org/update    - Rename organization / change admin credentials (protected)
//	DELETE /org/delete    - Delete organization (protected)
//	POST   /admin/login   - Admin login
//	GET    /admin/me      - Acting admin and organization (protected)
func (s *Service) Router() http.Handler {
	return httpserver.NewRouter(httpserver.RouterConfig{
		Logger:          s.config.Logger,
		Lifecycle:       s.lifecycle,
		Sessions:        s.sessionService,
		Tokens:          s.sessionService,
		Admins:          s.adminsRepo,
		Organizations:   s.orgsRepo,
		RateLimitConfig: s.config.RateLimit,
		SecurityHeaders: s.config.SecurityHeaders,
		Validation:      s.config.Validation,
		MetricsEnabled:  s.config.MetricsEnabled,
	})
}

// Lifecycle returns the lifecycle manager for direct use.
func (s *Service) Lifecycle() *lifecycle.Manager {
	return s.lifecycle
}

// SessionService returns the session service for advanced usage.
func (s *Service) SessionService() *auth.SessionService {
	return s.sessionService
}

// AuthMiddleware returns middleware that validates admin access tokens.
// Use this to protect your own routes:
//
//	r.Group(func(r chi.Router) {
//	    r.Use(svc.AuthMiddleware())
//	    r.Get("/org/data", handler)
//	})
func (s *Service) AuthMiddleware() func(http.Handler) http.Handler {
	return middleware.Auth(s.sessionService)
}

// GetAdminID extracts the acting admin ID from a request.
// Use after AuthMiddleware:
//
//	adminID, ok := orgsvc.GetAdminID(r)
func GetAdminID(r *http.Request) (string, bool) {
	id, ok := middleware.GetAdminID(r.Context())
	if !ok {
		return "", false
	}
	return id.String(), true
}

func validateConfig(cfg *Config) error {
	if cfg.Store == nil {
		return errors.New("orgsvc: Store is required")
	}
	if cfg.CopyBatchSize < 0 {
		return errors.New("orgsvc: CopyBatchSize must not be negative")
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.JWTIssuer == "" {
		cfg.JWTIssuer = "simple-org"
	}
	if cfg.AccessTokenTTL == 0 {
		cfg.AccessTokenTTL = auth.DefaultAccessTokenTTL
	}
	if cfg.CopyBatchSize == 0 {
		cfg.CopyBatchSize = tenant.DefaultCopyBatchSize
	}
	if cfg.Validation.MaxRequestBodySize == 0 {
		cfg.Validation.MaxRequestBodySize = 1 << 20
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}
}
