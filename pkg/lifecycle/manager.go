// Package lifecycle creates, renames and deletes organizations. Each
// operation touches three independent storage objects (organization
// metadata, the admin record and the tenant collection) in a fixed order
// with no surrounding transaction.
//
// Every operation runs as a saga: an ordered list of steps, each paired with
// a compensating step. When compensation is enabled a failure undoes the
// completed steps in reverse order. When it is disabled a failure leaves the
// partial state in place, and Audit reports it.
package lifecycle

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/simple-org-slim/pkg/domain"
)

// Operation names used in logs and metrics.
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
	OpGet    = "get"
	OpAudit  = "audit"
)

// Outcome labels.
const (
	OutcomeSuccess        = "success"
	OutcomeFailure        = "failure"
	OutcomeValidation     = "validation"
	OutcomeConflict       = "conflict"
	OutcomeNotFound       = "not_found"
	OutcomeForbidden      = "forbidden"
	OutcomeStorageFailure = "storage_failure"
)

// OrganizationStore persists organization metadata.
type OrganizationStore interface {
	Create(ctx context.Context, name, slug, collectionName string, adminID *uuid.UUID) (*domain.Organization, error)
	FindByName(ctx context.Context, name string) (*domain.Organization, error)
	FindBySlug(ctx context.Context, slug string) (*domain.Organization, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Organization, error)
	UpdateFields(ctx context.Context, id uuid.UUID, update domain.OrganizationUpdate) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]*domain.Organization, error)
}

// AdminStore persists admin credentials.
type AdminStore interface {
	Create(ctx context.Context, email, password string, orgID uuid.UUID) (*domain.Admin, error)
	FindByEmail(ctx context.Context, email string) (*domain.Admin, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Admin, error)
	UpdateCredentials(ctx context.Context, id uuid.UUID, update domain.AdminUpdate) error
	DeleteAllByOrg(ctx context.Context, orgID uuid.UUID) (int64, error)
	List(ctx context.Context) ([]*domain.Admin, error)
}

// TenantCollections manages the per-organization data collections.
type TenantCollections interface {
	CreateEmpty(ctx context.Context, name string) error
	CopyAndRetarget(ctx context.Context, from, to string) (int64, error)
	Drop(ctx context.Context, name string) error
	Exists(ctx context.Context, name string) (bool, error)
	List(ctx context.Context) ([]string, error)
}

// PasswordHasher hashes new admin passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
}

// PasswordValidator enforces a password policy.
type PasswordValidator interface {
	ValidatePassword(password string) error
}

// Recorder receives operation and compensation outcomes.
type Recorder interface {
	ObserveOperation(operation, outcome string, elapsed time.Duration)
	ObserveCompensation(operation, step, outcome string)
}

type nopRecorder struct{}

func (nopRecorder) ObserveOperation(string, string, time.Duration) {}
func (nopRecorder) ObserveCompensation(string, string, string)     {}

// Options configures a Manager.
type Options struct {
	// Compensate enables rollback of completed steps when a later step fails.
	Compensate bool
	// PasswordPolicy is applied to new passwords. Nil accepts any non-blank password.
	PasswordPolicy        PasswordValidator
	StrictEmailValidation bool
	BlockDisposableEmail  bool
	Logger                *slog.Logger
	Recorder              Recorder
}

// Manager orchestrates the organization lifecycle.
type Manager struct {
	orgs    OrganizationStore
	admins  AdminStore
	tenants TenantCollections
	hasher  PasswordHasher
	opts    Options
	logger  *slog.Logger
}

// NewManager creates a lifecycle manager.
func NewManager(orgs OrganizationStore, admins AdminStore, tenants TenantCollections, hasher PasswordHasher, opts Options) *Manager {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Recorder == nil {
		opts.Recorder = nopRecorder{}
	}
	return &Manager{
		orgs:    orgs,
		admins:  admins,
		tenants: tenants,
		hasher:  hasher,
		opts:    opts,
		logger:  opts.Logger.With("component", "lifecycle"),
	}
}

func (m *Manager) newSaga(operation string) *saga {
	return &saga{
		operation:  operation,
		compensate: m.opts.Compensate,
		logger:     m.logger,
		recorder:   m.opts.Recorder,
	}
}

func (m *Manager) observe(operation string, start time.Time, err error) {
	m.opts.Recorder.ObserveOperation(operation, Outcome(err), time.Since(start))
}

// Outcome classifies err into an outcome label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, domain.ErrValidation):
		return OutcomeValidation
	case errors.Is(err, domain.ErrConflict):
		return OutcomeConflict
	case errors.Is(err, domain.ErrNotFound):
		return OutcomeNotFound
	case errors.Is(err, domain.ErrForbidden):
		return OutcomeForbidden
	case errors.Is(err, domain.ErrStorageFailure):
		return OutcomeStorageFailure
	default:
		return OutcomeFailure
	}
}

// authorize resolves the acting admin and the named organization and checks
// that the admin manages it.
func (m *Manager) authorize(ctx context.Context, actingAdminID uuid.UUID, organizationName string) (*domain.Admin, *domain.Organization, error) {
	admin, err := m.admins.FindByID(ctx, actingAdminID)
	if err != nil {
		return nil, nil, err
	}
	org, err := m.orgs.FindByName(ctx, organizationName)
	if err != nil {
		return nil, nil, err
	}
	if !admin.BelongsTo(org) {
		m.logger.Warn("admin denied access to organization",
			"admin_id", admin.ID, "org_id", org.ID, "admin_org_id", admin.OrganizationID)
		return nil, nil, domain.ErrNotOrganizationAdmin
	}
	return admin, org, nil
}

// Get returns the organization with the given name.
func (m *Manager) Get(ctx context.Context, name string) (org *domain.Organization, err error) {
	start := time.Now()
	defer func() { m.observe(OpGet, start, err) }()

	if err := domain.RequireFields(map[string]string{"organization_name": name}); err != nil {
		return nil, err
	}
	return m.orgs.FindByName(ctx, name)
}

// List returns every organization.
func (m *Manager) List(ctx context.Context) ([]*domain.Organization, error) {
	return m.orgs.List(ctx)
}
