package lifecycle

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/simple-org-slim/pkg/auth"
	"github.com/tendant/simple-org-slim/pkg/docstore"
	"github.com/tendant/simple-org-slim/pkg/domain"
)

// UpdateRequest holds the input of Update. NewName, Email and Password are
// optional; blank means unchanged.
type UpdateRequest struct {
	ActingAdminID    uuid.UUID
	OrganizationName string
	NewName          string
	Email            string
	Password         string
}

// UpdateResult describes what Update changed.
type UpdateResult struct {
	Organization       *domain.Organization
	Renamed            bool
	CollectionMoved    bool
	DocumentsMoved     int64
	CredentialsUpdated bool
}

// renamePlan is the validated target of a rename.
type renamePlan struct {
	name       string
	slug       string
	collection string
}

// Update renames an organization, migrating its tenant collection when the
// slug changes, and updates the acting admin's credentials. Both happen only
// after the acting admin is authorized for the organization.
func (m *Manager) Update(ctx context.Context, req UpdateRequest) (result *UpdateResult, err error) {
	start := time.Now()
	defer func() { m.observe(OpUpdate, start, err) }()

	if err := domain.RequireFields(map[string]string{"organization_name": req.OrganizationName}); err != nil {
		return nil, err
	}

	admin, org, err := m.authorize(ctx, req.ActingAdminID, req.OrganizationName)
	if err != nil {
		return nil, err
	}

	plan, err := m.planRename(ctx, org, req.NewName)
	if err != nil {
		return nil, err
	}
	creds, err := m.planCredentials(ctx, admin, req.Email, req.Password)
	if err != nil {
		return nil, err
	}

	result = &UpdateResult{Organization: org}
	if plan == nil && creds.IsEmpty() {
		return result, nil
	}

	logger := m.logger.With("operation", OpUpdate, "org_id", org.ID)
	old := *org
	oldAdmin := *admin

	s := m.newSaga(OpUpdate)
	if plan != nil && plan.collection != org.CollectionName {
		s.add("migrate_collection",
			func(ctx context.Context) error {
				moved, err := m.tenants.CopyAndRetarget(ctx, old.CollectionName, plan.collection)
				result.DocumentsMoved = moved
				if err == nil {
					return nil
				}
				if errors.Is(err, docstore.ErrCollectionExists) {
					return domain.ErrDuplicateCollection
				}
				if m.opts.Compensate {
					// The source is intact until the copy completes; discard the partial target.
					if derr := m.tenants.Drop(context.WithoutCancel(ctx), plan.collection); derr != nil {
						logger.Error("discard partial collection copy", "collection", plan.collection, "error", derr)
					}
				}
				return err
			},
			func(ctx context.Context) error {
				_, err := m.tenants.CopyAndRetarget(ctx, plan.collection, old.CollectionName)
				return err
			},
		)
	}
	if !creds.IsEmpty() {
		s.add("update_credentials",
			func(ctx context.Context) error {
				return m.admins.UpdateCredentials(ctx, admin.ID, creds)
			},
			func(ctx context.Context) error {
				var restore domain.AdminUpdate
				if creds.Email != nil {
					restore.Email = &oldAdmin.Email
				}
				if creds.PasswordHash != nil {
					restore.PasswordHash = &oldAdmin.PasswordHash
				}
				return m.admins.UpdateCredentials(ctx, admin.ID, restore)
			},
		)
	}
	if plan != nil {
		s.add("update_organization",
			func(ctx context.Context) error {
				return m.orgs.UpdateFields(ctx, org.ID, domain.OrganizationUpdate{
					Name:           &plan.name,
					Slug:           &plan.slug,
					CollectionName: &plan.collection,
				})
			},
			func(ctx context.Context) error {
				return m.orgs.UpdateFields(ctx, org.ID, domain.OrganizationUpdate{
					Name:           &old.Name,
					Slug:           &old.Slug,
					CollectionName: &old.CollectionName,
				})
			},
		)
	}

	if err := s.run(ctx); err != nil {
		return nil, err
	}

	if plan != nil {
		updated := old
		updated.Name, updated.Slug, updated.CollectionName = plan.name, plan.slug, plan.collection
		updated.UpdatedAt = time.Now().UTC()
		result.Organization = &updated
		result.Renamed = true
		result.CollectionMoved = plan.collection != old.CollectionName
		logger.Info("organization renamed",
			"from", old.Name, "to", plan.name, "collection", plan.collection, "documents", result.DocumentsMoved)
	}
	if !creds.IsEmpty() {
		result.CredentialsUpdated = true
		logger.Info("admin credentials updated", "admin_id", admin.ID,
			"email_changed", creds.Email != nil, "password_changed", creds.PasswordHash != nil)
	}
	return result, nil
}

// planRename validates a new name for org. It returns nil when no rename is
// requested or the trimmed name is unchanged.
func (m *Manager) planRename(ctx context.Context, org *domain.Organization, newName string) (*renamePlan, error) {
	trimmed := auth.SanitizeName(newName)
	if trimmed == "" || trimmed == org.Name {
		return nil, nil
	}

	name, slug, err := m.validateName(newName)
	if err != nil {
		return nil, err
	}

	// A collision with the organization itself is allowed.
	if existing, err := m.orgs.FindByName(ctx, name); err == nil {
		if existing.ID != org.ID {
			return nil, domain.ErrDuplicateName
		}
	} else if !errors.Is(err, domain.ErrOrganizationNotFound) {
		return nil, err
	}
	if existing, err := m.orgs.FindBySlug(ctx, slug); err == nil {
		if existing.ID != org.ID {
			return nil, domain.ErrDuplicateName
		}
	} else if !errors.Is(err, domain.ErrOrganizationNotFound) {
		return nil, err
	}

	return &renamePlan{name: name, slug: slug, collection: domain.CollectionName(slug)}, nil
}

// planCredentials validates new credentials for admin and hashes the password.
func (m *Manager) planCredentials(ctx context.Context, admin *domain.Admin, email, password string) (domain.AdminUpdate, error) {
	var update domain.AdminUpdate

	if email != "" {
		normalized, err := m.validateEmail(email)
		if err != nil {
			return update, err
		}
		if normalized != admin.Email {
			if other, err := m.admins.FindByEmail(ctx, normalized); err == nil {
				if other.ID != admin.ID {
					return update, domain.ErrDuplicateEmail
				}
			} else if !errors.Is(err, domain.ErrAdminNotFound) {
				return update, err
			}
			update.Email = &normalized
		}
	}

	if password != "" {
		if err := m.validatePassword(password); err != nil {
			return update, err
		}
		hash, err := m.hasher.Hash(password)
		if err != nil {
			return update, err
		}
		update.PasswordHash = &hash
	}

	return update, nil
}
