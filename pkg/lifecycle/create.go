package lifecycle

import (
	"context"
	"errors"
	"time"

	"github.com/tendant/simple-org-slim/pkg/auth"
	"github.com/tendant/simple-org-slim/pkg/docstore"
	"github.com/tendant/simple-org-slim/pkg/domain"
)

// CreateRequest holds the input of Create.
type CreateRequest struct {
	Name     string
	Email    string
	Password string
}

// CreateResult is a newly provisioned organization and its admin.
type CreateResult struct {
	Organization *domain.Organization
	Admin        *domain.Admin
}

// Create provisions an organization: its tenant collection, its metadata
// record and its admin, then links the admin to the organization.
func (m *Manager) Create(ctx context.Context, req CreateRequest) (result *CreateResult, err error) {
	start := time.Now()
	defer func() { m.observe(OpCreate, start, err) }()

	if err := domain.RequireFields(map[string]string{
		"organization_name": req.Name,
		"email":             req.Email,
		"password":          req.Password,
	}); err != nil {
		return nil, err
	}

	name, slug, err := m.validateName(req.Name)
	if err != nil {
		return nil, err
	}
	email, err := m.validateEmail(req.Email)
	if err != nil {
		return nil, err
	}
	if err := m.validatePassword(req.Password); err != nil {
		return nil, err
	}

	if err := m.checkFree(ctx, name, slug, email); err != nil {
		return nil, err
	}

	collection := domain.CollectionName(slug)
	logger := m.logger.With("operation", OpCreate, "slug", slug)

	var (
		org   *domain.Organization
		admin *domain.Admin
	)

	s := m.newSaga(OpCreate)
	s.add("create_collection",
		func(ctx context.Context) error {
			if err := m.tenants.CreateEmpty(ctx, collection); err != nil {
				if errors.Is(err, docstore.ErrCollectionExists) {
					return domain.ErrDuplicateCollection
				}
				return err
			}
			return nil
		},
		func(ctx context.Context) error {
			return m.tenants.Drop(ctx, collection)
		},
	)
	s.add("create_organization",
		func(ctx context.Context) (err error) {
			org, err = m.orgs.Create(ctx, name, slug, collection, nil)
			return err
		},
		func(ctx context.Context) error {
			return m.orgs.Delete(ctx, org.ID)
		},
	)
	s.add("create_admin",
		func(ctx context.Context) (err error) {
			admin, err = m.admins.Create(ctx, email, req.Password, org.ID)
			return err
		},
		func(ctx context.Context) error {
			_, err := m.admins.DeleteAllByOrg(ctx, org.ID)
			return err
		},
	)
	s.add("link_admin",
		func(ctx context.Context) error {
			return m.orgs.UpdateFields(ctx, org.ID, domain.OrganizationUpdate{AdminID: &admin.ID})
		},
		nil,
	)

	if err := s.run(ctx); err != nil {
		return nil, err
	}

	org.AdminID = &admin.ID
	logger.Info("organization created", "org_id", org.ID, "admin_id", admin.ID, "collection", collection)
	return &CreateResult{Organization: org, Admin: admin}, nil
}

// checkFree fails when the name, slug or admin email is already taken.
func (m *Manager) checkFree(ctx context.Context, name, slug, email string) error {
	if _, err := m.orgs.FindByName(ctx, name); err == nil {
		return domain.ErrDuplicateName
	} else if !errors.Is(err, domain.ErrOrganizationNotFound) {
		return err
	}

	if _, err := m.orgs.FindBySlug(ctx, slug); err == nil {
		return domain.ErrDuplicateSlug
	} else if !errors.Is(err, domain.ErrOrganizationNotFound) {
		return err
	}

	if _, err := m.admins.FindByEmail(ctx, email); err == nil {
		return domain.ErrDuplicateEmail
	} else if !errors.Is(err, domain.ErrAdminNotFound) {
		return err
	}
	return nil
}

// validateName cleans an organization name and derives its slug.
func (m *Manager) validateName(raw string) (name, slug string, err error) {
	name = auth.SanitizeName(raw)
	if err := auth.ValidateStringLength("organization_name", name, 1, auth.MaxOrganizationNameLength); err != nil {
		return "", "", err
	}
	slug = domain.NormalizeName(name)
	if slug == "" {
		return "", "", domain.NewValidationError("organization_name must contain at least one letter or digit")
	}
	return name, slug, nil
}

func (m *Manager) validateEmail(raw string) (string, error) {
	if err := auth.ValidateEmail(raw, m.opts.StrictEmailValidation, m.opts.BlockDisposableEmail); err != nil {
		return "", err
	}
	return auth.NormalizeEmail(raw), nil
}

func (m *Manager) validatePassword(password string) error {
	if m.opts.PasswordPolicy == nil {
		return nil
	}
	return m.opts.PasswordPolicy.ValidatePassword(password)
}
