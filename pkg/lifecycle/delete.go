package lifecycle

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/simple-org-slim/pkg/domain"
)

// DeleteRequest holds the input of Delete.
type DeleteRequest struct {
	ActingAdminID    uuid.UUID
	OrganizationName string
}

// Delete tears down an organization: the tenant collection first, then its
// admins, then the metadata record. Dropped tenant data cannot be restored,
// so no step is compensated; a failure leaves the metadata in place for a
// retry.
func (m *Manager) Delete(ctx context.Context, req DeleteRequest) (err error) {
	start := time.Now()
	defer func() { m.observe(OpDelete, start, err) }()

	if err := domain.RequireFields(map[string]string{"organization_name": req.OrganizationName}); err != nil {
		return err
	}

	_, org, err := m.authorize(ctx, req.ActingAdminID, req.OrganizationName)
	if err != nil {
		return err
	}

	var removed int64
	s := m.newSaga(OpDelete)
	s.add("drop_collection", func(ctx context.Context) error {
		return m.tenants.Drop(ctx, org.CollectionName)
	}, nil)
	s.add("delete_admins", func(ctx context.Context) (err error) {
		removed, err = m.admins.DeleteAllByOrg(ctx, org.ID)
		return err
	}, nil)
	s.add("delete_organization", func(ctx context.Context) error {
		return m.orgs.Delete(ctx, org.ID)
	}, nil)

	if err := s.run(ctx); err != nil {
		return err
	}

	m.logger.Info("organization deleted",
		"operation", OpDelete, "org_id", org.ID, "collection", org.CollectionName, "admins_removed", removed)
	return nil
}
