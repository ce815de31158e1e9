package repository

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-org-slim/pkg/docstore"
	"github.com/tendant/simple-org-slim/pkg/docstore/boltstore"
	"github.com/tendant/simple-org-slim/pkg/domain"
)

type plainHasher struct{ err error }

func (h plainHasher) Hash(password string) (string, error) {
	if h.err != nil {
		return "", h.err
	}
	return "hashed:" + password, nil
}

func newTestStore(t *testing.T) docstore.Store {
	t.Helper()
	store, err := boltstore.Open(filepath.Join(t.TempDir(), "org_management.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close(context.Background()) })
	require.NoError(t, EnsureIndexes(context.Background(), store))
	return store
}

func TestOrganizationsRepository_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewOrganizationsRepository(newTestStore(t))

	org, err := repo.Create(ctx, "  Acme Inc ", "acme_inc", "org_acme_inc", nil)
	require.NoError(t, err)
	assert.Equal(t, "Acme Inc", org.Name)
	assert.Nil(t, org.AdminID)
	assert.Equal(t, "org_management", org.ConnectionDetails.Database)

	byName, err := repo.FindByName(ctx, "Acme Inc  ")
	require.NoError(t, err)
	assert.Equal(t, org.ID, byName.ID)
	assert.Equal(t, "org_acme_inc", byName.CollectionName)

	bySlug, err := repo.FindBySlug(ctx, "acme_inc")
	require.NoError(t, err)
	assert.Equal(t, org.ID, bySlug.ID)

	byID, err := repo.FindByID(ctx, org.ID)
	require.NoError(t, err)
	assert.Equal(t, "acme_inc", byID.Slug)
	assert.False(t, byID.HasAdmin())

	_, err = repo.FindByName(ctx, "acme inc")
	assert.ErrorIs(t, err, domain.ErrOrganizationNotFound, "name lookup is exact after trimming")
}

func TestOrganizationsRepository_UniqueIndexes(t *testing.T) {
	ctx := context.Background()
	repo := NewOrganizationsRepository(newTestStore(t))

	_, err := repo.Create(ctx, "Acme Inc", "acme_inc", "org_acme_inc", nil)
	require.NoError(t, err)

	tests := []struct {
		name       string
		orgName    string
		slug       string
		collection string
		wantErr    error
	}{
		{"same name", "Acme Inc", "acme_inc_2", "org_acme_inc_2", domain.ErrDuplicateName},
		{"same slug", "acme inc", "acme_inc", "org_acme_inc_3", domain.ErrDuplicateSlug},
		{"same collection", "Acme Inc 3", "acme_inc_3", "org_acme_inc", domain.ErrDuplicateCollection},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := repo.Create(ctx, tt.orgName, tt.slug, tt.collection, nil)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.True(t, errors.Is(err, domain.ErrConflict))
		})
	}

	other, err := repo.Create(ctx, "Other", "other", "org_other", nil)
	require.NoError(t, err)
	slug := "acme_inc"
	err = repo.UpdateFields(ctx, other.ID, domain.OrganizationUpdate{Slug: &slug})
	assert.ErrorIs(t, err, domain.ErrDuplicateSlug)
	coll := "org_acme_inc"
	err = repo.UpdateFields(ctx, other.ID, domain.OrganizationUpdate{CollectionName: &coll})
	assert.ErrorIs(t, err, domain.ErrDuplicateCollection)
}

func TestOrganizationsRepository_UpdateFields(t *testing.T) {
	ctx := context.Background()
	repo := NewOrganizationsRepository(newTestStore(t))

	org, err := repo.Create(ctx, "My Co", "my_co", "org_my_co", nil)
	require.NoError(t, err)

	adminID := uuid.New()
	require.NoError(t, repo.UpdateFields(ctx, org.ID, domain.OrganizationUpdate{AdminID: &adminID}))

	name, slug, coll := "My Co 2", "my_co_2", "org_my_co_2"
	require.NoError(t, repo.UpdateFields(ctx, org.ID, domain.OrganizationUpdate{
		Name:           &name,
		Slug:           &slug,
		CollectionName: &coll,
	}))

	got, err := repo.FindByID(ctx, org.ID)
	require.NoError(t, err)
	assert.Equal(t, "My Co 2", got.Name)
	assert.Equal(t, "my_co_2", got.Slug)
	assert.Equal(t, "org_my_co_2", got.CollectionName)
	require.NotNil(t, got.AdminID)
	assert.Equal(t, adminID, *got.AdminID)
	assert.True(t, got.UpdatedAt.After(got.CreatedAt) || got.UpdatedAt.Equal(got.CreatedAt))

	err = repo.UpdateFields(ctx, uuid.New(), domain.OrganizationUpdate{Name: &name})
	assert.ErrorIs(t, err, domain.ErrOrganizationNotFound)
}

func TestOrganizationsRepository_DeleteAndList(t *testing.T) {
	ctx := context.Background()
	repo := NewOrganizationsRepository(newTestStore(t))

	a, err := repo.Create(ctx, "A", "a", "org_a", nil)
	require.NoError(t, err)
	_, err = repo.Create(ctx, "B", "b", "org_b", nil)
	require.NoError(t, err)

	orgs, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, orgs, 2)

	require.NoError(t, repo.Delete(ctx, a.ID))
	assert.ErrorIs(t, repo.Delete(ctx, a.ID), domain.ErrOrganizationNotFound)

	orgs, err = repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, orgs, 1)
	assert.Equal(t, "B", orgs[0].Name)
}

func TestAdminsRepository_Create(t *testing.T) {
	ctx := context.Background()
	repo := NewAdminsRepository(newTestStore(t), plainHasher{})
	orgID := uuid.New()

	admin, err := repo.Create(ctx, "  Admin@Example.COM ", "s3cret", orgID)
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", admin.Email)
	assert.Equal(t, "hashed:s3cret", admin.PasswordHash)
	assert.Equal(t, domain.RoleAdmin, admin.Role)
	assert.Equal(t, orgID, admin.OrganizationID)

	got, err := repo.FindByEmail(ctx, "ADMIN@example.com")
	require.NoError(t, err)
	assert.Equal(t, admin.ID, got.ID)

	got, err = repo.FindByID(ctx, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, orgID, got.OrganizationID)

	_, err = repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrAdminNotFound)
}

func TestAdminsRepository_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	repo := NewAdminsRepository(newTestStore(t), plainHasher{})

	_, err := repo.Create(ctx, "a@example.com", "x", uuid.New())
	require.NoError(t, err)
	_, err = repo.Create(ctx, "A@example.com", "y", uuid.New())
	assert.ErrorIs(t, err, domain.ErrDuplicateEmail)
}

func TestAdminsRepository_HashFailure(t *testing.T) {
	repo := NewAdminsRepository(newTestStore(t), plainHasher{err: errors.New("no entropy")})

	_, err := repo.Create(context.Background(), "a@example.com", "x", uuid.New())
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "no entropy"))
}

func TestAdminsRepository_UpdateCredentials(t *testing.T) {
	ctx := context.Background()
	repo := NewAdminsRepository(newTestStore(t), plainHasher{})

	admin, err := repo.Create(ctx, "a@example.com", "x", uuid.New())
	require.NoError(t, err)
	other, err := repo.Create(ctx, "b@example.com", "y", uuid.New())
	require.NoError(t, err)

	email, hash := "New@Example.com", "hashed:new"
	require.NoError(t, repo.UpdateCredentials(ctx, admin.ID, domain.AdminUpdate{Email: &email, PasswordHash: &hash}))

	got, err := repo.FindByID(ctx, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", got.Email)
	assert.Equal(t, "hashed:new", got.PasswordHash)

	taken := "b@example.com"
	err = repo.UpdateCredentials(ctx, admin.ID, domain.AdminUpdate{Email: &taken})
	assert.ErrorIs(t, err, domain.ErrDuplicateEmail)

	err = repo.UpdateCredentials(ctx, uuid.New(), domain.AdminUpdate{Email: &email})
	assert.ErrorIs(t, err, domain.ErrAdminNotFound)

	require.NoError(t, repo.UpdateCredentials(ctx, other.ID, domain.AdminUpdate{}), "empty update is a no-op")
}

func TestAdminsRepository_DeleteAllByOrg(t *testing.T) {
	ctx := context.Background()
	repo := NewAdminsRepository(newTestStore(t), plainHasher{})
	orgID := uuid.New()

	_, err := repo.Create(ctx, "a@example.com", "x", orgID)
	require.NoError(t, err)
	_, err = repo.Create(ctx, "b@example.com", "x", orgID)
	require.NoError(t, err)
	keep, err := repo.Create(ctx, "c@example.com", "x", uuid.New())
	require.NoError(t, err)

	n, err := repo.DeleteAllByOrg(ctx, orgID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	admins, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, admins, 1)
	assert.Equal(t, keep.ID, admins[0].ID)

	n, err = repo.DeleteAllByOrg(ctx, orgID)
	require.NoError(t, err)
	assert.Zero(t, n)
}
