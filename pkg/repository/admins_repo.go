package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/simple-org-slim/pkg/docstore"
	"github.com/tendant/simple-org-slim/pkg/domain"
)

// AdminsCollection holds admin credentials.
const AdminsCollection = "admins"

// PasswordHasher turns a plaintext password into a storable digest.
type PasswordHasher interface {
	Hash(password string) (string, error)
}

type adminRecord struct {
	ID             string    `bson:"_id" json:"_id"`
	Email          string    `bson:"email" json:"email"`
	PasswordHash   string    `bson:"password_hash" json:"password_hash"`
	OrganizationID string    `bson:"organization_id" json:"organization_id"`
	Role           string    `bson:"role" json:"role"`
	CreatedAt      time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time `bson:"updated_at" json:"updated_at"`
}

// AdminsRepository handles admin persistence.
type AdminsRepository struct {
	coll   docstore.Collection
	hasher PasswordHasher
}

// NewAdminsRepository creates a new admins repository.
func NewAdminsRepository(store docstore.Store, hasher PasswordHasher) *AdminsRepository {
	return &AdminsRepository{
		coll:   store.Collection(AdminsCollection),
		hasher: hasher,
	}
}

// Create hashes the password and inserts an admin bound to orgID.
func (r *AdminsRepository) Create(ctx context.Context, email, password string, orgID uuid.UUID) (*domain.Admin, error) {
	hash, err := r.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	admin := &domain.Admin{
		ID:             uuid.New(),
		Email:          normalizeEmail(email),
		PasswordHash:   hash,
		OrganizationID: orgID,
		Role:           domain.RoleAdmin,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := r.coll.InsertOne(ctx, toAdminRecord(admin)); err != nil {
		if errors.Is(err, docstore.ErrDuplicateKey) {
			return nil, domain.ErrDuplicateEmail
		}
		return nil, domain.NewStorageError("create admin", err)
	}
	return admin, nil
}

// FindByEmail retrieves an admin by normalized email.
func (r *AdminsRepository) FindByEmail(ctx context.Context, email string) (*domain.Admin, error) {
	return r.findOne(ctx, "find admin by email", docstore.Filter{"email": normalizeEmail(email)})
}

// FindByID retrieves an admin by ID.
func (r *AdminsRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Admin, error) {
	return r.findOne(ctx, "find admin by id", docstore.Filter{docstore.IDField: id.String()})
}

func (r *AdminsRepository) findOne(ctx context.Context, op string, filter docstore.Filter) (*domain.Admin, error) {
	var rec adminRecord
	if err := r.coll.FindOne(ctx, filter, &rec); err != nil {
		if errors.Is(err, docstore.ErrNoDocuments) {
			return nil, domain.ErrAdminNotFound
		}
		return nil, domain.NewStorageError(op, err)
	}
	return rec.toDomain()
}

// UpdateCredentials overwrites email and/or password hash.
func (r *AdminsRepository) UpdateCredentials(ctx context.Context, id uuid.UUID, update domain.AdminUpdate) error {
	if update.IsEmpty() {
		return nil
	}
	set := docstore.Fields{"updated_at": time.Now().UTC()}
	if update.Email != nil {
		set["email"] = normalizeEmail(*update.Email)
	}
	if update.PasswordHash != nil {
		set["password_hash"] = *update.PasswordHash
	}

	matched, err := r.coll.UpdateOne(ctx, docstore.Filter{docstore.IDField: id.String()}, set)
	if err != nil {
		if errors.Is(err, docstore.ErrDuplicateKey) {
			return domain.ErrDuplicateEmail
		}
		return domain.NewStorageError("update admin", err)
	}
	if matched == 0 {
		return domain.ErrAdminNotFound
	}
	return nil
}

// DeleteAllByOrg removes every admin of an organization.
func (r *AdminsRepository) DeleteAllByOrg(ctx context.Context, orgID uuid.UUID) (int64, error) {
	n, err := r.coll.DeleteMany(ctx, docstore.Filter{"organization_id": orgID.String()})
	if err != nil {
		return 0, domain.NewStorageError("delete admins", err)
	}
	return n, nil
}

// List returns every admin.
func (r *AdminsRepository) List(ctx context.Context) ([]*domain.Admin, error) {
	cur, err := r.coll.Find(ctx, nil)
	if err != nil {
		return nil, domain.NewStorageError("list admins", err)
	}

	var admins []*domain.Admin
	err = docstore.All(ctx, cur, func(c docstore.Cursor) error {
		var rec adminRecord
		if err := c.Decode(&rec); err != nil {
			return err
		}
		admin, err := rec.toDomain()
		if err != nil {
			return err
		}
		admins = append(admins, admin)
		return nil
	})
	if err != nil {
		return nil, domain.NewStorageError("list admins", err)
	}
	return admins, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func toAdminRecord(a *domain.Admin) adminRecord {
	return adminRecord{
		ID:             a.ID.String(),
		Email:          a.Email,
		PasswordHash:   a.PasswordHash,
		OrganizationID: a.OrganizationID.String(),
		Role:           a.Role,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}

func (rec adminRecord) toDomain() (*domain.Admin, error) {
	id, err := uuid.Parse(rec.ID)
	if err != nil {
		return nil, domain.NewStorageError("decode admin", fmt.Errorf("invalid id %q: %w", rec.ID, err))
	}
	orgID, err := uuid.Parse(rec.OrganizationID)
	if err != nil {
		return nil, domain.NewStorageError("decode admin", fmt.Errorf("invalid organization_id %q: %w", rec.OrganizationID, err))
	}
	role := rec.Role
	if role == "" {
		role = domain.RoleAdmin
	}
	return &domain.Admin{
		ID:             id,
		Email:          rec.Email,
		PasswordHash:   rec.PasswordHash,
		OrganizationID: orgID,
		Role:           role,
		CreatedAt:      rec.CreatedAt,
		UpdatedAt:      rec.UpdatedAt,
	}, nil
}
