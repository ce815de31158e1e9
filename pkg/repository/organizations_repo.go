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

// OrganizationsCollection holds organization metadata.
const OrganizationsCollection = "organizations"

type organizationRecord struct {
	ID                string                  `bson:"_id" json:"_id"`
	Name              string                  `bson:"name" json:"name"`
	Slug              string                  `bson:"slug" json:"slug"`
	CollectionName    string                  `bson:"collection_name" json:"collection_name"`
	AdminID           *string                 `bson:"admin_id" json:"admin_id"`
	ConnectionDetails connectionDetailsRecord `bson:"connection_details" json:"connection_details"`
	CreatedAt         time.Time               `bson:"created_at" json:"created_at"`
	UpdatedAt         time.Time               `bson:"updated_at" json:"updated_at"`
}

type connectionDetailsRecord struct {
	Database string `bson:"database" json:"database"`
}

// OrganizationsRepository handles organization metadata persistence.
type OrganizationsRepository struct {
	store docstore.Store
	coll  docstore.Collection
}

// NewOrganizationsRepository creates a new organizations repository.
func NewOrganizationsRepository(store docstore.Store) *OrganizationsRepository {
	return &OrganizationsRepository{
		store: store,
		coll:  store.Collection(OrganizationsCollection),
	}
}

// Create inserts an organization. The name is stored trimmed; adminID may be
// nil until the admin is linked.
func (r *OrganizationsRepository) Create(ctx context.Context, name, slug, collectionName string, adminID *uuid.UUID) (*domain.Organization, error) {
	now := time.Now().UTC()
	org := &domain.Organization{
		ID:                uuid.New(),
		Name:              strings.TrimSpace(name),
		Slug:              slug,
		CollectionName:    collectionName,
		AdminID:           adminID,
		ConnectionDetails: domain.ConnectionDetails{Database: r.store.Name()},
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := r.coll.InsertOne(ctx, toOrganizationRecord(org)); err != nil {
		if errors.Is(err, docstore.ErrDuplicateKey) {
			return nil, duplicateOrganization(err)
		}
		return nil, domain.NewStorageError("create organization", err)
	}
	return org, nil
}

// FindByName retrieves an organization by its trimmed name.
func (r *OrganizationsRepository) FindByName(ctx context.Context, name string) (*domain.Organization, error) {
	return r.findOne(ctx, "find organization by name", docstore.Filter{"name": strings.TrimSpace(name)})
}

// FindBySlug retrieves an organization by slug.
func (r *OrganizationsRepository) FindBySlug(ctx context.Context, slug string) (*domain.Organization, error) {
	return r.findOne(ctx, "find organization by slug", docstore.Filter{"slug": slug})
}

// FindByID retrieves an organization by ID.
func (r *OrganizationsRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Organization, error) {
	return r.findOne(ctx, "find organization by id", docstore.Filter{docstore.IDField: id.String()})
}

func (r *OrganizationsRepository) findOne(ctx context.Context, op string, filter docstore.Filter) (*domain.Organization, error) {
	var rec organizationRecord
	if err := r.coll.FindOne(ctx, filter, &rec); err != nil {
		if errors.Is(err, docstore.ErrNoDocuments) {
			return nil, domain.ErrOrganizationNotFound
		}
		return nil, domain.NewStorageError(op, err)
	}
	return rec.toDomain()
}

// UpdateFields overwrites the given metadata fields.
func (r *OrganizationsRepository) UpdateFields(ctx context.Context, id uuid.UUID, update domain.OrganizationUpdate) error {
	set := docstore.Fields{"updated_at": time.Now().UTC()}
	if update.Name != nil {
		set["name"] = strings.TrimSpace(*update.Name)
	}
	if update.Slug != nil {
		set["slug"] = *update.Slug
	}
	if update.CollectionName != nil {
		set["collection_name"] = *update.CollectionName
	}
	if update.AdminID != nil {
		set["admin_id"] = update.AdminID.String()
	}

	matched, err := r.coll.UpdateOne(ctx, docstore.Filter{docstore.IDField: id.String()}, set)
	if err != nil {
		if errors.Is(err, docstore.ErrDuplicateKey) {
			return duplicateOrganization(err)
		}
		return domain.NewStorageError("update organization", err)
	}
	if matched == 0 {
		return domain.ErrOrganizationNotFound
	}
	return nil
}

// duplicateOrganization maps a unique index violation to the conflict for the
// field that collided. Unknown fields report the name.
func duplicateOrganization(err error) error {
	switch docstore.DuplicateField(err) {
	case "slug":
		return domain.ErrDuplicateSlug
	case "collection_name":
		return domain.ErrDuplicateCollection
	default:
		return domain.ErrDuplicateName
	}
}

// Delete removes the organization record.
func (r *OrganizationsRepository) Delete(ctx context.Context, id uuid.UUID) error {
	deleted, err := r.coll.DeleteOne(ctx, docstore.Filter{docstore.IDField: id.String()})
	if err != nil {
		return domain.NewStorageError("delete organization", err)
	}
	if deleted == 0 {
		return domain.ErrOrganizationNotFound
	}
	return nil
}

// List returns every organization.
func (r *OrganizationsRepository) List(ctx context.Context) ([]*domain.Organization, error) {
	cur, err := r.coll.Find(ctx, nil)
	if err != nil {
		return nil, domain.NewStorageError("list organizations", err)
	}

	var orgs []*domain.Organization
	err = docstore.All(ctx, cur, func(c docstore.Cursor) error {
		var rec organizationRecord
		if err := c.Decode(&rec); err != nil {
			return err
		}
		org, err := rec.toDomain()
		if err != nil {
			return err
		}
		orgs = append(orgs, org)
		return nil
	})
	if err != nil {
		return nil, domain.NewStorageError("list organizations", err)
	}
	return orgs, nil
}

func toOrganizationRecord(org *domain.Organization) organizationRecord {
	rec := organizationRecord{
		ID:                org.ID.String(),
		Name:              org.Name,
		Slug:              org.Slug,
		CollectionName:    org.CollectionName,
		ConnectionDetails: connectionDetailsRecord{Database: org.ConnectionDetails.Database},
		CreatedAt:         org.CreatedAt,
		UpdatedAt:         org.UpdatedAt,
	}
	if org.AdminID != nil {
		id := org.AdminID.String()
		rec.AdminID = &id
	}
	return rec
}

func (rec organizationRecord) toDomain() (*domain.Organization, error) {
	id, err := uuid.Parse(rec.ID)
	if err != nil {
		return nil, domain.NewStorageError("decode organization", fmt.Errorf("invalid id %q: %w", rec.ID, err))
	}
	org := &domain.Organization{
		ID:                id,
		Name:              rec.Name,
		Slug:              rec.Slug,
		CollectionName:    rec.CollectionName,
		ConnectionDetails: domain.ConnectionDetails{Database: rec.ConnectionDetails.Database},
		CreatedAt:         rec.CreatedAt,
		UpdatedAt:         rec.UpdatedAt,
	}
	if rec.AdminID != nil && *rec.AdminID != "" {
		adminID, err := uuid.Parse(*rec.AdminID)
		if err != nil {
			return nil, domain.NewStorageError("decode organization", fmt.Errorf("invalid admin_id %q: %w", *rec.AdminID, err))
		}
		org.AdminID = &adminID
	}
	return org, nil
}
