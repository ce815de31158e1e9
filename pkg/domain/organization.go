package domain

import (
	"time"

	"github.com/google/uuid"
)

// Organization is a tenant: one metadata record, one admin and one data
// collection named after its slug.
type Organization struct {
	ID                uuid.UUID
	Name              string
	Slug              string
	CollectionName    string
	AdminID           *uuid.UUID
	ConnectionDetails ConnectionDetails
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// ConnectionDetails locates the tenant collection.
type ConnectionDetails struct {
	Database string
}

// HasAdmin returns true once the admin has been linked.
func (o *Organization) HasAdmin() bool {
	return o.AdminID != nil && *o.AdminID != uuid.Nil
}

// OrganizationUpdate holds the metadata fields to overwrite. Nil fields are
// left untouched.
type OrganizationUpdate struct {
	Name           *string
	Slug           *string
	CollectionName *string
	AdminID        *uuid.UUID
}

// IsEmpty returns true if the update carries no fields.
func (u OrganizationUpdate) IsEmpty() bool {
	return u.Name == nil && u.Slug == nil && u.CollectionName == nil && u.AdminID == nil
}
