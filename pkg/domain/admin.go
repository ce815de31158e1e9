package domain

import (
	"time"

	"github.com/google/uuid"
)

// RoleAdmin is the only role an organization admin carries.
const RoleAdmin = "admin"

// Admin is the single administrative identity of an organization.
type Admin struct {
	ID             uuid.UUID
	Email          string
	PasswordHash   string
	OrganizationID uuid.UUID
	Role           string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// BelongsTo returns true if the admin manages the given organization.
func (a *Admin) BelongsTo(org *Organization) bool {
	return org != nil && a.OrganizationID == org.ID
}

// AdminUpdate holds the credential fields to overwrite.
type AdminUpdate struct {
	Email        *string
	PasswordHash *string
}

// IsEmpty returns true if the update carries no fields.
func (u AdminUpdate) IsEmpty() bool {
	return u.Email == nil && u.PasswordHash == nil
}
