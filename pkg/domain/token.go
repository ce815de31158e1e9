package domain

import (
	"time"

	"github.com/google/uuid"
)

// AccessToken is a signed bearer token issued to an admin.
type AccessToken struct {
	Token     string
	TokenType string
	ExpiresIn int
	ExpiresAt time.Time
}

// LoginResult is returned after an admin authenticates.
type LoginResult struct {
	AccessToken      AccessToken
	AdminID          uuid.UUID
	OrganizationID   uuid.UUID
	OrganizationName string
}
