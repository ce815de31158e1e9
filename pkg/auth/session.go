package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/tendant/simple-org-slim/pkg/domain"
)

// DefaultAccessTokenTTL is the access token lifetime used when none is configured.
const DefaultAccessTokenTTL = 15 * time.Minute

// SessionConfig holds token configuration.
type SessionConfig struct {
	AccessTokenTTL time.Duration
	JWTSecret      []byte
	Issuer         string
}

// AdminLookup finds admins by login email.
type AdminLookup interface {
	FindByEmail(ctx context.Context, email string) (*domain.Admin, error)
}

// OrganizationLookup finds organizations by id.
type OrganizationLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Organization, error)
}

// PasswordVerifier checks a plaintext password against a stored digest.
type PasswordVerifier interface {
	Verify(password, digest string) bool
}

// SessionService authenticates admins and issues stateless access tokens.
type SessionService struct {
	config   SessionConfig
	admins   AdminLookup
	orgs     OrganizationLookup
	verifier PasswordVerifier
}

// NewSessionService creates a new session service.
func NewSessionService(config SessionConfig, admins AdminLookup, orgs OrganizationLookup, verifier PasswordVerifier) *SessionService {
	if config.AccessTokenTTL == 0 {
		config.AccessTokenTTL = DefaultAccessTokenTTL
	}
	return &SessionService{
		config:   config,
		admins:   admins,
		orgs:     orgs,
		verifier: verifier,
	}
}

// AccessTokenTTL returns the access token TTL.
func (s *SessionService) AccessTokenTTL() time.Duration {
	return s.config.AccessTokenTTL
}

// AccessTokenClaims represents the claims in an access token. The subject is
// the admin id.
type AccessTokenClaims struct {
	jwt.RegisteredClaims
	OrgID   string `json:"org_id"`
	OrgName string `json:"org_name"`
	Role    string `json:"role"`
}

// Login verifies an admin's credentials and issues an access token scoped to
// the admin's organization.
func (s *SessionService) Login(ctx context.Context, email, password string) (*domain.LoginResult, error) {
	if err := domain.RequireFields(map[string]string{"email": email, "password": password}); err != nil {
		return nil, err
	}

	admin, err := s.admins.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrAdminNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if !s.verifier.Verify(password, admin.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}

	org, err := s.orgs.FindByID(ctx, admin.OrganizationID)
	if err != nil {
		return nil, err
	}

	token, err := s.IssueToken(admin, org)
	if err != nil {
		return nil, err
	}

	return &domain.LoginResult{
		AccessToken:      *token,
		AdminID:          admin.ID,
		OrganizationID:   org.ID,
		OrganizationName: org.Name,
	}, nil
}

// IssueToken signs an access token for admin acting on org.
func (s *SessionService) IssueToken(admin *domain.Admin, org *domain.Organization) (*domain.AccessToken, error) {
	now := time.Now()
	expiresAt := now.Add(s.config.AccessTokenTTL)

	role := admin.Role
	if role == "" {
		role = domain.RoleAdmin
	}

	claims := AccessTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   admin.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			Issuer:    s.config.Issuer,
			ID:        uuid.NewString(),
		},
		OrgID:   org.ID.String(),
		OrgName: org.Name,
		Role:    role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.config.JWTSecret)
	if err != nil {
		return nil, err
	}

	return &domain.AccessToken{
		Token:     signed,
		TokenType: "Bearer",
		ExpiresIn: int(s.config.AccessTokenTTL.Seconds()),
		ExpiresAt: expiresAt,
	}, nil
}

// ValidateAccessToken validates an access token and returns the claims.
func (s *SessionService) ValidateAccessToken(tokenString string) (*AccessTokenClaims, error) {
	var opts []jwt.ParserOption
	if s.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.config.Issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &AccessTokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domain.ErrInvalidToken
		}
		return s.config.JWTSecret, nil
	}, opts...)
	if err != nil {
		return nil, domain.ErrInvalidToken
	}

	claims, ok := token.Claims.(*AccessTokenClaims)
	if !ok || !token.Valid {
		return nil, domain.ErrInvalidToken
	}

	return claims, nil
}

// AdminIDFromToken extracts the acting admin id from an access token.
func (s *SessionService) AdminIDFromToken(tokenString string) (uuid.UUID, error) {
	claims, err := s.ValidateAccessToken(tokenString)
	if err != nil {
		return uuid.Nil, err
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, domain.ErrInvalidToken
	}
	return id, nil
}
