package session

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/tendant/simple-org-slim/internal/http/features/common"
	"github.com/tendant/simple-org-slim/internal/httputil"
	"github.com/tendant/simple-org-slim/pkg/domain"
)

// Authenticator verifies admin credentials and issues access tokens.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*domain.LoginResult, error)
}

// Handler handles admin session endpoints.
type Handler struct {
	logger   *slog.Logger
	sessions Authenticator
}

// NewHandler creates a new session handler.
func NewHandler(logger *slog.Logger, sessions Authenticator) *Handler {
	return &Handler{
		logger:   logger,
		sessions: sessions,
	}
}

// LoginRequest represents an admin login request.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the access token and the admin's organization.
type LoginResponse struct {
	AccessToken      string `json:"access_token"`
	TokenType        string `json:"token_type"`
	ExpiresIn        int    `json:"expires_in"`
	AdminID          string `json:"admin_id"`
	OrganizationID   string `json:"organization_id"`
	OrganizationName string `json:"organization_name"`
}

// Login authenticates an admin.
// POST /admin/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.DecodeError(w, err)
		return
	}

	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		httputil.Error(w, http.StatusBadRequest, "email and password are required")
		return
	}

	result, err := h.sessions.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidCredentials):
			h.logger.Warn("admin login failed", "ip", r.RemoteAddr)
			httputil.Error(w, http.StatusUnauthorized, "Invalid credentials")
		case errors.Is(err, domain.ErrOrganizationNotFound):
			httputil.Error(w, http.StatusNotFound, "Organization not found for this admin")
		default:
			common.WriteError(w, h.logger, err, "login failed")
		}
		return
	}

	httputil.JSON(w, http.StatusOK, LoginResponse{
		AccessToken:      result.AccessToken.Token,
		TokenType:        result.AccessToken.TokenType,
		ExpiresIn:        result.AccessToken.ExpiresIn,
		AdminID:          result.AdminID.String(),
		OrganizationID:   result.OrganizationID.String(),
		OrganizationName: result.OrganizationName,
	})
}
