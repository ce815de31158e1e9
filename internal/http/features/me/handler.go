package me

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/tendant/simple-org-slim/internal/http/features/common"
	"github.com/tendant/simple-org-slim/internal/http/middleware"
	"github.com/tendant/simple-org-slim/internal/httputil"
	"github.com/tendant/simple-org-slim/pkg/domain"
)

// AdminFinder finds admins by id.
type AdminFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Admin, error)
}

// OrganizationFinder finds organizations by id.
type OrganizationFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Organization, error)
}

// Handler handles the acting admin's profile endpoint.
type Handler struct {
	logger *slog.Logger
	admins AdminFinder
	orgs   OrganizationFinder
}

// NewHandler creates a new me handler.
func NewHandler(logger *slog.Logger, admins AdminFinder, orgs OrganizationFinder) *Handler {
	return &Handler{
		logger: logger,
		admins: admins,
		orgs:   orgs,
	}
}

// AdminResponse represents the acting admin.
type AdminResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// OrganizationResponse summarizes the admin's organization.
type OrganizationResponse struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Slug           string `json:"slug"`
	CollectionName string `json:"collection_name"`
}

// MeResponse is the body returned by GetMe.
type MeResponse struct {
	Admin        AdminResponse        `json:"admin"`
	Organization OrganizationResponse `json:"organization"`
}

// GetMe returns the acting admin and the organization it manages.
// GET /admin/me
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	adminID, ok := middleware.GetAdminID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	admin, err := h.admins.FindByID(r.Context(), adminID)
	if err != nil {
		common.WriteError(w, h.logger, err, "failed to load admin")
		return
	}

	org, err := h.orgs.FindByID(r.Context(), admin.OrganizationID)
	if err != nil {
		common.WriteError(w, h.logger, err, "failed to load organization")
		return
	}

	httputil.JSON(w, http.StatusOK, MeResponse{
		Admin: AdminResponse{
			ID:    admin.ID.String(),
			Email: admin.Email,
			Role:  admin.Role,
		},
		Organization: OrganizationResponse{
			ID:             org.ID.String(),
			Name:           org.Name,
			Slug:           org.Slug,
			CollectionName: org.CollectionName,
		},
	})
}
