package org

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tendant/simple-org-slim/internal/http/features/common"
	"github.com/tendant/simple-org-slim/internal/http/middleware"
	"github.com/tendant/simple-org-slim/internal/httputil"
	"github.com/tendant/simple-org-slim/pkg/domain"
	"github.com/tendant/simple-org-slim/pkg/lifecycle"
)

// Lifecycle is the organization lifecycle the handler drives.
type Lifecycle interface {
	Create(ctx context.Context, req lifecycle.CreateRequest) (*lifecycle.CreateResult, error)
	Get(ctx context.Context, name string) (*domain.Organization, error)
	Update(ctx context.Context, req lifecycle.UpdateRequest) (*lifecycle.UpdateResult, error)
	Delete(ctx context.Context, req lifecycle.DeleteRequest) error
}

// Handler handles organization endpoints.
type Handler struct {
	logger    *slog.Logger
	lifecycle Lifecycle
}

// NewHandler creates a new organization handler.
func NewHandler(logger *slog.Logger, lc Lifecycle) *Handler {
	return &Handler{
		logger:    logger,
		lifecycle: lc,
	}
}

// CreateRequest represents an organization creation request.
type CreateRequest struct {
	OrganizationName string `json:"organization_name"`
	Email            string `json:"email"`
	Password         string `json:"password"`
}

// UpdateRequest represents an organization update request.
type UpdateRequest struct {
	OrganizationName    string `json:"organization_name"`
	NewOrganizationName string `json:"new_organization_name,omitempty"`
	Email               string `json:"email,omitempty"`
	Password            string `json:"password,omitempty"`
}

// NameRequest carries just the organization name.
type NameRequest struct {
	OrganizationName string `json:"organization_name"`
}

// CreatedOrganization is the organization summary returned by Create.
type CreatedOrganization struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Slug           string `json:"slug"`
	CollectionName string `json:"collection_name"`
	AdminEmail     string `json:"admin_email"`
}

// CreateResponse is the body returned by Create.
type CreateResponse struct {
	Message      string              `json:"message"`
	Organization CreatedOrganization `json:"organization"`
}

// ConnectionDetails locates the tenant collection.
type ConnectionDetails struct {
	Database string `json:"database"`
}

// OrganizationResponse is the body returned by Get.
type OrganizationResponse struct {
	ID                string            `json:"id"`
	Name              string            `json:"name"`
	Slug              string            `json:"slug"`
	CollectionName    string            `json:"collection_name"`
	ConnectionDetails ConnectionDetails `json:"connection_details"`
	AdminID           *string           `json:"admin_id"`
	CreatedAt         *string           `json:"created_at"`
}

// MessageResponse is a plain confirmation body.
type MessageResponse struct {
	Message string `json:"message"`
}

// Create provisions an organization and its admin.
// POST /org/create
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.DecodeError(w, err)
		return
	}

	result, err := h.lifecycle.Create(r.Context(), lifecycle.CreateRequest{
		Name:     req.OrganizationName,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		common.WriteError(w, h.logger, err, "failed to create organization")
		return
	}

	httputil.JSON(w, http.StatusCreated, CreateResponse{
		Message: "Organization created successfully",
		Organization: CreatedOrganization{
			ID:             result.Organization.ID.String(),
			Name:           result.Organization.Name,
			Slug:           result.Organization.Slug,
			CollectionName: result.Organization.CollectionName,
			AdminEmail:     result.Admin.Email,
		},
	})
}

// Get returns organization metadata. The name comes from the query string,
// falling back to a JSON body.
// GET /org/get?organization_name=...
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("organization_name")
	if strings.TrimSpace(name) == "" {
		var req NameRequest
		if err := httputil.DecodeJSON(r, &req); err == nil {
			name = req.OrganizationName
		}
	}

	org, err := h.lifecycle.Get(r.Context(), name)
	if err != nil {
		common.WriteError(w, h.logger, err, "failed to get organization")
		return
	}

	httputil.JSON(w, http.StatusOK, toOrganizationResponse(org))
}

// Update renames an organization and/or changes the acting admin's credentials.
// PUT /org/update
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	adminID, ok := middleware.GetAdminID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req UpdateRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.DecodeError(w, err)
		return
	}

	result, err := h.lifecycle.Update(r.Context(), lifecycle.UpdateRequest{
		ActingAdminID:    adminID,
		OrganizationName: req.OrganizationName,
		NewName:          req.NewOrganizationName,
		Email:            req.Email,
		Password:         req.Password,
	})
	if err != nil {
		common.WriteError(w, h.logger, err, "failed to update organization")
		return
	}

	h.logger.Info("organization updated",
		"org_id", result.Organization.ID,
		"renamed", result.Renamed,
		"documents_moved", result.DocumentsMoved,
		"credentials_updated", result.CredentialsUpdated,
	)
	httputil.JSON(w, http.StatusOK, MessageResponse{Message: "Organization updated successfully"})
}

// Delete removes an organization, its admins and its tenant data.
// DELETE /org/delete
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	adminID, ok := middleware.GetAdminID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req NameRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.DecodeError(w, err)
		return
	}

	if err := h.lifecycle.Delete(r.Context(), lifecycle.DeleteRequest{
		ActingAdminID:    adminID,
		OrganizationName: req.OrganizationName,
	}); err != nil {
		common.WriteError(w, h.logger, err, "failed to delete organization")
		return
	}

	httputil.JSON(w, http.StatusOK, MessageResponse{Message: "Organization deleted successfully"})
}

func toOrganizationResponse(org *domain.Organization) OrganizationResponse {
	resp := OrganizationResponse{
		ID:                org.ID.String(),
		Name:              org.Name,
		Slug:              org.Slug,
		CollectionName:    org.CollectionName,
		ConnectionDetails: ConnectionDetails{Database: org.ConnectionDetails.Database},
	}
	if org.HasAdmin() {
		id := org.AdminID.String()
		resp.AdminID = &id
	}
	if !org.CreatedAt.IsZero() {
		created := org.CreatedAt.UTC().Format(time.RFC3339Nano)
		resp.CreatedAt = &created
	}
	return resp
}
