// Package common holds helpers shared by the feature handlers.
package common

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/tendant/simple-org-slim/internal/httputil"
	"github.com/tendant/simple-org-slim/pkg/domain"
)

// StatusFor maps a domain error to its HTTP status code.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// WriteError writes err as a JSON error response. Domain failures carry their
// own message; anything else is logged and reported as a generic failure.
func WriteError(w http.ResponseWriter, logger *slog.Logger, err error, fallback string) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error(fallback, "error", err)
		httputil.Error(w, status, fallback)
		return
	}
	httputil.Error(w, status, errorMessage(err))
}

// errorMessage returns the message of the domain error inside err, without
// the wrapping added by the lifecycle saga.
func errorMessage(err error) string {
	for _, target := range []error{
		domain.ErrDuplicateName,
		domain.ErrDuplicateSlug,
		domain.ErrDuplicateCollection,
		domain.ErrDuplicateEmail,
		domain.ErrOrganizationNotFound,
		domain.ErrAdminNotFound,
		domain.ErrNotOrganizationAdmin,
		domain.ErrInvalidCredentials,
		domain.ErrInvalidToken,
	} {
		if errors.Is(err, target) {
			return target.Error()
		}
	}
	return err.Error()
}
