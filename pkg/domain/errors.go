package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Error kinds. Every failure returned by the lifecycle manager matches one of
// these with errors.Is.
var (
	ErrValidation     = errors.New("validation failed")
	ErrConflict       = errors.New("conflict")
	ErrNotFound       = errors.New("not found")
	ErrForbidden      = errors.New("forbidden")
	ErrStorageFailure = errors.New("storage failure")
	ErrUnauthorized   = errors.New("unauthorized")
)

// Conflict errors
var (
	ErrDuplicateName       = newKindError("organization name already exists", ErrConflict)
	ErrDuplicateSlug       = newKindError("organization slug already exists", ErrConflict)
	ErrDuplicateCollection = newKindError("collection for this organization already exists", ErrConflict)
	ErrDuplicateEmail      = newKindError("admin email already in use", ErrConflict)
)

// Lookup errors
var (
	ErrOrganizationNotFound = newKindError("organization not found", ErrNotFound)
	ErrAdminNotFound        = newKindError("admin not found", ErrNotFound)
)

// Authentication errors
var (
	ErrInvalidCredentials = newKindError("invalid credentials", ErrUnauthorized)
	ErrInvalidToken       = newKindError("invalid token", ErrUnauthorized)
)

// ErrNotOrganizationAdmin is returned when an admin acts on another organization.
var ErrNotOrganizationAdmin = newKindError("not authorized to manage this organization", ErrForbidden)

// kindError is a named failure that belongs to one of the error kinds.
type kindError struct {
	msg  string
	kind error
}

func newKindError(msg string, kind error) error {
	return &kindError{msg: msg, kind: kind}
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() error { return e.kind }

// NewValidationError returns a validation failure with the given message.
func NewValidationError(format string, args ...any) error {
	return newKindError(fmt.Sprintf(format, args...), ErrValidation)
}

// MissingFieldsError reports required fields that were absent or blank.
type MissingFieldsError struct {
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return "missing required fields: " + strings.Join(e.Fields, ", ")
}

func (e *MissingFieldsError) Unwrap() error { return ErrValidation }

// RequireFields returns a *MissingFieldsError naming every key whose value is
// empty after trimming, or nil when all are present.
func RequireFields(fields map[string]string) error {
	var missing []string
	for name, value := range fields {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return &MissingFieldsError{Fields: missing}
}

// StorageError wraps a failure reported by the underlying document store.
type StorageError struct {
	Op  string
	Err error
}

// NewStorageError wraps err unless it is nil or already a storage error.
func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage failure during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Is reports every StorageError as ErrStorageFailure.
func (e *StorageError) Is(target error) bool {
	return target == ErrStorageFailure
}
