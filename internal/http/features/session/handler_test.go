package session

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/tendant/simple-org-slim/pkg/domain"
)

type stubAuthenticator struct {
	result *domain.LoginResult
	err    error
	calls  int
}

func (s *stubAuthenticator) Login(context.Context, string, string) (*domain.LoginResult, error) {
	s.calls++
	return s.result, s.err
}

func newTestHandler(auth Authenticator) *Handler {
	return NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), auth)
}

func TestLoginRequest_Validation(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		expectedStatus int
		expectedError  string
	}{
		{
			name:           "empty body",
			body:           `{}`,
			expectedStatus: http.StatusBadRequest,
			expectedError:  "email and password are required",
		},
		{
			name:           "missing password",
			body:           `{"email": "admin@acme.com"}`,
			expectedStatus: http.StatusBadRequest,
			expectedError:  "email and password are required",
		},
		{
			name:           "blank email",
			body:           `{"email": "   ", "password": "secret"}`,
			expectedStatus: http.StatusBadRequest,
			expectedError:  "email and password are required",
		},
		{
			name:           "invalid json",
			body:           `{invalid}`,
			expectedStatus: http.StatusBadRequest,
			expectedError:  "invalid request body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth := &stubAuthenticator{}
			handler := newTestHandler(auth)

			req := httptest.NewRequest(http.MethodPost, "/admin/login", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()

			handler.Login(rec, req)

			if rec.Code != tt.expectedStatus {
				t.Errorf("Status code = %d, want %d", rec.Code, tt.expectedStatus)
			}

			var response map[string]string
			json.NewDecoder(rec.Body).Decode(&response)
			if response["error"] != tt.expectedError {
				t.Errorf("Error = %q, want %q", response["error"], tt.expectedError)
			}
			if auth.calls != 0 {
				t.Error("Validation should have failed before reaching service")
			}
		})
	}
}

func TestLogin_Failures(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedError  string
	}{
		{
			name:           "invalid credentials",
			err:            domain.ErrInvalidCredentials,
			expectedStatus: http.StatusUnauthorized,
			expectedError:  "Invalid credentials",
		},
		{
			name:           "organization missing",
			err:            domain.ErrOrganizationNotFound,
			expectedStatus: http.StatusNotFound,
			expectedError:  "Organization not found for this admin",
		},
		{
			name:           "storage failure",
			err:            domain.NewStorageError("find admin", io.ErrUnexpectedEOF),
			expectedStatus: http.StatusInternalServerError,
			expectedError:  "login failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := newTestHandler(&stubAuthenticator{err: tt.err})

			req := httptest.NewRequest(http.MethodPost, "/admin/login",
				bytes.NewBufferString(`{"email": "admin@acme.com", "password": "wrong"}`))
			rec := httptest.NewRecorder()
			handler.Login(rec, req)

			if rec.Code != tt.expectedStatus {
				t.Errorf("Status code = %d, want %d", rec.Code, tt.expectedStatus)
			}
			var response map[string]string
			json.NewDecoder(rec.Body).Decode(&response)
			if response["error"] != tt.expectedError {
				t.Errorf("Error = %q, want %q", response["error"], tt.expectedError)
			}
		})
	}
}

func TestLogin_Success(t *testing.T) {
	result := &domain.LoginResult{
		AccessToken:      domain.AccessToken{Token: "signed", TokenType: "Bearer", ExpiresIn: 900},
		AdminID:          uuid.New(),
		OrganizationID:   uuid.New(),
		OrganizationName: "Acme Inc",
	}
	handler := newTestHandler(&stubAuthenticator{result: result})

	req := httptest.NewRequest(http.MethodPost, "/admin/login",
		bytes.NewBufferString(`{"email": "admin@acme.com", "password": "secret"}`))
	rec := httptest.NewRecorder()
	handler.Login(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Status code = %d, want %d", rec.Code, http.StatusOK)
	}

	var response LoginResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if response.AccessToken != "signed" || response.TokenType != "Bearer" || response.ExpiresIn != 900 {
		t.Errorf("token fields = %+v", response)
	}
	if response.AdminID != result.AdminID.String() {
		t.Errorf("AdminID = %q, want %q", response.AdminID, result.AdminID)
	}
	if response.OrganizationID != result.OrganizationID.String() {
		t.Errorf("OrganizationID = %q, want %q", response.OrganizationID, result.OrganizationID)
	}
	if response.OrganizationName != "Acme Inc" {
		t.Errorf("OrganizationName = %q, want %q", response.OrganizationName, "Acme Inc")
	}
}
