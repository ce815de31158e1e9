package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tendant/simple-org-slim/internal/config"
	"github.com/tendant/simple-org-slim/internal/httputil"
)

// apiHeaders mirrors the SECURITY_* defaults for a JSON-only API.
var apiHeaders = config.SecurityHeadersConfig{
	Enabled:            true,
	CSP:                "default-src 'none'; frame-ancestors 'none'",
	HSTSMaxAge:         31536000,
	FrameOptions:       "DENY",
	ContentTypeOptions: "nosniff",
	ReferrerPolicy:     "no-referrer",
	PermissionsPolicy:  "geolocation=(), microphone=(), camera=()",
}

func serveWithHeaders(cfg config.SecurityHeadersConfig, h http.HandlerFunc) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	SecurityHeaders(cfg)(h).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/org/create", nil))
	return rec
}

func TestSecurityHeaders_JSONResponses(t *testing.T) {
	handlers := map[string]http.HandlerFunc{
		"created": func(w http.ResponseWriter, r *http.Request) {
			httputil.JSON(w, http.StatusCreated, map[string]string{"message": "Organization created successfully"})
		},
		"conflict": func(w http.ResponseWriter, r *http.Request) {
			httputil.Error(w, http.StatusConflict, "organization name already exists")
		},
	}

	for name, h := range handlers {
		t.Run(name, func(t *testing.T) {
			rec := serveWithHeaders(apiHeaders, h)

			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.Equal(t, apiHeaders.CSP, rec.Header().Get("Content-Security-Policy"))
			assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
			assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
			assert.Equal(t, "no-referrer", rec.Header().Get("Referrer-Policy"))
			assert.Equal(t, apiHeaders.PermissionsPolicy, rec.Header().Get("Permissions-Policy"))
			assert.Equal(t, "max-age=31536000; includeSubDomains", rec.Header().Get("Strict-Transport-Security"))
		})
	}
}

func TestSecurityHeaders_HSTS(t *testing.T) {
	tests := []struct {
		maxAge int
		want   string
	}{
		{maxAge: 0, want: ""},
		{maxAge: -1, want: ""},
		{maxAge: 300, want: "max-age=300; includeSubDomains"},
	}

	for _, tt := range tests {
		cfg := apiHeaders
		cfg.HSTSMaxAge = tt.maxAge
		rec := serveWithHeaders(cfg, func(w http.ResponseWriter, r *http.Request) {})
		assert.Equal(t, tt.want, rec.Header().Get("Strict-Transport-Security"), "max age %d", tt.maxAge)
	}
}

func TestSecurityHeaders_EmptyValueSkipped(t *testing.T) {
	cfg := apiHeaders
	cfg.CSP = ""
	cfg.PermissionsPolicy = ""

	rec := serveWithHeaders(cfg, func(w http.ResponseWriter, r *http.Request) {})

	_, hasCSP := rec.Header()["Content-Security-Policy"]
	assert.False(t, hasCSP)
	_, hasPermissions := rec.Header()["Permissions-Policy"]
	assert.False(t, hasPermissions)
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}

func TestSecurityHeaders_Disabled(t *testing.T) {
	cfg := apiHeaders
	cfg.Enabled = false

	rec := serveWithHeaders(cfg, func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	for _, name := range []string{
		"Content-Security-Policy", "X-Frame-Options", "X-Content-Type-Options",
		"Referrer-Policy", "Permissions-Policy", "Strict-Transport-Security",
	} {
		assert.Empty(t, rec.Header().Get(name), name)
	}
}
