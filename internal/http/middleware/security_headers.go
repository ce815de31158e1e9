package middleware

import (
	"fmt"
	"net/http"

	"github.com/tendant/simple-org-slim/internal/config"
)

// SecurityHeaders creates middleware that applies OWASP-recommended security headers.
// Every response is JSON, so the default CSP forbids all content.
func SecurityHeaders(cfg config.SecurityHeadersConfig) func(http.Handler) http.Handler {
	if !cfg.Enabled {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	headers := map[string]string{
		"Content-Security-Policy": cfg.CSP,
		"X-Frame-Options":         cfg.FrameOptions,
		"X-Content-Type-Options":  cfg.ContentTypeOptions,
		"Referrer-Policy":         cfg.ReferrerPolicy,
		"Permissions-Policy":      cfg.PermissionsPolicy,
	}
	if cfg.HSTSMaxAge > 0 {
		headers["Strict-Transport-Security"] = fmt.Sprintf("max-age=%d; includeSubDomains", cfg.HSTSMaxAge)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for name, value := range headers {
				if value != "" {
					w.Header().Set(name, value)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
