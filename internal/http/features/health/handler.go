package health

import (
	"net/http"

	"github.com/tendant/simple-org-slim/internal/httputil"
)

// ServiceName is reported by the health endpoint.
const ServiceName = "Organization Management Service"

// Check reports that the service is up.
// GET / and GET /health
func Check(w http.ResponseWriter, r *http.Request) {
	httputil.JSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": ServiceName,
	})
}
