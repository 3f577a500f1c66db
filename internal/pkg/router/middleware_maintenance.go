package router

import (
	"net/http"

	"github.com/samber/lo"
	"github.com/shandysiswandi/seedotp/internal/pkg/config"
)

// middlewareMaintenance answers 503 for routes listed in
// app.maintenance.endpoints. "*" blocks every route except /health. The list is
// read per request so a hot-reloaded config takes effect immediately.
func middlewareMaintenance(cfg config.Config) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg == nil {
				next.ServeHTTP(w, r)
				return
			}

			route := routePattern(r)
			blocked := cfg.GetArray("app.maintenance.endpoints")
			if lo.Contains(blocked, route) || (route != "/health" && lo.Contains(blocked, "*")) {
				writeJSON(w, errorResponse{Message: "service is under maintenance"}, http.StatusServiceUnavailable)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
