// Package httptransport assembles the public HTTP surface: middleware chain,
// authenticated API routes, and operational endpoints. Handlers stay thin and
// delegate to domain services.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	claimhandler "velvet/internal/claims/handler"
	evidencehandler "velvet/internal/evidence/handler"
	paymenthandler "velvet/internal/payments/handler"
	"velvet/pkg/platform/httputil"
	"velvet/pkg/platform/middleware/admin"
	"velvet/pkg/platform/middleware/auth"
	"velvet/pkg/platform/middleware/metadata"
	request "velvet/pkg/platform/middleware/request"
	"velvet/pkg/platform/middleware/requesttime"
)

// Deps carries everything the router mounts. All handlers are required;
// AdminToken and Health checks are optional.
type Deps struct {
	Claims   *claimhandler.Handler
	Payments *paymenthandler.Handler
	Evidence *evidencehandler.Handler

	Validator auth.TokenValidator
	Logger    *slog.Logger

	// AdminToken guards /metrics when non-empty.
	AdminToken string

	// Health checks run on /healthz, keyed by dependency name.
	Health map[string]func(context.Context) error
}

// NewRouter wires the middleware chain and all public endpoints.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(request.Middleware)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)

	r.Get("/healthz", healthHandler(deps.Health))

	metricsHandler := promhttp.Handler()
	if deps.AdminToken != "" {
		r.With(admin.RequireAdminToken(deps.AdminToken, deps.Logger)).
			Method(http.MethodGet, "/metrics", metricsHandler)
	} else {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(deps.Validator, deps.Logger))
		deps.Claims.Register(r)
		deps.Payments.Register(r)
		deps.Evidence.Register(r)
	})

	return r
}

func healthHandler(checks map[string]func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		body := map[string]string{"status": "ok"}
		for name, check := range checks {
			if err := check(r.Context()); err != nil {
				status = http.StatusServiceUnavailable
				body["status"] = "degraded"
				body[name] = err.Error()
			}
		}
		httputil.WriteJSON(w, status, body)
	}
}
