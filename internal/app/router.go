package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-campus/meridian-campus/internal/assignments"
	"github.com/meridian-campus/meridian-campus/internal/authz"
	"github.com/meridian-campus/meridian-campus/internal/roles"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	Principal          PrincipalResolver
	RolesHandler       *roles.Handler
	AssignmentsHandler *assignments.Handler
	PermissionsHandler *authz.PermissionsHandler
}

// NewRouter constructs the chi.Router with platform defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:    params.Logger,
		Config:    params.Config,
		Principal: params.Principal,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/roles", params.RolesHandler.MountRoutes)
		r.Route("/assignments", params.AssignmentsHandler.MountRoutes)
		r.Route("/catalog", params.PermissionsHandler.MountRoutes)
	})

	return r
}
