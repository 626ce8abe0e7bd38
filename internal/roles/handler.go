package roles

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-campus/meridian-campus/internal/authz"
	"github.com/meridian-campus/meridian-campus/internal/platform/httpx"
	"github.com/meridian-campus/meridian-campus/internal/shared"
)

// Handler exposes role registry endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	guard    authz.Middleware
	validate *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guard authz.Middleware) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		guard:    guard,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// MountRoutes registers role routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(authz.PermissionRequirement{Required: authz.PermRoleView, RequireAll: true}))
		r.Get("/", h.listRoles)
		r.Get("/{id}", h.getRole)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(authz.PermissionRequirement{Required: authz.PermRoleManage, RequireAll: true}))
		r.Post("/", h.createRole)
		r.Post("/{id}/deactivate", h.deactivateRole)
		r.Post("/{id}/activate", h.activateRole)
		r.Put("/{id}/permissions", h.setPermissions)
	})
}

type roleView struct {
	ID                    int64    `json:"id"`
	Type                  string   `json:"type"`
	Name                  string   `json:"name"`
	Description           string   `json:"description"`
	IsActive              bool     `json:"is_active"`
	IsSystemRole          bool     `json:"is_system_role"`
	Department            string   `json:"department,omitempty"`
	Priority              int      `json:"priority"`
	AdditionalPermissions []string `json:"additional_permissions,omitempty"`
	EffectivePermissions  []string `json:"effective_permissions"`
}

func toRoleView(role authz.Role) roleView {
	return roleView{
		ID:                    role.ID,
		Type:                  string(role.Type),
		Name:                  role.Name,
		Description:           role.Description,
		IsActive:              role.IsActive,
		IsSystemRole:          role.IsSystemRole,
		Department:            role.Department,
		Priority:              role.Priority,
		AdditionalPermissions: role.AdditionalPermissions.Names(),
		EffectivePermissions:  authz.EffectivePermissions(role).Names(),
	}
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"
	roles, err := h.service.ListRoles(r.Context(), activeOnly)
	if err != nil {
		h.logger.Error("list roles", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]roleView, 0, len(roles))
	for _, role := range roles {
		out = append(out, toRoleView(role))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) getRole(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid role id")
		return
	}
	role, err := h.service.GetRole(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toRoleView(role))
}

type createRoleRequest struct {
	Type       string `json:"type" validate:"required"`
	Department string `json:"department"`
}

func (h *Handler) createRole(w http.ResponseWriter, r *http.Request) {
	principal, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "")
		return
	}
	var req createRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	role, err := h.service.ResolveOrCreate(r.Context(), authz.RoleType(req.Type), req.Department, principal.UserID.String())
	if err != nil {
		h.logger.Error("create role", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toRoleView(role))
}

func (h *Handler) deactivateRole(w http.ResponseWriter, r *http.Request) {
	h.toggleRole(w, r, false)
}

func (h *Handler) activateRole(w http.ResponseWriter, r *http.Request) {
	h.toggleRole(w, r, true)
}

func (h *Handler) toggleRole(w http.ResponseWriter, r *http.Request, active bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid role id")
		return
	}
	if active {
		err = h.service.Activate(r.Context(), id)
	} else {
		err = h.service.Deactivate(r.Context(), id)
	}
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.NoContent(w)
}

type setPermissionsRequest struct {
	Permissions uint64 `json:"permissions"`
}

func (h *Handler) setPermissions(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid role id")
		return
	}
	var req setPermissionsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.service.SetAdditionalPermissions(r.Context(), id, authz.Permission(req.Permissions)); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.NoContent(w)
}
