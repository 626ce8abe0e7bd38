package authz

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-campus/meridian-campus/internal/platform/httpx"
)

// PermissionsHandler serves the static permission and role type catalogs.
type PermissionsHandler struct {
	guard Middleware
}

// NewPermissionsHandler builds a PermissionsHandler instance.
func NewPermissionsHandler(guard Middleware) *PermissionsHandler {
	return &PermissionsHandler{guard: guard}
}

// MountRoutes registers catalog routes.
func (h *PermissionsHandler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(PermissionRequirement{Required: PermRoleView, RequireAll: true}))
		r.Get("/permissions", h.listPermissions)
		r.Get("/role-types", h.listRoleTypes)
	})
}

type permissionView struct {
	Code        string `json:"code"`
	Description string `json:"description"`
	Bit         uint64 `json:"bit"`
}

type roleTypeView struct {
	Type        string   `json:"type"`
	DisplayName string   `json:"display_name"`
	Description string   `json:"description"`
	Priority    int      `json:"priority"`
	Permissions []string `json:"permissions"`
}

func (h *PermissionsHandler) listPermissions(w http.ResponseWriter, r *http.Request) {
	entries := Catalog()
	out := make([]permissionView, 0, len(entries))
	for _, entry := range entries {
		out = append(out, permissionView{
			Code:        entry.Detail.Code,
			Description: entry.Detail.Description,
			Bit:         uint64(entry.Bit),
		})
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *PermissionsHandler) listRoleTypes(w http.ResponseWriter, r *http.Request) {
	types := RoleTypes()
	out := make([]roleTypeView, 0, len(types))
	for _, info := range types {
		out = append(out, roleTypeView{
			Type:        string(info.Type),
			DisplayName: info.DisplayName,
			Description: info.Description,
			Priority:    info.Priority,
			Permissions: info.DefaultPermissions.Names(),
		})
	}
	httpx.JSON(w, http.StatusOK, out)
}
