package assignments

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/meridian-campus/meridian-campus/internal/authz"
	"github.com/meridian-campus/meridian-campus/internal/platform/httpx"
	"github.com/meridian-campus/meridian-campus/internal/shared"
)

// Handler exposes the administrative assignment surface.
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

// MountRoutes registers assignment routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(authz.PermissionRequirement{Required: authz.PermAssignmentManage, RequireAll: true}))
		r.Post("/", h.assign)
		r.Post("/validate", h.validateAssignment)
		r.Delete("/{id}", h.remove)
		r.Patch("/{id}", h.update)
		r.Post("/{id}/primary", h.setPrimary)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(authz.PermissionRequirement{Required: authz.PermRoleView, RequireAll: true}))
		r.Get("/users/{userID}/effective", h.effectiveRoles)
		r.Get("/users/{userID}/assignable", h.assignableRoles)
		r.Get("/users/{userID}/permissions", h.userPermissions)
		r.Post("/evaluate", h.evaluate)
	})
}

func (h *Handler) assign(w http.ResponseWriter, r *http.Request) {
	principal, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "")
		return
	}
	var req assignRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	targetID, err := uuid.Parse(req.UserID)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid user id")
		return
	}

	if err := h.service.ValidateAssignment(r.Context(), principal.UserID, targetID, req.RoleID); err != nil {
		httpx.RespondError(w, err)
		return
	}

	input := AssignRoleInput{
		UserID:            targetID,
		RoleID:            req.RoleID,
		AssignedBy:        principal.UserID.String(),
		Reason:            req.Reason,
		DepartmentContext: req.DepartmentContext,
		ExpiresAt:         req.ExpiresAt,
		IsPrimary:         req.IsPrimary,
	}
	if req.EffectiveAt != nil {
		input.EffectiveAt = *req.EffectiveAt
	}
	created, err := h.service.AssignRole(r.Context(), input)
	if err != nil {
		h.logger.Error("assign role", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toAssignmentView(created))
}

func (h *Handler) validateAssignment(w http.ResponseWriter, r *http.Request) {
	principal, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "")
		return
	}
	var req validateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	targetID, err := uuid.Parse(req.TargetID)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid target id")
		return
	}
	err = h.service.ValidateAssignment(r.Context(), principal.UserID, targetID, req.RoleID)
	httpx.JSON(w, http.StatusOK, map[string]any{
		"valid":  err == nil,
		"detail": detailFor(err),
	})
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	principal, _ := shared.PrincipalFromContext(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid assignment id")
		return
	}
	var req removeRequest
	_ = httpx.DecodeJSON(r, &req)
	if err := h.service.RemoveAssignment(r.Context(), id, principal.UserID.String(), req.Reason); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	principal, _ := shared.PrincipalFromContext(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid assignment id")
		return
	}
	var req updateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	input := UpdateAssignmentInput{
		NewExpiration: req.NewExpiration,
		NewReason:     req.NewReason,
		SetActive:     req.SetActive,
	}
	if err := h.service.UpdateAssignment(r.Context(), id, principal.UserID.String(), input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) setPrimary(w http.ResponseWriter, r *http.Request) {
	principal, _ := shared.PrincipalFromContext(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid assignment id")
		return
	}
	if err := h.service.SetPrimaryRole(r.Context(), id, principal.UserID.String()); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) effectiveRoles(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid user id")
		return
	}
	assignments, err := h.service.EffectiveRoles(r.Context(), userID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	out := make([]assignmentView, 0, len(assignments))
	for _, a := range assignments {
		out = append(out, toAssignmentView(a))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) assignableRoles(w http.ResponseWriter, r *http.Request) {
	principal, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "")
		return
	}
	targetID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid user id")
		return
	}
	roles, err := h.service.AssignableRoles(r.Context(), principal.UserID, targetID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	type view struct {
		ID         int64  `json:"id"`
		Name       string `json:"name"`
		Type       string `json:"type"`
		Department string `json:"department,omitempty"`
		Priority   int    `json:"priority"`
	}
	out := make([]view, 0, len(roles))
	for _, role := range roles {
		out = append(out, view{
			ID:         role.ID,
			Name:       role.Name,
			Type:       string(role.Type),
			Department: role.Department,
			Priority:   role.Priority,
		})
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) userPermissions(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid user id")
		return
	}
	perms, err := h.service.UserPermissions(r.Context(), userID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"mask":        uint64(perms),
		"permissions": perms.Names(),
	})
}

func (h *Handler) evaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid user id")
		return
	}
	requirement, err := req.Requirement.toRequirement()
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	allowed := h.service.Evaluate(r.Context(), requirement, userID)
	httpx.JSON(w, http.StatusOK, map[string]bool{"allowed": allowed})
}

func detailFor(err error) string {
	if err == nil {
		return ""
	}
	return shared.UserSafeMessage(err)
}
