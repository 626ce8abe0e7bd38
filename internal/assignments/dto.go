package assignments

import (
	"fmt"
	"time"

	"github.com/meridian-campus/meridian-campus/internal/authz"
	"github.com/meridian-campus/meridian-campus/internal/shared"
)

type assignRequest struct {
	UserID            string     `json:"user_id" validate:"required,uuid4"`
	RoleID            int64      `json:"role_id" validate:"required,gt=0"`
	Reason            string     `json:"reason"`
	DepartmentContext string     `json:"department_context"`
	EffectiveAt       *time.Time `json:"effective_at"`
	ExpiresAt         *time.Time `json:"expires_at"`
	IsPrimary         bool       `json:"is_primary"`
}

type removeRequest struct {
	Reason string `json:"reason"`
}

type updateRequest struct {
	NewExpiration *time.Time `json:"new_expiration"`
	NewReason     *string    `json:"new_reason"`
	SetActive     *bool      `json:"set_active"`
}

type validateRequest struct {
	TargetID string `json:"target_id" validate:"required,uuid4"`
	RoleID   int64  `json:"role_id" validate:"required,gt=0"`
}

type evaluateRequest struct {
	UserID      string          `json:"user_id" validate:"required,uuid4"`
	Requirement requirementSpec `json:"requirement" validate:"required"`
}

// requirementSpec is the wire form of an authorization requirement. Kind
// selects the variant; the remaining fields apply per kind.
type requirementSpec struct {
	Kind                  string `json:"kind" validate:"required,oneof=role permission department resource_ownership minimum_priority"`
	RoleType              string `json:"role_type,omitempty"`
	AllowHigher           bool   `json:"allow_higher,omitempty"`
	Permissions           uint64 `json:"permissions,omitempty"`
	RequireAll            bool   `json:"require_all,omitempty"`
	Department            string `json:"department,omitempty"`
	AllowSystemAdmin      bool   `json:"allow_system_admin,omitempty"`
	AllowDepartmentAccess bool   `json:"allow_department_access,omitempty"`
	AllowAdminOverride    bool   `json:"allow_admin_override,omitempty"`
	Priority              int    `json:"priority,omitempty"`
}

func (spec requirementSpec) toRequirement() (authz.Requirement, error) {
	switch spec.Kind {
	case "role":
		if _, ok := authz.LookupRoleType(authz.RoleType(spec.RoleType)); !ok {
			return nil, fmt.Errorf("assignments: unknown role type %q: %w", spec.RoleType, shared.ErrValidation)
		}
		return authz.RoleRequirement{Type: authz.RoleType(spec.RoleType), AllowHigher: spec.AllowHigher}, nil
	case "permission":
		return authz.PermissionRequirement{Required: authz.Permission(spec.Permissions), RequireAll: spec.RequireAll}, nil
	case "department":
		return authz.DepartmentRequirement{Department: spec.Department, AllowSystemAdmin: spec.AllowSystemAdmin}, nil
	case "resource_ownership":
		return authz.ResourceOwnershipRequirement{
			AllowDepartmentAccess: spec.AllowDepartmentAccess,
			AllowAdminOverride:    spec.AllowAdminOverride,
		}, nil
	case "minimum_priority":
		return authz.MinimumPriorityRequirement{Priority: spec.Priority}, nil
	default:
		return nil, fmt.Errorf("assignments: unknown requirement kind %q: %w", spec.Kind, shared.ErrValidation)
	}
}

type assignmentView struct {
	ID                int64      `json:"id"`
	UserID            string     `json:"user_id"`
	RoleID            int64      `json:"role_id"`
	EffectiveAt       time.Time  `json:"effective_at"`
	ExpiresAt         *time.Time `json:"expires_at,omitempty"`
	IsActive          bool       `json:"is_active"`
	IsPrimary         bool       `json:"is_primary"`
	DepartmentContext string     `json:"department_context,omitempty"`
	Reason            string     `json:"reason,omitempty"`
	AssignedBy        string     `json:"assigned_by"`
}

func toAssignmentView(a authz.Assignment) assignmentView {
	return assignmentView{
		ID:                a.ID,
		UserID:            a.UserID.String(),
		RoleID:            a.RoleID,
		EffectiveAt:       a.EffectiveAt,
		ExpiresAt:         a.ExpiresAt,
		IsActive:          a.IsActive,
		IsPrimary:         a.IsPrimary,
		DepartmentContext: a.DepartmentContext,
		Reason:            a.Reason,
		AssignedBy:        a.AssignedBy,
	}
}
