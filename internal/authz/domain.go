package authz

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

// Role is a persisted, possibly department-scoped permission bundle tied to a
// role type. Roles are deactivated, never deleted; history on assignments
// referencing them must survive.
type Role struct {
	ID                    int64
	Type                  RoleType
	Name                  string
	NormalizedName        string
	Description           string
	IsActive              bool
	IsSystemRole          bool
	Department            string
	Priority              int
	AdditionalPermissions Permission
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// Assignment is a time-bounded grant of a role to a user. Rows are only ever
// deactivated; deactivation is the delete semantic.
type Assignment struct {
	ID                int64
	UserID            uuid.UUID
	RoleID            int64
	EffectiveAt       time.Time
	ExpiresAt         *time.Time
	IsActive          bool
	IsPrimary         bool
	DepartmentContext string
	Reason            string
	AssignedBy        string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// EffectiveNow reports whether the assignment is currently effective: active,
// past its effective date and not yet expired. Effectiveness is derived from
// the clock, not stored.
func (a Assignment) EffectiveNow(now time.Time) bool {
	if !a.IsActive {
		return false
	}
	if a.EffectiveAt.After(now) {
		return false
	}
	if a.ExpiresAt != nil && !a.ExpiresAt.After(now) {
		return false
	}
	return true
}

// User is the snapshot the external identity source supplies. The engine
// consumes the classification; it never decides it.
type User struct {
	ID             uuid.UUID
	IsActive       bool
	Classification string
	Department     string
}

// RoleSet resolves role ids to role records for a batch of assignments.
// Repositories produce it; the engine only reads it.
type RoleSet map[int64]Role

// NormalizeName canonicalizes a role name for uniqueness comparisons:
// NFKC-normalized, upper-cased, inner whitespace collapsed.
func NormalizeName(name string) string {
	name = norm.NFKC.String(name)
	return strings.ToUpper(strings.Join(strings.Fields(name), " "))
}

// SystemRoleName builds the display name for the system-wide role of a type.
func SystemRoleName(t RoleType) string {
	info, ok := LookupRoleType(t)
	if !ok {
		return string(t)
	}
	return info.DisplayName
}

// DepartmentRoleName builds the display name for a department-scoped role.
func DepartmentRoleName(t RoleType, department string) string {
	return SystemRoleName(t) + " - " + department
}
