package authz

import (
	"fmt"
	"time"

	"github.com/meridian-campus/meridian-campus/internal/shared"
)

// CanManage reports whether the manager role has authority over the target
// role. The top system type manages everything. A department-scoped
// leadership role manages every role in its own department regardless of
// priority, and everything below it elsewhere. All other roles manage
// strictly by priority.
//
// Only the manager's department is ever inspected here; a target's
// department is meaningless to a manager without one. That asymmetry is
// intentional.
func CanManage(manager, target Role) bool {
	if !manager.IsActive || !target.IsActive {
		return false
	}
	if manager.Type == TopRoleType() {
		return true
	}
	if manager.Department != "" && manager.Type == DepartmentLeadershipType {
		if target.Department == manager.Department {
			return true
		}
		return manager.Priority > target.Priority
	}
	return manager.Priority > target.Priority
}

// ManageableRoles filters candidates down to the ones the manager role can
// manage.
func ManageableRoles(manager Role, candidates []Role) []Role {
	var out []Role
	for _, c := range candidates {
		if CanManage(manager, c) {
			out = append(out, c)
		}
	}
	return out
}

// EffectivePermissions resolves the capability set a role grants: the type's
// default bundle plus the role's extra bits. An inactive role grants
// nothing. Extra bits outside the catalog degrade the role to its default
// bundle alone.
func EffectivePermissions(role Role) Permission {
	if !role.IsActive {
		return PermNone
	}
	info, ok := LookupRoleType(role.Type)
	if !ok {
		return PermNone
	}
	if !role.AdditionalPermissions.Valid() {
		return info.DefaultPermissions
	}
	return info.DefaultPermissions | role.AdditionalPermissions
}

// UserPermissions aggregates the capability sets of every currently
// effective assignment the user holds. An inactive user holds nothing.
func UserPermissions(user User, assignments []Assignment, roles RoleSet, now time.Time) Permission {
	if !user.IsActive {
		return PermNone
	}
	var perms Permission
	for _, a := range assignments {
		if !a.EffectiveNow(now) {
			continue
		}
		role, ok := roles[a.RoleID]
		if !ok {
			continue
		}
		perms |= EffectivePermissions(role)
	}
	return perms
}

// HasPermission reports whether the user's aggregate capability set contains
// every bit of required.
func HasPermission(user User, assignments []Assignment, roles RoleSet, now time.Time, required Permission) bool {
	return UserPermissions(user, assignments, roles, now).Has(required)
}

// HasAnyPermission reports whether the user's aggregate capability set
// contains at least one bit of required.
func HasAnyPermission(user User, assignments []Assignment, roles RoleSet, now time.Time, required Permission) bool {
	return UserPermissions(user, assignments, roles, now).HasAny(required)
}

// HighestRole returns the currently effective role with the greatest
// priority, if any.
func HighestRole(assignments []Assignment, roles RoleSet, now time.Time) (Role, bool) {
	var best Role
	found := false
	for _, a := range assignments {
		if !a.EffectiveNow(now) {
			continue
		}
		role, ok := roles[a.RoleID]
		if !ok || !role.IsActive {
			continue
		}
		if !found || role.Priority > best.Priority {
			best = role
			found = true
		}
	}
	return best, found
}

// HasRoleOrHigher reports whether the user holds the required type exactly,
// or any role whose priority exceeds the required type's priority.
func HasRoleOrHigher(user User, assignments []Assignment, roles RoleSet, now time.Time, required RoleType) bool {
	if !user.IsActive {
		return false
	}
	threshold := TypePriority(required)
	for _, a := range assignments {
		if !a.EffectiveNow(now) {
			continue
		}
		role, ok := roles[a.RoleID]
		if !ok || !role.IsActive {
			continue
		}
		if role.Type == required || role.Priority > threshold {
			return true
		}
	}
	return false
}

// NewRole builds a role record initialized from the role type catalog. The
// role is system-wide when department is empty.
func NewRole(t RoleType, department string) (Role, error) {
	info, ok := LookupRoleType(t)
	if !ok {
		return Role{}, fmt.Errorf("authz: unknown role type %q: %w", t, shared.ErrNotFound)
	}
	name := SystemRoleName(t)
	if department != "" {
		name = DepartmentRoleName(t, department)
	}
	return Role{
		Type:           t,
		Name:           name,
		NormalizedName: NormalizeName(name),
		Description:    info.Description,
		IsActive:       true,
		IsSystemRole:   department == "",
		Department:     department,
		Priority:       info.Priority,
	}, nil
}

// ValidateAssignment is the single business-rule gate for granting a role:
// the assigner's role must manage the candidate role, the target user must
// be active, and academic role types require an academic classification on
// the target. Returns nil when the grant is allowed.
func ValidateAssignment(assigner Role, target User, candidate Role) error {
	if !target.IsActive {
		return fmt.Errorf("authz: target user %s is inactive: %w", target.ID, shared.ErrInvalidState)
	}
	if !candidate.IsActive {
		return fmt.Errorf("authz: role %q is inactive: %w", candidate.Name, shared.ErrInvalidState)
	}
	if !CanManage(assigner, candidate) {
		return fmt.Errorf("authz: role %q cannot grant %q: %w", assigner.Name, candidate.Name, shared.ErrValidation)
	}
	if IsAcademic(candidate.Type) && !isAcademicClassification(target.Classification) {
		return fmt.Errorf("authz: role %q requires an academic classification: %w", candidate.Name, shared.ErrValidation)
	}
	return nil
}

func isAcademicClassification(classification string) bool {
	switch classification {
	case ClassificationStudent, ClassificationTeachingStaff, ClassificationFaculty, ClassificationChair:
		return true
	default:
		return false
	}
}
