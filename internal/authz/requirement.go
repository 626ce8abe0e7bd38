package authz

import "time"

// Requirement is a sealed union of authorization requirement variants.
// Evaluate dispatches on the concrete type; adding a variant means adding a
// case there, so the compiler keeps the dispatch honest.
type Requirement interface {
	isRequirement()
}

// RoleRequirement demands a specific role type, optionally satisfied by any
// higher-priority role.
type RoleRequirement struct {
	Type        RoleType
	AllowHigher bool
}

// PermissionRequirement demands capability bits. With RequireAll the
// aggregate set must contain every bit; otherwise holding any single
// constituent bit suffices.
type PermissionRequirement struct {
	Required   Permission
	RequireAll bool
}

// DepartmentRequirement demands membership in a department. An empty
// Department accepts any department-scoped assignment.
type DepartmentRequirement struct {
	Department       string
	AllowSystemAdmin bool
}

// ResourceOwnershipRequirement covers the generic part of ownership checks.
// True ownership is resource-specific and stays with the caller; this
// variant only grants the administrative and department escape hatches.
type ResourceOwnershipRequirement struct {
	AllowDepartmentAccess bool
	AllowAdminOverride    bool
}

// MinimumPriorityRequirement demands that the user's highest role meet a
// priority threshold.
type MinimumPriorityRequirement struct {
	Priority int
}

// SatisfiedBy reports whether a held capability set meets the requirement.
// Callers that already hold an aggregate set, such as the cached middleware
// path, answer from here without a full snapshot.
func (r PermissionRequirement) SatisfiedBy(held Permission) bool {
	if r.RequireAll {
		return held.Has(r.Required)
	}
	for _, bit := range r.Required.Decompose() {
		if held.Has(bit) {
			return true
		}
	}
	return false
}

func (RoleRequirement) isRequirement()              {}
func (PermissionRequirement) isRequirement()        {}
func (DepartmentRequirement) isRequirement()        {}
func (ResourceOwnershipRequirement) isRequirement() {}
func (MinimumPriorityRequirement) isRequirement()   {}

// Evaluate answers allow/deny for a requirement against a caller snapshot.
// It never errors: a nil or inactive user, an unknown requirement variant or
// any missing entity all resolve to deny.
func Evaluate(req Requirement, user *User, assignments []Assignment, roles RoleSet, now time.Time) bool {
	if user == nil || !user.IsActive {
		return false
	}
	switch r := req.(type) {
	case RoleRequirement:
		return evaluateRole(r, *user, assignments, roles, now)
	case PermissionRequirement:
		return evaluatePermission(r, *user, assignments, roles, now)
	case DepartmentRequirement:
		return evaluateDepartment(r, *user, assignments, roles, now)
	case ResourceOwnershipRequirement:
		return evaluateOwnership(r, *user, assignments, roles, now)
	case MinimumPriorityRequirement:
		role, ok := HighestRole(assignments, roles, now)
		return ok && role.Priority >= r.Priority
	default:
		return false
	}
}

func evaluateRole(r RoleRequirement, user User, assignments []Assignment, roles RoleSet, now time.Time) bool {
	if r.AllowHigher {
		return HasRoleOrHigher(user, assignments, roles, now, r.Type)
	}
	for _, a := range assignments {
		if !a.EffectiveNow(now) {
			continue
		}
		role, ok := roles[a.RoleID]
		if ok && role.IsActive && role.Type == r.Type {
			return true
		}
	}
	return false
}

func evaluatePermission(r PermissionRequirement, user User, assignments []Assignment, roles RoleSet, now time.Time) bool {
	return r.SatisfiedBy(UserPermissions(user, assignments, roles, now))
}

func evaluateDepartment(r DepartmentRequirement, user User, assignments []Assignment, roles RoleSet, now time.Time) bool {
	if r.AllowSystemAdmin && HasRoleOrHigher(user, assignments, roles, now, TopRoleType()) {
		return true
	}
	for _, a := range assignments {
		if !a.EffectiveNow(now) {
			continue
		}
		role, ok := roles[a.RoleID]
		if !ok || !role.IsActive {
			continue
		}
		if r.Department == "" {
			if role.Department != "" || a.DepartmentContext != "" {
				return true
			}
			continue
		}
		if role.Department == r.Department || a.DepartmentContext == r.Department {
			return true
		}
	}
	return false
}

func evaluateOwnership(r ResourceOwnershipRequirement, user User, assignments []Assignment, roles RoleSet, now time.Time) bool {
	for _, a := range assignments {
		if !a.EffectiveNow(now) {
			continue
		}
		role, ok := roles[a.RoleID]
		if !ok || !role.IsActive {
			continue
		}
		if r.AllowAdminOverride && IsAdministrative(role.Type) {
			return true
		}
		if r.AllowDepartmentAccess && role.Type == DepartmentLeadershipType {
			return true
		}
	}
	return false
}
