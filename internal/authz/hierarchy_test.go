package authz

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func mustRole(t *testing.T, typ RoleType, department string) Role {
	t.Helper()
	role, err := NewRole(typ, department)
	require.NoError(t, err)
	return role
}

func TestCanManageByPriority(t *testing.T) {
	chair := mustRole(t, RoleChair, "")
	professor := mustRole(t, RoleProfessor, "")
	sysadmin := mustRole(t, RoleSystemAdmin, "")

	require.True(t, CanManage(chair, professor))
	require.False(t, CanManage(professor, chair))
	require.True(t, CanManage(sysadmin, chair))
	require.False(t, CanManage(professor, professor), "equal priority does not manage")
}

func TestCanManageTopTypeManagesEverything(t *testing.T) {
	sysadmin := mustRole(t, RoleSystemAdmin, "")
	for _, info := range RoleTypes() {
		target := mustRole(t, info.Type, "")
		require.True(t, CanManage(sysadmin, target), "system admin must manage %s", info.Type)
	}
}

func TestCanManageDepartmentLeadership(t *testing.T) {
	mathChair := mustRole(t, RoleChair, "Mathematics")
	mathAdmin := mustRole(t, RoleAdministrator, "Mathematics")
	physicsAdmin := mustRole(t, RoleAdministrator, "Physics")
	mathStudent := mustRole(t, RoleStudent, "Mathematics")

	// Same department wins regardless of the priority gap.
	require.True(t, CanManage(mathChair, mathAdmin))
	require.True(t, CanManage(mathChair, mathStudent))

	// Outside the department the priority rule applies again.
	require.False(t, CanManage(mathChair, physicsAdmin))

	// A system-wide chair has no department to widen its reach.
	systemChair := mustRole(t, RoleChair, "")
	require.False(t, CanManage(systemChair, mathAdmin))
	require.True(t, CanManage(systemChair, mathStudent))
}

func TestCanManageInactiveRoles(t *testing.T) {
	sysadmin := mustRole(t, RoleSystemAdmin, "")
	student := mustRole(t, RoleStudent, "")

	inactiveManager := sysadmin
	inactiveManager.IsActive = false
	require.False(t, CanManage(inactiveManager, student))

	inactiveTarget := student
	inactiveTarget.IsActive = false
	require.False(t, CanManage(sysadmin, inactiveTarget))
}

func TestManageableRoles(t *testing.T) {
	chair := mustRole(t, RoleChair, "Mathematics")
	candidates := []Role{
		mustRole(t, RoleStudent, "Mathematics"),
		mustRole(t, RoleAdministrator, "Physics"),
		mustRole(t, RoleProfessor, "Physics"),
	}
	got := ManageableRoles(chair, candidates)
	require.Len(t, got, 2)
	require.Equal(t, RoleStudent, got[0].Type)
	require.Equal(t, RoleProfessor, got[1].Type)
}

func TestEffectivePermissions(t *testing.T) {
	professor := mustRole(t, RoleProfessor, "")
	require.Equal(t, professorBundle, EffectivePermissions(professor))

	professor.AdditionalPermissions = PermAuditAccess
	require.Equal(t, professorBundle|PermAuditAccess, EffectivePermissions(professor))

	inactive := professor
	inactive.IsActive = false
	require.Equal(t, PermNone, EffectivePermissions(inactive))

	// Undefined extra bits degrade the role to its default bundle.
	corrupt := mustRole(t, RoleProfessor, "")
	corrupt.AdditionalPermissions = Permission(1 << 62)
	require.Equal(t, professorBundle, EffectivePermissions(corrupt))
}

func snapshot(t *testing.T, types ...RoleType) (User, []Assignment, RoleSet, time.Time) {
	t.Helper()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	user := User{ID: uuid.New(), IsActive: true}
	roles := RoleSet{}
	var assignments []Assignment
	for i, typ := range types {
		role := mustRole(t, typ, "")
		role.ID = int64(i + 1)
		roles[role.ID] = role
		assignments = append(assignments, Assignment{
			ID:          int64(i + 1),
			UserID:      user.ID,
			RoleID:      role.ID,
			EffectiveAt: now.Add(-time.Hour),
			IsActive:    true,
		})
	}
	return user, assignments, roles, now
}

func TestUserPermissions(t *testing.T) {
	user, assignments, roles, now := snapshot(t, RoleStudent, RoleTeachingStaff)
	require.Equal(t, teachingStaffBundle, UserPermissions(user, assignments, roles, now))

	inactive := user
	inactive.IsActive = false
	require.Equal(t, PermNone, UserPermissions(inactive, assignments, roles, now))
}

func TestUserPermissionsMonotonic(t *testing.T) {
	user, assignments, roles, now := snapshot(t, RoleStudent)
	before := UserPermissions(user, assignments, roles, now)

	extra := mustRole(t, RoleProfessor, "")
	extra.ID = 99
	roles[extra.ID] = extra
	assignments = append(assignments, Assignment{
		ID: 99, UserID: user.ID, RoleID: extra.ID,
		EffectiveAt: now.Add(-time.Minute), IsActive: true,
	})

	after := UserPermissions(user, assignments, roles, now)
	require.True(t, after.Has(before), "adding an effective assignment never shrinks the set")
}

func TestUserPermissionsSkipsIneffective(t *testing.T) {
	user, assignments, roles, now := snapshot(t, RoleStudent, RoleProfessor)
	assignments[1].EffectiveAt = now.Add(time.Hour)
	require.Equal(t, studentBundle, UserPermissions(user, assignments, roles, now))
}

func TestHighestRole(t *testing.T) {
	_, assignments, roles, now := snapshot(t, RoleStudent, RoleChair, RoleProfessor)

	highest, ok := HighestRole(assignments, roles, now)
	require.True(t, ok)
	require.Equal(t, RoleChair, highest.Type)

	_, ok = HighestRole(nil, roles, now)
	require.False(t, ok)
}

func TestHighestRoleIgnoresLapsed(t *testing.T) {
	_, assignments, roles, now := snapshot(t, RoleStudent, RoleChair)
	expired := now.Add(-time.Minute)
	assignments[1].ExpiresAt = &expired

	highest, ok := HighestRole(assignments, roles, now)
	require.True(t, ok)
	require.Equal(t, RoleStudent, highest.Type)
}

func TestHasRoleOrHigher(t *testing.T) {
	user, assignments, roles, now := snapshot(t, RoleProfessor)

	require.True(t, HasRoleOrHigher(user, assignments, roles, now, RoleProfessor))
	require.True(t, HasRoleOrHigher(user, assignments, roles, now, RoleTeachingStaff))
	require.False(t, HasRoleOrHigher(user, assignments, roles, now, RoleChair))

	inactive := user
	inactive.IsActive = false
	require.False(t, HasRoleOrHigher(inactive, assignments, roles, now, RoleStudent))
}

func TestNewRole(t *testing.T) {
	system, err := NewRole(RoleProfessor, "")
	require.NoError(t, err)
	require.True(t, system.IsSystemRole)
	require.True(t, system.IsActive)
	require.Empty(t, system.Department)
	require.Equal(t, 5, system.Priority)
	require.Equal(t, "PROFESSOR", system.NormalizedName)

	scoped, err := NewRole(RoleChair, "Physics")
	require.NoError(t, err)
	require.False(t, scoped.IsSystemRole)
	require.Equal(t, "Physics", scoped.Department)
	require.Equal(t, "Department Chair - Physics", scoped.Name)

	_, err = NewRole(RoleType("DEAN"), "")
	require.Error(t, err)
}

func TestValidateAssignment(t *testing.T) {
	sysadmin := mustRole(t, RoleSystemAdmin, "")
	professor := mustRole(t, RoleProfessor, "")
	student := mustRole(t, RoleStudent, "")
	admin := mustRole(t, RoleAdministrator, "")

	faculty := User{ID: uuid.New(), IsActive: true, Classification: ClassificationFaculty}
	staff := User{ID: uuid.New(), IsActive: true, Classification: ClassificationStaff}

	require.NoError(t, ValidateAssignment(sysadmin, faculty, professor))

	// The assigner must be able to manage the candidate role.
	require.Error(t, ValidateAssignment(student, faculty, professor))

	// Academic roles require an academic classification on the target.
	require.Error(t, ValidateAssignment(sysadmin, staff, professor))
	require.NoError(t, ValidateAssignment(sysadmin, staff, admin))

	// Inactive targets and roles are rejected outright.
	inactiveUser := faculty
	inactiveUser.IsActive = false
	require.Error(t, ValidateAssignment(sysadmin, inactiveUser, professor))

	inactiveRole := professor
	inactiveRole.IsActive = false
	require.Error(t, ValidateAssignment(sysadmin, faculty, inactiveRole))
}
