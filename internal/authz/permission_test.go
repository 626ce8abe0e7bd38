package authz

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCatalogBitsAreDisjoint(t *testing.T) {
	var seen Permission
	for _, entry := range Catalog() {
		require.Zero(t, seen&entry.Bit, "bit %s overlaps an earlier capability", entry.Detail.Code)
		require.Equal(t, uint64(0), uint64(entry.Bit)&(uint64(entry.Bit)-1), "bit %s is not a power of two", entry.Detail.Code)
		seen |= entry.Bit
	}
	require.Equal(t, PermAll, seen)
}

func TestDefaultBundlesAreStrictSupersets(t *testing.T) {
	types := RoleTypes()
	for i := 1; i < len(types); i++ {
		lower := types[i-1].DefaultPermissions
		higher := types[i].DefaultPermissions
		require.True(t, higher.Has(lower),
			"%s bundle must contain the %s bundle", types[i].Type, types[i-1].Type)
		require.NotEqual(t, lower, higher,
			"%s bundle must add something over %s", types[i].Type, types[i-1].Type)
	}
}

func TestRoleTypePrioritiesTotallyOrdered(t *testing.T) {
	types := RoleTypes()
	for i := 1; i < len(types); i++ {
		require.Greater(t, types[i].Priority, types[i-1].Priority)
	}
}

func TestDecompose(t *testing.T) {
	compound := PermGradeView | PermGradeEnter | PermCourseView
	parts := compound.Decompose()
	require.Equal(t, []Permission{PermGradeView, PermGradeEnter, PermCourseView}, parts)

	require.Empty(t, PermNone.Decompose())

	// Undefined bits never appear in the decomposition.
	dirty := compound | Permission(1<<60)
	require.Equal(t, parts, dirty.Decompose())
}

func TestHasAndHasAny(t *testing.T) {
	set := PermGradeView | PermGradeEnter

	require.True(t, set.Has(PermGradeView))
	require.True(t, set.Has(PermGradeView|PermGradeEnter))
	require.False(t, set.Has(PermGradeView|PermGradeAmend))

	require.True(t, set.HasAny(PermGradeAmend|PermGradeView))
	require.False(t, set.HasAny(PermGradeAmend|PermCourseCreate))
}

func TestValid(t *testing.T) {
	require.True(t, PermAll.Valid())
	require.True(t, PermNone.Valid())
	require.False(t, (PermGradeView | Permission(1<<63)).Valid())
}

func TestDescribe(t *testing.T) {
	detail, ok := Describe(PermRoleManage)
	require.True(t, ok)
	require.Equal(t, "roles.manage", detail.Code)

	_, ok = Describe(Permission(1 << 62))
	require.False(t, ok)
}

func TestNames(t *testing.T) {
	names := (PermUserView | PermAuditAccess).Names()
	require.Equal(t, []string{"users.view", "special.audit"}, names)
}

func TestSystemAdminBundleIsEverything(t *testing.T) {
	info, ok := LookupRoleType(RoleSystemAdmin)
	require.True(t, ok)
	require.Equal(t, PermAll, info.DefaultPermissions)
}

func TestRoleTypeForClassification(t *testing.T) {
	cases := map[string]RoleType{
		ClassificationStudent:       RoleStudent,
		ClassificationTeachingStaff: RoleTeachingStaff,
		ClassificationFaculty:       RoleProfessor,
		ClassificationChair:         RoleChair,
		ClassificationStaff:         RoleAdministrator,
	}
	for classification, want := range cases {
		got, ok := RoleTypeForClassification(classification)
		require.True(t, ok, classification)
		require.Equal(t, want, got)
	}

	_, ok := RoleTypeForClassification("alumni")
	require.False(t, ok)
}
