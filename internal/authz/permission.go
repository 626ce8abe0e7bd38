// Package authz implements the institutional authorization engine: the
// permission catalog, the role type hierarchy, effective permission
// resolution and the requirement decision handlers. The package is purely
// computational; persistence and transport live with the callers.
package authz

// Permission is a capability set packed into a 64-bit mask. A single
// capability occupies exactly one bit; named groups below are OR-unions of
// their members and carry no bits of their own.
type Permission uint64

// Single-bit capabilities, grouped by functional domain.
const (
	// User management.
	PermUserView Permission = 1 << iota
	PermUserCreate
	PermUserEdit
	PermUserDeactivate

	// Academic records.
	PermGradeView
	PermGradeEnter
	PermGradeAmend
	PermTranscriptView

	// Course management.
	PermCourseView
	PermCourseCreate
	PermCourseEdit
	PermCourseSchedule
	PermEnrollmentManage

	// Department management.
	PermDepartmentView
	PermDepartmentEdit
	PermDepartmentBudget
	PermDepartmentStaffing

	// Research.
	PermResearchPropose
	PermResearchApprove
	PermGrantManage

	// Committees.
	PermCommitteeView
	PermCommitteeServe
	PermCommitteeChair

	// Infrastructure.
	PermFacilityBook
	PermFacilityManage
	PermEquipmentManage

	// System administration.
	PermRoleView
	PermRoleManage
	PermAssignmentManage
	PermSystemConfig

	// Personal data.
	PermProfileViewOwn
	PermProfileEditOwn
	PermPersonalDataView

	// Special overrides.
	PermEmergencyOverride
	PermAuditAccess
)

// PermNone is the empty capability set.
const PermNone Permission = 0

// Named unions per functional domain.
const (
	GroupUserManagement       = PermUserView | PermUserCreate | PermUserEdit | PermUserDeactivate
	GroupAcademicRecords      = PermGradeView | PermGradeEnter | PermGradeAmend | PermTranscriptView
	GroupCourseManagement     = PermCourseView | PermCourseCreate | PermCourseEdit | PermCourseSchedule | PermEnrollmentManage
	GroupDepartmentManagement = PermDepartmentView | PermDepartmentEdit | PermDepartmentBudget | PermDepartmentStaffing
	GroupResearch             = PermResearchPropose | PermResearchApprove | PermGrantManage
	GroupCommittees           = PermCommitteeView | PermCommitteeServe | PermCommitteeChair
	GroupInfrastructure       = PermFacilityBook | PermFacilityManage | PermEquipmentManage
	GroupSystemAdministration = PermRoleView | PermRoleManage | PermAssignmentManage | PermSystemConfig
	GroupPersonalData         = PermProfileViewOwn | PermProfileEditOwn | PermPersonalDataView
	GroupSpecial              = PermEmergencyOverride | PermAuditAccess
)

// PermAll is the union of every capability the catalog defines. Bits outside
// this mask are not valid permissions.
const PermAll = GroupUserManagement | GroupAcademicRecords | GroupCourseManagement |
	GroupDepartmentManagement | GroupResearch | GroupCommittees | GroupInfrastructure |
	GroupSystemAdministration | GroupPersonalData | GroupSpecial

// PermissionDetail carries display metadata for a single capability bit.
type PermissionDetail struct {
	Code        string
	Description string
}

// permissionCatalog lists every single-bit capability in declaration order.
// Decompose and Names depend on this ordering being stable.
var permissionCatalog = []struct {
	Bit    Permission
	Detail PermissionDetail
}{
	{PermUserView, PermissionDetail{"users.view", "View user accounts and directory entries"}},
	{PermUserCreate, PermissionDetail{"users.create", "Create user accounts"}},
	{PermUserEdit, PermissionDetail{"users.edit", "Edit user accounts"}},
	{PermUserDeactivate, PermissionDetail{"users.deactivate", "Deactivate user accounts"}},
	{PermGradeView, PermissionDetail{"grades.view", "View grades for taught sections"}},
	{PermGradeEnter, PermissionDetail{"grades.enter", "Enter grades for taught sections"}},
	{PermGradeAmend, PermissionDetail{"grades.amend", "Amend grades after submission"}},
	{PermTranscriptView, PermissionDetail{"transcripts.view", "View academic transcripts"}},
	{PermCourseView, PermissionDetail{"courses.view", "View the course catalog"}},
	{PermCourseCreate, PermissionDetail{"courses.create", "Create courses"}},
	{PermCourseEdit, PermissionDetail{"courses.edit", "Edit course definitions"}},
	{PermCourseSchedule, PermissionDetail{"courses.schedule", "Schedule course sections"}},
	{PermEnrollmentManage, PermissionDetail{"enrollments.manage", "Manage section enrollment"}},
	{PermDepartmentView, PermissionDetail{"departments.view", "View department records"}},
	{PermDepartmentEdit, PermissionDetail{"departments.edit", "Edit department records"}},
	{PermDepartmentBudget, PermissionDetail{"departments.budget", "Manage department budgets"}},
	{PermDepartmentStaffing, PermissionDetail{"departments.staffing", "Manage department staffing"}},
	{PermResearchPropose, PermissionDetail{"research.propose", "Submit research proposals"}},
	{PermResearchApprove, PermissionDetail{"research.approve", "Approve research proposals"}},
	{PermGrantManage, PermissionDetail{"research.grants", "Manage research grants"}},
	{PermCommitteeView, PermissionDetail{"committees.view", "View committee rosters"}},
	{PermCommitteeServe, PermissionDetail{"committees.serve", "Serve on committees"}},
	{PermCommitteeChair, PermissionDetail{"committees.chair", "Chair committees"}},
	{PermFacilityBook, PermissionDetail{"facilities.book", "Book rooms and facilities"}},
	{PermFacilityManage, PermissionDetail{"facilities.manage", "Manage facility inventory"}},
	{PermEquipmentManage, PermissionDetail{"equipment.manage", "Manage department equipment"}},
	{PermRoleView, PermissionDetail{"roles.view", "View roles and assignments"}},
	{PermRoleManage, PermissionDetail{"roles.manage", "Create and modify roles"}},
	{PermAssignmentManage, PermissionDetail{"assignments.manage", "Grant and revoke role assignments"}},
	{PermSystemConfig, PermissionDetail{"system.config", "Change platform configuration"}},
	{PermProfileViewOwn, PermissionDetail{"profile.view", "View own profile"}},
	{PermProfileEditOwn, PermissionDetail{"profile.edit", "Edit own profile"}},
	{PermPersonalDataView, PermissionDetail{"personal.view", "View personal data of other users"}},
	{PermEmergencyOverride, PermissionDetail{"special.override", "Emergency override of record locks"}},
	{PermAuditAccess, PermissionDetail{"special.audit", "Access audit trails"}},
}

// Has reports whether every bit of p is present in the set.
func (s Permission) Has(p Permission) bool {
	return s&p == p
}

// HasAny reports whether at least one bit of p is present in the set.
func (s Permission) HasAny(p Permission) bool {
	return s&p != 0
}

// Valid reports whether the set contains no bits outside the catalog.
func (s Permission) Valid() bool {
	return s&^PermAll == 0
}

// Decompose expands a possibly compound mask into its single-bit members.
// Only exact powers of two defined by the catalog are returned.
func (s Permission) Decompose() []Permission {
	var out []Permission
	for _, entry := range permissionCatalog {
		if s&entry.Bit != 0 {
			out = append(out, entry.Bit)
		}
	}
	return out
}

// Names returns the catalog codes for every single-bit member of the mask.
func (s Permission) Names() []string {
	var out []string
	for _, entry := range permissionCatalog {
		if s&entry.Bit != 0 {
			out = append(out, entry.Detail.Code)
		}
	}
	return out
}

// Describe returns the catalog metadata for a single capability bit.
func Describe(p Permission) (PermissionDetail, bool) {
	for _, entry := range permissionCatalog {
		if entry.Bit == p {
			return entry.Detail, true
		}
	}
	return PermissionDetail{}, false
}

// CatalogEntry pairs a capability bit with its metadata for listing APIs.
type CatalogEntry struct {
	Bit    Permission
	Detail PermissionDetail
}

// Catalog returns every defined capability in declaration order.
func Catalog() []CatalogEntry {
	out := make([]CatalogEntry, len(permissionCatalog))
	for i, entry := range permissionCatalog {
		out[i] = CatalogEntry{Bit: entry.Bit, Detail: entry.Detail}
	}
	return out
}
