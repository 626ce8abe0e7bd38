package authz

// RoleType enumerates the institutional role categories. The set is fixed;
// new categories require a catalog change, not data.
type RoleType string

const (
	RoleStudent       RoleType = "STUDENT"
	RoleTeachingStaff RoleType = "TEACHING_STAFF"
	RoleProfessor     RoleType = "PROFESSOR"
	RoleChair         RoleType = "CHAIR"
	RoleAdministrator RoleType = "ADMINISTRATOR"
	RoleSystemAdmin   RoleType = "SYSTEM_ADMIN"
)

// RoleTypeInfo carries the static definition of a role type.
type RoleTypeInfo struct {
	Type               RoleType
	DisplayName        string
	Description        string
	Priority           int
	DefaultPermissions Permission
}

// Default permission bundles are built compositionally: every type's bundle
// is a strict superset of the bundles below it in priority.
const (
	studentBundle       = PermProfileViewOwn | PermProfileEditOwn | PermCourseView | PermTranscriptView | PermFacilityBook
	teachingStaffBundle = studentBundle | PermGradeView | PermGradeEnter | PermEnrollmentManage | PermCommitteeView | PermCommitteeServe
	professorBundle     = teachingStaffBundle | PermGradeAmend | PermCourseCreate | PermCourseEdit | PermCourseSchedule |
		PermResearchPropose | PermGrantManage | PermCommitteeChair
	chairBundle = professorBundle | GroupDepartmentManagement | PermResearchApprove | PermUserView | PermEquipmentManage
	adminBundle = chairBundle | GroupUserManagement | PermPersonalDataView | PermFacilityManage |
		PermRoleView | PermAssignmentManage | PermAuditAccess
	systemAdminBundle = PermAll
)

// roleTypeCatalog lists every role type in ascending priority order.
// Priorities totally order the types; ties are a catalog bug.
var roleTypeCatalog = []RoleTypeInfo{
	{RoleStudent, "Student", "Enrolled student", 1, studentBundle},
	{RoleTeachingStaff, "Teaching Staff", "Lecturers, instructors and teaching assistants", 3, teachingStaffBundle},
	{RoleProfessor, "Professor", "Tenured and tenure-track faculty", 5, professorBundle},
	{RoleChair, "Department Chair", "Head of an academic department", 7, chairBundle},
	{RoleAdministrator, "Administrator", "Institutional administration staff", 8, adminBundle},
	{RoleSystemAdmin, "System Administrator", "Platform operator with unrestricted access", 10, systemAdminBundle},
}

// RoleTypes returns every defined role type in ascending priority order.
func RoleTypes() []RoleTypeInfo {
	out := make([]RoleTypeInfo, len(roleTypeCatalog))
	copy(out, roleTypeCatalog)
	return out
}

// LookupRoleType resolves the static definition of a role type.
func LookupRoleType(t RoleType) (RoleTypeInfo, bool) {
	for _, info := range roleTypeCatalog {
		if info.Type == t {
			return info, true
		}
	}
	return RoleTypeInfo{}, false
}

// TypePriority returns the intrinsic priority of a role type, or 0 for an
// unknown type.
func TypePriority(t RoleType) int {
	info, ok := LookupRoleType(t)
	if !ok {
		return 0
	}
	return info.Priority
}

// TopRoleType returns the highest-priority role type in the catalog.
func TopRoleType() RoleType {
	return roleTypeCatalog[len(roleTypeCatalog)-1].Type
}

// IsAdministrative reports whether the role type belongs to institutional
// administration rather than the academic track.
func IsAdministrative(t RoleType) bool {
	return t == RoleAdministrator || t == RoleSystemAdmin
}

// IsAcademic reports whether the role type requires an academic
// classification on the user holding it.
func IsAcademic(t RoleType) bool {
	switch t {
	case RoleStudent, RoleTeachingStaff, RoleProfessor, RoleChair:
		return true
	default:
		return false
	}
}

// DepartmentLeadershipType is the role type whose department scope widens
// its management reach within that department.
const DepartmentLeadershipType = RoleChair

// Classifications supplied by the external identity source.
const (
	ClassificationStudent       = "student"
	ClassificationTeachingStaff = "teaching_staff"
	ClassificationFaculty       = "faculty"
	ClassificationChair         = "chair"
	ClassificationStaff         = "staff"
)

// RoleTypeForClassification maps an external user classification onto the
// role type granted automatically at provisioning time. Unrecognized
// classifications map to nothing.
func RoleTypeForClassification(classification string) (RoleType, bool) {
	switch classification {
	case ClassificationStudent:
		return RoleStudent, true
	case ClassificationTeachingStaff:
		return RoleTeachingStaff, true
	case ClassificationFaculty:
		return RoleProfessor, true
	case ClassificationChair:
		return RoleChair, true
	case ClassificationStaff:
		return RoleAdministrator, true
	default:
		return "", false
	}
}
