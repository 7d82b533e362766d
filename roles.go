package authclient

import "strings"

// Role is a user's role as spelled by the platform API.
type Role string

const (
	RoleStudent Role = "Student"
	RoleTeacher Role = "Teacher"
	// RoleHeadOfDepartment keeps the API's underscore spelling.
	RoleHeadOfDepartment Role = "Head_Department"
	RoleAdmin            Role = "Admin"
)

var rolePermissions = map[Role][]string{
	RoleAdmin: {
		"manage_users",
		"manage_courses",
		"view_reports",
		"manage_system",
		"edit_content",
		"delete_content",
		"view_all_data",
		"manage_departments",
		"approve_budgets",
	},
	RoleHeadOfDepartment: {
		"manage_department_courses",
		"manage_department_teachers",
		"view_department_reports",
		"edit_department_content",
		"approve_department_requests",
		"view_department_data",
		"schedule_classes",
	},
	RoleTeacher: {
		"manage_courses",
		"edit_content",
		"view_students",
		"grade_assignments",
		"create_assignments",
	},
	RoleStudent: {
		"view_courses",
		"submit_assignments",
		"view_grades",
		"view_profile",
	},
}

var roleHierarchy = map[Role]int{
	RoleStudent:          1,
	RoleTeacher:          2,
	RoleHeadOfDepartment: 3,
	RoleAdmin:            4,
}

// IsValid checks if the role is one of the predefined valid roles
func (r Role) IsValid() bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleHeadOfDepartment, RoleAdmin:
		return true
	default:
		return false
	}
}

// Rank returns the clearance level used by minimum-role checks, 0 for
// unknown roles.
func (r Role) Rank() int {
	return roleHierarchy[r]
}

// IsAtLeast checks if this role meets the minimum required level. This is a
// hierarchy check, not an exact-role check: a HeadOfDepartment clears a
// Teacher requirement. Route guards that want "exact role page" semantics use
// RequireRole instead.
func (r Role) IsAtLeast(minRole Role) bool {
	currentLevel, exists := roleHierarchy[r]
	if !exists {
		return false
	}

	minLevel, exists := roleHierarchy[minRole]
	if !exists {
		return false
	}

	return currentLevel >= minLevel
}

// Permissions returns the permission set granted to the role.
func (r Role) Permissions() []string {
	perms, ok := rolePermissions[r]
	if !ok {
		return nil
	}
	out := make([]string, len(perms))
	copy(out, perms)
	return out
}

// GetAllRoles returns all predefined roles in hierarchical order
func GetAllRoles() []Role {
	return []Role{
		RoleStudent,
		RoleTeacher,
		RoleHeadOfDepartment,
		RoleAdmin,
	}
}

// ParseRole safely parses a string into a Role, exact spelling only.
func ParseRole(roleStr string) (Role, bool) {
	role := Role(roleStr)
	return role, role.IsValid()
}

// ResolveRole maps a raw role string from the API onto a known Role. Upstream
// role strings are not normalized, so exact matching is tried first, then
// case-insensitive variations, then substring checks, and finally the account
// email is inspected as a last-resort hint. Anything unrecognized resolves to
// RoleStudent.
//
// This forgiving mapping is a known source of ambiguity inherited from the
// upstream API; keep every branch covered by tests before touching it.
func ResolveRole(raw, email string) Role {
	if role, ok := ParseRole(raw); ok {
		return role
	}

	lower := strings.ToLower(strings.TrimSpace(raw))
	switch lower {
	case "admin", "administrator":
		return RoleAdmin
	case "teacher", "teachers", "instructor":
		return RoleTeacher
	case "hod":
		return RoleHeadOfDepartment
	case "student", "students", "learner":
		return RoleStudent
	}

	if strings.Contains(lower, "head") || strings.Contains(lower, "department") {
		return RoleHeadOfDepartment
	}

	if strings.Contains(strings.ToLower(email), "teacher") {
		return RoleTeacher
	}

	return RoleStudent
}

// ResolveRoles resolves the effective role from the role list returned by the
// login endpoint. The first entry wins; an empty list defaults to RoleStudent.
func ResolveRoles(roles []string, email string) Role {
	if len(roles) == 0 {
		return RoleStudent
	}
	return ResolveRole(roles[0], email)
}
