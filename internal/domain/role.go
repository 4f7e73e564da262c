package domain

import "strings"

// Role enumerates the fixed set of identity roles.
type Role string

const (
	RoleAdmin       Role = "admin"
	RoleDean        Role = "dean"
	RoleHOD         Role = "hod"
	RoleExamOfficer Role = "exam_officer"
	RoleLecturer    Role = "lecturer"
	RoleStudent     Role = "student"
)

// AllRoles lists every role in a stable order.
var AllRoles = []Role{RoleAdmin, RoleDean, RoleHOD, RoleExamOfficer, RoleLecturer, RoleStudent}

var roleAliases = map[string]Role{
	"head_of_department": RoleHOD,
	"examofficer":        RoleExamOfficer,
}

// ParseRole normalizes a client supplied role name. Hyphens and underscores are
// interchangeable and matching is case-insensitive.
func ParseRole(raw string) (Role, bool) {
	name := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(raw)), "-", "_")
	if alias, ok := roleAliases[name]; ok {
		return alias, true
	}
	role := Role(name)
	return role, role.Valid()
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	for _, known := range AllRoles {
		if r == known {
			return true
		}
	}
	return false
}

// IsStaff reports whether identities with this role carry a staff profile.
func (r Role) IsStaff() bool {
	return r.Valid() && r != RoleStudent
}
