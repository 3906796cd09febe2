package model

// Role identifies the portal role a user logs in with.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleLecturer   Role = "lecturer"
	RoleSupervisor Role = "supervisor"
	RoleExaminer   Role = "examiner"
	RoleStudent    Role = "student"
)

// Roles lists every role accepted by the login form, in display order.
var Roles = []Role{RoleStudent, RoleSupervisor, RoleLecturer, RoleExaminer, RoleAdmin}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

// IsLecturer reports whether r is one of the lecturer variants.
func (r Role) IsLecturer() bool {
	return r == RoleLecturer || r == RoleSupervisor || r == RoleExaminer
}

// Label returns a human-readable role name.
func (r Role) Label() string {
	switch r {
	case RoleAdmin:
		return "Administrator"
	case RoleLecturer:
		return "Lecturer"
	case RoleSupervisor:
		return "Supervisor"
	case RoleExaminer:
		return "Examiner"
	case RoleStudent:
		return "Student"
	default:
		return string(r)
	}
}

// User is the identity record returned by the portal on login.
type User struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	Role           Role   `json:"role,omitempty"`
	ProfilePicture string `json:"profile_picture,omitempty"`
}
