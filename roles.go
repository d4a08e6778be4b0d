package directory

// UserRole is the user's role
type UserRole = string

const (
	// RoleAdmin has full control over the directory
	RoleAdmin UserRole = "ADMIN"
	// RolePresident is the head of the student organization
	RolePresident UserRole = "PRESIDENT"
	// RoleVicePresident oversees a group of directors
	RoleVicePresident UserRole = "VICE_PRESIDENT"
	// RoleDirector oversees a group of office heads
	RoleDirector UserRole = "DIRECTOR"
	// RoleOfficeHead runs a single campus office
	RoleOfficeHead UserRole = "OFFICE_HEAD"
)

// IsValid checks if the role is one of the predefined valid roles
func IsValidRole(r UserRole) bool {
	switch r {
	case RoleAdmin, RolePresident, RoleVicePresident, RoleDirector, RoleOfficeHead:
		return true
	default:
		return false
	}
}

// GetAllRoles returns all predefined roles
func GetAllRoles() []UserRole {
	return []UserRole{
		RoleAdmin,
		RolePresident,
		RoleVicePresident,
		RoleDirector,
		RoleOfficeHead,
	}
}

// ParseRole safely parses a string into a UserRole type
func ParseRole(roleStr string) (UserRole, bool) {
	role := UserRole(roleStr)
	return role, IsValidRole(role)
}

// RoleAllowed reports whether role is a member of the allow list. An empty
// allow list always allows; there is no role hierarchy in the decision.
func RoleAllowed(role UserRole, allowed []UserRole) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if role == a {
			return true
		}
	}
	return false
}
