package directory_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	directory "github.com/campuskit/directory"
)

func TestIsValidRole(t *testing.T) {
	for _, role := range directory.GetAllRoles() {
		assert.True(t, directory.IsValidRole(role), role)
	}

	assert.False(t, directory.IsValidRole("SUPERUSER"))
	assert.False(t, directory.IsValidRole("admin"))
	assert.False(t, directory.IsValidRole(""))
}

func TestParseRole(t *testing.T) {
	role, ok := directory.ParseRole("ADMIN")
	assert.True(t, ok)
	assert.Equal(t, directory.RoleAdmin, role)

	_, ok = directory.ParseRole("janitor")
	assert.False(t, ok)
}

func TestRoleAllowed(t *testing.T) {
	allowed := []directory.UserRole{directory.RoleAdmin, directory.RolePresident}

	assert.True(t, directory.RoleAllowed(directory.RoleAdmin, allowed))
	assert.True(t, directory.RoleAllowed(directory.RolePresident, allowed))
	assert.False(t, directory.RoleAllowed(directory.RoleOfficeHead, allowed))

	// no hierarchy: a director is not implicitly an office head
	assert.False(t, directory.RoleAllowed(directory.RoleDirector, []directory.UserRole{directory.RoleOfficeHead}))

	// empty allow list admits everyone
	assert.True(t, directory.RoleAllowed(directory.RoleOfficeHead, nil))
}
