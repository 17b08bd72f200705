package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUser_RoleChecks(t *testing.T) {
	admin := &User{Role: RoleAdmin}
	support := &User{Role: RoleSupport}
	regular := &User{Role: RoleUser}

	assert.True(t, admin.IsAdmin())
	assert.True(t, admin.IsSupportOrAdmin())

	assert.False(t, support.IsAdmin())
	assert.True(t, support.IsSupportOrAdmin())

	assert.False(t, regular.IsAdmin())
	assert.False(t, regular.IsSupportOrAdmin())
}

func TestValidRole(t *testing.T) {
	assert.True(t, ValidRole(RoleUser))
	assert.True(t, ValidRole(RoleSupport))
	assert.True(t, ValidRole(RoleAdmin))

	assert.False(t, ValidRole(""))
	assert.False(t, ValidRole("superadmin"))
	assert.False(t, ValidRole("Admin"), "Роли хранятся в нижнем регистре")
}
