package user

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasPermission(t *testing.T) {
	assert.True(t, HasPermission(RoleEmployee, PermissionAttendanceCreate))
	assert.False(t, HasPermission(RoleEmployee, PermissionAttendanceViewAll))
	assert.False(t, HasPermission(RoleEmployee, PermissionOfficeHoursManage))
	assert.True(t, HasPermission(RoleManager, PermissionOfficeHoursManage))
	assert.True(t, HasPermission(RoleOwner, PermissionAttendanceViewAll))
	assert.False(t, HasPermission(Role("intern"), PermissionAttendanceViewOwn))
}

func TestRole_IsValid(t *testing.T) {
	assert.True(t, RoleManager.IsValid())
	assert.False(t, Role("pending").IsValid())
}
