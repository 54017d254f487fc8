package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/tleague/models"
)

func TestResolveRole(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	e.store.addUser(10, "mod")
	mod := models.RoleModerator
	require.NoError(t, fakeUserRepo{e.store}.SetAdminRole(ctx, nil, 10, &mod))

	role, err := e.admin.ResolveRole(ctx, testOwnerID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleOwner, role)

	role, err = e.admin.ResolveRole(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, models.RoleModerator, role)

	role, err = e.admin.ResolveRole(ctx, 404)
	require.NoError(t, err)
	assert.Zero(t, role, "unknown users are regular players")
}

func TestSetRole(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	e.store.addUser(10, "alice")
	e.store.addUser(11, "bob")
	admin := models.RoleAdmin

	require.NoError(t, e.admin.SetRole(ctx, testOwnerID, 10, &admin))
	role, err := e.admin.ResolveRole(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, role)

	assert.ErrorIs(t, e.admin.SetRole(ctx, 10, 11, &admin), ErrForbiddenOperation, "only the owner grants roles")

	invalid := models.AdminRole(9)
	assert.ErrorIs(t, e.admin.SetRole(ctx, testOwnerID, 11, &invalid), ErrValidationFailed)
	assert.ErrorIs(t, e.admin.SetRole(ctx, testOwnerID, 404, &admin), ErrUserNotFound)

	require.NoError(t, e.admin.SetRole(ctx, testOwnerID, 10, nil))
	role, err = e.admin.ResolveRole(ctx, 10)
	require.NoError(t, err)
	assert.Zero(t, role)

	logs, err := e.admin.RecentLogs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "revoke_role", logs[0].Action)
	assert.Equal(t, "grant_role", logs[1].Action)
	require.NotNil(t, logs[1].Details)
	assert.Equal(t, "user=10 role=admin", *logs[1].Details)
}

func TestHasPermission(t *testing.T) {
	tests := []struct {
		role models.AdminRole
		perm Permission
		want bool
	}{
		{0, PermViewDisputes, false},
		{models.RoleModerator, PermResolveDisputes, true},
		{models.RoleModerator, PermViewModeratorLogs, false},
		{models.RoleSupervisor, PermViewModeratorLogs, true},
		{models.RoleSupervisor, PermCreateTournament, false},
		{models.RoleAdmin, PermCreateTournament, true},
		{models.RoleAdmin, PermResolveDisputes, true},
		{models.RoleAdmin, PermRecalculateRatings, false},
		{models.RoleCoOwner, PermRecalculateRatings, true},
		{models.RoleCoOwner, PermGrantRoles, false},
		{models.RoleOwner, PermGrantRoles, true},
		{models.RoleOwner, Permission("anything"), true},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, HasPermission(tc.role, tc.perm), "%s / %s", tc.role, tc.perm)
	}
}

func TestCanManageUser(t *testing.T) {
	assert.True(t, CanManageUser(models.RoleOwner, models.RoleCoOwner))
	assert.True(t, CanManageUser(models.RoleCoOwner, models.RoleModerator))
	assert.False(t, CanManageUser(models.RoleAdmin, models.RoleAdmin))
	assert.False(t, CanManageUser(models.RoleAdmin, 0))
	assert.True(t, CanGrantRole(models.RoleOwner))
	assert.False(t, CanGrantRole(models.RoleCoOwner))
}
