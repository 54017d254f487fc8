package services

import "github.com/Dosada05/tleague/models"

type Permission string

const (
	PermApproveListings      Permission = "approve_listings"
	PermRejectListings       Permission = "reject_listings"
	PermResolveDisputes      Permission = "resolve_disputes"
	PermViewDisputes         Permission = "view_disputes"
	PermViewModeratorLogs    Permission = "view_moderator_logs"
	PermCreateTournament     Permission = "create_tournament"
	PermManageOwnTournaments Permission = "manage_own_tournaments"
	PermManageAllTournaments Permission = "manage_all_tournaments"
	PermBroadcast            Permission = "broadcast"
	PermExportData           Permission = "export_data"
	PermRecalculateRatings   Permission = "recalculate_ratings"
	PermGrantRoles           Permission = "grant_roles"
	PermRevokeRoles          Permission = "revoke_roles"
	PermFullAccess           Permission = "full_access"
)

// Каждая роль наследует права предыдущей.
var rolePermissions = buildRolePermissions([]struct {
	role  models.AdminRole
	added []Permission
}{
	{models.RoleModerator, []Permission{PermApproveListings, PermRejectListings, PermResolveDisputes, PermViewDisputes}},
	{models.RoleSupervisor, []Permission{PermViewModeratorLogs}},
	{models.RoleAdmin, []Permission{PermCreateTournament, PermManageOwnTournaments}},
	{models.RoleCoOwner, []Permission{PermManageAllTournaments, PermBroadcast, PermExportData, PermRecalculateRatings}},
	{models.RoleOwner, []Permission{PermGrantRoles, PermRevokeRoles, PermFullAccess}},
})

func buildRolePermissions(levels []struct {
	role  models.AdminRole
	added []Permission
}) map[models.AdminRole]map[Permission]bool {
	out := make(map[models.AdminRole]map[Permission]bool, len(levels))
	acc := make(map[Permission]bool)
	for _, lvl := range levels {
		for _, p := range lvl.added {
			acc[p] = true
		}
		set := make(map[Permission]bool, len(acc))
		for p := range acc {
			set[p] = true
		}
		out[lvl.role] = set
	}
	return out
}

// HasPermission reports whether role grants perm. The zero role has no permissions.
func HasPermission(role models.AdminRole, perm Permission) bool {
	if role == models.RoleOwner {
		return true
	}
	return rolePermissions[role][perm]
}

func CanGrantRole(granter models.AdminRole) bool {
	return granter == models.RoleOwner
}

// CanManageUser: the owner manages anyone, others only admins strictly below them.
func CanManageUser(manager, target models.AdminRole) bool {
	if manager == models.RoleOwner {
		return true
	}
	if target == 0 {
		return false
	}
	return manager > target
}
