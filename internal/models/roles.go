package models

// Role names a coarse grant level carried in tokens and user records.
type Role string

const (
	RoleAdmin             Role = "admin"
	RoleTournamentManager Role = "tournament_manager"
	RoleReferee           Role = "referee"
	RoleTeamCaptain       Role = "team_captain"
	RolePlayer            Role = "player"
	RoleViewer            Role = "viewer"
)

// Permission names a single fine-grained action on a resource, in
// "resource:action" form.
type Permission string

const (
	PermissionTournamentCreate Permission = "tournament:create"
	PermissionTournamentUpdate Permission = "tournament:update"
	PermissionTournamentDelete Permission = "tournament:delete"
	PermissionTournamentView   Permission = "tournament:view"
	PermissionTournamentDeploy Permission = "tournament:deploy"
	PermissionTournamentPause  Permission = "tournament:pause"

	PermissionTeamApprove Permission = "team:approve"
	PermissionTeamReject  Permission = "team:reject"
	PermissionTeamView    Permission = "team:view"
	PermissionTeamUpdate  Permission = "team:update"
	PermissionTeamDelete  Permission = "team:delete"

	PermissionMatchSchedule      Permission = "match:schedule"
	PermissionMatchUpdate        Permission = "match:update"
	PermissionMatchSubmitResult  Permission = "match:submit_result"
	PermissionMatchApproveResult Permission = "match:approve_result"
	PermissionMatchRejectResult  Permission = "match:reject_result"

	PermissionSystemViewAudit   Permission = "system:view_audit"
	PermissionSystemManageUsers Permission = "system:manage_users"
	PermissionSystemConfig      Permission = "system:config"
	PermissionSystemMetrics     Permission = "system:metrics"
)

// rolePermissions is the static grant table. Permissions derive from
// the role at resolution time and are never stored in tokens.
var rolePermissions = map[Role][]Permission{
	RoleAdmin: {
		PermissionTournamentCreate, PermissionTournamentUpdate, PermissionTournamentDelete,
		PermissionTournamentView, PermissionTournamentDeploy, PermissionTournamentPause,
		PermissionTeamApprove, PermissionTeamReject, PermissionTeamView,
		PermissionTeamUpdate, PermissionTeamDelete,
		PermissionMatchSchedule, PermissionMatchUpdate, PermissionMatchSubmitResult,
		PermissionMatchApproveResult, PermissionMatchRejectResult,
		PermissionSystemViewAudit, PermissionSystemManageUsers, PermissionSystemConfig,
		PermissionSystemMetrics,
	},
	RoleTournamentManager: {
		PermissionTournamentCreate, PermissionTournamentUpdate, PermissionTournamentView,
		PermissionTournamentDeploy, PermissionTournamentPause,
		PermissionTeamApprove, PermissionTeamReject, PermissionTeamView,
		PermissionMatchSchedule, PermissionMatchUpdate,
		PermissionMatchApproveResult, PermissionMatchRejectResult,
		PermissionSystemViewAudit,
	},
	RoleReferee: {
		PermissionTournamentView, PermissionTeamView,
		PermissionMatchSubmitResult, PermissionMatchUpdate,
	},
	RoleTeamCaptain: {
		PermissionTournamentView, PermissionTeamView, PermissionTeamUpdate,
	},
	RolePlayer: {
		PermissionTournamentView, PermissionTeamView,
	},
	RoleViewer: {
		PermissionTournamentView,
	},
}

// PermissionsForRole returns the permissions granted to a role.
// Unknown roles resolve to an empty set rather than an error.
func PermissionsForRole(role Role) []Permission {
	perms, ok := rolePermissions[role]
	if !ok {
		return nil
	}
	out := make([]Permission, len(perms))
	copy(out, perms)
	return out
}
