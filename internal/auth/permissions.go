package auth

// Permission is a resource:action capability tag.
type Permission string

// Permission constants define the closed set of capabilities checked by the API.
const (
	// PermUsersRead allows reading a single user record.
	PermUsersRead Permission = "users:read"
	// PermUsersCreate allows creating user accounts.
	PermUsersCreate Permission = "users:create"
	// PermUsersUpdate allows editing user accounts.
	PermUsersUpdate Permission = "users:update"
	// PermUsersDelete allows deleting user accounts.
	PermUsersDelete Permission = "users:delete"
	// PermUsersReadAll allows listing every user.
	PermUsersReadAll Permission = "users:read-all"

	// PermAdminDashboard allows viewing the administrative summary.
	PermAdminDashboard Permission = "admin:dashboard"
	// PermAdminLogs allows reading the audit trail.
	PermAdminLogs Permission = "admin:logs"
	// PermAdminSystem marks an administrator. Role changes and the catalog dump require it.
	PermAdminSystem Permission = "admin:system"

	// PermProfileRead allows reading the own profile.
	PermProfileRead Permission = "profile:read"
	// PermProfileUpdate allows editing the own profile and password.
	PermProfileUpdate Permission = "profile:update"
)

// AllPermissions returns the closed permission set in declaration order.
func AllPermissions() []Permission {
	return []Permission{
		PermUsersRead,
		PermUsersCreate,
		PermUsersUpdate,
		PermUsersDelete,
		PermUsersReadAll,
		PermAdminDashboard,
		PermAdminLogs,
		PermAdminSystem,
		PermProfileRead,
		PermProfileUpdate,
	}
}

// Role names a closed set of privilege levels.
type Role string

const (
	// RoleAdmin holds every permission.
	RoleAdmin Role = "admin"
	// RoleModerator is the intermediate role. Deployments label it moderador or interno.
	RoleModerator Role = "moderador"
	// RoleInternal is the alternative label of the intermediate role.
	RoleInternal Role = "interno"
	// RoleUser is the default role of registered accounts.
	RoleUser Role = "usuario"
)
