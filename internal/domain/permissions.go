package domain

// Permission names for the admin portal. The matrix below is fixed;
// evaluation depends only on (role, is_active).
type Permission string

const (
	PermManageAdmins   Permission = "manage_admins"
	PermManageClients  Permission = "manage_clients"
	PermManageProjects Permission = "manage_projects"
	PermViewAnalytics  Permission = "view_analytics"
)

// HasPermission is the pure role/permission evaluator. A nil or
// inactive user has no permissions.
func HasPermission(user *AdminUser, perm Permission) bool {
	if user == nil || !user.IsActive {
		return false
	}
	switch perm {
	case PermManageAdmins:
		return user.Role == RoleOwner
	case PermManageClients, PermManageProjects:
		return user.Role == RoleOwner || user.Role == RoleAdmin || user.Role == RoleManager
	case PermViewAnalytics:
		return user.Role == RoleOwner || user.Role == RoleAdmin
	}
	return false
}
