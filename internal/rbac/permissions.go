// Package rbac holds the static role to permission table and the access
// decisions derived from it. Nothing here touches the network or the store.
package rbac

import (
	"sort"

	"github.com/portfolio-blog-api/internal/models"
)

// Permission is a named capability checked against a role
type Permission string

const (
	ViewArticles     Permission = "view_articles"
	CreateArticles   Permission = "create_articles"
	EditArticles     Permission = "edit_articles"
	DeleteArticles   Permission = "delete_articles"
	UploadImages     Permission = "upload_images"
	ManageImages     Permission = "manage_images"
	ViewUsers        Permission = "view_users"
	CreateUsers      Permission = "create_users"
	DeleteUsers      Permission = "delete_users"
	AssignRoles      Permission = "assign_roles"
	ModerateComments Permission = "moderate_comments"
	ManageSettings   Permission = "manage_settings"
	ViewAnalytics    Permission = "view_analytics"
)

var viewerPermissions = []Permission{
	ViewArticles,
}

var editorPermissions = []Permission{
	ViewArticles,
	CreateArticles,
	EditArticles,
	DeleteArticles,
	UploadImages,
	ManageImages,
}

var adminPermissions = append(append([]Permission{}, editorPermissions...),
	ViewUsers,
	CreateUsers,
	DeleteUsers,
	AssignRoles,
	ModerateComments,
	ManageSettings,
	ViewAnalytics,
)

var rolePermissions = map[models.Role]map[Permission]bool{
	models.RoleViewer: toSet(viewerPermissions),
	models.RoleEditor: toSet(editorPermissions),
	models.RoleAdmin:  toSet(adminPermissions),
}

func toSet(perms []Permission) map[Permission]bool {
	set := make(map[Permission]bool, len(perms))
	for _, p := range perms {
		set[p] = true
	}
	return set
}

// HasPermission reports whether role grants permission. Unknown roles and
// unknown permissions are denied.
func HasPermission(role models.Role, permission Permission) bool {
	perms, ok := rolePermissions[role]
	if !ok {
		return false
	}
	return perms[permission]
}

// HasAny reports whether role grants at least one of permissions.
// An empty list grants nothing.
func HasAny(role models.Role, permissions []Permission) bool {
	for _, p := range permissions {
		if HasPermission(role, p) {
			return true
		}
	}
	return false
}

// HasAll reports whether role grants every one of permissions.
// An empty list is denied.
func HasAll(role models.Role, permissions []Permission) bool {
	if len(permissions) == 0 {
		return false
	}
	for _, p := range permissions {
		if !HasPermission(role, p) {
			return false
		}
	}
	return true
}

// PermissionsFor returns the sorted permission list of role, empty for unknown roles
func PermissionsFor(role models.Role) []Permission {
	perms := rolePermissions[role]
	out := make([]Permission, 0, len(perms))
	for p := range perms {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
