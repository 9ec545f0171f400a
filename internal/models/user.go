package models

import (
	"time"
)

// Role is one of admin, editor or viewer
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
)

// DefaultRole is assigned on first sight of a user. Editor rather than admin so that
// an unknown identity never silently receives user administration rights.
const DefaultRole = RoleEditor

// ValidRoles defines allowed user roles
var ValidRoles = map[Role]bool{
	RoleAdmin:  true,
	RoleEditor: true,
	RoleViewer: true,
}

// UserRole is the persisted role assignment of one identity-provider user
type UserRole struct {
	UserID    string    `json:"userId" db:"user_id"`
	Role      Role      `json:"role" db:"role"`
	CreatedBy string    `json:"createdBy,omitempty" db:"created_by"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// User is an identity-provider account joined with its role
type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	Name         string     `json:"name,omitempty"`
	AvatarURL    string     `json:"avatarUrl,omitempty"`
	Role         Role       `json:"role"`
	CreatedAt    time.Time  `json:"createdAt"`
	LastSignInAt *time.Time `json:"lastSignInAt,omitempty"`
}

// UpdateRoleRequest is the body of PUT /admin/users/role
type UpdateRoleRequest struct {
	UserID string `json:"userId"`
	Role   Role   `json:"role"`
}

// CreateUserRequest is the body of POST /admin/users
type CreateUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
	Role     Role   `json:"role,omitempty"`
}
