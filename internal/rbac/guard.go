package rbac

import (
	"github.com/portfolio-blog-api/internal/models"
)

// Decision is the outcome of evaluating a guard
type Decision int

const (
	// Allow renders the protected children
	Allow Decision = iota
	// Loading means the role is still being resolved; no access decision is made yet
	Loading
	// Unauthenticated renders nothing: there is no session
	Unauthenticated
	// Forbidden renders the fallback: the session lacks the required permission
	Forbidden
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case Loading:
		return "loading"
	case Unauthenticated:
		return "unauthenticated"
	case Forbidden:
		return "forbidden"
	}
	return "unknown"
}

// RoleState is the already-resolved role state of the caller
type RoleState struct {
	Authenticated bool
	Loading       bool
	Role          models.Role
}

// Requirement declares what a route or UI region needs.
// With no permissions set any authenticated caller is allowed.
type Requirement struct {
	Permission  Permission
	Permissions []Permission
	RequireAll  bool
}

// Require builds a single-permission requirement
func Require(p Permission) Requirement {
	return Requirement{Permission: p}
}

// RequireAny builds a requirement satisfied by any one of perms
func RequireAny(perms ...Permission) Requirement {
	return Requirement{Permissions: perms}
}

// RequireAll builds a requirement satisfied only by all of perms
func RequireAll(perms ...Permission) Requirement {
	return Requirement{Permissions: perms, RequireAll: true}
}

func (r Requirement) empty() bool {
	return r.Permission == "" && len(r.Permissions) == 0
}

// Evaluate decides access for state against req
func Evaluate(state RoleState, req Requirement) Decision {
	if state.Loading {
		return Loading
	}
	if !state.Authenticated {
		return Unauthenticated
	}
	if req.empty() {
		return Allow
	}

	perms := req.Permissions
	if req.Permission != "" {
		perms = append([]Permission{req.Permission}, perms...)
	}

	var ok bool
	if req.RequireAll || (req.Permission != "" && len(req.Permissions) == 0) {
		ok = HasAll(state.Role, perms)
	} else {
		ok = HasAny(state.Role, perms)
	}
	if !ok {
		return Forbidden
	}
	return Allow
}
