package service

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/portfolio-blog-api/internal/auth"
	"github.com/portfolio-blog-api/internal/models"
	"github.com/portfolio-blog-api/internal/validation"
	"github.com/rs/zerolog"
)

// userService is the concrete implementation of UserService
type userService struct {
	admin       IdentityAdmin
	roles       RoleService
	defaultRole models.Role
	validator   *validation.Validator
	log         zerolog.Logger
}

func newUserService(admin IdentityAdmin, roles RoleService, defaultRole models.Role, log zerolog.Logger) *userService {
	return &userService{
		admin:       admin,
		roles:       roles,
		defaultRole: defaultRole,
		validator:   validation.NewValidator(),
		log:         log.With().Str("service", "user").Logger(),
	}
}

func (s *userService) requireAdmin() error {
	if s.admin == nil || !s.admin.Configured() {
		return models.NewUnavailableError(auth.ErrAdminNotConfigured.Error())
	}
	return nil
}

// classifyAdminError maps identity-provider failures onto the error taxonomy
func (s *userService) classifyAdminError(err error, userID string) error {
	switch {
	case errors.Is(err, auth.ErrAdminNotConfigured):
		return models.NewUnavailableError(err.Error())
	case errors.Is(err, auth.ErrUserNotFound):
		return models.NewNotFoundError("user", userID)
	case errors.Is(err, auth.ErrUserExists):
		return models.NewConflictError("a user with this email already exists")
	}
	s.log.Error().Err(err).Str("user_id", userID).Msg("Identity provider call failed")
	return models.NewStoreError(err)
}

// ListUsers joins identity-provider accounts with their stored roles. Users without
// a role row report the default role; no row is written here.
func (s *userService) ListUsers(ctx context.Context) ([]*models.User, error) {
	if err := s.requireAdmin(); err != nil {
		return nil, err
	}

	accounts, err := s.admin.ListUsers(ctx)
	if err != nil {
		return nil, s.classifyAdminError(err, "")
	}

	roleRows, err := s.roles.List(ctx)
	if err != nil {
		return nil, err
	}
	roles := make(map[string]models.Role, len(roleRows))
	for _, r := range roleRows {
		roles[r.UserID] = r.Role
	}

	users := make([]*models.User, 0, len(accounts))
	for _, a := range accounts {
		role, ok := roles[a.ID]
		if !ok {
			role = s.defaultRole
		}
		users = append(users, toUser(a, role))
	}

	sort.SliceStable(users, func(i, j int) bool {
		return users[i].CreatedAt.After(users[j].CreatedAt)
	})
	return users, nil
}

// CreateUser creates an account and stores its role. A failed role write is logged;
// the resolver assigns the default role on first sight instead.
func (s *userService) CreateUser(ctx context.Context, actorID string, req *models.CreateUserRequest) (*models.User, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validation.ToError(s.validator.ValidateCreateUser(req)); err != nil {
		return nil, err
	}
	if err := s.requireAdmin(); err != nil {
		return nil, err
	}

	account, err := s.admin.CreateUser(ctx, auth.NewIdentityUser{
		Email:    req.Email,
		Password: req.Password,
		Name:     strings.TrimSpace(req.Name),
	})
	if err != nil {
		return nil, s.classifyAdminError(err, req.Email)
	}

	role := req.Role
	if role == "" {
		role = s.defaultRole
	}
	if _, err := s.roles.SetRole(ctx, actorID, account.ID, role); err != nil {
		s.log.Error().Err(err).Str("user_id", account.ID).Msg("User created but role assignment failed")
	}

	s.log.Info().
		Str("actor_id", actorID).
		Str("user_id", account.ID).
		Str("role", string(role)).
		Msg("User created")
	return toUser(*account, role), nil
}

// DeleteUser removes an account and its role row. Deleting oneself is rejected.
func (s *userService) DeleteUser(ctx context.Context, actorID, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return models.NewBadInputError("userId is required")
	}
	if userID == actorID {
		return models.NewBadInputError("you cannot delete your own account")
	}
	if err := s.requireAdmin(); err != nil {
		return err
	}

	if err := s.admin.DeleteUser(ctx, userID); err != nil {
		return s.classifyAdminError(err, userID)
	}
	if err := s.roles.Remove(ctx, userID); err != nil {
		s.log.Error().Err(err).Str("user_id", userID).Msg("User deleted but role row was not")
	}

	s.log.Info().Str("actor_id", actorID).Str("user_id", userID).Msg("User deleted")
	return nil
}

// UpdateRole assigns a role to another user. The acting user can never change their own role.
func (s *userService) UpdateRole(ctx context.Context, actorID string, req *models.UpdateRoleRequest) (*models.UserRole, error) {
	if err := validation.ToError(s.validator.ValidateRoleUpdate(req)); err != nil {
		return nil, err
	}
	if req.UserID == actorID {
		return nil, models.NewForbiddenError("you cannot change your own role")
	}
	if err := s.requireAdmin(); err != nil {
		return nil, err
	}

	return s.roles.SetRole(ctx, actorID, req.UserID, req.Role)
}

func toUser(a auth.IdentityUser, role models.Role) *models.User {
	return &models.User{
		ID:           a.ID,
		Email:        a.Email,
		Name:         a.UserMetadata.DisplayName(),
		AvatarURL:    a.UserMetadata.AvatarURL,
		Role:         role,
		CreatedAt:    a.CreatedAt,
		LastSignInAt: a.LastSignInAt,
	}
}
