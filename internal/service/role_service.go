package service

import (
	"context"
	"strings"

	"github.com/portfolio-blog-api/internal/metrics"
	"github.com/portfolio-blog-api/internal/models"
	"github.com/portfolio-blog-api/internal/repository"
	"github.com/rs/zerolog"
)

// roleService is the concrete implementation of RoleService
type roleService struct {
	repo        repository.RoleRepository
	defaultRole models.Role
	log         zerolog.Logger
}

func newRoleService(repo repository.RoleRepository, defaultRole models.Role, log zerolog.Logger) *roleService {
	return &roleService{
		repo:        repo,
		defaultRole: defaultRole,
		log:         log.With().Str("service", "role").Logger(),
	}
}

// Resolve returns the stored role of userID, creating the default role on first sight.
// Store failures degrade to the default role; only an empty userID is an error.
func (s *roleService) Resolve(ctx context.Context, userID string) (models.Role, error) {
	if strings.TrimSpace(userID) == "" {
		return "", models.NewBadInputError("userId is required")
	}

	existing, err := s.repo.Get(ctx, userID)
	if err != nil {
		s.log.Error().Err(err).Str("user_id", userID).Msg("Role lookup failed, using default role")
		metrics.RoleResolutionsTotal.WithLabelValues("fallback").Inc()
		return s.defaultRole, nil
	}
	if existing != nil {
		metrics.RoleResolutionsTotal.WithLabelValues("existing").Inc()
		return existing.Role, nil
	}

	ur, created, err := s.repo.EnsureDefault(ctx, userID, s.defaultRole)
	if err != nil {
		s.log.Error().Err(err).Str("user_id", userID).Msg("Default role creation failed, using default role")
		metrics.RoleResolutionsTotal.WithLabelValues("fallback").Inc()
		return s.defaultRole, nil
	}

	if created {
		s.log.Info().Str("user_id", userID).Str("role", string(ur.Role)).Msg("No role record found, assigned default role")
		metrics.RoleResolutionsTotal.WithLabelValues("created").Inc()
	} else {
		metrics.RoleResolutionsTotal.WithLabelValues("existing").Inc()
	}
	return ur.Role, nil
}

// SetRole assigns role to userID on behalf of actorID
func (s *roleService) SetRole(ctx context.Context, actorID, userID string, role models.Role) (*models.UserRole, error) {
	if !models.ValidRoles[role] {
		return nil, models.NewBadInputError("invalid role, must be one of: admin, editor, viewer")
	}

	ur, err := s.repo.Upsert(ctx, userID, role, actorID)
	if err != nil {
		s.log.Error().Err(err).Str("user_id", userID).Str("role", string(role)).Msg("Failed to assign role")
		return nil, models.NewStoreError(err)
	}

	s.log.Info().
		Str("actor_id", actorID).
		Str("user_id", userID).
		Str("role", string(role)).
		Msg("Role assigned")
	return ur, nil
}

// List returns every stored role assignment
func (s *roleService) List(ctx context.Context) ([]*models.UserRole, error) {
	roles, err := s.repo.List(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to list roles")
		return nil, models.NewStoreError(err)
	}
	return roles, nil
}

// Remove deletes the role row of userID; the next resolve assigns the default again
func (s *roleService) Remove(ctx context.Context, userID string) error {
	if err := s.repo.Delete(ctx, userID); err != nil {
		s.log.Error().Err(err).Str("user_id", userID).Msg("Failed to remove role")
		return models.NewStoreError(err)
	}
	return nil
}
