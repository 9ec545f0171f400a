package service

import (
	"context"
	"net/http"

	"github.com/portfolio-blog-api/internal/auth"
	"github.com/portfolio-blog-api/internal/config"
	"github.com/portfolio-blog-api/internal/models"
	"github.com/portfolio-blog-api/internal/repository"
	"github.com/rs/zerolog"
)

// RoleService resolves and assigns user roles
type RoleService interface {
	Resolve(ctx context.Context, userID string) (models.Role, error)
	SetRole(ctx context.Context, actorID, userID string, role models.Role) (*models.UserRole, error)
	List(ctx context.Context) ([]*models.UserRole, error)
	Remove(ctx context.Context, userID string) error
}

// InteractionService maintains the per-article reaction and comment counters
type InteractionService interface {
	GetReactions(ctx context.Context, slug string) (*models.ArticleInteractions, error)
	SetReactions(ctx context.Context, slug string, reactions map[string]int) (*models.ArticleInteractions, error)
	IncrementReaction(ctx context.Context, slug, reaction string) (*models.ArticleInteractions, error)
	DecrementReaction(ctx context.Context, slug, reaction string) (*models.ArticleInteractions, error)
	RecountComments(ctx context.Context, slug string) (*models.ArticleInteractions, error)
}

// CommentService manages two-level comment threads
type CommentService interface {
	AddComment(ctx context.Context, slug string, req *models.CreateCommentRequest) (*models.Comment, error)
	EditComment(ctx context.Context, id, content string) (*models.Comment, error)
	ToggleLike(ctx context.Context, id, userID string) (*models.Comment, error)
	DeleteComment(ctx context.Context, id string) error
	GetComment(ctx context.Context, id string) (*models.Comment, error)
	ListComments(ctx context.Context, slug string, opts ListCommentsOptions) (*models.CommentList, error)
}

// ArticleService creates, updates and deletes articles
type ArticleService interface {
	Create(ctx context.Context, in *models.ArticleInput) (*models.Article, error)
	Update(ctx context.Context, oldSlug string, in *models.ArticleInput) (*models.Article, error)
	Delete(ctx context.Context, slug string) error
	Get(ctx context.Context, slug string) (*models.Article, error)
	GetWithInteractions(ctx context.Context, slug string) (*models.ArticleWithInteractions, error)
	List(ctx context.Context) ([]*models.Article, error)
}

// UserService administers identity-provider accounts and their roles
type UserService interface {
	ListUsers(ctx context.Context) ([]*models.User, error)
	CreateUser(ctx context.Context, actorID string, req *models.CreateUserRequest) (*models.User, error)
	DeleteUser(ctx context.Context, actorID, userID string) error
	UpdateRole(ctx context.Context, actorID string, req *models.UpdateRoleRequest) (*models.UserRole, error)
}

// ExportService defines the interface for export operations
type ExportService interface {
	StreamArticles(ctx context.Context, w http.ResponseWriter, format string) error
	Count(ctx context.Context) (int, error)
}

// ImageService stores uploaded article images
type ImageService interface {
	Upload(ctx context.Context, filename string, data []byte) (*models.UploadedImage, error)
}

// IdentityAdmin is the privileged identity-provider API
type IdentityAdmin interface {
	Configured() bool
	ListUsers(ctx context.Context) ([]auth.IdentityUser, error)
	CreateUser(ctx context.Context, in auth.NewIdentityUser) (*auth.IdentityUser, error)
	DeleteUser(ctx context.Context, id string) error
}

// ImageStore persists image bytes and returns their public URL
type ImageStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
}

// Externals are the outside collaborators services call besides the database.
// A nil Images store disables uploads.
type Externals struct {
	Admin  IdentityAdmin
	Images ImageStore
}

// Services holds all service interfaces
type Services struct {
	Roles        RoleService
	Interactions InteractionService
	Comments     CommentService
	Articles     ArticleService
	Users        UserService
	Export       ExportService
	Images       ImageService
}

// NewServices creates all services
func NewServices(repos *repository.Repositories, ext Externals, cfg *config.Config, log zerolog.Logger) *Services {
	// config.Validate rejects unknown roles; an unset value means the built-in default
	defaultRole := models.Role(cfg.Auth.DefaultRole)
	if defaultRole == "" {
		defaultRole = models.DefaultRole
	}

	roleSvc := newRoleService(repos.Role, defaultRole, log)
	interactionSvc := newInteractionService(repos, log)

	return &Services{
		Roles:        roleSvc,
		Interactions: interactionSvc,
		Comments:     newCommentService(repos, interactionSvc, log),
		Articles:     newArticleService(repos, log),
		Users:        newUserService(ext.Admin, roleSvc, defaultRole, log),
		Export:       newExportService(repos, log),
		Images:       newImageService(ext.Images, cfg.Storage.MaxImageSize, log),
	}
}

// lookupArticle loads an article by slug, classifying absence and store failures
func lookupArticle(ctx context.Context, repo repository.ArticleRepository, slug string) (*models.Article, error) {
	if slug == "" {
		return nil, models.NewBadInputError("slug is required")
	}
	article, err := repo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, models.NewStoreError(err)
	}
	if article == nil {
		return nil, models.NewNotFoundError("article", slug)
	}
	return article, nil
}
