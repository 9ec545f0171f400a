package repository

import (
	"context"
	"errors"
	"time"

	"github.com/lib/pq"
	"github.com/portfolio-blog-api/internal/database"
	"github.com/portfolio-blog-api/internal/models"
)

// ArticleRepository defines the interface for article data operations
type ArticleRepository interface {
	Create(ctx context.Context, article *models.Article) error
	Update(ctx context.Context, article *models.Article) error
	Delete(ctx context.Context, id string) error
	GetBySlug(ctx context.Context, slug string) (*models.Article, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	SlugExistsExcept(ctx context.Context, slug, excludeID string) (bool, error)
	List(ctx context.Context) ([]*models.Article, error)
	Count(ctx context.Context) (int, error)
	StreamAll(ctx context.Context, callback func(*models.ArticleWithInteractions) error) error
}

// InteractionRepository defines the interface for the per-article interaction aggregate
type InteractionRepository interface {
	Create(ctx context.Context, articleID string) error
	Get(ctx context.Context, articleID string) (*models.ArticleInteractions, error)
	SetReactions(ctx context.Context, articleID string, counts models.ReactionCounts) (*models.ArticleInteractions, error)
	AdjustReaction(ctx context.Context, articleID, reaction string, delta int) (*models.ArticleInteractions, error)
	SetCommentCount(ctx context.Context, articleID string, count int) (*models.ArticleInteractions, error)
}

// CommentRepository defines the interface for comment data operations
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	BatchInsert(ctx context.Context, comments []*models.Comment) (int, error)
	GetByID(ctx context.Context, id string) (*models.Comment, error)
	ListByArticle(ctx context.Context, articleID string) ([]*models.Comment, error)
	UpdateContent(ctx context.Context, id, content string, editedAt time.Time) (*models.Comment, error)
	ToggleLike(ctx context.Context, id, userID string) (*models.Comment, error)
	Delete(ctx context.Context, id string) (int64, error)
	CountByArticle(ctx context.Context, articleID string) (int, error)
}

// RoleRepository defines the interface for user role assignments
type RoleRepository interface {
	Get(ctx context.Context, userID string) (*models.UserRole, error)
	EnsureDefault(ctx context.Context, userID string, role models.Role) (*models.UserRole, bool, error)
	Upsert(ctx context.Context, userID string, role models.Role, actorID string) (*models.UserRole, error)
	List(ctx context.Context) ([]*models.UserRole, error)
	Delete(ctx context.Context, userID string) error
}

// Repositories holds all repository interfaces
type Repositories struct {
	Article     ArticleRepository
	Interaction InteractionRepository
	Comment     CommentRepository
	Role        RoleRepository
}

// New creates all repositories with the given database connection
func New(db *database.DB) *Repositories {
	return &Repositories{
		Article:     NewArticleRepo(db),
		Interaction: NewInteractionRepo(db),
		Comment:     NewCommentRepo(db),
		Role:        NewRoleRepo(db),
	}
}

// IsUniqueViolation reports whether err is a PostgreSQL unique constraint violation
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
