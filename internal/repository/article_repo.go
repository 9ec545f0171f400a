package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/portfolio-blog-api/internal/database"
	"github.com/portfolio-blog-api/internal/models"
)

const articleColumns = `id, slug, title, author, category, published_date, reading_time,
	featured_image, excerpt, content, created_at, updated_at`

// articleRepo is the concrete implementation of ArticleRepository
type articleRepo struct {
	db *database.DB
}

// NewArticleRepo creates a new article repository
func NewArticleRepo(db *database.DB) ArticleRepository {
	return &articleRepo{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanArticle(row rowScanner, extra ...interface{}) (*models.Article, error) {
	var article models.Article
	var contentJSON []byte

	dest := []interface{}{
		&article.ID, &article.Slug, &article.Title, &article.Author, &article.Category,
		&article.PublishedDate, &article.ReadingTime, &article.FeaturedImage, &article.Excerpt,
		&contentJSON, &article.CreatedAt, &article.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	if len(contentJSON) > 0 {
		if err := json.Unmarshal(contentJSON, &article.Content); err != nil {
			return nil, fmt.Errorf("article %s has malformed content: %w", article.Slug, err)
		}
	}
	if article.Content == nil {
		article.Content = []models.ContentBlock{}
	}
	return &article, nil
}

func marshalContent(blocks []models.ContentBlock) ([]byte, error) {
	if blocks == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(blocks)
}

// Create inserts a new article
func (r *articleRepo) Create(ctx context.Context, article *models.Article) error {
	contentJSON, err := marshalContent(article.Content)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO articles (id, slug, title, author, category, published_date, reading_time,
			featured_image, excerpt, content, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err = r.db.ExecContext(ctx, query,
		article.ID, article.Slug, article.Title, article.Author, article.Category,
		article.PublishedDate, article.ReadingTime, article.FeaturedImage, article.Excerpt,
		contentJSON, article.CreatedAt, article.UpdatedAt,
	)
	return err
}

// Update replaces every mutable field of the article identified by article.ID
func (r *articleRepo) Update(ctx context.Context, article *models.Article) error {
	contentJSON, err := marshalContent(article.Content)
	if err != nil {
		return err
	}

	query := `
		UPDATE articles SET slug = $2, title = $3, author = $4, category = $5, published_date = $6,
			reading_time = $7, featured_image = $8, excerpt = $9, content = $10, updated_at = $11
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query,
		article.ID, article.Slug, article.Title, article.Author, article.Category,
		article.PublishedDate, article.ReadingTime, article.FeaturedImage, article.Excerpt,
		contentJSON, article.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes the article together with its comments and interaction row.
// The foreign keys cascade as well; the explicit deletes keep the cleanup
// independent of how the schema was provisioned.
func (r *articleRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM comments WHERE article_id = $1", id); err != nil {
			return fmt.Errorf("failed to delete comments: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM article_interactions WHERE article_id = $1", id); err != nil {
			return fmt.Errorf("failed to delete interactions: %w", err)
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM articles WHERE id = $1", id)
		if err != nil {
			return fmt.Errorf("failed to delete article: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return sql.ErrNoRows
		}
		return nil
	})
}

// GetBySlug retrieves an article by slug
func (r *articleRepo) GetBySlug(ctx context.Context, slug string) (*models.Article, error) {
	query := `SELECT ` + articleColumns + ` FROM articles WHERE slug = $1`

	article, err := scanArticle(r.db.QueryRowContext(ctx, query, slug))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return article, nil
}

// SlugExists checks if an article with the given slug exists
func (r *articleRepo) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM articles WHERE slug = $1)", slug).Scan(&exists)
	return exists, err
}

// SlugExistsExcept checks if another article than excludeID already uses slug
func (r *articleRepo) SlugExistsExcept(ctx context.Context, slug, excludeID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM articles WHERE slug = $1 AND id <> $2)", slug, excludeID,
	).Scan(&exists)
	return exists, err
}

// List returns all articles, most recently published first
func (r *articleRepo) List(ctx context.Context) ([]*models.Article, error) {
	query := `SELECT ` + articleColumns + ` FROM articles ORDER BY published_date DESC, created_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	articles := make([]*models.Article, 0)
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		articles = append(articles, article)
	}
	return articles, rows.Err()
}

// Count returns the total number of articles
func (r *articleRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM articles").Scan(&count)
	return count, err
}

// StreamAll streams every article joined with its interactions for export
func (r *articleRepo) StreamAll(ctx context.Context, callback func(*models.ArticleWithInteractions) error) error {
	query := `
		SELECT a.id, a.slug, a.title, a.author, a.category, a.published_date, a.reading_time,
			a.featured_image, a.excerpt, a.content, a.created_at, a.updated_at,
			i.likes, i.hearts, i.laughs, i.dislikes, i.comment_count, i.last_updated
		FROM articles a
		LEFT JOIN article_interactions i ON i.article_id = a.id
		ORDER BY a.created_at
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var likes, hearts, laughs, dislikes, commentCount sql.NullInt64
		var lastUpdated sql.NullTime

		article, err := scanArticle(rows, &likes, &hearts, &laughs, &dislikes, &commentCount, &lastUpdated)
		if err != nil {
			return err
		}

		item := &models.ArticleWithInteractions{Article: *article}
		if lastUpdated.Valid {
			item.Interactions = &models.ArticleInteractions{
				ArticleID: article.ID,
				Reactions: models.ReactionCounts{
					Likes:    int(likes.Int64),
					Hearts:   int(hearts.Int64),
					Laughs:   int(laughs.Int64),
					Dislikes: int(dislikes.Int64),
				},
				CommentCount: int(commentCount.Int64),
				LastUpdated:  lastUpdated.Time,
			}
		}

		if err := callback(item); err != nil {
			return err
		}
	}

	return rows.Err()
}
