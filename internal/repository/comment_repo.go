package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"
	"github.com/portfolio-blog-api/internal/database"
	"github.com/portfolio-blog-api/internal/models"
)

const commentColumns = `id, article_id, user_id, user_name, user_avatar, content, likes, liked_by,
	parent_id, edited, edited_at, created_at`

// commentRepo is the concrete implementation of CommentRepository
type commentRepo struct {
	db *database.DB
}

// NewCommentRepo creates a new comment repository
func NewCommentRepo(db *database.DB) CommentRepository {
	return &commentRepo{db: db}
}

func scanComment(row rowScanner) (*models.Comment, error) {
	var c models.Comment
	var likedBy pq.StringArray
	var parentID sql.NullString
	var editedAt sql.NullTime

	err := row.Scan(
		&c.ID, &c.ArticleID, &c.UserID, &c.UserName, &c.UserAvatar, &c.Content,
		&c.Likes, &likedBy, &parentID, &c.Edited, &editedAt, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.LikedBy = []string(likedBy)
	if c.LikedBy == nil {
		c.LikedBy = []string{}
	}
	if parentID.Valid {
		c.ParentID = &parentID.String
	}
	if editedAt.Valid {
		c.EditedAt = &editedAt.Time
	}
	return &c, nil
}

func nullableParent(parentID *string) sql.NullString {
	if parentID == nil || *parentID == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *parentID, Valid: true}
}

func likedByArray(likedBy []string) pq.StringArray {
	if likedBy == nil {
		return pq.StringArray{}
	}
	return pq.StringArray(likedBy)
}

// Create inserts a new comment
func (r *commentRepo) Create(ctx context.Context, comment *models.Comment) error {
	query := `
		INSERT INTO comments (id, article_id, user_id, user_name, user_avatar, content, likes,
			liked_by, parent_id, edited, edited_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := r.db.ExecContext(ctx, query,
		comment.ID, comment.ArticleID, comment.UserID, comment.UserName, comment.UserAvatar,
		comment.Content, comment.Likes, likedByArray(comment.LikedBy), nullableParent(comment.ParentID),
		comment.Edited, comment.EditedAt, comment.CreatedAt,
	)
	return err
}

// BatchInsert inserts multiple comments using PostgreSQL COPY. Roots must precede
// their replies in the slice.
func (r *commentRepo) BatchInsert(ctx context.Context, comments []*models.Comment) (int, error) {
	if len(comments) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("comments",
		"id", "article_id", "user_id", "user_name", "user_avatar", "content",
		"likes", "liked_by", "parent_id", "edited", "created_at",
	))
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for _, c := range comments {
		_, err := stmt.ExecContext(ctx,
			c.ID, c.ArticleID, c.UserID, c.UserName, c.UserAvatar, c.Content,
			c.Likes, likedByArray(c.LikedBy), nullableParent(c.ParentID), c.Edited, c.CreatedAt,
		)
		if err != nil {
			return 0, err
		}
	}

	if _, err := stmt.ExecContext(ctx); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}

	return len(comments), nil
}

// GetByID retrieves a comment by ID
func (r *commentRepo) GetByID(ctx context.Context, id string) (*models.Comment, error) {
	query := `SELECT ` + commentColumns + ` FROM comments WHERE id = $1`

	comment, err := scanComment(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return comment, nil
}

// ListByArticle returns every comment of an article, oldest first
func (r *commentRepo) ListByArticle(ctx context.Context, articleID string) ([]*models.Comment, error) {
	query := `SELECT ` + commentColumns + ` FROM comments WHERE article_id = $1 ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, query, articleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	comments := make([]*models.Comment, 0)
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

// UpdateContent replaces the text of a comment and marks it edited
func (r *commentRepo) UpdateContent(ctx context.Context, id, content string, editedAt time.Time) (*models.Comment, error) {
	query := `
		UPDATE comments SET content = $2, edited = TRUE, edited_at = $3
		WHERE id = $1
		RETURNING ` + commentColumns

	comment, err := scanComment(r.db.QueryRowContext(ctx, query, id, content, editedAt))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return comment, err
}

// ToggleLike flips userID's membership in liked_by and adjusts likes in one statement.
// Every right-hand side reads the pre-update row.
func (r *commentRepo) ToggleLike(ctx context.Context, id, userID string) (*models.Comment, error) {
	query := `
		UPDATE comments SET
			liked_by = CASE WHEN $2 = ANY(liked_by) THEN array_remove(liked_by, $2) ELSE array_append(liked_by, $2) END,
			likes = CASE WHEN $2 = ANY(liked_by) THEN GREATEST(likes - 1, 0) ELSE likes + 1 END
		WHERE id = $1
		RETURNING ` + commentColumns

	comment, err := scanComment(r.db.QueryRowContext(ctx, query, id, userID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return comment, err
}

// Delete removes a comment and its direct replies, returning the number of rows removed
func (r *commentRepo) Delete(ctx context.Context, id string) (int64, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM comments WHERE id = $1 OR parent_id = $1", id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CountByArticle returns the live number of comments (roots and replies) of an article
func (r *commentRepo) CountByArticle(ctx context.Context, articleID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM comments WHERE article_id = $1", articleID).Scan(&count)
	return count, err
}
