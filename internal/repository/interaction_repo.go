package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/portfolio-blog-api/internal/database"
	"github.com/portfolio-blog-api/internal/models"
)

const interactionColumns = `article_id, likes, hearts, laughs, dislikes, comment_count, last_updated`

// reactionColumns maps canonical reaction keys to their columns. Only these
// names are ever interpolated into SQL.
var reactionColumns = map[string]string{
	models.ReactionLikes:    "likes",
	models.ReactionHearts:   "hearts",
	models.ReactionLaughs:   "laughs",
	models.ReactionDislikes: "dislikes",
}

// interactionRepo is the concrete implementation of InteractionRepository
type interactionRepo struct {
	db *database.DB
}

// NewInteractionRepo creates a new interaction repository
func NewInteractionRepo(db *database.DB) InteractionRepository {
	return &interactionRepo{db: db}
}

func scanInteractions(row rowScanner) (*models.ArticleInteractions, error) {
	var i models.ArticleInteractions
	err := row.Scan(
		&i.ArticleID, &i.Reactions.Likes, &i.Reactions.Hearts, &i.Reactions.Laughs,
		&i.Reactions.Dislikes, &i.CommentCount, &i.LastUpdated,
	)
	if err != nil {
		return nil, err
	}
	return &i, nil
}

// Create inserts a zeroed row for the article; an existing row is left untouched
func (r *interactionRepo) Create(ctx context.Context, articleID string) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO article_interactions (article_id) VALUES ($1) ON CONFLICT (article_id) DO NOTHING",
		articleID,
	)
	return err
}

// Get retrieves the interaction row of an article
func (r *interactionRepo) Get(ctx context.Context, articleID string) (*models.ArticleInteractions, error) {
	query := `SELECT ` + interactionColumns + ` FROM article_interactions WHERE article_id = $1`

	i, err := scanInteractions(r.db.QueryRowContext(ctx, query, articleID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return i, nil
}

// SetReactions replaces all four counters, creating the row if needed
func (r *interactionRepo) SetReactions(ctx context.Context, articleID string, counts models.ReactionCounts) (*models.ArticleInteractions, error) {
	counts = counts.Clamped()
	query := `
		INSERT INTO article_interactions (article_id, likes, hearts, laughs, dislikes, last_updated)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (article_id) DO UPDATE SET
			likes = EXCLUDED.likes,
			hearts = EXCLUDED.hearts,
			laughs = EXCLUDED.laughs,
			dislikes = EXCLUDED.dislikes,
			last_updated = EXCLUDED.last_updated
		RETURNING ` + interactionColumns

	return scanInteractions(r.db.QueryRowContext(ctx, query,
		articleID, counts.Likes, counts.Hearts, counts.Laughs, counts.Dislikes,
	))
}

// AdjustReaction adds delta to one counter in a single statement, flooring at zero
func (r *interactionRepo) AdjustReaction(ctx context.Context, articleID, reaction string, delta int) (*models.ArticleInteractions, error) {
	col, ok := reactionColumns[reaction]
	if !ok {
		return nil, fmt.Errorf("unknown reaction %q", reaction)
	}

	query := fmt.Sprintf(`
		INSERT INTO article_interactions (article_id, %[1]s, last_updated)
		VALUES ($1, GREATEST($2, 0), NOW())
		ON CONFLICT (article_id) DO UPDATE SET
			%[1]s = GREATEST(article_interactions.%[1]s + $2, 0),
			last_updated = NOW()
		RETURNING %[2]s`, col, interactionColumns)

	return scanInteractions(r.db.QueryRowContext(ctx, query, articleID, delta))
}

// SetCommentCount overwrites the denormalized comment counter
func (r *interactionRepo) SetCommentCount(ctx context.Context, articleID string, count int) (*models.ArticleInteractions, error) {
	query := `
		INSERT INTO article_interactions (article_id, comment_count, last_updated)
		VALUES ($1, $2, NOW())
		ON CONFLICT (article_id) DO UPDATE SET
			comment_count = EXCLUDED.comment_count,
			last_updated = EXCLUDED.last_updated
		RETURNING ` + interactionColumns

	return scanInteractions(r.db.QueryRowContext(ctx, query, articleID, count))
}
