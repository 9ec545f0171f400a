package service

import (
	"context"

	"github.com/portfolio-blog-api/internal/metrics"
	"github.com/portfolio-blog-api/internal/models"
	"github.com/portfolio-blog-api/internal/repository"
	"github.com/rs/zerolog"
)

// interactionService is the concrete implementation of InteractionService
type interactionService struct {
	articles     repository.ArticleRepository
	interactions repository.InteractionRepository
	comments     repository.CommentRepository
	log          zerolog.Logger
}

func newInteractionService(repos *repository.Repositories, log zerolog.Logger) *interactionService {
	return &interactionService{
		articles:     repos.Article,
		interactions: repos.Interaction,
		comments:     repos.Comment,
		log:          log.With().Str("service", "interaction").Logger(),
	}
}

// GetReactions returns the interaction aggregate of an article. An article that
// never received an interaction row reports zero counters.
func (s *interactionService) GetReactions(ctx context.Context, slug string) (*models.ArticleInteractions, error) {
	article, err := lookupArticle(ctx, s.articles, slug)
	if err != nil {
		return nil, err
	}

	i, err := s.interactions.Get(ctx, article.ID)
	if err != nil {
		s.log.Error().Err(err).Str("slug", slug).Msg("Failed to read interactions")
		return nil, models.NewStoreError(err)
	}
	if i == nil {
		return &models.ArticleInteractions{ArticleID: article.ID, LastUpdated: article.UpdatedAt}, nil
	}
	return i, nil
}

// SetReactions replaces all four counters. Unknown keys are dropped and negative values clamp to zero.
func (s *interactionService) SetReactions(ctx context.Context, slug string, reactions map[string]int) (*models.ArticleInteractions, error) {
	article, err := lookupArticle(ctx, s.articles, slug)
	if err != nil {
		return nil, err
	}

	i, err := s.interactions.SetReactions(ctx, article.ID, models.ReactionCountsFromMap(reactions))
	if err != nil {
		s.log.Error().Err(err).Str("slug", slug).Msg("Failed to set reactions")
		return nil, models.NewStoreError(err)
	}
	return i, nil
}

// IncrementReaction adds one to a single counter
func (s *interactionService) IncrementReaction(ctx context.Context, slug, reaction string) (*models.ArticleInteractions, error) {
	return s.adjust(ctx, slug, reaction, 1)
}

// DecrementReaction removes one from a single counter, never going below zero
func (s *interactionService) DecrementReaction(ctx context.Context, slug, reaction string) (*models.ArticleInteractions, error) {
	return s.adjust(ctx, slug, reaction, -1)
}

func (s *interactionService) adjust(ctx context.Context, slug, reaction string, delta int) (*models.ArticleInteractions, error) {
	if !models.ValidReactions[reaction] {
		return nil, models.NewBadInputError("invalid reactionType, must be one of: likes, hearts, laughs, dislikes")
	}

	article, err := lookupArticle(ctx, s.articles, slug)
	if err != nil {
		return nil, err
	}

	i, err := s.interactions.AdjustReaction(ctx, article.ID, reaction, delta)
	if err != nil {
		s.log.Error().Err(err).Str("slug", slug).Str("reaction", reaction).Int("delta", delta).Msg("Failed to update reaction")
		return nil, models.NewStoreError(err)
	}

	action := models.ReactionActionAdd
	if delta < 0 {
		action = models.ReactionActionRemove
	}
	metrics.ReactionsTotal.WithLabelValues(reaction, action).Inc()
	return i, nil
}

// RecountComments recomputes commentCount of an article from the live comment rows
func (s *interactionService) RecountComments(ctx context.Context, slug string) (*models.ArticleInteractions, error) {
	article, err := lookupArticle(ctx, s.articles, slug)
	if err != nil {
		return nil, err
	}

	i, err := s.recount(ctx, article.ID)
	if err != nil {
		s.log.Error().Err(err).Str("slug", slug).Msg("Failed to recount comments")
		return nil, models.NewStoreError(err)
	}
	return i, nil
}

func (s *interactionService) recount(ctx context.Context, articleID string) (*models.ArticleInteractions, error) {
	n, err := s.comments.CountByArticle(ctx, articleID)
	if err != nil {
		metrics.CommentRecountsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	i, err := s.interactions.SetCommentCount(ctx, articleID, n)
	if err != nil {
		metrics.CommentRecountsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	metrics.CommentRecountsTotal.WithLabelValues("ok").Inc()
	return i, nil
}

// recountAfterMutation repairs commentCount after a structural comment change.
// The comment mutation already succeeded, so a failure here is only logged.
func (s *interactionService) recountAfterMutation(ctx context.Context, articleID string) {
	if _, err := s.recount(ctx, articleID); err != nil {
		s.log.Error().Err(err).Str("article_id", articleID).Msg("Comment recount failed, counter will converge on the next mutation")
	}
}
