package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/portfolio-blog-api/internal/models"
	"github.com/portfolio-blog-api/internal/repository"
	"github.com/portfolio-blog-api/internal/validation"
	"github.com/rs/zerolog"
)

// articleService is the concrete implementation of ArticleService
type articleService struct {
	articles     repository.ArticleRepository
	interactions repository.InteractionRepository
	validator    *validation.Validator
	now          func() time.Time
	log          zerolog.Logger
}

func newArticleService(repos *repository.Repositories, log zerolog.Logger) *articleService {
	return &articleService{
		articles:     repos.Article,
		interactions: repos.Interaction,
		validator:    validation.NewValidator(),
		now:          time.Now,
		log:          log.With().Str("service", "article").Logger(),
	}
}

func slugConflict(slug string) error {
	return models.NewConflictError(fmt.Sprintf("article with slug %q already exists", slug))
}

// Create validates the input, rejects a taken slug and stores the article with a zeroed
// interaction row. A failed interaction insert is logged and does not undo the article.
func (s *articleService) Create(ctx context.Context, in *models.ArticleInput) (*models.Article, error) {
	if err := validation.ToError(s.validator.ValidateArticle(in)); err != nil {
		return nil, err
	}

	exists, err := s.articles.SlugExists(ctx, in.Slug)
	if err != nil {
		s.log.Error().Err(err).Str("slug", in.Slug).Msg("Failed to check slug")
		return nil, models.NewStoreError(err)
	}
	if exists {
		return nil, slugConflict(in.Slug)
	}

	now := s.now().UTC()
	article := &models.Article{
		ID:        uuid.New().String(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	applyArticleInput(article, in, now)

	if err := s.articles.Create(ctx, article); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, slugConflict(in.Slug)
		}
		s.log.Error().Err(err).Str("slug", in.Slug).Msg("Failed to create article")
		return nil, models.NewStoreError(err)
	}

	if err := s.interactions.Create(ctx, article.ID); err != nil {
		s.log.Error().Err(err).Str("slug", article.Slug).Msg("Article created but interaction row was not")
	}

	s.log.Info().Str("slug", article.Slug).Str("article_id", article.ID).Msg("Article created")
	return article, nil
}

// Update fully replaces the article stored under oldSlug. Optional fields that are
// absent keep their stored value. A slug rename is checked against all other articles.
func (s *articleService) Update(ctx context.Context, oldSlug string, in *models.ArticleInput) (*models.Article, error) {
	if err := validation.ToError(s.validator.ValidateArticle(in)); err != nil {
		return nil, err
	}

	article, err := lookupArticle(ctx, s.articles, oldSlug)
	if err != nil {
		return nil, err
	}

	if in.Slug != oldSlug {
		taken, err := s.articles.SlugExistsExcept(ctx, in.Slug, article.ID)
		if err != nil {
			s.log.Error().Err(err).Str("slug", in.Slug).Msg("Failed to check slug")
			return nil, models.NewStoreError(err)
		}
		if taken {
			return nil, slugConflict(in.Slug)
		}
	}

	now := s.now().UTC()
	applyArticleInput(article, in, now)
	article.UpdatedAt = now

	if err := s.articles.Update(ctx, article); err != nil {
		switch {
		case repository.IsUniqueViolation(err):
			return nil, slugConflict(in.Slug)
		case errors.Is(err, sql.ErrNoRows):
			return nil, models.NewNotFoundError("article", oldSlug)
		}
		s.log.Error().Err(err).Str("slug", oldSlug).Msg("Failed to update article")
		return nil, models.NewStoreError(err)
	}

	s.log.Info().Str("old_slug", oldSlug).Str("slug", article.Slug).Msg("Article updated")
	return article, nil
}

// Delete removes the article with its interaction row and comments
func (s *articleService) Delete(ctx context.Context, slug string) error {
	article, err := lookupArticle(ctx, s.articles, slug)
	if err != nil {
		return err
	}

	if err := s.articles.Delete(ctx, article.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.NewNotFoundError("article", slug)
		}
		s.log.Error().Err(err).Str("slug", slug).Msg("Failed to delete article")
		return models.NewStoreError(err)
	}

	s.log.Info().Str("slug", slug).Msg("Article deleted")
	return nil
}

// Get retrieves an article by slug
func (s *articleService) Get(ctx context.Context, slug string) (*models.Article, error) {
	return lookupArticle(ctx, s.articles, slug)
}

// GetWithInteractions retrieves an article with its counters, zeroed when no row exists
func (s *articleService) GetWithInteractions(ctx context.Context, slug string) (*models.ArticleWithInteractions, error) {
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
		i = &models.ArticleInteractions{ArticleID: article.ID, LastUpdated: article.UpdatedAt}
	}
	return &models.ArticleWithInteractions{Article: *article, Interactions: i}, nil
}

// List returns all articles, most recently published first
func (s *articleService) List(ctx context.Context) ([]*models.Article, error) {
	articles, err := s.articles.List(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to list articles")
		return nil, models.NewStoreError(err)
	}
	return articles, nil
}

// applyArticleInput copies input onto article. Absent readingTime and excerpt are
// recomputed from the new content; other absent optional fields keep the value
// already on article, then fall back to their defaults.
func applyArticleInput(article *models.Article, in *models.ArticleInput, now time.Time) {
	article.Title = strings.TrimSpace(in.Title)
	article.Slug = in.Slug
	article.Author = strings.TrimSpace(in.Author)
	article.Content = in.Content

	article.Category = pick(in.Category, article.Category, models.DefaultCategory)
	article.PublishedDate = pick(in.PublishedDate, article.PublishedDate, now.Format(models.PublishedDateLayout))
	article.ReadingTime = pick(in.ReadingTime, "", ReadingTime(in.Content))
	article.FeaturedImage = pick(in.FeaturedImage, article.FeaturedImage, models.DefaultFeaturedImage)
	article.Excerpt = pick(in.Excerpt, "", Excerpt(in.Content))
}

func pick(in *string, current, fallback string) string {
	if in != nil && strings.TrimSpace(*in) != "" {
		return strings.TrimSpace(*in)
	}
	if current != "" {
		return current
	}
	return fallback
}

// ReadingTime estimates "N min read" from the words of all text-bearing blocks
func ReadingTime(blocks []models.ContentBlock) string {
	words := 0
	for _, b := range blocks {
		words += len(strings.Fields(b.Text))
		words += len(strings.Fields(b.Question))
		words += len(strings.Fields(b.Answer))
		for _, item := range b.Items {
			words += len(strings.Fields(item))
		}
	}

	minutes := int(math.Ceil(float64(words) / models.WordsPerMinute))
	if minutes < 1 {
		minutes = 1
	}
	return fmt.Sprintf("%d min read", minutes)
}

// Excerpt returns the first paragraph, truncated to models.MaxExcerptRunes runes
func Excerpt(blocks []models.ContentBlock) string {
	for _, b := range blocks {
		if b.Type != models.BlockParagraph {
			continue
		}
		text := strings.Join(strings.Fields(b.Text), " ")
		if text == "" {
			continue
		}
		if utf8.RuneCountInString(text) <= models.MaxExcerptRunes {
			return text
		}
		runes := []rune(text)
		return strings.TrimSpace(string(runes[:models.MaxExcerptRunes-3])) + "..."
	}
	return ""
}
