package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/portfolio-blog-api/internal/metrics"
	"github.com/portfolio-blog-api/internal/models"
	"github.com/portfolio-blog-api/internal/repository"
	"github.com/portfolio-blog-api/internal/validation"
	"github.com/rs/zerolog"
)

// ListCommentsOptions controls the read-side presentation of a comment tree
type ListCommentsOptions struct {
	Sort       string // oldest (default), newest or popular
	RecentOnly bool   // keep threads active within models.RecentCommentWindow
}

// commentService is the concrete implementation of CommentService
type commentService struct {
	articles     repository.ArticleRepository
	comments     repository.CommentRepository
	interactions *interactionService
	validator    *validation.Validator
	now          func() time.Time
	log          zerolog.Logger
}

func newCommentService(repos *repository.Repositories, interactions *interactionService, log zerolog.Logger) *commentService {
	return &commentService{
		articles:     repos.Article,
		comments:     repos.Comment,
		interactions: interactions,
		validator:    validation.NewValidator(),
		now:          time.Now,
		log:          log.With().Str("service", "comment").Logger(),
	}
}

// newCommentID returns a millisecond timestamp plus a random suffix. Collisions are
// improbable, not impossible; the primary key rejects the rare duplicate.
func newCommentID(now time.Time) string {
	return fmt.Sprintf("%d-%s", now.UnixMilli(), uuid.New().String()[:8])
}

// AddComment creates a root comment or a reply to a root comment of the same article
func (s *commentService) AddComment(ctx context.Context, slug string, req *models.CreateCommentRequest) (*models.Comment, error) {
	if err := validation.ToError(s.validator.ValidateComment(req)); err != nil {
		return nil, err
	}

	article, err := lookupArticle(ctx, s.articles, slug)
	if err != nil {
		return nil, err
	}

	var parentID *string
	if req.ParentID != nil {
		parent, err := s.comments.GetByID(ctx, *req.ParentID)
		if err != nil {
			s.log.Error().Err(err).Str("parent_id", *req.ParentID).Msg("Failed to load parent comment")
			return nil, models.NewStoreError(err)
		}
		if parent == nil || parent.ArticleID != article.ID {
			return nil, models.NewBadInputError("cannot reply to a non-existent or mismatched-article comment")
		}
		if !parent.IsRoot() {
			return nil, models.NewBadInputError("replies can only be added to root comments")
		}
		id := parent.ID
		parentID = &id
	}

	now := s.now().UTC()
	comment := &models.Comment{
		ID:         newCommentID(now),
		ArticleID:  article.ID,
		UserID:     req.UserID,
		UserName:   strings.TrimSpace(req.UserName),
		UserAvatar: req.UserAvatar,
		Content:    strings.TrimSpace(req.Content),
		Likes:      0,
		LikedBy:    []string{},
		ParentID:   parentID,
		CreatedAt:  now,
	}

	if err := s.comments.Create(ctx, comment); err != nil {
		s.log.Error().Err(err).Str("slug", slug).Str("user_id", req.UserID).Msg("Failed to create comment")
		return nil, models.NewStoreError(err)
	}

	s.interactions.recountAfterMutation(ctx, article.ID)
	metrics.CommentOperationsTotal.WithLabelValues("create").Inc()

	s.log.Info().
		Str("comment_id", comment.ID).
		Str("slug", slug).
		Bool("reply", parentID != nil).
		Msg("Comment added")
	return comment, nil
}

// EditComment replaces the content and marks the comment edited. Callers must have
// verified that the acting user authored the comment.
func (s *commentService) EditComment(ctx context.Context, id, content string) (*models.Comment, error) {
	if err := validation.ToError(s.validator.ValidateCommentContent(content)); err != nil {
		return nil, err
	}

	comment, err := s.comments.UpdateContent(ctx, id, strings.TrimSpace(content), s.now().UTC())
	if err != nil {
		s.log.Error().Err(err).Str("comment_id", id).Msg("Failed to edit comment")
		return nil, models.NewStoreError(err)
	}
	if comment == nil {
		return nil, models.NewNotFoundError("comment", id)
	}

	metrics.CommentOperationsTotal.WithLabelValues("edit").Inc()
	return comment, nil
}

// ToggleLike adds userID to likedBy or removes it, keeping likes equal to the set size
func (s *commentService) ToggleLike(ctx context.Context, id, userID string) (*models.Comment, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, models.NewBadInputError("userId is required")
	}

	comment, err := s.comments.ToggleLike(ctx, id, userID)
	if err != nil {
		s.log.Error().Err(err).Str("comment_id", id).Str("user_id", userID).Msg("Failed to toggle like")
		return nil, models.NewStoreError(err)
	}
	if comment == nil {
		return nil, models.NewNotFoundError("comment", id)
	}

	metrics.CommentOperationsTotal.WithLabelValues("like").Inc()
	return comment, nil
}

// DeleteComment removes a comment; a root comment takes its replies with it.
// Callers must have verified authorship or moderation rights.
func (s *commentService) DeleteComment(ctx context.Context, id string) error {
	comment, err := s.GetComment(ctx, id)
	if err != nil {
		return err
	}

	removed, err := s.comments.Delete(ctx, id)
	if err != nil {
		s.log.Error().Err(err).Str("comment_id", id).Msg("Failed to delete comment")
		return models.NewStoreError(err)
	}
	if removed == 0 {
		// Another request deleted it between the lookup and the delete
		return models.NewNotFoundError("comment", id)
	}

	s.interactions.recountAfterMutation(ctx, comment.ArticleID)
	metrics.CommentOperationsTotal.WithLabelValues("delete").Inc()

	s.log.Info().
		Str("comment_id", id).
		Int64("removed", removed).
		Msg("Comment deleted")
	return nil
}

// GetComment retrieves one comment
func (s *commentService) GetComment(ctx context.Context, id string) (*models.Comment, error) {
	if id == "" {
		return nil, models.NewBadInputError("comment id is required")
	}
	comment, err := s.comments.GetByID(ctx, id)
	if err != nil {
		s.log.Error().Err(err).Str("comment_id", id).Msg("Failed to load comment")
		return nil, models.NewStoreError(err)
	}
	if comment == nil {
		return nil, models.NewNotFoundError("comment", id)
	}
	return comment, nil
}

// ListComments returns the two-level comment tree of an article
func (s *commentService) ListComments(ctx context.Context, slug string, opts ListCommentsOptions) (*models.CommentList, error) {
	switch opts.Sort {
	case "", models.CommentSortOldest, models.CommentSortNewest, models.CommentSortPopular:
	default:
		return nil, models.NewBadInputError("sort must be one of: oldest, newest, popular")
	}

	article, err := lookupArticle(ctx, s.articles, slug)
	if err != nil {
		return nil, err
	}

	comments, err := s.comments.ListByArticle(ctx, article.ID)
	if err != nil {
		s.log.Error().Err(err).Str("slug", slug).Msg("Failed to list comments")
		return nil, models.NewStoreError(err)
	}

	threads := BuildThreads(comments)
	if opts.RecentOnly {
		threads = FilterRecent(threads, s.now().Add(-models.RecentCommentWindow))
	}
	SortThreads(threads, opts.Sort)

	total := 0
	for _, t := range threads {
		total += 1 + len(t.Replies)
	}
	return &models.CommentList{Threads: threads, Total: total}, nil
}

// BuildThreads arranges comments into roots with their replies, both ascending by
// creation time. A reply whose parent is itself a reply is attached to that reply's
// root, and a reply whose parent is missing is shown as a root.
func BuildThreads(comments []*models.Comment) []*models.CommentThread {
	byID := make(map[string]*models.Comment, len(comments))
	for _, c := range comments {
		byID[c.ID] = c
	}

	rootOf := func(c *models.Comment) *models.Comment {
		seen := map[string]bool{}
		for !c.IsRoot() && !seen[c.ID] {
			seen[c.ID] = true
			parent, ok := byID[*c.ParentID]
			if !ok {
				break
			}
			c = parent
		}
		return c
	}

	threads := make([]*models.CommentThread, 0)
	index := make(map[string]*models.CommentThread)
	for _, c := range comments {
		if root := rootOf(c); root == c {
			t := &models.CommentThread{Comment: *c, Replies: []*models.Comment{}}
			threads = append(threads, t)
			index[c.ID] = t
		}
	}
	for _, c := range comments {
		root := rootOf(c)
		if root == c {
			continue
		}
		if t, ok := index[root.ID]; ok {
			t.Replies = append(t.Replies, c)
		}
	}

	sort.SliceStable(threads, func(i, j int) bool {
		return olderFirst(&threads[i].Comment, &threads[j].Comment)
	})
	for _, t := range threads {
		sort.SliceStable(t.Replies, func(i, j int) bool {
			return olderFirst(t.Replies[i], t.Replies[j])
		})
	}
	return threads
}

func olderFirst(a, b *models.Comment) bool {
	if a.CreatedAt.Equal(b.CreatedAt) {
		return a.ID < b.ID
	}
	return a.CreatedAt.Before(b.CreatedAt)
}

// SortThreads orders roots for display; replies always stay oldest first
func SortThreads(threads []*models.CommentThread, order string) {
	switch order {
	case models.CommentSortNewest:
		sort.SliceStable(threads, func(i, j int) bool {
			return olderFirst(&threads[j].Comment, &threads[i].Comment)
		})
	case models.CommentSortPopular:
		sort.SliceStable(threads, func(i, j int) bool {
			if threads[i].Likes != threads[j].Likes {
				return threads[i].Likes > threads[j].Likes
			}
			return olderFirst(&threads[i].Comment, &threads[j].Comment)
		})
	}
}

// FilterRecent keeps threads whose root or any reply was created after since
func FilterRecent(threads []*models.CommentThread, since time.Time) []*models.CommentThread {
	out := make([]*models.CommentThread, 0, len(threads))
	for _, t := range threads {
		if t.CreatedAt.After(since) {
			out = append(out, t)
			continue
		}
		for _, r := range t.Replies {
			if r.CreatedAt.After(since) {
				out = append(out, t)
				break
			}
		}
	}
	return out
}
