package service_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/portfolio-blog-api/internal/auth"
	"github.com/portfolio-blog-api/internal/config"
	"github.com/portfolio-blog-api/internal/mocks"
	"github.com/portfolio-blog-api/internal/models"
	"github.com/portfolio-blog-api/internal/service"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store  *mocks.MockStore
	admin  *mocks.MockIdentityAdmin
	images *mocks.MockImageStore
	svc    *service.Services
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := mocks.NewMockStore()
	admin := mocks.NewMockIdentityAdmin()
	images := mocks.NewMockImageStore()
	cfg := &config.Config{
		Auth:    config.AuthConfig{DefaultRole: "editor"},
		Storage: config.StorageConfig{MaxImageSize: 1024},
	}
	svc := service.NewServices(store.Repositories(), service.Externals{Admin: admin, Images: images}, cfg, zerolog.Nop())
	return &fixture{store: store, admin: admin, images: images, svc: svc}
}

func articleInput(slug string) *models.ArticleInput {
	return &models.ArticleInput{
		Title:  "Title of " + slug,
		Slug:   slug,
		Author: "Ada",
		Content: []models.ContentBlock{
			{Type: models.BlockParagraph, Text: "First paragraph of " + slug},
		},
	}
}

func mustCreateArticle(t *testing.T, f *fixture, slug string) *models.Article {
	t.Helper()
	a, err := f.svc.Articles.Create(context.Background(), articleInput(slug))
	require.NoError(t, err)
	return a
}

func addComment(t *testing.T, f *fixture, slug, userID string, parentID *string) *models.Comment {
	t.Helper()
	c, err := f.svc.Comments.AddComment(context.Background(), slug, &models.CreateCommentRequest{
		Content:  "comment by " + userID,
		UserID:   userID,
		UserName: "Name " + userID,
		ParentID: parentID,
	})
	require.NoError(t, err)
	return c
}

func commentCount(t *testing.T, f *fixture, slug string) int {
	t.Helper()
	i, err := f.svc.Interactions.GetReactions(context.Background(), slug)
	require.NoError(t, err)
	return i.CommentCount
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, code, models.ErrorCode(err), err.Error())
}

// Article admin mutator

func TestArticleService_CreateAppliesDefaults(t *testing.T) {
	f := newFixture(t)
	long := strings.Repeat("word ", 450)
	in := &models.ArticleInput{
		Title:  "  Hello World ",
		Slug:   "hello-world",
		Author: "Ada",
		Content: []models.ContentBlock{
			{Type: models.BlockHeading, Level: 2, Text: "Intro"},
			{Type: models.BlockParagraph, Text: long},
		},
	}

	a, err := f.svc.Articles.Create(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, "Hello World", a.Title)
	assert.Equal(t, models.DefaultCategory, a.Category)
	assert.Equal(t, time.Now().UTC().Format(models.PublishedDateLayout), a.PublishedDate)
	assert.Equal(t, "3 min read", a.ReadingTime)
	assert.Equal(t, models.DefaultFeaturedImage, a.FeaturedImage)
	assert.Equal(t, models.MaxExcerptRunes, len([]rune(a.Excerpt)))
	assert.True(t, strings.HasSuffix(a.Excerpt, "..."))

	// A zeroed interaction row is created alongside
	i, ok := f.store.Interactions.Rows[a.ID]
	require.True(t, ok)
	assert.Equal(t, models.ReactionCounts{}, i.Reactions)
	assert.Equal(t, 0, i.CommentCount)
}

func TestArticleService_CreateKeepsExplicitFields(t *testing.T) {
	f := newFixture(t)
	in := articleInput("explicit")
	category, date, image := "Engineering", "2023-05-01", "/images/x.png"
	in.Category, in.PublishedDate, in.FeaturedImage = &category, &date, &image

	a, err := f.svc.Articles.Create(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "Engineering", a.Category)
	assert.Equal(t, "2023-05-01", a.PublishedDate)
	assert.Equal(t, "/images/x.png", a.FeaturedImage)
	assert.Equal(t, "1 min read", a.ReadingTime)
}

func TestArticleService_CreateValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Articles.Create(context.Background(), &models.ArticleInput{Slug: "x"})
	assertCode(t, err, models.CodeBadInput)
	assert.Empty(t, f.store.Articles.Articles, "validation must fail before any write")

	in := articleInput("bad-block")
	in.Content = append(in.Content, models.ContentBlock{Type: "carousel"})
	_, err = f.svc.Articles.Create(context.Background(), in)
	assertCode(t, err, models.CodeBadInput)
}

// A duplicate create leaves the original untouched
func TestArticleService_DuplicateSlugConflicts(t *testing.T) {
	f := newFixture(t)
	first := mustCreateArticle(t, f, "hello-world")

	second := articleInput("hello-world")
	second.Title = "Another"
	_, err := f.svc.Articles.Create(context.Background(), second)
	assertCode(t, err, models.CodeConflict)

	got, err := f.svc.Articles.Get(context.Background(), "hello-world")
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, first.Title, got.Title)
	assert.Len(t, f.store.Articles.Articles, 1)
}

func TestArticleService_UniqueViolationFromStoreIsConflict(t *testing.T) {
	f := newFixture(t)

	// A concurrent insert that passed the pre-check surfaces as a unique violation
	f.store.Articles.InsertError = &pq.Error{Code: "23505", Constraint: "idx_articles_slug"}
	_, err := f.svc.Articles.Create(context.Background(), articleInput("racy"))
	assertCode(t, err, models.CodeConflict)

	f.store.Articles.InsertError = errors.New("disk full")
	_, err = f.svc.Articles.Create(context.Background(), articleInput("racy"))
	assertCode(t, err, models.CodeStoreFailure)
}

func TestArticleService_UpdateSlugRename(t *testing.T) {
	f := newFixture(t)
	a := mustCreateArticle(t, f, "first")
	mustCreateArticle(t, f, "second")
	ctx := context.Background()

	// Same slug never conflicts with itself
	in := articleInput("first")
	in.Title = "Renamed title"
	updated, err := f.svc.Articles.Update(ctx, "first", in)
	require.NoError(t, err)
	assert.Equal(t, "Renamed title", updated.Title)
	assert.Equal(t, a.ID, updated.ID)

	// Renaming into a taken slug conflicts and changes nothing
	_, err = f.svc.Articles.Update(ctx, "first", articleInput("second"))
	assertCode(t, err, models.CodeConflict)
	still, err := f.svc.Articles.Get(ctx, "first")
	require.NoError(t, err)
	assert.Equal(t, "Renamed title", still.Title)

	// Renaming into a free slug works and keeps the identity
	renamed, err := f.svc.Articles.Update(ctx, "first", articleInput("third"))
	require.NoError(t, err)
	assert.Equal(t, a.ID, renamed.ID)
	assert.Equal(t, a.PublishedDate, renamed.PublishedDate)

	_, err = f.svc.Articles.Get(ctx, "first")
	assertCode(t, err, models.CodeNotFound)

	_, err = f.svc.Articles.Update(ctx, "nope", articleInput("nope"))
	assertCode(t, err, models.CodeNotFound)
}

func TestArticleService_UpdateRecomputesDerivedFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := articleInput("growing")
	category := "Engineering"
	in.Category = &category
	a, err := f.svc.Articles.Create(ctx, in)
	require.NoError(t, err)
	require.Equal(t, "1 min read", a.ReadingTime)
	require.Equal(t, "First paragraph of growing", a.Excerpt)

	grown := articleInput("growing")
	grown.Content = []models.ContentBlock{
		{Type: models.BlockParagraph, Text: "A brand new opening"},
		{Type: models.BlockParagraph, Text: strings.Repeat("word ", 996)},
	}
	updated, err := f.svc.Articles.Update(ctx, "growing", grown)
	require.NoError(t, err)
	assert.Equal(t, "5 min read", updated.ReadingTime)
	assert.Equal(t, "A brand new opening", updated.Excerpt)
	assert.Equal(t, "Engineering", updated.Category, "non-derived fields carry over")

	// Explicit values still win over the derived ones
	readingTime, excerpt := "12 min read", "Hand written"
	grown.ReadingTime, grown.Excerpt = &readingTime, &excerpt
	updated, err = f.svc.Articles.Update(ctx, "growing", grown)
	require.NoError(t, err)
	assert.Equal(t, "12 min read", updated.ReadingTime)
	assert.Equal(t, "Hand written", updated.Excerpt)
}

// Random creates and renames never produce two articles with one slug
func TestArticleService_SlugsStayUnique(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	slugs := []string{"a", "b", "c", "d"}
	for _, s := range slugs {
		mustCreateArticle(t, f, s)
	}

	rng := rand.New(rand.NewSource(7))
	for n := 0; n < 50; n++ {
		from := slugs[rng.Intn(len(slugs))]
		to := slugs[rng.Intn(len(slugs))]
		if _, err := f.svc.Articles.Update(ctx, from, articleInput(to)); err != nil {
			assert.Contains(t, []string{models.CodeConflict, models.CodeNotFound}, models.ErrorCode(err))
		}
		if _, err := f.svc.Articles.Create(ctx, articleInput(to)); err != nil {
			assertCode(t, err, models.CodeConflict)
		}
	}

	seen := map[string]bool{}
	for _, a := range f.store.Articles.Articles {
		assert.False(t, seen[a.Slug], "duplicate slug %s", a.Slug)
		seen[a.Slug] = true
	}
}

func TestArticleService_DeleteCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := mustCreateArticle(t, f, "doomed")
	other := mustCreateArticle(t, f, "survivor")

	root := addComment(t, f, "doomed", "u1", nil)
	addComment(t, f, "doomed", "u2", &root.ID)
	kept := addComment(t, f, "survivor", "u3", nil)

	require.NoError(t, f.svc.Articles.Delete(ctx, "doomed"))

	_, ok := f.store.Interactions.Rows[a.ID]
	assert.False(t, ok)
	for _, c := range f.store.Comments.Comments {
		assert.NotEqual(t, a.ID, c.ArticleID)
	}
	_, ok = f.store.Interactions.Rows[other.ID]
	assert.True(t, ok)
	_, err := f.svc.Comments.GetComment(ctx, kept.ID)
	assert.NoError(t, err)

	assertCode(t, f.svc.Articles.Delete(ctx, "doomed"), models.CodeNotFound)
}

func TestArticleService_InteractionFailureDoesNotRollBack(t *testing.T) {
	f := newFixture(t)
	f.store.Interactions.CreateErr = errors.New("interactions table locked")

	a, err := f.svc.Articles.Create(context.Background(), articleInput("orphan"))
	require.NoError(t, err)
	assert.Contains(t, f.store.Articles.Articles, a.ID)

	// Reads fall back to zeroed counters
	f.store.Interactions.CreateErr = nil
	withCounts, err := f.svc.Articles.GetWithInteractions(context.Background(), "orphan")
	require.NoError(t, err)
	assert.Equal(t, 0, withCounts.Interactions.CommentCount)
}

func TestArticleService_StoreFailure(t *testing.T) {
	f := newFixture(t)
	f.store.Articles.GetError = errors.New("connection refused")

	_, err := f.svc.Articles.Get(context.Background(), "any")
	assertCode(t, err, models.CodeStoreFailure)
	assert.Equal(t, "Internal server error", err.(*models.AppError).Message)
}

// Interaction store

func TestInteractionService_GetReactions(t *testing.T) {
	f := newFixture(t)
	mustCreateArticle(t, f, "x")

	i, err := f.svc.Interactions.GetReactions(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, models.ReactionCounts{}, i.Reactions)

	_, err = f.svc.Interactions.GetReactions(context.Background(), "missing")
	assertCode(t, err, models.CodeNotFound)
}

func TestInteractionService_IncrementReaction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mustCreateArticle(t, f, "x")

	for n := 0; n < 3; n++ {
		_, err := f.svc.Interactions.IncrementReaction(ctx, "x", models.ReactionLikes)
		require.NoError(t, err)
	}
	before, err := f.svc.Interactions.GetReactions(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, 3, before.Reactions.Likes)

	_, err = f.svc.Interactions.IncrementReaction(ctx, "x", "bogus")
	assertCode(t, err, models.CodeBadInput)

	after, err := f.svc.Interactions.GetReactions(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, before.Reactions, after.Reactions)

	_, err = f.svc.Interactions.IncrementReaction(ctx, "missing", models.ReactionLikes)
	assertCode(t, err, models.CodeNotFound)
}

func TestInteractionService_CountersNeverNegative(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mustCreateArticle(t, f, "x")

	rng := rand.New(rand.NewSource(42))
	keys := []string{models.ReactionLikes, models.ReactionHearts, models.ReactionLaughs, models.ReactionDislikes}
	for n := 0; n < 200; n++ {
		key := keys[rng.Intn(len(keys))]
		var i *models.ArticleInteractions
		var err error
		if rng.Intn(3) == 0 {
			i, err = f.svc.Interactions.IncrementReaction(ctx, "x", key)
		} else {
			i, err = f.svc.Interactions.DecrementReaction(ctx, "x", key)
		}
		require.NoError(t, err)
		for _, k := range keys {
			assert.GreaterOrEqual(t, i.Reactions.Get(k), 0)
		}
	}
}

func TestInteractionService_SetReactionsFiltersAndClamps(t *testing.T) {
	f := newFixture(t)
	mustCreateArticle(t, f, "x")

	i, err := f.svc.Interactions.SetReactions(context.Background(), "x", map[string]int{
		"likes":  5,
		"hearts": -2,
		"bogus":  99,
	})
	require.NoError(t, err)
	assert.Equal(t, models.ReactionCounts{Likes: 5}, i.Reactions)

	_, err = f.svc.Interactions.SetReactions(context.Background(), "missing", map[string]int{"likes": 1})
	assertCode(t, err, models.CodeNotFound)
}

func TestInteractionService_RecountRepairsDrift(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := mustCreateArticle(t, f, "x")
	addComment(t, f, "x", "u1", nil)
	addComment(t, f, "x", "u2", nil)

	f.store.Interactions.Rows[a.ID].CommentCount = 17

	i, err := f.svc.Interactions.RecountComments(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, 2, i.CommentCount)
}

// Comment thread manager

func TestCommentService_AddCommentValidation(t *testing.T) {
	f := newFixture(t)
	mustCreateArticle(t, f, "x")
	ctx := context.Background()

	_, err := f.svc.Comments.AddComment(ctx, "x", &models.CreateCommentRequest{UserID: "u1", UserName: "U"})
	assertCode(t, err, models.CodeBadInput)

	_, err = f.svc.Comments.AddComment(ctx, "x", &models.CreateCommentRequest{Content: "hi", UserName: "U"})
	assertCode(t, err, models.CodeBadInput)

	_, err = f.svc.Comments.AddComment(ctx, "missing", &models.CreateCommentRequest{Content: "hi", UserID: "u1", UserName: "U"})
	assertCode(t, err, models.CodeNotFound)

	assert.Empty(t, f.store.Comments.Comments)
}

func TestCommentService_AddCommentDefaults(t *testing.T) {
	f := newFixture(t)
	mustCreateArticle(t, f, "x")

	c := addComment(t, f, "x", "u1", nil)
	assert.NotEmpty(t, c.ID)
	assert.Equal(t, 0, c.Likes)
	assert.Empty(t, c.LikedBy)
	assert.NotNil(t, c.LikedBy)
	assert.False(t, c.Edited)
	assert.Nil(t, c.ParentID)
	assert.WithinDuration(t, time.Now(), c.CreatedAt, 5*time.Second)
}

func TestCommentService_ReplyRules(t *testing.T) {
	f := newFixture(t)
	mustCreateArticle(t, f, "x")
	mustCreateArticle(t, f, "y")
	ctx := context.Background()

	root := addComment(t, f, "x", "u1", nil)
	reply := addComment(t, f, "x", "u2", &root.ID)
	require.NotNil(t, reply.ParentID)
	assert.Equal(t, root.ID, *reply.ParentID)

	missing := "does-not-exist"
	_, err := f.svc.Comments.AddComment(ctx, "x", &models.CreateCommentRequest{Content: "r", UserID: "u3", UserName: "U", ParentID: &missing})
	assertCode(t, err, models.CodeBadInput)

	// Parent on a different article
	_, err = f.svc.Comments.AddComment(ctx, "y", &models.CreateCommentRequest{Content: "r", UserID: "u3", UserName: "U", ParentID: &root.ID})
	assertCode(t, err, models.CodeBadInput)

	// Replies to replies are rejected
	_, err = f.svc.Comments.AddComment(ctx, "x", &models.CreateCommentRequest{Content: "r", UserID: "u3", UserName: "U", ParentID: &reply.ID})
	assertCode(t, err, models.CodeBadInput)

	assert.Equal(t, 2, commentCount(t, f, "x"))
}

func TestCommentService_DeleteRootRemovesReplies(t *testing.T) {
	f := newFixture(t)
	mustCreateArticle(t, f, "x")
	ctx := context.Background()

	c1 := addComment(t, f, "x", "u1", nil)
	c2 := addComment(t, f, "x", "u2", &c1.ID)
	assert.Equal(t, 2, commentCount(t, f, "x"))

	require.NoError(t, f.svc.Comments.DeleteComment(ctx, c1.ID))
	assert.Equal(t, 0, commentCount(t, f, "x"))

	_, err := f.svc.Comments.GetComment(ctx, c2.ID)
	assertCode(t, err, models.CodeNotFound)

	assertCode(t, f.svc.Comments.DeleteComment(ctx, c1.ID), models.CodeNotFound)
}

func TestCommentService_DeleteLeavesSiblingsIntact(t *testing.T) {
	f := newFixture(t)
	mustCreateArticle(t, f, "x")
	ctx := context.Background()

	a := addComment(t, f, "x", "u1", nil)
	addComment(t, f, "x", "u2", &a.ID)
	b := addComment(t, f, "x", "u3", nil)
	bReply := addComment(t, f, "x", "u4", &b.ID)

	require.NoError(t, f.svc.Comments.DeleteComment(ctx, a.ID))

	_, err := f.svc.Comments.GetComment(ctx, b.ID)
	assert.NoError(t, err)
	_, err = f.svc.Comments.GetComment(ctx, bReply.ID)
	assert.NoError(t, err)
	assert.Equal(t, 2, commentCount(t, f, "x"))

	// Deleting a reply removes only the reply
	require.NoError(t, f.svc.Comments.DeleteComment(ctx, bReply.ID))
	_, err = f.svc.Comments.GetComment(ctx, b.ID)
	assert.NoError(t, err)
	assert.Equal(t, 1, commentCount(t, f, "x"))
}

func TestCommentService_DeleteLostRaceIsNotFound(t *testing.T) {
	f := newFixture(t)
	mustCreateArticle(t, f, "x")
	c := addComment(t, f, "x", "u1", nil)

	// A concurrent request removes the comment after the lookup
	f.store.Comments.BeforeDelete = func(id string) {
		delete(f.store.Comments.Comments, id)
	}

	err := f.svc.Comments.DeleteComment(context.Background(), c.ID)
	assertCode(t, err, models.CodeNotFound)
}

// After every mutation the stored counter equals the live comment count
func TestCommentService_CountConvergence(t *testing.T) {
	f := newFixture(t)
	a := mustCreateArticle(t, f, "x")
	ctx := context.Background()
	rng := rand.New(rand.NewSource(1))

	var roots []string
	for n := 0; n < 60; n++ {
		switch op := rng.Intn(4); {
		case op == 0 && len(roots) > 0:
			idx := rng.Intn(len(roots))
			_ = f.svc.Comments.DeleteComment(ctx, roots[idx])
			roots = append(roots[:idx], roots[idx+1:]...)
		case op == 1 && len(roots) > 0:
			parent := roots[rng.Intn(len(roots))]
			addComment(t, f, "x", fmt.Sprintf("u%d", n), &parent)
		default:
			roots = append(roots, addComment(t, f, "x", fmt.Sprintf("u%d", n), nil).ID)
		}

		live, err := f.store.Comments.CountByArticle(ctx, a.ID)
		require.NoError(t, err)
		require.Equal(t, live, commentCount(t, f, "x"))
	}
}

func TestCommentService_RecountFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	mustCreateArticle(t, f, "x")

	f.store.Comments.CountError = errors.New("timeout")
	c := addComment(t, f, "x", "u1", nil)
	assert.NotEmpty(t, c.ID)

	// The next successful mutation converges the counter
	f.store.Comments.CountError = nil
	addComment(t, f, "x", "u2", nil)
	assert.Equal(t, 2, commentCount(t, f, "x"))
}

func TestCommentService_ToggleLikeIsInvolution(t *testing.T) {
	f := newFixture(t)
	mustCreateArticle(t, f, "x")
	ctx := context.Background()
	c1 := addComment(t, f, "x", "author", nil)

	liked, err := f.svc.Comments.ToggleLike(ctx, c1.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, liked.Likes)
	assert.Equal(t, []string{"u1"}, liked.LikedBy)

	unliked, err := f.svc.Comments.ToggleLike(ctx, c1.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, unliked.Likes)
	assert.Empty(t, unliked.LikedBy)

	// Two different users are counted separately
	_, err = f.svc.Comments.ToggleLike(ctx, c1.ID, "u1")
	require.NoError(t, err)
	both, err := f.svc.Comments.ToggleLike(ctx, c1.ID, "u2")
	require.NoError(t, err)
	assert.Equal(t, 2, both.Likes)
	assert.ElementsMatch(t, []string{"u1", "u2"}, both.LikedBy)

	_, err = f.svc.Comments.ToggleLike(ctx, "missing", "u1")
	assertCode(t, err, models.CodeNotFound)
	_, err = f.svc.Comments.ToggleLike(ctx, c1.ID, "")
	assertCode(t, err, models.CodeBadInput)
}

func TestCommentService_EditComment(t *testing.T) {
	f := newFixture(t)
	mustCreateArticle(t, f, "x")
	ctx := context.Background()
	c := addComment(t, f, "x", "u1", nil)

	edited, err := f.svc.Comments.EditComment(ctx, c.ID, "  updated text ")
	require.NoError(t, err)
	assert.Equal(t, "updated text", edited.Content)
	assert.True(t, edited.Edited)
	require.NotNil(t, edited.EditedAt)

	_, err = f.svc.Comments.EditComment(ctx, c.ID, "")
	assertCode(t, err, models.CodeBadInput)
	_, err = f.svc.Comments.EditComment(ctx, "missing", "text")
	assertCode(t, err, models.CodeNotFound)
}

func TestCommentService_ListComments(t *testing.T) {
	f := newFixture(t)
	mustCreateArticle(t, f, "x")
	ctx := context.Background()

	first := addComment(t, f, "x", "u1", nil)
	reply := addComment(t, f, "x", "u2", &first.ID)
	second := addComment(t, f, "x", "u3", nil)
	_, err := f.svc.Comments.ToggleLike(ctx, second.ID, "u9")
	require.NoError(t, err)

	// Make creation times deterministic
	base := time.Now().Add(-48 * time.Hour)
	f.store.Comments.Comments[first.ID].CreatedAt = base
	f.store.Comments.Comments[reply.ID].CreatedAt = base.Add(time.Minute)
	f.store.Comments.Comments[second.ID].CreatedAt = base.Add(time.Hour)

	list, err := f.svc.Comments.ListComments(ctx, "x", service.ListCommentsOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, list.Total)
	require.Len(t, list.Threads, 2)
	assert.Equal(t, first.ID, list.Threads[0].ID)
	require.Len(t, list.Threads[0].Replies, 1)
	assert.Equal(t, reply.ID, list.Threads[0].Replies[0].ID)

	newest, err := f.svc.Comments.ListComments(ctx, "x", service.ListCommentsOptions{Sort: models.CommentSortNewest})
	require.NoError(t, err)
	assert.Equal(t, second.ID, newest.Threads[0].ID)

	popular, err := f.svc.Comments.ListComments(ctx, "x", service.ListCommentsOptions{Sort: models.CommentSortPopular})
	require.NoError(t, err)
	assert.Equal(t, second.ID, popular.Threads[0].ID)

	recent, err := f.svc.Comments.ListComments(ctx, "x", service.ListCommentsOptions{RecentOnly: true})
	require.NoError(t, err)
	assert.Empty(t, recent.Threads)
	assert.Equal(t, 0, recent.Total)

	// A fresh reply keeps its whole thread in the recent view
	f.store.Comments.Comments[reply.ID].CreatedAt = time.Now()
	recent, err = f.svc.Comments.ListComments(ctx, "x", service.ListCommentsOptions{RecentOnly: true})
	require.NoError(t, err)
	require.Len(t, recent.Threads, 1)
	assert.Equal(t, first.ID, recent.Threads[0].ID)

	_, err = f.svc.Comments.ListComments(ctx, "x", service.ListCommentsOptions{Sort: "random"})
	assertCode(t, err, models.CodeBadInput)
}

func TestBuildThreads_FlattensDeepReplies(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ptr := func(s string) *string { return &s }
	comments := []*models.Comment{
		{ID: "c", ParentID: ptr("b"), CreatedAt: base.Add(3 * time.Minute)},
		{ID: "a", CreatedAt: base},
		{ID: "b", ParentID: ptr("a"), CreatedAt: base.Add(2 * time.Minute)},
		{ID: "orphan", ParentID: ptr("gone"), CreatedAt: base.Add(time.Minute)},
	}

	threads := service.BuildThreads(comments)
	require.Len(t, threads, 2)
	assert.Equal(t, "a", threads[0].ID)
	require.Len(t, threads[0].Replies, 2)
	assert.Equal(t, "b", threads[0].Replies[0].ID)
	assert.Equal(t, "c", threads[0].Replies[1].ID)
	assert.Equal(t, "orphan", threads[1].ID)
}

// Role resolver

func TestRoleService_ResolveCreatesDefaultOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	role, err := f.svc.Roles.Resolve(ctx, "u42")
	require.NoError(t, err)
	assert.Equal(t, models.RoleEditor, role)
	require.Contains(t, f.store.Roles.Roles, "u42")

	role, err = f.svc.Roles.Resolve(ctx, "u42")
	require.NoError(t, err)
	assert.Equal(t, models.RoleEditor, role)
	assert.Equal(t, 1, f.store.Roles.Inserts)
}

func TestNewServices_ConfiguredDefaultRole(t *testing.T) {
	store := mocks.NewMockStore()
	ext := service.Externals{Admin: mocks.NewMockIdentityAdmin(), Images: mocks.NewMockImageStore()}
	ctx := context.Background()

	viewerCfg := &config.Config{Auth: config.AuthConfig{DefaultRole: "viewer"}}
	svc := service.NewServices(store.Repositories(), ext, viewerCfg, zerolog.Nop())
	role, err := svc.Roles.Resolve(ctx, "reader")
	require.NoError(t, err)
	assert.Equal(t, models.RoleViewer, role)

	svc = service.NewServices(store.Repositories(), ext, &config.Config{}, zerolog.Nop())
	role, err = svc.Roles.Resolve(ctx, "someone-else")
	require.NoError(t, err)
	assert.Equal(t, models.DefaultRole, role)
}

func TestRoleService_ResolveConcurrently(t *testing.T) {
	f := newFixture(t)

	var wg sync.WaitGroup
	for n := 0; n < 16; n++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			role, err := f.svc.Roles.Resolve(context.Background(), "brand-new")
			assert.NoError(t, err)
			assert.Equal(t, models.RoleEditor, role)
		}()
	}
	wg.Wait()

	assert.Len(t, f.store.Roles.Roles, 1)
	assert.Equal(t, 1, f.store.Roles.Inserts)
}

func TestRoleService_ResolveFallsBackOnStoreFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.store.Roles.GetError = errors.New("connection reset")
	role, err := f.svc.Roles.Resolve(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.RoleEditor, role)

	f.store.Roles.GetError = nil
	f.store.Roles.EnsureError = errors.New("read-only transaction")
	role, err = f.svc.Roles.Resolve(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.RoleEditor, role)
	assert.Empty(t, f.store.Roles.Roles)

	_, err = f.svc.Roles.Resolve(ctx, " ")
	assertCode(t, err, models.CodeBadInput)
}

func TestRoleService_ResolveReturnsStoredRole(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Roles.SetRole(context.Background(), "admin-1", "u1", models.RoleViewer)
	require.NoError(t, err)

	role, err := f.svc.Roles.Resolve(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, models.RoleViewer, role)

	_, err = f.svc.Roles.SetRole(context.Background(), "admin-1", "u1", "superuser")
	assertCode(t, err, models.CodeBadInput)
}

// User administration

func TestUserService_UpdateRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ur, err := f.svc.Users.UpdateRole(ctx, "admin-1", &models.UpdateRoleRequest{UserID: "u2", Role: models.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, ur.Role)
	assert.Equal(t, "admin-1", ur.CreatedBy)

	_, err = f.svc.Users.UpdateRole(ctx, "admin-1", &models.UpdateRoleRequest{UserID: "admin-1", Role: models.RoleViewer})
	assertCode(t, err, models.CodeForbidden)

	_, err = f.svc.Users.UpdateRole(ctx, "admin-1", &models.UpdateRoleRequest{UserID: "u2", Role: "god"})
	assertCode(t, err, models.CodeBadInput)
}

func TestUserService_RoleChangesReachResolver(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Users.UpdateRole(ctx, "admin-1", &models.UpdateRoleRequest{UserID: "u3", Role: models.RoleViewer})
	require.NoError(t, err)
	role, err := f.svc.Roles.Resolve(ctx, "u3")
	require.NoError(t, err)
	assert.Equal(t, models.RoleViewer, role)

	rows, err := f.svc.Roles.List(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "u3", rows[0].UserID)

	f.store.Roles.UpsertError = errors.New("connection reset")
	_, err = f.svc.Users.UpdateRole(ctx, "admin-1", &models.UpdateRoleRequest{UserID: "u3", Role: models.RoleAdmin})
	assertCode(t, err, models.CodeStoreFailure)

	f.store.Roles.GetError = errors.New("connection reset")
	_, err = f.svc.Users.ListUsers(ctx)
	assertCode(t, err, models.CodeStoreFailure)
}

func TestUserService_ListCreateDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Users.CreateUser(ctx, "admin-1", &models.CreateUserRequest{
		Email: " New@Example.com ", Password: "secret123", Name: "New", Role: models.RoleViewer,
	})
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", created.Email)
	assert.Equal(t, models.RoleViewer, created.Role)

	_, err = f.svc.Users.CreateUser(ctx, "admin-1", &models.CreateUserRequest{Email: "new@example.com", Password: "secret123"})
	assertCode(t, err, models.CodeConflict)

	f.admin.Users["legacy"] = auth.IdentityUser{ID: "legacy", Email: "legacy@example.com"}
	users, err := f.svc.Users.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	roles := map[string]models.Role{}
	for _, u := range users {
		roles[u.ID] = u.Role
	}
	assert.Equal(t, models.RoleViewer, roles[created.ID])
	assert.Equal(t, models.RoleEditor, roles["legacy"])

	assertCode(t, f.svc.Users.DeleteUser(ctx, "admin-1", "admin-1"), models.CodeBadInput)
	require.NoError(t, f.svc.Users.DeleteUser(ctx, "admin-1", created.ID))
	assert.NotContains(t, f.store.Roles.Roles, created.ID)
	assertCode(t, f.svc.Users.DeleteUser(ctx, "admin-1", created.ID), models.CodeNotFound)
}

func TestUserService_AdminNotConfigured(t *testing.T) {
	f := newFixture(t)
	f.admin.NotConfigured = true
	ctx := context.Background()

	_, err := f.svc.Users.ListUsers(ctx)
	assertCode(t, err, models.CodeUnavailable)
	assert.Contains(t, err.Error(), "admin client not configured")

	_, err = f.svc.Users.CreateUser(ctx, "admin-1", &models.CreateUserRequest{Email: "a@b.co", Password: "secret123"})
	assertCode(t, err, models.CodeUnavailable)

	assertCode(t, f.svc.Users.DeleteUser(ctx, "admin-1", "u2"), models.CodeUnavailable)
}

// Export and images

func TestExportService_StreamArticles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mustCreateArticle(t, f, "one")
	mustCreateArticle(t, f, "two")
	_, err := f.svc.Interactions.IncrementReaction(ctx, "one", models.ReactionHearts)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	require.NoError(t, f.svc.Export.StreamArticles(ctx, rec, service.FormatNDJSON))
	assert.Equal(t, "application/x-ndjson", rec.Header().Get("Content-Type"))
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	assert.Len(t, lines, 2)
	assert.Contains(t, rec.Body.String(), `"hearts":1`)

	rec = httptest.NewRecorder()
	require.NoError(t, f.svc.Export.StreamArticles(ctx, rec, service.FormatJSON))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "["))
	assert.True(t, strings.HasSuffix(rec.Body.String(), "]"))

	err = f.svc.Export.StreamArticles(ctx, httptest.NewRecorder(), "csv")
	assertCode(t, err, models.CodeBadInput)

	n, err := f.svc.Export.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestImageService_Upload(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	png := append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 32)...)

	img, err := f.svc.Images.Upload(ctx, "C:\\photos\\cover.png", png)
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.ContentType)
	assert.True(t, strings.HasPrefix(img.Key, "articles/"))
	assert.True(t, strings.HasSuffix(img.Key, ".png"))
	assert.Equal(t, "https://cdn.test/"+img.Key, img.URL)
	assert.Contains(t, f.images.Objects, img.Key)

	_, err = f.svc.Images.Upload(ctx, "notes.txt", []byte("just some text"))
	assertCode(t, err, models.CodeBadInput)

	_, err = f.svc.Images.Upload(ctx, "big.png", append(png, make([]byte, 2048)...))
	assertCode(t, err, models.CodeBadInput)

	_, err = f.svc.Images.Upload(ctx, "empty.png", nil)
	assertCode(t, err, models.CodeBadInput)
}

func TestImageService_NotConfigured(t *testing.T) {
	store := mocks.NewMockStore()
	svc := service.NewServices(store.Repositories(), service.Externals{Admin: mocks.NewMockIdentityAdmin()}, &config.Config{}, zerolog.Nop())

	_, err := svc.Images.Upload(context.Background(), "a.png", []byte("\x89PNG\r\n\x1a\n"))
	assertCode(t, err, models.CodeUnavailable)
}

func TestReadingTimeAndExcerpt(t *testing.T) {
	assert.Equal(t, "1 min read", service.ReadingTime(nil))
	assert.Equal(t, "1 min read", service.ReadingTime([]models.ContentBlock{{Type: models.BlockParagraph, Text: strings.Repeat("w ", 200)}}))
	assert.Equal(t, "2 min read", service.ReadingTime([]models.ContentBlock{
		{Type: models.BlockParagraph, Text: strings.Repeat("w ", 150)},
		{Type: models.BlockList, Items: []string{strings.Repeat("w ", 51)}},
	}))

	assert.Equal(t, "", service.Excerpt([]models.ContentBlock{{Type: models.BlockHeading, Text: "Only a heading"}}))
	assert.Equal(t, "Short and sweet.", service.Excerpt([]models.ContentBlock{
		{Type: models.BlockQuote, Text: "Not this"},
		{Type: models.BlockParagraph, Text: "  Short   and sweet. "},
	}))
}

// BenchmarkBuildThreads measures thread assembly for a busy article
func BenchmarkBuildThreads(b *testing.B) {
	base := time.Now()
	comments := make([]*models.Comment, 0, 1000)
	for i := 0; i < 250; i++ {
		root := &models.Comment{ID: fmt.Sprintf("root-%04d", i), CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		comments = append(comments, root)
		for j := 0; j < 3; j++ {
			parent := root.ID
			comments = append(comments, &models.Comment{
				ID:        fmt.Sprintf("reply-%04d-%d", i, j),
				ParentID:  &parent,
				CreatedAt: root.CreatedAt.Add(time.Duration(j+1) * time.Second),
			})
		}
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		threads := service.BuildThreads(comments)
		service.SortThreads(threads, models.CommentSortPopular)
	}

	b.ReportMetric(float64(len(comments)*b.N)/b.Elapsed().Seconds(), "comments/sec")
}

// BenchmarkStreamArticles measures NDJSON export throughput over the in-memory store
func BenchmarkStreamArticles(b *testing.B) {
	store := mocks.NewMockStore()
	svc := service.NewServices(store.Repositories(), service.Externals{}, &config.Config{}, zerolog.Nop())
	ctx := context.Background()
	for i := 0; i < 500; i++ {
		if _, err := svc.Articles.Create(ctx, articleInput(fmt.Sprintf("article-%04d", i))); err != nil {
			b.Fatal(err)
		}
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		if err := svc.Export.StreamArticles(ctx, httptest.NewRecorder(), service.FormatNDJSON); err != nil {
			b.Fatal(err)
		}
	}

	b.ReportMetric(float64(500*b.N)/b.Elapsed().Seconds(), "rows/sec")
}
