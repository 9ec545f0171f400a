package mocks

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/lib/pq"
	"github.com/portfolio-blog-api/internal/models"
	"github.com/portfolio-blog-api/internal/repository"
)

var (
	_ repository.ArticleRepository     = (*MockArticleRepository)(nil)
	_ repository.InteractionRepository = (*MockInteractionRepository)(nil)
	_ repository.CommentRepository     = (*MockCommentRepository)(nil)
	_ repository.RoleRepository        = (*MockRoleRepository)(nil)
)

// uniqueViolation mimics the error PostgreSQL returns for a duplicate slug
func uniqueViolation(constraint string) error {
	return &pq.Error{Code: "23505", Constraint: constraint, Message: "duplicate key value violates unique constraint"}
}

// MockStore bundles the in-memory repositories. Deleting an article cascades to its
// comments and interaction row like the real schema.
type MockStore struct {
	Articles     *MockArticleRepository
	Interactions *MockInteractionRepository
	Comments     *MockCommentRepository
	Roles        *MockRoleRepository
}

func NewMockStore() *MockStore {
	s := &MockStore{
		Articles:     NewMockArticleRepository(),
		Interactions: NewMockInteractionRepository(),
		Comments:     NewMockCommentRepository(),
		Roles:        NewMockRoleRepository(),
	}
	s.Articles.Interactions = s.Interactions
	s.Articles.Comments = s.Comments
	return s
}

// Repositories exposes the store through the repository interfaces
func (s *MockStore) Repositories() *repository.Repositories {
	return &repository.Repositories{
		Article:     s.Articles,
		Interaction: s.Interactions,
		Comment:     s.Comments,
		Role:        s.Roles,
	}
}

// MockArticleRepository is a mock implementation of ArticleRepository
type MockArticleRepository struct {
	mu           sync.Mutex
	Articles     map[string]*models.Article // by ID
	Interactions *MockInteractionRepository
	Comments     *MockCommentRepository
	GetError     error
	InsertError  error
	UpdateError  error
	DeleteError  error
}

func NewMockArticleRepository() *MockArticleRepository {
	return &MockArticleRepository{Articles: make(map[string]*models.Article)}
}

func cloneArticle(a *models.Article) *models.Article {
	c := *a
	c.Content = append([]models.ContentBlock(nil), a.Content...)
	return &c
}

func (m *MockArticleRepository) slugTaken(slug, exceptID string) bool {
	for id, a := range m.Articles {
		if a.Slug == slug && id != exceptID {
			return true
		}
	}
	return false
}

func (m *MockArticleRepository) Create(ctx context.Context, article *models.Article) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.InsertError != nil {
		return m.InsertError
	}
	if m.slugTaken(article.Slug, "") {
		return uniqueViolation("idx_articles_slug")
	}
	m.Articles[article.ID] = cloneArticle(article)
	return nil
}

func (m *MockArticleRepository) Update(ctx context.Context, article *models.Article) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpdateError != nil {
		return m.UpdateError
	}
	if _, ok := m.Articles[article.ID]; !ok {
		return sql.ErrNoRows
	}
	if m.slugTaken(article.Slug, article.ID) {
		return uniqueViolation("idx_articles_slug")
	}
	m.Articles[article.ID] = cloneArticle(article)
	return nil
}

func (m *MockArticleRepository) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DeleteError != nil {
		return m.DeleteError
	}
	if _, ok := m.Articles[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.Articles, id)
	if m.Comments != nil {
		m.Comments.deleteByArticle(id)
	}
	if m.Interactions != nil {
		m.Interactions.delete(id)
	}
	return nil
}

func (m *MockArticleRepository) GetBySlug(ctx context.Context, slug string) (*models.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetError != nil {
		return nil, m.GetError
	}
	for _, a := range m.Articles {
		if a.Slug == slug {
			return cloneArticle(a), nil
		}
	}
	return nil, nil
}

func (m *MockArticleRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetError != nil {
		return false, m.GetError
	}
	return m.slugTaken(slug, ""), nil
}

func (m *MockArticleRepository) SlugExistsExcept(ctx context.Context, slug, excludeID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetError != nil {
		return false, m.GetError
	}
	return m.slugTaken(slug, excludeID), nil
}

func (m *MockArticleRepository) sorted() []*models.Article {
	articles := make([]*models.Article, 0, len(m.Articles))
	for _, a := range m.Articles {
		articles = append(articles, cloneArticle(a))
	}
	sort.Slice(articles, func(i, j int) bool {
		if articles[i].PublishedDate != articles[j].PublishedDate {
			return articles[i].PublishedDate > articles[j].PublishedDate
		}
		return articles[i].CreatedAt.After(articles[j].CreatedAt)
	})
	return articles
}

func (m *MockArticleRepository) List(ctx context.Context) ([]*models.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetError != nil {
		return nil, m.GetError
	}
	return m.sorted(), nil
}

func (m *MockArticleRepository) Count(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Articles), nil
}

func (m *MockArticleRepository) StreamAll(ctx context.Context, callback func(*models.ArticleWithInteractions) error) error {
	m.mu.Lock()
	articles := m.sorted()
	m.mu.Unlock()

	for _, a := range articles {
		item := &models.ArticleWithInteractions{Article: *a}
		if m.Interactions != nil {
			item.Interactions, _ = m.Interactions.Get(ctx, a.ID)
		}
		if err := callback(item); err != nil {
			return err
		}
	}
	return nil
}

// MockInteractionRepository is a mock implementation of InteractionRepository
type MockInteractionRepository struct {
	mu         sync.Mutex
	Rows       map[string]*models.ArticleInteractions // by article ID
	CreateErr  error
	GetError   error
	WriteError error
}

func NewMockInteractionRepository() *MockInteractionRepository {
	return &MockInteractionRepository{Rows: make(map[string]*models.ArticleInteractions)}
}

func (m *MockInteractionRepository) row(articleID string) *models.ArticleInteractions {
	r, ok := m.Rows[articleID]
	if !ok {
		r = &models.ArticleInteractions{ArticleID: articleID}
		m.Rows[articleID] = r
	}
	r.LastUpdated = time.Now().UTC()
	return r
}

func (m *MockInteractionRepository) delete(articleID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Rows, articleID)
}

func (m *MockInteractionRepository) Create(ctx context.Context, articleID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateErr != nil {
		return m.CreateErr
	}
	if _, ok := m.Rows[articleID]; !ok {
		m.row(articleID)
	}
	return nil
}

func (m *MockInteractionRepository) Get(ctx context.Context, articleID string) (*models.ArticleInteractions, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetError != nil {
		return nil, m.GetError
	}
	r, ok := m.Rows[articleID]
	if !ok {
		return nil, nil
	}
	c := *r
	return &c, nil
}

func (m *MockInteractionRepository) SetReactions(ctx context.Context, articleID string, counts models.ReactionCounts) (*models.ArticleInteractions, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WriteError != nil {
		return nil, m.WriteError
	}
	r := m.row(articleID)
	r.Reactions = counts.Clamped()
	c := *r
	return &c, nil
}

func (m *MockInteractionRepository) AdjustReaction(ctx context.Context, articleID, reaction string, delta int) (*models.ArticleInteractions, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WriteError != nil {
		return nil, m.WriteError
	}
	if !models.ValidReactions[reaction] {
		return nil, fmt.Errorf("unknown reaction %q", reaction)
	}
	r := m.row(articleID)
	r.Reactions.Set(reaction, r.Reactions.Get(reaction)+delta)
	c := *r
	return &c, nil
}

func (m *MockInteractionRepository) SetCommentCount(ctx context.Context, articleID string, count int) (*models.ArticleInteractions, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WriteError != nil {
		return nil, m.WriteError
	}
	r := m.row(articleID)
	r.CommentCount = count
	c := *r
	return &c, nil
}

// MockCommentRepository is a mock implementation of CommentRepository
type MockCommentRepository struct {
	mu          sync.Mutex
	Comments    map[string]*models.Comment
	InsertError error
	GetError    error
	DeleteError error
	CountError  error
	// BeforeDelete runs ahead of Delete without the lock held
	BeforeDelete func(id string)
}

func NewMockCommentRepository() *MockCommentRepository {
	return &MockCommentRepository{Comments: make(map[string]*models.Comment)}
}

func cloneComment(c *models.Comment) *models.Comment {
	out := *c
	out.LikedBy = append([]string{}, c.LikedBy...)
	if c.ParentID != nil {
		p := *c.ParentID
		out.ParentID = &p
	}
	return &out
}

func (m *MockCommentRepository) deleteByArticle(articleID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, c := range m.Comments {
		if c.ArticleID == articleID {
			delete(m.Comments, id)
		}
	}
}

func (m *MockCommentRepository) Create(ctx context.Context, comment *models.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.InsertError != nil {
		return m.InsertError
	}
	if _, ok := m.Comments[comment.ID]; ok {
		return uniqueViolation("comments_pkey")
	}
	m.Comments[comment.ID] = cloneComment(comment)
	return nil
}

func (m *MockCommentRepository) BatchInsert(ctx context.Context, comments []*models.Comment) (int, error) {
	for _, c := range comments {
		if err := m.Create(ctx, c); err != nil {
			return 0, err
		}
	}
	return len(comments), nil
}

func (m *MockCommentRepository) GetByID(ctx context.Context, id string) (*models.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetError != nil {
		return nil, m.GetError
	}
	c, ok := m.Comments[id]
	if !ok {
		return nil, nil
	}
	return cloneComment(c), nil
}

func (m *MockCommentRepository) ListByArticle(ctx context.Context, articleID string) ([]*models.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetError != nil {
		return nil, m.GetError
	}
	out := make([]*models.Comment, 0)
	for _, c := range m.Comments {
		if c.ArticleID == articleID {
			out = append(out, cloneComment(c))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MockCommentRepository) UpdateContent(ctx context.Context, id, content string, editedAt time.Time) (*models.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.Comments[id]
	if !ok {
		return nil, nil
	}
	c.Content = content
	c.Edited = true
	c.EditedAt = &editedAt
	return cloneComment(c), nil
}

func (m *MockCommentRepository) ToggleLike(ctx context.Context, id, userID string) (*models.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.Comments[id]
	if !ok {
		return nil, nil
	}
	if c.LikedByUser(userID) {
		kept := make([]string, 0, len(c.LikedBy))
		for _, u := range c.LikedBy {
			if u != userID {
				kept = append(kept, u)
			}
		}
		c.LikedBy = kept
		if c.Likes > 0 {
			c.Likes--
		}
	} else {
		c.LikedBy = append(c.LikedBy, userID)
		c.Likes++
	}
	return cloneComment(c), nil
}

func (m *MockCommentRepository) Delete(ctx context.Context, id string) (int64, error) {
	if m.BeforeDelete != nil {
		m.BeforeDelete(id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DeleteError != nil {
		return 0, m.DeleteError
	}
	var n int64
	for cid, c := range m.Comments {
		if cid == id || (c.ParentID != nil && *c.ParentID == id) {
			delete(m.Comments, cid)
			n++
		}
	}
	return n, nil
}

func (m *MockCommentRepository) CountByArticle(ctx context.Context, articleID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CountError != nil {
		return 0, m.CountError
	}
	n := 0
	for _, c := range m.Comments {
		if c.ArticleID == articleID {
			n++
		}
	}
	return n, nil
}

// MockRoleRepository is a mock implementation of RoleRepository
type MockRoleRepository struct {
	mu          sync.Mutex
	Roles       map[string]*models.UserRole
	GetError    error
	EnsureError error
	UpsertError error
	Inserts     int
}

func NewMockRoleRepository() *MockRoleRepository {
	return &MockRoleRepository{Roles: make(map[string]*models.UserRole)}
}

func (m *MockRoleRepository) Get(ctx context.Context, userID string) (*models.UserRole, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetError != nil {
		return nil, m.GetError
	}
	r, ok := m.Roles[userID]
	if !ok {
		return nil, nil
	}
	c := *r
	return &c, nil
}

func (m *MockRoleRepository) EnsureDefault(ctx context.Context, userID string, role models.Role) (*models.UserRole, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.EnsureError != nil {
		return nil, false, m.EnsureError
	}
	if r, ok := m.Roles[userID]; ok {
		c := *r
		return &c, false, nil
	}
	now := time.Now().UTC()
	r := &models.UserRole{UserID: userID, Role: role, CreatedBy: "system", CreatedAt: now, UpdatedAt: now}
	m.Roles[userID] = r
	m.Inserts++
	c := *r
	return &c, true, nil
}

func (m *MockRoleRepository) Upsert(ctx context.Context, userID string, role models.Role, actorID string) (*models.UserRole, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpsertError != nil {
		return nil, m.UpsertError
	}
	now := time.Now().UTC()
	r, ok := m.Roles[userID]
	if !ok {
		r = &models.UserRole{UserID: userID, CreatedBy: actorID, CreatedAt: now}
		m.Roles[userID] = r
		m.Inserts++
	}
	r.Role = role
	r.UpdatedAt = now
	c := *r
	return &c, nil
}

func (m *MockRoleRepository) List(ctx context.Context) ([]*models.UserRole, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetError != nil {
		return nil, m.GetError
	}
	out := make([]*models.UserRole, 0, len(m.Roles))
	for _, r := range m.Roles {
		c := *r
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (m *MockRoleRepository) Delete(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Roles, userID)
	return nil
}
