package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/portfolio-blog-api/internal/models"
	"github.com/portfolio-blog-api/internal/service"
	"github.com/rs/zerolog"
)

// ArticleHandler handles public and admin article endpoints
type ArticleHandler struct {
	services *service.Services
	log      zerolog.Logger
	dev      bool
}

// NewArticleHandler creates a new ArticleHandler
func NewArticleHandler(services *service.Services, log zerolog.Logger, dev bool) *ArticleHandler {
	return &ArticleHandler{
		services: services,
		log:      log.With().Str("handler", "article").Logger(),
		dev:      dev,
	}
}

// ListArticles handles GET /articles and GET /admin/articles
func (h *ArticleHandler) ListArticles(c *gin.Context) {
	articles, err := h.services.Articles.List(c.Request.Context())
	if err != nil {
		respondError(c, h.log, h.dev, err)
		return
	}
	c.JSON(http.StatusOK, articles)
}

// GetPublicArticle handles GET /articles/:slug
func (h *ArticleHandler) GetPublicArticle(c *gin.Context) {
	article, err := h.services.Articles.GetWithInteractions(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondError(c, h.log, h.dev, err)
		return
	}
	c.JSON(http.StatusOK, article)
}

// GetArticle handles GET /admin/articles/:slug
func (h *ArticleHandler) GetArticle(c *gin.Context) {
	article, err := h.services.Articles.Get(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondError(c, h.log, h.dev, err)
		return
	}
	c.JSON(http.StatusOK, article)
}

// CreateArticle handles POST /admin/articles
func (h *ArticleHandler) CreateArticle(c *gin.Context) {
	var in models.ArticleInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondError(c, h.log, h.dev, badRequest("invalid request body"))
		return
	}

	article, err := h.services.Articles.Create(c.Request.Context(), &in)
	if err != nil {
		respondError(c, h.log, h.dev, err)
		return
	}
	c.JSON(http.StatusCreated, article)
}

// UpdateArticle handles PUT /admin/articles/:slug
func (h *ArticleHandler) UpdateArticle(c *gin.Context) {
	var in models.ArticleInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondError(c, h.log, h.dev, badRequest("invalid request body"))
		return
	}

	article, err := h.services.Articles.Update(c.Request.Context(), c.Param("slug"), &in)
	if err != nil {
		respondError(c, h.log, h.dev, err)
		return
	}
	c.JSON(http.StatusOK, article)
}

// DeleteArticle handles DELETE /admin/articles/:slug
func (h *ArticleHandler) DeleteArticle(c *gin.Context) {
	if err := h.services.Articles.Delete(c.Request.Context(), c.Param("slug")); err != nil {
		respondError(c, h.log, h.dev, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
