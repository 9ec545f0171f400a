package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/portfolio-blog-api/internal/models"
	"github.com/portfolio-blog-api/internal/rbac"
	"github.com/portfolio-blog-api/internal/service"
	"github.com/rs/zerolog"
)

// CommentHandler handles comment endpoints
type CommentHandler struct {
	services *service.Services
	guard    *guard
	log      zerolog.Logger
	dev      bool
}

// NewCommentHandler creates a new CommentHandler
func NewCommentHandler(services *service.Services, g *guard, log zerolog.Logger, dev bool) *CommentHandler {
	return &CommentHandler{
		services: services,
		guard:    g,
		log:      log.With().Str("handler", "comment").Logger(),
		dev:      dev,
	}
}

// ListComments handles GET /articles/:slug/comments?sort=...&recent=true
func (h *CommentHandler) ListComments(c *gin.Context) {
	opts := service.ListCommentsOptions{Sort: c.Query("sort")}
	if raw := c.Query("recent"); raw != "" {
		recent, err := strconv.ParseBool(raw)
		if err != nil {
			respondError(c, h.log, h.dev, badRequest("recent must be true or false"))
			return
		}
		opts.RecentOnly = recent
	}

	list, err := h.services.Comments.ListComments(c.Request.Context(), c.Param("slug"), opts)
	if err != nil {
		respondError(c, h.log, h.dev, err)
		return
	}
	respondSuccess(c, http.StatusOK, list)
}

// AddComment handles POST /articles/:slug/comments. The author is the session user;
// author fields in the body may only repeat it.
func (h *CommentHandler) AddComment(c *gin.Context) {
	var req models.CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.log, h.dev, badRequest("invalid request body"))
		return
	}

	s := sessionFrom(c)
	if req.UserID != "" && req.UserID != s.UserID {
		respondError(c, h.log, h.dev, models.NewForbiddenError("cannot comment on behalf of another user"))
		return
	}
	req.UserID = s.UserID
	if strings.TrimSpace(req.UserName) == "" {
		req.UserName = s.Name
	}
	if req.UserAvatar == "" {
		req.UserAvatar = s.AvatarURL
	}

	comment, err := h.services.Comments.AddComment(c.Request.Context(), c.Param("slug"), &req)
	if err != nil {
		respondError(c, h.log, h.dev, err)
		return
	}
	respondSuccess(c, http.StatusCreated, comment)
}

// GetComment handles GET /comments/:id
func (h *CommentHandler) GetComment(c *gin.Context) {
	comment, err := h.services.Comments.GetComment(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, h.dev, err)
		return
	}
	respondSuccess(c, http.StatusOK, comment)
}

// UpdateComment handles PUT /comments/:id: either an edit by the author or a like
// toggle by the session user. Likes and likedBy sent by the client are not trusted.
func (h *CommentHandler) UpdateComment(c *gin.Context) {
	var req models.UpdateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.log, h.dev, badRequest("invalid request body"))
		return
	}

	like := (req.Like != nil && *req.Like) || req.Likes != nil || req.LikedBy != nil
	switch {
	case req.Content != nil && like:
		respondError(c, h.log, h.dev, badRequest("send either content or a like, not both"))
	case req.Content != nil:
		h.edit(c, *req.Content)
	case like:
		h.ToggleLike(c)
	default:
		respondError(c, h.log, h.dev, badRequest("content or like is required"))
	}
}

func (h *CommentHandler) edit(c *gin.Context, content string) {
	ctx := c.Request.Context()
	id := c.Param("id")

	comment, err := h.services.Comments.GetComment(ctx, id)
	if err != nil {
		respondError(c, h.log, h.dev, err)
		return
	}
	if comment.UserID != sessionFrom(c).UserID {
		respondError(c, h.log, h.dev, models.NewForbiddenError("only the author can edit this comment"))
		return
	}

	updated, err := h.services.Comments.EditComment(ctx, id, content)
	if err != nil {
		respondError(c, h.log, h.dev, err)
		return
	}
	respondSuccess(c, http.StatusOK, updated)
}

// ToggleLike handles POST /comments/:id/like
func (h *CommentHandler) ToggleLike(c *gin.Context) {
	comment, err := h.services.Comments.ToggleLike(c.Request.Context(), c.Param("id"), sessionFrom(c).UserID)
	if err != nil {
		respondError(c, h.log, h.dev, err)
		return
	}
	respondSuccess(c, http.StatusOK, comment)
}

// DeleteComment handles DELETE /comments/:id. Allowed for the author and for
// roles that moderate comments.
func (h *CommentHandler) DeleteComment(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	comment, err := h.services.Comments.GetComment(ctx, id)
	if err != nil {
		respondError(c, h.log, h.dev, err)
		return
	}

	if comment.UserID != sessionFrom(c).UserID {
		ok, err := h.guard.allowed(c, rbac.ModerateComments)
		if err != nil {
			respondError(c, h.log, h.dev, err)
			return
		}
		if !ok {
			respondError(c, h.log, h.dev, models.NewForbiddenError("only the author or a moderator can delete this comment"))
			return
		}
	}

	if err := h.services.Comments.DeleteComment(ctx, id); err != nil {
		respondError(c, h.log, h.dev, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
