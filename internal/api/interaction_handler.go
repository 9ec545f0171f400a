package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/portfolio-blog-api/internal/models"
	"github.com/portfolio-blog-api/internal/rbac"
	"github.com/portfolio-blog-api/internal/service"
	"github.com/portfolio-blog-api/internal/validation"
	"github.com/rs/zerolog"
)

// InteractionHandler handles reaction endpoints
type InteractionHandler struct {
	services  *service.Services
	guard     *guard
	validator *validation.Validator
	log       zerolog.Logger
	dev       bool
}

// NewInteractionHandler creates a new InteractionHandler
func NewInteractionHandler(services *service.Services, g *guard, log zerolog.Logger, dev bool) *InteractionHandler {
	return &InteractionHandler{
		services:  services,
		guard:     g,
		validator: validation.NewValidator(),
		log:       log.With().Str("handler", "interaction").Logger(),
		dev:       dev,
	}
}

// GetReactions handles GET /articles/:slug/reactions
func (h *InteractionHandler) GetReactions(c *gin.Context) {
	i, err := h.services.Interactions.GetReactions(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondError(c, h.log, h.dev, err)
		return
	}
	c.JSON(http.StatusOK, i)
}

// UpdateReactions handles POST and PUT /articles/:slug/reactions.
// The body is either {reactions} (full replace, edit_articles) or {reactionType, action}.
func (h *InteractionHandler) UpdateReactions(c *gin.Context) {
	var req models.ReactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.log, h.dev, badRequest("invalid request body"))
		return
	}

	ctx := c.Request.Context()
	slug := c.Param("slug")

	switch {
	case req.Reactions != nil && req.ReactionType != "":
		respondError(c, h.log, h.dev, badRequest("send either reactions or reactionType, not both"))

	case req.Reactions != nil:
		ok, err := h.guard.allowed(c, rbac.EditArticles)
		if err != nil {
			respondError(c, h.log, h.dev, err)
			return
		}
		if !ok {
			respondError(c, h.log, h.dev, models.NewForbiddenError("insufficient permissions"))
			return
		}
		i, err := h.services.Interactions.SetReactions(ctx, slug, req.Reactions)
		if err != nil {
			respondError(c, h.log, h.dev, err)
			return
		}
		respondSuccess(c, http.StatusOK, i)

	case req.ReactionType != "":
		if err := validation.ToError(h.validator.ValidateReactionType(req.ReactionType, req.Action)); err != nil {
			respondError(c, h.log, h.dev, err)
			return
		}
		var (
			i   *models.ArticleInteractions
			err error
		)
		if req.Action == models.ReactionActionRemove {
			i, err = h.services.Interactions.DecrementReaction(ctx, slug, req.ReactionType)
		} else {
			i, err = h.services.Interactions.IncrementReaction(ctx, slug, req.ReactionType)
		}
		if err != nil {
			respondError(c, h.log, h.dev, err)
			return
		}
		respondSuccess(c, http.StatusOK, i)

	default:
		respondError(c, h.log, h.dev, badRequest("reactions or reactionType is required"))
	}
}

// RecountComments handles POST /admin/articles/:slug/recount
func (h *InteractionHandler) RecountComments(c *gin.Context) {
	i, err := h.services.Interactions.RecountComments(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondError(c, h.log, h.dev, err)
		return
	}
	respondSuccess(c, http.StatusOK, i)
}
