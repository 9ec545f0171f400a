package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/portfolio-blog-api/internal/models"
	"github.com/portfolio-blog-api/internal/rbac"
	"github.com/portfolio-blog-api/internal/service"
	"github.com/rs/zerolog"
)

// UserHandler handles the session and user administration endpoints
type UserHandler struct {
	services *service.Services
	guard    *guard
	log      zerolog.Logger
	dev      bool
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(services *service.Services, g *guard, log zerolog.Logger, dev bool) *UserHandler {
	return &UserHandler{
		services: services,
		guard:    g,
		log:      log.With().Str("handler", "user").Logger(),
		dev:      dev,
	}
}

// Me handles GET /me: the session user with its resolved role and permissions
func (h *UserHandler) Me(c *gin.Context) {
	role, err := h.guard.roleOf(c)
	if err != nil {
		respondError(c, h.log, h.dev, err)
		return
	}

	s := sessionFrom(c)
	respondSuccess(c, http.StatusOK, gin.H{
		"userId":      s.UserID,
		"email":       s.Email,
		"name":        s.Name,
		"avatarUrl":   s.AvatarURL,
		"role":        role,
		"permissions": rbac.PermissionsFor(role),
	})
}

// ListUsers handles GET /admin/users
func (h *UserHandler) ListUsers(c *gin.Context) {
	users, err := h.services.Users.ListUsers(c.Request.Context())
	if err != nil {
		respondError(c, h.log, h.dev, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// CreateUser handles POST /admin/users
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req models.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.log, h.dev, badRequest("invalid request body"))
		return
	}

	user, err := h.services.Users.CreateUser(c.Request.Context(), sessionFrom(c).UserID, &req)
	if err != nil {
		respondError(c, h.log, h.dev, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "User created successfully",
		"data":    user,
	})
}

// UpdateRole handles PUT /admin/users/role
func (h *UserHandler) UpdateRole(c *gin.Context) {
	var req models.UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.log, h.dev, badRequest("invalid request body"))
		return
	}

	ur, err := h.services.Users.UpdateRole(c.Request.Context(), sessionFrom(c).UserID, &req)
	if err != nil {
		respondError(c, h.log, h.dev, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Role updated successfully",
		"data":    ur,
	})
}

// DeleteUser handles DELETE /admin/users/:userId
func (h *UserHandler) DeleteUser(c *gin.Context) {
	if err := h.services.Users.DeleteUser(c.Request.Context(), sessionFrom(c).UserID, c.Param("userId")); err != nil {
		respondError(c, h.log, h.dev, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User deleted successfully"})
}
