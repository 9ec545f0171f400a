package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/portfolio-blog-api/internal/auth"
	"github.com/portfolio-blog-api/internal/config"
	"github.com/portfolio-blog-api/internal/rbac"
	"github.com/portfolio-blog-api/internal/service"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// HealthChecker reports whether a backing dependency is reachable
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// NewRouter creates and configures the Gin router. health may be nil.
func NewRouter(services *service.Services, cfg *config.Config, health HealthChecker, log zerolog.Logger) *gin.Engine {
	// Set Gin mode
	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	dev := cfg.IsDevelopment()
	verifier := auth.NewSessionVerifier(cfg.Auth.JWTSecret)
	g := &guard{roles: services.Roles, log: log.With().Str("component", "guard").Logger(), dev: dev}

	// Middleware
	router.Use(recoveryMiddleware(log))
	router.Use(loggingMiddleware(log))
	router.Use(metricsMiddleware())
	router.Use(corsMiddleware(cfg.Server.AllowedOrigins))

	// Handlers
	articleHandler := NewArticleHandler(services, log, dev)
	interactionHandler := NewInteractionHandler(services, g, log, dev)
	commentHandler := NewCommentHandler(services, g, log, dev)
	userHandler := NewUserHandler(services, g, log, dev)
	exportHandler := NewExportHandler(services, log, dev)
	imageHandler := NewImageHandler(services, cfg.Storage.MaxImageSize, log, dev)

	// Health check
	router.GET("/health", healthCheck(health))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("")
	api.Use(sessionMiddleware(verifier, log))
	{
		// Public reads
		api.GET("/articles", articleHandler.ListArticles)
		api.GET("/articles/:slug", articleHandler.GetPublicArticle)
		api.GET("/articles/:slug/reactions", interactionHandler.GetReactions)
		api.GET("/articles/:slug/comments", commentHandler.ListComments)
		api.GET("/comments/:id", commentHandler.GetComment)

		// Any authenticated user
		authed := api.Group("")
		authed.Use(requireSession())
		{
			authed.GET("/me", userHandler.Me)

			authed.POST("/articles/:slug/reactions", interactionHandler.UpdateReactions)
			authed.PUT("/articles/:slug/reactions", interactionHandler.UpdateReactions)

			authed.POST("/articles/:slug/comments", commentHandler.AddComment)
			authed.PUT("/comments/:id", commentHandler.UpdateComment)
			authed.POST("/comments/:id/like", commentHandler.ToggleLike)
			authed.DELETE("/comments/:id", commentHandler.DeleteComment)
		}

		// Admin endpoints
		admin := api.Group("/admin")
		admin.Use(requireSession())
		{
			articles := admin.Group("/articles")
			{
				articles.GET("", g.require(rbac.Require(rbac.ViewArticles)), articleHandler.ListArticles)
				articles.POST("", g.require(rbac.Require(rbac.CreateArticles)), articleHandler.CreateArticle)
				articles.GET("/export", g.require(rbac.Require(rbac.ViewAnalytics)), exportHandler.StreamArticles)
				articles.GET("/:slug", g.require(rbac.Require(rbac.ViewArticles)), articleHandler.GetArticle)
				articles.PUT("/:slug", g.require(rbac.Require(rbac.EditArticles)), articleHandler.UpdateArticle)
				articles.DELETE("/:slug", g.require(rbac.Require(rbac.DeleteArticles)), articleHandler.DeleteArticle)
				articles.POST("/:slug/recount", g.require(rbac.Require(rbac.EditArticles)), interactionHandler.RecountComments)
			}

			admin.POST("/images", g.require(rbac.Require(rbac.UploadImages)), imageHandler.UploadImage)

			users := admin.Group("/users")
			{
				users.GET("", g.require(rbac.Require(rbac.ViewUsers)), userHandler.ListUsers)
				users.POST("", g.require(rbac.Require(rbac.CreateUsers)), userHandler.CreateUser)
				users.PUT("/role", g.require(rbac.Require(rbac.AssignRoles)), userHandler.UpdateRole)
				users.DELETE("/:userId", g.require(rbac.Require(rbac.DeleteUsers)), userHandler.DeleteUser)
			}
		}
	}

	return router
}

// healthCheck returns the health status
func healthCheck(health HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		body := gin.H{
			"status":    "healthy",
			"timestamp": time.Now().Format(time.RFC3339),
			"service":   "portfolio-blog-api",
		}
		if health == nil {
			c.JSON(http.StatusOK, body)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := health.HealthCheck(ctx); err != nil {
			body["status"] = "unhealthy"
			body["database"] = "unreachable"
			c.JSON(http.StatusServiceUnavailable, body)
			return
		}
		body["database"] = "ok"
		c.JSON(http.StatusOK, body)
	}
}
