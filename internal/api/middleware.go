package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/portfolio-blog-api/internal/auth"
	"github.com/portfolio-blog-api/internal/metrics"
	"github.com/portfolio-blog-api/internal/models"
	"github.com/portfolio-blog-api/internal/rbac"
	"github.com/portfolio-blog-api/internal/service"
	"github.com/rs/zerolog"
)

// roleKey caches the resolved role on the gin context
const roleKey = "role"

// recoveryMiddleware handles panics
func recoveryMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Error().
					Interface("error", err).
					Str("path", c.Request.URL.Path).
					Msg("Panic recovered")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"success": false,
					"error":   "Internal server error",
				})
			}
		}()
		c.Next()
	}
}

// loggingMiddleware logs requests
func loggingMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()

		event := log.Info()
		if statusCode >= 400 {
			event = log.Warn()
		}
		if statusCode >= 500 {
			event = log.Error()
		}

		if s := sessionFrom(c); s != nil {
			event = event.Str("user_id", s.UserID)
		}
		event.
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", statusCode).
			Dur("duration", duration).
			Str("client_ip", c.ClientIP()).
			Msg("Request completed")
	}
}

// metricsMiddleware records request counts and latency by route template
func metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		metrics.ObserveRequest(c.Request.Method, c.FullPath(), c.Writer.Status(), start)
	}
}

// corsMiddleware allows the configured front-end origins
func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}

// sessionMiddleware attaches the session carried by the bearer token, if any.
// A present but invalid token is rejected; a missing one is not.
func sessionMiddleware(verifier *auth.SessionVerifier, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}

		session, err := verifier.FromAuthorizationHeader(header)
		if err != nil {
			log.Debug().Err(err).Str("path", c.Request.URL.Path).Msg("Rejected bearer token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   auth.ErrInvalidToken.Error(),
			})
			return
		}

		c.Request = c.Request.WithContext(auth.WithSession(c.Request.Context(), session))
		c.Next()
	}
}

// requireSession rejects requests without a session
func requireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if sessionFrom(c) == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "authentication required",
			})
			return
		}
		c.Next()
	}
}

// sessionFrom returns the session attached to the request context by sessionMiddleware
func sessionFrom(c *gin.Context) *auth.Session {
	s, _ := auth.SessionFrom(c.Request.Context())
	return s
}

// guard turns rbac decisions into HTTP responses
type guard struct {
	roles service.RoleService
	log   zerolog.Logger
	dev   bool
}

// roleOf resolves and caches the role of the session user for this request
func (g *guard) roleOf(c *gin.Context) (models.Role, error) {
	if v, ok := c.Get(roleKey); ok {
		return v.(models.Role), nil
	}
	s := sessionFrom(c)
	if s == nil {
		return "", models.NewUnauthorizedError("authentication required")
	}
	role, err := g.roles.Resolve(c.Request.Context(), s.UserID)
	if err != nil {
		return "", err
	}
	c.Set(roleKey, role)
	return role, nil
}

// state builds the guard input for the current request
func (g *guard) state(c *gin.Context) (rbac.RoleState, error) {
	if sessionFrom(c) == nil {
		return rbac.RoleState{}, nil
	}
	role, err := g.roleOf(c)
	if err != nil {
		return rbac.RoleState{}, err
	}
	return rbac.RoleState{Authenticated: true, Role: role}, nil
}

// require aborts unless the caller satisfies req
func (g *guard) require(req rbac.Requirement) gin.HandlerFunc {
	return func(c *gin.Context) {
		state, err := g.state(c)
		if err != nil {
			respondError(c, g.log, g.dev, err)
			return
		}

		decision := rbac.Evaluate(state, req)
		metrics.AccessDecisionsTotal.WithLabelValues(decision.String()).Inc()

		switch decision {
		case rbac.Allow:
			c.Next()
		case rbac.Unauthenticated:
			respondError(c, g.log, g.dev, models.NewUnauthorizedError("authentication required"))
		case rbac.Forbidden:
			g.log.Warn().
				Str("role", string(state.Role)).
				Str("path", c.FullPath()).
				Msg("Access denied")
			respondError(c, g.log, g.dev, models.NewForbiddenError("insufficient permissions"))
		default:
			respondError(c, g.log, g.dev, models.NewUnavailableError("role resolution pending"))
		}
	}
}

// allowed reports whether the session user holds permission, for checks that
// also depend on the resource such as comment authorship
func (g *guard) allowed(c *gin.Context, permission rbac.Permission) (bool, error) {
	role, err := g.roleOf(c)
	if err != nil {
		return false, err
	}
	return rbac.HasPermission(role, permission), nil
}
