package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/portfolio-blog-api/internal/models"
	"github.com/rs/zerolog"
)

// statusFor maps an error code onto an HTTP status
func statusFor(code string) int {
	switch code {
	case models.CodeBadInput:
		return http.StatusBadRequest
	case models.CodeNotFound:
		return http.StatusNotFound
	case models.CodeConflict:
		return http.StatusConflict
	case models.CodeUnauthorized:
		return http.StatusUnauthorized
	case models.CodeForbidden:
		return http.StatusForbidden
	case models.CodeUnavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// respondError writes {success:false, error}. The wrapped cause is only exposed as
// details in development.
func respondError(c *gin.Context, log zerolog.Logger, dev bool, err error) {
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		appErr = models.NewStoreError(err)
	}

	status := statusFor(appErr.Code)
	if status >= http.StatusInternalServerError {
		log.Error().
			Err(err).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Msg("Request failed")
	}

	body := gin.H{"success": false, "error": appErr.Message}
	if dev && appErr.Err != nil {
		body["details"] = appErr.Err.Error()
	}
	c.AbortWithStatusJSON(status, body)
}

func respondSuccess(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

func badRequest(message string) error {
	return models.NewBadInputError(message)
}
