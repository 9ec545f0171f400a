package api

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/portfolio-blog-api/internal/service"
	"github.com/rs/zerolog"
)

// ExportHandler handles export endpoints
type ExportHandler struct {
	services *service.Services
	log      zerolog.Logger
	dev      bool
}

// NewExportHandler creates a new ExportHandler
func NewExportHandler(services *service.Services, log zerolog.Logger, dev bool) *ExportHandler {
	return &ExportHandler{
		services: services,
		log:      log.With().Str("handler", "export").Logger(),
		dev:      dev,
	}
}

// StreamArticles handles GET /admin/articles/export?format=...
// Streams every article with its interactions directly to the response
func (h *ExportHandler) StreamArticles(c *gin.Context) {
	format := c.Query("format")
	if format == "" {
		format = service.FormatNDJSON // Default to NDJSON for streaming
	}
	if format != service.FormatNDJSON && format != service.FormatJSON {
		respondError(c, h.log, h.dev, badRequest("format must be one of: ndjson, json"))
		return
	}

	total, err := h.services.Export.Count(c.Request.Context())
	if err != nil {
		respondError(c, h.log, h.dev, err)
		return
	}
	c.Header("X-Total-Count", strconv.Itoa(total))

	if err := h.services.Export.StreamArticles(c.Request.Context(), c.Writer, format); err != nil {
		h.log.Error().Err(err).Str("format", format).Msg("Export failed")
		// Can't return error JSON after streaming has started
		if !c.Writer.Written() {
			respondError(c, h.log, h.dev, err)
		}
		return
	}
}
