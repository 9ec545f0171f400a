package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/portfolio-blog-api/internal/service"
	"github.com/rs/zerolog"
)

// multipart framing allowance on top of the image itself
const multipartOverhead = 1 << 20

// ImageHandler handles featured image uploads
type ImageHandler struct {
	services *service.Services
	maxSize  int64
	log      zerolog.Logger
	dev      bool
}

// NewImageHandler creates a new ImageHandler
func NewImageHandler(services *service.Services, maxSize int64, log zerolog.Logger, dev bool) *ImageHandler {
	return &ImageHandler{
		services: services,
		maxSize:  maxSize,
		log:      log.With().Str("handler", "image").Logger(),
		dev:      dev,
	}
}

// UploadImage handles POST /admin/images with a multipart "file" field
func (h *ImageHandler) UploadImage(c *gin.Context) {
	if h.maxSize > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxSize+multipartOverhead)
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(c, h.log, h.dev, badRequest(fmt.Sprintf("image exceeds maximum size of %d bytes", h.maxSize)))
			return
		}
		respondError(c, h.log, h.dev, badRequest("file upload is required"))
		return
	}
	defer file.Close()

	if h.maxSize > 0 && header.Size > h.maxSize {
		respondError(c, h.log, h.dev, badRequest(fmt.Sprintf("image exceeds maximum size of %d bytes", h.maxSize)))
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		h.log.Error().Err(err).Str("file", header.Filename).Msg("Failed to read upload")
		respondError(c, h.log, h.dev, badRequest("failed to read uploaded file"))
		return
	}

	img, err := h.services.Images.Upload(c.Request.Context(), header.Filename, data)
	if err != nil {
		respondError(c, h.log, h.dev, err)
		return
	}
	respondSuccess(c, http.StatusCreated, img)
}
