package service

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/portfolio-blog-api/internal/metrics"
	"github.com/portfolio-blog-api/internal/models"
	"github.com/rs/zerolog"
)

// imageService is the concrete implementation of ImageService
type imageService struct {
	store   ImageStore
	maxSize int64
	now     func() time.Time
	log     zerolog.Logger
}

func newImageService(store ImageStore, maxSize int64, log zerolog.Logger) *imageService {
	return &imageService{
		store:   store,
		maxSize: maxSize,
		now:     time.Now,
		log:     log.With().Str("service", "image").Logger(),
	}
}

// Upload sniffs the image type from its bytes and stores it under a fresh key
func (s *imageService) Upload(ctx context.Context, filename string, data []byte) (*models.UploadedImage, error) {
	if s.store == nil {
		return nil, models.NewUnavailableError("image storage not configured")
	}
	if len(data) == 0 {
		return nil, models.NewBadInputError("image file is empty")
	}
	if s.maxSize > 0 && int64(len(data)) > s.maxSize {
		return nil, models.NewBadInputError(fmt.Sprintf("image exceeds maximum size of %d bytes", s.maxSize))
	}

	contentType := http.DetectContentType(data)
	ext, ok := models.AllowedImageTypes[contentType]
	if !ok {
		return nil, models.NewBadInputError("unsupported image type, must be jpeg, png, gif or webp")
	}

	key := fmt.Sprintf("articles/%s/%s%s", s.now().UTC().Format("2006/01"), uuid.New().String(), ext)
	url, err := s.store.Put(ctx, key, contentType, data)
	if err != nil {
		s.log.Error().Err(err).Str("key", key).Msg("Image upload failed")
		return nil, models.NewStoreError(err)
	}

	metrics.ImageUploadBytes.Observe(float64(len(data)))
	s.log.Info().
		Str("key", key).
		Str("original_name", path.Base(strings.ReplaceAll(filename, "\\", "/"))).
		Int("size", len(data)).
		Msg("Image uploaded")

	return &models.UploadedImage{
		URL:         url,
		Key:         key,
		ContentType: contentType,
		Size:        int64(len(data)),
	}, nil
}
