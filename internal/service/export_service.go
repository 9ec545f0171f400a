package service

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/portfolio-blog-api/internal/models"
	"github.com/portfolio-blog-api/internal/repository"
	"github.com/rs/zerolog"
)

// Export formats
const (
	FormatJSON   = "json"
	FormatNDJSON = "ndjson"
)

// exportService is the concrete implementation of ExportService
type exportService struct {
	repos *repository.Repositories
	log   zerolog.Logger
}

// newExportService creates a new ExportService
func newExportService(repos *repository.Repositories, log zerolog.Logger) *exportService {
	return &exportService{
		repos: repos,
		log:   log.With().Str("service", "export").Logger(),
	}
}

// StreamArticles streams every article with its interactions in the specified format
func (s *exportService) StreamArticles(ctx context.Context, w http.ResponseWriter, format string) error {
	switch format {
	case FormatNDJSON, FormatJSON:
	default:
		return models.NewBadInputError("unsupported format, must be json or ndjson")
	}

	s.log.Info().Str("format", format).Msg("Starting articles export")

	var count int
	var err error
	if format == FormatNDJSON {
		count, err = s.streamNDJSON(ctx, w)
	} else {
		count, err = s.streamJSON(ctx, w)
	}
	if err != nil {
		s.log.Error().Err(err).Int("count", count).Msg("Articles export failed")
		return models.NewStoreError(err)
	}

	s.log.Info().Int("count", count).Msg("Articles export completed")
	return nil
}

func (s *exportService) streamNDJSON(ctx context.Context, w http.ResponseWriter) (int, error) {
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Content-Disposition", "attachment; filename=articles.ndjson")

	flusher, _ := w.(http.Flusher)
	count := 0

	err := s.repos.Article.StreamAll(ctx, func(a *models.ArticleWithInteractions) error {
		data, err := json.Marshal(a)
		if err != nil {
			return err
		}
		if _, err := w.Write(append(data, '\n')); err != nil {
			return err
		}
		count++

		// Flush every 100 records for streaming
		if count%100 == 0 && flusher != nil {
			flusher.Flush()
		}
		return nil
	})
	return count, err
}

func (s *exportService) streamJSON(ctx context.Context, w http.ResponseWriter) (int, error) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", "attachment; filename=articles.json")

	w.Write([]byte("["))
	count := 0

	err := s.repos.Article.StreamAll(ctx, func(a *models.ArticleWithInteractions) error {
		if count > 0 {
			w.Write([]byte(","))
		}
		data, err := json.Marshal(a)
		if err != nil {
			return err
		}
		w.Write(data)
		count++
		return nil
	})

	w.Write([]byte("]"))
	return count, err
}

// Count returns the number of articles an export would contain
func (s *exportService) Count(ctx context.Context) (int, error) {
	n, err := s.repos.Article.Count(ctx)
	if err != nil {
		return 0, models.NewStoreError(err)
	}
	return n, nil
}
