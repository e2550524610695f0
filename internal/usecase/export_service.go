package usecase

import (
	"context"
	"fmt"

	"github.com/foodfacts/scraper/internal/domain"
	"github.com/rs/zerolog"
)

// ExportService dumps the stored catalog through an Exporter
type ExportService struct {
	repo     domain.ProductRepository
	exporter domain.Exporter
	logger   zerolog.Logger
}

// NewExportService creates a new export service with dependencies
func NewExportService(repo domain.ProductRepository, exporter domain.Exporter, logger zerolog.Logger) *ExportService {
	return &ExportService{
		repo:     repo,
		exporter: exporter,
		logger:   logger.With().Str("component", "export").Logger(),
	}
}

// Export writes every stored record. An empty store returns
// domain.ErrNoRecords and writes nothing.
func (s *ExportService) Export(ctx context.Context) (*domain.ExportResult, error) {
	records, err := s.repo.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}
	if len(records) == 0 {
		s.logger.Warn().Msg("store is empty, nothing to export")
		return nil, domain.ErrNoRecords
	}

	result, err := s.exporter.Export(ctx, records)
	if err != nil {
		return nil, fmt.Errorf("export %d records: %w", len(records), err)
	}

	s.logger.Info().
		Str("spreadsheet", result.Spreadsheet).
		Strs("charts", result.Charts).
		Int("records", result.Records).
		Msg("export written")
	return result, nil
}
