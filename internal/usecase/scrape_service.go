package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/foodfacts/scraper/internal/domain"
	"github.com/foodfacts/scraper/internal/infrastructure/fetcher"
	"github.com/rs/zerolog"
)

// BarcodeDiscoverer finds product barcodes from category listings
type BarcodeDiscoverer interface {
	Discover(ctx context.Context, categories []string, maxPages, limit int) []string
}

// ProductExtractor turns a barcode into a product record.
// A nil record with a nil error means the product does not exist.
type ProductExtractor interface {
	Extract(ctx context.Context, barcode string) (*domain.ProductRecord, error)
}

// ScrapeServiceConfig holds configuration for the scrape pipeline
type ScrapeServiceConfig struct {
	ItemDelayMin time.Duration
	ItemDelayMax time.Duration
}

// ScrapeRequest selects what to scrape
type ScrapeRequest struct {
	Categories []string
	MaxPages   int
	Limit      int
}

// ScrapeSummary counts the outcome of one pipeline run
type ScrapeSummary struct {
	Discovered int           `json:"discovered"`
	Processed  int           `json:"processed"`
	Inserted   int           `json:"inserted"`
	NotFound   int           `json:"not_found"`
	Failed     int           `json:"failed"`
	Duration   time.Duration `json:"duration"`
}

// ScrapeService runs discovery, extraction, normalization and persistence
// one barcode at a time
type ScrapeService struct {
	discoverer BarcodeDiscoverer
	extractor  ProductExtractor
	repo       domain.ProductRepository
	config     ScrapeServiceConfig
	logger     zerolog.Logger
	sleep      func(ctx context.Context, d time.Duration) error
}

// NewScrapeService creates a new scrape pipeline with dependencies
func NewScrapeService(
	discoverer BarcodeDiscoverer,
	extractor ProductExtractor,
	repo domain.ProductRepository,
	config ScrapeServiceConfig,
	logger zerolog.Logger,
) *ScrapeService {
	if config.ItemDelayMax < config.ItemDelayMin {
		config.ItemDelayMax = config.ItemDelayMin
	}

	return &ScrapeService{
		discoverer: discoverer,
		extractor:  extractor,
		repo:       repo,
		config:     config,
		logger:     logger.With().Str("component", "scrape").Logger(),
		sleep:      fetcher.Sleep,
	}
}

// Run scrapes the requested categories into the repository.
// Per-barcode failures are logged and counted; the run only stops early
// when ctx is cancelled, in which case the partial summary is returned
// with the context error.
func (s *ScrapeService) Run(ctx context.Context, req ScrapeRequest) (*ScrapeSummary, error) {
	if len(req.Categories) == 0 {
		return nil, fmt.Errorf("%w: no categories to scrape", domain.ErrInvalidRequest)
	}
	if req.MaxPages < 1 {
		req.MaxPages = 1
	}

	started := time.Now()
	summary := &ScrapeSummary{}

	s.logger.Info().Strs("categories", req.Categories).Int("max_pages", req.MaxPages).
		Int("limit", req.Limit).Msg("discovering barcodes")
	barcodes := s.discoverer.Discover(ctx, req.Categories, req.MaxPages, req.Limit)
	summary.Discovered = len(barcodes)
	s.logger.Info().Int("count", len(barcodes)).Msg("barcodes discovered")

	total := len(barcodes)
	for i, code := range barcodes {
		if err := ctx.Err(); err != nil {
			summary.Duration = time.Since(started)
			return summary, err
		}

		s.processOne(ctx, code, i+1, total, summary)

		if err := s.sleep(ctx, fetcher.Jitter(s.config.ItemDelayMin, s.config.ItemDelayMax)); err != nil {
			summary.Duration = time.Since(started)
			return summary, err
		}
	}

	summary.Duration = time.Since(started)
	s.logger.Info().
		Int("discovered", summary.Discovered).
		Int("inserted", summary.Inserted).
		Int("not_found", summary.NotFound).
		Int("failed", summary.Failed).
		Dur("duration", summary.Duration).
		Msg("scrape finished")
	return summary, nil
}

// processOne extracts and stores a single barcode, updating summary
func (s *ScrapeService) processOne(ctx context.Context, code string, i, total int, summary *ScrapeSummary) {
	progress := fmt.Sprintf("%d/%d", i, total)
	summary.Processed++

	record, err := s.extractor.Extract(ctx, code)
	if err != nil {
		summary.Failed++
		var fetchErr *domain.FetchError
		if errors.As(err, &fetchErr) {
			s.logger.Error().Err(err).Str("progress", progress).Str("barcode", code).
				Int("attempts", fetchErr.Attempts).Msg("product fetch failed")
			return
		}
		s.logger.Error().Err(err).Str("progress", progress).Str("barcode", code).Msg("product extraction failed")
		return
	}

	record = Normalize(record)
	if record == nil {
		summary.NotFound++
		s.logger.Warn().Str("progress", progress).Str("barcode", code).Msg("no data, skipping")
		return
	}

	if err := s.repo.Upsert(ctx, record, domain.FieldBarcode); err != nil {
		summary.Failed++
		s.logger.Error().Err(err).Str("progress", progress).Str("barcode", code).Msg("upsert failed")
		return
	}

	summary.Inserted++
	s.logger.Info().Str("progress", progress).Str("barcode", code).Msg("ok")
}
