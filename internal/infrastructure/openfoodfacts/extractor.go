package openfoodfacts

import (
	"bytes"
	"context"
	"fmt"

	"github.com/PuerkitoBio/goquery"
	"github.com/foodfacts/scraper/internal/domain"
	"github.com/rs/zerolog"
)

// notFoundMarkers appear (in any case) on pages for unknown barcodes
var notFoundMarkers = [][]byte{
	[]byte("product not found"),
	[]byte("we couldn't find this product"),
}

// Extractor fetches product pages and parses them into records
type Extractor struct {
	fetcher domain.Fetcher
	baseURL string
	logger  zerolog.Logger
}

// NewExtractor creates a new product page extractor
func NewExtractor(fetcher domain.Fetcher, baseURL string, logger zerolog.Logger) *Extractor {
	return &Extractor{
		fetcher: fetcher,
		baseURL: normalizeBaseURL(baseURL),
		logger:  logger.With().Str("component", "extractor").Logger(),
	}
}

// ProductURL returns the page scraped for barcode
func (e *Extractor) ProductURL(barcode string) string {
	return productURL(e.baseURL, barcode)
}

// Extract fetches and parses the product page for barcode.
// A page stating the product does not exist yields (nil, nil). Fetch and
// parse failures are returned so the caller can skip this barcode.
func (e *Extractor) Extract(ctx context.Context, barcode string) (*domain.ProductRecord, error) {
	if !IsBarcode(barcode) {
		return nil, fmt.Errorf("%w: invalid barcode %q", domain.ErrInvalidRequest, barcode)
	}

	url := e.ProductURL(barcode)
	page, err := e.fetcher.Fetch(ctx, url)
	if err != nil {
		e.logger.Warn().Err(err).Str("barcode", barcode).Msg("product page fetch failed")
		return nil, err
	}

	if isNotFoundPage(page.Body) {
		e.logger.Info().Str("barcode", barcode).Msg("product page reports not found")
		return nil, nil
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		e.logger.Warn().Err(err).Str("barcode", barcode).Msg("product page parse failed")
		return nil, fmt.Errorf("parse product page %s: %w", url, err)
	}

	return ParseProduct(doc, barcode, url), nil
}

// isNotFoundPage reports whether body contains a not-found marker
func isNotFoundPage(body []byte) bool {
	lower := bytes.ToLower(body)
	for _, marker := range notFoundMarkers {
		if bytes.Contains(lower, marker) {
			return true
		}
	}
	return false
}
