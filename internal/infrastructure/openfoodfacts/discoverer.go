package openfoodfacts

import (
	"bytes"
	"context"

	"github.com/PuerkitoBio/goquery"
	"github.com/foodfacts/scraper/internal/domain"
	"github.com/rs/zerolog"
)

// DiscoveryState accumulates unique barcodes in first-seen order.
// It belongs to a single Discover call and must not be shared.
type DiscoveryState struct {
	seen  map[string]struct{}
	found []string
	limit int
}

// NewDiscoveryState creates an accumulator; limit <= 0 means unbounded
func NewDiscoveryState(limit int) *DiscoveryState {
	return &DiscoveryState{
		seen:  make(map[string]struct{}),
		limit: limit,
	}
}

// Add records a barcode and reports whether it was new. Nothing is added
// once the limit is reached.
func (s *DiscoveryState) Add(barcode string) bool {
	if s.Full() {
		return false
	}
	if _, ok := s.seen[barcode]; ok {
		return false
	}
	s.seen[barcode] = struct{}{}
	s.found = append(s.found, barcode)
	return true
}

// Full reports whether the limit has been reached
func (s *DiscoveryState) Full() bool {
	return s.limit > 0 && len(s.found) >= s.limit
}

// Len returns the number of barcodes found so far
func (s *DiscoveryState) Len() int {
	return len(s.found)
}

// Barcodes returns the barcodes found so far, in order
func (s *DiscoveryState) Barcodes() []string {
	out := make([]string, len(s.found))
	copy(out, s.found)
	return out
}

// Discoverer finds product barcodes on category listing and search pages
type Discoverer struct {
	fetcher domain.Fetcher
	baseURL string
	logger  zerolog.Logger
}

// NewDiscoverer creates a new barcode discoverer
func NewDiscoverer(fetcher domain.Fetcher, baseURL string, logger zerolog.Logger) *Discoverer {
	return &Discoverer{
		fetcher: fetcher,
		baseURL: normalizeBaseURL(baseURL),
		logger:  logger.With().Str("component", "discoverer").Logger(),
	}
}

// Discover walks every category for pages 1..maxPages and returns the unique
// barcodes found, in encounter order, truncated to limit (limit <= 0 is
// unbounded). For each page the candidate URLs are tried in order until one
// yields a new barcode. Unreachable candidates count as empty.
func (d *Discoverer) Discover(ctx context.Context, categories []string, maxPages, limit int) []string {
	state := NewDiscoveryState(limit)

	for _, raw := range categories {
		category := ParseCategory(raw)
		if category.Slug == "" {
			d.logger.Warn().Str("category", raw).Msg("skipping empty category")
			continue
		}

		for page := 1; page <= maxPages; page++ {
			before := state.Len()

			for _, candidate := range candidateURLs(d.baseURL, category, page) {
				if ctx.Err() != nil {
					d.logger.Warn().Err(ctx.Err()).Msg("discovery interrupted")
					return state.Barcodes()
				}

				d.logger.Info().Str("url", candidate).Msg("discovery candidate")
				added := d.scanCandidate(ctx, candidate, state)

				if state.Full() {
					d.logger.Info().Int("limit", limit).Msg("discovery limit reached")
					return state.Barcodes()
				}
				if added > 0 {
					break
				}
			}

			d.logger.Info().
				Str("category", category.Slug).
				Int("page", page).
				Int("added", state.Len()-before).
				Int("total", state.Len()).
				Msg("category page scanned")
		}
	}

	return state.Barcodes()
}

// scanCandidate fetches one listing page and adds the barcodes it links to.
// Returns the number of new barcodes; failures are logged and count as zero.
func (d *Discoverer) scanCandidate(ctx context.Context, url string, state *DiscoveryState) int {
	page, err := d.fetcher.Fetch(ctx, url)
	if err != nil {
		d.logger.Warn().Err(err).Str("url", url).Msg("discovery candidate failed")
		return 0
	}

	added := 0
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		d.logger.Warn().Err(err).Str("url", url).Msg("unparseable listing page")
	} else {
		added = collectAnchorBarcodes(doc, state)
	}

	// Listing markup varies; fall back to scanning the raw body
	if added == 0 {
		added = collectRawBarcodes(page.Body, state)
	}
	return added
}

// collectAnchorBarcodes adds barcodes from anchors pointing at product pages
func collectAnchorBarcodes(doc *goquery.Document, state *DiscoveryState) int {
	added := 0
	doc.Find(`a[href*="/product/"]`).EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		if m := productPathPattern.FindStringSubmatch(href); m != nil && state.Add(m[1]) {
			added++
		}
		return !state.Full()
	})
	return added
}

// collectRawBarcodes adds barcodes from every product path in body
func collectRawBarcodes(body []byte, state *DiscoveryState) int {
	added := 0
	for _, m := range productPathPattern.FindAllSubmatch(body, -1) {
		if state.Full() {
			break
		}
		if state.Add(string(m[1])) {
			added++
		}
	}
	return added
}
