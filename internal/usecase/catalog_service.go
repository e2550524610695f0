package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/foodfacts/scraper/internal/domain"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/rs/zerolog"
)

// Paging defaults for catalog listings
const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
	DefaultTopN      = 10

	SortByName   = "name"
	SortByRecent = "recent"
)

// CatalogServiceConfig holds configuration for the catalog service
type CatalogServiceConfig struct {
	CacheTTL time.Duration
}

// CatalogService answers read queries over the stored products
type CatalogService struct {
	repo     domain.ProductRepository
	cache    domain.CacheRepository
	cacheTTL time.Duration
	logger   zerolog.Logger
}

// NewCatalogService creates a new catalog service with dependencies
func NewCatalogService(
	repo domain.ProductRepository,
	cache domain.CacheRepository,
	config CatalogServiceConfig,
	logger zerolog.Logger,
) *CatalogService {
	cacheTTL := config.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 5 * time.Minute
	}

	return &CatalogService{
		repo:     repo,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger.With().Str("component", "catalog").Logger(),
	}
}

// ListProducts filters, sorts and paginates the catalog.
// q matches name, brand or category fuzzily; nutri is an exact grade;
// brand and category are case-insensitive substrings.
func (s *CatalogService) ListProducts(ctx context.Context, query domain.ProductQuery) (*domain.ProductPage, error) {
	query = normalizeQuery(query)

	records, err := s.repo.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	matched := make([]domain.ProductRecord, 0, len(records))
	for _, r := range records {
		if matchesQuery(&r, query) {
			matched = append(matched, r)
		}
	}

	if query.Sort == SortByName {
		sort.SliceStable(matched, func(i, j int) bool {
			return strings.ToLower(matched[i].Name) < strings.ToLower(matched[j].Name)
		})
	} else {
		// store order is insertion order, so reversing puts newest first
		for i, j := 0, len(matched)-1; i < j; i, j = i+1, j-1 {
			matched[i], matched[j] = matched[j], matched[i]
		}
	}

	start := (query.Page - 1) * query.Limit
	end := start + query.Limit
	if start > len(matched) {
		start = len(matched)
	}
	if end > len(matched) {
		end = len(matched)
	}

	return &domain.ProductPage{
		Data:  matched[start:end],
		Total: len(matched),
		Page:  query.Page,
		Limit: query.Limit,
	}, nil
}

// GetProduct returns one product by barcode
func (s *CatalogService) GetProduct(ctx context.Context, barcode string) (*domain.ProductRecord, error) {
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return nil, domain.ErrInvalidRequest
	}
	return s.repo.Get(ctx, barcode)
}

// NutriscoreStats counts products per grade. Products without a grade
// are counted under domain.UnknownGrade.
func (s *CatalogService) NutriscoreStats(ctx context.Context) ([]domain.GradeCount, error) {
	const cacheKey = "stats:nutriscore"

	var cached []domain.GradeCount
	if s.getFromCache(ctx, cacheKey, &cached) {
		return cached, nil
	}

	records, err := s.repo.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("nutriscore stats: %w", err)
	}

	counts := domain.CountGrades(records)
	for i := range counts {
		if counts[i].Nutriscore == "" {
			counts[i].Nutriscore = domain.UnknownGrade
		}
	}
	sort.Slice(counts, func(i, j int) bool {
		return counts[i].Nutriscore < counts[j].Nutriscore
	})

	s.setInCache(ctx, cacheKey, counts)
	return counts, nil
}

// CategoryStats returns the top category tokens by product count
func (s *CatalogService) CategoryStats(ctx context.Context, top int) ([]domain.TokenCount, error) {
	if top <= 0 {
		top = DefaultTopN
	}
	cacheKey := fmt.Sprintf("stats:categories:%d", top)

	var cached []domain.TokenCount
	if s.getFromCache(ctx, cacheKey, &cached) {
		return cached, nil
	}

	records, err := s.repo.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("category stats: %w", err)
	}

	counts := domain.TopCategories(records, top)
	s.setInCache(ctx, cacheKey, counts)
	return counts, nil
}

// InvalidateStats drops cached statistics, e.g. after a scrape
func (s *CatalogService) InvalidateStats(ctx context.Context) {
	keys := []string{"stats:nutriscore", fmt.Sprintf("stats:categories:%d", DefaultTopN)}
	for _, key := range keys {
		if err := s.cache.Delete(ctx, key); err != nil {
			s.logger.Debug().Err(err).Str("key", key).Msg("cache delete failed")
		}
	}
}

// getFromCache decodes a cached value into out. Values may come back as
// the original Go value (memory cache) or as JSON (redis).
func (s *CatalogService) getFromCache(ctx context.Context, key string, out interface{}) bool {
	value, err := s.cache.Get(ctx, key)
	if err != nil {
		return false
	}

	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		// round-trip through JSON so typed and untyped values decode alike
		raw, err = json.Marshal(v)
		if err != nil {
			return false
		}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		s.logger.Debug().Err(err).Str("key", key).Msg("discarding undecodable cache entry")
		return false
	}
	return true
}

// setInCache stores a value; failures only cost a recomputation
func (s *CatalogService) setInCache(ctx context.Context, key string, value interface{}) {
	if err := s.cache.Set(ctx, key, value, s.cacheTTL); err != nil {
		s.logger.Debug().Err(err).Str("key", key).Msg("cache set failed")
	}
}

// normalizeQuery applies paging defaults and bounds
func normalizeQuery(q domain.ProductQuery) domain.ProductQuery {
	q.Q = strings.TrimSpace(q.Q)
	q.Nutri = strings.ToUpper(strings.TrimSpace(q.Nutri))
	q.Brand = strings.TrimSpace(q.Brand)
	q.Category = strings.TrimSpace(q.Category)

	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = DefaultPageLimit
	}
	if q.Limit > MaxPageLimit {
		q.Limit = MaxPageLimit
	}
	if q.Sort == "" {
		q.Sort = SortByName
	}
	return q
}

// matchesQuery reports whether a record passes every filter in q
func matchesQuery(r *domain.ProductRecord, q domain.ProductQuery) bool {
	if q.Q != "" &&
		!fuzzy.MatchNormalizedFold(q.Q, r.Name) &&
		!fuzzy.MatchNormalizedFold(q.Q, r.Brand) &&
		!fuzzy.MatchNormalizedFold(q.Q, r.Category) {
		return false
	}
	if q.Nutri != "" && strings.ToUpper(r.Nutriscore) != q.Nutri {
		return false
	}
	if q.Brand != "" && !containsFold(r.Brand, q.Brand) {
		return false
	}
	if q.Category != "" && !containsFold(r.Category, q.Category) {
		return false
	}
	return true
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
