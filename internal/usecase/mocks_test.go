package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/foodfacts/scraper/internal/domain"
)

// MockCacheRepository is a mock implementation of domain.CacheRepository
type MockCacheRepository struct {
	data      map[string]interface{}
	getError  error
	setError  error
	getCalled bool
	setCalled bool
}

func NewMockCacheRepository() *MockCacheRepository {
	return &MockCacheRepository{
		data: make(map[string]interface{}),
	}
}

func (m *MockCacheRepository) Get(ctx context.Context, key string) (interface{}, error) {
	m.getCalled = true
	if m.getError != nil {
		return nil, m.getError
	}
	if value, ok := m.data[key]; ok {
		return value, nil
	}
	return nil, domain.ErrCacheMiss
}

func (m *MockCacheRepository) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.setCalled = true
	if m.setError != nil {
		return m.setError
	}
	m.data[key] = value
	return nil
}

func (m *MockCacheRepository) Delete(ctx context.Context, key string) error {
	delete(m.data, key)
	return nil
}

func (m *MockCacheRepository) Exists(ctx context.Context, key string) (bool, error) {
	_, ok := m.data[key]
	return ok, nil
}

// MockProductRepository is an in-memory domain.ProductRepository keyed by barcode
type MockProductRepository struct {
	records   []domain.ProductRecord
	upsertErr error
	allErr    error
	allCalls  int
}

func NewMockProductRepository(records ...domain.ProductRecord) *MockProductRepository {
	return &MockProductRepository{records: records}
}

func (m *MockProductRepository) Upsert(ctx context.Context, record *domain.ProductRecord, key string) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	value := record.Field(key)
	if value == "" {
		return nil
	}
	for i := range m.records {
		if m.records[i].Field(key) == value {
			m.records[i] = *record
			return nil
		}
	}
	m.records = append(m.records, *record)
	return nil
}

func (m *MockProductRepository) All(ctx context.Context) ([]domain.ProductRecord, error) {
	m.allCalls++
	if m.allErr != nil {
		return nil, m.allErr
	}
	out := make([]domain.ProductRecord, len(m.records))
	copy(out, m.records)
	return out, nil
}

func (m *MockProductRepository) Get(ctx context.Context, barcode string) (*domain.ProductRecord, error) {
	for i := range m.records {
		if m.records[i].Barcode == barcode {
			r := m.records[i]
			return &r, nil
		}
	}
	return nil, domain.ErrProductNotFound
}

func (m *MockProductRepository) Close(ctx context.Context) error {
	return nil
}

// MockDiscoverer returns a fixed barcode list, truncated to the limit
type MockDiscoverer struct {
	barcodes []string
	calls    int
}

func (m *MockDiscoverer) Discover(ctx context.Context, categories []string, maxPages, limit int) []string {
	m.calls++
	if limit > 0 && len(m.barcodes) > limit {
		return m.barcodes[:limit]
	}
	return m.barcodes
}

// MockExtractor serves records by barcode; listed errors take precedence
type MockExtractor struct {
	records map[string]*domain.ProductRecord
	errors  map[string]error
}

func NewMockExtractor() *MockExtractor {
	return &MockExtractor{
		records: make(map[string]*domain.ProductRecord),
		errors:  make(map[string]error),
	}
}

func (m *MockExtractor) Extract(ctx context.Context, barcode string) (*domain.ProductRecord, error) {
	if err, ok := m.errors[barcode]; ok {
		return nil, err
	}
	return m.records[barcode], nil
}

// MockExporter records what it was asked to export
type MockExporter struct {
	exported []domain.ProductRecord
	err      error
}

func (m *MockExporter) Export(ctx context.Context, records []domain.ProductRecord) (*domain.ExportResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.exported = records
	return &domain.ExportResult{
		Spreadsheet: "produits_openfoodfacts.xlsx",
		Charts:      []string{"nutriscore_distribution.png"},
		Records:     len(records),
	}, nil
}

var errBoom = errors.New("boom")
