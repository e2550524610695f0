package domain

import (
	"context"
	"time"
)

// Page is a successfully fetched HTTP response body
type Page struct {
	URL        string
	StatusCode int
	Body       []byte
}

// Fetcher retrieves pages from the source site
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Page, error)
}

// ProductRepository persists product records keyed by a unique field.
// Upsert is idempotent: applying the same record twice leaves one document.
type ProductRepository interface {
	Upsert(ctx context.Context, record *ProductRecord, key string) error
	All(ctx context.Context) ([]ProductRecord, error)
	Get(ctx context.Context, barcode string) (*ProductRecord, error)
	Close(ctx context.Context) error
}

// CacheRepository defines the interface for caching operations
type CacheRepository interface {
	Get(ctx context.Context, key string) (interface{}, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// ExportResult lists the files written by an export
type ExportResult struct {
	Spreadsheet string   `json:"spreadsheet"`
	Charts      []string `json:"charts"`
	Records     int      `json:"records"`
}

// Exporter writes a record set to files
type Exporter interface {
	Export(ctx context.Context, records []ProductRecord) (*ExportResult, error)
}
