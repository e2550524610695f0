// Package store persists product records in MongoDB, SQLite or PostgreSQL.
package store

import (
	"context"
	"fmt"

	"github.com/foodfacts/scraper/config"
	"github.com/foodfacts/scraper/internal/domain"
	"github.com/rs/zerolog"
)

// Supported store drivers
const (
	DriverMongo    = "mongo"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Open connects the repository selected by cfg.Driver. Connection or
// schema failures are wrapped in domain.ErrStoreUnavailable.
func Open(ctx context.Context, cfg config.StoreConfig, logger zerolog.Logger) (domain.ProductRepository, error) {
	logger = logger.With().Str("component", "store").Str("driver", cfg.Driver).Logger()

	var (
		repo domain.ProductRepository
		err  error
	)
	switch cfg.Driver {
	case DriverMongo:
		repo, err = NewMongoRepository(ctx, cfg.URI, cfg.Database, cfg.Collection, logger)
	case DriverSQLite:
		repo, err = NewSQLiteRepository(ctx, cfg.SQLitePath, logger)
	case DriverPostgres:
		repo, err = NewPostgresRepository(ctx, cfg.DSN, logger)
	default:
		return nil, fmt.Errorf("%w: unknown store driver %q", domain.ErrStoreUnavailable, cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	return repo, nil
}

// upsertKeyValue validates key and returns the record's value for it.
// An empty value means the upsert should be skipped.
func upsertKeyValue(record *domain.ProductRecord, key string) (string, error) {
	if record == nil {
		return "", nil
	}
	if !domain.IsKnownField(key) {
		return "", fmt.Errorf("%w: unknown upsert key %q", domain.ErrInvalidRequest, key)
	}
	return record.Field(key), nil
}
