package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/foodfacts/scraper/internal/domain"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

const productColumns = "barcode, name, brand, category, nutriscore, labels, source_url"

// dialect holds the statements that differ between SQL engines
type dialect struct {
	name   string
	upsert string
	get    string
}

var sqliteDialect = dialect{
	name: DriverSQLite,
	upsert: `INSERT INTO products (` + productColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(barcode) DO UPDATE SET
			name = excluded.name,
			brand = excluded.brand,
			category = excluded.category,
			nutriscore = excluded.nutriscore,
			labels = excluded.labels,
			source_url = excluded.source_url,
			updated_at = CURRENT_TIMESTAMP`,
	get: `SELECT ` + productColumns + ` FROM products WHERE barcode = ?`,
}

var postgresDialect = dialect{
	name: DriverPostgres,
	upsert: `INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (barcode) DO UPDATE SET
			name = EXCLUDED.name,
			brand = EXCLUDED.brand,
			category = EXCLUDED.category,
			nutriscore = EXCLUDED.nutriscore,
			labels = EXCLUDED.labels,
			source_url = EXCLUDED.source_url,
			updated_at = NOW()`,
	get: `SELECT ` + productColumns + ` FROM products WHERE barcode = $1`,
}

// SQLRepository stores products in a relational table with a unique
// barcode column
type SQLRepository struct {
	db      *sql.DB
	dialect dialect
	logger  zerolog.Logger
}

// NewSQLiteRepository opens (creating if needed) a SQLite database file and
// migrates it
func NewSQLiteRepository(ctx context.Context, path string, logger zerolog.Logger) (*SQLRepository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite %s: %v", domain.ErrStoreUnavailable, path, err)
	}
	// SQLite allows a single writer
	db.SetMaxOpenConns(1)

	return newSQLRepository(ctx, db, sqliteDialect, logger)
}

// NewPostgresRepository connects to PostgreSQL and migrates the schema
func NewPostgresRepository(ctx context.Context, dsn string, logger zerolog.Logger) (*SQLRepository, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open postgres: %v", domain.ErrStoreUnavailable, err)
	}

	return newSQLRepository(ctx, db, postgresDialect, logger)
}

func newSQLRepository(ctx context.Context, db *sql.DB, d dialect, logger zerolog.Logger) (*SQLRepository, error) {
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: ping %s: %v", domain.ErrStoreUnavailable, d.name, err)
	}

	version, dirty, err := RunMigrations(db, d.name)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	logger.Info().Uint("schema_version", version).Bool("dirty", dirty).Msg("store ready")

	return &SQLRepository{db: db, dialect: d, logger: logger}, nil
}

// Upsert inserts the record or updates the row with the same barcode.
// Only the barcode column is unique, so key must be "barcode".
func (r *SQLRepository) Upsert(ctx context.Context, record *domain.ProductRecord, key string) error {
	value, err := upsertKeyValue(record, key)
	if err != nil {
		return err
	}
	if value == "" {
		return nil
	}
	if key != domain.FieldBarcode {
		return fmt.Errorf("%w: sql store upserts by barcode only, got %q", domain.ErrInvalidRequest, key)
	}

	_, err = r.db.ExecContext(ctx, r.dialect.upsert,
		record.Barcode, record.Name, record.Brand, record.Category,
		record.Nutriscore, record.Labels, record.SourceURL)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", record.Barcode, err)
	}
	return nil
}

// All returns every product in insertion order
func (r *SQLRepository) All(ctx context.Context) ([]domain.ProductRecord, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+productColumns+` FROM products ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var records []domain.ProductRecord
	for rows.Next() {
		var p domain.ProductRecord
		if err := scanProduct(rows, &p); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		records = append(records, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return records, nil
}

// Get returns the product with barcode or domain.ErrProductNotFound
func (r *SQLRepository) Get(ctx context.Context, barcode string) (*domain.ProductRecord, error) {
	var p domain.ProductRecord
	err := scanProduct(r.db.QueryRowContext(ctx, r.dialect.get, barcode), &p)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get product %s: %w", barcode, err)
	}
	return &p, nil
}

// Close closes the database handle
func (r *SQLRepository) Close(ctx context.Context) error {
	return r.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(s scanner, p *domain.ProductRecord) error {
	return s.Scan(&p.Barcode, &p.Name, &p.Brand, &p.Category, &p.Nutriscore, &p.Labels, &p.SourceURL)
}
