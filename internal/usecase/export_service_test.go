package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/foodfacts/scraper/internal/domain"
	"github.com/rs/zerolog"
)

func TestExportService_Export(t *testing.T) {
	ctx := context.Background()

	t.Run("exports every stored record", func(t *testing.T) {
		repo := NewMockProductRepository(*waterRecord("10000001"), *waterRecord("10000002"))
		exporter := &MockExporter{}
		svc := NewExportService(repo, exporter, zerolog.Nop())

		result, err := svc.Export(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Records != 2 || len(exporter.exported) != 2 {
			t.Errorf("exported %d records, want 2", result.Records)
		}
	})

	t.Run("empty store writes nothing", func(t *testing.T) {
		exporter := &MockExporter{}
		svc := NewExportService(NewMockProductRepository(), exporter, zerolog.Nop())

		_, err := svc.Export(ctx)
		if !errors.Is(err, domain.ErrNoRecords) {
			t.Errorf("error = %v, want ErrNoRecords", err)
		}
		if exporter.exported != nil {
			t.Error("expected exporter not to be called")
		}
	})

	t.Run("propagates store and exporter errors", func(t *testing.T) {
		repo := NewMockProductRepository()
		repo.allErr = domain.ErrStoreUnavailable
		svc := NewExportService(repo, &MockExporter{}, zerolog.Nop())
		if _, err := svc.Export(ctx); !errors.Is(err, domain.ErrStoreUnavailable) {
			t.Errorf("error = %v, want ErrStoreUnavailable", err)
		}

		repo = NewMockProductRepository(*waterRecord("10000001"))
		svc = NewExportService(repo, &MockExporter{err: errBoom}, zerolog.Nop())
		if _, err := svc.Export(ctx); !errors.Is(err, errBoom) {
			t.Errorf("error = %v, want errBoom", err)
		}
	})
}
