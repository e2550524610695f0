package usecase

import (
	"strings"

	"github.com/foodfacts/scraper/internal/domain"
)

// Normalize returns a copy of record with every field trimmed, so that
// whitespace-only values become "". A nil record yields nil.
// Normalize(Normalize(r)) equals Normalize(r).
func Normalize(record *domain.ProductRecord) *domain.ProductRecord {
	if record == nil {
		return nil
	}

	out := &domain.ProductRecord{}
	for _, field := range domain.Fields {
		out.SetField(field, strings.TrimSpace(record.Field(field)))
	}
	return out
}
