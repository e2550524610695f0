package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/foodfacts/scraper/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// CatalogService is the read side of the product store
type CatalogService interface {
	ListProducts(ctx context.Context, query domain.ProductQuery) (*domain.ProductPage, error)
	GetProduct(ctx context.Context, barcode string) (*domain.ProductRecord, error)
	NutriscoreStats(ctx context.Context) ([]domain.GradeCount, error)
	CategoryStats(ctx context.Context, top int) ([]domain.TokenCount, error)
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	catalog CatalogService
	logger  zerolog.Logger
}

// NewHandler creates a new HTTP handler. A nil catalog makes the catalog
// endpoints answer 503.
func NewHandler(catalog CatalogService, logger zerolog.Logger) *Handler {
	return &Handler{catalog: catalog, logger: logger}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "foodfacts-api",
		"version": "1.0.0",
	})
}

// ListProducts handles GET /api/v1/products
func (h *Handler) ListProducts(c *gin.Context) {
	if !h.available(c) {
		return
	}

	var query domain.ProductQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query: " + err.Error()})
		return
	}

	page, err := h.catalog.ListProducts(c.Request.Context(), query)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// GetProduct handles GET /api/v1/products/:barcode
func (h *Handler) GetProduct(c *gin.Context) {
	if !h.available(c) {
		return
	}

	product, err := h.catalog.GetProduct(c.Request.Context(), c.Param("barcode"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

// NutriscoreStats handles GET /api/v1/stats/nutriscore
func (h *Handler) NutriscoreStats(c *gin.Context) {
	if !h.available(c) {
		return
	}

	stats, err := h.catalog.NutriscoreStats(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// CategoryStats handles GET /api/v1/stats/categories?top=N
func (h *Handler) CategoryStats(c *gin.Context) {
	if !h.available(c) {
		return
	}

	// unparsable values fall back to the service default
	top, _ := strconv.Atoi(c.Query("top"))

	stats, err := h.catalog.CategoryStats(c.Request.Context(), top)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) available(c *gin.Context) bool {
	if h.catalog == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "catalog not available"})
		return false
	}
	return true
}

// respondError maps domain errors to HTTP status codes
func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrProductNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case errors.Is(err, domain.ErrStoreUnavailable):
		h.logger.Error().Err(err).Str("path", c.FullPath()).Msg("store unavailable")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "store unavailable"})
	default:
		h.logger.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
