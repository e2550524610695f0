package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/foodfacts/scraper/config"
	"github.com/foodfacts/scraper/internal/domain"
	"github.com/foodfacts/scraper/internal/infrastructure/cache"
	"github.com/foodfacts/scraper/internal/usecase"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// TestMain sets up test environment before running tests
func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// memoryRepository is a read-mostly domain.ProductRepository for tests
type memoryRepository struct {
	records []domain.ProductRecord
	err     error
}

func (r *memoryRepository) Upsert(ctx context.Context, record *domain.ProductRecord, key string) error {
	r.records = append(r.records, *record)
	return nil
}

func (r *memoryRepository) All(ctx context.Context) ([]domain.ProductRecord, error) {
	if r.err != nil {
		return nil, r.err
	}
	return append([]domain.ProductRecord(nil), r.records...), nil
}

func (r *memoryRepository) Get(ctx context.Context, barcode string) (*domain.ProductRecord, error) {
	if r.err != nil {
		return nil, r.err
	}
	for i := range r.records {
		if r.records[i].Barcode == barcode {
			rec := r.records[i]
			return &rec, nil
		}
	}
	return nil, domain.ErrProductNotFound
}

func (r *memoryRepository) Close(ctx context.Context) error { return nil }

func fixtureRepository() *memoryRepository {
	return &memoryRepository{records: []domain.ProductRecord{
		{Barcode: "3017620422003", Name: "Nutella", Brand: "Ferrero", Category: "Spreads, Sweet spreads", Nutriscore: "E"},
		{Barcode: "3274080005003", Name: "Cristaline", Brand: "Cristaline", Category: "Beverages, Waters", Nutriscore: "A"},
		{Barcode: "3068320114453", Name: "Evian", Brand: "Danone", Category: "Beverages, Waters"},
	}}
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port:           "8080",
			Environment:    "test",
			AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Cache: config.CacheConfig{Type: "memory"},
	}
}

// setupTestRouter wires a router over repo; a nil repo leaves the
// catalog unset
func setupTestRouter(t *testing.T, repo domain.ProductRepository) *gin.Engine {
	t.Helper()

	var catalog CatalogService
	if repo != nil {
		memCache := cache.NewMemoryCache(0)
		t.Cleanup(func() { memCache.Close() })
		catalog = usecase.NewCatalogService(repo, memCache, usecase.CatalogServiceConfig{}, zerolog.Nop())
	}

	return SetupRouter(testConfig(), NewHandler(catalog, zerolog.Nop()), zerolog.Nop())
}

func get(router *gin.Engine, path string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest("GET", path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// TestHealthCheckEndpoint tests the health check endpoint
func TestHealthCheckEndpoint(t *testing.T) {
	t.Run("returns healthy status", func(t *testing.T) {
		w := get(setupTestRouter(t, nil), "/health")

		if w.Code != http.StatusOK {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusOK)
		}

		var response map[string]interface{}
		if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}
		if response["status"] != "healthy" {
			t.Errorf("status = %v, want healthy", response["status"])
		}
		if response["service"] != "foodfacts-api" {
			t.Errorf("service = %v, want foodfacts-api", response["service"])
		}
		version, ok := response["version"].(string)
		if !ok || strings.TrimSpace(version) == "" {
			t.Errorf("version = %v, want non-empty string", response["version"])
		}
	})

	t.Run("accepts GET requests only", func(t *testing.T) {
		router := setupTestRouter(t, nil)

		for _, method := range []string{"POST", "PUT", "DELETE", "PATCH"} {
			req, _ := http.NewRequest(method, "/health", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != http.StatusNotFound {
				t.Errorf("Method %s: Status = %d, want %d", method, w.Code, http.StatusNotFound)
			}
		}
	})
}

func TestListProductsEndpoint(t *testing.T) {
	router := setupTestRouter(t, fixtureRepository())

	t.Run("lists products sorted by name", func(t *testing.T) {
		w := get(router, "/api/v1/products")
		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d", w.Code, http.StatusOK)
		}

		var page domain.ProductPage
		if err := json.Unmarshal(w.Body.Bytes(), &page); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}
		if page.Total != 3 || page.Page != 1 || page.Limit != 20 {
			t.Errorf("page meta = %d/%d/%d, want 3/1/20", page.Total, page.Page, page.Limit)
		}
		if len(page.Data) != 3 || page.Data[0].Name != "Cristaline" {
			t.Errorf("data = %+v, want Cristaline first", page.Data)
		}
	})

	t.Run("applies filters", func(t *testing.T) {
		w := get(router, "/api/v1/products?category=waters&nutri=a")

		var page domain.ProductPage
		if err := json.Unmarshal(w.Body.Bytes(), &page); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}
		if page.Total != 1 || page.Data[0].Barcode != "3274080005003" {
			t.Errorf("data = %+v, want only Cristaline", page.Data)
		}
	})

	t.Run("rejects malformed paging", func(t *testing.T) {
		w := get(router, "/api/v1/products?page=abc")
		if w.Code != http.StatusBadRequest {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})
}

func TestGetProductEndpoint(t *testing.T) {
	router := setupTestRouter(t, fixtureRepository())

	t.Run("returns the product", func(t *testing.T) {
		w := get(router, "/api/v1/products/3017620422003")
		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d", w.Code, http.StatusOK)
		}

		var product domain.ProductRecord
		if err := json.Unmarshal(w.Body.Bytes(), &product); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}
		if product.Name != "Nutella" || product.Nutriscore != "E" {
			t.Errorf("product = %+v", product)
		}
	})

	t.Run("unknown barcode is 404", func(t *testing.T) {
		w := get(router, "/api/v1/products/00000000")
		if w.Code != http.StatusNotFound {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusNotFound)
		}
	})
}

func TestStatsEndpoints(t *testing.T) {
	router := setupTestRouter(t, fixtureRepository())

	t.Run("nutriscore", func(t *testing.T) {
		w := get(router, "/api/v1/stats/nutriscore")
		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d", w.Code, http.StatusOK)
		}

		var stats []domain.GradeCount
		if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}
		want := []domain.GradeCount{
			{Nutriscore: "A", Count: 1},
			{Nutriscore: "E", Count: 1},
			{Nutriscore: domain.UnknownGrade, Count: 1},
		}
		if len(stats) != len(want) {
			t.Fatalf("stats = %+v, want %+v", stats, want)
		}
		for i := range want {
			if stats[i] != want[i] {
				t.Errorf("stats[%d] = %+v, want %+v", i, stats[i], want[i])
			}
		}
	})

	t.Run("categories with top", func(t *testing.T) {
		w := get(router, "/api/v1/stats/categories?top=1")

		var stats []domain.TokenCount
		if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}
		if len(stats) != 1 || stats[0] != (domain.TokenCount{Category: "Beverages", Count: 2}) {
			t.Errorf("stats = %+v, want Beverages:2", stats)
		}
	})
}

func TestStoreFailures(t *testing.T) {
	router := setupTestRouter(t, &memoryRepository{err: domain.ErrStoreUnavailable})

	for _, path := range []string{"/api/v1/products", "/api/v1/products/3017620422003", "/api/v1/stats/nutriscore"} {
		w := get(router, path)
		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("%s: Status = %d, want %d", path, w.Code, http.StatusServiceUnavailable)
		}
	}
}

func TestCatalogNotConfigured(t *testing.T) {
	w := get(setupTestRouter(t, nil), "/api/v1/stats/categories")
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
}

// TestCORSIntegration tests CORS headers work end-to-end with full router
func TestCORSIntegration(t *testing.T) {
	router := setupTestRouter(t, fixtureRepository())

	req, _ := http.NewRequest("GET", "/api/v1/products", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Status = %d, want %d", w.Code, http.StatusOK)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, "http://localhost:5173")
	}
}

// TestRecoveryMiddleware tests panic recovery
func TestRecoveryMiddleware(t *testing.T) {
	router := setupTestRouter(t, nil)
	router.GET("/panic", func(c *gin.Context) {
		panic("test panic")
	})

	w := get(router, "/panic")

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}

// TestAPIVersioning tests that routes live under /api/v1
func TestAPIVersioning(t *testing.T) {
	router := setupTestRouter(t, fixtureRepository())

	if w := get(router, "/api/v1/stats/nutriscore"); w.Code != http.StatusOK {
		t.Errorf("v1 Status = %d, want %d", w.Code, http.StatusOK)
	}
	if w := get(router, "/api/stats/nutriscore"); w.Code != http.StatusNotFound {
		t.Errorf("non-versioned Status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

// TestJSONResponses tests that all responses are valid JSON
func TestJSONResponses(t *testing.T) {
	router := setupTestRouter(t, fixtureRepository())

	for _, path := range []string{
		"/health",
		"/api/v1/products",
		"/api/v1/products/00000000",
		"/api/v1/stats/nutriscore",
		"/api/v1/stats/categories",
	} {
		t.Run(path, func(t *testing.T) {
			w := get(router, path)

			gotContentType := w.Header().Get("Content-Type")
			wantContentType := "application/json; charset=utf-8"
			if gotContentType != wantContentType {
				t.Errorf("Content-Type = %q, want %q", gotContentType, wantContentType)
			}
			if !json.Valid(w.Body.Bytes()) {
				t.Errorf("Response should be valid JSON, got %s", w.Body.String())
			}
		})
	}
}
