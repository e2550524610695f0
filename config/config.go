package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Scraper   ScraperConfig
	Discovery DiscoveryConfig
	Store     StoreConfig
	Export    ExportConfig
	Server    ServerConfig
	Cache     CacheConfig
	RateLimit RateLimitConfig
	Log       LogConfig
}

// ScraperConfig holds HTTP fetching configuration
type ScraperConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	Timeout        time.Duration `mapstructure:"timeout"`
	Retries        int           `mapstructure:"retries"`
	RetryBase      time.Duration `mapstructure:"retry_base"`
	DelayMin       time.Duration `mapstructure:"delay_min"`
	DelayMax       time.Duration `mapstructure:"delay_max"`
	ItemDelayMin   time.Duration `mapstructure:"item_delay_min"`
	ItemDelayMax   time.Duration `mapstructure:"item_delay_max"`
	UserAgent      string        `mapstructure:"user_agent"`
	AcceptLanguage string        `mapstructure:"accept_language"`
}

// DiscoveryConfig holds barcode discovery configuration
type DiscoveryConfig struct {
	Categories []string `mapstructure:"categories"`
	MaxPages   int      `mapstructure:"max_pages"`
	Limit      int      `mapstructure:"limit"` // 0 means unlimited
}

// StoreConfig holds product store configuration
type StoreConfig struct {
	Driver     string `mapstructure:"driver"` // "mongo", "sqlite" or "postgres"
	URI        string `mapstructure:"uri"`
	Database   string `mapstructure:"database"`
	Collection string `mapstructure:"collection"`
	DSN        string `mapstructure:"dsn"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

// ExportConfig holds spreadsheet and chart output configuration
type ExportConfig struct {
	Dir             string `mapstructure:"dir"`
	Spreadsheet     string `mapstructure:"spreadsheet"`
	NutriscoreChart string `mapstructure:"nutriscore_chart"`
	CategoriesChart string `mapstructure:"categories_chart"`
	TopCategories   int    `mapstructure:"top_categories"`
}

// ServerConfig holds catalog API configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	Type     string        `mapstructure:"type"` // "memory" or "redis"
	RedisURL string        `mapstructure:"redis_url"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP int `mapstructure:"per_ip"` // requests per minute, 0 disables
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile loads configuration like Load, reading path instead of the
// default search locations when path is not empty
func LoadFile(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/foodfacts/")
	}

	// FOODFACTS_STORE_DRIVER -> store.driver
	v.SetEnvPrefix("FOODFACTS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// MONGO_URI and MONGO_DB are honoured when the prefixed names are unset
	_ = v.BindEnv("store.uri", "FOODFACTS_STORE_URI", "MONGO_URI")
	_ = v.BindEnv("store.database", "FOODFACTS_STORE_DATABASE", "MONGO_DB")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	config.Discovery.Categories = splitList(config.Discovery.Categories)
	config.Server.AllowedOrigins = splitList(config.Server.AllowedOrigins)

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("scraper.base_url", "https://world.openfoodfacts.org")
	v.SetDefault("scraper.timeout", "12s")
	v.SetDefault("scraper.retries", 3)
	v.SetDefault("scraper.retry_base", "600ms")
	v.SetDefault("scraper.delay_min", "500ms")
	v.SetDefault("scraper.delay_max", "1100ms")
	v.SetDefault("scraper.item_delay_min", "400ms")
	v.SetDefault("scraper.item_delay_max", "900ms")
	v.SetDefault("scraper.user_agent",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36")
	v.SetDefault("scraper.accept_language", "en,fr;q=0.9")

	v.SetDefault("discovery.categories", []string{"waters", "biscuits", "chocolates", "breakfast-cereals", "yogurts"})
	v.SetDefault("discovery.max_pages", 2)
	v.SetDefault("discovery.limit", 120)

	v.SetDefault("store.driver", "mongo")
	v.SetDefault("store.uri", "mongodb://localhost:27017/")
	v.SetDefault("store.database", "food_db")
	v.SetDefault("store.collection", "produits")
	v.SetDefault("store.dsn", "")
	v.SetDefault("store.sqlite_path", "food.db")

	v.SetDefault("export.dir", ".")
	v.SetDefault("export.spreadsheet", "produits_openfoodfacts.xlsx")
	v.SetDefault("export.nutriscore_chart", "nutriscore_distribution.png")
	v.SetDefault("export.categories_chart", "top10_categories.png")
	v.SetDefault("export.top_categories", 10)

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000", "http://localhost:5173"})

	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.ttl", "5m")

	v.SetDefault("ratelimit.per_ip", 100)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
}

// splitList accepts both list values and a single comma-separated value,
// which is how lists arrive from environment variables
func splitList(values []string) []string {
	var result []string
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				result = append(result, part)
			}
		}
	}
	return result
}

// validate validates the configuration
func validate(config *Config) error {
	if strings.TrimSpace(config.Scraper.BaseURL) == "" {
		return fmt.Errorf("scraper base URL is required (set FOODFACTS_SCRAPER_BASE_URL)")
	}

	if config.Scraper.Retries < 0 {
		return fmt.Errorf("scraper retries must be >= 0, got: %d", config.Scraper.Retries)
	}

	if config.Scraper.DelayMin > config.Scraper.DelayMax {
		return fmt.Errorf("scraper delay_min (%s) must not exceed delay_max (%s)",
			config.Scraper.DelayMin, config.Scraper.DelayMax)
	}

	if config.Scraper.ItemDelayMin > config.Scraper.ItemDelayMax {
		return fmt.Errorf("scraper item_delay_min (%s) must not exceed item_delay_max (%s)",
			config.Scraper.ItemDelayMin, config.Scraper.ItemDelayMax)
	}

	if config.Discovery.MaxPages < 1 {
		return fmt.Errorf("discovery max_pages must be >= 1, got: %d", config.Discovery.MaxPages)
	}

	if config.Discovery.Limit < 0 {
		return fmt.Errorf("discovery limit must be >= 0, got: %d", config.Discovery.Limit)
	}

	switch config.Store.Driver {
	case "mongo":
		if config.Store.URI == "" || config.Store.Database == "" || config.Store.Collection == "" {
			return fmt.Errorf("mongo store requires uri, database and collection")
		}
	case "sqlite":
		if config.Store.SQLitePath == "" {
			return fmt.Errorf("sqlite store requires sqlite_path")
		}
	case "postgres":
		if config.Store.DSN == "" {
			return fmt.Errorf("postgres store requires dsn (set FOODFACTS_STORE_DSN)")
		}
	default:
		return fmt.Errorf("store driver must be 'mongo', 'sqlite' or 'postgres', got: %s", config.Store.Driver)
	}

	if config.Cache.Type != "memory" && config.Cache.Type != "redis" {
		return fmt.Errorf("cache type must be 'memory' or 'redis', got: %s", config.Cache.Type)
	}

	if config.Cache.Type == "redis" && config.Cache.RedisURL == "" {
		return fmt.Errorf("Redis URL is required when cache type is 'redis'")
	}

	return nil
}
