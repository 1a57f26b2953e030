package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server  ServerConfig
	Catalog CatalogConfig
	Rates   RatesConfig
	Sync    SyncConfig
	Log     LogConfig
}

// ServerConfig holds the ops HTTP server configuration
type ServerConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Port        string `mapstructure:"port"`
	Environment string `mapstructure:"environment"`
}

// CatalogConfig holds OneEntry developer API configuration
type CatalogConfig struct {
	Host              string        `mapstructure:"host"`
	Login             string        `mapstructure:"login"`
	Password          string        `mapstructure:"password"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
}

// RatesConfig holds exchange rate provider configuration
type RatesConfig struct {
	APIKey            string        `mapstructure:"api_key"`
	BaseURL           string        `mapstructure:"base_url"`
	Timeout           time.Duration `mapstructure:"timeout"`
	MaxAttempts       int           `mapstructure:"max_attempts"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	FilterSymbols     bool          `mapstructure:"filter_symbols"`
}

// SyncConfig holds the catalog sync loop configuration
type SyncConfig struct {
	BaseCurrency         string `mapstructure:"base_currency"`
	SyncCurrency         string `mapstructure:"sync_currency"`
	BaseLocale           string `mapstructure:"base_locale"`
	SyncLocale           string `mapstructure:"sync_locale"`
	AttributeSetMarker   string `mapstructure:"attribute_set_marker"`
	PriceAttributeMarker string `mapstructure:"price_attribute_marker"`
	UpdateEveryMS        int64  `mapstructure:"update_every_ms"`
	PageSize             int    `mapstructure:"page_size"`
	Concurrency          int    `mapstructure:"concurrency"`
	AbortOnWriteError    bool   `mapstructure:"abort_on_write_error"`
}

// UpdateEvery returns the pause between two catalog passes
func (s SyncConfig) UpdateEvery() time.Duration {
	return time.Duration(s.UpdateEveryMS) * time.Millisecond
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// legacyEnv maps config keys to the bare environment names the sync job has always read.
// The prefixed CURRENCY_SYNC_* name still wins when both are set.
var legacyEnv = map[string]string{
	"rates.api_key":               "API_KEY",
	"catalog.host":                "DEVELOPER_API_HOST",
	"catalog.login":               "DEVELOPER_LOGIN",
	"catalog.password":            "DEVELOPER_PASSWORD",
	"sync.base_locale":            "BASE_CURRENCY_LANG",
	"sync.base_currency":          "BASE_CURRENCY",
	"sync.sync_locale":            "SYNC_CURRENCY_LANG",
	"sync.sync_currency":          "SYNC_CURRENCY",
	"sync.attribute_set_marker":   "ATTRIBUTE_SET_MARKER",
	"sync.price_attribute_marker": "PRICE_ATTRIBUTE_MARKER",
	"sync.update_every_ms":        "UPDATE_EVERY",
}

const envPrefix = "CURRENCY_SYNC"

// Load loads configuration from .env, environment variables and config files
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/currency-sync/")

	// Environment variable settings
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, legacy := range legacyEnv {
		prefixed := envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, legacy); err != nil {
			return nil, fmt.Errorf("error binding %s: %w", key, err)
		}
	}

	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// loadEnvFile loads ./.env into the process environment without overriding variables that are already set
func loadEnvFile() error {
	err := godotenv.Load()
	if err != nil && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.enabled", true)
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")

	// Catalog defaults
	v.SetDefault("catalog.host", "https://your_project.oneentry.cloud")
	v.SetDefault("catalog.login", "developer_admin")
	v.SetDefault("catalog.password", "1-1")
	v.SetDefault("catalog.timeout", "30s")
	v.SetDefault("catalog.requests_per_second", 0)
	v.SetDefault("catalog.burst", 8)

	// Rates defaults
	v.SetDefault("rates.api_key", "")
	v.SetDefault("rates.base_url", "https://api.currencyfreaks.com/v2.0/rates/latest")
	v.SetDefault("rates.timeout", "30s")
	v.SetDefault("rates.max_attempts", 1)
	v.SetDefault("rates.requests_per_second", 0)
	v.SetDefault("rates.filter_symbols", false)

	// Sync defaults
	v.SetDefault("sync.base_currency", "USD")
	v.SetDefault("sync.sync_currency", "EUR")
	v.SetDefault("sync.base_locale", "en_US")
	v.SetDefault("sync.sync_locale", "fr_FR")
	v.SetDefault("sync.attribute_set_marker", "boots")
	v.SetDefault("sync.price_attribute_marker", "price_boots")
	v.SetDefault("sync.update_every_ms", 3*60*60*1000) // 3 hours
	v.SetDefault("sync.page_size", 30)
	v.SetDefault("sync.concurrency", 8)
	v.SetDefault("sync.abort_on_write_error", false)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Rates.APIKey == "" {
		return fmt.Errorf("rate provider API key is required (set API_KEY or CURRENCY_SYNC_RATES_API_KEY)")
	}

	if config.Catalog.Host == "" {
		return fmt.Errorf("catalog host is required (set DEVELOPER_API_HOST)")
	}

	if config.Sync.BaseLocale == config.Sync.SyncLocale {
		return fmt.Errorf("base and sync locale must differ, both are %q", config.Sync.BaseLocale)
	}

	if config.Sync.BaseCurrency == "" || config.Sync.SyncCurrency == "" {
		return fmt.Errorf("base and sync currency are required")
	}

	if config.Sync.PriceAttributeMarker == "" || config.Sync.AttributeSetMarker == "" {
		return fmt.Errorf("attribute set marker and price attribute marker are required")
	}

	if config.Sync.PageSize <= 0 {
		return fmt.Errorf("page size must be positive, got: %d", config.Sync.PageSize)
	}

	if config.Sync.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive, got: %d", config.Sync.Concurrency)
	}

	if config.Sync.UpdateEveryMS <= 0 {
		return fmt.Errorf("update interval must be positive, got: %dms", config.Sync.UpdateEveryMS)
	}

	if config.Rates.MaxAttempts <= 0 {
		return fmt.Errorf("rates max attempts must be positive, got: %d", config.Rates.MaxAttempts)
	}

	if config.Log.Format != "json" && config.Log.Format != "text" {
		return fmt.Errorf("log format must be 'json' or 'text', got: %s", config.Log.Format)
	}

	return nil
}
