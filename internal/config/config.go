// Package config loads the read-only session configuration for contexthelper.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	cherrors "github.com/jward/contexthelper/internal/errors"
)

// Backend selects the lookup client variant.
type Backend string

const (
	// BackendScraping searches the web scoped to the Q&A site and resolves
	// the scraped links through the site API.
	BackendScraping Backend = "scraping"
	// BackendKeyedAPI calls the authenticated site search endpoint directly.
	BackendKeyedAPI Backend = "keyed_api"
)

// Config is read once at session start and never mutated afterwards.
type Config struct {
	PageSize  int           `mapstructure:"page_size"`
	Backend   Backend       `mapstructure:"backend"`
	APIKey    string        `mapstructure:"api_key"`
	Site      string        `mapstructure:"site"`
	APIURL    string        `mapstructure:"api_url"`
	SearchURL string        `mapstructure:"search_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	DBPath    string        `mapstructure:"db_path"`
	LogLevel  string        `mapstructure:"log_level"`
	LogFormat string        `mapstructure:"log_format"`
	Policy    string        `mapstructure:"policy"`
	CacheSize int           `mapstructure:"cache_size"`
	CacheTTL  time.Duration `mapstructure:"cache_ttl"`
	// ScrapeInterval paces consecutive web-search scrapes.
	ScrapeInterval time.Duration `mapstructure:"scrape_interval"`
}

// Defaults.
const (
	DefaultPageSize       = 5
	DefaultSite           = "stackoverflow"
	DefaultAPIURL         = "https://api.stackexchange.com/2.3"
	DefaultSearchURL      = "https://www.google.com/search"
	DefaultTimeout        = 10 * time.Second
	DefaultPolicy         = "first"
	DefaultCacheSize      = 128
	DefaultCacheTTL       = 15 * time.Minute
	DefaultScrapeInterval = 5 * time.Second
)

// DefaultConfig returns the configuration used when no file or env overrides exist.
func DefaultConfig() Config {
	return Config{
		PageSize:       DefaultPageSize,
		Backend:        BackendKeyedAPI,
		Site:           DefaultSite,
		APIURL:         DefaultAPIURL,
		SearchURL:      DefaultSearchURL,
		Timeout:        DefaultTimeout,
		LogLevel:       "info",
		LogFormat:      "human",
		Policy:         DefaultPolicy,
		CacheSize:      DefaultCacheSize,
		CacheTTL:       DefaultCacheTTL,
		ScrapeInterval: DefaultScrapeInterval,
	}
}

// Load reads configuration from (in increasing precedence) defaults, a
// contexthelper.{yaml,json,toml} file, a .env file and CONTEXTHELPER_* env vars.
// When path is non-empty it names the config file explicitly.
func Load(path string) (Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Read is Load without validation, for callers that only need settings
// unrelated to the lookup backend.
func Read(path string) (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("CONTEXTHELPER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("contexthelper")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "contexthelper"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return Config{}, fmt.Errorf("config: read %s: %w", v.ConfigFileUsed(), err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	cfg.Backend = Backend(strings.ToLower(string(cfg.Backend)))
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("page_size", d.PageSize)
	v.SetDefault("backend", string(d.Backend))
	v.SetDefault("api_key", "")
	v.SetDefault("site", d.Site)
	v.SetDefault("api_url", d.APIURL)
	v.SetDefault("search_url", d.SearchURL)
	v.SetDefault("timeout", d.Timeout)
	v.SetDefault("db_path", "")
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_format", d.LogFormat)
	v.SetDefault("policy", d.Policy)
	v.SetDefault("cache_size", d.CacheSize)
	v.SetDefault("cache_ttl", d.CacheTTL)
	v.SetDefault("scrape_interval", d.ScrapeInterval)
}

// Validate checks the invariants the pipeline relies on.
func (c Config) Validate() error {
	if c.PageSize <= 0 {
		return &ConfigError{Field: "page_size", Message: "must be a positive integer"}
	}
	switch c.Backend {
	case BackendKeyedAPI:
		if strings.TrimSpace(c.APIKey) == "" {
			return &ConfigError{Field: "api_key", Message: "required when backend is keyed_api"}
		}
	case BackendScraping:
	default:
		return &ConfigError{Field: "backend", Message: fmt.Sprintf("unknown backend %q", c.Backend)}
	}
	if c.Timeout <= 0 {
		return &ConfigError{Field: "timeout", Message: "must be positive"}
	}
	if c.CacheSize < 0 {
		return &ConfigError{Field: "cache_size", Message: "must not be negative"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}

// Is lets callers match configuration errors with errors.Is(err, errors.InvalidConfig).
func (e *ConfigError) Is(target error) bool {
	return target == cherrors.InvalidConfig
}
