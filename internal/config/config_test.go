package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cherrors "github.com/jward/contexthelper/internal/errors"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_YAMLFile(t *testing.T) {
	path := writeConfig(t, "contexthelper.yaml", `
page_size: 3
backend: scraping
timeout: 2s
site: superuser
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.PageSize)
	assert.Equal(t, BackendScraping, cfg.Backend)
	assert.Equal(t, 2*time.Second, cfg.Timeout)
	assert.Equal(t, "superuser", cfg.Site)
	assert.Equal(t, DefaultAPIURL, cfg.APIURL)
	assert.Equal(t, DefaultPolicy, cfg.Policy)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "contexthelper.yaml", "backend: keyed_api\n")
	t.Setenv("CONTEXTHELPER_API_KEY", "secret")
	t.Setenv("CONTEXTHELPER_PAGE_SIZE", "7")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, BackendKeyedAPI, cfg.Backend)
	assert.Equal(t, "secret", cfg.APIKey)
	assert.Equal(t, 7, cfg.PageSize)
}

func TestLoad_KeyedAPIRequiresKey(t *testing.T) {
	path := writeConfig(t, "contexthelper.json", `{"backend": "keyed_api"}`)
	_, err := Load(path)
	require.Error(t, err)

	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "api_key", cfgErr.Field)
	assert.ErrorIs(t, err, cherrors.InvalidConfig)
}

func TestRead_SkipsValidation(t *testing.T) {
	path := writeConfig(t, "contexthelper.yaml", "backend: keyed_api\ndb_path: /tmp/history.db\n")

	cfg, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/history.db", cfg.DBPath)
	assert.Equal(t, BackendKeyedAPI, cfg.Backend)
	assert.ErrorIs(t, cfg.Validate(), cherrors.InvalidConfig)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	base := DefaultConfig()
	base.APIKey = "k"
	require.NoError(t, base.Validate())

	tests := []struct {
		name  string
		mut   func(*Config)
		field string
	}{
		{"zero page size", func(c *Config) { c.PageSize = 0 }, "page_size"},
		{"unknown backend", func(c *Config) { c.Backend = "bing" }, "backend"},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }, "timeout"},
		{"negative cache", func(c *Config) { c.CacheSize = -1 }, "cache_size"},
		{"keyed without key", func(c *Config) { c.APIKey = " " }, "api_key"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base
			tt.mut(&c)
			err := c.Validate()
			var cfgErr *ConfigError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}

	scraping := DefaultConfig()
	scraping.Backend = BackendScraping
	assert.NoError(t, scraping.Validate())
}
