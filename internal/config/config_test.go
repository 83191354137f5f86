package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, int32(10), cfg.Store.MaxConns)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "https://api.tavily.com", cfg.Tavily.BaseURL)
	assert.Equal(t, "https://r.jina.ai", cfg.Jina.BaseURL)
	assert.Equal(t, "https://api.firecrawl.dev/v2", cfg.Firecrawl.BaseURL)
	assert.Equal(t, "claude-haiku-4-5-20251001", cfg.Anthropic.StandardModel)
	assert.Equal(t, "claude-sonnet-4-5-20250929", cfg.Anthropic.PremiumModel)
	assert.Equal(t, "advanced", cfg.Search.Depth)
	assert.Equal(t, 5, cfg.Search.MaxResults)
	assert.Equal(t, []string{"wikipedia.org"}, cfg.Search.ExcludeDomains)
	assert.Equal(t, 10, cfg.Pipeline.CheckpointEvery)
	assert.Equal(t, 2, cfg.Pipeline.ExtractionURLs)
	assert.Equal(t, 2000, cfg.Pipeline.ContextTruncate)
	assert.Equal(t, 5, cfg.Pipeline.DiscoveryMax)
	assert.Equal(t, "memory", cfg.Lease.Backend)
	assert.Equal(t, 60, cfg.Lease.TTLSecs)
	assert.Equal(t, 60_000_000_000, int(cfg.Lease.TTL()))
	assert.Equal(t, 10*time.Minute, cfg.Lease.StaleAfter())
	assert.Equal(t, time.Minute, cfg.Lease.ReconcileEvery())
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/compintel
log:
  level: debug
  format: console
pipeline:
  checkpoint_every: 20
lease:
  backend: redis
  redis_addr: redis:6379
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/compintel", cfg.Store.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 20, cfg.Pipeline.CheckpointEvery)
	assert.Equal(t, "redis", cfg.Lease.Backend)
	assert.Equal(t, "redis:6379", cfg.Lease.RedisAddr)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("log:\n  level: debug\n"), 0o644))

	t.Setenv("COMPINTEL_LOG_LEVEL", "warn")
	t.Setenv("COMPINTEL_SERVER_PORT", "3000")
	t.Setenv("COMPINTEL_ANTHROPIC_KEY", "sk-test")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "sk-test", cfg.Anthropic.Key)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.NotNil(t, zap.L())
	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))
	assert.Error(t, InitLogger(LogConfig{Level: "invalid", Format: "json"}))
}

func validConfig() *Config {
	cfg := &Config{}
	cfg.Anthropic.Key = "sk"
	cfg.Tavily.Key = "tv"
	cfg.Store.Driver = "sqlite"
	cfg.Pipeline.CheckpointEvery = 10
	cfg.Server.Port = 8080
	cfg.Lease.Backend = "memory"
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mode    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"run ok", "run", func(*Config) {}, ""},
		{"serve ok", "serve", func(*Config) {}, ""},
		{"perplexity only", "run", func(c *Config) { c.Tavily.Key = ""; c.Perplexity.Key = "pp" }, ""},
		{"no llm key", "run", func(c *Config) { c.Anthropic.Key = "" }, "anthropic.key"},
		{"no search key", "run", func(c *Config) { c.Tavily.Key = "" }, "tavily.key or perplexity.key"},
		{"postgres without url", "store", func(c *Config) { c.Store.Driver = "postgres" }, "store.database_url"},
		{"bad port", "serve", func(c *Config) { c.Server.Port = 0 }, "invalid server.port"},
		{"bad checkpoint", "run", func(c *Config) { c.Pipeline.CheckpointEvery = 0 }, "checkpoint_every"},
		{"redis without addr", "serve", func(c *Config) { c.Lease.Backend = "redis" }, "lease.redis_addr"},
		{"unknown mode", "fedsync", func(*Config) {}, "unknown validation mode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate(tt.mode)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
