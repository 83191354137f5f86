package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Tavily     TavilyConfig     `yaml:"tavily" mapstructure:"tavily"`
	Perplexity PerplexityConfig `yaml:"perplexity" mapstructure:"perplexity"`
	Jina       JinaConfig       `yaml:"jina" mapstructure:"jina"`
	Firecrawl  FirecrawlConfig  `yaml:"firecrawl" mapstructure:"firecrawl"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Search     SearchConfig     `yaml:"search" mapstructure:"search"`
	Crawl      CrawlConfig      `yaml:"crawl" mapstructure:"crawl"`
	Pipeline   PipelineConfig   `yaml:"pipeline" mapstructure:"pipeline"`
	Lease      LeaseConfig      `yaml:"lease" mapstructure:"lease"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the result store backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// TavilyConfig holds Tavily API settings (primary search provider).
type TavilyConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// PerplexityConfig holds Perplexity API settings (search fallback).
type PerplexityConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// JinaConfig holds Jina AI Reader settings (extract and crawl fallback).
type JinaConfig struct {
	Key           string `yaml:"key" mapstructure:"key"`
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	SearchBaseURL string `yaml:"search_base_url" mapstructure:"search_base_url"`
}

// FirecrawlConfig holds Firecrawl API settings (extract and crawl fallback).
type FirecrawlConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key           string `yaml:"key" mapstructure:"key"`
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	StandardModel string `yaml:"standard_model" mapstructure:"standard_model"`
	PremiumModel  string `yaml:"premium_model" mapstructure:"premium_model"`
	MaxTokens     int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
	Retries       int    `yaml:"retries" mapstructure:"retries"`
}

// SearchConfig configures search gateway behavior shared by all providers.
type SearchConfig struct {
	Depth          string   `yaml:"depth" mapstructure:"depth"`
	MaxResults     int      `yaml:"max_results" mapstructure:"max_results"`
	ExcludeDomains []string `yaml:"exclude_domains" mapstructure:"exclude_domains"`
	TimeoutSecs    int      `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RatePerSec     float64  `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	Retries        int      `yaml:"retries" mapstructure:"retries"`
}

// CrawlConfig configures the crawl stage.
type CrawlConfig struct {
	MaxPages         int `yaml:"max_pages" mapstructure:"max_pages"`
	MaxDepth         int `yaml:"max_depth" mapstructure:"max_depth"`
	PollTimeoutSecs  int `yaml:"poll_timeout_secs" mapstructure:"poll_timeout_secs"`
	PollIntervalSecs int `yaml:"poll_interval_secs" mapstructure:"poll_interval_secs"`
}

// PipelineConfig configures stage behavior.
type PipelineConfig struct {
	CheckpointEvery  int `yaml:"checkpoint_every" mapstructure:"checkpoint_every"`
	ExtractionURLs   int `yaml:"extraction_urls" mapstructure:"extraction_urls"`
	ContextTruncate  int `yaml:"context_truncate" mapstructure:"context_truncate"`
	DiscoveryMax     int `yaml:"discovery_max" mapstructure:"discovery_max"`
	StageTimeoutSecs int `yaml:"stage_timeout_secs" mapstructure:"stage_timeout_secs"`
}

// LeaseConfig configures job liveness tracking and the stale-job reconciler.
type LeaseConfig struct {
	Backend            string `yaml:"backend" mapstructure:"backend"`
	RedisAddr          string `yaml:"redis_addr" mapstructure:"redis_addr"`
	RedisPassword      string `yaml:"redis_password" mapstructure:"redis_password"`
	RedisDB            int    `yaml:"redis_db" mapstructure:"redis_db"`
	TTLSecs            int    `yaml:"ttl_secs" mapstructure:"ttl_secs"`
	ReconcileEverySecs int    `yaml:"reconcile_every_secs" mapstructure:"reconcile_every_secs"`
	StaleAfterSecs     int    `yaml:"stale_after_secs" mapstructure:"stale_after_secs"`
}

// TTL returns the lease TTL.
func (c LeaseConfig) TTL() time.Duration { return time.Duration(c.TTLSecs) * time.Second }

// StaleAfter returns how long a processing job may go without a write before
// the reconciler checks its lease.
func (c LeaseConfig) StaleAfter() time.Duration {
	return time.Duration(c.StaleAfterSecs) * time.Second
}

// ReconcileEvery returns the reconciler sweep interval.
func (c LeaseConfig) ReconcileEvery() time.Duration {
	return time.Duration(c.ReconcileEverySecs) * time.Second
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("COMPINTEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Secrets have empty defaults so env overrides are visible to Unmarshal.
	for _, key := range []string{"anthropic.key", "anthropic.base_url", "tavily.key", "perplexity.key", "jina.key", "firecrawl.key", "lease.redis_password"} {
		v.SetDefault(key, "")
	}

	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "compintel.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("tavily.base_url", "https://api.tavily.com")
	v.SetDefault("perplexity.base_url", "https://api.perplexity.ai")
	v.SetDefault("perplexity.model", "sonar")
	v.SetDefault("jina.base_url", "https://r.jina.ai")
	v.SetDefault("jina.search_base_url", "https://s.jina.ai")
	v.SetDefault("firecrawl.base_url", "https://api.firecrawl.dev/v2")
	v.SetDefault("anthropic.standard_model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.premium_model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 4096)
	v.SetDefault("anthropic.retries", 3)
	v.SetDefault("search.depth", "advanced")
	v.SetDefault("search.max_results", 5)
	v.SetDefault("search.exclude_domains", []string{"wikipedia.org"})
	v.SetDefault("search.timeout_secs", 30)
	v.SetDefault("search.rate_per_sec", 5.0)
	v.SetDefault("search.retries", 3)
	v.SetDefault("crawl.max_pages", 10)
	v.SetDefault("crawl.max_depth", 2)
	v.SetDefault("crawl.poll_timeout_secs", 120)
	v.SetDefault("crawl.poll_interval_secs", 2)
	v.SetDefault("pipeline.checkpoint_every", 10)
	v.SetDefault("pipeline.extraction_urls", 2)
	v.SetDefault("pipeline.context_truncate", 2000)
	v.SetDefault("pipeline.discovery_max", 5)
	v.SetDefault("pipeline.stage_timeout_secs", 300)
	v.SetDefault("lease.backend", "memory")
	v.SetDefault("lease.redis_addr", "localhost:6379")
	v.SetDefault("lease.ttl_secs", 60)
	v.SetDefault("lease.reconcile_every_secs", 60)
	v.SetDefault("lease.stale_after_secs", 600)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command mode depends on.
func (c *Config) Validate(mode string) error {
	var missing []string
	switch mode {
	case "run", "serve":
		if c.Anthropic.Key == "" {
			missing = append(missing, "anthropic.key")
		}
		if c.Tavily.Key == "" && c.Perplexity.Key == "" {
			missing = append(missing, "tavily.key or perplexity.key")
		}
		if c.Store.Driver == "postgres" && c.Store.DatabaseURL == "" {
			missing = append(missing, "store.database_url")
		}
		if c.Pipeline.CheckpointEvery < 1 {
			return eris.New("config: pipeline.checkpoint_every must be >= 1")
		}
		if mode == "serve" && (c.Server.Port < 1 || c.Server.Port > 65535) {
			return eris.Errorf("config: invalid server.port %d", c.Server.Port)
		}
		if c.Lease.Backend == "redis" && c.Lease.RedisAddr == "" {
			missing = append(missing, "lease.redis_addr")
		}
	case "store":
		if c.Store.Driver == "postgres" && c.Store.DatabaseURL == "" {
			missing = append(missing, "store.database_url")
		}
	default:
		return eris.Errorf("config: unknown validation mode %q", mode)
	}
	if len(missing) > 0 {
		return eris.Errorf("config: missing required settings: %s", strings.Join(missing, ", "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
