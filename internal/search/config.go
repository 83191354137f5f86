package search

import (
	"time"

	"github.com/sells-group/competitive-intel/internal/config"
	"github.com/sells-group/competitive-intel/internal/resilience"
	"github.com/sells-group/competitive-intel/pkg/firecrawl"
	"github.com/sells-group/competitive-intel/pkg/jina"
	"github.com/sells-group/competitive-intel/pkg/perplexity"
	"github.com/sells-group/competitive-intel/pkg/tavily"
)

// NewFromConfig builds the provider chains from configuration. Tavily is
// always first; fallbacks are added only when their API key is set, except
// the Jina Reader, which works without one.
//
//	search:  tavily → perplexity
//	extract: tavily → jina → firecrawl
//	crawl:   tavily → firecrawl → jina (site search)
func NewFromConfig(cfg *config.Config) *Gateway {
	tv := NewTavily(tavily.NewClient(cfg.Tavily.Key, tavily.WithBaseURL(cfg.Tavily.BaseURL)))

	searchers := []Searcher{tv}
	extractors := []Extractor{tv}
	crawlers := []Crawler{tv}

	if cfg.Perplexity.Key != "" {
		searchers = append(searchers, NewPerplexity(perplexity.NewClient(cfg.Perplexity.Key,
			perplexity.WithBaseURL(cfg.Perplexity.BaseURL),
			perplexity.WithModel(cfg.Perplexity.Model),
		)))
	}

	jn := NewJina(jina.NewClient(cfg.Jina.Key,
		jina.WithBaseURL(cfg.Jina.BaseURL),
		jina.WithSearchBaseURL(cfg.Jina.SearchBaseURL),
	))
	extractors = append(extractors, jn)

	if cfg.Firecrawl.Key != "" {
		fc := NewFirecrawl(firecrawl.NewClient(cfg.Firecrawl.Key, firecrawl.WithBaseURL(cfg.Firecrawl.BaseURL)),
			firecrawl.WithPollInterval(time.Duration(cfg.Crawl.PollIntervalSecs)*time.Second),
			firecrawl.WithPollTimeout(time.Duration(cfg.Crawl.PollTimeoutSecs)*time.Second),
		)
		extractors = append(extractors, fc)
		crawlers = append(crawlers, fc)
	}

	if cfg.Jina.Key != "" {
		crawlers = append(crawlers, jn)
	}

	retry := resilience.DefaultRetryConfig()
	if cfg.Search.Retries > 0 {
		retry.MaxAttempts = cfg.Search.Retries
	}

	return New(
		WithSearchers(searchers...),
		WithExtractors(extractors...),
		WithCrawlers(crawlers...),
		WithRetry(retry),
		WithTimeout(time.Duration(cfg.Search.TimeoutSecs)*time.Second),
		WithCrawlTimeout(time.Duration(cfg.Crawl.PollTimeoutSecs+cfg.Search.TimeoutSecs)*time.Second),
		WithRate(cfg.Search.RatePerSec),
	)
}
