// Package search routes web searches, page extractions and site crawls
// through ordered chains of providers.
package search

import (
	"context"

	"github.com/sells-group/competitive-intel/internal/model"
)

// Query is a provider-neutral web search request.
type Query struct {
	Text           string
	Freshness      model.Freshness
	Depth          string // "basic" or "advanced"
	MaxResults     int
	IncludeAnswer  bool
	IncludeDomains []string
	ExcludeDomains []string
}

// Response is the result of a web search.
type Response struct {
	Answer   string
	Results  []model.Source
	Provider string
}

// CrawlOptions bounds a site crawl.
type CrawlOptions struct {
	MaxPages     int
	MaxDepth     int
	Instructions string
}

// Service is what the pipeline stages call.
type Service interface {
	Search(ctx context.Context, q Query) (*Response, error)
	Extract(ctx context.Context, urls []string) ([]model.Page, error)
	Crawl(ctx context.Context, rootURL string, opts CrawlOptions) ([]model.Page, error)
}

// Searcher is one web search provider.
type Searcher interface {
	Name() string
	Search(ctx context.Context, q Query) (*Response, error)
}

// Extractor fetches the readable content of a set of URLs.
type Extractor interface {
	Name() string
	Extract(ctx context.Context, urls []string) ([]model.Page, error)
}

// Crawler walks a site starting at a root URL.
type Crawler interface {
	Name() string
	Crawl(ctx context.Context, rootURL string, opts CrawlOptions) ([]model.Page, error)
}
