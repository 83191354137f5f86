package search

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/competitive-intel/internal/model"
	"github.com/sells-group/competitive-intel/internal/resilience"
)

// Gateway tries providers in priority order and returns the first usable
// result. Every provider call is rate limited, bounded by a timeout and
// retried on transient errors.
type Gateway struct {
	searchers    []Searcher
	extractors   []Extractor
	crawlers     []Crawler
	retry        resilience.RetryConfig
	timeout      time.Duration
	crawlTimeout time.Duration
	ratePerSec   float64

	mu       sync.Mutex
	limiters map[string]*adaptiveLimiter
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithSearchers sets the search chain, primary first.
func WithSearchers(s ...Searcher) Option {
	return func(g *Gateway) { g.searchers = s }
}

// WithExtractors sets the extract chain, primary first.
func WithExtractors(e ...Extractor) Option {
	return func(g *Gateway) { g.extractors = e }
}

// WithCrawlers sets the crawl chain, primary first.
func WithCrawlers(c ...Crawler) Option {
	return func(g *Gateway) { g.crawlers = c }
}

// WithRetry sets the per-provider retry policy.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(g *Gateway) { g.retry = cfg }
}

// WithTimeout bounds each search and extract attempt.
func WithTimeout(d time.Duration) Option {
	return func(g *Gateway) { g.timeout = d }
}

// WithCrawlTimeout bounds each crawl attempt, including polling.
func WithCrawlTimeout(d time.Duration) Option {
	return func(g *Gateway) { g.crawlTimeout = d }
}

// WithRate sets the per-provider request rate.
func WithRate(perSec float64) Option {
	return func(g *Gateway) { g.ratePerSec = perSec }
}

// New creates a Gateway.
func New(opts ...Option) *Gateway {
	g := &Gateway{
		retry:        resilience.DefaultRetryConfig(),
		timeout:      30 * time.Second,
		crawlTimeout: 3 * time.Minute,
		ratePerSec:   5,
		limiters:     make(map[string]*adaptiveLimiter),
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Search runs q against each searcher in turn. A response with neither an
// answer nor results falls through to the next provider; if every provider
// comes back empty the last empty response is returned.
func (g *Gateway) Search(ctx context.Context, q Query) (*Response, error) {
	if len(g.searchers) == 0 {
		return nil, eris.New("search: no search providers configured")
	}

	var (
		lastErr error
		empty   *Response
	)
	for _, s := range g.searchers {
		resp, err := call(ctx, g, s.Name(), "search", g.timeout, func(ctx context.Context) (*Response, error) {
			return s.Search(ctx, q)
		})
		if err != nil {
			zap.L().Debug("search: provider failed, trying next",
				zap.String("provider", s.Name()),
				zap.String("query", q.Text),
				zap.Error(err),
			)
			lastErr = err
			continue
		}
		if resp.Provider == "" {
			resp.Provider = s.Name()
		}
		if len(resp.Results) == 0 && resp.Answer == "" {
			empty = resp
			continue
		}
		return resp, nil
	}
	if empty != nil {
		return empty, nil
	}
	return nil, eris.Wrap(lastErr, "search: all providers failed")
}

// Extract fetches urls. URLs the primary extractor could not return are
// handed to the next extractor. Pages come back in input order.
func (g *Gateway) Extract(ctx context.Context, urls []string) ([]model.Page, error) {
	if len(urls) == 0 {
		return nil, nil
	}
	if len(g.extractors) == 0 {
		return nil, eris.New("search: no extract providers configured")
	}

	var (
		lastErr   error
		pages     []model.Page
		remaining = urls
	)
	for _, e := range g.extractors {
		if len(remaining) == 0 {
			break
		}
		batch := remaining
		got, err := call(ctx, g, e.Name(), "extract", g.timeout, func(ctx context.Context) ([]model.Page, error) {
			return e.Extract(ctx, batch)
		})
		if err != nil {
			zap.L().Debug("search: extractor failed, trying next",
				zap.String("provider", e.Name()),
				zap.Strings("urls", batch),
				zap.Error(err),
			)
			lastErr = err
			continue
		}
		got = nonEmptyPages(got)
		pages = append(pages, got...)
		remaining = missingURLs(remaining, got)
	}

	if len(pages) == 0 {
		if lastErr != nil {
			return nil, eris.Wrap(lastErr, "search: all extractors failed")
		}
		return nil, eris.New("search: no content extracted")
	}
	return inInputOrder(urls, pages), nil
}

// Crawl walks rootURL with the first crawler that returns any pages.
func (g *Gateway) Crawl(ctx context.Context, rootURL string, opts CrawlOptions) ([]model.Page, error) {
	if len(g.crawlers) == 0 {
		return nil, eris.New("search: no crawl providers configured")
	}

	var lastErr error
	for _, c := range g.crawlers {
		pages, err := call(ctx, g, c.Name(), "crawl", g.crawlTimeout, func(ctx context.Context) ([]model.Page, error) {
			return c.Crawl(ctx, rootURL, opts)
		})
		if err != nil {
			zap.L().Debug("search: crawler failed, trying next",
				zap.String("provider", c.Name()),
				zap.String("url", rootURL),
				zap.Error(err),
			)
			lastErr = err
			continue
		}
		pages = nonEmptyPages(pages)
		if len(pages) == 0 {
			lastErr = eris.Errorf("search: %s returned no pages for %s", c.Name(), rootURL)
			continue
		}
		if opts.MaxPages > 0 && len(pages) > opts.MaxPages {
			pages = pages[:opts.MaxPages]
		}
		return pages, nil
	}
	return nil, eris.Wrap(lastErr, "search: all crawlers failed")
}

func (g *Gateway) limiter(provider string) *adaptiveLimiter {
	g.mu.Lock()
	defer g.mu.Unlock()
	lim, ok := g.limiters[provider]
	if !ok {
		lim = newAdaptiveLimiter(provider, g.ratePerSec)
		g.limiters[provider] = lim
	}
	return lim
}

// statusCoder is implemented by the provider APIError types.
type statusCoder interface {
	HTTPStatus() int
}

func statusOf(err error) int {
	var sc statusCoder
	if errors.As(err, &sc) {
		return sc.HTTPStatus()
	}
	return 0
}

// call runs one provider operation under the gateway's rate limit, timeout
// and retry policy. Provider status codes are classified here so the retry
// loop sees a resilience.TransientError for retryable failures.
func call[T any](ctx context.Context, g *Gateway, provider, op string, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	lim := g.limiter(provider)
	cfg := g.retry
	if cfg.OnRetry == nil {
		cfg.OnRetry = resilience.RetryLogger(provider, op)
	}

	return resilience.DoVal(ctx, cfg, func(ctx context.Context) (T, error) {
		var zero T
		if err := lim.Wait(ctx); err != nil {
			return zero, eris.Wrapf(err, "search: %s rate limit wait", provider)
		}

		callCtx := ctx
		if timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		val, err := fn(callCtx)
		if err != nil {
			code := statusOf(err)
			if code == http.StatusTooManyRequests {
				lim.onRateLimit()
			}
			return zero, resilience.FromStatus(err, code)
		}
		lim.onSuccess()
		return val, nil
	})
}

func nonEmptyPages(pages []model.Page) []model.Page {
	out := pages[:0:0]
	for _, p := range pages {
		if strings.TrimSpace(p.Content) != "" {
			out = append(out, p)
		}
	}
	return out
}

func urlKey(u string) string {
	return strings.TrimSuffix(strings.TrimSpace(u), "/")
}

func missingURLs(want []string, got []model.Page) []string {
	have := make(map[string]bool, len(got))
	for _, p := range got {
		have[urlKey(p.URL)] = true
	}
	var out []string
	for _, u := range want {
		if !have[urlKey(u)] {
			out = append(out, u)
		}
	}
	return out
}

// inInputOrder sorts pages by the position of their URL in urls. Pages whose
// URL was rewritten by the provider keep their relative order at the end.
func inInputOrder(urls []string, pages []model.Page) []model.Page {
	pos := make(map[string]int, len(urls))
	for i, u := range urls {
		if _, ok := pos[urlKey(u)]; !ok {
			pos[urlKey(u)] = i
		}
	}
	rank := func(p model.Page) int {
		if i, ok := pos[urlKey(p.URL)]; ok {
			return i
		}
		return len(urls)
	}
	sort.SliceStable(pages, func(i, j int) bool { return rank(pages[i]) < rank(pages[j]) })
	return pages
}
