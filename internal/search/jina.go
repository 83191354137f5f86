package search

import (
	"context"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/competitive-intel/internal/model"
	"github.com/sells-group/competitive-intel/pkg/jina"
)

// minReadableContent is the shortest Jina Reader body treated as a real page.
const minReadableContent = 100

var challengeSignatures = []string{
	"checking your browser",
	"enable javascript",
	"please enable cookies",
	"access denied",
	"403 forbidden",
	"just a moment",
	"attention required",
}

// Jina extracts pages through the Jina Reader and crawls a site through a
// site-filtered Jina search.
type Jina struct {
	client jina.Client
}

// NewJina wraps a Jina client.
func NewJina(client jina.Client) *Jina {
	return &Jina{client: client}
}

func (j *Jina) Name() string { return "jina" }

// Extract reads each URL in turn. Unreadable pages are skipped; an error is
// returned only when nothing could be read.
func (j *Jina) Extract(ctx context.Context, urls []string) ([]model.Page, error) {
	var (
		pages   []model.Page
		lastErr error
	)
	for _, u := range urls {
		resp, err := j.client.Read(ctx, u)
		if err != nil {
			lastErr = err
			continue
		}
		if blocked(resp) {
			zap.L().Debug("search: jina returned unusable page", zap.String("url", u))
			lastErr = eris.Errorf("jina: unusable content for %s", u)
			continue
		}
		pageURL := resp.Data.URL
		if pageURL == "" {
			pageURL = u
		}
		pages = append(pages, model.Page{URL: pageURL, Title: resp.Data.Title, Content: resp.Data.Content})
	}
	if len(pages) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return pages, nil
}

// Crawl approximates a crawl by searching within the root URL's domain.
func (j *Jina) Crawl(ctx context.Context, rootURL string, opts CrawlOptions) ([]model.Page, error) {
	u, err := url.Parse(rootURL)
	if err != nil || u.Host == "" {
		return nil, eris.Errorf("jina: invalid crawl root %q", rootURL)
	}
	domain := strings.TrimPrefix(u.Hostname(), "www.")

	query := opts.Instructions
	if query == "" {
		query = domain
	}
	resp, err := j.client.Search(ctx, query, jina.WithSiteFilter(domain))
	if err != nil {
		return nil, err
	}

	pages := make([]model.Page, 0, len(resp.Data))
	for _, r := range resp.Data {
		content := r.Content
		if content == "" {
			content = r.Description
		}
		pages = append(pages, model.Page{URL: r.URL, Title: r.Title, Content: content})
	}
	return pages, nil
}

// blocked reports whether a Reader response is empty, an error, or a bot
// challenge page.
func blocked(resp *jina.ReadResponse) bool {
	if resp == nil {
		return true
	}
	if resp.Code != 0 && resp.Code != 200 {
		return true
	}
	content := strings.TrimSpace(resp.Data.Content)
	if len(content) < minReadableContent {
		return true
	}
	lower := strings.ToLower(content)
	for _, sig := range challengeSignatures {
		if strings.Contains(lower, sig) && len(content) < 1000 {
			return true
		}
	}
	return false
}
