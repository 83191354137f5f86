package search

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/competitive-intel/internal/model"
	"github.com/sells-group/competitive-intel/pkg/firecrawl"
)

// Firecrawl scrapes single pages and runs asynchronous site crawls.
type Firecrawl struct {
	client   firecrawl.Client
	pollOpts []firecrawl.PollOption
}

// NewFirecrawl wraps a Firecrawl client. pollOpts tune crawl status polling.
func NewFirecrawl(client firecrawl.Client, pollOpts ...firecrawl.PollOption) *Firecrawl {
	return &Firecrawl{client: client, pollOpts: pollOpts}
}

func (f *Firecrawl) Name() string { return "firecrawl" }

func (f *Firecrawl) Extract(ctx context.Context, urls []string) ([]model.Page, error) {
	var (
		pages   []model.Page
		lastErr error
	)
	for _, u := range urls {
		resp, err := f.client.Scrape(ctx, firecrawl.ScrapeRequest{
			URL:             u,
			Formats:         []string{"markdown"},
			OnlyMainContent: true,
		})
		if err != nil {
			lastErr = err
			continue
		}
		if !resp.Success {
			lastErr = eris.Errorf("firecrawl: scrape unsuccessful for %s", u)
			continue
		}
		pages = append(pages, firecrawlPage(resp.Data, u))
	}
	if len(pages) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return pages, nil
}

func (f *Firecrawl) Crawl(ctx context.Context, rootURL string, opts CrawlOptions) ([]model.Page, error) {
	status, err := firecrawl.CrawlAndWait(ctx, f.client, firecrawl.CrawlRequest{
		URL:               rootURL,
		Limit:             opts.MaxPages,
		MaxDiscoveryDepth: opts.MaxDepth,
	}, f.pollOpts...)
	if err != nil {
		return nil, err
	}

	pages := make([]model.Page, 0, len(status.Data))
	for _, d := range status.Data {
		pages = append(pages, firecrawlPage(d, rootURL))
	}
	return pages, nil
}

func firecrawlPage(d firecrawl.PageData, fallbackURL string) model.Page {
	u := d.Metadata.SourceURL
	if u == "" {
		u = fallbackURL
	}
	return model.Page{URL: u, Title: d.Metadata.Title, Content: d.Markdown}
}
