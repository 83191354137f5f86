package search

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/competitive-intel/internal/model"
	"github.com/sells-group/competitive-intel/pkg/tavily"
)

// Tavily is the primary provider for search, extract and crawl.
type Tavily struct {
	client tavily.Client
	now    func() time.Time
}

// NewTavily wraps a Tavily client.
func NewTavily(client tavily.Client) *Tavily {
	return &Tavily{client: client, now: time.Now}
}

func (t *Tavily) Name() string { return "tavily" }

func (t *Tavily) Search(ctx context.Context, q Query) (*Response, error) {
	req := tavily.SearchRequest{
		Query:          q.Text,
		SearchDepth:    q.Depth,
		MaxResults:     q.MaxResults,
		IncludeAnswer:  q.IncludeAnswer,
		IncludeDomains: q.IncludeDomains,
		ExcludeDomains: q.ExcludeDomains,
	}
	if days, ok := q.Freshness.Days(); ok {
		req.StartDate = t.now().UTC().AddDate(0, 0, -days).Format(time.DateOnly)
	}

	resp, err := t.client.Search(ctx, req)
	if err != nil {
		return nil, err
	}

	out := &Response{Answer: resp.Answer, Provider: t.Name()}
	for _, r := range resp.Results {
		out.Results = append(out.Results, model.Source{
			Title:   r.Title,
			URL:     r.URL,
			Content: r.Content,
			Score:   r.Score,
		})
	}
	return out, nil
}

func (t *Tavily) Extract(ctx context.Context, urls []string) ([]model.Page, error) {
	resp, err := t.client.Extract(ctx, tavily.ExtractRequest{URLs: urls, ExtractDepth: "basic"})
	if err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 && len(resp.FailedResults) > 0 {
		msgs := make([]string, 0, len(resp.FailedResults))
		for _, f := range resp.FailedResults {
			msgs = append(msgs, f.URL+": "+f.Error)
		}
		return nil, eris.Errorf("tavily: extract failed for all urls: %s", strings.Join(msgs, "; "))
	}
	return tavilyPages(resp.Results), nil
}

func (t *Tavily) Crawl(ctx context.Context, rootURL string, opts CrawlOptions) ([]model.Page, error) {
	resp, err := t.client.Crawl(ctx, tavily.CrawlRequest{
		URL:          rootURL,
		MaxDepth:     opts.MaxDepth,
		Limit:        opts.MaxPages,
		Instructions: opts.Instructions,
	})
	if err != nil {
		return nil, err
	}
	return tavilyPages(resp.Results), nil
}

func tavilyPages(results []tavily.PageResult) []model.Page {
	pages := make([]model.Page, 0, len(results))
	for _, r := range results {
		pages = append(pages, model.Page{URL: r.URL, Content: r.RawContent})
	}
	return pages
}
