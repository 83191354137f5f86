package pipeline

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/competitive-intel/internal/model"
	"github.com/sells-group/competitive-intel/internal/search"
)

const pageBreak = "\n\n---PAGE BREAK---\n\n"

// targetKeywords lists URL keywords per crawl target, highest priority first.
var targetKeywords = []struct {
	target   model.CrawlTarget
	keywords []string
}{
	{model.CrawlTargetPricing, []string{"pricing", "plans", "cost"}},
	{model.CrawlTargetFeatures, []string{"features", "capabilities", "product"}},
	{model.CrawlTargetDocumentation, []string{"docs", "documentation", "api"}},
}

// crawl walks each competitor's site starting from the most informative
// research URL.
func (p *Pipeline) crawl(ctx context.Context, job *model.Job, _ *jobWriter) outcome {
	research := researchByCompetitor(job)

	results := forEach(ctx, job.Competitors, func(ctx context.Context, _ int, competitor string) model.CrawlResult {
		res := model.CrawlResult{Competitor: competitor, Status: model.ItemFailed}

		r, ok := research[competitor]
		if !ok || r.Status != model.ItemSuccess {
			res.Error = "no research sources"
			return res
		}
		target, kind := pickTarget(r.Sources)
		if target == "" {
			res.Error = "no crawlable url"
			return res
		}
		root, err := rootURL(target)
		if err != nil {
			res.Error = err.Error()
			return res
		}
		res.URL = root
		res.TargetType = kind

		pages, err := p.search.Crawl(ctx, root, search.CrawlOptions{
			MaxPages:     p.cfg.Crawl.MaxPages,
			MaxDepth:     p.cfg.Crawl.MaxDepth,
			Instructions: fmt.Sprintf("Find %s information about %s", kind, competitor),
		})
		if err != nil {
			res.Error = err.Error()
			return res
		}

		res.Status = model.ItemSuccess
		res.PageCount = len(pages)
		res.Content = joinPages(pages)
		return res
	})

	u := model.JobUpdate{Crawl: results}
	if !model.Usable(results) {
		return degraded(u, eris.New("crawl: every competitor crawl failed"))
	}
	return succeeded(u)
}

// pickTarget returns the source URL with the highest-priority target type.
// Pricing beats features beats documentation beats the homepage; otherwise
// the first source is used.
func pickTarget(sources []model.Source) (string, model.CrawlTarget) {
	for _, tk := range targetKeywords {
		for _, s := range sources {
			lower := strings.ToLower(urlPath(s.URL))
			for _, kw := range tk.keywords {
				if strings.Contains(lower, kw) {
					return s.URL, tk.target
				}
			}
		}
	}
	for _, s := range sources {
		u, err := url.Parse(s.URL)
		if err == nil && (u.Path == "" || u.Path == "/") {
			return s.URL, model.CrawlTargetHomepage
		}
	}
	for _, s := range sources {
		if s.URL != "" {
			return s.URL, model.CrawlTargetGeneral
		}
	}
	return "", ""
}

func urlPath(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return u.Path
}

// rootURL reduces raw to scheme://host with any leading "www." removed.
func rootURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return "", eris.Errorf("crawl: invalid url %q", raw)
	}
	scheme := u.Scheme
	if scheme == "" {
		scheme = "https"
	}
	return scheme + "://" + strings.TrimPrefix(strings.ToLower(u.Host), "www."), nil
}

func joinPages(pages []model.Page) string {
	parts := make([]string, 0, len(pages))
	for _, pg := range pages {
		parts = append(parts, fmt.Sprintf("URL: %s\n%s", pg.URL, strings.TrimSpace(pg.Content)))
	}
	return strings.Join(parts, pageBreak)
}
