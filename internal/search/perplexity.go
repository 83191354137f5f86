package search

import (
	"context"
	"strings"

	"github.com/sells-group/competitive-intel/internal/model"
	"github.com/sells-group/competitive-intel/pkg/perplexity"
)

const perplexitySystemPrompt = "You are a web research assistant. Answer the query using current web sources. Be factual and concise."

// Perplexity is the search fallback. Its answer becomes the response answer
// and its cited sources become the results.
type Perplexity struct {
	client perplexity.Client
}

// NewPerplexity wraps a Perplexity client.
func NewPerplexity(client perplexity.Client) *Perplexity {
	return &Perplexity{client: client}
}

func (p *Perplexity) Name() string { return "perplexity" }

func (p *Perplexity) Search(ctx context.Context, q Query) (*Response, error) {
	req := perplexity.ChatCompletionRequest{
		Messages: []perplexity.Message{
			{Role: "system", Content: perplexitySystemPrompt},
			{Role: "user", Content: q.Text},
		},
	}
	if days, ok := q.Freshness.Days(); ok {
		req.SearchRecencyFilter = perplexity.RecencyFilter(days)
	}
	req.SearchDomainFilter = append(req.SearchDomainFilter, q.IncludeDomains...)
	for _, d := range q.ExcludeDomains {
		req.SearchDomainFilter = append(req.SearchDomainFilter, "-"+d)
	}

	resp, err := p.client.ChatCompletion(ctx, req)
	if err != nil {
		return nil, err
	}

	out := &Response{Answer: strings.TrimSpace(resp.Content()), Provider: p.Name()}
	seen := make(map[string]bool)
	for _, sr := range resp.SearchResults {
		if sr.URL == "" || seen[sr.URL] {
			continue
		}
		seen[sr.URL] = true
		out.Results = append(out.Results, model.Source{Title: sr.Title, URL: sr.URL})
	}
	for _, u := range resp.Citations {
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		out.Results = append(out.Results, model.Source{URL: u})
	}
	if q.MaxResults > 0 && len(out.Results) > q.MaxResults {
		out.Results = out.Results[:q.MaxResults]
	}
	return out, nil
}
