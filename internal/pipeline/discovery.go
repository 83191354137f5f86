package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/competitive-intel/internal/generate"
	"github.com/sells-group/competitive-intel/internal/model"
	"github.com/sells-group/competitive-intel/internal/search"
)

const maxDiscoveryQueries = 4

const profileSystem = `You are a market analyst. Describe the company's market position.
Return ONLY a JSON object with keys: primary_business, target_customer, value_proposition, market_segment, search_terms (array of 3-5 short phrases used to find competitors).`

const namesSystem = `You extract company names from web search results.
Return ONLY a JSON array of strings naming companies that compete with the subject company. Exclude the subject company, publishers, review sites and directories.`

// discover classifies the company, searches for candidate competitors and
// keeps up to the job's maximum distinct names.
func (p *Pipeline) discover(ctx context.Context, job *model.Job, _ *jobWriter) outcome {
	log := zap.L().With(zap.String("job_id", job.ID), zap.String("stage", string(model.StageDiscovery)))
	limit := job.MaxCompetitors
	if limit < 1 || limit > model.MaxCompetitors {
		limit = p.cfg.Pipeline.DiscoveryMax
	}

	profile := p.companyProfile(ctx, job)
	queries := discoveryQueries(job.CompanyName, profile)
	want := int(math.Ceil(float64(limit) * 1.5))

	var candidates []string
	for _, q := range queries {
		if len(candidates) >= want {
			break
		}
		resp, err := p.search.Search(ctx, search.Query{
			Text:       q,
			Freshness:  job.Freshness,
			Depth:      "basic",
			MaxResults: p.cfg.Search.MaxResults,
		})
		if err != nil {
			log.Warn("pipeline: discovery search failed", zap.String("query", q), zap.Error(err))
			continue
		}
		names, err := p.namesFromResults(ctx, job.CompanyName, resp)
		if err != nil {
			log.Warn("pipeline: discovery name extraction failed", zap.String("query", q), zap.Error(err))
			continue
		}
		candidates = model.DistinctNames(append(candidates, names...))
	}

	out := &model.DiscoveryOutput{Profile: profile, Queries: queries}
	found := len(validCompetitors(job.CompanyName, candidates, limit))
	if found < limit {
		extra, err := p.suggestCompetitors(ctx, job, profile, limit-found+2)
		if err != nil {
			log.Warn("pipeline: discovery fallback failed", zap.Error(err))
		} else {
			out.UsedFallback = true
			candidates = model.DistinctNames(append(candidates, extra...))
		}
	}

	out.Candidates = candidates
	out.Competitors = validCompetitors(job.CompanyName, candidates, limit)
	if len(out.Competitors) == 0 {
		return outcome{
			fatal: true,
			delta: model.JobUpdate{Discovery: out},
			err:   eris.Errorf("discovery: no competitors found for %s", job.CompanyName),
		}
	}

	log.Info("pipeline: competitors discovered",
		zap.Strings("competitors", out.Competitors),
		zap.Int("candidates", len(candidates)),
		zap.Bool("fallback", out.UsedFallback),
	)
	return succeeded(model.JobUpdate{Discovery: out, Competitors: out.Competitors})
}

// companyProfile asks for a JSON profile and falls back to one derived from
// the name when the reply cannot be parsed.
func (p *Pipeline) companyProfile(ctx context.Context, job *model.Job) model.CompanyProfile {
	fallback := model.CompanyProfile{
		PrimaryBusiness: job.CompanyName,
		MarketSegment:   job.CompanyName,
		SearchTerms:     []string{job.CompanyName + " competitors"},
	}

	text, err := p.gen.Complete(ctx, generate.Prompt{
		System:      profileSystem,
		User:        fmt.Sprintf("Company: %s\nUser question: %s", job.CompanyName, job.QueryText),
		MaxTokens:   500,
		Purpose:     "company_profile",
		Temperature: generate.Temp(0),
	}, generate.TierStandard)
	if err != nil {
		zap.L().Warn("pipeline: company profile failed, using fallback", zap.String("job_id", job.ID), zap.Error(err))
		return fallback
	}

	var profile model.CompanyProfile
	if err := json.Unmarshal([]byte(generate.CleanJSON(text)), &profile); err != nil || profile.PrimaryBusiness == "" {
		zap.L().Warn("pipeline: company profile unparseable, using fallback", zap.String("job_id", job.ID))
		return fallback
	}
	return profile
}

// discoveryQueries builds the search queries, most specific first.
func discoveryQueries(company string, profile model.CompanyProfile) []string {
	queries := []string{
		company + " vs competitors",
		company + " alternatives comparison",
	}
	if profile.MarketSegment != "" {
		queries = append(queries, "best "+profile.MarketSegment+" companies")
	}
	if profile.PrimaryBusiness != "" {
		queries = append(queries, "top "+profile.PrimaryBusiness+" providers")
	}
	queries = append(queries, profile.SearchTerms...)

	queries = model.DistinctNames(queries)
	if len(queries) > maxDiscoveryQueries {
		queries = queries[:maxDiscoveryQueries]
	}
	return queries
}

func (p *Pipeline) namesFromResults(ctx context.Context, company string, resp *search.Response) ([]string, error) {
	if resp == nil || (len(resp.Results) == 0 && resp.Answer == "") {
		return nil, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Subject company: %s\n\n", company)
	if resp.Answer != "" {
		fmt.Fprintf(&b, "Summary: %s\n\n", resp.Answer)
	}
	for _, r := range resp.Results {
		fmt.Fprintf(&b, "- %s (%s)\n  %s\n", r.Title, r.URL, truncate(r.Content, 500))
	}

	text, err := p.gen.Complete(ctx, generate.Prompt{
		System:    namesSystem,
		User:      b.String(),
		MaxTokens: 300,
		Purpose:   "competitor_names",
	}, generate.TierStandard)
	if err != nil {
		return nil, err
	}
	return parseNames(text)
}

func (p *Pipeline) suggestCompetitors(ctx context.Context, job *model.Job, profile model.CompanyProfile, n int) ([]string, error) {
	text, err := p.gen.Complete(ctx, generate.Prompt{
		System: namesSystem,
		User: fmt.Sprintf("Name %d direct competitors of %s.\nBusiness: %s\nTarget customer: %s\nSegment: %s",
			n, job.CompanyName, profile.PrimaryBusiness, profile.TargetCustomer, profile.MarketSegment),
		MaxTokens: 300,
		Purpose:   "competitor_fallback",
	}, generate.TierStandard)
	if err != nil {
		return nil, err
	}
	return parseNames(text)
}

func parseNames(text string) ([]string, error) {
	var names []string
	if err := json.Unmarshal([]byte(generate.CleanJSON(text)), &names); err != nil {
		return nil, eris.Wrap(err, "discovery: parse competitor names")
	}
	return names, nil
}

// validCompetitors drops the company itself and duplicates, keeping at most
// limit names in order.
func validCompetitors(company string, candidates []string, limit int) []string {
	out := make([]string, 0, limit)
	for _, c := range model.DistinctNames(candidates) {
		if model.SameName(c, company) {
			continue
		}
		out = append(out, c)
		if len(out) == limit {
			break
		}
	}
	return out
}
