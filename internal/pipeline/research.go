package pipeline

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/competitive-intel/internal/model"
	"github.com/sells-group/competitive-intel/internal/search"
)

// research runs one search per competitor. Failed or empty searches are
// recorded per item; the stage is fatal only when every item failed.
func (p *Pipeline) research(ctx context.Context, job *model.Job, _ *jobWriter) outcome {
	if len(job.Competitors) == 0 {
		return fatal(model.StageResearch, eris.New("research: no competitors to research"))
	}

	results := forEach(ctx, job.Competitors, func(ctx context.Context, _ int, competitor string) model.ResearchResult {
		res := model.ResearchResult{Competitor: competitor, Status: model.ItemFailed}

		resp, err := p.search.Search(ctx, search.Query{
			Text:           competitor + " " + job.QueryText,
			Freshness:      job.Freshness,
			Depth:          p.cfg.Search.Depth,
			MaxResults:     p.cfg.Search.MaxResults,
			IncludeAnswer:  true,
			ExcludeDomains: p.cfg.Search.ExcludeDomains,
		})
		if err != nil {
			res.Error = err.Error()
			return res
		}
		if len(resp.Results) == 0 {
			res.Error = "no search results"
			return res
		}

		res.Status = model.ItemSuccess
		res.Answer = resp.Answer
		res.Sources = resp.Results
		return res
	})

	u := model.JobUpdate{Research: results}
	if !model.Usable(results) {
		return outcome{fatal: true, delta: u, err: eris.New("research: every competitor search failed")}
	}
	return succeeded(u)
}
