package pipeline

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/competitive-intel/internal/model"
)

// extract fetches the top research URLs for each competitor.
func (p *Pipeline) extract(ctx context.Context, job *model.Job, _ *jobWriter) outcome {
	research := researchByCompetitor(job)
	perItem := p.cfg.Pipeline.ExtractionURLs
	if perItem < 1 {
		perItem = 2
	}

	candidates := 0
	results := forEach(ctx, job.Competitors, func(ctx context.Context, _ int, competitor string) model.ExtractionResult {
		res := model.ExtractionResult{Competitor: competitor, Status: model.ItemFailed}

		r, ok := research[competitor]
		if !ok || r.Status != model.ItemSuccess {
			res.Error = "no research sources"
			return res
		}
		res.URLs = topURLs(r.Sources, perItem)
		if len(res.URLs) == 0 {
			res.Error = "no candidate urls"
			return res
		}

		pages, err := p.search.Extract(ctx, res.URLs)
		if err != nil {
			res.Error = err.Error()
			return res
		}
		res.Status = model.ItemSuccess
		res.Pages = pages
		return res
	})
	for _, r := range results {
		if len(r.URLs) > 0 {
			candidates++
		}
	}

	u := model.JobUpdate{Extraction: results}
	switch {
	case candidates == 0:
		return degraded(u, eris.New("extraction: no candidate urls"))
	case !model.Usable(results):
		return degraded(u, eris.New("extraction: every competitor extract failed"))
	}
	return succeeded(u)
}

func researchByCompetitor(job *model.Job) map[string]model.ResearchResult {
	out := make(map[string]model.ResearchResult, len(job.StageOutputs.Research))
	for _, r := range job.StageOutputs.Research {
		out[r.Competitor] = r
	}
	return out
}

func topURLs(sources []model.Source, n int) []string {
	var urls []string
	seen := make(map[string]bool)
	for _, s := range sources {
		if s.URL == "" || seen[s.URL] {
			continue
		}
		seen[s.URL] = true
		urls = append(urls, s.URL)
		if len(urls) == n {
			break
		}
	}
	return urls
}
