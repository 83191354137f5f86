package pipeline

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/competitive-intel/internal/chart"
	"github.com/sells-group/competitive-intel/internal/generate"
	"github.com/sells-group/competitive-intel/internal/model"
)

const analysisSystem = `You are a competitive intelligence analyst. Write a markdown report that answers the user's question for the subject company against each competitor.
Cover positioning, pricing, features, strengths and weaknesses, risks and recommendations. Cite source URLs inline. Where the input notes missing data, say so rather than guessing.`

const chartSystem = "Extract structured data from the report and return ONLY valid JSON."

// analyze streams the report, checkpointing the growing text, then derives
// chart data from the finished report.
func (p *Pipeline) analyze(ctx context.Context, job *model.Job, w *jobWriter) outcome {
	log := zap.L().With(zap.String("job_id", job.ID), zap.String("stage", string(model.StageAnalysis)))

	input, gaps := analysisContext(job, p.cfg.Pipeline.ContextTruncate)
	base := model.JobUpdate{AnalysisMode: job.AnalysisMode, Degraded: gaps}
	if input == "" {
		return outcome{fatal: true, delta: base, err: eris.New("analysis: no data available for analysis")}
	}

	stream, err := p.gen.Stream(ctx, generate.Prompt{
		System:  analysisSystem,
		User:    input,
		Purpose: "analysis",
	}, generate.TierFor(job.AnalysisMode))
	if err != nil {
		return outcome{fatal: true, delta: base, err: eris.Wrap(err, "analysis: start stream")}
	}
	defer stream.Close() //nolint:errcheck

	acc := newAccumulator(p.cfg.Pipeline.CheckpointEvery)
	for stream.Next() {
		if acc.add(stream.Chunk()) {
			p.checkpoint(ctx, w, job, acc.text())
		}
	}

	text := acc.text()
	if err := stream.Err(); err != nil {
		u := base
		if text != "" {
			u.AnalysisText = &text
		}
		log.Error("pipeline: analysis stream interrupted", zap.Int("chunks", acc.count()), zap.Int("chars", len(text)))
		return outcome{fatal: true, delta: u, err: eris.Wrap(err, "analysis: stream interrupted")}
	}
	if strings.TrimSpace(text) == "" {
		return outcome{fatal: true, delta: base, err: eris.New("analysis: stream produced no text")}
	}
	log.Info("pipeline: analysis streamed", zap.Int("chunks", acc.count()), zap.Int("chars", len(text)))

	u := base
	u.AnalysisText = &text
	data, err := p.chartData(ctx, job, text)
	if err != nil {
		log.Warn("pipeline: chart data unavailable", zap.Error(err))
		u.ChartError = err.Error()
	} else {
		u.ChartData = data
	}
	return succeeded(u)
}

// checkpoint writes the partial report. A failed write is logged and the
// stream continues; the final write carries the full text.
func (p *Pipeline) checkpoint(ctx context.Context, w *jobWriter, job *model.Job, text string) {
	if _, err := w.write(ctx, model.JobUpdate{AnalysisText: &text, AnalysisMode: job.AnalysisMode}); err != nil {
		zap.L().Warn("pipeline: analysis checkpoint failed",
			zap.String("job_id", job.ID),
			zap.Int("chars", len(text)),
			zap.Error(err),
		)
		return
	}
	p.metrics.Checkpoint()
}

func (p *Pipeline) chartData(ctx context.Context, job *model.Job, report string) (*model.ChartData, error) {
	companies := append([]string{job.CompanyName}, job.Competitors...)
	var keys []string
	for i, c := range companies {
		keys = append(keys, fmt.Sprintf("%q: %d", c, 7+i%3))
	}

	prompt := fmt.Sprintf(`Report:
%s

Return JSON with exactly these keys:
{
  "pricing": [{"tier": "<plan name>", %s}],
  "features": [{"feature": "<feature>", %s}],
  "risks": [{"category": "<risk>", %s}]
}
Pricing values are monthly USD prices (0 when free or unknown). Feature and risk values are scores from 0 to 10.
Use exactly these company keys: %s.`,
		report, strings.Join(keys, ", "), strings.Join(keys, ", "), strings.Join(keys, ", "), strings.Join(companies, ", "))

	text, err := p.gen.Complete(ctx, generate.Prompt{
		System:      chartSystem,
		User:        prompt,
		MaxTokens:   1500,
		Purpose:     "chart_data",
		Temperature: generate.Temp(0),
	}, generate.TierStandard)
	if err != nil {
		return nil, eris.Wrap(err, "analysis: chart data completion")
	}
	data, err := chart.Validate([]byte(generate.CleanJSON(text)))
	if err != nil {
		return nil, eris.Wrap(err, "analysis: chart data")
	}
	return data, nil
}

// analysisContext renders the prior stage outputs into the report prompt.
// It returns "" when no stage produced usable data, plus the names of the
// stages whose data is missing.
func analysisContext(job *model.Job, limit int) (string, []string) {
	if limit <= 0 {
		limit = 2000
	}
	out := job.StageOutputs

	var gaps []string
	if !model.Usable(out.Research) {
		gaps = append(gaps, string(model.StageResearch))
	}
	if !model.Usable(out.Extraction) {
		gaps = append(gaps, string(model.StageExtraction))
	}
	if !model.Usable(out.Crawl) {
		gaps = append(gaps, string(model.StageCrawl))
	}
	if len(gaps) == 3 {
		return "", gaps
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Company: %s\nQuestion: %s\nCompetitors: %s\n", job.CompanyName, job.QueryText, strings.Join(job.Competitors, ", "))
	if d := out.Discovery; d != nil {
		fmt.Fprintf(&b, "Company profile: %s; target customer: %s; segment: %s\n",
			d.Profile.PrimaryBusiness, d.Profile.TargetCustomer, d.Profile.MarketSegment)
	}
	for _, g := range gaps {
		fmt.Fprintf(&b, "NOTE: %s data unavailable\n", g)
	}

	b.WriteString("\n=== RESEARCH SUMMARIES ===\n")
	for _, r := range out.Research {
		if r.Status != model.ItemSuccess {
			fmt.Fprintf(&b, "\n## %s\nNOTE: research failed: %s\n", r.Competitor, r.Error)
			continue
		}
		fmt.Fprintf(&b, "\n## %s\n%s\n", r.Competitor, truncate(r.Answer, limit))
		for _, s := range r.Sources {
			fmt.Fprintf(&b, "- %s (%s)\n", s.Title, s.URL)
		}
	}

	b.WriteString("\n=== EXTRACTED CONTENT ===\n")
	for _, e := range out.Extraction {
		if e.Status != model.ItemSuccess {
			continue
		}
		fmt.Fprintf(&b, "\n## %s\n", e.Competitor)
		for _, pg := range e.Pages {
			fmt.Fprintf(&b, "URL: %s\n%s\n", pg.URL, truncate(pg.Content, limit))
		}
	}

	b.WriteString("\n=== DEEP CRAWL FINDINGS ===\n")
	for _, c := range out.Crawl {
		if c.Status != model.ItemSuccess {
			continue
		}
		fmt.Fprintf(&b, "\n## %s (%s, %d pages from %s)\n%s\n", c.Competitor, c.TargetType, c.PageCount, c.URL, truncate(c.Content, limit))
	}

	return b.String(), gaps
}

// truncate cuts s to n runes, marking the cut.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "... [truncated]"
}
