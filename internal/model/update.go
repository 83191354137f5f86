package model

import (
	"slices"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

var (
	// ErrTerminal is returned when an update targets a completed or failed job.
	ErrTerminal = eris.New("model: job is in a terminal state")
	// ErrInvariant is returned when an update would break a job invariant.
	ErrInvariant = eris.New("model: job invariant violated")
)

// JobUpdate is a delta applied to a stored job. Scalar fields overwrite when
// set; list fields merge (stages unioned, errors appended).
type JobUpdate struct {
	Status          *JobStatus
	Competitors     []string
	CompletedStages []Stage
	Errors          []StageError
	Timings         map[Stage]StageTiming

	Discovery    *DiscoveryOutput
	Research     []ResearchResult
	Extraction   []ExtractionResult
	Crawl        []CrawlResult
	AnalysisMode AnalysisMode
	AnalysisText *string
	ChartData    *ChartData
	ChartError   string
	Degraded     []string

	CompletedAt *time.Time
}

// StatusPtr is a convenience for building updates.
func StatusPtr(s JobStatus) *JobStatus { return &s }

// Apply merges u into j. j is left unchanged when an error is returned.
func (j *Job) Apply(u JobUpdate, now time.Time) error {
	if j.Status.IsTerminal() {
		return ErrTerminal
	}

	next := *j
	next.CompletedStages = slices.Clone(j.CompletedStages)
	next.Errors = slices.Clone(j.Errors)

	if len(u.Competitors) > 0 {
		if !j.UseAutoDiscovery || j.HasCompleted(StageDiscovery) {
			return eris.Wrap(ErrInvariant, "competitors are fixed")
		}
		next.Competitors = DistinctNames(u.Competitors)
	}

	for _, st := range u.CompletedStages {
		if next.HasCompleted(st) {
			continue
		}
		next.CompletedStages = append(next.CompletedStages, st)
	}
	slices.SortStableFunc(next.CompletedStages, func(a, b Stage) int { return a.Index() - b.Index() })

	next.Errors = append(next.Errors, u.Errors...)

	if len(u.Timings) > 0 {
		timings := make(map[Stage]StageTiming, len(j.StageTimings)+len(u.Timings))
		for k, v := range j.StageTimings {
			timings[k] = v
		}
		for k, v := range u.Timings {
			timings[k] = v
		}
		next.StageTimings = timings
	}

	if err := next.applyOutputs(u); err != nil {
		return err
	}

	if u.Status != nil {
		next.Status = *u.Status
	}
	switch next.Status {
	case JobStatusCompleted:
		if a := next.StageOutputs.Analysis; a == nil || a.Text == "" {
			return eris.Wrap(ErrInvariant, "completed job without analysis text")
		}
	case JobStatusFailed:
		if len(next.Errors) == 0 {
			return eris.Wrap(ErrInvariant, "failed job without errors")
		}
	}
	if next.Status.IsTerminal() && next.CompletedAt == nil {
		at := now.UTC()
		if u.CompletedAt != nil {
			at = u.CompletedAt.UTC()
		}
		next.CompletedAt = &at
	}

	next.UpdatedAt = now.UTC()
	*j = next
	return nil
}

func (j *Job) applyOutputs(u JobUpdate) error {
	out := j.StageOutputs

	if u.Discovery != nil {
		if out.Discovery != nil {
			return eris.Wrap(ErrInvariant, "discovery output already written")
		}
		out.Discovery = u.Discovery
	}
	if u.Research != nil {
		if out.Research != nil {
			return eris.Wrap(ErrInvariant, "research output already written")
		}
		out.Research = u.Research
	}
	if u.Extraction != nil {
		if out.Extraction != nil {
			return eris.Wrap(ErrInvariant, "extraction output already written")
		}
		out.Extraction = u.Extraction
	}
	if u.Crawl != nil {
		if out.Crawl != nil {
			return eris.Wrap(ErrInvariant, "crawl output already written")
		}
		out.Crawl = u.Crawl
	}

	if u.AnalysisText != nil || u.ChartData != nil || u.ChartError != "" || u.Degraded != nil || u.AnalysisMode != "" {
		a := AnalysisOutput{}
		if out.Analysis != nil {
			a = *out.Analysis
		}
		if u.AnalysisText != nil {
			if !strings.HasPrefix(*u.AnalysisText, a.Text) {
				return eris.Wrap(ErrInvariant, "analysis text is append-only")
			}
			a.Text = *u.AnalysisText
		}
		if u.ChartData != nil {
			a.ChartData = u.ChartData
		}
		if u.ChartError != "" {
			a.ChartError = u.ChartError
		}
		if u.Degraded != nil {
			a.Degraded = u.Degraded
		}
		if u.AnalysisMode != "" {
			a.Mode = u.AnalysisMode
		}
		out.Analysis = &a
	}

	j.StageOutputs = out
	return nil
}
