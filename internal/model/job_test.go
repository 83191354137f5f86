package model

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestJob(auto bool) *Job {
	req := SubmitRequest{
		CompanyName:      "Acme",
		Query:            "pricing and positioning",
		Competitors:      []string{"Beta", "Gamma"},
		UseAutoDiscovery: auto,
		Freshness:        FreshnessThreeMonths,
	}
	return NewJob("job-1", req, t0)
}

func strPtr(s string) *string { return &s }

func TestNewJob(t *testing.T) {
	j := newTestJob(false)
	assert.Equal(t, JobStatusProcessing, j.Status)
	assert.Equal(t, []string{"Beta", "Gamma"}, j.Competitors)
	assert.Equal(t, AnalysisModeStandard, j.AnalysisMode)
	assert.Equal(t, DefaultMaxCompetitors, j.MaxCompetitors)
	assert.Empty(t, j.CompletedStages)
	assert.Nil(t, j.CompletedAt)

	auto := newTestJob(true)
	assert.Empty(t, auto.Competitors)
}

func TestStages(t *testing.T) {
	assert.Equal(t, []Stage{StageResearch, StageExtraction, StageCrawl, StageAnalysis}, Stages(false))
	assert.Equal(t, []Stage{StageDiscovery, StageResearch, StageExtraction, StageCrawl, StageAnalysis}, Stages(true))
	assert.Equal(t, []Stage{StageExtraction, StageCrawl}, StageAnalysis.Prerequisites(false))
	assert.Nil(t, StageResearch.Prerequisites(false))
	assert.Equal(t, []Stage{StageDiscovery}, StageResearch.Prerequisites(true))
	assert.Equal(t, -1, StagePending.Index())
}

func TestFreshness(t *testing.T) {
	tests := []struct {
		in     string
		days   int
		hasDay bool
		err    bool
	}{
		{"", 0, false, false},
		{"anytime", 0, false, false},
		{"1month", 30, true, false},
		{"3months", 90, true, false},
		{"6months", 180, true, false},
		{"1year", 365, true, false},
		{"2weeks", 0, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			f, err := ParseFreshness(tt.in)
			if tt.err {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			days, ok := f.Days()
			assert.Equal(t, tt.hasDay, ok)
			assert.Equal(t, tt.days, days)
		})
	}
}

func TestApply_CompletedStagesMonotonic(t *testing.T) {
	j := newTestJob(false)

	require.NoError(t, j.Apply(JobUpdate{CompletedStages: []Stage{StageResearch}}, t0.Add(time.Second)))
	require.NoError(t, j.Apply(JobUpdate{CompletedStages: []Stage{StageCrawl}}, t0.Add(2*time.Second)))
	require.NoError(t, j.Apply(JobUpdate{CompletedStages: []Stage{StageExtraction, StageResearch}}, t0.Add(3*time.Second)))

	assert.Equal(t, []Stage{StageResearch, StageExtraction, StageCrawl}, j.CompletedStages)
	assert.Equal(t, StageCrawl, j.LastStage())
	assert.Equal(t, t0.Add(3*time.Second), j.UpdatedAt)
}

func TestApply_ErrorsAppend(t *testing.T) {
	j := newTestJob(false)
	require.NoError(t, j.Apply(JobUpdate{Errors: []StageError{{Stage: StageCrawl, Message: "a"}}}, t0))
	require.NoError(t, j.Apply(JobUpdate{Errors: []StageError{{Stage: StageExtraction, Message: "b"}}}, t0))
	require.Len(t, j.Errors, 2)
	assert.Equal(t, "a", j.Errors[0].Message)
	assert.Equal(t, "b", j.Errors[1].Message)
}

func TestApply_StageOutputWrittenOnce(t *testing.T) {
	j := newTestJob(false)
	research := []ResearchResult{{Competitor: "Beta", Status: ItemSuccess}}
	require.NoError(t, j.Apply(JobUpdate{Research: research}, t0))

	err := j.Apply(JobUpdate{Research: research}, t0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvariant))
	assert.Len(t, j.StageOutputs.Research, 1)
}

func TestApply_AnalysisTextAppendOnly(t *testing.T) {
	j := newTestJob(false)
	require.NoError(t, j.Apply(JobUpdate{AnalysisText: strPtr("## Over")}, t0))
	require.NoError(t, j.Apply(JobUpdate{AnalysisText: strPtr("## Overview\n")}, t0))
	assert.Equal(t, "## Overview\n", j.StageOutputs.Analysis.Text)

	err := j.Apply(JobUpdate{AnalysisText: strPtr("rewritten")}, t0)
	require.ErrorIs(t, err, ErrInvariant)
	assert.Equal(t, "## Overview\n", j.StageOutputs.Analysis.Text)
}

func TestApply_CompletedRequiresAnalysisText(t *testing.T) {
	j := newTestJob(false)
	err := j.Apply(JobUpdate{Status: StatusPtr(JobStatusCompleted)}, t0)
	require.ErrorIs(t, err, ErrInvariant)
	assert.Equal(t, JobStatusProcessing, j.Status)

	done := t0.Add(time.Minute)
	require.NoError(t, j.Apply(JobUpdate{
		AnalysisText:    strPtr("report"),
		ChartData:       &ChartData{Pricing: []ChartRecord{{"name": "Basic", "Beta": 10.0}}},
		CompletedStages: []Stage{StageAnalysis},
		Status:          StatusPtr(JobStatusCompleted),
	}, done))
	assert.Equal(t, JobStatusCompleted, j.Status)
	require.NotNil(t, j.CompletedAt)
	assert.Equal(t, done, *j.CompletedAt)
	assert.False(t, j.CompletedAt.Before(j.CreatedAt))
}

func TestApply_FailedRequiresErrors(t *testing.T) {
	j := newTestJob(false)
	require.ErrorIs(t, j.Apply(JobUpdate{Status: StatusPtr(JobStatusFailed)}, t0), ErrInvariant)

	require.NoError(t, j.Apply(JobUpdate{
		Status: StatusPtr(JobStatusFailed),
		Errors: []StageError{{Stage: StageResearch, Message: "no usable competitors"}},
	}, t0))
	assert.Equal(t, JobStatusFailed, j.Status)
	assert.NotNil(t, j.CompletedAt)
}

func TestApply_TerminalIsFinal(t *testing.T) {
	j := newTestJob(false)
	require.NoError(t, j.Apply(JobUpdate{
		Status: StatusPtr(JobStatusFailed),
		Errors: []StageError{{Stage: StageResearch, Message: "x"}},
	}, t0))
	completedAt := *j.CompletedAt

	err := j.Apply(JobUpdate{CompletedStages: []Stage{StageResearch}}, t0.Add(time.Hour))
	require.ErrorIs(t, err, ErrTerminal)
	assert.Equal(t, completedAt, *j.CompletedAt)
	assert.Empty(t, j.CompletedStages)
}

func TestApply_CompetitorsSetOnceByDiscovery(t *testing.T) {
	manual := newTestJob(false)
	require.ErrorIs(t, manual.Apply(JobUpdate{Competitors: []string{"Delta"}}, t0), ErrInvariant)

	auto := newTestJob(true)
	require.NoError(t, auto.Apply(JobUpdate{
		Competitors:     []string{"Delta", "delta", "Epsilon"},
		CompletedStages: []Stage{StageDiscovery},
	}, t0))
	assert.Equal(t, []string{"Delta", "Epsilon"}, auto.Competitors)

	require.ErrorIs(t, auto.Apply(JobUpdate{Competitors: []string{"Zeta"}}, t0), ErrInvariant)
}

func TestApply_TimingsMerge(t *testing.T) {
	j := newTestJob(false)
	require.NoError(t, j.Apply(JobUpdate{Timings: map[Stage]StageTiming{StageResearch: {StartedAt: t0, FinishedAt: t0.Add(time.Second)}}}, t0))
	require.NoError(t, j.Apply(JobUpdate{Timings: map[Stage]StageTiming{StageCrawl: {StartedAt: t0, FinishedAt: t0.Add(2 * time.Second)}}}, t0))
	assert.Len(t, j.StageTimings, 2)
}

func TestJob_JSONShape(t *testing.T) {
	j := newTestJob(false)
	b, err := json.Marshal(j)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(b, &raw))
	for _, key := range []string{"job_id", "company_name", "query_text", "competitors", "freshness", "analysis_mode", "status", "completed_stages", "stage_outputs", "errors", "created_at"} {
		assert.Contains(t, raw, key)
	}
	assert.NotContains(t, raw, "completed_at")
}

func TestUsable(t *testing.T) {
	assert.False(t, Usable([]ResearchResult{{Status: ItemFailed}}))
	assert.True(t, Usable([]CrawlResult{{Status: ItemFailed}, {Status: ItemSuccess}}))
	assert.False(t, Usable[ExtractionResult](nil))
}
