package model

import (
	"time"
)

// JobStatus represents the lifecycle state of a job.
type JobStatus string

const (
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// IsTerminal reports whether no further transitions are allowed.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// AnalysisMode selects the generation model tier for the analysis stage.
type AnalysisMode string

const (
	AnalysisModeStandard AnalysisMode = "standard"
	AnalysisModePremium  AnalysisMode = "premium"
)

// ModeFor maps the submission premium flag to an analysis mode.
func ModeFor(premium bool) AnalysisMode {
	if premium {
		return AnalysisModePremium
	}
	return AnalysisModeStandard
}

// StageError is one entry of a job's append-only error log.
type StageError struct {
	Stage   Stage     `json:"stage"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// StageTiming records when a stage started and finished.
type StageTiming struct {
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Job is one orchestration run for a company and its competitors.
type Job struct {
	ID               string                `json:"job_id"`
	CompanyName      string                `json:"company_name"`
	QueryText        string                `json:"query_text"`
	Competitors      []string              `json:"competitors"`
	UseAutoDiscovery bool                  `json:"use_auto_discovery"`
	MaxCompetitors   int                   `json:"max_competitors"`
	Freshness        Freshness             `json:"freshness"`
	AnalysisMode     AnalysisMode          `json:"analysis_mode"`
	Status           JobStatus             `json:"status"`
	CompletedStages  []Stage               `json:"completed_stages"`
	StageOutputs     StageOutputs          `json:"stage_outputs"`
	StageTimings     map[Stage]StageTiming `json:"stage_timings,omitempty"`
	Errors           []StageError          `json:"errors"`
	CreatedAt        time.Time             `json:"created_at"`
	UpdatedAt        time.Time             `json:"updated_at"`
	CompletedAt      *time.Time            `json:"completed_at,omitempty"`
}

// HasCompleted reports whether stage is in CompletedStages.
func (j *Job) HasCompleted(stage Stage) bool {
	for _, s := range j.CompletedStages {
		if s == stage {
			return true
		}
	}
	return false
}

// LastStage returns the most recently completed stage, or StagePending.
func (j *Job) LastStage() Stage {
	if len(j.CompletedStages) == 0 {
		return StagePending
	}
	return j.CompletedStages[len(j.CompletedStages)-1]
}

// NewJob builds a processing job from a validated request.
func NewJob(id string, req SubmitRequest, now time.Time) *Job {
	req = req.normalized()
	return &Job{
		ID:               id,
		CompanyName:      req.CompanyName,
		QueryText:        req.Query,
		Competitors:      req.Competitors,
		UseAutoDiscovery: req.UseAutoDiscovery,
		MaxCompetitors:   req.MaxCompetitors,
		Freshness:        req.Freshness,
		AnalysisMode:     ModeFor(req.Premium),
		Status:           JobStatusProcessing,
		CompletedStages:  []Stage{},
		Errors:           []StageError{},
		CreatedAt:        now.UTC(),
		UpdatedAt:        now.UTC(),
	}
}
