package pipeline

import (
	"context"
	"time"

	"github.com/sells-group/competitive-intel/internal/model"
)

// stageFunc runs one stage against a durable snapshot of the job. Only the
// analysis stage uses w, for its checkpoints.
type stageFunc func(ctx context.Context, job *model.Job, w *jobWriter) outcome

type descriptor struct {
	stage    model.Stage
	requires []model.Stage
	run      stageFunc
}

// step is a set of descriptors that run together; more than one is a
// fan-out joined before the next step.
type step []descriptor

// buildPlan selects the step list for job once, at start.
func buildPlan(p *Pipeline, job *model.Job) []step {
	auto := job.UseAutoDiscovery
	d := func(s model.Stage, run stageFunc) descriptor {
		return descriptor{stage: s, requires: s.Prerequisites(auto), run: run}
	}

	var plan []step
	if auto {
		plan = append(plan, step{d(model.StageDiscovery, p.discover)})
	}
	plan = append(plan,
		step{d(model.StageResearch, p.research)},
		step{d(model.StageExtraction, p.extract), d(model.StageCrawl, p.crawl)},
		step{d(model.StageAnalysis, p.analyze)},
	)
	return plan
}

// outcome is the tagged result of one stage. usable means later stages have
// data to work with; fatal means the job cannot continue.
type outcome struct {
	stage    model.Stage
	usable   bool
	fatal    bool
	delta    model.JobUpdate
	err      error
	writeErr error

	started  time.Time
	finished time.Time
}

func succeeded(u model.JobUpdate) outcome {
	return outcome{usable: true, delta: u}
}

// degraded is a stage that ran but produced nothing usable.
func degraded(u model.JobUpdate, err error) outcome {
	return outcome{delta: u, err: err}
}

func fatal(stage model.Stage, err error) outcome {
	return outcome{stage: stage, fatal: true, err: err}
}

func (o outcome) label() string {
	switch {
	case o.fatal:
		return "failed"
	case !o.usable:
		return "degraded"
	default:
		return "ok"
	}
}
