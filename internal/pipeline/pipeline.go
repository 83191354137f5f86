// Package pipeline runs competitive-intelligence jobs through discovery,
// research, extraction, crawl and analysis, persisting a delta after every
// stage.
package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/competitive-intel/internal/config"
	"github.com/sells-group/competitive-intel/internal/generate"
	"github.com/sells-group/competitive-intel/internal/lease"
	"github.com/sells-group/competitive-intel/internal/metrics"
	"github.com/sells-group/competitive-intel/internal/model"
	"github.com/sells-group/competitive-intel/internal/search"
	"github.com/sells-group/competitive-intel/internal/store"
)

// Pipeline orchestrates the stages of a job.
type Pipeline struct {
	cfg      *config.Config
	store    store.Store
	search   search.Service
	gen      generate.Service
	metrics  *metrics.Collectors
	leases   lease.Manager
	leaseTTL time.Duration
	now      func() time.Time
	newID    func() string

	wg sync.WaitGroup
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithMetrics records stage and job metrics.
func WithMetrics(c *metrics.Collectors) Option {
	return func(p *Pipeline) { p.metrics = c }
}

// WithLeases holds a renewable lease on each job while it runs.
func WithLeases(m lease.Manager, ttl time.Duration) Option {
	return func(p *Pipeline) {
		p.leases = m
		p.leaseTTL = ttl
	}
}

// WithClock overrides time.Now for stage timings.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// WithIDFunc overrides job id generation.
func WithIDFunc(fn func() string) Option {
	return func(p *Pipeline) { p.newID = fn }
}

// New creates a Pipeline.
func New(st store.Store, searchSvc search.Service, gen generate.Service, cfg *config.Config, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:    cfg,
		store:  st,
		search: searchSvc,
		gen:    gen,
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Submit validates req, stores a new processing job and runs it in the
// background. The run outlives ctx; use Wait to drain in-flight jobs.
func (p *Pipeline) Submit(ctx context.Context, req model.SubmitRequest) (*model.Job, error) {
	job, err := p.create(ctx, req)
	if err != nil {
		return nil, err
	}

	runCtx := context.WithoutCancel(ctx)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if _, err := p.Run(runCtx, job); err != nil {
			zap.L().Error("pipeline: run failed", zap.String("job_id", job.ID), zap.Error(err))
		}
	}()

	return job, nil
}

// Execute stores a new job and runs it to completion on the calling
// goroutine.
func (p *Pipeline) Execute(ctx context.Context, req model.SubmitRequest) (*model.Job, error) {
	job, err := p.create(ctx, req)
	if err != nil {
		return nil, err
	}
	return p.Run(ctx, job)
}

// Wait blocks until every job started by Submit has finished.
func (p *Pipeline) Wait() {
	p.wg.Wait()
}

func (p *Pipeline) create(ctx context.Context, req model.SubmitRequest) (*model.Job, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	job := model.NewJob(p.newID(), req, p.now())
	if err := p.store.CreateJob(ctx, job); err != nil {
		return nil, eris.Wrap(err, "pipeline: create job")
	}
	zap.L().Info("pipeline: job accepted",
		zap.String("job_id", job.ID),
		zap.String("company", job.CompanyName),
		zap.Bool("auto_discovery", job.UseAutoDiscovery),
		zap.String("mode", string(job.AnalysisMode)),
	)
	return job, nil
}

// Run drives job through its plan and returns the last persisted snapshot.
// Stage failures are recorded on the job; the returned error is reserved for
// failures to persist or to take the job's lease.
func (p *Pipeline) Run(ctx context.Context, job *model.Job) (*model.Job, error) {
	if job.Status.IsTerminal() {
		return job, eris.Errorf("pipeline: job %s is already %s", job.ID, job.Status)
	}
	log := zap.L().With(zap.String("job_id", job.ID), zap.String("company", job.CompanyName))

	if p.leases != nil {
		release, err := lease.Hold(ctx, p.leases, job.ID, p.leaseTTL)
		if err != nil {
			if !eris.Is(err, lease.ErrHeld) {
				job = p.failUnleased(ctx, job, err)
			}
			return job, eris.Wrapf(err, "pipeline: lease job %s", job.ID)
		}
		defer release()
	}

	p.metrics.JobStarted()
	w := newJobWriter(p.store, job)
	plan := buildPlan(p, job)
	log.Info("pipeline: starting job", zap.Int("steps", len(plan)))

	var runErr error
	for i, st := range plan {
		outcomes := p.runStep(ctx, w, st, i == len(plan)-1)
		if err := p.join(ctx, w, outcomes); err != nil {
			if !eris.Is(err, errHalt) {
				runErr = err
			}
			break
		}
	}

	final := w.snapshot()
	p.metrics.JobFinished(final.Status)
	log.Info("pipeline: job finished",
		zap.String("status", string(final.Status)),
		zap.Any("completed_stages", final.CompletedStages),
		zap.Int("errors", len(final.Errors)),
	)
	return final, runErr
}

// runStep executes every descriptor of a step. Descriptors of a fan-out step
// run concurrently and never cancel each other.
func (p *Pipeline) runStep(ctx context.Context, w *jobWriter, st step, final bool) []outcome {
	snap := w.snapshot()
	if len(st) == 1 {
		return []outcome{p.execute(ctx, w, snap, st[0], final)}
	}

	outcomes := make([]outcome, len(st))
	var g errgroup.Group
	for i, d := range st {
		g.Go(func() error {
			outcomes[i] = p.execute(ctx, w, snap, d, final)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

// execute runs one stage against snap and persists its delta, including
// the stage's completion marker and timing, in a single write.
func (p *Pipeline) execute(ctx context.Context, w *jobWriter, snap *model.Job, d descriptor, final bool) outcome {
	log := zap.L().With(zap.String("job_id", snap.ID), zap.String("stage", string(d.stage)))

	var o outcome
	if missing := missingPrereqs(snap, d.requires); len(missing) > 0 {
		o = fatal(d.stage, eris.Wrapf(model.ErrInvariant, "%s requires %v", d.stage, missing))
	} else {
		stageCtx := ctx
		if secs := p.cfg.Pipeline.StageTimeoutSecs; secs > 0 {
			var cancel context.CancelFunc
			stageCtx, cancel = context.WithTimeout(ctx, time.Duration(secs)*time.Second)
			defer cancel()
		}
		start := p.now()
		log.Info("pipeline: stage started")
		o = d.run(stageCtx, snap, w)
		o.stage = d.stage
		o.started, o.finished = start, p.now()
	}

	u := o.delta
	if !o.started.IsZero() {
		u.Timings = map[model.Stage]model.StageTiming{d.stage: {StartedAt: o.started.UTC(), FinishedAt: o.finished.UTC()}}
	}
	if o.err != nil {
		u.Errors = append(u.Errors, model.StageError{Stage: d.stage, Message: o.err.Error(), At: p.now().UTC()})
	}
	switch {
	case o.fatal:
		u.Status = model.StatusPtr(model.JobStatusFailed)
	case final:
		u.CompletedStages = []model.Stage{d.stage}
		u.Status = model.StatusPtr(model.JobStatusCompleted)
	default:
		u.CompletedStages = []model.Stage{d.stage}
	}

	if _, err := w.write(ctx, u); err != nil {
		log.Error("pipeline: persist stage result", zap.Error(err))
		o.fatal = true
		o.writeErr = err
	}

	p.metrics.ObserveStage(d.stage, o.label(), o.finished.Sub(o.started))
	fields := []zap.Field{zap.String("outcome", o.label()), zap.Duration("duration", o.finished.Sub(o.started))}
	if o.err != nil {
		log.Warn("pipeline: stage finished", append(fields, zap.Error(o.err))...)
	} else {
		log.Info("pipeline: stage finished", fields...)
	}
	return o
}

// errHalt stops the plan after the job has been marked failed.
var errHalt = eris.New("pipeline: halted")

// join inspects the tagged outcomes of a step and decides whether the job
// proceeds. A fatal outcome halts. A fan-out halts only when no branch and
// no earlier stage produced usable data.
func (p *Pipeline) join(ctx context.Context, w *jobWriter, outcomes []outcome) error {
	for _, o := range outcomes {
		if !o.fatal {
			continue
		}
		if o.writeErr != nil {
			return p.failAfterWriteError(ctx, w, o)
		}
		return errHalt
	}
	if len(outcomes) < 2 {
		return nil
	}

	var degraded []model.Stage
	usable := model.Usable(w.snapshot().StageOutputs.Research)
	for _, o := range outcomes {
		if o.usable {
			usable = true
		} else {
			degraded = append(degraded, o.stage)
		}
	}
	if !usable {
		_, err := w.write(ctx, model.JobUpdate{
			Status: model.StatusPtr(model.JobStatusFailed),
			Errors: []model.StageError{{
				Stage:   model.StageAnalysis,
				Message: "no usable data from research, extraction or crawl",
				At:      p.now().UTC(),
			}},
		})
		if err != nil {
			return eris.Wrap(err, "pipeline: persist join failure")
		}
		return errHalt
	}
	if len(degraded) > 0 {
		zap.L().Warn("pipeline: proceeding with degraded inputs",
			zap.String("job_id", w.id),
			zap.Any("degraded", degraded),
		)
	}
	return nil
}

// failUnleased marks job failed when its lease could not be taken for a
// reason other than another holder.
func (p *Pipeline) failUnleased(ctx context.Context, job *model.Job, leaseErr error) *model.Job {
	w := newJobWriter(p.store, job)
	_, err := w.write(ctx, model.JobUpdate{
		Status: model.StatusPtr(model.JobStatusFailed),
		Errors: []model.StageError{{
			Stage:   model.StagePending,
			Message: "acquire lease: " + leaseErr.Error(),
			At:      p.now().UTC(),
		}},
	})
	if err != nil {
		zap.L().Error("pipeline: could not record lease failure",
			zap.String("job_id", job.ID),
			zap.Error(err),
		)
		return job
	}
	return w.snapshot()
}

// failAfterWriteError marks the job failed when a stage's own write was
// rejected, so it does not sit in processing.
func (p *Pipeline) failAfterWriteError(ctx context.Context, w *jobWriter, o outcome) error {
	_, err := w.write(ctx, model.JobUpdate{
		Status: model.StatusPtr(model.JobStatusFailed),
		Errors: []model.StageError{{
			Stage:   o.stage,
			Message: "persist stage result: " + o.writeErr.Error(),
			At:      p.now().UTC(),
		}},
	})
	if err != nil {
		if eris.Is(err, model.ErrTerminal) {
			return errHalt
		}
		return eris.Wrapf(err, "pipeline: mark job failed after %s", o.stage)
	}
	return errHalt
}

func missingPrereqs(job *model.Job, requires []model.Stage) []model.Stage {
	var missing []model.Stage
	for _, r := range requires {
		if !job.HasCompleted(r) {
			missing = append(missing, r)
		}
	}
	return missing
}
