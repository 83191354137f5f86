package lease

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/competitive-intel/internal/metrics"
	"github.com/sells-group/competitive-intel/internal/model"
	"github.com/sells-group/competitive-intel/internal/store"
)

// AbandonedMessage is the error recorded on jobs failed by the reconciler.
const AbandonedMessage = "lease expired: job abandoned"

// Reconciler fails processing jobs that stopped making progress and whose
// lease is gone.
type Reconciler struct {
	store      store.Store
	leases     Manager
	staleAfter time.Duration
	interval   time.Duration
	metrics    *metrics.Collectors
	now        func() time.Time
}

// ReconcilerOption configures a Reconciler.
type ReconcilerOption func(*Reconciler)

// WithInterval sets how often Run sweeps.
func WithInterval(d time.Duration) ReconcilerOption {
	return func(r *Reconciler) { r.interval = d }
}

// WithMetrics records abandoned jobs.
func WithMetrics(c *metrics.Collectors) ReconcilerOption {
	return func(r *Reconciler) { r.metrics = c }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) ReconcilerOption {
	return func(r *Reconciler) { r.now = now }
}

// NewReconciler creates a Reconciler. Jobs not updated within staleAfter are
// candidates.
func NewReconciler(st store.Store, leases Manager, staleAfter time.Duration, opts ...ReconcilerOption) *Reconciler {
	r := &Reconciler{
		store:      st,
		leases:     leases,
		staleAfter: staleAfter,
		interval:   time.Minute,
		now:        time.Now,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Sweep fails every stale job without a live lease and returns how many it
// failed.
func (r *Reconciler) Sweep(ctx context.Context) (int, error) {
	now := r.now()
	stale, err := r.store.ListStale(ctx, now.Add(-r.staleAfter))
	if err != nil {
		return 0, eris.Wrap(err, "lease: list stale jobs")
	}

	failed := 0
	for _, job := range stale {
		alive, err := r.leases.Alive(ctx, job.ID)
		if err != nil {
			zap.L().Warn("lease: liveness check failed, skipping job",
				zap.String("job_id", job.ID),
				zap.Error(err),
			)
			continue
		}
		if alive {
			continue
		}

		_, err = r.store.UpdateJob(ctx, job.ID, model.JobUpdate{
			Status: model.StatusPtr(model.JobStatusFailed),
			Errors: []model.StageError{{Stage: job.LastStage(), Message: AbandonedMessage, At: now.UTC()}},
		})
		if err != nil {
			if errors.Is(err, model.ErrTerminal) || errors.Is(err, store.ErrNotFound) {
				continue
			}
			return failed, eris.Wrapf(err, "lease: fail abandoned job %s", job.ID)
		}

		failed++
		r.metrics.Abandoned()
		zap.L().Warn("lease: failed abandoned job",
			zap.String("job_id", job.ID),
			zap.String("last_stage", string(job.LastStage())),
			zap.Time("updated_at", job.UpdatedAt),
		)
	}
	return failed, nil
}

// Run sweeps every interval until ctx is done.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		if _, err := r.Sweep(ctx); err != nil && ctx.Err() == nil {
			zap.L().Error("lease: sweep failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
