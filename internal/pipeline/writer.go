package pipeline

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/sells-group/competitive-intel/internal/model"
	"github.com/sells-group/competitive-intel/internal/store"
)

// jobWriter serializes every write for one job so concurrent branches and
// analysis checkpoints reach the store in a strict order.
type jobWriter struct {
	mu    sync.Mutex
	store store.Store
	id    string
	last  *model.Job
}

func newJobWriter(st store.Store, job *model.Job) *jobWriter {
	return &jobWriter{store: st, id: job.ID, last: job}
}

func (w *jobWriter) write(ctx context.Context, u model.JobUpdate) (*model.Job, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	job, err := w.store.UpdateJob(ctx, w.id, u)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: update job %s", w.id)
	}
	w.last = job
	return job, nil
}

// snapshot returns the last persisted state of the job.
func (w *jobWriter) snapshot() *model.Job {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.last
}
