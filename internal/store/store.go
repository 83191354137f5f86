// Package store persists jobs. Each job is kept as one JSON document next to
// the indexed columns used for listing, and every change goes through
// model.Job.Apply inside a transaction.
package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/competitive-intel/internal/config"
	"github.com/sells-group/competitive-intel/internal/db"
	"github.com/sells-group/competitive-intel/internal/model"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// ErrNotFound is returned by UpdateJob for an unknown job id.
var ErrNotFound = eris.New("store: job not found")

// JobFilter specifies criteria for listing jobs.
type JobFilter struct {
	Status model.JobStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

func (f JobFilter) normalized() JobFilter {
	if f.Limit <= 0 {
		f.Limit = defaultListLimit
	}
	if f.Limit > maxListLimit {
		f.Limit = maxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

// Store defines job persistence.
type Store interface {
	CreateJob(ctx context.Context, job *model.Job) error
	// UpdateJob applies u to the stored job atomically and returns the
	// merged job.
	UpdateJob(ctx context.Context, id string, u model.JobUpdate) (*model.Job, error)
	// GetJob returns nil, nil when the job does not exist.
	GetJob(ctx context.Context, id string) (*model.Job, error)
	// ListJobs returns jobs newest first.
	ListJobs(ctx context.Context, filter JobFilter) ([]model.Job, error)
	CountJobs(ctx context.Context, filter JobFilter) (int, error)
	DeleteJob(ctx context.Context, id string) (bool, error)
	// ListStale returns processing jobs last written before olderThan.
	ListStale(ctx context.Context, olderThan time.Time) ([]model.Job, error)

	Migrate(ctx context.Context) error
	Close() error
}

// New opens the store selected by cfg.Driver.
func New(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "postgres":
		return NewPostgres(ctx, cfg.DatabaseURL, db.PoolConfig{MaxConns: cfg.MaxConns, MinConns: cfg.MinConns})
	case "sqlite", "":
		return NewSQLite(cfg.DatabaseURL)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}

var nowFunc = func() time.Time { return time.Now().UTC() }

func encodeJob(job *model.Job) ([]byte, error) {
	doc, err := json.Marshal(job)
	if err != nil {
		return nil, eris.Wrapf(err, "store: marshal job %s", job.ID)
	}
	return doc, nil
}

func decodeJob(doc []byte) (*model.Job, error) {
	var job model.Job
	if err := json.Unmarshal(doc, &job); err != nil {
		return nil, eris.Wrap(err, "store: unmarshal job")
	}
	return &job, nil
}

func validateNew(job *model.Job) error {
	if job == nil || job.ID == "" {
		return eris.New("store: job id is required")
	}
	if job.Status != model.JobStatusProcessing {
		return eris.Errorf("store: new job %s must be processing, got %s", job.ID, job.Status)
	}
	return nil
}
