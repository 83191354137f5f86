package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/competitive-intel/internal/config"
	"github.com/sells-group/competitive-intel/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	st, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestSQLite_CreateAndGet(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	job := newTestJob("job-1", "Acme", time.Now())
	require.NoError(t, st.CreateJob(ctx, job))

	got, err := st.GetJob(ctx, "job-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Acme", got.CompanyName)
	assert.Equal(t, model.JobStatusProcessing, got.Status)
	assert.Equal(t, []string{"Beta", "Gamma"}, got.Competitors)
	assert.Empty(t, got.CompletedStages)
}

func TestSQLite_CreateDuplicate(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.CreateJob(ctx, newTestJob("dup", "Acme", time.Now())))
	err := st.CreateJob(ctx, newTestJob("dup", "Acme", time.Now()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert job dup")
}

func TestSQLite_GetMissing(t *testing.T) {
	st := newTestSQLiteStore(t)
	got, err := st.GetJob(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLite_GetJob_Idempotent(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	require.NoError(t, st.CreateJob(ctx, newTestJob("job-1", "Acme", time.Now())))
	_, err := st.UpdateJob(ctx, "job-1", model.JobUpdate{
		CompletedStages: []model.Stage{model.StageResearch},
		Research:        []model.ResearchResult{{Competitor: "Beta", Status: model.ItemSuccess, Answer: "cheap"}},
	})
	require.NoError(t, err)

	a, err := st.GetJob(ctx, "job-1")
	require.NoError(t, err)
	b, err := st.GetJob(ctx, "job-1")
	require.NoError(t, err)

	ja, err := json.Marshal(a)
	require.NoError(t, err)
	jb, err := json.Marshal(b)
	require.NoError(t, err)
	assert.Equal(t, string(ja), string(jb))
}

func TestSQLite_UpdateJob_Merges(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	require.NoError(t, st.CreateJob(ctx, newTestJob("job-1", "Acme", time.Now())))

	_, err := st.UpdateJob(ctx, "job-1", model.JobUpdate{
		CompletedStages: []model.Stage{model.StageResearch},
		Research:        []model.ResearchResult{{Competitor: "Beta", Status: model.ItemSuccess}},
	})
	require.NoError(t, err)

	got, err := st.UpdateJob(ctx, "job-1", model.JobUpdate{
		CompletedStages: []model.Stage{model.StageCrawl},
		Crawl:           []model.CrawlResult{{Competitor: "Beta", Status: model.ItemFailed, Error: "timeout"}},
		Errors:          []model.StageError{{Stage: model.StageExtraction, Message: "no candidate urls"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []model.Stage{model.StageResearch, model.StageCrawl}, got.CompletedStages)
	assert.Len(t, got.Errors, 1)
	require.Len(t, got.StageOutputs.Research, 1)
	require.Len(t, got.StageOutputs.Crawl, 1)

	reread, err := st.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, got.CompletedStages, reread.CompletedStages)
	assert.True(t, got.UpdatedAt.Equal(reread.UpdatedAt))
}

func TestSQLite_UpdateJob_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)
	_, err := st.UpdateJob(context.Background(), "missing", model.JobUpdate{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSQLite_UpdateJob_TerminalRejected(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	require.NoError(t, st.CreateJob(ctx, newTestJob("job-1", "Acme", time.Now())))

	_, err := st.UpdateJob(ctx, "job-1", model.JobUpdate{
		Status: model.StatusPtr(model.JobStatusFailed),
		Errors: []model.StageError{{Stage: model.StageResearch, Message: "all searches failed"}},
	})
	require.NoError(t, err)

	_, err = st.UpdateJob(ctx, "job-1", model.JobUpdate{Status: model.StatusPtr(model.JobStatusProcessing)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrTerminal))

	got, err := st.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusFailed, got.Status)
	require.NotNil(t, got.CompletedAt)
}

func TestSQLite_UpdateJob_ConcurrentWritesSerialize(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	require.NoError(t, st.CreateJob(ctx, newTestJob("job-1", "Acme", time.Now())))

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := st.UpdateJob(ctx, "job-1", model.JobUpdate{
				Errors: []model.StageError{{Stage: model.StageCrawl, Message: fmt.Sprintf("item %d", i)}},
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := st.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Len(t, got.Errors, 10)
}

func TestSQLite_ListAndCount(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	for i := range 5 {
		require.NoError(t, st.CreateJob(ctx, newTestJob(fmt.Sprintf("job-%d", i), "Acme", base.Add(time.Duration(i)*time.Minute))))
	}
	_, err := st.UpdateJob(ctx, "job-2", model.JobUpdate{
		Status: model.StatusPtr(model.JobStatusFailed),
		Errors: []model.StageError{{Stage: model.StagePending, Message: "boom"}},
	})
	require.NoError(t, err)

	all, err := st.ListJobs(ctx, JobFilter{})
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.Equal(t, "job-4", all[0].ID)
	assert.Equal(t, "job-0", all[4].ID)

	page, err := st.ListJobs(ctx, JobFilter{Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "job-3", page[0].ID)
	assert.Equal(t, "job-2", page[1].ID)

	failed, err := st.ListJobs(ctx, JobFilter{Status: model.JobStatusFailed})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "job-2", failed[0].ID)

	n, err := st.CountJobs(ctx, JobFilter{})
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	n, err = st.CountJobs(ctx, JobFilter{Status: model.JobStatusProcessing})
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestSQLite_ListEmpty(t *testing.T) {
	st := newTestSQLiteStore(t)
	jobs, err := st.ListJobs(context.Background(), JobFilter{})
	require.NoError(t, err)
	assert.NotNil(t, jobs)
	assert.Empty(t, jobs)
}

func TestSQLite_DeleteJob(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	require.NoError(t, st.CreateJob(ctx, newTestJob("job-1", "Acme", time.Now())))

	ok, err := st.DeleteJob(ctx, "job-1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = st.DeleteJob(ctx, "job-1")
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := st.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLite_ListStale(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, st.CreateJob(ctx, newTestJob("old", "Acme", now.Add(-2*time.Hour))))
	require.NoError(t, st.CreateJob(ctx, newTestJob("fresh", "Acme", now)))
	require.NoError(t, st.CreateJob(ctx, newTestJob("old-done", "Acme", now.Add(-3*time.Hour))))

	// Terminal jobs are never stale, however old.
	_, err := st.db.ExecContext(ctx, `UPDATE jobs SET status = 'completed' WHERE id = 'old-done'`)
	require.NoError(t, err)

	stale, err := st.ListStale(ctx, now.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, "old", stale[0].ID)
}

func TestNew_SQLite(t *testing.T) {
	st, err := New(context.Background(), config.StoreConfig{
		Driver:      "sqlite",
		DatabaseURL: filepath.Join(t.TempDir(), "factory.db"),
	})
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	_, ok := st.(*SQLiteStore)
	assert.True(t, ok)
}
