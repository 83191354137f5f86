package lease

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/competitive-intel/internal/model"
	storemocks "github.com/sells-group/competitive-intel/internal/store/mocks"
)

var sweepNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func staleJob(id string, stages ...model.Stage) model.Job {
	return model.Job{
		ID:              id,
		Status:          model.JobStatusProcessing,
		CompletedStages: stages,
		UpdatedAt:       sweepNow.Add(-time.Hour),
	}
}

func TestReconciler_Sweep(t *testing.T) {
	ctx := context.Background()
	st := storemocks.NewMockStore(t)
	leases := NewMemory(time.Hour)
	require.NoError(t, leases.Acquire(ctx, "live"))

	st.On("ListStale", mock.Anything, sweepNow.Add(-5*time.Minute)).Return([]model.Job{
		staleJob("dead", model.StageResearch),
		staleJob("live", model.StageResearch),
		staleJob("fresh-start"),
	}, nil)
	st.On("UpdateJob", mock.Anything, "dead", mock.MatchedBy(func(u model.JobUpdate) bool {
		return *u.Status == model.JobStatusFailed &&
			len(u.Errors) == 1 &&
			u.Errors[0].Stage == model.StageResearch &&
			u.Errors[0].Message == AbandonedMessage
	})).Return(&model.Job{ID: "dead", Status: model.JobStatusFailed}, nil)
	st.On("UpdateJob", mock.Anything, "fresh-start", mock.MatchedBy(func(u model.JobUpdate) bool {
		return u.Errors[0].Stage == model.StagePending
	})).Return(&model.Job{ID: "fresh-start", Status: model.JobStatusFailed}, nil)

	r := NewReconciler(st, leases, 5*time.Minute, WithClock(func() time.Time { return sweepNow }))
	n, err := r.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	st.AssertNotCalled(t, "UpdateJob", mock.Anything, "live", mock.Anything)
}

func TestReconciler_Sweep_SkipsJobsFinishedMeanwhile(t *testing.T) {
	ctx := context.Background()
	st := storemocks.NewMockStore(t)

	st.On("ListStale", mock.Anything, mock.Anything).Return([]model.Job{staleJob("done")}, nil)
	st.On("UpdateJob", mock.Anything, "done", mock.Anything).Return(nil, model.ErrTerminal)

	r := NewReconciler(st, NewMemory(time.Minute), time.Minute, WithClock(func() time.Time { return sweepNow }))
	n, err := r.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestReconciler_Sweep_ListError(t *testing.T) {
	st := storemocks.NewMockStore(t)
	st.On("ListStale", mock.Anything, mock.Anything).Return(nil, errors.New("db down"))

	r := NewReconciler(st, NewMemory(time.Minute), time.Minute)
	_, err := r.Sweep(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list stale jobs")
}

func TestReconciler_Run_StopsOnCancel(t *testing.T) {
	st := storemocks.NewMockStore(t)
	st.On("ListStale", mock.Anything, mock.Anything).Return([]model.Job{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	r := NewReconciler(st, NewMemory(time.Minute), time.Minute, WithInterval(5*time.Millisecond))

	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.GreaterOrEqual(t, len(st.Calls), 2)
}
