package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/competitive-intel/internal/config"
	"github.com/sells-group/competitive-intel/internal/model"
)

func newTestJob(id, company string, created time.Time) *model.Job {
	return model.NewJob(id, model.SubmitRequest{
		CompanyName: company,
		Query:       "pricing strategy",
		Competitors: []string{"Beta", "Gamma"},
	}, created)
}

func TestJobFilter_Normalized(t *testing.T) {
	tests := []struct {
		name string
		in   JobFilter
		want JobFilter
	}{
		{"defaults", JobFilter{}, JobFilter{Limit: defaultListLimit}},
		{"cap", JobFilter{Limit: 10_000, Offset: 5}, JobFilter{Limit: maxListLimit, Offset: 5}},
		{"negative offset", JobFilter{Limit: 10, Offset: -3}, JobFilter{Limit: 10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.normalized())
		})
	}
}

func TestValidateNew(t *testing.T) {
	assert.Error(t, validateNew(nil))
	assert.Error(t, validateNew(&model.Job{}))

	job := newTestJob("a", "Acme", time.Now())
	assert.NoError(t, validateNew(job))

	job.Status = model.JobStatusCompleted
	assert.Error(t, validateNew(job))
}

func TestEncodeDecodeJob(t *testing.T) {
	job := newTestJob("job-1", "Acme", time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	doc, err := encodeJob(job)
	require.NoError(t, err)

	got, err := decodeJob(doc)
	require.NoError(t, err)
	assert.Equal(t, job.ID, got.ID)
	assert.Equal(t, job.Competitors, got.Competitors)
	assert.True(t, job.CreatedAt.Equal(got.CreatedAt))

	_, err = decodeJob([]byte("{not json"))
	assert.Error(t, err)
}

func TestNew_UnknownDriver(t *testing.T) {
	_, err := New(context.Background(), config.StoreConfig{Driver: "mysql"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown driver")
}
