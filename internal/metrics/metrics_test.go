package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/competitive-intel/internal/model"
)

func scrape(t *testing.T, c *Collectors) string {
	t.Helper()
	srv := httptest.NewServer(c.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func TestCollectors_Record(t *testing.T) {
	c := New()

	c.JobStarted()
	c.ObserveStage(model.StageResearch, "ok", 2*time.Second)
	c.ObserveStage(model.StageCrawl, "degraded", time.Second)
	c.Checkpoint()
	c.Checkpoint()
	c.JobFinished(model.JobStatusCompleted)
	c.Abandoned()

	out := scrape(t, c)
	assert.Contains(t, out, `compintel_stage_outcomes_total{outcome="ok",stage="research"} 1`)
	assert.Contains(t, out, `compintel_stage_outcomes_total{outcome="degraded",stage="crawl"} 1`)
	assert.Contains(t, out, `compintel_stage_duration_seconds_count{stage="research"} 1`)
	assert.Contains(t, out, "compintel_analysis_checkpoints_total 2")
	assert.Contains(t, out, "compintel_jobs_in_flight 0")
	assert.Contains(t, out, `compintel_jobs_total{status="completed"} 1`)
	assert.Contains(t, out, "compintel_jobs_abandoned_total 1")
	assert.Contains(t, out, "go_goroutines")
}

func TestCollectors_NilSafe(t *testing.T) {
	var c *Collectors
	assert.NotPanics(t, func() {
		c.JobStarted()
		c.ObserveStage(model.StageAnalysis, "failed", time.Second)
		c.Checkpoint()
		c.JobFinished(model.JobStatusFailed)
		c.Abandoned()
	})
}

func TestCollectors_NilHandler(t *testing.T) {
	var c *Collectors
	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 404, rec.Code)
}
