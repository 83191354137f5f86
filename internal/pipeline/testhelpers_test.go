package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sells-group/competitive-intel/internal/config"
	"github.com/sells-group/competitive-intel/internal/generate"
	"github.com/sells-group/competitive-intel/internal/model"
	"github.com/sells-group/competitive-intel/internal/search"
	"github.com/sells-group/competitive-intel/internal/store"
)

const validChartJSON = "```json\n" + `{
  "pricing": [{"tier": "Pro", "Acme": 49, "Beta": 59, "Gamma": 39}],
  "features": [{"feature": "API", "Acme": 8, "Beta": 7, "Gamma": 5}],
  "risks": [{"category": "Market", "Acme": 3, "Beta": 6, "Gamma": 4}]
}` + "\n```"

func testConfig() *config.Config {
	return &config.Config{
		Search: config.SearchConfig{
			Depth:          "advanced",
			MaxResults:     5,
			ExcludeDomains: []string{"wikipedia.org"},
		},
		Crawl: config.CrawlConfig{MaxPages: 5, MaxDepth: 1},
		Pipeline: config.PipelineConfig{
			CheckpointEvery:  10,
			ExtractionURLs:   2,
			ContextTruncate:  2000,
			DiscoveryMax:     5,
			StageTimeoutSecs: 30,
		},
	}
}

func testRequest(competitors ...string) model.SubmitRequest {
	return model.SubmitRequest{
		CompanyName: "Acme",
		Query:       "pricing and product comparison",
		Competitors: competitors,
		Freshness:   model.FreshnessThreeMonths,
	}
}

// recordingStore records every successful update and the snapshot it
// produced. failUpdate, when set, can reject an update before it is applied.
type recordingStore struct {
	store.Store

	mu         sync.Mutex
	updates    []model.JobUpdate
	snapshots  []model.Job
	failUpdate func(u model.JobUpdate) error
}

func (r *recordingStore) UpdateJob(ctx context.Context, id string, u model.JobUpdate) (*model.Job, error) {
	if r.failUpdate != nil {
		if err := r.failUpdate(u); err != nil {
			return nil, err
		}
	}
	job, err := r.Store.UpdateJob(ctx, id, u)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.updates = append(r.updates, u)
	r.snapshots = append(r.snapshots, *job)
	r.mu.Unlock()
	return job, nil
}

func (r *recordingStore) recorded() ([]model.JobUpdate, []model.Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.JobUpdate(nil), r.updates...), append([]model.Job(nil), r.snapshots...)
}

func newRecordingStore(t *testing.T) *recordingStore {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "pipeline.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return &recordingStore{Store: st}
}

func slug(name string) string {
	return strings.ToLower(strings.Fields(name)[0])
}

// fakeSearch answers every call with plausible data unless a hook overrides
// it.
type fakeSearch struct {
	mu      sync.Mutex
	queries []search.Query
	crawled []string

	searchFn  func(q search.Query) (*search.Response, error)
	extractFn func(urls []string) ([]model.Page, error)
	crawlFn   func(root string) ([]model.Page, error)
}

func (f *fakeSearch) Search(_ context.Context, q search.Query) (*search.Response, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	f.mu.Unlock()
	if f.searchFn != nil {
		return f.searchFn(q)
	}
	return defaultSearchResponse(q), nil
}

func defaultSearchResponse(q search.Query) *search.Response {
	s := slug(q.Text)
	return &search.Response{
		Answer: q.Text + " summary",
		Results: []model.Source{
			{Title: s + " pricing", URL: "https://www." + s + ".com/pricing", Content: "plans from $10"},
			{Title: s + " blog", URL: "https://" + s + ".com/blog/launch", Content: "launch notes"},
			{Title: s + " home", URL: "https://" + s + ".com/", Content: "home"},
		},
		Provider: "fake",
	}
}

func (f *fakeSearch) Extract(_ context.Context, urls []string) ([]model.Page, error) {
	if f.extractFn != nil {
		return f.extractFn(urls)
	}
	pages := make([]model.Page, 0, len(urls))
	for _, u := range urls {
		pages = append(pages, model.Page{URL: u, Content: "content of " + u})
	}
	return pages, nil
}

func (f *fakeSearch) Crawl(_ context.Context, root string, _ search.CrawlOptions) ([]model.Page, error) {
	f.mu.Lock()
	f.crawled = append(f.crawled, root)
	f.mu.Unlock()
	if f.crawlFn != nil {
		return f.crawlFn(root)
	}
	return []model.Page{
		{URL: root + "/pricing", Content: "pricing page"},
		{URL: root + "/features", Content: "features page"},
	}, nil
}

func (f *fakeSearch) searchQueries() []search.Query {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]search.Query(nil), f.queries...)
}

// fakeStream replays chunks, then reports err.
type fakeStream struct {
	chunks []string
	i      int
	err    error
	onNext func(i int)
	closed bool
}

func (s *fakeStream) Next() bool {
	if s.i >= len(s.chunks) {
		return false
	}
	s.i++
	if s.onNext != nil {
		s.onNext(s.i)
	}
	return true
}

func (s *fakeStream) Chunk() string { return s.chunks[s.i-1] }
func (s *fakeStream) Err() error {
	if s.i >= len(s.chunks) {
		return s.err
	}
	return nil
}
func (s *fakeStream) Close() error {
	s.closed = true
	return nil
}

func numberedChunks(n int) []string {
	out := make([]string, n)
	for i := range n {
		out[i] = fmt.Sprintf("chunk%02d ", i+1)
	}
	return out
}

// fakeGen answers completions by purpose and streams a fixed report.
type fakeGen struct {
	mu           sync.Mutex
	prompts      []generate.Prompt
	streamTiers  []generate.Tier
	streamOpened time.Time

	completeFn func(p generate.Prompt) (string, error)
	chunks     []string
	streamErr  error
	openErr    error
	onNext     func(i int)
	stream     *fakeStream
}

func (f *fakeGen) Complete(_ context.Context, p generate.Prompt, _ generate.Tier) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, p)
	f.mu.Unlock()
	if f.completeFn != nil {
		return f.completeFn(p)
	}
	return defaultCompletion(p)
}

func defaultCompletion(p generate.Prompt) (string, error) {
	switch p.Purpose {
	case "company_profile":
		return `{"primary_business": "project management software", "target_customer": "small teams", "value_proposition": "simple planning", "market_segment": "collaboration tools", "search_terms": ["project management tools"]}`, nil
	case "competitor_names":
		return `["Beta", "Gamma"]`, nil
	case "competitor_fallback":
		return `["Delta"]`, nil
	case "chart_data":
		return validChartJSON, nil
	}
	return "", fmt.Errorf("unexpected purpose %q", p.Purpose)
}

func (f *fakeGen) Stream(_ context.Context, p generate.Prompt, tier generate.Tier) (generate.Stream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, p)
	f.streamTiers = append(f.streamTiers, tier)
	f.streamOpened = time.Now().UTC()
	if f.openErr != nil {
		return nil, f.openErr
	}
	chunks := f.chunks
	if chunks == nil {
		chunks = numberedChunks(12)
	}
	f.stream = &fakeStream{chunks: chunks, err: f.streamErr, onNext: f.onNext}
	return f.stream, nil
}

func (f *fakeGen) promptFor(purpose string) (generate.Prompt, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.prompts {
		if p.Purpose == purpose {
			return p, true
		}
	}
	return generate.Prompt{}, false
}

func newTestPipeline(st store.Store, s search.Service, g generate.Service, opts ...Option) *Pipeline {
	return New(st, s, g, testConfig(), opts...)
}

func stageErrors(job *model.Job, stage model.Stage) []model.StageError {
	var out []model.StageError
	for _, e := range job.Errors {
		if e.Stage == stage {
			out = append(out, e)
		}
	}
	return out
}
