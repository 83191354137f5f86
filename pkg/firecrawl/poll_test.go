package firecrawl

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	crawlFunc  func(ctx context.Context, req CrawlRequest) (*CrawlResponse, error)
	statusFunc func(ctx context.Context, id string) (*CrawlStatusResponse, error)
}

func (f *fakeClient) Scrape(context.Context, ScrapeRequest) (*ScrapeResponse, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeClient) Crawl(ctx context.Context, req CrawlRequest) (*CrawlResponse, error) {
	return f.crawlFunc(ctx, req)
}

func (f *fakeClient) GetCrawlStatus(ctx context.Context, id string) (*CrawlStatusResponse, error) {
	return f.statusFunc(ctx, id)
}

func TestPollCrawl_CompletesAfterRetries(t *testing.T) {
	var calls atomic.Int32
	fc := &fakeClient{statusFunc: func(context.Context, string) (*CrawlStatusResponse, error) {
		if calls.Add(1) < 3 {
			return &CrawlStatusResponse{Status: "scraping"}, nil
		}
		return &CrawlStatusResponse{Status: "completed", Data: []PageData{{Markdown: "home"}}}, nil
	}}

	resp, err := PollCrawl(context.Background(), fc, "c1", WithPollInterval(time.Millisecond), WithPollCap(2*time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
	assert.Len(t, resp.Data, 1)
}

func TestPollCrawl_Failed(t *testing.T) {
	fc := &fakeClient{statusFunc: func(context.Context, string) (*CrawlStatusResponse, error) {
		return &CrawlStatusResponse{Status: "failed"}, nil
	}}
	_, err := PollCrawl(context.Background(), fc, "c1", WithPollInterval(time.Millisecond))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "crawl c1 failed")
}

func TestPollCrawl_Timeout(t *testing.T) {
	fc := &fakeClient{statusFunc: func(context.Context, string) (*CrawlStatusResponse, error) {
		return &CrawlStatusResponse{Status: "scraping"}, nil
	}}
	_, err := PollCrawl(context.Background(), fc, "c1", WithPollInterval(5*time.Millisecond), WithPollTimeout(20*time.Millisecond))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
}

func TestPollCrawl_StatusError(t *testing.T) {
	fc := &fakeClient{statusFunc: func(context.Context, string) (*CrawlStatusResponse, error) {
		return nil, &APIError{StatusCode: 503, Body: "down"}
	}}
	_, err := PollCrawl(context.Background(), fc, "c1")
	require.Error(t, err)
	var apiErr *APIError
	assert.True(t, errors.As(err, &apiErr))
}

func TestCrawlAndWait(t *testing.T) {
	fc := &fakeClient{
		crawlFunc: func(_ context.Context, req CrawlRequest) (*CrawlResponse, error) {
			assert.Equal(t, "https://beta.io", req.URL)
			return &CrawlResponse{Success: true, ID: "c9"}, nil
		},
		statusFunc: func(_ context.Context, id string) (*CrawlStatusResponse, error) {
			assert.Equal(t, "c9", id)
			return &CrawlStatusResponse{Status: "completed"}, nil
		},
	}
	resp, err := CrawlAndWait(context.Background(), fc, CrawlRequest{URL: "https://beta.io"})
	require.NoError(t, err)
	assert.Equal(t, "completed", resp.Status)
}

func TestCrawlAndWait_NotAccepted(t *testing.T) {
	fc := &fakeClient{crawlFunc: func(context.Context, CrawlRequest) (*CrawlResponse, error) {
		return &CrawlResponse{Success: false}, nil
	}}
	_, err := CrawlAndWait(context.Background(), fc, CrawlRequest{URL: "https://beta.io"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not accepted")
}
