package perplexity

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatCompletion(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantErr    string
		wantStatus int
	}{
		{
			name:   "success",
			status: http.StatusOK,
			body: `{
				"id": "cmpl-123",
				"choices": [{"index": 0, "message": {"role": "assistant", "content": "Beta is cheaper."}}],
				"citations": ["https://beta.io/pricing"],
				"search_results": [{"title": "Beta Pricing", "url": "https://beta.io/pricing", "date": "2026-01-02"}],
				"usage": {"prompt_tokens": 10, "completion_tokens": 5}
			}`,
		},
		{
			name:       "rate_limit",
			status:     http.StatusTooManyRequests,
			body:       `{"error": "rate limit exceeded"}`,
			wantErr:    "unexpected status 429",
			wantStatus: http.StatusTooManyRequests,
		},
		{
			name:       "server_error",
			status:     http.StatusInternalServerError,
			body:       `{"error": "internal"}`,
			wantErr:    "unexpected status 500",
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:    "malformed_response",
			status:  http.StatusOK,
			body:    `{invalid json`,
			wantErr: "unmarshal response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/chat/completions", r.URL.Path)
				assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

				var req ChatCompletionRequest
				require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
				assert.Equal(t, "sonar", req.Model)
				assert.Equal(t, "month", req.SearchRecencyFilter)
				assert.Equal(t, []string{"-wikipedia.org"}, req.SearchDomainFilter)

				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			resp, err := NewClient("test-key", WithBaseURL(srv.URL)).ChatCompletion(context.Background(), ChatCompletionRequest{
				Messages:            []Message{{Role: "user", Content: "Beta pricing"}},
				SearchRecencyFilter: RecencyFilter(30),
				SearchDomainFilter:  []string{"-wikipedia.org"},
			})

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				if tt.wantStatus != 0 {
					var apiErr *APIError
					require.True(t, errors.As(err, &apiErr))
					assert.Equal(t, tt.wantStatus, apiErr.HTTPStatus())
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "Beta is cheaper.", resp.Content())
			assert.Equal(t, []string{"https://beta.io/pricing"}, resp.Citations)
			require.Len(t, resp.SearchResults, 1)
			assert.Equal(t, "Beta Pricing", resp.SearchResults[0].Title)
		})
	}
}

func TestWithModel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "sonar-pro", req.Model)
		_, _ = w.Write([]byte(`{"choices": []}`))
	}))
	defer srv.Close()

	resp, err := NewClient("k", WithBaseURL(srv.URL), WithModel("sonar-pro")).ChatCompletion(context.Background(), ChatCompletionRequest{})
	require.NoError(t, err)
	assert.Empty(t, resp.Content())
}

func TestRecencyFilter(t *testing.T) {
	assert.Equal(t, "", RecencyFilter(0))
	assert.Equal(t, "day", RecencyFilter(1))
	assert.Equal(t, "week", RecencyFilter(7))
	assert.Equal(t, "month", RecencyFilter(30))
	assert.Equal(t, "year", RecencyFilter(90))
	assert.Equal(t, "year", RecencyFilter(365))
}
