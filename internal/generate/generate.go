// Package generate routes LLM completions to a model tier and wraps the
// streaming API used by the analysis stage.
package generate

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/competitive-intel/internal/config"
	"github.com/sells-group/competitive-intel/internal/model"
	"github.com/sells-group/competitive-intel/internal/resilience"
	"github.com/sells-group/competitive-intel/pkg/anthropic"
)

// Tier selects the model used for a call.
type Tier string

const (
	TierStandard Tier = "standard"
	TierPremium  Tier = "premium"
)

// TierFor maps a job's analysis mode to a tier.
func TierFor(mode model.AnalysisMode) Tier {
	if mode == model.AnalysisModePremium {
		return TierPremium
	}
	return TierStandard
}

// Prompt is a single-turn generation request. Purpose labels the call in
// cost logs.
type Prompt struct {
	System    string
	User      string
	MaxTokens int64
	Purpose   string

	// Temperature overrides the model default when set.
	Temperature *float64
}

// Temp returns a temperature for Prompt.Temperature.
func Temp(t float64) *float64 { return &t }

// Service is what the pipeline stages call.
type Service interface {
	Complete(ctx context.Context, p Prompt, tier Tier) (string, error)
	Stream(ctx context.Context, p Prompt, tier Tier) (Stream, error)
}

// Stream yields text chunks in order. It is finite and cannot be restarted.
type Stream interface {
	Next() bool
	Chunk() string
	Err() error
	Close() error
}

// Gateway implements Service on top of the Anthropic client.
type Gateway struct {
	client    anthropic.Client
	models    map[Tier]string
	maxTokens int64
	retry     resilience.RetryConfig
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithModels sets the model for each tier.
func WithModels(standard, premium string) Option {
	return func(g *Gateway) {
		if standard != "" {
			g.models[TierStandard] = standard
		}
		if premium != "" {
			g.models[TierPremium] = premium
		}
	}
}

// WithMaxTokens sets the default output limit for prompts that leave
// MaxTokens unset.
func WithMaxTokens(n int64) Option {
	return func(g *Gateway) {
		if n > 0 {
			g.maxTokens = n
		}
	}
}

// WithRetry sets the retry policy for opening a call.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(g *Gateway) { g.retry = cfg }
}

// New creates a Gateway.
func New(client anthropic.Client, opts ...Option) *Gateway {
	g := &Gateway{
		client: client,
		models: map[Tier]string{
			TierStandard: "claude-haiku-4-5-20251001",
			TierPremium:  "claude-sonnet-4-5-20250929",
		},
		maxTokens: 4096,
		retry:     resilience.DefaultRetryConfig(),
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// NewFromConfig builds a Gateway from the anthropic config section. The SDK's
// own retries are disabled in favor of the gateway's.
func NewFromConfig(cfg *config.Config) *Gateway {
	client := anthropic.NewClient(cfg.Anthropic.Key,
		anthropic.WithBaseURL(cfg.Anthropic.BaseURL),
		anthropic.WithMaxRetries(0),
	)
	retry := resilience.DefaultRetryConfig()
	if cfg.Anthropic.Retries > 0 {
		retry.MaxAttempts = cfg.Anthropic.Retries
	}
	return New(client,
		WithModels(cfg.Anthropic.StandardModel, cfg.Anthropic.PremiumModel),
		WithMaxTokens(cfg.Anthropic.MaxTokens),
		WithRetry(retry),
	)
}

// Model returns the model configured for tier.
func (g *Gateway) Model(tier Tier) string {
	if m, ok := g.models[tier]; ok {
		return m
	}
	return g.models[TierStandard]
}

func (g *Gateway) request(p Prompt, tier Tier) anthropic.MessageRequest {
	maxTokens := p.MaxTokens
	if maxTokens <= 0 {
		maxTokens = g.maxTokens
	}
	req := anthropic.MessageRequest{
		Model:       g.Model(tier),
		MaxTokens:   maxTokens,
		Messages:    []anthropic.Message{{Role: "user", Content: p.User}},
		Temperature: p.Temperature,
	}
	if p.System != "" {
		req.System = []anthropic.SystemBlock{{Text: p.System}}
	}
	return req
}

func (g *Gateway) retryConfig(op string) resilience.RetryConfig {
	cfg := g.retry
	if cfg.OnRetry == nil {
		cfg.OnRetry = resilience.RetryLogger("anthropic", op)
	}
	return cfg
}

// Complete runs a synchronous completion and returns its text.
func (g *Gateway) Complete(ctx context.Context, p Prompt, tier Tier) (string, error) {
	req := g.request(p, tier)

	resp, err := resilience.DoVal(ctx, g.retryConfig("complete"), func(ctx context.Context) (*anthropic.MessageResponse, error) {
		resp, err := g.client.CreateMessage(ctx, req)
		if err != nil {
			return nil, resilience.FromStatus(err, anthropic.StatusCode(err))
		}
		return resp, nil
	})
	if err != nil {
		return "", eris.Wrapf(err, "generate: complete (%s)", req.Model)
	}

	resp.Usage.LogCost(req.Model, p.Purpose)

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", eris.Errorf("generate: empty completion from %s", req.Model)
	}
	return text, nil
}

// Stream opens a streaming completion. Opening is retried on transient
// errors; a failure after chunks have been delivered is reported by Err.
func (g *Gateway) Stream(ctx context.Context, p Prompt, tier Tier) (Stream, error) {
	req := g.request(p, tier)

	inner, err := resilience.DoVal(ctx, g.retryConfig("stream"), func(ctx context.Context) (anthropic.MessageStream, error) {
		s, err := g.client.StreamMessage(ctx, req)
		if err != nil {
			return nil, resilience.FromStatus(err, anthropic.StatusCode(err))
		}
		return s, nil
	})
	if err != nil {
		return nil, eris.Wrapf(err, "generate: open stream (%s)", req.Model)
	}
	return &messageStream{inner: inner, model: req.Model, purpose: p.Purpose}, nil
}

type messageStream struct {
	inner   anthropic.MessageStream
	model   string
	purpose string
	done    bool
	chunks  int
}

func (s *messageStream) Next() bool {
	if s.done {
		return false
	}
	if s.inner.Next() {
		s.chunks++
		return true
	}
	s.done = true
	if s.inner.Err() == nil {
		s.inner.Usage().LogCost(s.model, s.purpose)
	} else {
		zap.L().Warn("generate: stream ended with error",
			zap.String("model", s.model),
			zap.Int("chunks", s.chunks),
			zap.Error(s.inner.Err()),
		)
	}
	return false
}

func (s *messageStream) Chunk() string { return s.inner.Text() }

func (s *messageStream) Err() error {
	if err := s.inner.Err(); err != nil {
		return eris.Wrap(err, "generate: stream")
	}
	return nil
}

func (s *messageStream) Close() error { return s.inner.Close() }
