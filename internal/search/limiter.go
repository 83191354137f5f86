package search

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// adaptiveLimiter wraps a rate.Limiter for one provider. A 429 halves the
// rate (down to a quarter of the initial rate); each success raises it by
// 20% (up to the initial rate).
type adaptiveLimiter struct {
	mu          sync.Mutex
	provider    string
	limiter     *rate.Limiter
	initialRate rate.Limit
	minRate     rate.Limit
	currentRate rate.Limit
}

func newAdaptiveLimiter(provider string, perSec float64) *adaptiveLimiter {
	r := rate.Limit(perSec)
	if perSec <= 0 {
		r = rate.Inf
	}
	burst := int(perSec)
	if burst < 1 {
		burst = 1
	}
	return &adaptiveLimiter{
		provider:    provider,
		limiter:     rate.NewLimiter(r, burst),
		initialRate: r,
		minRate:     r / 4,
		currentRate: r,
	}
}

func (a *adaptiveLimiter) Wait(ctx context.Context) error {
	return a.limiter.Wait(ctx)
}

func (a *adaptiveLimiter) onSuccess() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.currentRate >= a.initialRate {
		return
	}
	next := a.currentRate * 1.2
	if next > a.initialRate {
		next = a.initialRate
	}
	a.currentRate = next
	a.limiter.SetLimit(next)
}

func (a *adaptiveLimiter) onRateLimit() {
	a.mu.Lock()
	defer a.mu.Unlock()
	next := a.currentRate * 0.5
	if next < a.minRate {
		next = a.minRate
	}
	a.currentRate = next
	a.limiter.SetLimit(next)
	zap.L().Warn("search: reducing provider rate after 429",
		zap.String("provider", a.provider),
		zap.Float64("new_rate", float64(next)),
	)
}

func (a *adaptiveLimiter) limit() rate.Limit {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.currentRate
}
