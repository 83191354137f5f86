// Package lease tracks which jobs are still owned by a live process and
// fails jobs whose owner went away.
package lease

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/competitive-intel/internal/config"
	"github.com/sells-group/competitive-intel/internal/resilience"
)

// ErrHeld is returned by Acquire when another holder owns the lease.
var ErrHeld = eris.New("lease: already held")

// Manager grants per-job leases that expire unless renewed.
type Manager interface {
	Acquire(ctx context.Context, jobID string) error
	Renew(ctx context.Context, jobID string) error
	Release(ctx context.Context, jobID string) error
	Alive(ctx context.Context, jobID string) (bool, error)
}

// New builds the Manager selected by cfg.Backend.
func New(ctx context.Context, cfg config.LeaseConfig) (Manager, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemory(cfg.TTL()), nil
	case "redis":
		return NewRedisFromConfig(ctx, cfg)
	default:
		return nil, eris.Errorf("lease: unknown backend %q", cfg.Backend)
	}
}

// acquireRetry retries backend errors on Acquire. ErrHeld is final.
var acquireRetry = resilience.RetryConfig{
	MaxAttempts:    3,
	InitialBackoff: 100 * time.Millisecond,
	MaxBackoff:     time.Second,
	Multiplier:     2,
	JitterFraction: 0.25,
	ShouldRetry:    func(err error) bool { return !eris.Is(err, ErrHeld) },
	OnRetry:        resilience.RetryLogger("lease", "acquire"),
}

// Hold acquires the lease for jobID and renews it every ttl/3 until the
// returned release func is called.
func Hold(ctx context.Context, m Manager, jobID string, ttl time.Duration) (release func(), err error) {
	err = resilience.Do(ctx, acquireRetry, func(ctx context.Context) error {
		return m.Acquire(ctx, jobID)
	})
	if err != nil {
		return nil, err
	}

	every := ttl / 3
	if every <= 0 {
		every = time.Second
	}

	renewCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-renewCtx.Done():
				return
			case <-ticker.C:
				if err := m.Renew(renewCtx, jobID); err != nil {
					zap.L().Warn("lease: renew failed", zap.String("job_id", jobID), zap.Error(err))
				}
			}
		}
	}()

	return func() {
		cancel()
		<-done
		if err := m.Release(context.WithoutCancel(ctx), jobID); err != nil {
			zap.L().Warn("lease: release failed", zap.String("job_id", jobID), zap.Error(err))
		}
	}, nil
}
