package lease

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

// Memory is an in-process Manager. Leases die with the process, which is
// exactly what the reconciler needs to notice after a restart.
type Memory struct {
	mu     sync.Mutex
	ttl    time.Duration
	now    func() time.Time
	expiry map[string]time.Time
}

// NewMemory creates a Memory manager with the given lease TTL.
func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Memory{ttl: ttl, now: time.Now, expiry: make(map[string]time.Time)}
}

func (m *Memory) alive(jobID string) bool {
	exp, ok := m.expiry[jobID]
	if !ok {
		return false
	}
	if !m.now().Before(exp) {
		delete(m.expiry, jobID)
		return false
	}
	return true
}

// Acquire takes the lease for jobID.
func (m *Memory) Acquire(_ context.Context, jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.alive(jobID) {
		return ErrHeld
	}
	m.expiry[jobID] = m.now().Add(m.ttl)
	return nil
}

// Renew extends a live lease.
func (m *Memory) Renew(_ context.Context, jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.alive(jobID) {
		return eris.Errorf("lease: %s expired before renewal", jobID)
	}
	m.expiry[jobID] = m.now().Add(m.ttl)
	return nil
}

// Release drops the lease.
func (m *Memory) Release(_ context.Context, jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.expiry, jobID)
	return nil
}

// Alive reports whether jobID has an unexpired lease.
func (m *Memory) Alive(_ context.Context, jobID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.alive(jobID), nil
}
