package store

import (
	"context"
	"sync"
	"time"
)

// MemoryPersister implements Persister in process memory. Used for testing
// and development. Not suitable for production (no persistence).
type MemoryPersister struct {
	mu      sync.RWMutex
	value   string
	expires time.Time
	ttl     time.Duration
	now     func() time.Time
	saves   int
}

// NewMemoryPersister creates an empty in-memory persister. A ttl <= 0 means
// values never expire.
func NewMemoryPersister(ttl time.Duration) *MemoryPersister {
	return &MemoryPersister{ttl: ttl, now: time.Now}
}

func (p *MemoryPersister) Load(_ context.Context) (string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.value == "" {
		return "", ErrNotFound
	}
	if !p.expires.IsZero() && !p.now().Before(p.expires) {
		return "", ErrNotFound
	}
	return p.value, nil
}

func (p *MemoryPersister) Save(_ context.Context, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.value = text
	p.saves++
	if p.ttl > 0 {
		p.expires = p.now().Add(p.ttl)
	}
	return nil
}

// Saves reports how many writes have been made.
func (p *MemoryPersister) Saves() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.saves
}

// SetClock overrides the time source used for expiry.
func (p *MemoryPersister) SetClock(now func() time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.now = now
}
