package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/geeta-saathi/backend/internal/domain"
)

// CodeStore is a process-local one-time code store for single-instance
// deployments and tests. Expired entries are never handed out and are swept
// periodically by Run.
type CodeStore struct {
	mu    sync.Mutex
	codes map[string]domain.OneTimeCode
	now   func() time.Time
}

func NewCodeStore() *CodeStore {
	return &CodeStore{codes: make(map[string]domain.OneTimeCode), now: time.Now}
}

func (s *CodeStore) Put(_ context.Context, c *domain.OneTimeCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[c.PhoneNumber] = *c
	return nil
}

// Take removes and returns the code held for phone. Only one caller can
// take a given code.
func (s *CodeStore) Take(_ context.Context, phone string) (*domain.OneTimeCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.codes[phone]
	if !ok {
		return nil, fmt.Errorf("otp code not found: %w", domain.ErrNotFound)
	}
	delete(s.codes, phone)
	if c.Expired(s.now()) {
		return nil, fmt.Errorf("otp code expired: %w", domain.ErrNotFound)
	}
	return &c, nil
}

// Restore puts a taken code back unless a newer one was issued meanwhile.
func (s *CodeStore) Restore(_ context.Context, c *domain.OneTimeCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.codes[c.PhoneNumber]; ok || c.Expired(s.now()) {
		return nil
	}
	s.codes[c.PhoneNumber] = *c
	return nil
}

// Len returns the number of entries currently held, expired or not.
func (s *CodeStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.codes)
}

// Sweep removes every expired entry and returns how many were dropped.
func (s *CodeStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	n := 0
	for phone, c := range s.codes {
		if c.Expired(now) {
			delete(s.codes, phone)
			n++
		}
	}
	return n
}

// Run sweeps every interval until ctx is cancelled.
func (s *CodeStore) Run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.Sweep()
		}
	}
}
