package otpstore

import (
	"context"
	"fmt"
	"time"

	"github.com/candidate-intake-api/internal/domain"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Memory is the single-instance OTP store: an expiring LRU keyed by email.
// The cache TTL is set above the OTP lifetime so a stale entry is still
// observable as expired before the cache reclaims it; actual expiry is
// always decided from the entry's own ExpiresAt.
type Memory struct {
	cache *expirable.LRU[string, domain.OTPEntry]
}

// NewMemory creates a Memory store holding at most size entries. otpTTL is
// the logical OTP lifetime; entries are evicted after twice that.
func NewMemory(size int, otpTTL time.Duration) *Memory {
	return &Memory{
		cache: expirable.NewLRU[string, domain.OTPEntry](size, nil, 2*otpTTL),
	}
}

func (m *Memory) Put(_ context.Context, email string, e domain.OTPEntry) error {
	m.cache.Add(email, e)
	return nil
}

func (m *Memory) Get(_ context.Context, email string) (*domain.OTPEntry, error) {
	e, ok := m.cache.Get(email)
	if !ok {
		return nil, fmt.Errorf("no verification code for %s: %w", email, domain.ErrNotFound)
	}
	return &e, nil
}

func (m *Memory) Delete(_ context.Context, email string) error {
	m.cache.Remove(email)
	return nil
}
