package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/geeta-saathi/backend/internal/domain"
	"github.com/go-redis/redis/v8"
)

const codeKeyPrefix = "otp:"

// CodeStore keeps one-time codes under otp:<phone> with the code's remaining
// lifetime as the key TTL, so Redis handles eviction.
type CodeStore struct {
	client redis.Cmdable
	now    func() time.Time
}

func NewCodeStore(client redis.Cmdable) *CodeStore {
	return &CodeStore{client: client, now: time.Now}
}

func codeKey(phone string) string { return codeKeyPrefix + phone }

func (s *CodeStore) Put(ctx context.Context, c *domain.OneTimeCode) error {
	ttl := c.TTL(s.now())
	if ttl <= 0 {
		return fmt.Errorf("otp code for %s already expired: %w", c.PhoneNumber, domain.ErrBadRequest)
	}
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal otp code: %w", err)
	}
	return s.client.Set(ctx, codeKey(c.PhoneNumber), data, ttl).Err()
}

// Take removes and returns the code for phone with GETDEL, so concurrent
// verifications cannot both observe the same entry.
func (s *CodeStore) Take(ctx context.Context, phone string) (*domain.OneTimeCode, error) {
	data, err := s.client.GetDel(ctx, codeKey(phone)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("otp code not found: %w", domain.ErrNotFound)
		}
		return nil, err
	}
	var c domain.OneTimeCode
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("unmarshal otp code: %w", err)
	}
	if c.Expired(s.now()) {
		return nil, fmt.Errorf("otp code expired: %w", domain.ErrNotFound)
	}
	return &c, nil
}

// Restore puts a taken code back with SET NX, leaving any newer code alone.
func (s *CodeStore) Restore(ctx context.Context, c *domain.OneTimeCode) error {
	ttl := c.TTL(s.now())
	if ttl <= 0 {
		return nil
	}
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal otp code: %w", err)
	}
	return s.client.SetNX(ctx, codeKey(c.PhoneNumber), data, ttl).Err()
}
