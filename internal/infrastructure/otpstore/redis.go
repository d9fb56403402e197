package otpstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/candidate-intake-api/internal/domain"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "otp:"

// Redis stores OTP entries as JSON values with a server-side TTL, for
// deployments running more than one API instance behind a load balancer.
type Redis struct {
	client *redis.Client
}

func NewRedis(addr string, db int) *Redis {
	return &Redis{client: redis.NewClient(&redis.Options{Addr: addr, DB: db})}
}

func (r *Redis) Put(ctx context.Context, email string, e domain.OTPEntry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal otp entry: %w", err)
	}
	// Keep the key a little past logical expiry so the expired-code error
	// path stays reachable; expiry itself is judged from ExpiresAt.
	ttl := time.Until(time.Unix(e.ExpiresAt, 0)) + time.Minute
	if ttl < time.Minute {
		ttl = time.Minute
	}
	return r.client.Set(ctx, keyPrefix+email, data, ttl).Err()
}

func (r *Redis) Get(ctx context.Context, email string) (*domain.OTPEntry, error) {
	data, err := r.client.Get(ctx, keyPrefix+email).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("no verification code for %s: %w", email, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	var e domain.OTPEntry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("unmarshal otp entry: %w", err)
	}
	return &e, nil
}

func (r *Redis) Delete(ctx context.Context, email string) error {
	return r.client.Del(ctx, keyPrefix+email).Err()
}
