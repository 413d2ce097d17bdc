package lock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// =============================================================================
// REDIS - Distributed lock for multi-instance deployments
// =============================================================================

// ErrNotAcquired is returned when the lock could not be taken before the
// wait deadline. It is joined with the context error that ended the wait.
var ErrNotAcquired = errors.New("lock not acquired")

// releaseScript deletes the key only if it still holds our token, so a
// holder whose TTL expired cannot release someone else's lock.
var releaseScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

type Redis struct {
	client *redis.Client
	prefix string
	// TTL bounds how long a crashed holder blocks the room.
	ttl time.Duration
	// Retry is the pause between SET NX attempts.
	retry time.Duration
	// Wait bounds how long Acquire polls.
	wait time.Duration
}

func NewRedis(client *redis.Client, prefix string) *Redis {
	if prefix == "" {
		prefix = "booking:lock:"
	}
	return &Redis{
		client: client,
		prefix: prefix,
		ttl:    30 * time.Second,
		retry:  25 * time.Millisecond,
		wait:   10 * time.Second,
	}
}

// WithTTL overrides the lock lease. It must exceed the longest critical
// section, which includes the payment timeout.
func (r *Redis) WithTTL(ttl time.Duration) *Redis {
	r.ttl = ttl
	return r
}

func (r *Redis) WithWait(wait time.Duration) *Redis {
	r.wait = wait
	return r
}

// Acquire polls SET NX PX until it succeeds, ctx is done or the wait
// deadline passes.
func (r *Redis) Acquire(ctx context.Context, key string) (func(), error) {
	token, err := randomToken()
	if err != nil {
		return nil, err
	}
	fullKey := r.prefix + key

	ctx, cancel := context.WithTimeout(ctx, r.wait)
	defer cancel()

	ticker := time.NewTicker(r.retry)
	defer ticker.Stop()

	for {
		ok, err := r.client.SetNX(ctx, fullKey, token, r.ttl).Result()
		if err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("failed to acquire %s: %w", key, err)
		}
		if ok {
			return r.releaser(fullKey, token), nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s: %w", ErrNotAcquired, key, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (r *Redis) releaser(key, token string) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, r.client, []string{key}, token).Err(); err != nil {
			log.Printf("[Lock] release of %s failed (expires with TTL): %v", key, err)
		}
	}
}

func randomToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate lock token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
