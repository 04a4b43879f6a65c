package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const attemptKeyPrefix = "authrate:card:"

// keyRetention keeps card keys alive well past any plausible window so a
// card's history survives between attempts without growing forever.
const keyRetention = 24 * time.Hour

// RedisCounter keeps one sorted set of attempt timestamps per card, scored by
// unix nanoseconds. Unlike the cache wrapper this does NOT fail safe: a
// broken counter means the rate limit cannot be checked, and the engine
// fails closed.
type RedisCounter struct {
	client *redis.Client
}

// NewRedisCounter creates a Redis-backed counter.
func NewRedisCounter(client *redis.Client) *RedisCounter {
	return &RedisCounter{client: client}
}

func attemptKey(cardNumber string) string {
	return attemptKeyPrefix + cardNumber
}

// RecordAttempt adds one attempt to the card's sorted set. Members are unique
// so two attempts in the same nanosecond are both kept.
func (c *RedisCounter) RecordAttempt(ctx context.Context, cardNumber string, at time.Time) error {
	key := attemptKey(cardNumber)
	z := redis.Z{Score: float64(at.UnixNano()), Member: uuid.NewString()}
	if err := c.client.ZAdd(ctx, key, z).Err(); err != nil {
		return fmt.Errorf("record attempt: %w", err)
	}
	if err := c.client.Expire(ctx, key, keyRetention).Err(); err != nil {
		return fmt.Errorf("touch attempt key: %w", err)
	}
	return nil
}

// RecentAttemptCount prunes entries at or before asOf-window and counts the
// rest up to asOf (exclusive lower bound, inclusive upper).
func (c *RedisCounter) RecentAttemptCount(ctx context.Context, cardNumber string, asOf time.Time, window time.Duration) (int, error) {
	key := attemptKey(cardNumber)
	cutoff := asOf.Add(-window).UnixNano()

	if err := c.client.ZRemRangeByScore(ctx, key, "-inf", strconv.FormatInt(cutoff, 10)).Err(); err != nil {
		return 0, fmt.Errorf("prune attempts: %w", err)
	}
	n, err := c.client.ZCount(ctx, key,
		"("+strconv.FormatInt(cutoff, 10),
		strconv.FormatInt(asOf.UnixNano(), 10)).Result()
	if err != nil {
		return 0, fmt.Errorf("count attempts: %w", err)
	}
	return int(n), nil
}
