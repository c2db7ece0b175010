// Package ratelimit throttles per-user actions with a Redis sliding window.
package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/oggyb/matchbot/internal/clock"
)

// slidingWindow drops entries older than the window, admits the hit when
// fewer than max remain and records it. One script call keeps it atomic
// across processes sharing the Redis instance.
//
// KEYS[1] window key
// ARGV[1] cutoff score (ms), ARGV[2] now (ms), ARGV[3] max,
// ARGV[4] member, ARGV[5] key ttl (ms)
var slidingWindow = redis.NewScript(`
redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', ARGV[1])
if redis.call('ZCARD', KEYS[1]) >= tonumber(ARGV[3]) then
	return 0
end
redis.call('ZADD', KEYS[1], ARGV[2], ARGV[4])
redis.call('PEXPIRE', KEYS[1], ARGV[5])
return 1
`)

// Limiter allows at most Max hits per Window for each key.
type Limiter struct {
	client *redis.Client
	clock  clock.Clock
	prefix string
	window time.Duration
	max    int
}

// New creates a limiter. A non-positive max disables limiting.
func New(client *redis.Client, clk clock.Clock, prefix string, window time.Duration, max int) *Limiter {
	return &Limiter{
		client: client,
		clock:  clk,
		prefix: prefix,
		window: window,
		max:    max,
	}
}

func (l *Limiter) key(userID int64) string {
	return "rl:" + l.prefix + ":" + strconv.FormatInt(userID, 10)
}

// Allow records a hit for userID and reports whether it fits in the window.
//
// Fails open: when Redis is unavailable the hit is allowed and the error
// is returned for logging.
func (l *Limiter) Allow(ctx context.Context, userID int64) (bool, error) {
	if l == nil || l.client == nil || l.max <= 0 || l.window <= 0 {
		return true, nil
	}

	now := l.clock.Now().UnixMilli()
	cutoff := now - l.window.Milliseconds()

	res, err := slidingWindow.Run(ctx, l.client, []string{l.key(userID)},
		strconv.FormatInt(cutoff, 10),
		strconv.FormatInt(now, 10),
		strconv.Itoa(l.max),
		uuid.NewString(),
		strconv.FormatInt(l.window.Milliseconds(), 10),
	).Int64()
	if err != nil {
		return true, fmt.Errorf("rate limit window: %w", err)
	}
	return res == 1, nil
}

// Reset forgets all hits of userID.
func (l *Limiter) Reset(ctx context.Context, userID int64) error {
	if l == nil || l.client == nil {
		return nil
	}
	return l.client.Del(ctx, l.key(userID)).Err()
}
