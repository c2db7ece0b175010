package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oggyb/matchbot/internal/config"
)

// AdmirerCountTTL is how long a cached admirer count stays valid.
const AdmirerCountTTL = time.Hour

type RedisCache struct {
	Client *redis.Client
}

// NewRedisCache initializes Redis client from config.
// Only Addr is mandatory, Password/DB are optional.
func NewRedisCache(cfg *config.Config) *RedisCache {
	opts := &redis.Options{
		Addr: cfg.Redis.Addr,
	}
	if cfg.Redis.Password != "" {
		opts.Password = cfg.Redis.Password
	}
	if cfg.Redis.DB != 0 {
		opts.DB = cfg.Redis.DB
	}
	return &RedisCache{Client: redis.NewClient(opts)}
}

// New wraps an existing client (tests point it at miniredis).
func New(client *redis.Client) *RedisCache {
	return &RedisCache{Client: client}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.Client.Close()
}

func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return c.Client.Set(ctx, key, value, ttl).Err()
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	return c.Client.Get(ctx, key).Result()
}

func (c *RedisCache) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.Client.Del(ctx, keys...).Err()
}

// GetJSON reads key into dest.
// Returns (true, nil) if found and decoded, (false, nil) on a miss.
func (c *RedisCache) GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	s, err := c.Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(s), dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON marshals v and stores it under key with ttl.
func (c *RedisCache) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Client.Set(ctx, key, b, ttl).Err()
}

// CacheAside tries Redis first; on a miss (or a Redis failure) it calls fetch,
// which must populate dest, and then stores dest with ttl.
// Cache errors never fail the read; fetch errors do.
func (c *RedisCache) CacheAside(ctx context.Context, key string, dest any, ttl time.Duration, fetch func() error) error {
	if found, err := c.GetJSON(ctx, key, dest); err == nil && found {
		return nil
	}
	if err := fetch(); err != nil {
		return err
	}
	_ = c.SetJSON(ctx, key, dest, ttl)
	return nil
}

// Throttle reports whether the caller holds the key for the next ttl.
// The first caller within a window wins (SET NX); everyone else gets false.
func (c *RedisCache) Throttle(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return c.Client.SetNX(ctx, key, 1, ttl).Result()
}

// KeyForProfile is the cache-aside key of a profile record.
func (c *RedisCache) KeyForProfile(userID int64) string {
	return fmt.Sprintf("profile:%d", userID)
}

// KeyForAdmirerCount generates Redis key for a user's admirer count
func (c *RedisCache) KeyForAdmirerCount(userID int64) string {
	return fmt.Sprintf("admirers:count:%d", userID)
}

// KeyForLastActive is the throttle key of last_active refreshes.
func (c *RedisCache) KeyForLastActive(userID int64) string {
	return fmt.Sprintf("active:touch:%d", userID)
}

// KeyForSession is the key of a user's bot conversation state.
func (c *RedisCache) KeyForSession(userID int64) string {
	return fmt.Sprintf("bot:session:%d", userID)
}

func (c *RedisCache) UpdateAdmirerCount(ctx context.Context, userID int64, count int64) error {
	// Always refresh TTL when updating
	return c.Client.Set(ctx, c.KeyForAdmirerCount(userID), count, AdmirerCountTTL).Err()
}

// GetAdmirerCount returns the cached count; found is false on a miss.
func (c *RedisCache) GetAdmirerCount(ctx context.Context, userID int64) (count int64, found bool, err error) {
	key := c.KeyForAdmirerCount(userID)
	val, err := c.Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil // cache miss
	} else if err != nil {
		return 0, false, err
	}
	// refresh TTL on access
	_ = c.Client.Expire(ctx, key, AdmirerCountTTL).Err()
	count, err = strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, err
	}
	return count, true, nil
}

// SetSession stores the pending conversation state of a user.
func (c *RedisCache) SetSession(ctx context.Context, userID int64, state string, ttl time.Duration) error {
	return c.Client.Set(ctx, c.KeyForSession(userID), state, ttl).Err()
}

// GetSession returns the pending conversation state, "" when none.
func (c *RedisCache) GetSession(ctx context.Context, userID int64) (string, error) {
	val, err := c.Client.Get(ctx, c.KeyForSession(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return val, err
}

// ClearSession drops the pending conversation state.
func (c *RedisCache) ClearSession(ctx context.Context, userID int64) error {
	return c.Client.Del(ctx, c.KeyForSession(userID)).Err()
}
