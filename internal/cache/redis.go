package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/SN7k/Flexova/internal/domain"
	"github.com/redis/go-redis/v9"
)

const DefaultTTL = 15 * time.Minute

// Entries are hashes: "version" is always present, "cart" only while the
// entry is filled. An invalidated entry keeps the version as a floor.
const (
	fieldVersion = "version"
	fieldCart    = "cart"
)

// fillScript writes the cart unless the entry records a newer version.
// ARGV: version, payload, ttl in milliseconds.
var fillScript = redis.NewScript(`
local cur = redis.call('HGET', KEYS[1], 'version')
if cur and tonumber(cur) > tonumber(ARGV[1]) then
	return 0
end
redis.call('HSET', KEYS[1], 'version', ARGV[1], 'cart', ARGV[2])
redis.call('PEXPIRE', KEYS[1], ARGV[3])
return 1
`)

// invalidateScript drops the payload and raises the version floor.
// ARGV: version, ttl in milliseconds.
var invalidateScript = redis.NewScript(`
local cur = redis.call('HGET', KEYS[1], 'version')
local floor = ARGV[1]
if cur and tonumber(cur) > tonumber(floor) then
	floor = cur
end
redis.call('DEL', KEYS[1])
redis.call('HSET', KEYS[1], 'version', floor)
redis.call('PEXPIRE', KEYS[1], ARGV[2])
return 1
`)

func NewRedisCache(client redis.UniversalClient, baseTTL time.Duration) *RedisCache {
	if baseTTL <= 0 {
		baseTTL = DefaultTTL
	}
	return &RedisCache{
		client:  client,
		baseTTL: baseTTL,
	}
}

// RedisCache stores carts as version-stamped hashes.
type RedisCache struct {
	client  redis.UniversalClient
	baseTTL time.Duration
}

func (r *RedisCache) Get(ctx context.Context, userID string) (*domain.Cart, error) {
	data, err := r.client.HGet(ctx, cacheKey(userID), fieldCart).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var cart domain.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, fmt.Errorf("unmarshal cart failed: %w", err)
	}
	cart.Recompute()

	return &cart, nil
}

// Set fills the entry with cart. It returns ErrStale, and writes nothing,
// when the entry already records a later version than cart.Version.
func (r *RedisCache) Set(ctx context.Context, userID string, cart *domain.Cart) error {
	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}

	written, err := fillScript.Run(ctx, r.client, []string{cacheKey(userID)},
		cart.Version, data, r.ttl().Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	if written == 0 {
		return ErrStale
	}
	return nil
}

// Invalidate empties the entry and remembers version so that fills read
// before the write are refused.
func (r *RedisCache) Invalidate(ctx context.Context, userID string, version int64) error {
	err := invalidateScript.Run(ctx, r.client, []string{cacheKey(userID)},
		version, r.ttl().Milliseconds()).Err()
	if err != nil {
		return fmt.Errorf("redis invalidate failed: %w", err)
	}
	return nil
}

// ttl is the base TTL plus up to four minutes of jitter so entries written
// together do not expire together.
func (r *RedisCache) ttl() time.Duration {
	return r.baseTTL + time.Duration(rand.IntN(5))*time.Minute
}

func cacheKey(userID string) string {
	return "flexova:cart:" + userID
}
