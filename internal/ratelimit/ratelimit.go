// Package ratelimit implements a Redis-backed token bucket shared by every
// server instance.
package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed    bool
	Remaining  int64
	RetryAfter time.Duration
}

// Limiter takes one token from the bucket named by key.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

type Config struct {
	Capacity    int
	RefillEvery time.Duration // one token per interval
	TTL         time.Duration
}

// Key builds the bucket name for an action from one client address.
func Key(prefix, action, ip string) string {
	if ip == "" {
		ip = "unknown"
	}
	return strings.Join([]string{prefix, action, ip}, ":")
}

// bucketScript refills, takes one token and returns
// {allowed, remaining, retry_after_ms} atomically.
var bucketScript = redis.NewScript(`
local key = KEYS[1]
local now_ms = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local interval_ms = tonumber(ARGV[3])
local ttl_seconds = tonumber(ARGV[4])

local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
local tokens = tonumber(state[1])
local last_refill = tonumber(state[2])

if tokens == nil or last_refill == nil then
  tokens = capacity
  last_refill = now_ms
end

if interval_ms > 0 then
  local elapsed = math.max(0, now_ms - last_refill)
  local intervals = math.floor(elapsed / interval_ms)
  if intervals > 0 then
    tokens = math.min(capacity, tokens + intervals)
    last_refill = last_refill + (intervals * interval_ms)
  end
end

local allowed = 0
local retry_after_ms = 0
if tokens > 0 then
  allowed = 1
  tokens = tokens - 1
else
  retry_after_ms = math.max(0, interval_ms - (now_ms - last_refill))
end

redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
redis.call('EXPIRE', key, ttl_seconds)

return { allowed, tokens, retry_after_ms }
`)

// Redis is a Limiter backed by a Lua script so that refill and take happen
// in one round trip.
type Redis struct {
	rdb redis.Scripter
	cfg Config
	now func() time.Time
}

func NewRedis(rdb redis.Scripter, cfg Config) *Redis {
	if cfg.Capacity < 1 {
		cfg.Capacity = 1
	}
	if cfg.RefillEvery <= 0 {
		cfg.RefillEvery = time.Minute
	}
	if cfg.TTL <= 0 {
		cfg.TTL = time.Duration(cfg.Capacity+1) * cfg.RefillEvery
	}
	return &Redis{rdb: rdb, cfg: cfg, now: time.Now}
}

func (r *Redis) Allow(ctx context.Context, key string) (Decision, error) {
	ttl := int64(r.cfg.TTL / time.Second)
	if ttl < 1 {
		ttl = 1
	}
	vals, err := bucketScript.Run(ctx, r.rdb, []string{key},
		r.now().UnixMilli(),
		r.cfg.Capacity,
		r.cfg.RefillEvery.Milliseconds(),
		ttl,
	).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit script %s: %w", key, err)
	}
	return parseResult(vals)
}

func parseResult(vals any) (Decision, error) {
	arr, ok := vals.([]any)
	if !ok || len(arr) != 3 {
		return Decision{}, fmt.Errorf("unexpected rate limit result %#v", vals)
	}
	return Decision{
		Allowed:    asInt64(arr[0]) == 1,
		Remaining:  asInt64(arr[1]),
		RetryAfter: time.Duration(asInt64(arr[2])) * time.Millisecond,
	}, nil
}

func asInt64(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	case string:
		if n, err := strconv.ParseInt(t, 10, 64); err == nil {
			return n
		}
	}
	return 0
}
