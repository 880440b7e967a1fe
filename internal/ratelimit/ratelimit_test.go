package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "folio:rl:verifyPassword:203.0.113.9", Key("folio:rl", "verifyPassword", "203.0.113.9"))
	assert.Equal(t, "folio:rl:forgotPassword:unknown", Key("folio:rl", "forgotPassword", ""))
}

func TestParseResult(t *testing.T) {
	d, err := parseResult([]any{int64(1), int64(4), int64(0)})
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, int64(4), d.Remaining)

	d, err = parseResult([]any{int64(0), int64(0), int64(1500)})
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 1500*time.Millisecond, d.RetryAfter)

	_, err = parseResult("nope")
	assert.Error(t, err)
}

func TestNewRedis_Defaults(t *testing.T) {
	r := NewRedis(nil, Config{})
	assert.Equal(t, 1, r.cfg.Capacity)
	assert.Equal(t, time.Minute, r.cfg.RefillEvery)
	assert.Equal(t, 2*time.Minute, r.cfg.TTL)
}

func TestRedis_AllowReturnsErrorWhenUnreachable(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { rdb.Close() })

	_, err := NewRedis(rdb, Config{Capacity: 3}).Allow(context.Background(), "k")
	assert.Error(t, err)
}
