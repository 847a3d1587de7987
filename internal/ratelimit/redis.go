package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// checkAndConsumeScript runs the fixed-window algorithm inside Redis so the
// read, the cap check and the increment are a single atomic step.
//
// KEYS[1] record hash
// ARGV    now_ms, per_minute, per_hour, minute_ms, hour_ms
// returns {allowed, retry_ms, scope, minute_count}
var checkAndConsumeScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local per_minute = tonumber(ARGV[2])
local per_hour = tonumber(ARGV[3])
local minute_ms = tonumber(ARGV[4])
local hour_ms = tonumber(ARGV[5])

local rec = redis.call('HMGET', KEYS[1], 'mc', 'me', 'hc', 'he')
local mc = tonumber(rec[1]) or 0
local me = tonumber(rec[2]) or 0
local hc = tonumber(rec[3]) or 0
local he = tonumber(rec[4]) or 0

if now > me then
  mc = 0
  me = now + minute_ms
end
if now > he then
  hc = 0
  he = now + hour_ms
end

if mc >= per_minute then
  return {0, me - now, 1, mc}
end
if hc >= per_hour then
  return {0, he - now, 2, mc}
end

mc = mc + 1
hc = hc + 1
redis.call('HSET', KEYS[1], 'mc', mc, 'me', me, 'hc', hc, 'he', he)
redis.call('PEXPIREAT', KEYS[1], he)
return {1, 0, 0, mc}
`)

// RedisStore shares records between processes through Redis. Expired records
// are removed by Redis key expiry, so Sweep has nothing to do.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisStore creates a store that namespaces keys under keyPrefix
func NewRedisStore(client *redis.Client, keyPrefix string) *RedisStore {
	if keyPrefix == "" {
		keyPrefix = "rate_limit"
	}
	return &RedisStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// CheckAndConsume implements Store.
func (r *RedisStore) CheckAndConsume(ctx context.Context, key string, policy Policy, now time.Time) (Decision, error) {
	res, err := checkAndConsumeScript.Run(ctx, r.client,
		[]string{fmt.Sprintf("%s:%s", r.keyPrefix, key)},
		now.UnixMilli(),
		policy.PerMinute,
		policy.PerHour,
		MinuteWindow.Milliseconds(),
		HourWindow.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("failed to run rate limit script: %w", err)
	}
	if len(res) != 4 {
		return Decision{}, fmt.Errorf("unexpected rate limit script result: %v", res)
	}

	if res[0] == 1 {
		return Decision{
			Allowed:   true,
			Remaining: policy.PerMinute - int(res[3]),
		}, nil
	}

	scope := ScopeMinute
	if res[2] == 2 {
		scope = ScopeHour
	}
	return Decision{
		Scope:      scope,
		RetryAfter: retryAfter(now.Add(time.Duration(res[1])*time.Millisecond), now),
	}, nil
}

// Sweep implements Store.
func (r *RedisStore) Sweep(ctx context.Context, now time.Time) (int, error) {
	return 0, nil
}
