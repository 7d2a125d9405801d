// Package ratelimit implements a Redis-backed token bucket used to guard
// the run endpoint: every run fans out paid LLM calls, so unthrottled
// callers translate directly into provider spend.
package ratelimit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Bucket configures one limiter scope.
type Bucket struct {
	RequestsPerMinute int
	BurstSize         int
}

// Enabled reports whether the bucket is configured.
func (b Bucket) Enabled() bool {
	return b.RequestsPerMinute > 0 && b.BurstSize > 0
}

// Decision is the outcome of an Allow check.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// Limiter decides whether a subject may proceed.
type Limiter interface {
	Allow(ctx context.Context, scope, subject string, bucket Bucket) (Decision, error)
}

// TokenBucketLimiter is a Redis Lua token bucket shared across replicas.
type TokenBucketLimiter struct {
	rdb *redis.Client
}

// NewTokenBucketLimiter creates a limiter over the given Redis client.
func NewTokenBucketLimiter(rdb *redis.Client) *TokenBucketLimiter {
	return &TokenBucketLimiter{rdb: rdb}
}

var tokenBucketScript = redis.NewScript(`
local key = KEYS[1]
local rate = tonumber(ARGV[1]) -- tokens/sec
local capacity = tonumber(ARGV[2])
local now = tonumber(ARGV[3]) -- ms
local ttl_ms = tonumber(ARGV[4])

local tokens = tonumber(redis.call("HGET", key, "tokens"))
local ts = tonumber(redis.call("HGET", key, "ts"))

if not tokens then tokens = capacity end
if not ts then ts = now end
if now < ts then ts = now end

local elapsed = now - ts
local refill = elapsed * (rate / 1000.0)
tokens = math.min(capacity, tokens + refill)

local allowed = 0
local retry_after_s = 0
if tokens >= 1.0 then
  allowed = 1
  tokens = tokens - 1.0
else
  if rate > 0 then
    local needed = 1.0 - tokens
    retry_after_s = math.ceil(needed / rate)
    if retry_after_s < 1 then retry_after_s = 1 end
  end
end

redis.call("HSET", key, "tokens", tokens, "ts", now)
redis.call("PEXPIRE", key, ttl_ms)

return {allowed, retry_after_s}
`)

// Allow consumes one token for the subject in the given scope.
func (l *TokenBucketLimiter) Allow(ctx context.Context, scope, subject string, bucket Bucket) (Decision, error) {
	if !bucket.Enabled() {
		return Decision{Allowed: true}, nil
	}

	rate := float64(bucket.RequestsPerMinute) / 60.0
	key := fmt.Sprintf("rl:%s:%s", scope, hashSubject(subject))
	now := time.Now().UnixMilli()
	// Keep the bucket around long enough to refill fully.
	ttl := time.Duration(float64(bucket.BurstSize)/rate)*time.Second + time.Minute

	res, err := tokenBucketScript.Run(ctx, l.rdb,
		[]string{key}, rate, bucket.BurstSize, now, ttl.Milliseconds()).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("token bucket script failed: %w", err)
	}

	vals, ok := res.([]interface{})
	if !ok || len(vals) != 2 {
		return Decision{}, fmt.Errorf("unexpected script result: %v", res)
	}
	allowed, _ := vals[0].(int64)
	retryAfter, _ := vals[1].(int64)

	return Decision{
		Allowed:    allowed == 1,
		RetryAfter: time.Duration(retryAfter) * time.Second,
	}, nil
}

// hashSubject keeps raw tokens and addresses out of Redis keys.
func hashSubject(subject string) string {
	sum := sha256.Sum256([]byte(subject))
	return hex.EncodeToString(sum[:8])
}
