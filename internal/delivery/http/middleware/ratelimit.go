package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"seatrotation/config"
	h "seatrotation/internal/delivery/http/helpers"
)

// tokenBucketScript refills and takes one token atomically. It returns
// {allowed, remaining, retry_after_ms}.
var tokenBucketScript = redis.NewScript(`
	local key = KEYS[1]
	local now_ms = tonumber(ARGV[1])
	local capacity = tonumber(ARGV[2])
	local refill_tokens = tonumber(ARGV[3])
	local interval_ms = tonumber(ARGV[4])
	local ttl_seconds = tonumber(ARGV[5])

	local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
	local tokens = tonumber(state[1])
	local last_refill = tonumber(state[2])
	if tokens == nil or last_refill == nil then
		tokens = capacity
		last_refill = now_ms
	end

	if interval_ms > 0 and refill_tokens > 0 then
		local elapsed = math.max(0, now_ms - last_refill)
		local intervals = math.floor(elapsed / interval_ms)
		if intervals > 0 then
			tokens = math.min(capacity, tokens + (intervals * refill_tokens))
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

// bucket takes one token for key. It is satisfied by *redisBucket and by test fakes.
type bucket interface {
	Take(ctx context.Context, key string, cfg config.RateLimitConfig, now time.Time) (allowed bool, remaining, retryMs int64, err error)
}

type redisBucket struct {
	rdb redis.Scripter
}

func (b redisBucket) Take(ctx context.Context, key string, cfg config.RateLimitConfig, now time.Time) (bool, int64, int64, error) {
	vals, err := tokenBucketScript.Run(ctx, b.rdb, []string{key},
		now.UnixMilli(),
		cfg.Capacity,
		cfg.RefillTokens,
		cfg.RefillInterval.Milliseconds(),
		int64(cfg.TTL/time.Second),
	).Int64Slice()
	if err != nil {
		return false, 0, 0, err
	}
	if len(vals) != 3 {
		return false, 0, 0, fmt.Errorf("unexpected token bucket result %v", vals)
	}
	return vals[0] == 1, vals[1], vals[2], nil
}

// RateLimit returns a wrapper enforcing a Redis token bucket per key. When
// the limiter is disabled or rdb is nil the wrapper is a pass-through, and
// Redis errors fail open.
func RateLimit(cfg config.RateLimitConfig, rdb *redis.Client, logger *slog.Logger) func(http.HandlerFunc) http.HandlerFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next http.HandlerFunc) http.HandlerFunc { return next }
	}
	return rateLimit(cfg, redisBucket{rdb: rdb}, logger, time.Now)
}

func rateLimit(cfg config.RateLimitConfig, b bucket, logger *slog.Logger, now func() time.Time) func(http.HandlerFunc) http.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			key := rateKey(cfg, r)
			allowed, remaining, retryMs, err := b.Take(r.Context(), key, cfg, now())
			if err != nil {
				logger.WarnContext(r.Context(), "rate limiter unavailable", "key", key, "err", err)
				next(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
			if !allowed {
				secs := int(math.Ceil(float64(retryMs) / 1000.0))
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				logger.DebugContext(r.Context(), "rate limited", "key", key, "retry_ms", retryMs)
				h.WriteJSONError(w, http.StatusTooManyRequests, h.ErrCodeRateLimited, "rate limit exceeded")
				return
			}
			next(w, r)
		}
	}
}

func rateKey(cfg config.RateLimitConfig, r *http.Request) string {
	ip := clientIP(r)
	uid, ok := UserIDFromContext(r.Context())
	if !ok {
		uid = "anon"
	}
	route := r.Method + " " + r.URL.Path

	parts := []string{cfg.Prefix}
	switch strings.ToLower(cfg.KeyStrategy) {
	case "ip":
		parts = append(parts, "ip", ip)
	case "user":
		parts = append(parts, "user", uid)
	case "user_route":
		parts = append(parts, "user", uid, "route", route)
	case "ip_route":
		parts = append(parts, "ip", ip, "route", route)
	default:
		parts = append(parts, "ip", ip, "user", uid, "route", route)
	}
	return strings.Join(parts, ":")
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if ip := strings.TrimSpace(strings.Split(fwd, ",")[0]); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		if r.RemoteAddr == "" {
			return "unknown"
		}
		return r.RemoteAddr
	}
	return host
}
