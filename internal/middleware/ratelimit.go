package middleware

import (
    "math"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
    "go.uber.org/zap"

    "github.com/iliyamo/ggame-miniapp/internal/config"
)

// tokenBucket refills lazily on each call and returns
// {allowed, remaining, retry_after_ms}.
var tokenBucket = redis.NewScript(`
local key         = KEYS[1]
local now_ms      = tonumber(ARGV[1])
local capacity    = tonumber(ARGV[2])
local refill      = tonumber(ARGV[3])
local interval_ms = tonumber(ARGV[4])
local ttl_ms      = tonumber(ARGV[5])

local state  = redis.call('HMGET', key, 'tokens', 'last_ms')
local tokens = tonumber(state[1]) or capacity
local last   = tonumber(state[2]) or now_ms

local steps = math.floor(math.max(0, now_ms - last) / interval_ms)
if steps > 0 then
  tokens = math.min(capacity, tokens + steps * refill)
  last = last + steps * interval_ms
end

local allowed, retry = 0, 0
if tokens > 0 then
  allowed = 1
  tokens = tokens - 1
else
  retry = math.max(0, interval_ms - (now_ms - last))
end

redis.call('HSET', key, 'tokens', tokens, 'last_ms', last)
redis.call('PEXPIRE', key, ttl_ms)
return {allowed, tokens, retry}
`)

type bucketDecision struct {
    allowed   bool
    remaining int64
    retry     time.Duration
}

// decodeBucket reads the script reply; ok is false for anything else.
func decodeBucket(v any) (d bucketDecision, ok bool) {
    arr, isArr := v.([]any)
    if !isArr || len(arr) != 3 {
        return d, false
    }
    n := make([]int64, 3)
    for i, x := range arr {
        switch t := x.(type) {
        case int64:
            n[i] = t
        case string:
            p, err := strconv.ParseInt(t, 10, 64)
            if err != nil {
                return d, false
            }
            n[i] = p
        default:
            return d, false
        }
    }
    return bucketDecision{allowed: n[0] == 1, remaining: n[1], retry: time.Duration(n[2]) * time.Millisecond}, true
}

// NewTokenBucket limits requests with a Redis-backed token bucket keyed per
// cfg.KeyStrategy. Redis errors let the request through; without Redis the
// middleware is a pass-through.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client, log *zap.Logger) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }
    if log == nil {
        log = zap.NewNop()
    }
    cfg = cfg.Normalized()
    limit := strconv.Itoa(cfg.Capacity)

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            key := buildRateKey(cfg, c)
            reply, err := tokenBucket.Run(c.Request().Context(), rdb, []string{key},
                time.Now().UnixMilli(), cfg.Capacity, cfg.RefillTokens,
                cfg.RefillInterval.Milliseconds(), cfg.TTL.Milliseconds()).Result()
            if err != nil {
                log.Warn("rate limit check failed", zap.String("key", key), zap.Error(err))
                return next(c)
            }
            d, ok := decodeBucket(reply)
            if !ok {
                log.Warn("rate limit reply malformed", zap.String("key", key), zap.Any("reply", reply))
                return next(c)
            }

            h := c.Response().Header()
            h.Set("X-RateLimit-Limit", limit)
            h.Set("X-RateLimit-Remaining", strconv.FormatInt(d.remaining, 10))
            if cfg.Debug {
                h.Set("X-RateLimit-Key", key)
            }
            if d.allowed {
                return next(c)
            }

            secs := int(math.Ceil(d.retry.Seconds()))
            h.Set("Retry-After", strconv.Itoa(secs))
            log.Debug("rate limited", zap.String("key", key), zap.Duration("retry", d.retry))
            return c.JSON(http.StatusTooManyRequests, map[string]any{
                "error":       "too_many_requests",
                "message":     "rate limit exceeded",
                "retry_after": secs,
            })
        }
    }
}

// buildRateKey joins the parts cfg.KeyStrategy selects. Unknown strategies
// use ip, session and route together.
func buildRateKey(cfg config.RateLimitConfig, c echo.Context) string {
    ip := c.RealIP()
    if ip == "" {
        ip = "unknown"
    }
    part := map[string][]string{
        "ip":      {"ip", ip},
        "session": {"session", sessionID(c)},
        "route":   {"route", c.Request().Method + " " + c.Path()},
    }

    var names []string
    switch s := strings.ToLower(cfg.KeyStrategy); s {
    case "ip", "session", "route":
        names = []string{s}
    case "ip_session", "ip_route", "session_route":
        names = strings.SplitN(s, "_", 2)
    default:
        names = []string{"ip", "session", "route"}
    }

    key := []string{cfg.Prefix}
    for _, n := range names {
        key = append(key, part[n]...)
    }
    return strings.Join(key, ":")
}
