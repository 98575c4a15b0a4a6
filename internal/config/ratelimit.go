package config

import "time"

// RateLimitConfig bounds how fast a single session can fire view mutations
// (add/remove deck cards, acquire, sell).  Two rapid clicks still both reach
// the backend; the limiter only stops runaway loops.
type RateLimitConfig struct {
    Enabled        bool
    Capacity       int           // bucket size
    RefillTokens   int           // tokens added per interval
    RefillInterval time.Duration
    TTL            time.Duration // idle buckets expire after this
    KeyStrategy    string
    Prefix         string
    Debug          bool // expose the bucket key in X-RateLimit-Key
}

// LoadRateLimitConfig reads RATE_LIMIT_*.  RATE_LIMIT_BURST, when positive,
// overrides RATE_LIMIT_CAPACITY.
func LoadRateLimitConfig() RateLimitConfig {
    cfg := RateLimitConfig{
        Enabled:        envBool("RATE_LIMIT_ENABLED", true),
        Capacity:       envInt("RATE_LIMIT_CAPACITY", 20),
        RefillTokens:   envInt("RATE_LIMIT_REFILL_TOKENS", 1),
        RefillInterval: envDur("RATE_LIMIT_REFILL_INTERVAL", time.Second),
        TTL:            envDur("RATE_LIMIT_TTL", 10*time.Minute),
        KeyStrategy:    getenv("RATE_LIMIT_KEY_STRATEGY", "session_route"),
        Prefix:         getenv("RATE_LIMIT_PREFIX", "ggame:rl"),
        Debug:          envBool("RATE_LIMIT_DEBUG", false),
    }
    if burst := envInt("RATE_LIMIT_BURST", 0); burst > 0 {
        cfg.Capacity = burst
    }
    return cfg.Normalized()
}

// Normalized clamps cfg to usable values.  A bucket lives at least five
// refill intervals so a briefly idle session does not get a fresh burst.
func (cfg RateLimitConfig) Normalized() RateLimitConfig {
    cfg.Capacity = max(cfg.Capacity, 1)
    cfg.RefillTokens = max(cfg.RefillTokens, 1)
    if cfg.RefillInterval <= 0 {
        cfg.RefillInterval = time.Second
    }
    cfg.TTL = max(cfg.TTL, 5*cfg.RefillInterval)
    return cfg
}
