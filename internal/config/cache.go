package config

import (
    "strings"
    "time"
)

// CacheConfig controls the catalog response cache.  Universes, seasons and
// items are shared by every player and change rarely, so their rendered
// JSON is kept in Redis.  RouteTTL overrides TTL per route path.
type CacheConfig struct {
    Enabled      bool
    Methods      map[string]bool
    TTL          time.Duration
    RouteTTL     map[string]time.Duration
    KeyStrategy  string // route | method_route | route_query | method_route_query
    Prefix       string
    MaxBodyBytes int
}

// LoadCacheConfig reads CACHE_*.  CACHE_ROUTE_TTL takes entries of the form
// "/v1/catalog/universes=1h"; malformed entries are skipped.
func LoadCacheConfig() CacheConfig {
    cfg := CacheConfig{
        Enabled:      envBool("CACHE_ENABLED", true),
        Methods:      map[string]bool{},
        TTL:          envDur("CACHE_TTL", 5*time.Minute),
        RouteTTL:     map[string]time.Duration{},
        KeyStrategy:  getenv("CACHE_KEY_STRATEGY", "route_query"),
        Prefix:       getenv("CACHE_PREFIX", "ggame:catalog"),
        MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
    }
    for _, m := range envList("CACHE_METHODS", "GET") {
        cfg.Methods[strings.ToUpper(m)] = true
    }
    for _, entry := range envList("CACHE_ROUTE_TTL", "") {
        route, raw, ok := strings.Cut(entry, "=")
        if !ok {
            continue
        }
        if d, err := time.ParseDuration(strings.TrimSpace(raw)); err == nil && d > 0 {
            cfg.RouteTTL[strings.TrimSpace(route)] = d
        }
    }
    return cfg
}

// TTLFor returns the expiry for entries cached under route.
func (c CacheConfig) TTLFor(route string) time.Duration {
    if d, ok := c.RouteTTL[route]; ok {
        return d
    }
    if c.TTL <= 0 {
        return 5 * time.Minute
    }
    return c.TTL
}
