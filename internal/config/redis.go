package config

import (
    "context"
    "crypto/tls"
    "fmt"
    "time"

    "github.com/redis/go-redis/v9"
)

// RedisConfig locates the Redis instance behind the redis credential
// backend, the mutation rate limiter and the catalog cache.
type RedisConfig struct {
    Addr        string
    Password    string
    DB          int
    TLS         bool
    DialTimeout time.Duration
}

// LoadRedisConfig reads REDIS_HOST/REDIS_PORT (or REDIS_ADDR), REDIS_PASSWORD,
// REDIS_DB, REDIS_TLS and REDIS_DIAL_TIMEOUT.  Host and port win over
// REDIS_ADDR when both are set.
func LoadRedisConfig() RedisConfig {
    addr := getenv("REDIS_ADDR", "localhost:6379")
    if host, port := getenv("REDIS_HOST", ""), getenv("REDIS_PORT", ""); host != "" && port != "" {
        addr = host + ":" + port
    }
    return RedisConfig{
        Addr:        addr,
        Password:    getenv("REDIS_PASSWORD", ""),
        DB:          envInt("REDIS_DB", 0),
        TLS:         envBool("REDIS_TLS", false),
        DialTimeout: envDur("REDIS_DIAL_TIMEOUT", 2*time.Second),
    }
}

// Options converts rc into go-redis client options.
func (rc RedisConfig) Options() *redis.Options {
    opts := &redis.Options{
        Addr:        rc.Addr,
        Password:    rc.Password,
        DB:          rc.DB,
        DialTimeout: rc.DialTimeout,
    }
    if rc.TLS {
        opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
    }
    return opts
}

// NewRedisClient connects and pings.  On failure the client is closed and
// the error returned; callers run without Redis, which turns rate limiting
// and caching into pass-through middleware and refuses the redis
// credential backend.
func NewRedisClient(ctx context.Context, rc RedisConfig) (*redis.Client, error) {
    client := redis.NewClient(rc.Options())
    pingCtx, cancel := context.WithTimeout(ctx, rc.DialTimeout)
    defer cancel()
    if err := client.Ping(pingCtx).Err(); err != nil {
        _ = client.Close()
        return nil, fmt.Errorf("redis %s: %w", rc.Addr, err)
    }
    return client, nil
}
