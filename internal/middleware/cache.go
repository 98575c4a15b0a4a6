package middleware

import (
    "bytes"
    "context"
    "crypto/sha1"
    "encoding/hex"
    "encoding/json"
    "errors"
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
    "go.uber.org/zap"

    "github.com/iliyamo/ggame-miniapp/internal/config"
)

// cachedResponse is what a catalog cache entry holds.
type cachedResponse struct {
    Status int         `json:"s"`
    Header http.Header `json:"h,omitempty"`
    Body   []byte      `json:"b,omitempty"`
}

// replay writes r to c, leaving Content-Length to the server.
func (r cachedResponse) replay(c echo.Context) error {
    h := c.Response().Header()
    for k, vals := range r.Header {
        if http.CanonicalHeaderKey(k) == echo.HeaderContentLength {
            continue
        }
        h[k] = append([]string(nil), vals...)
    }
    h.Set("X-Cache", "HIT")
    c.Response().WriteHeader(r.Status)
    _, err := c.Response().Write(r.Body)
    return err
}

// bodyRecorder forwards the response while keeping up to max bytes of it.
type bodyRecorder struct {
    http.ResponseWriter
    status  int
    body    bytes.Buffer
    max     int
    written int
}

func (w *bodyRecorder) WriteHeader(code int) {
    w.status = code
    w.ResponseWriter.WriteHeader(code)
}

func (w *bodyRecorder) Write(b []byte) (int, error) {
    if room := w.max - w.body.Len(); w.max <= 0 || room >= len(b) {
        w.body.Write(b)
    } else if room > 0 {
        w.body.Write(b[:room])
    }
    w.written += len(b)
    return w.ResponseWriter.Write(b)
}

// complete is false when the body outgrew the buffer.
func (w *bodyRecorder) complete() bool { return w.max <= 0 || w.written <= w.max }

// cacheKeyFrom builds a key honoring cfg.Prefix and cfg.KeyStrategy. The
// variable part is hashed so keys stay short; the query is encoded sorted.
func cacheKeyFrom(cfg config.CacheConfig, c echo.Context) string {
    r := c.Request()
    var parts []string
    strategy := strings.ToLower(cfg.KeyStrategy)
    if strings.HasPrefix(strategy, "method_") {
        parts = append(parts, r.Method)
    }
    parts = append(parts, c.Path())
    if strategy == "" || strings.HasSuffix(strategy, "_query") {
        parts = append(parts, r.URL.Query().Encode())
    }
    sum := sha1.Sum([]byte(strings.Join(parts, "\n")))
    return cfg.Prefix + ":" + hex.EncodeToString(sum[:])
}

// NewRedisCache caches successful catalog responses, headers included, so
// a hit replays the original. "Cache-Control: no-cache" skips the lookup
// but still refreshes the entry. Without Redis it is a pass-through.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client, log *zap.Logger) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }
    if log == nil {
        log = zap.NewNop()
    }

    lookup := func(ctx context.Context, key string) (cachedResponse, bool) {
        var hit cachedResponse
        raw, err := rdb.Get(ctx, key).Bytes()
        if err != nil {
            if !errors.Is(err, redis.Nil) {
                log.Warn("cache lookup failed", zap.String("key", key), zap.Error(err))
            }
            return hit, false
        }
        if err := json.Unmarshal(raw, &hit); err != nil || hit.Status == 0 {
            return hit, false
        }
        return hit, true
    }

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            req := c.Request()
            if !cfg.Methods[req.Method] {
                return next(c)
            }
            key := cacheKeyFrom(cfg, c)
            if !strings.Contains(strings.ToLower(req.Header.Get("Cache-Control")), "no-cache") {
                if hit, ok := lookup(req.Context(), key); ok {
                    return hit.replay(c)
                }
            }

            rec := &bodyRecorder{ResponseWriter: c.Response().Writer, status: http.StatusOK, max: cfg.MaxBodyBytes}
            c.Response().Writer = rec
            c.Response().Header().Set("X-Cache", "MISS")
            if err := next(c); err != nil {
                return err
            }
            if rec.status != http.StatusOK || !rec.complete() {
                return nil
            }

            entry := cachedResponse{Status: rec.status, Header: c.Response().Header().Clone(), Body: rec.body.Bytes()}
            entry.Header.Del("X-Cache")
            raw, err := json.Marshal(entry)
            if err != nil {
                return nil
            }
            // the request context may already be cancelled once the body is out
            if err := rdb.SetEx(context.Background(), key, raw, cfg.TTLFor(c.Path())).Err(); err != nil {
                log.Warn("cache store failed", zap.String("key", key), zap.Error(err))
            }
            return nil
        }
    }
}
