package middleware

import (
    "bytes"
    "context"
    "crypto/sha1"
    "encoding/binary"
    "fmt"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/alphaboutique/shop-api/internal/config"
)

// captureWriter captures the response body/status while forwarding to the client.
type captureWriter struct {
    http.ResponseWriter
    status int
    buf    bytes.Buffer
    size   int64
    limit  int64
}

func (cw *captureWriter) WriteHeader(code int) { cw.status = code; cw.ResponseWriter.WriteHeader(code) }
func (cw *captureWriter) Write(b []byte) (int, error) {
    if cw.limit <= 0 || cw.size < cw.limit {
        if remain := cw.limit - cw.size; cw.limit <= 0 || int64(len(b)) <= remain {
            cw.buf.Write(b)
        } else if remain > 0 {
            cw.buf.Write(b[:remain])
        }
        cw.size += int64(len(b))
    }
    return cw.ResponseWriter.Write(b)
}

// cacheKeyFrom builds a stable cache key honoring prefix/strategy.  The
// route_user strategy folds the authenticated account number into the key;
// it is the only strategy safe for routes behind SessionAuth, since a
// route-only key would serve one user's body to another.
func cacheKeyFrom(cfg config.CacheConfig, c echo.Context) string {
    route := c.Path()
    parts := []string{"route", route}
    switch strings.ToLower(cfg.KeyStrategy) {
    case "route":
        // nothing extra
    case "route_query":
        parts = append(parts, "q", c.Request().URL.RawQuery)
    default: // "route_user"
        parts = append(parts, "u", fmt.Sprint(c.Get(UserIDKey)))
    }
    sum := sha1.Sum([]byte(strings.Join(parts, ":")))
    return fmt.Sprintf("%s:%x", cfg.Prefix, sum[:])
}

// encodePayload packs: [4 bytes status][body].  Cached entries are always
// JSON, so only the status needs to survive alongside the body.
func encodePayload(status int, body []byte) []byte {
    out := make([]byte, 4+len(body))
    binary.BigEndian.PutUint32(out[0:4], uint32(status))
    copy(out[4:], body)
    return out
}

func decodePayload(bs []byte) (status int, body []byte, ok bool) {
    if len(bs) < 4 {
        return 0, nil, false
    }
    return int(binary.BigEndian.Uint32(bs[0:4])), bs[4:], true
}

// NewRedisCache returns a middleware serving recent GET responses from
// Redis.  With a nil client or caching disabled it collapses to a
// pass-through, so the caller never has to branch on Redis availability.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }
    ttl := cfg.TTL
    if ttl <= 0 {
        ttl = 30 * time.Second
    }
    maxBody := int64(cfg.MaxBodyBytes)

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if c.Request().Method != http.MethodGet {
                return next(c)
            }

            ctx := c.Request().Context()
            key := cacheKeyFrom(cfg, c)

            if bs, err := rdb.Get(ctx, key).Bytes(); err == nil {
                if status, body, ok := decodePayload(bs); ok {
                    c.Response().Header().Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
                    c.Response().Header().Set("X-Cache", "HIT")
                    c.Response().WriteHeader(status)
                    _, _ = c.Response().Write(body)
                    return nil
                }
            }

            // Miss: capture the downstream response.
            cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: maxBody}
            c.Response().Writer = cw
            c.Response().Header().Set("X-Cache", "MISS")

            if err := next(c); err != nil {
                return err
            }

            if cw.status == http.StatusOK && (maxBody <= 0 || cw.size <= maxBody) {
                _ = rdb.SetEx(context.Background(), key, encodePayload(cw.status, cw.buf.Bytes()), ttl).Err()
            }
            return nil
        }
    }
}
