package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alphaboutique/shop-api/internal/config"
)

func cacheTestConfig() config.CacheConfig {
	return config.CacheConfig{
		Enabled:      true,
		TTL:          time.Minute,
		KeyStrategy:  "route_user",
		Prefix:       "cache",
		MaxBodyBytes: 1 << 20,
	}
}

// runCached sends one GET through the cache middleware with the given
// identity already in context, the way SessionAuth leaves it.  The
// downstream handler echoes the identity and bumps calls so tests can tell
// a cached response from a fresh one.
func runCached(t *testing.T, mw echo.MiddlewareFunc, uid uint64, calls *int) *httptest.ResponseRecorder {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/api/auth/me")
	c.Set(UserIDKey, uid)

	h := mw(func(c echo.Context) error {
		*calls++
		return c.JSON(http.StatusOK, echo.Map{"uid": c.Get(UserIDKey)})
	})
	require.NoError(t, h(c))
	return rec
}

func TestRedisCache_PerUserKeysNeverCross(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	mw := NewRedisCache(cacheTestConfig(), rdb)

	var calls int

	// First user misses and is cached.
	rec := runCached(t, mw, 100001, &calls)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.Contains(t, rec.Body.String(), "100001")

	// Second user on the same route must not see the first user's body.
	rec = runCached(t, mw, 100002, &calls)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.Contains(t, rec.Body.String(), "100002")
	assert.NotContains(t, rec.Body.String(), "100001")
	assert.Equal(t, 2, calls)
	assert.Len(t, mr.Keys(), 2, "each identity gets its own cache entry")

	// First user again: served from cache with their own body.
	rec = runCached(t, mw, 100001, &calls)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	assert.Contains(t, rec.Body.String(), "100001")
	assert.Equal(t, 2, calls, "hit must not invoke the handler")
}

func TestRedisCache_NilClientPassesThrough(t *testing.T) {
	t.Parallel()

	mw := NewRedisCache(cacheTestConfig(), nil)

	var calls int
	for i := 0; i < 2; i++ {
		rec := runCached(t, mw, 100001, &calls)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get("X-Cache"))
	}
	assert.Equal(t, 2, calls, "without redis every request reaches the handler")
}

func TestRedisCache_DisabledPassesThrough(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cfg := cacheTestConfig()
	cfg.Enabled = false
	mw := NewRedisCache(cfg, rdb)

	var calls int
	runCached(t, mw, 100001, &calls)
	runCached(t, mw, 100001, &calls)
	assert.Equal(t, 2, calls)
	assert.Empty(t, mr.Keys())
}

func TestRedisCache_OversizedBodyNotCached(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cfg := cacheTestConfig()
	cfg.MaxBodyBytes = 8 // smaller than any JSON body below
	mw := NewRedisCache(cfg, rdb)

	var calls int

	// The client still gets the full body even though it exceeds the limit.
	rec := runCached(t, mw, 100001, &calls)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "100001")
	assert.Empty(t, mr.Keys(), "oversized responses are never stored")

	// And the next request is a fresh handler invocation, not a stale hit.
	rec = runCached(t, mw, 100001, &calls)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.Equal(t, 2, calls)
}
