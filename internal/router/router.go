// Package router wires HTTP routes to their handlers and middleware.
package router

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/alphaboutique/shop-api/internal/config"
	"github.com/alphaboutique/shop-api/internal/handler"
	"github.com/alphaboutique/shop-api/internal/middleware"
)

// Register sets up CORS, the health check and the /api/auth group.  The
// rdb client may be nil, in which case the /me response cache degrades to
// a pass-through.
func Register(e *echo.Echo, a *handler.AuthHandler, cfg config.Config, rdb *redis.Client) {
	// Credentialed CORS: the session cookie only works cross-origin when
	// the exact frontend origin is allowed, never "*".
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowCredentials: true,
	}))

	e.GET("/healthz", handler.Health)

	g := e.Group("/api/auth")
	g.POST("/signup", a.Signup)
	g.POST("/login", a.Login)
	g.PATCH("/activate/:uid", a.Activate)
	g.POST("/logout", a.Logout)

	// SessionAuth must run before the cache so the per-user key strategy
	// sees the authenticated account number.
	cacheCfg := config.LoadCacheConfig()
	g.GET("/me", a.Me,
		middleware.SessionAuth(cfg.JWTSecret),
		middleware.NewRedisCache(cacheCfg, rdb))
}
