package middleware // contains reusable HTTP middleware functions

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/alphaboutique/shop-api/internal/utils"
)

// SessionCookieName is the cookie that carries the signed session token.
const SessionCookieName = "auth_token"

// UserIDKey is the context key under which SessionAuth stores the
// authenticated account number (uint64).
const UserIDKey = "user_id"

// SessionAuth returns an Echo middleware that validates the session cookie
// and injects the account number into the request context.  The provided
// secret must match the one used when issuing tokens.  Handlers behind
// this middleware read the identity via c.Get(UserIDKey); whether the
// account still exists is their responsibility, since only they know
// which status that should map to.
func SessionAuth(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            cookie, err := c.Cookie(SessionCookieName)
            if err != nil || cookie.Value == "" {
                return c.JSON(http.StatusUnauthorized, echo.Map{"message": "not authenticated"})
            }
            uid, err := utils.ParseSessionToken(secret, cookie.Value)
            if err != nil {
                return c.JSON(http.StatusUnauthorized, echo.Map{"message": "invalid session"})
            }
            c.Set(UserIDKey, uid)
            return next(c)
        }
    }
}
