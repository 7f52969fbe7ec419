package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/alphaboutique/shop-api/internal/activation"
	"github.com/alphaboutique/shop-api/internal/config"
	"github.com/alphaboutique/shop-api/internal/middleware"
	"github.com/alphaboutique/shop-api/internal/model"
	"github.com/alphaboutique/shop-api/internal/repository"
	"github.com/alphaboutique/shop-api/internal/utils"
)

// UserStore is the slice of the identity store the handlers need.
// *repository.UserRepo implements it.
type UserStore interface {
	Create(ctx context.Context, name, email, password string, cost int) (uint64, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// Activator is implemented by *activation.Engine.
type Activator interface {
	IssueCode(ctx context.Context, u model.User) (code string, delivered bool, err error)
	Confirm(ctx context.Context, id uint64, submitted string) error
}

// AuthHandler bundles dependencies for the account endpoints.
type AuthHandler struct {
	Cfg    config.Config
	Users  UserStore
	Engine Activator
}

func NewAuthHandler(cfg config.Config, users UserStore, engine Activator) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: users, Engine: engine}
}

// ----- DTOs -----

type signupReq struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type activateReq struct {
	Code string `json:"code"`
}

// userPart is the client-visible projection of a user; the password hash
// and activation code never appear in a response body.
type userPart struct {
	UID    uint64 `json:"uid"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	ShopID uint64 `json:"shop_id,omitempty"`
}

func publicUser(u model.User) userPart {
	return userPart{UID: u.ID, Name: u.Name, Email: u.Email, ShopID: u.ShopID}
}

// Signup: create an UNCONFIRMED account.  No code is issued here; the
// first login triggers that, matching the activation flow the frontend
// drives.
func (h *AuthHandler) Signup(c echo.Context) error {
	var req signupReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Name == "" || req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "missing fields"})
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	uid, err := h.Users.Create(ctx, req.Name, req.Email, req.Password, h.Cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return c.JSON(http.StatusConflict, echo.Map{"message": "email already in use"})
		}
		log.Printf("signup: create user failed: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "server error"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message": "account created",
		"user":    userPart{UID: uid, Name: req.Name, Email: req.Email},
	})
}

// Login: verify credentials, then branch on account state.  An unconfirmed
// account never receives a session cookie: it gets a fresh activation code
// (replacing any pending one) and a NO_CONFIRM status so the frontend can
// show the code entry screen.  A confirmed account gets the cookie.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "missing fields"})
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"message": "invalid credentials"})
		}
		log.Printf("login: query failed: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "server error"})
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "invalid credentials"})
	}

	if u.State == model.StateUnconfirmed {
		_, delivered, err := h.Engine.IssueCode(ctx, u)
		if err != nil {
			log.Printf("login: issue code failed: %v", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "server error"})
		}
		resp := echo.Map{"status": "NO_CONFIRM", "uid": u.ID, "email": u.Email}
		if !delivered {
			resp["warning"] = "activation e-mail could not be queued"
		}
		return c.JSON(http.StatusOK, resp)
	}

	tok, err := utils.NewSessionToken(h.Cfg.JWTSecret, u.ID, h.Cfg.SessionTTLDays)
	if err != nil {
		log.Printf("login: issue session failed: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "server error"})
	}
	c.SetCookie(sessionCookie(tok.Token, h.Cfg.SessionTTLDays))

	return c.JSON(http.StatusOK, echo.Map{"status": "OK", "user": publicUser(u)})
}

// Activate: consume a pending code and flip the account to CONFIRMED.
func (h *AuthHandler) Activate(c echo.Context) error {
	uid, err := strconv.ParseUint(c.Param("uid"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"message": "user not found"})
	}
	var req activateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid body"})
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	switch err := h.Engine.Confirm(ctx, uid, req.Code); {
	case err == nil:
		return c.JSON(http.StatusOK, echo.Map{"message": "account activated"})
	case errors.Is(err, activation.ErrMalformedCode):
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid code"})
	case errors.Is(err, repository.ErrUserNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"message": "user not found"})
	case errors.Is(err, activation.ErrInvalidCode):
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "wrong code"})
	case errors.Is(err, activation.ErrCodeExpired):
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "code expired"})
	case errors.Is(err, activation.ErrAlreadyActivated):
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "account already activated"})
	default:
		log.Printf("activate: confirm failed: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "server error"})
	}
}

// Me: return the authenticated user.  The session token alone is not
// enough: the account must still exist at verification time.
func (h *AuthHandler) Me(c echo.Context) error {
	uid, ok := c.Get(middleware.UserIDKey).(uint64)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "not authenticated"})
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"message": "not authenticated"})
		}
		log.Printf("me: load user failed: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "server error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"user": publicUser(u)})
}

// Logout clears the cookie client-side.  There is no server-side token
// blacklist: a logged-out token stays cryptographically valid until its
// natural expiry.
func (h *AuthHandler) Logout(c echo.Context) error {
	c.SetCookie(sessionCookie("", -1))
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

// sessionCookie builds the auth_token cookie.  SameSite=None keeps the
// cookie usable from the cross-origin SPA, which in turn requires Secure;
// ttlDays < 0 produces the clearing variant.
func sessionCookie(token string, ttlDays int) *http.Cookie {
	maxAge := ttlDays * 24 * 60 * 60
	if ttlDays < 0 {
		maxAge = -1
	}
	return &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	}
}

// reqContext bounds every database call made by a handler.
func reqContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), 5*time.Second)
}
