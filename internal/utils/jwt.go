package utils // package utils provides helpers for session tokens and password hashing

import (
    "errors"
    "strconv"
    "time"

    "github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
)

// ErrInvalidSession covers every way a presented session token can fail:
// bad signature, wrong algorithm, malformed string, expiry, or a missing
// uid claim.  Callers only need to know the session is not usable.
var ErrInvalidSession = errors.New("invalid session token")

// SessionToken is a signed HS256 JWT asserting a user identity, together
// with its absolute expiry.  Sessions are stateless: once signed, a token
// stays cryptographically valid until Exp regardless of logout, so the TTL
// is the only revocation mechanism.
type SessionToken struct {
    Token string    // the serialized JWT string
    Exp   time.Time // the UTC expiration time
}

// NewSessionToken builds and signs an HS256 JWT for a user.  The claims
// carry the account number (uid), the expiry (exp, ttlDays out) and the
// issue time (iat).
func NewSessionToken(secret string, userID uint64, ttlDays int) (SessionToken, error) {
    exp := time.Now().UTC().Add(time.Duration(ttlDays) * 24 * time.Hour)
    claims := jwt.MapClaims{
        "uid": userID,
        "exp": exp.Unix(),
        "iat": time.Now().UTC().Unix(),
    }
    t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
    signed, err := t.SignedString([]byte(secret))
    if err != nil {
        return SessionToken{}, err
    }
    return SessionToken{Token: signed, Exp: exp}, nil
}

// ParseSessionToken validates a session token string and extracts the user
// id from its uid claim.  Expired, tampered and malformed tokens all come
// back as ErrInvalidSession.
func ParseSessionToken(secret, raw string) (uint64, error) {
    tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
        // Only HS256-family tokens are ever issued; reject anything else
        // before the signature is even checked.
        if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
            return nil, ErrInvalidSession
        }
        return []byte(secret), nil
    })
    if err != nil || !tok.Valid {
        return 0, ErrInvalidSession
    }
    claims, ok := tok.Claims.(jwt.MapClaims)
    if !ok {
        return 0, ErrInvalidSession
    }
    // JSON numbers decode as float64; tolerate string-encoded ids too.
    switch uid := claims["uid"].(type) {
    case float64:
        return uint64(uid), nil
    case string:
        if parsed, err := strconv.ParseUint(uid, 10, 64); err == nil {
            return parsed, nil
        }
    }
    return 0, ErrInvalidSession
}
