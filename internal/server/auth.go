package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/axiom/internal/store"
)

// HeaderUserID carries a caller-chosen identity for unauthenticated clients. It is
// prefixed with GuestPrefix so it can never equal a token subject.
const HeaderUserID = "X-User-Id"

// GuestPrefix namespaces identities taken from HeaderUserID.
const GuestPrefix = "guest:"

const (
	ctxUserID        = "user_id"
	ctxAuthenticated = "authenticated"
)

// SignToken issues an HS256 token for subject.
func SignToken(subject string, secret []byte, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub": subject,
		"exp": time.Now().Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// Identity resolves the caller. A bearer token or auth cookie verified against secret wins and
// marks the request authenticated; an invalid token is rejected. Without a token the
// X-User-Id header is used as "guest:<id>", then "anonymous". With an empty secret tokens
// are ignored.
func Identity(secret []byte) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if len(secret) > 0 {
				if tok := extractToken(c); tok != "" {
					sub, err := parseSubject(tok, secret)
					if err != nil {
						return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
					}
					c.Set(ctxUserID, sub)
					c.Set(ctxAuthenticated, true)
					return next(c)
				}
			}
			id := store.AnonymousUser
			if h := strings.TrimSpace(c.Request().Header.Get(HeaderUserID)); h != "" {
				id = GuestPrefix + h
			}
			c.Set(ctxUserID, id)
			c.Set(ctxAuthenticated, false)
			return next(c)
		}
	}
}

func parseSubject(tok string, secret []byte) (string, error) {
	parsed, err := jwt.Parse(tok, func(t *jwt.Token) (interface{}, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return "", jwt.ErrTokenInvalidClaims
	}
	sub, err := parsed.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", jwt.ErrTokenInvalidSubject
	}
	return sub, nil
}

func extractToken(c echo.Context) string {
	if h := c.Request().Header.Get(echo.HeaderAuthorization); len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return h[7:]
	}
	if ck, err := c.Cookie("auth"); err == nil {
		return ck.Value
	}
	return ""
}

func userID(c echo.Context) string {
	if id, ok := c.Get(ctxUserID).(string); ok && id != "" {
		return id
	}
	return store.AnonymousUser
}

func authenticated(c echo.Context) bool {
	ok, _ := c.Get(ctxAuthenticated).(bool)
	return ok
}
