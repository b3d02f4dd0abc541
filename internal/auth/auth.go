// Package auth signs and verifies the bearer tokens used between internal
// callers (webhook relays, the CLI) and the orchestrator API.
package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const contextKey = "auth_token"

// ErrMissingSecret is returned when signing without a secret.
var ErrMissingSecret = errors.New("internal secret is not configured")

// Claims identify the internal caller.
type Claims struct {
	Caller string `json:"caller"`
	jwt.RegisteredClaims
}

// GenerateToken signs an HS256 token for caller valid for expiresIn.
func GenerateToken(caller, secret string, expiresIn time.Duration) (string, time.Time, error) {
	if strings.TrimSpace(secret) == "" {
		return "", time.Time{}, ErrMissingSecret
	}
	if strings.TrimSpace(caller) == "" {
		return "", time.Time{}, errors.New("caller is required")
	}
	if expiresIn <= 0 {
		expiresIn = time.Hour
	}
	now := time.Now()
	expiresAt := now.Add(expiresIn)
	claims := Claims{
		Caller: caller,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   caller,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// JWTMiddleware verifies bearer tokens signed with secret. An empty secret
// disables verification.
func JWTMiddleware(secret string, skipper middleware.Skipper) echo.MiddlewareFunc {
	if strings.TrimSpace(secret) == "" {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return echojwt.WithConfig(echojwt.Config{
		SigningKey:    []byte(secret),
		SigningMethod: echojwt.AlgorithmHS256,
		ContextKey:    contextKey,
		Skipper:       skipper,
		NewClaimsFunc: func(echo.Context) jwt.Claims { return new(Claims) },
		ErrorHandler: func(echo.Context, error) error {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid or missing bearer token")
		},
	})
}

// CallerFromContext returns the authenticated caller, if any.
func CallerFromContext(c echo.Context) (string, bool) {
	token, ok := c.Get(contextKey).(*jwt.Token)
	if !ok || token == nil {
		return "", false
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || claims.Caller == "" {
		return "", false
	}
	return claims.Caller, true
}
