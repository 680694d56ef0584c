package middleware

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/abhichhetri09/ravintola/internal/core/ports"
)

// Context keys set by Auth.
const (
	ContextUID       = "uid"
	ContextEmail     = "email"
	ContextRole      = "role"
	ContextTokenID   = "jti"
	ContextExpiresAt = "exp"
)

// tokenQueryParam carries the session token for websocket upgrades, where
// browsers cannot set an Authorization header.
const tokenQueryParam = "access_token"

// Auth validates the session JWT, refuses revoked tokens and injects the
// claims into context. revoker may be nil. A failed revocation lookup denies
// the request.
func Auth(jwtSecret string, revoker ports.TokenRevoker, log zerolog.Logger) echo.MiddlewareFunc {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, err := bearerToken(c)
			if err != nil {
				return err
			}

			claims := jwt.MapClaims{}
			tkn, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
				return []byte(jwtSecret), nil
			})
			if err != nil || !tkn.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			uid, _ := claims["sub"].(string)
			role, _ := claims["role"].(string)
			if uid == "" || role == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}
			jti, _ := claims["jti"].(string)

			if revoker != nil && jti != "" {
				revoked, err := revoker.IsRevoked(c.Request().Context(), jti)
				if err != nil {
					log.Error().Err(err).Str("uid", uid).Msg("revocation check failed")
					return echo.NewHTTPError(http.StatusServiceUnavailable, "service unavailable")
				}
				if revoked {
					return echo.NewHTTPError(http.StatusUnauthorized, "session ended")
				}
			}

			email, _ := claims["email"].(string)
			exp, _ := claims.GetExpirationTime()

			c.Set(ContextUID, uid)
			c.Set(ContextEmail, email)
			c.Set(ContextRole, role)
			c.Set(ContextTokenID, jti)
			if exp != nil {
				c.Set(ContextExpiresAt, exp.Time)
			}

			return next(c)
		}
	}
}

func bearerToken(c echo.Context) (string, error) {
	authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
	if authHeader == "" {
		if tok := c.QueryParam(tokenQueryParam); tok != "" {
			return tok, nil
		}
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
	}
	return parts[1], nil
}
