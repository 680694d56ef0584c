package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/abhichhetri09/ravintola/internal/api/middleware"
	"github.com/abhichhetri09/ravintola/internal/core/ports"
)

// ctxClaims extracts the claims injected by the Auth middleware. uid and
// role must be present; their absence means the middleware did not run.
func ctxClaims(c echo.Context) (ports.SessionClaims, error) {
	uid, _ := c.Get(middleware.ContextUID).(string)
	role, _ := c.Get(middleware.ContextRole).(string)
	if uid == "" || role == "" {
		return ports.SessionClaims{}, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}

	email, _ := c.Get(middleware.ContextEmail).(string)
	jti, _ := c.Get(middleware.ContextTokenID).(string)
	exp, _ := c.Get(middleware.ContextExpiresAt).(time.Time)

	return ports.SessionClaims{
		UID:       uid,
		Email:     email,
		Role:      role,
		TokenID:   jti,
		ExpiresAt: exp,
	}, nil
}
