package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/abhichhetri09/ravintola/internal/api/metrics"
	"github.com/abhichhetri09/ravintola/internal/core/domain"
	"github.com/abhichhetri09/ravintola/internal/core/ports"
)

type AuthHandler struct {
	authService ports.AuthService
	log         zerolog.Logger
}

func NewAuthHandler(authService ports.AuthService, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, log: log}
}

// SignIn exchanges an identity-provider ID token for a session token.
//
// @Summary      Sign in
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      signInRequest  true  "ID token from the identity provider"
// @Success      200   {object}  signInResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Router       /v1/auth/signin [post]
func (h *AuthHandler) SignIn(c echo.Context) error {
	var req signInRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	res, err := h.authService.SignIn(c.Request().Context(), req.IDToken)
	if err != nil {
		metrics.SignInsTotal.WithLabelValues("failed").Inc()
		return err
	}

	role := domain.RoleFor(res.IsAdmin)
	metrics.SignInsTotal.WithLabelValues(role).Inc()

	return c.JSON(http.StatusOK, signInResponse{
		Token:     res.Token,
		ExpiresAt: res.ExpiresAt,
		Role:      role,
		IsAdmin:   res.IsAdmin,
		User:      res.User,
	})
}

// SignOut revokes the current session token.
//
// @Summary      Sign out
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  messageResponse
// @Failure      401  {object}  errorResponse
// @Failure      503  {object}  errorResponse
// @Router       /v1/auth/signout [post]
func (h *AuthHandler) SignOut(c echo.Context) error {
	claims, err := ctxClaims(c)
	if err != nil {
		return err
	}

	if err := h.authService.SignOut(c.Request().Context(), claims); err != nil {
		return err
	}

	h.log.Info().Str("uid", claims.UID).Msg("signed out")
	return c.JSON(http.StatusOK, messageResponse{Message: "signed out"})
}
