package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/abhichhetri09/ravintola/internal/core/ports"
)

// CustomerHandler serves the signed-in user's own card.
type CustomerHandler struct {
	customers ports.CustomerService
}

func NewCustomerHandler(customers ports.CustomerService) *CustomerHandler {
	return &CustomerHandler{customers: customers}
}

// Me returns the meal counter and card progress.
//
// @Summary      Current user's card
// @Tags         customer
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  dashboardResponse
// @Failure      401  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Failure      503  {object}  errorResponse
// @Router       /v1/me [get]
func (h *CustomerHandler) Me(c echo.Context) error {
	claims, err := ctxClaims(c)
	if err != nil {
		return err
	}

	d, err := h.customers.Dashboard(c.Request().Context(), claims.UID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, dashboardResponse{
		User:           d.User,
		MealsUntilFree: d.MealsUntilFree,
		CardProgress:   d.CardProgress,
		CardSize:       d.CardSize,
	})
}

// Voucher issues a new voucher stamped now. Each call restarts the window.
//
// @Summary      Issue a voucher
// @Tags         customer
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  voucherResponse
// @Failure      401  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Failure      503  {object}  errorResponse
// @Router       /v1/me/voucher [get]
func (h *CustomerHandler) Voucher(c echo.Context) error {
	claims, err := ctxClaims(c)
	if err != nil {
		return err
	}

	issued, err := h.customers.IssueVoucher(c.Request().Context(), claims.UID)
	if err != nil {
		return err
	}

	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return c.JSON(http.StatusOK, voucherResponse{
		Payload:      issued.Payload,
		IssuedAt:     issued.Voucher.IssuedAt().UTC(),
		ExpiresAt:    issued.ExpiresAt,
		CurrentMeals: issued.Voucher.CurrentMeals,
	})
}

// Transactions lists the most recent ledger entries, newest first.
//
// @Summary      Recent transactions
// @Tags         customer
// @Produce      json
// @Security     BearerAuth
// @Param        limit  query     int  false  "Maximum entries (1-50, default 10)"
// @Success      200    {object}  transactionsResponse
// @Failure      400    {object}  errorResponse
// @Failure      401    {object}  errorResponse
// @Failure      503    {object}  errorResponse
// @Router       /v1/me/transactions [get]
func (h *CustomerHandler) Transactions(c echo.Context) error {
	claims, err := ctxClaims(c)
	if err != nil {
		return err
	}

	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
	}

	txs, err := h.customers.RecentTransactions(c.Request().Context(), claims.UID, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, transactionsResponse{Transactions: txs})
}
