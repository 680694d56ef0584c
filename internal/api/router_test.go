package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/abhichhetri09/ravintola/internal/api/handler"
	"github.com/abhichhetri09/ravintola/internal/core/domain"
	"github.com/abhichhetri09/ravintola/internal/core/ports"
)

const routerSecret = "router-secret"

type noopAuth struct{}

func (noopAuth) SignIn(context.Context, string) (*ports.SignInResult, error) {
	return nil, domain.ErrSignInFailed
}
func (noopAuth) SignOut(context.Context, ports.SessionClaims) error { return nil }

type noopCustomers struct{}

func (noopCustomers) Dashboard(_ context.Context, uid string) (*ports.Dashboard, error) {
	return &ports.Dashboard{User: &domain.User{UID: uid}, MealsUntilFree: 6, CardSize: 6}, nil
}
func (noopCustomers) IssueVoucher(context.Context, string) (*ports.IssuedVoucher, error) {
	return nil, domain.ErrUserNotFound
}
func (noopCustomers) RecentTransactions(context.Context, string, int) ([]domain.Transaction, error) {
	return []domain.Transaction{}, nil
}

type countingRedemption struct{ scans int }

func (r *countingRedemption) Scan(context.Context, ports.ScanInput) (*ports.ScanResult, error) {
	r.scans++
	return &ports.ScanResult{Status: domain.ScanRedeemed, Message: domain.ScanRedeemed.Message()}, nil
}
func (r *countingRedemption) Redeem(context.Context, domain.Voucher, string) (*ports.RedemptionResult, error) {
	return nil, nil
}

func newTestRouter(red *countingRedemption) *echo.Echo {
	return NewRouter(Deps{
		Auth:       noopAuth{},
		Customers:  noopCustomers{},
		Redemption: red,
		Health:     map[string]handler.DependencyCheck{},
		JWTSecret:  routerSecret,
		Log:        zerolog.Nop(),
		Registry:   prometheus.NewRegistry(),
	})
}

func sessionToken(t *testing.T, role string) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "uid-" + role,
		"role": role,
		"jti":  "jti-" + role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(routerSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func do(e *echo.Echo, method, path, token, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRouter_ScanRequiresAdmin(t *testing.T) {
	red := &countingRedemption{}
	e := newTestRouter(red)

	if rec := do(e, http.MethodPost, "/v1/scans", "", `{"payload":"p"}`); rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous: expected 401, got %d", rec.Code)
	}
	if rec := do(e, http.MethodPost, "/v1/scans", sessionToken(t, domain.RoleCustomer), `{"payload":"p"}`); rec.Code != http.StatusForbidden {
		t.Fatalf("customer: expected 403, got %d", rec.Code)
	}
	if red.scans != 0 {
		t.Fatalf("scan reached the engine without admin role")
	}

	if rec := do(e, http.MethodPost, "/v1/scans", sessionToken(t, domain.RoleAdmin), `{"payload":"p"}`); rec.Code != http.StatusOK {
		t.Fatalf("admin: expected 200, got %d", rec.Code)
	}
	if red.scans != 1 {
		t.Fatalf("expected one scan, got %d", red.scans)
	}
}

func TestRouter_CustomerRoutes(t *testing.T) {
	e := newTestRouter(&countingRedemption{})

	if rec := do(e, http.MethodGet, "/v1/me", sessionToken(t, domain.RoleCustomer), ""); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec := do(e, http.MethodGet, "/v1/me/voucher", sessionToken(t, domain.RoleCustomer), ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if rec := do(e, http.MethodGet, "/v1/me", "", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRouter_SignInFailure(t *testing.T) {
	e := newTestRouter(&countingRedemption{})

	rec := do(e, http.MethodPost, "/v1/auth/signin", "", `{"id_token":"bad"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "failed to sign in") {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestRouter_Probes(t *testing.T) {
	e := newTestRouter(&countingRedemption{})

	for _, path := range []string{"/health", "/health/ready", "/metrics"} {
		if rec := do(e, http.MethodGet, path, "", ""); rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, rec.Code)
		}
	}
}
