// Package client is a Go client for the meal-card HTTP API, used by the
// scanner kiosk.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/abhichhetri09/ravintola/internal/core/domain"
	"github.com/abhichhetri09/ravintola/internal/core/ports"
)

const defaultTimeout = 15 * time.Second

// APIError is a non-2xx response carrying the server's error envelope.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d %s", e.Status, e.Message)
}

type Client struct {
	baseURL string
	http    *http.Client
	token   func() string
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithTokenSource supplies the bearer token for authenticated calls.
func WithTokenSource(fn func() string) Option {
	return func(c *Client) { c.token = fn }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
		token:   func() string { return "" },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type signInResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	IsAdmin   bool         `json:"is_admin"`
	User      *domain.User `json:"user"`
}

// SignIn exchanges an ID token for a session.
func (c *Client) SignIn(ctx context.Context, idToken string) (*ports.SignInResult, error) {
	var resp signInResponse
	if err := c.do(ctx, http.MethodPost, "/v1/auth/signin", "", map[string]string{"id_token": idToken}, &resp); err != nil {
		return nil, err
	}
	return &ports.SignInResult{
		Token:     resp.Token,
		ExpiresAt: resp.ExpiresAt,
		User:      resp.User,
		IsAdmin:   resp.IsAdmin,
	}, nil
}

// SignOut revokes token on the server.
func (c *Client) SignOut(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodPost, "/v1/auth/signout", token, nil, nil)
}

type dashboardResponse struct {
	User           *domain.User `json:"user"`
	MealsUntilFree int          `json:"meals_until_free"`
	CardProgress   int          `json:"card_progress"`
	CardSize       int          `json:"card_size"`
}

func (c *Client) Me(ctx context.Context) (*ports.Dashboard, error) {
	var resp dashboardResponse
	if err := c.do(ctx, http.MethodGet, "/v1/me", c.token(), nil, &resp); err != nil {
		return nil, err
	}
	return &ports.Dashboard{
		User:           resp.User,
		MealsUntilFree: resp.MealsUntilFree,
		CardProgress:   resp.CardProgress,
		CardSize:       resp.CardSize,
	}, nil
}

type scanResponse struct {
	Status         domain.ScanStatus    `json:"status"`
	Message        string               `json:"message"`
	UID            string               `json:"uid"`
	Meals          int                  `json:"meals"`
	MealsUntilFree int                  `json:"meals_until_free"`
	FreeMealEarned bool                 `json:"free_meal_earned"`
	Transactions   []domain.Transaction `json:"transactions"`
}

// Scan submits one scanned payload. A store failure on the server comes
// back as a result with status failed, not as an error.
func (c *Client) Scan(ctx context.Context, payload, restaurantName string) (*ports.ScanResult, error) {
	body := map[string]string{"payload": payload}
	if restaurantName != "" {
		body["restaurant_name"] = restaurantName
	}

	var resp scanResponse
	err := c.do(ctx, http.MethodPost, "/v1/scans", c.token(), body, &resp)
	var apiErr *APIError
	if err != nil && !(errors.As(err, &apiErr) && apiErr.Status == http.StatusServiceUnavailable && resp.Status != "") {
		return nil, err
	}

	return &ports.ScanResult{
		Status:         resp.Status,
		Message:        resp.Message,
		UID:            resp.UID,
		Meals:          resp.Meals,
		MealsUntilFree: resp.MealsUntilFree,
		FreeMealEarned: resp.FreeMealEarned,
		Transactions:   resp.Transactions,
	}, nil
}

// do sends a JSON request. On 503 the body is still decoded into out so
// callers can read structured failure results.
func (c *Client) do(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if res.StatusCode >= 200 && res.StatusCode < 300 {
		if out != nil && len(raw) > 0 {
			if err := json.Unmarshal(raw, out); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
		}
		return nil
	}

	if res.StatusCode == http.StatusServiceUnavailable && out != nil {
		_ = json.Unmarshal(raw, out)
	}
	var envelope struct {
		Error string `json:"error"`
	}
	_ = json.Unmarshal(raw, &envelope)
	if envelope.Error == "" {
		envelope.Error = http.StatusText(res.StatusCode)
	}
	return &APIError{Status: res.StatusCode, Message: envelope.Error}
}
