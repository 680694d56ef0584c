package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/abhichhetri09/ravintola/internal/api/handler"
	"github.com/abhichhetri09/ravintola/internal/api/middleware"
	"github.com/abhichhetri09/ravintola/internal/core/domain"
	"github.com/abhichhetri09/ravintola/internal/core/ports"
	_ "github.com/abhichhetri09/ravintola/internal/docs"
	"github.com/abhichhetri09/ravintola/internal/scanner"
)

// Deps are the collaborators the HTTP layer is built from.
type Deps struct {
	Auth       ports.AuthService
	Customers  ports.CustomerService
	Redemption ports.RedemptionService
	Revoker    ports.TokenRevoker
	Health     map[string]handler.DependencyCheck

	JWTSecret      string
	Scanner        scanner.Options
	AllowedOrigins []string
	Log            zerolog.Logger
	// Registry receives the HTTP request metrics; the default registry when nil.
	Registry *prometheus.Registry
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(d.Log))
	var (
		registerer prometheus.Registerer = prometheus.DefaultRegisterer
		gatherer   prometheus.Gatherer   = prometheus.DefaultGatherer
	)
	if d.Registry != nil {
		registerer, gatherer = d.Registry, d.Registry
	}
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Namespace:  "loyalty",
		Registerer: registerer,
	}))

	// --- Dependencies ---
	authHandler := handler.NewAuthHandler(d.Auth, d.Log)
	customerHandler := handler.NewCustomerHandler(d.Customers)
	scanHandler := handler.NewScanHandler(d.Redemption, d.Scanner, d.AllowedOrigins, d.Log)
	healthHandler := handler.NewHealthHandler(d.Health)
	authMiddleware := middleware.Auth(d.JWTSecret, d.Revoker, d.Log)

	// --- Probes, metrics and docs (no auth required) ---
	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", healthHandler.Readiness)
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: gatherer}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	v1 := e.Group("/v1")

	// --- Auth routes ---
	v1.POST("/auth/signin", authHandler.SignIn)
	v1.POST("/auth/signout", authHandler.SignOut, authMiddleware)

	// --- Customer routes ---
	me := v1.Group("/me", authMiddleware)
	me.GET("", customerHandler.Me)
	me.GET("/voucher", customerHandler.Voucher)
	me.GET("/transactions", customerHandler.Transactions)

	// --- Admin scanning ---
	scans := v1.Group("/scans", authMiddleware, middleware.RBAC(domain.RoleAdmin))
	scans.POST("", scanHandler.Scan)
	scans.GET("/stream", scanHandler.Stream)

	return e
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURIPath:   true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil {
				ev = log.Warn().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("path", v.URIPath).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
