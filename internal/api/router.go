package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"
	"golang.org/x/time/rate"

	"github.com/investae/investments-api/internal/api/handler"
	"github.com/investae/investments-api/internal/api/middleware"
	"github.com/investae/investments-api/internal/core/policy"
	"github.com/investae/investments-api/internal/core/ports"
)

// Deps are the collaborators the HTTP layer needs.
type Deps struct {
	Auth        ports.AuthService
	Investments ports.InvestmentService
	Tokens      ports.TokenCodec
	Identities  ports.IdentityStore
	Clock       ports.Clock
	Logger      zerolog.Logger

	// Health lists the dependencies checked by /health/ready.
	Health map[string]handler.Pinger

	// AuthRate limits login and registration per client IP. Zero disables it.
	AuthRate  float64
	AuthBurst int

	// Registerer and Gatherer default to the global Prometheus registry.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Logger)

	if d.Registerer == nil {
		d.Registerer = prometheus.DefaultRegisterer
	}
	if d.Gatherer == nil {
		d.Gatherer = prometheus.DefaultGatherer
	}

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(d.Logger))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "investments",
		Registerer: d.Registerer,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics"
		},
	}))
	e.Use(middleware.ResolvePrincipal(d.Tokens, d.Identities, d.Clock, d.Logger))

	authHandler := handler.NewAuthHandler(d.Auth)
	investmentHandler := handler.NewInvestmentHandler(d.Investments)
	catalogHandler := handler.NewCatalogHandler()

	anyRole := middleware.RequireRole(policy.AnyRole...)
	adminOnly := middleware.RequireRole(policy.AdminOnly...)
	owner := middleware.RequireOwner("nationalId")

	api := e.Group("/api")

	// --- Auth routes ---
	throttle := authThrottle(d.AuthRate, d.AuthBurst)
	auth := api.Group("/auth")
	auth.POST("/register", authHandler.Register, throttle...)
	auth.POST("/login", authHandler.Login, throttle...)
	auth.GET("/users", authHandler.ListUsers, adminOnly)

	// --- Investments ---
	inv := api.Group("/investments")
	inv.POST("", investmentHandler.Create, anyRole)
	inv.GET("", investmentHandler.ListAll, adminOnly)
	inv.GET("/mine", investmentHandler.ListMine, anyRole)
	inv.GET("/user/:nationalId", investmentHandler.ListByOwner, anyRole, owner)
	inv.PUT("/:id", investmentHandler.Update, anyRole)
	inv.DELETE("/:id", investmentHandler.Delete, anyRole)

	// --- Investors ---
	investors := api.Group("/investors")
	investors.POST("", investmentHandler.CreateInvestor, adminOnly)
	investors.GET("", investmentHandler.ListInvestors, adminOnly)
	investors.GET("/:nationalId", investmentHandler.GetInvestor, anyRole, owner)
	investors.DELETE("/:nationalId", investmentHandler.DeleteInvestor, adminOnly)
	investors.PUT("/:nationalId/investments", investmentHandler.ReplaceInvestorInvestments, anyRole, owner)

	// --- Catalog ---
	api.GET("/banks", catalogHandler.Banks, anyRole)
	api.GET("/investment-types", catalogHandler.InvestmentTypes, anyRole)

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(d.Health)

	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", healthDepsHandler.Readiness)

	// --- Operations ---
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

// authThrottle returns a per-IP token bucket for the credential endpoints.
func authThrottle(rps float64, burst int) []echo.MiddlewareFunc {
	if rps <= 0 {
		return nil
	}
	store := echomiddleware.NewRateLimiterMemoryStoreWithConfig(echomiddleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(rps),
		Burst:     burst,
		ExpiresIn: 3 * time.Minute,
	})
	return []echo.MiddlewareFunc{echomiddleware.RateLimiterWithConfig(echomiddleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		DenyHandler: func(c echo.Context, _ string, _ error) error {
			return echo.NewHTTPError(http.StatusTooManyRequests, "too many requests")
		},
	})}
}

// requestLogger emits one zerolog line per request.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURIPath:   true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			evt := log.Info()
			if v.Status >= 500 {
				evt = log.Error().Err(v.Error)
			}
			evt.Str("method", v.Method).
				Str("path", v.URIPath).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Str("remote_ip", v.RemoteIP).
				Msg("request")
			return nil
		},
	})
}
