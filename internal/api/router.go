package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/lastslot/account-service/docs"
	"github.com/lastslot/account-service/internal/api/handler"
	"github.com/lastslot/account-service/internal/api/middleware"
	"github.com/lastslot/account-service/internal/core/domain"
	"github.com/lastslot/account-service/internal/core/ports"
)

// Deps are the services and probes the router wires into handlers.
type Deps struct {
	Auth     ports.AuthService
	Accounts ports.AccountService
	Checks   []handler.DependencyCheck
	Log      zerolog.Logger
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
	e.Use(echoprometheus.NewMiddleware("account"))

	authHandler := handler.NewAuthHandler(d.Auth)
	profileHandler := handler.NewProfileHandler(d.Accounts)
	roleHandler := handler.NewRoleHandler(d.Accounts)
	routeHandler := handler.NewRouteHandler(d.Accounts)
	requireAuth := middleware.Auth(d.Auth)

	// --- Auth routes ---
	auth := e.Group("/auth")
	auth.POST("/signup", authHandler.SignUp)
	auth.POST("/signin", authHandler.SignIn)
	auth.POST("/refresh", authHandler.Refresh)
	auth.POST("/signout", authHandler.SignOut, requireAuth)
	auth.GET("/session", authHandler.Session, requireAuth)

	// --- Account routes ---
	v1 := e.Group("/v1")
	v1.GET("/route", routeHandler.Decide, middleware.OptionalAuth(d.Auth))

	account := v1.Group("", requireAuth)
	account.GET("/profile", profileHandler.Get)
	account.PATCH("/profile", profileHandler.Update)
	account.POST("/onboarding", profileHandler.Onboard)
	account.GET("/roles", roleHandler.List)
	account.POST("/roles", roleHandler.Add)
	account.POST("/rpc/switch_role", roleHandler.Switch)
	account.GET("/business", roleHandler.Business, middleware.RequireActiveRole(d.Accounts, domain.RoleProvider))

	// --- Health probes, metrics and docs (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	readinessHandler := handler.NewReadinessHandler(d.Checks...)

	e.GET("/health", healthHandler.Liveness)           // liveness  – is the process alive?
	e.GET("/health/ready", readinessHandler.Readiness) // readiness – are dependencies up?
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

// requestLogger writes one zerolog line per request.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil || v.Status >= 500 {
				ev = log.Error().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
