package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/99minutos/identity-access/internal/api/handler"
	"github.com/99minutos/identity-access/internal/api/middleware"
	"github.com/99minutos/identity-access/internal/core/ports"

	_ "github.com/99minutos/identity-access/docs"
)

// Dependencies are the services the HTTP surface is built on.
type Dependencies struct {
	Auth         ports.AuthService
	Admin        ports.UserAdmin
	Sessions     ports.SessionTokens
	Cookie       middleware.CookieOptions
	HealthChecks map[string]handler.Check
	Log          zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(deps.Log))
	e.Use(echoprometheus.NewMiddleware("identity"))

	// --- Auth routes ---
	authHandler := handler.NewAuthHandler(deps.Auth, deps.Cookie)
	e.POST("/auth/login", authHandler.Login)
	e.POST("/auth/logout", authHandler.Logout)

	// --- User administration (session required) ---
	userHandler := handler.NewUserHandler(deps.Admin)
	users := e.Group("/users", middleware.Session(deps.Sessions, deps.Cookie))
	users.PATCH("/:username/reactivate", userHandler.Reactivate)
	users.PATCH("/:username/deactivate", userHandler.Deactivate)
	users.PATCH("/:username/grant-admin", userHandler.GrantAdmin)
	users.PATCH("/:username/revoke-admin", userHandler.RevokeAdmin)
	users.PUT("/:username/password", userHandler.ChangePassword)

	// --- Health checks, metrics and docs (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(deps.HealthChecks)

	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", healthDepsHandler.Readiness)
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			evt := log.Info()
			if v.Error != nil {
				evt = log.Warn().Err(v.Error)
			}
			evt.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
