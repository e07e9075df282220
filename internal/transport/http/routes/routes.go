package routes

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Doerkidoerk/entgeltrechnerigmby/internal/infra/config"
	"github.com/Doerkidoerk/entgeltrechnerigmby/internal/tariff"
	"github.com/Doerkidoerk/entgeltrechnerigmby/internal/transport/http/handlers"
	"github.com/Doerkidoerk/entgeltrechnerigmby/internal/transport/http/middleware"
	"github.com/Doerkidoerk/entgeltrechnerigmby/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Auth         *usecase.AuthService
	Registration *usecase.RegistrationService
	Users        *usecase.UserService
	Invites      *usecase.InviteService
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config      *config.AppConfig
	Logger      *zap.Logger
	RateLimiter *middleware.RateLimiter
	CsrfGuard   *middleware.CsrfGuard
	Metrics     *middleware.HTTPMetrics
	Tables      *tariff.Provider
	Services    ServiceSet
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Handler())
	}

	requireSession := middleware.RequireSession(deps.Services.Auth)
	requireAdmin := middleware.RequireAdmin()
	protect := deps.CsrfGuard.Protect()
	loginLimit := buildLimit(deps, "login_ip", deps.Config.RateLimit.LoginMaxAttempts)
	apiLimit := buildLimit(deps, "api_ip", deps.Config.RateLimit.ApiMaxRequests)

	healthHandler := handlers.NewHealthHandler(deps.Tables)
	r.GET("/healthz", healthHandler.Status)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		authHandler := handlers.NewAuthHandler(
			deps.Services.Auth,
			deps.Services.Registration,
			deps.CsrfGuard,
			deps.Logger,
		)

		api.GET("/health", healthHandler.Status)
		api.GET("/csrf-token", authHandler.CsrfToken)
		api.POST("/login", loginLimit, protect, authHandler.Login)
		api.POST("/register", loginLimit, protect, authHandler.Register)
		api.POST("/logout", requireSession, protect, authHandler.Logout)
		api.POST("/change-password", requireSession, protect, authHandler.ChangePassword)
		api.GET("/me", requireSession, authHandler.Me)

		userHandler := handlers.NewUserHandler(deps.Services.Users)
		users := api.Group("/users", requireSession, requireAdmin)
		users.GET("", userHandler.List)
		users.POST("", protect, userHandler.Create)
		users.GET("/:id", userHandler.Get)
		users.PATCH("/:id", protect, userHandler.Update)
		users.PUT("/:id/password", protect, userHandler.ResetPassword)
		users.DELETE("/:id", protect, userHandler.Delete)

		inviteHandler := handlers.NewInviteHandler(deps.Services.Invites, deps.Config.Auth.InviteTTLHours)
		invites := api.Group("/invites", requireSession, requireAdmin)
		invites.GET("", inviteHandler.List)
		invites.POST("", protect, inviteHandler.Create)
		invites.DELETE("/:code", protect, inviteHandler.Delete)

		tableHandler := handlers.NewTableHandler(deps.Tables)
		api.GET("/tables", apiLimit, requireSession, tableHandler.List)
		api.GET("/tables/:key", apiLimit, requireSession, tableHandler.Get)

		calcHandler := handlers.NewCalcHandler(deps.Tables)
		api.POST("/calc", apiLimit, requireSession, protect, calcHandler.Calculate)
	}

	return r
}

func buildLimit(deps Dependencies, name string, limit int) gin.HandlerFunc {
	if deps.RateLimiter == nil || limit <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	window := deps.Config.RateLimit.Window
	if window <= 0 {
		window = 15 * time.Minute
	}

	return deps.RateLimiter.Limit(middleware.RateLimitRule{
		Name:       name,
		Limit:      limit,
		Window:     window,
		Identifier: middleware.ClientIPIdentifier(),
	})
}
