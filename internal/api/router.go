package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/apistarter/auth-api/docs"
	"github.com/apistarter/auth-api/internal/api/handler"
	"github.com/apistarter/auth-api/internal/api/middleware"
	"github.com/apistarter/auth-api/internal/core/domain"
	"github.com/apistarter/auth-api/internal/core/ports"
)

// Options carries the HTTP-level settings of the router.
type Options struct {
	Production         bool
	Version            string
	LatestVersion      string
	DeprecatedVersions []string
	RateLimits         middleware.RateLimitTiers
	// Metrics receives the HTTP request metrics. Nil disables them and the
	// /metrics endpoint.
	Metrics prometheus.Registerer
}

// Services are the collaborators the handlers delegate to.
type Services struct {
	Tokens     ports.TokenService
	Access     ports.AccessResolver
	Auth       ports.AuthService
	Passwords  ports.PasswordService
	Social     ports.SocialAuthService
	Profile    ports.ProfileService
	AdminUsers ports.AdminUserService
	AdminRoles ports.AdminRoleService
	// Limiter backs the API rate limit tiers; nil disables them.
	Limiter ports.RateLimiter
	// URLs resolves stored picture keys; nil renders keys as stored.
	URLs handler.URLResolver
	// Health lists the dependencies checked by /health/ready.
	Health map[string]handler.Pinger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(opts Options, svc Services, log zerolog.Logger) *echo.Echo {
	if opts.Version == "" {
		opts.Version = "v1"
	}
	if opts.LatestVersion == "" {
		opts.LatestVersion = opts.Version
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(log, opts.Production)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.RequestLogger(log))
	if opts.Metrics != nil {
		e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
			Subsystem:  "http",
			Registerer: opts.Metrics,
		}))
		e.GET("/metrics", echoprometheus.NewHandler())
	}

	present := handler.NewPresenter(svc.URLs)
	authH := handler.NewAuthHandler(svc.Auth, present)
	passwordH := handler.NewPasswordHandler(svc.Passwords)
	socialH := handler.NewSocialHandler(svc.Social, present)
	profileH := handler.NewProfileHandler(svc.Profile, svc.Tokens, present)
	usersH := handler.NewAdminUserHandler(svc.AdminUsers, present)
	rolesH := handler.NewAdminRoleHandler(svc.AdminRoles, present)
	healthH := handler.NewHealthHandler(opts.Version, svc.Health)

	authenticate := middleware.Auth(svc.Tokens)
	limit := middleware.RateLimit(svc.Limiter, opts.RateLimits, log)
	guard := middleware.ThrottleAuthFailures(svc.Limiter, opts.RateLimits, log)

	// --- Unversioned ---
	e.GET("/", healthH.Root)
	e.GET("/health", healthH.Liveness)
	e.GET("/health/ready", healthH.Readiness)
	e.GET("/docs/*", echoSwagger.WrapHandler)

	v := e.Group("/"+opts.Version, middleware.Version(opts.Version, opts.LatestVersion, opts.DeprecatedVersions))

	// --- Public auth routes ---
	public := v.Group("/auth", limit)
	public.POST("/register", authH.Register)
	public.POST("/login", authH.Login)
	public.POST("/forgot-password", passwordH.ForgotPassword)
	public.POST("/reset-password", passwordH.ResetPassword)
	public.GET("/:provider/redirect", socialH.Redirect)
	public.GET("/:provider/callback", socialH.Callback)
	public.POST("/:provider/token", socialH.Token)

	// --- Authenticated ---
	session := v.Group("/auth", guard, authenticate, limit)
	session.POST("/logout", authH.Logout)
	session.POST("/logout-all", authH.LogoutAll)
	session.POST("/refresh", authH.Refresh)

	user := v.Group("/user", guard, authenticate, limit)
	user.GET("", profileH.Show)
	user.PUT("", profileH.Update)
	user.PUT("/password", profileH.UpdatePassword)
	user.POST("/profile-picture", profileH.UploadPicture)
	user.DELETE("/profile-picture", profileH.DeletePicture)
	user.GET("/tokens", profileH.Tokens)
	user.DELETE("/tokens", profileH.RevokeTokens)

	// --- Admin ---
	admin := v.Group("/admin",
		guard,
		authenticate,
		middleware.RequireAbility(domain.AbilityAdmin),
		middleware.RequireRole(svc.Access, domain.RoleAdmin),
		limit,
	)
	admin.GET("/users", usersH.List)
	admin.POST("/users", usersH.Store)
	admin.GET("/users/:id", usersH.Show)
	admin.PUT("/users/:id", usersH.Update)
	admin.PATCH("/users/:id", usersH.Update)
	admin.DELETE("/users/:id", usersH.Destroy)

	admin.GET("/roles", rolesH.List)
	admin.POST("/roles", rolesH.Store)
	admin.GET("/roles/:id", rolesH.Show)
	admin.PUT("/roles/:id", rolesH.Update)
	admin.PATCH("/roles/:id", rolesH.Update)
	admin.DELETE("/roles/:id", rolesH.Destroy)

	admin.GET("/permissions", rolesH.Permissions)

	return e
}
