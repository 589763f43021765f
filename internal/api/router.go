package api

import (
	"fmt"
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/vivulocal/marketplace-api/internal/api/handler"
	"github.com/vivulocal/marketplace-api/internal/api/middleware"
	"github.com/vivulocal/marketplace-api/internal/core/domain"
	"github.com/vivulocal/marketplace-api/internal/core/ports"
)

// Deps is everything the HTTP layer needs. Wiring happens in main.
type Deps struct {
	JWTSecret         string
	FrontendURL       string
	NavigationTimeout time.Duration
	// UploadMaxBytes caps a stored file. Zero means 5 MiB.
	UploadMaxBytes int64
	Log            zerolog.Logger

	Auth      ports.AuthService
	Profiles  ports.ProfileService
	Approvals ports.ApprovalService
	Decisions ports.DecisionService
	Assistant ports.AssistantService
	Uploader  ports.Uploader
	Google    ports.OAuthProvider

	Feed      ports.ChangeFeed
	Persister ports.SessionPersister

	// Readiness probes. Nil clients are skipped.
	DB      *mongo.Database
	Redis   *redis.Client
	Storage handler.Pinger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(echoprometheus.NewMiddleware("vivulocal"))

	authMiddleware := middleware.Auth(d.JWTSecret)
	optionalAuth := middleware.OptionalAuth(d.JWTSecret)
	adminOnly := middleware.RBAC(d.Profiles, domain.RoleAdmin)

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(d.Auth, d.Google, d.FrontendURL)
	profileHandler := handler.NewProfileHandler(d.Profiles)
	approvalHandler := handler.NewApprovalHandler(d.Approvals, d.Decisions)
	liveHandler := handler.NewLiveHandler(d.Profiles, d.Feed, d.Persister, d.NavigationTimeout, d.Log.With().Str("component", "live").Logger())
	uploadHandler := handler.NewUploadHandler(d.Uploader)
	assistantHandler := handler.NewAssistantHandler(d.Assistant)

	// --- Auth routes ---
	e.POST("/auth/register", authHandler.Register)
	e.POST("/auth/login", authHandler.Login)
	e.GET("/auth/oauth/google", authHandler.GoogleStart)
	e.GET("/auth/oauth/google/callback", authHandler.GoogleCallback)

	v1 := e.Group("/v1")

	// --- Signed-in routes ---
	me := v1.Group("", authMiddleware)
	me.GET("/me", profileHandler.GetMe)
	me.PATCH("/me", profileHandler.UpdateMe)
	me.POST("/requests", approvalHandler.Submit)
	me.GET("/requests/mine", approvalHandler.Mine)
	me.POST("/uploads", uploadHandler.Upload, echomiddleware.BodyLimit(uploadBodyLimit(d.UploadMaxBytes)))

	// --- Admin routes (role read from the store on every request) ---
	admin := v1.Group("/admin", authMiddleware, adminOnly)
	admin.GET("/requests", approvalHandler.List)
	admin.POST("/requests/:id/decision", approvalHandler.Decide)
	admin.POST("/users/:id/ban", profileHandler.Ban)
	admin.POST("/users/:id/unban", profileHandler.Unban)

	// --- Open to anonymous viewers ---
	open := v1.Group("", optionalAuth)
	open.GET("/live", liveHandler.Stream)
	open.GET("/navigation", liveHandler.Navigation)
	open.POST("/assistant/chat", assistantHandler.Chat)

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(d.DB, d.Redis, d.Storage)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?

	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

// uploadBodyLimit allows the file plus 64 KiB of multipart framing.
func uploadBodyLimit(maxBytes int64) string {
	if maxBytes <= 0 {
		maxBytes = 5 << 20
	}
	return fmt.Sprintf("%dK", maxBytes/1024+64)
}
