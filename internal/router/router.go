package router

import (
	"context"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/config"
	"github.com/stemsi/exstem-proctor/internal/handler"
	"github.com/stemsi/exstem-proctor/internal/middleware"
	"github.com/stemsi/exstem-proctor/internal/response"
	"github.com/stemsi/exstem-proctor/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Session  *handler.SessionHandler
	Question *handler.QuestionHandler
	Stream   *handler.StreamHandler
	Monitor  *handler.MonitorHandler
	System   *handler.SystemHandler
}

// Guards carries what the auth middlewares check against.
type Guards struct {
	Tokens   middleware.TokenValidator
	Operator *service.OperatorAuth
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
// ctx bounds background helpers such as the rate limiter cleanup.
func SetupRouter(
	ctx context.Context,
	guards Guards,
	handlers *Handlers,
	cfg *config.Config,
	log zerolog.Logger,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID", middleware.OperatorPasscodeHeader}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Request ID and access log on every response.
	router.Use(response.RequestIDMiddleware(log))

	router.GET("/health", handlers.System.Health)

	// Rate limiter for session creation (30 requests per minute per IP).
	sessionLimiter := middleware.NewRateLimiter(ctx, 30, time.Minute)

	// ─── 1. Candidate API ──────────────────────────────────────────────
	api := router.Group("/api/v1")
	api.Use(middleware.Brotli())
	{
		// The bank is fixed for the lifetime of the process.
		api.GET("/paper", middleware.CacheControl(time.Minute), handlers.Question.GetPaper)
		api.POST("/sessions", sessionLimiter.Middleware(), handlers.Session.CreateSession)
		api.GET("/sessions/:session_id",
			middleware.RequireSessionToken(guards.Tokens),
			handlers.Session.GetSession,
		)
	}

	// ─── 2. WebSocket Group (session token via ?token=) ────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireSessionToken(guards.Tokens))
	{
		ws.GET("/sessions/:session_id/stream", handlers.Stream.SessionStream)
	}

	// ─── 3. Operator Group (passcode) ──────────────────────────────────
	monitor := router.Group("/api/v1/monitor")
	monitor.Use(middleware.RequireOperator(guards.Operator))
	{
		monitor.GET("/stream", handlers.Monitor.MonitorSSE)
		monitor.GET("/system", handlers.System.SystemMetricsSSE)
		monitor.GET("/sessions/:session_id/result", handlers.Monitor.GetResult)
		monitor.GET("/sessions/:session_id/violations", handlers.Monitor.ListViolations)
	}

	return router
}
