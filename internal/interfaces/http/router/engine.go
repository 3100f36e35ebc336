package router

import (
	"context"
	"fmt"
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/salesops/backend/internal/infrastructure/auth"
	"github.com/salesops/backend/internal/infrastructure/config"
	"github.com/salesops/backend/internal/infrastructure/logger"
	"github.com/salesops/backend/internal/interfaces/http/handler"
	"github.com/salesops/backend/internal/interfaces/http/middleware"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Deps are the collaborators NewEngine wires into routes
type Deps struct {
	Config      *config.Config
	Logger      *zap.Logger
	JWT         *auth.JWTService
	Revocations auth.RevocationList
	// Meter is optional; nil disables HTTP metrics
	Meter metric.Meter
	// Metrics serves /metrics when set
	Metrics http.Handler
	// RateLimiter is optional; when rate limiting is enabled and it is nil
	// the engine builds one from config
	RateLimiter *middleware.RateLimiter
	Reports     handler.SalesHistoryService
	Notices     handler.NoticeService
	System      *handler.SystemHandler
}

// NewEngine builds the gin engine with the full middleware chain:
//
//	Recovery -> RequestID -> Tracing -> Logger -> Secure -> CORS -> BodyLimit
//	-> SpanErrorMarker -> Metrics -> (api) Identity -> TracingAttributes -> Profiling
//	-> (reports) RateLimit
func NewEngine(deps Deps) (*gin.Engine, error) {
	cfg := deps.Config
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	middleware.SetupValidator()

	revocations := deps.Revocations
	if revocations == nil {
		revocations = auth.NewInMemoryRevocationList()
	}

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			return nil, fmt.Errorf("set trusted proxies: %w", err)
		}
	}

	metrics, err := middleware.HTTPMetrics(deps.Meter)
	if err != nil {
		return nil, fmt.Errorf("http metrics: %w", err)
	}

	engine.Use(logger.Recovery(log))
	engine.Use(middleware.RequestID())
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.App.Name,
		Enabled:     cfg.Telemetry.Enabled,
	}))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsConfig.AllowHeaders = append(slices.Clone(cfg.HTTP.CORSAllowHeaders), middleware.ImpersonateHeader)
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))
	engine.Use(middleware.SpanErrorMarker())
	engine.Use(metrics)

	identityConfig := middleware.DefaultIdentityConfig(deps.JWT, cfg.Access.AdminCode)
	identityConfig.Revocations = revocations
	identityConfig.Logger = log
	identity := middleware.Identity(identityConfig)

	system := deps.System
	if system == nil {
		system = handler.NewSystemHandler(cfg.App.Name, "dev")
	}
	engine.GET("/health", system.Health)
	engine.GET("/ready", system.Ready)
	if deps.Metrics != nil {
		engine.GET("/metrics", gin.WrapH(deps.Metrics))
	}

	// Documentation. With RequireAuth the token check must not skip /swagger.
	var swaggerAuth gin.HandlerFunc
	if cfg.HTTP.Swagger.RequireAuth {
		strict := identityConfig
		strict.SkipPathPrefixes = nil
		swaggerAuth = middleware.Identity(strict)
	}
	engine.GET("/swagger/*any",
		middleware.SwaggerProtection(middleware.SwaggerConfig{
			Enabled:     cfg.HTTP.Swagger.Enabled,
			RequireAuth: cfg.HTTP.Swagger.RequireAuth,
			AllowedIPs:  cfg.HTTP.Swagger.AllowedIPs,
		}, swaggerAuth),
		ginSwagger.WrapHandler(swaggerFiles.Handler),
	)

	r := NewRouter(engine, WithAPIVersion("v1"))
	r.Use(identity, middleware.TracingAttributeInjector(), middleware.Profiling(cfg.Telemetry.ProfilingEnabled))

	reportHandler := handler.NewReportHandler(deps.Reports)
	reportRoutes := NewDomainGroup("report", "/reports")
	if cfg.HTTP.RateLimit.Enabled {
		limiter := deps.RateLimiter
		if limiter == nil {
			limiter = middleware.NewRateLimiter(context.Background(),
				cfg.HTTP.RateLimit.RequestsPerSecond, cfg.HTTP.RateLimit.Burst, 0)
		}
		reportRoutes.Use(middleware.RateLimit(limiter))
	}
	reportRoutes.GET("/sales-history", reportHandler.GetSalesHistory)
	reportRoutes.POST("/sales-history/batch", reportHandler.RunBatch)
	reportRoutes.POST("/sales-history/export", reportHandler.Export)
	reportRoutes.GET("/usage", reportHandler.ListUsage)
	r.Register(reportRoutes)

	noticeHandler := handler.NewNoticeHandler(deps.Notices, cfg.Access.AdminCode)
	noticeRoutes := NewDomainGroup("notice", "/notices")
	noticeRoutes.POST("/run", noticeHandler.RunNotices)
	noticeRoutes.GET("/status", noticeHandler.GetStatus)
	r.Register(noticeRoutes)

	authHandler := handler.NewAuthHandler(revocations)
	authRoutes := NewDomainGroup("auth", "/auth")
	authRoutes.GET("/session", authHandler.GetSession)
	authRoutes.POST("/revoke", authHandler.Revoke)
	r.Register(authRoutes)

	systemRoutes := NewDomainGroup("system", "/system")
	systemRoutes.GET("/info", system.GetSystemInfo)
	r.Register(systemRoutes)

	api := r.Setup()
	// unauthenticated liveness under the API prefix for load balancers
	api.GET("/health", system.Health)

	log.Info("HTTP routes registered", zap.Int("routes", len(engine.Routes())))
	return engine, nil
}
