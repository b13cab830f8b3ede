package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	redisclient "github.com/dydqjadlsp/detailpage/internal/clients/redis"
	httpH "github.com/dydqjadlsp/detailpage/internal/http/handlers"
	httpMW "github.com/dydqjadlsp/detailpage/internal/http/middleware"
	"github.com/dydqjadlsp/detailpage/internal/observability"
	"github.com/dydqjadlsp/detailpage/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	Metrics        *observability.Metrics
	MetricsEnabled bool
	TracingEnabled bool
	ServiceName    string
	AllowOrigins   []string

	AuthMiddleware  *httpMW.AuthMiddleware
	GenerateLimiter redisclient.RateLimiter

	HealthHandler     *httpH.HealthHandler
	GenerationHandler *httpH.GenerationHandler
	ProjectHandler    *httpH.ProjectHandler
	SettingsHandler   *httpH.SettingsHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.TracingEnabled {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	if cfg.MetricsEnabled {
		r.Use(httpMW.Metrics(cfg.Metrics))
	}
	r.Use(httpMW.CORS(cfg.AllowOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Readyz)
	}
	r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))

	api := r.Group("/api")
	protected := api.Group("/")
	{
		// Middleware
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		// Generation
		if cfg.GenerationHandler != nil {
			protected.POST("/generate",
				httpMW.RateLimitPerUser(cfg.GenerateLimiter, cfg.Metrics, cfg.Log),
				cfg.GenerationHandler.Generate,
			)
			protected.POST("/vibe", cfg.GenerationHandler.Vibe)
		}

		// Projects
		if cfg.ProjectHandler != nil {
			protected.GET("/projects", cfg.ProjectHandler.List)
			protected.POST("/projects", cfg.ProjectHandler.Create)
			protected.GET("/projects/:id", cfg.ProjectHandler.Get)
			protected.PUT("/projects/:id", cfg.ProjectHandler.Update)
			protected.DELETE("/projects/:id", cfg.ProjectHandler.Delete)
		}

		// Settings
		if cfg.SettingsHandler != nil {
			protected.GET("/settings", cfg.SettingsHandler.Get)
			protected.POST("/settings", cfg.SettingsHandler.Save)
			protected.DELETE("/settings", cfg.SettingsHandler.Delete)
		}
	}

	return r
}
