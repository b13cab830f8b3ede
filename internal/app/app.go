package app

import (
	"context"
	"fmt"
	"os"

	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	redisclient "github.com/dydqjadlsp/detailpage/internal/clients/redis"
	"github.com/dydqjadlsp/detailpage/internal/data/db"
	"github.com/dydqjadlsp/detailpage/internal/data/repos"
	"github.com/dydqjadlsp/detailpage/internal/domain/page"
	apphttp "github.com/dydqjadlsp/detailpage/internal/http"
	httpH "github.com/dydqjadlsp/detailpage/internal/http/handlers"
	httpMW "github.com/dydqjadlsp/detailpage/internal/http/middleware"
	"github.com/dydqjadlsp/detailpage/internal/modules/pagegen"
	"github.com/dydqjadlsp/detailpage/internal/observability"
	"github.com/dydqjadlsp/detailpage/internal/platform/gcp"
	"github.com/dydqjadlsp/detailpage/internal/platform/gemini"
	"github.com/dydqjadlsp/detailpage/internal/platform/logger"
	"github.com/dydqjadlsp/detailpage/internal/platform/secrets"
	"github.com/dydqjadlsp/detailpage/internal/services"
)

type App struct {
	Log      *logger.Logger
	Cfg      Config
	DB       *gorm.DB
	Postgres *db.PostgresService
	Redis    *goredis.Client
	Bucket   gcp.BucketService
	Metrics  *observability.Metrics
	Server   *apphttp.Server

	shutdownOTel func(context.Context) error
}

// NewLogger builds the process logger from LOG_MODE.
func NewLogger() (*logger.Logger, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return log, nil
}

// OpenPostgres connects and, when migrate is set, brings the schema up to date.
func OpenPostgres(log *logger.Logger, cfg Config, migrate bool) (*db.PostgresService, error) {
	pg, err := db.NewPostgresService(cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	if migrate {
		if err := pg.AutoMigrateAll(); err != nil {
			_ = pg.Close()
			return nil, fmt.Errorf("postgres automigrate: %w", err)
		}
	}
	return pg, nil
}

// OpenBucket resolves the storage provider for the image bucket.
func OpenBucket(ctx context.Context, log *logger.Logger, cfg Config) (gcp.BucketService, error) {
	return resolveBucketService(ctx, log, cfg)
}

func New(ctx context.Context, log *logger.Logger, cfg Config, migrate bool) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &App{Log: log, Cfg: cfg}
	a.shutdownOTel = observability.InitOTel(ctx, log, cfg.Otel)
	a.Metrics = observability.NewMetrics(log)

	pg, err := OpenPostgres(log, cfg, migrate)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}
	a.Postgres = pg
	a.DB = pg.DB()

	if cfg.RedisAddr != "" {
		rdb, err := redisclient.NewClient(ctx, log, redisclient.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			a.Close(ctx)
			return nil, err
		}
		a.Redis = rdb
	} else {
		log.Warn("REDIS_ADDR not set; generation rate limiting disabled")
	}

	bucket, err := resolveBucketService(ctx, log, cfg)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}
	a.Bucket = bucket
	if cfg.EnsureBucketOnStartup {
		if err := bucket.EnsureBucket(ctx); err != nil {
			a.Close(ctx)
			return nil, fmt.Errorf("ensure bucket: %w", err)
		}
	}

	catalog, err := loadCatalog(cfg.CatalogPath)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}

	box, err := secrets.NewBox(cfg.SettingsEncryptionKey)
	if err != nil {
		a.Close(ctx)
		return nil, fmt.Errorf("init settings encryption: %w", err)
	}

	log.Info("Wiring services...")
	projectRepo := repos.NewProjectRepo(a.DB, log)
	settingsRepo := repos.NewUserSettingsRepo(a.DB, log)

	var imageLimiter *rate.Limiter
	if cfg.ImageRatePerSec > 0 {
		burst := cfg.ImageBurst
		if burst < 1 {
			burst = 1
		}
		imageLimiter = rate.NewLimiter(rate.Limit(cfg.ImageRatePerSec), burst)
	}

	pipeline := pagegen.New(pagegen.Deps{
		Log: log,
		Gemini: gemini.NewClient(log, gemini.Config{
			MaxRetries: cfg.GeminiMaxRetries,
		}, a.Metrics),
		Store:          bucket,
		Projects:       projectRepo,
		GenerationLogs: repos.NewGenerationLogRepo(a.DB, log),
		VibeSessions:   repos.NewVibeSessionRepo(a.DB, log),
		Limiter:        imageLimiter,
		Observer:       a.Metrics,
		Catalog:        catalog,
	}, pagegen.Config{
		TextModel:        cfg.TextModel,
		ImageModel:       cfg.ImageModel,
		VibeModel:        cfg.VibeModel,
		ImageConcurrency: cfg.ImageConcurrency,
		ImageTaskTimeout: cfg.ImageTaskTimeout,
		Thumbnails:       cfg.Thumbnails,
	})

	var cleaner services.ImageCleaner
	if cfg.DeleteImagesWithProject {
		cleaner = bucket
	}
	authService := services.NewAuthService(log, cfg.JWTSecretKey, cfg.JWTIssuer)
	settingsService := services.NewSettingsService(a.DB, log, settingsRepo, box)
	projectService := services.NewProjectService(a.DB, log, projectRepo, cleaner)
	generationService := services.NewGenerationService(log, pipeline, settingsService, projectRepo)

	var generateLimiter redisclient.RateLimiter
	if a.Redis != nil && cfg.GenerateRateLimit > 0 {
		generateLimiter = redisclient.NewFixedWindowLimiter(a.Redis, log, "detailpage:generate", cfg.GenerateRateLimit, cfg.GenerateRateWindow)
	}

	log.Info("Wiring handlers...")
	a.Server = apphttp.NewServer(log, apphttp.RouterConfig{
		Log:               log,
		Metrics:           a.Metrics,
		MetricsEnabled:    cfg.MetricsEnabled,
		TracingEnabled:    cfg.Otel.Enabled,
		ServiceName:       cfg.Otel.ServiceName,
		AllowOrigins:      cfg.CORSOrigins,
		AuthMiddleware:    httpMW.NewAuthMiddleware(log, authService),
		GenerateLimiter:   generateLimiter,
		HealthHandler:     httpH.NewHealthHandler(log, a.Metrics, a.readinessChecks()),
		GenerationHandler: httpH.NewGenerationHandler(log, generationService),
		ProjectHandler:    httpH.NewProjectHandler(log, projectService),
		SettingsHandler:   httpH.NewSettingsHandler(log, settingsService),
	})
	return a, nil
}

func (a *App) readinessChecks() map[string]httpH.Check {
	checks := map[string]httpH.Check{"postgres": a.Postgres.Ping}
	if a.Redis != nil {
		checks["redis"] = func(ctx context.Context) error { return a.Redis.Ping(ctx).Err() }
	}
	return checks
}

func loadCatalog(path string) (*page.Catalog, error) {
	if path == "" {
		return page.DefaultCatalog(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read section catalog: %w", err)
	}
	catalog, err := page.ParseCatalog(raw)
	if err != nil {
		return nil, fmt.Errorf("parse section catalog %s: %w", path, err)
	}
	return catalog, nil
}

// Run serves HTTP until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	return a.Server.Run(ctx, ":"+a.Cfg.Port)
}

func (a *App) Close(ctx context.Context) {
	if a == nil {
		return
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.Postgres != nil {
		_ = a.Postgres.Close()
	}
	if a.shutdownOTel != nil {
		if err := a.shutdownOTel(ctx); err != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
