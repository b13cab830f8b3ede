package app

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/dydqjadlsp/detailpage/internal/data/db"
	"github.com/dydqjadlsp/detailpage/internal/observability"
	"github.com/dydqjadlsp/detailpage/internal/platform/envutil"
	"github.com/dydqjadlsp/detailpage/internal/platform/logger"
)

var ErrMissingSecret = errors.New("missing required secret")

type Config struct {
	LogMode string
	Port    string

	Postgres db.PostgresConfig

	JWTSecretKey          string
	JWTIssuer             string
	SettingsEncryptionKey string

	ImageBucketName         string
	ObjectStorageMode       string
	StorageEmulatorHost     string
	StoragePublicBaseURL    string
	StorageCDNDomain        string
	GCPProjectID            string
	GCPLocation             string
	GCPCredentials          string
	StorageMaxObjectBytes   int64
	EnsureBucketOnStartup   bool
	DeleteImagesWithProject bool

	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	GenerateRateLimit  int
	GenerateRateWindow time.Duration

	TextModel        string
	ImageModel       string
	VibeModel        string
	GeminiMaxRetries int
	ImageConcurrency int
	ImageTaskTimeout time.Duration
	ImageRatePerSec  float64
	ImageBurst       int
	Thumbnails       bool
	CatalogPath      string

	MetricsEnabled bool
	Otel           observability.OtelConfig
	CORSOrigins    []string
}

// LoadDotEnv loads .env into the process environment. A missing file is not
// an error.
func LoadDotEnv() error {
	err := godotenv.Load()
	if err != nil && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// LoadConfig reads the process environment over the built-in defaults.
func LoadConfig(log *logger.Logger) Config {
	cfg := loadConfig(newViper())
	log.Info("Configuration loaded",
		"port", cfg.Port,
		"storage_mode", cfg.ObjectStorageMode,
		"redis", cfg.RedisAddr != "",
		"metrics", cfg.MetricsEnabled,
		"otel", cfg.Otel.Enabled,
	)
	return cfg
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("LOG_MODE", "development")
	v.SetDefault("PORT", "8080")

	v.SetDefault("POSTGRES_HOST", "localhost")
	v.SetDefault("POSTGRES_PORT", "5432")
	v.SetDefault("POSTGRES_USER", "postgres")
	v.SetDefault("POSTGRES_NAME", "detailpage")
	v.SetDefault("POSTGRES_SSLMODE", "disable")
	v.SetDefault("POSTGRES_MAX_OPEN_CONNS", 20)
	v.SetDefault("POSTGRES_MAX_IDLE_CONNS", 5)
	v.SetDefault("POSTGRES_CONN_MAX_LIFETIME", "30m")

	v.SetDefault("IMAGE_BUCKET_NAME", "generated-images")
	v.SetDefault("STORAGE_MAX_OBJECT_BYTES", 20<<20)
	v.SetDefault("ENSURE_BUCKET_ON_STARTUP", true)
	v.SetDefault("DELETE_IMAGES_WITH_PROJECT", true)

	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("GENERATE_RATE_LIMIT", 5)
	v.SetDefault("GENERATE_RATE_WINDOW", "1m")

	v.SetDefault("GEMINI_MAX_RETRIES", 2)
	v.SetDefault("IMAGE_CONCURRENCY", 4)
	v.SetDefault("IMAGE_TASK_TIMEOUT", "90s")
	v.SetDefault("IMAGE_RATE_PER_SEC", 2.0)
	v.SetDefault("IMAGE_BURST", 2)
	v.SetDefault("THUMBNAILS_ENABLED", true)

	v.SetDefault("METRICS_ENABLED", true)
	v.SetDefault("OTEL_ENABLED", false)
	v.SetDefault("OTEL_SERVICE_NAME", "detailpage")
	v.SetDefault("OTEL_SAMPLE_RATIO", 1.0)
	return v
}

func loadConfig(v *viper.Viper) Config {
	return Config{
		LogMode: v.GetString("LOG_MODE"),
		Port:    v.GetString("PORT"),

		Postgres: db.PostgresConfig{
			DSN:             v.GetString("DATABASE_URL"),
			Host:            v.GetString("POSTGRES_HOST"),
			Port:            v.GetString("POSTGRES_PORT"),
			User:            v.GetString("POSTGRES_USER"),
			Password:        v.GetString("POSTGRES_PASSWORD"),
			Name:            v.GetString("POSTGRES_NAME"),
			SSLMode:         v.GetString("POSTGRES_SSLMODE"),
			MaxOpenConns:    v.GetInt("POSTGRES_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("POSTGRES_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetDuration("POSTGRES_CONN_MAX_LIFETIME"),
		},

		JWTSecretKey:          v.GetString("JWT_SECRET_KEY"),
		JWTIssuer:             v.GetString("JWT_ISSUER"),
		SettingsEncryptionKey: v.GetString("SETTINGS_ENCRYPTION_KEY"),

		ImageBucketName:         v.GetString("IMAGE_BUCKET_NAME"),
		ObjectStorageMode:       v.GetString("OBJECT_STORAGE_MODE"),
		StorageEmulatorHost:     v.GetString("STORAGE_EMULATOR_HOST"),
		StoragePublicBaseURL:    v.GetString("OBJECT_STORAGE_PUBLIC_BASE_URL"),
		StorageCDNDomain:        v.GetString("IMAGE_CDN_DOMAIN"),
		GCPProjectID:            v.GetString("GCP_PROJECT_ID"),
		GCPLocation:             v.GetString("GCP_LOCATION"),
		GCPCredentials:          v.GetString("GOOGLE_APPLICATION_CREDENTIALS"),
		StorageMaxObjectBytes:   v.GetInt64("STORAGE_MAX_OBJECT_BYTES"),
		EnsureBucketOnStartup:   v.GetBool("ENSURE_BUCKET_ON_STARTUP"),
		DeleteImagesWithProject: v.GetBool("DELETE_IMAGES_WITH_PROJECT"),

		RedisAddr:          strings.TrimSpace(v.GetString("REDIS_ADDR")),
		RedisPassword:      v.GetString("REDIS_PASSWORD"),
		RedisDB:            v.GetInt("REDIS_DB"),
		GenerateRateLimit:  v.GetInt("GENERATE_RATE_LIMIT"),
		GenerateRateWindow: v.GetDuration("GENERATE_RATE_WINDOW"),

		TextModel:        v.GetString("GEMINI_TEXT_MODEL"),
		ImageModel:       v.GetString("GEMINI_IMAGE_MODEL"),
		VibeModel:        v.GetString("GEMINI_VIBE_MODEL"),
		GeminiMaxRetries: v.GetInt("GEMINI_MAX_RETRIES"),
		ImageConcurrency: v.GetInt("IMAGE_CONCURRENCY"),
		ImageTaskTimeout: v.GetDuration("IMAGE_TASK_TIMEOUT"),
		ImageRatePerSec:  v.GetFloat64("IMAGE_RATE_PER_SEC"),
		ImageBurst:       v.GetInt("IMAGE_BURST"),
		Thumbnails:       v.GetBool("THUMBNAILS_ENABLED"),
		CatalogPath:      v.GetString("SECTION_CATALOG_PATH"),

		MetricsEnabled: v.GetBool("METRICS_ENABLED"),
		Otel: observability.OtelConfig{
			Enabled:     v.GetBool("OTEL_ENABLED"),
			ServiceName: v.GetString("OTEL_SERVICE_NAME"),
			Environment: v.GetString("OTEL_ENVIRONMENT"),
			Version:     v.GetString("OTEL_SERVICE_VERSION"),
			Endpoint:    v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),
			Headers:     envutil.KeyValues("OTEL_EXPORTER_OTLP_HEADERS"),
			Insecure:    v.GetBool("OTEL_EXPORTER_OTLP_INSECURE"),
			SampleRatio: v.GetFloat64("OTEL_SAMPLE_RATIO"),
		},
		CORSOrigins: splitList(v.GetString("CORS_ALLOW_ORIGINS")),
	}
}

// Validate checks what the HTTP server cannot start without.
func (c Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.JWTSecretKey) == "" {
		missing = append(missing, "JWT_SECRET_KEY")
	}
	if strings.TrimSpace(c.SettingsEncryptionKey) == "" {
		missing = append(missing, "SETTINGS_ENCRYPTION_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingSecret, strings.Join(missing, ", "))
	}
	if c.GenerateRateLimit < 0 {
		return fmt.Errorf("GENERATE_RATE_LIMIT must be >= 0, got %d", c.GenerateRateLimit)
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
