package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr               string
	DatabaseURL        string
	Environment        string
	Version            string
	LogLevel           string
	CloudinaryURL      string
	CloudinaryFolder   string
	MaxBodyBytes       int64
	UploadTimeout      time.Duration
	RenderTimeout      time.Duration
	PhotoFetchTimeout  time.Duration
	ShutdownTimeout    time.Duration
	RateLimitPerMinute int
	CORSAllowedOrigins []string
	RunMigrations      bool
	MigrationsDir      string
	MetricsEnabled     bool
}

// Load reads the process environment. A .env file in the working directory
// is applied first; variables already set in the environment win.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Addr:               getEnv("APP_ADDR", ":4000"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		Environment:        getEnv("APP_ENV", "development"),
		Version:            getEnv("APP_VERSION", "1.0.0"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		CloudinaryURL:      getEnv("CLOUDINARY_URL", ""),
		CloudinaryFolder:   getEnv("CLOUDINARY_FOLDER", "maple-employees"),
		MaxBodyBytes:       int64(getEnvInt("MAX_BODY_BYTES", 6*1024*1024)),
		UploadTimeout:      getEnvDuration("UPLOAD_TIMEOUT", 30*time.Second),
		RenderTimeout:      getEnvDuration("RENDER_TIMEOUT", 60*time.Second),
		PhotoFetchTimeout:  getEnvDuration("PHOTO_FETCH_TIMEOUT", 10*time.Second),
		ShutdownTimeout:    getEnvDuration("SHUTDOWN_TIMEOUT", 15*time.Second),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{
			"http://localhost:3000",
			"http://localhost:5173",
			"http://127.0.0.1:3000",
			"http://127.0.0.1:5173",
		}),
		RunMigrations:  getEnvBool("RUN_MIGRATIONS", true),
		MigrationsDir:  getEnv("MIGRATIONS_DIR", "migrations"),
		MetricsEnabled: getEnvBool("METRICS_ENABLED", true),
	}
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.IsProduction() && strings.TrimSpace(c.CloudinaryURL) == "" {
		return fmt.Errorf("CLOUDINARY_URL must be set in production")
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("MAX_BODY_BYTES must be at least 1024")
	}
	if c.RateLimitPerMinute < 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must not be negative")
	}
	if c.UploadTimeout <= 0 || c.RenderTimeout <= 0 {
		return fmt.Errorf("UPLOAD_TIMEOUT and RENDER_TIMEOUT must be positive")
	}
	return nil
}
