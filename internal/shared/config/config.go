package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
)

// DevSessionSecret is the signing secret used when SESSION_SECRET is unset.
// It is only acceptable for local development.
const DevSessionSecret = "developmentkey"

// DefaultMaxUploadBytes caps the /analyze request body at 16 MiB.
const DefaultMaxUploadBytes = 16 << 20

// Config holds application configuration.
type Config struct {
	Port            string
	Env             string
	SessionSecret   string
	DatabaseURL     string
	ObjectStoreType string
	UploadDir       string
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string
	SSEKMSKeyID     string
	RedisURL        string
	LogLevel        string
	MaxUploadBytes  int64
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	return Config{
		Port:            getEnv("PORT", "8080"),
		Env:             normalizeEnv(getEnv("ENV", "dev")),
		SessionSecret:   getEnv("SESSION_SECRET", DevSessionSecret),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		ObjectStoreType: normalizeStoreType(getEnv("OBJECT_STORE", "local")),
		UploadDir:       getEnv("UPLOAD_DIR", "static/uploads"),
		AWSRegion:       getEnv("AWS_REGION", ""),
		S3Bucket:        getEnv("S3_BUCKET", ""),
		S3Prefix:        getEnv("S3_PREFIX", ""),
		SSEKMSKeyID:     getEnv("SSE_KMS_KEY_ID", ""),
		RedisURL:        getEnv("REDIS_URL", ""),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		MaxUploadBytes:  getEnvInt64("MAX_UPLOAD_BYTES", DefaultMaxUploadBytes),
	}
}

// Validate rejects development defaults outside dev-like environments.
func (c Config) Validate() error {
	if c.IsDevLike() {
		return nil
	}
	var errs []error
	if strings.TrimSpace(c.SessionSecret) == "" || c.SessionSecret == DevSessionSecret {
		errs = append(errs, errors.New("SESSION_SECRET must be set outside development"))
	}
	if strings.TrimSpace(c.DatabaseURL) == "" {
		errs = append(errs, errors.New("DATABASE_URL is required outside development"))
	}
	if c.ObjectStoreType == "s3" && strings.TrimSpace(c.S3Bucket) == "" {
		errs = append(errs, errors.New("OBJECT_STORE=s3 requires S3_BUCKET"))
	}
	return errors.Join(errs...)
}

// IsDevLike reports whether development defaults are allowed.
func (c Config) IsDevLike() bool {
	switch c.Env {
	case "dev", "local":
		return true
	default:
		return false
	}
}

// IsProduction reports whether the service runs in production.
func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt64(key string, def int64) int64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "development", "dev":
		return "dev"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}
