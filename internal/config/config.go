package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorageDriverLocal = "local"
	StorageDriverMinio = "minio"

	defaultMaxUploadMB = 5.0
)

type Config struct {
	ServerPort              string
	ServerReadHeaderTimeout time.Duration
	ServerWriteTimeout      time.Duration
	ServerIdleTimeout       time.Duration
	RequestTimeout          time.Duration
	TransferTimeout         time.Duration
	TransferIdleTimeout     time.Duration

	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	JWTAccessSecret   string
	JWTRefreshSecret  string
	JWTAccessTTL      time.Duration
	JWTRefreshTTL     time.Duration
	RefreshDisplayTTL time.Duration

	CORSOrigins      []string
	RateLimitRPM     int
	AuthRateLimitRPM int

	StorageDriver    string
	UploadRoot       string
	ThumbnailRoot    string
	MaxUploadSize    int64
	AllowedMIMETypes []string
	Minio            MinioConfig

	RedisURL string

	OrphanSweepSchedule string
	OrphanGracePeriod   time.Duration

	LogLevel  string
	LogFormat string
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ServerPort:              getEnv("SERVER_PORT", "8080"),
		ServerReadHeaderTimeout: getDuration("SERVER_READ_HEADER_TIMEOUT", 10*time.Second),
		ServerWriteTimeout:      getDuration("SERVER_WRITE_TIMEOUT", 60*time.Second),
		ServerIdleTimeout:       getDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
		RequestTimeout:          getDuration("REQUEST_TIMEOUT", 30*time.Second),
		TransferTimeout:         getDuration("TRANSFER_TIMEOUT", 10*time.Minute),
		TransferIdleTimeout:     getDuration("TRANSFER_IDLE_TIMEOUT", 60*time.Second),

		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		DBMaxConns:  int32(getInt("DB_MAX_CONNS", 10)),
		DBMinConns:  int32(getInt("DB_MIN_CONNS", 2)),

		JWTAccessSecret:   strings.TrimSpace(os.Getenv("JWT_ACCESS_SECRET")),
		JWTRefreshSecret:  strings.TrimSpace(os.Getenv("JWT_REFRESH_SECRET")),
		JWTAccessTTL:      time.Duration(getInt("JWT_ACCESS_EXPIRES_IN", 15)) * time.Minute,
		JWTRefreshTTL:     time.Duration(getInt("JWT_REFRESH_EXPIRES_IN", 7)) * 24 * time.Hour,
		RefreshDisplayTTL: time.Duration(getInt("JWT_REFRESH_TOKEN_EXPIRATION_DAYS", 7)) * 24 * time.Hour,

		CORSOrigins:      splitCSV(getEnv("CORS_ORIGINS", "*")),
		RateLimitRPM:     getInt("RATE_LIMIT_RPM", 100),
		AuthRateLimitRPM: getInt("AUTH_RATE_LIMIT_RPM", 10),

		StorageDriver:    strings.ToLower(getEnv("STORAGE_DRIVER", StorageDriverLocal)),
		UploadRoot:       getEnv("UPLOAD_ROOT", "./uploads"),
		ThumbnailRoot:    getEnv("THUMBNAIL_ROOT", "./state/thumbnails"),
		MaxUploadSize:    megabytes(getFloat("MAX_FILE_UPLOAD_LIMIT", defaultMaxUploadMB)),
		AllowedMIMETypes: splitCSV(getEnv("ALLOWED_MIME_TYPES", "image/jpeg")),
		Minio: MinioConfig{
			Endpoint:  strings.TrimSpace(os.Getenv("MINIO_ENDPOINT")),
			AccessKey: strings.TrimSpace(os.Getenv("MINIO_ACCESS_KEY")),
			SecretKey: strings.TrimSpace(os.Getenv("MINIO_SECRET_KEY")),
			Bucket:    getEnv("MINIO_BUCKET", "media"),
			Region:    strings.TrimSpace(os.Getenv("MINIO_REGION")),
			UseSSL:    getBool("MINIO_USE_SSL", false),
		},

		RedisURL: strings.TrimSpace(os.Getenv("REDIS_URL")),

		OrphanSweepSchedule: getEnvAllowEmpty("ORPHAN_SWEEP_SCHEDULE", "@every 1h"),
		OrphanGracePeriod:   getDuration("ORPHAN_GRACE_PERIOD", time.Hour),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "pretty"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.RefreshDisplayTTL != cfg.JWTRefreshTTL {
		slog.Warn("refresh token display expiry differs from signed expiry",
			"jwt_refresh_expires_in", cfg.JWTRefreshTTL.String(),
			"jwt_refresh_token_expiration_days", cfg.RefreshDisplayTTL.String())
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.JWTAccessSecret == "" || c.JWTRefreshSecret == "" {
		return fmt.Errorf("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET are required")
	}

	if c.JWTAccessSecret == c.JWTRefreshSecret {
		return fmt.Errorf("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must differ")
	}

	if c.JWTAccessTTL <= 0 || c.JWTRefreshTTL <= 0 || c.RefreshDisplayTTL <= 0 {
		return fmt.Errorf("token lifetimes must be positive")
	}

	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MAX_CONNS must be positive and not below DB_MIN_CONNS")
	}

	if c.ServerPort == "" {
		return fmt.Errorf("SERVER_PORT cannot be empty")
	}

	if c.RequestTimeout <= 0 || c.TransferTimeout <= 0 || c.TransferIdleTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT, TRANSFER_TIMEOUT and TRANSFER_IDLE_TIMEOUT must be positive")
	}

	switch c.StorageDriver {
	case StorageDriverLocal:
		if strings.TrimSpace(c.UploadRoot) == "" {
			return fmt.Errorf("UPLOAD_ROOT cannot be empty")
		}
	case StorageDriverMinio:
		if c.Minio.Endpoint == "" || c.Minio.Bucket == "" {
			return fmt.Errorf("MINIO_ENDPOINT and MINIO_BUCKET are required for STORAGE_DRIVER=minio")
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}

	if strings.TrimSpace(c.ThumbnailRoot) == "" {
		return fmt.Errorf("THUMBNAIL_ROOT cannot be empty")
	}

	if c.MaxUploadSize <= 0 {
		return fmt.Errorf("MAX_FILE_UPLOAD_LIMIT must be positive")
	}

	if c.OrphanGracePeriod < 0 {
		return fmt.Errorf("ORPHAN_GRACE_PERIOD cannot be negative")
	}

	return nil
}

// megabytes converts MAX_FILE_UPLOAD_LIMIT to bytes. Non-positive values fall
// back to the default limit.
func megabytes(mb float64) int64 {
	if mb <= 0 {
		mb = defaultMaxUploadMB
	}
	return int64(mb * 1024 * 1024)
}

func getEnv(key string, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}

	return v
}

// getEnvAllowEmpty distinguishes an unset variable from one explicitly set to "".
func getEnvAllowEmpty(key string, fallback string) string {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}

	return strings.TrimSpace(v)
}

func getInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}

	return v
}

func getFloat(key string, fallback float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}

	return v
}

func getBool(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}

	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return v
}

func splitCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}

	return out
}
