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
	AppEnv string

	HTTPAddr    string
	DatabaseURL string
	DBDebug     bool

	// Auth
	JWTSecret       string
	JWTIssuer       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	BcryptCost      int
	AdminEmail      string // signups with this email get the admin role

	// Redis & Caching
	RedisURL        string
	CacheTTLDetails time.Duration
	CacheTTLList    time.Duration

	// Rate Limiting
	RLEnabled    bool
	RLLimit      int
	RLWindow     time.Duration
	AuthRLLimit  int
	AuthRLWindow time.Duration

	// RabbitMQ
	RabbitURL      string
	RabbitExchange string
	MailQueue      string

	// Outbox
	OutboxEnabled     bool
	OutboxInterval    time.Duration
	OutboxBatch       int
	OutboxMaxAttempts int

	// Mail webhook
	MailWebhookURL     string
	MailWebhookTimeout time.Duration

	// S3 / MinIO
	S3Endpoint        string
	S3Region          string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3Bucket          string
	S3UsePathStyle    bool
	CDNBaseURL        string
	MaxUploadSize     int64

	LogLevel  string
	LogFormat string

	HTTPReadTimeout    time.Duration
	HTTPWriteTimeout   time.Duration
	HTTPIdleTimeout    time.Duration
	CORSAllowedOrigins []string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	cfg.AppEnv = getEnv("APP_ENV", "dev")
	cfg.HTTPAddr = getEnv("HTTP_ADDR", ":8080")
	cfg.DatabaseURL = getEnv("DATABASE_URL", "")
	cfg.DBDebug = getBool("DB_DEBUG", false)

	cfg.JWTSecret = getEnv("JWT_SECRET", "")
	cfg.JWTIssuer = getEnv("JWT_ISSUER", "eventhub")
	cfg.AccessTokenTTL = getDuration("ACCESS_TOKEN_TTL", 15*time.Minute)
	cfg.RefreshTokenTTL = getDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour)
	cfg.BcryptCost = getIntEnv("BCRYPT_COST", 0)
	cfg.AdminEmail = strings.ToLower(getEnv("ADMIN_EMAIL", ""))

	cfg.RedisURL = getEnv("REDIS_URL", "redis://localhost:6379/0")
	cfg.CacheTTLDetails = getDuration("CACHE_TTL_DETAILS", 5*time.Minute)
	cfg.CacheTTLList = getDuration("CACHE_TTL_LIST", 15*time.Second)

	cfg.RLEnabled = getBool("RL_ENABLED", true)
	cfg.RLLimit = getIntEnv("RL_LIMIT", 100)
	cfg.RLWindow = getDuration("RL_WINDOW", 1*time.Minute)
	cfg.AuthRLLimit = getIntEnv("AUTH_RL_LIMIT", 10)
	cfg.AuthRLWindow = getDuration("AUTH_RL_WINDOW", 1*time.Minute)

	cfg.RabbitURL = getEnv("RABBIT_URL", "")
	cfg.RabbitExchange = getEnv("RABBIT_EXCHANGE", "eventhub.events")
	cfg.MailQueue = getEnv("MAIL_QUEUE", "eventhub.mail")

	cfg.OutboxEnabled = getBool("OUTBOX_ENABLED", true)
	cfg.OutboxInterval = getDuration("OUTBOX_INTERVAL", 2*time.Second)
	cfg.OutboxBatch = getIntEnv("OUTBOX_BATCH", 50)
	cfg.OutboxMaxAttempts = getIntEnv("OUTBOX_MAX_ATTEMPTS", 10)

	cfg.MailWebhookURL = getEnv("MAIL_WEBHOOK_URL", "")
	cfg.MailWebhookTimeout = getDuration("MAIL_WEBHOOK_TIMEOUT", 10*time.Second)

	cfg.S3Endpoint = getEnv("S3_ENDPOINT", "")
	cfg.S3Region = getEnv("S3_REGION", "us-east-1")
	cfg.S3AccessKeyID = getEnv("S3_ACCESS_KEY_ID", "minioadmin")
	cfg.S3SecretAccessKey = getEnv("S3_SECRET_ACCESS_KEY", "minioadmin")
	cfg.S3Bucket = getEnv("S3_BUCKET", "event-images")
	cfg.S3UsePathStyle = getBool("S3_USE_PATH_STYLE", true)
	cfg.CDNBaseURL = strings.TrimRight(getEnv("CDN_BASE_URL", "http://localhost:9000/event-images"), "/")
	cfg.MaxUploadSize = getInt64Env("MAX_UPLOAD_SIZE", 5*1024*1024)

	cfg.LogLevel = getEnv("LOG_LEVEL", "info")
	cfg.LogFormat = getEnv("LOG_FORMAT", "console")

	cfg.HTTPReadTimeout = getDuration("HTTP_READ_TIMEOUT", 10*time.Second)
	cfg.HTTPWriteTimeout = getDuration("HTTP_WRITE_TIMEOUT", 20*time.Second)
	cfg.HTTPIdleTimeout = getDuration("HTTP_IDLE_TIMEOUT", 60*time.Second)
	cfg.CORSAllowedOrigins = splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"))

	// validation
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("missing DATABASE_URL")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("missing JWT_SECRET")
	}
	if cfg.AppEnv != "dev" && cfg.RabbitURL == "" && cfg.MailWebhookURL == "" {
		return nil, fmt.Errorf("missing RABBIT_URL or MAIL_WEBHOOK_URL (required when APP_ENV != dev)")
	}
	if cfg.MaxUploadSize <= 0 {
		return nil, fmt.Errorf("MAX_UPLOAD_SIZE must be > 0")
	}

	return cfg, nil
}

// IsDev reports whether the service runs with developer defaults.
func (c *Config) IsDev() bool { return c.AppEnv == "dev" }

func getEnv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func getIntEnv(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getInt64Env(key string, def int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return i
}

// getBool panics on garbage so a typo in a flag never silently flips behavior.
func getBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		panic(fmt.Sprintf("invalid bool env %s=%q", key, v))
	}
	return b
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
