package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	EnvProduction  = "production"
	EnvDevelopment = "development"

	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Config holds everything read from the environment at startup.
type Config struct {
	Port     string
	Env      string
	LogLevel string

	SessionSecret string

	StoreBackend  string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	DatabaseURL   string

	VAPIDPublicKey  string
	VAPIDPrivateKey string
	VAPIDSubject    string
	PushTTL         int

	ServiceWorkerURL string
	AnalyticsEnabled bool

	AdminUsername     string
	AdminPasswordHash string
	AdminTOTPSecret   string
	WebhookSecret     string

	Twitter TwitterConfig
}

// TwitterConfig carries the OAuth1 credentials for the cross-post trigger.
type TwitterConfig struct {
	AppKey       string
	AppSecret    string
	AccessToken  string
	AccessSecret string
	APIURL       string
}

// Enabled reports whether all four credentials are present.
func (t TwitterConfig) Enabled() bool {
	return t.AppKey != "" && t.AppSecret != "" && t.AccessToken != "" && t.AccessSecret != ""
}

func (c *Config) IsProd() bool {
	return c.Env == EnvProduction
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	cfg := &Config{
		Port:     getenv("PORT", "8080"),
		Env:      strings.ToLower(getenv("APP_ENV", EnvDevelopment)),
		LogLevel: strings.ToLower(getenv("LOG_LEVEL", "info")),

		SessionSecret: getenv("SESSION_SECRET", "secret-key-change-in-production"),

		StoreBackend:  strings.ToLower(getenv("STORE_BACKEND", BackendRedis)),
		RedisAddr:     getenv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getint("REDIS_DB", 0),
		DatabaseURL:   os.Getenv("DATABASE_URL"),

		VAPIDPublicKey:  os.Getenv("VAPID_PUBLIC_KEY"),
		VAPIDPrivateKey: os.Getenv("VAPID_PRIVATE_KEY"),
		VAPIDSubject:    getenv("VAPID_SUBJECT", "mailto:admin@example.com"),
		PushTTL:         getint("PUSH_TTL", 30),

		ServiceWorkerURL: getenv("SERVICE_WORKER_URL", "/sw.js"),
		AnalyticsEnabled: getbool("ANALYTICS_ENABLED", true),

		AdminUsername:     getenv("ADMIN_USERNAME", "admin"),
		AdminPasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),
		AdminTOTPSecret:   os.Getenv("ADMIN_TOTP_SECRET"),
		WebhookSecret:     os.Getenv("WEBHOOK_SECRET"),

		Twitter: TwitterConfig{
			AppKey:       os.Getenv("TWITTER_APP_KEY"),
			AppSecret:    os.Getenv("TWITTER_APP_SECRET"),
			AccessToken:  os.Getenv("TWITTER_ACCESS_TOKEN"),
			AccessSecret: os.Getenv("TWITTER_ACCESS_SECRET"),
			APIURL:       getenv("TWITTER_API_URL", "https://api.twitter.com/1.1"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendRedis:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL environment variable is required for the postgres backend")
		}
	default:
		return errors.New("STORE_BACKEND must be redis or postgres")
	}
	if c.Env != EnvProduction && c.Env != EnvDevelopment {
		return errors.New("APP_ENV must be production or development")
	}
	if c.IsProd() && c.SessionSecret == "secret-key-change-in-production" {
		return errors.New("SESSION_SECRET must be set in production")
	}
	if (c.VAPIDPublicKey == "") != (c.VAPIDPrivateKey == "") {
		return errors.New("VAPID_PUBLIC_KEY and VAPID_PRIVATE_KEY must be set together")
	}
	return nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getint(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getbool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}
