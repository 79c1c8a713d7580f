package config

import (
	"os"
	"strconv"
	"time"
)

type R2 struct {
	AccountID  string
	AccessKey  string
	SecretKey  string
	BucketName string
	PublicURL  string
}

// OAuthClient holds the registered client for one platform.
type OAuthClient struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

// Engine holds the scheduler and retry tuning knobs.
type Engine struct {
	Workers       int
	MaxAttempts   int
	BaseBackoff   time.Duration
	MaxBackoff    time.Duration
	GraceWindow   time.Duration
	RefreshMargin time.Duration
	CallTimeout   time.Duration
}

type Config struct {
	Instagram   OAuthClient
	Tiktok      OAuthClient
	Google      OAuthClient
	PostgresURI string
	RedisURI    string
	FrontendURL string
	R2          R2
	Engine      Engine
	SecretKey   string
	CookieName  string
}

func LoadConfig() *Config {
	return &Config{
		Instagram: OAuthClient{
			ClientID:     getEnv("INSTAGRAM_CLIENT_ID", ""),
			ClientSecret: getEnv("INSTAGRAM_CLIENT_SECRET", ""),
			RedirectURI:  getEnv("INSTAGRAM_REDIRECT_URI", ""),
		},
		Tiktok: OAuthClient{
			ClientID:     getEnv("TIKTOK_CLIENT_KEY", ""),
			ClientSecret: getEnv("TIKTOK_CLIENT_SECRET", ""),
			RedirectURI:  getEnv("TIKTOK_REDIRECT_URI", ""),
		},
		Google: OAuthClient{
			ClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
			ClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
			RedirectURI:  getEnv("GOOGLE_REDIRECT_URI", ""),
		},
		PostgresURI: getEnv("POSTGRES_URI", ""),
		RedisURI:    getEnv("REDIS_URI", ""),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),
		R2: R2{
			AccountID:  getEnv("R2_ACCOUNT_ID", ""),
			AccessKey:  getEnv("R2_ACCESS_KEY", ""),
			SecretKey:  getEnv("R2_SECRET_KEY", ""),
			BucketName: getEnv("R2_BUCKET_NAME", ""),
			PublicURL:  getEnv("R2_PUBLIC_URL", ""),
		},
		Engine: Engine{
			Workers:       getEnvInt("ENGINE_WORKERS", 10),
			MaxAttempts:   getEnvInt("ENGINE_MAX_ATTEMPTS", 5),
			BaseBackoff:   getEnvDuration("ENGINE_BASE_BACKOFF", 30*time.Second),
			MaxBackoff:    getEnvDuration("ENGINE_MAX_BACKOFF", 15*time.Minute),
			GraceWindow:   getEnvDuration("ENGINE_GRACE_WINDOW", 5*time.Minute),
			RefreshMargin: getEnvDuration("TOKEN_REFRESH_MARGIN", 60*time.Second),
			CallTimeout:   getEnvDuration("OUTBOUND_CALL_TIMEOUT", 2*time.Minute),
		},
		SecretKey:  getEnv("SECRET_KEY", ""),
		CookieName: getEnv("COOKIE_NAME", "postflow_session"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
