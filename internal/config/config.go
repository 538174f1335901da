package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Redis (optional, caching is skipped when empty)
	RedisURL string

	// Supabase session tokens (HS256)
	SupabaseJWTSecret string

	// Pricing upstreams
	SPFVAPIURL           string
	AlphaVantageAPIKey   string
	AlphaVantageAPIURL   string
	UpstreamTimeout      time.Duration
	SymbolListCacheTTL   time.Duration
	SubscriptionCacheTTL time.Duration

	// Stripe
	StripeSecretKey     string
	StripeWebhookSecret string

	// Server
	Port        string
	SiteURL     string
	CORSOrigins string
	LogLevel    string

	// Error tracking (disabled when SentryDSN is empty)
	SentryDSN string
	AppEnv    string
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present.
func Load() *Config {
	_ = godotenv.Load()

	siteURL := strings.TrimRight(getEnv("NEXT_PUBLIC_SITE_URL", "http://localhost:3000"), "/")

	return &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "spfv"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		RedisURL: getEnv("REDIS_URL", ""),

		SupabaseJWTSecret: getEnv("SUPABASE_JWT_SECRET", ""),

		SPFVAPIURL:           strings.TrimRight(getEnv("SPFV_API_URL", ""), "/"),
		AlphaVantageAPIKey:   getEnv("ALPHA_VANTAGE_API_KEY", ""),
		AlphaVantageAPIURL:   getEnv("ALPHA_VANTAGE_API_URL", "https://www.alphavantage.co/query"),
		UpstreamTimeout:      parseDuration(getEnv("UPSTREAM_TIMEOUT", "15s"), 15*time.Second),
		SymbolListCacheTTL:   parseDuration(getEnv("SYMBOL_LIST_CACHE_TTL", "5h"), 5*time.Hour),
		SubscriptionCacheTTL: parseDuration(getEnv("SUBSCRIPTION_CACHE_TTL", "60s"), time.Minute),

		StripeSecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),

		Port:        getEnv("PORT", "8080"),
		SiteURL:     siteURL,
		CORSOrigins: getEnv("CORS_ORIGINS", siteURL),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		SentryDSN: getEnv("SENTRY_DSN", ""),
		AppEnv:    getEnv("APP_ENV", "development"),
	}
}

func (c *Config) DSN() string {
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=" + c.DBSSLMode +
		" TimeZone=UTC"
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
