package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("NEXT_PUBLIC_SITE_URL", "")
	t.Setenv("CORS_ORIGINS", "")
	t.Setenv("UPSTREAM_TIMEOUT", "")
	t.Setenv("SPFV_API_URL", "https://pricing.example.com/")
	t.Setenv("SENTRY_DSN", "")
	t.Setenv("APP_ENV", "")

	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "http://localhost:3000", cfg.SiteURL)
	assert.Equal(t, cfg.SiteURL, cfg.CORSOrigins)
	assert.Equal(t, "https://pricing.example.com", cfg.SPFVAPIURL)
	assert.Equal(t, 15*time.Second, cfg.UpstreamTimeout)
	assert.Equal(t, 5*time.Hour, cfg.SymbolListCacheTTL)
	assert.Equal(t, "https://www.alphavantage.co/query", cfg.AlphaVantageAPIURL)
	assert.Empty(t, cfg.SentryDSN)
	assert.Equal(t, "development", cfg.AppEnv)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("NEXT_PUBLIC_SITE_URL", "https://app.example.com/")
	t.Setenv("CORS_ORIGINS", "*")
	t.Setenv("UPSTREAM_TIMEOUT", "3s")
	t.Setenv("SUBSCRIPTION_CACHE_TTL", "not-a-duration")
	t.Setenv("SENTRY_DSN", "https://key@o1.ingest.sentry.io/2")
	t.Setenv("APP_ENV", "production")

	cfg := Load()

	assert.Equal(t, "https://app.example.com", cfg.SiteURL)
	assert.Equal(t, "*", cfg.CORSOrigins)
	assert.Equal(t, 3*time.Second, cfg.UpstreamTimeout)
	assert.Equal(t, time.Minute, cfg.SubscriptionCacheTTL)
	assert.Equal(t, "https://key@o1.ingest.sentry.io/2", cfg.SentryDSN)
	assert.Equal(t, "production", cfg.AppEnv)
}

func TestDSN(t *testing.T) {
	cfg := &Config{DBHost: "db", DBUser: "u", DBPassword: "p", DBName: "n", DBPort: "5432", DBSSLMode: "disable"}
	assert.Equal(t, "host=db user=u password=p dbname=n port=5432 sslmode=disable TimeZone=UTC", cfg.DSN())
}
