package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadRateLimitConfigDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	cfg := LoadRateLimitConfig()
	assert.True(t, cfg.Enabled)
	assert.Equal(t, 60, cfg.Capacity)
	assert.Equal(t, time.Second, cfg.RefillInterval)
	assert.Equal(t, "ip_user_route", cfg.KeyStrategy)
}

func TestLoadRateLimitConfigDevBypass(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	assert.False(t, LoadRateLimitConfig().Enabled)

	t.Setenv("RATE_LIMIT_IN_DEV", "true")
	assert.True(t, LoadRateLimitConfig().Enabled)
}

func TestLoadRateLimitConfigClampsTTL(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	t.Setenv("RATE_LIMIT_REFILL_EVERY", "1m")
	t.Setenv("RATE_LIMIT_TTL", "10s")
	t.Setenv("RATE_LIMIT_BURST", "5")
	cfg := LoadRateLimitConfig()
	assert.Equal(t, 5, cfg.Capacity)
	assert.Equal(t, 1, cfg.RefillTokens)
	assert.Equal(t, time.Minute, cfg.RefillInterval)
	assert.Equal(t, 5*time.Minute, cfg.TTL)
}

func TestLoadCacheConfig(t *testing.T) {
	t.Setenv("CACHE_METHODS", "get, head")
	t.Setenv("CACHE_TTL", "bogus")
	cfg := LoadCacheConfig()
	assert.True(t, cfg.Methods["GET"])
	assert.True(t, cfg.Methods["HEAD"])
	assert.Equal(t, 30*time.Second, cfg.TTL)
}

func TestLoad(t *testing.T) {
	for k, v := range map[string]string{
		"APP_ENV": "test", "APP_PORT": "8080", "DB_USER": "loyalty", "DB_HOST": "db",
		"DB_PORT": "3306", "DB_NAME": "loyalty", "JWT_SECRET": "s3cret",
		"ACCESS_TOKEN_TTL_MIN": "15", "REFRESH_TOKEN_TTL_DAYS": "7", "BCRYPT_COST": "4",
		"POINTS_CURRENCY_UNIT": "5000",
	} {
		t.Setenv(k, v)
	}
	cfg := Load()
	assert.Equal(t, "8080", cfg.Port)
	assert.EqualValues(t, 5000, cfg.PointsCurrencyUnit)
	assert.EqualValues(t, 0, cfg.SignupBonusPoints)
	assert.Equal(t, "uploads", cfg.UploadDir)
	assert.True(t, cfg.DBAutoMigrate)
	assert.False(t, cfg.IsProd())
}
