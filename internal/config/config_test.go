package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("DEADLINE_SCAN_CRON", "")
	t.Setenv("TOKEN_EXPIRY", "")

	cfg := LoadConfig()
	assert.Equal(t, "8080", cfg.Port)
	assert.Empty(t, cfg.RedisAddr)
	assert.Empty(t, cfg.DeadlineScanCron)
	assert.Equal(t, 24*time.Hour, cfg.TokenExpiry)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("TOKEN_EXPIRY", "2h")
	t.Setenv("LOGIN_RATE_PER_SEC", "0.5")
	t.Setenv("LOGIN_RATE_BURST", "not-a-number")

	cfg := LoadConfig()
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.Equal(t, 2*time.Hour, cfg.TokenExpiry)
	assert.Equal(t, 0.5, cfg.LoginRatePerSec)
	assert.Equal(t, 5, cfg.LoginRateBurst)
}
