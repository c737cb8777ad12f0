package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, "learning_platform", cfg.DBName)
	assert.Equal(t, 72*time.Hour, cfg.JWTTTL)
	assert.Equal(t, 48*time.Hour, cfg.ReminderAfter)
	assert.Equal(t, "/files/", cfg.PublicFilesURL)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("JWT_TTL", "15m")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("REMINDER_AFTER", "24h")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.ServerPort)
	assert.Equal(t, 15*time.Minute, cfg.JWTTTL)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.Equal(t, 24*time.Hour, cfg.ReminderAfter)
}

func TestValidate(t *testing.T) {
	cfg := &Config{JWTSecret: "x", JWTTTL: time.Hour, MaxUploadMB: 1}
	assert.NoError(t, cfg.validate())

	cfg.JWTSecret = ""
	assert.Error(t, cfg.validate())

	cfg = &Config{JWTSecret: "x", JWTTTL: 0, MaxUploadMB: 1}
	assert.Error(t, cfg.validate())
}

func TestDSN(t *testing.T) {
	cfg := &Config{DBHost: "db", DBUser: "u", DBPassword: "p", DBName: "n", DBPort: "5433", DBSSLMode: "disable"}
	assert.Equal(t, "host=db user=u password=p dbname=n port=5433 sslmode=disable TimeZone=UTC", cfg.DSN())
}
