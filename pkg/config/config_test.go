package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig_Defaults(t *testing.T) {
	for _, key := range []string{"APP_PORT", "DB_NAME", "REDIS_ADDRESS", "SESSION_TTL", "OTEL_SERVICE_NAME", "OTEL_EXPORTER_OTLP_INSECURE"} {
		t.Setenv(key, "")
	}

	cfg := LoadConfig()

	assert.Equal(t, "8080", cfg.AppPort)
	assert.Equal(t, "cartpool", cfg.DBName)
	assert.Equal(t, "localhost:6379", cfg.RedisAddress)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, "cartpool-api", cfg.OTELServiceName)
	assert.True(t, cfg.OTELExporterOTLPInsecure)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("SESSION_TTL", "90m")
	t.Setenv("OTEL_EXPORTER_OTLP_INSECURE", "false")

	cfg := LoadConfig()

	assert.Equal(t, "9090", cfg.AppPort)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.Equal(t, 90*time.Minute, cfg.SessionTTL)
	assert.False(t, cfg.OTELExporterOTLPInsecure)
}

func TestLoadConfig_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("REDIS_DB", "first")
	t.Setenv("SESSION_TTL", "-5m")

	cfg := LoadConfig()

	assert.Equal(t, 0, cfg.RedisDB)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
}

func TestGetDSN(t *testing.T) {
	cfg := &Config{DBUser: "pool", DBPassword: "secret", DBHost: "db", DBPort: "3307", DBName: "cartpool"}
	assert.Equal(t, "pool:secret@tcp(db:3307)/cartpool?parseTime=true&charset=utf8mb4", cfg.GetDSN())
}
