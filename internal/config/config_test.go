package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost:5432/analytics?sslmode=disable")
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.AppEnv)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "content.analytics", cfg.RabbitExchange)
	assert.Equal(t, "analytics-service.interactions", cfg.RabbitQueue)
	assert.Equal(t, "", cfg.WebhookURL)
	assert.Equal(t, 5*time.Second, cfg.WebhookTimeout)
	assert.True(t, cfg.RLEnabled)
	assert.Equal(t, 100, cfg.RLLimit)
	assert.Equal(t, time.Minute, cfg.RLWindow)
}

func TestLoadMissingDatabase(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("POSTGRES_ADDR", "")
	t.Setenv("POSTGRES_USER", "")
	t.Setenv("POSTGRES_DB", "")
	t.Setenv("JWT_SECRET", "test-secret")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database")
}

func TestLoadMissingJWTSecret(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost:5432/analytics")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestBuildPostgresURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("POSTGRES_ADDR", "db:5432")
	t.Setenv("POSTGRES_USER", "analytics")
	t.Setenv("POSTGRES_PASSWORD", "p@ss/word")
	t.Setenv("POSTGRES_DB", "analytics")
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Contains(t, cfg.DBDSN, "postgres://")
	assert.Contains(t, cfg.DBDSN, "db:5432")
	assert.Contains(t, cfg.DBDSN, "sslmode=disable")
}

func TestWebhookTimeoutOverride(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost:5432/analytics")
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("ANALYTICS_WEBHOOK_URL", "http://collector.internal/hook")
	t.Setenv("ANALYTICS_WEBHOOK_TIMEOUT", "2s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://collector.internal/hook", cfg.WebhookURL)
	assert.Equal(t, 2*time.Second, cfg.WebhookTimeout)
}
