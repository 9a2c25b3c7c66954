package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("NOTIFICATION_RETENTION", "48h")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, 48*time.Hour, cfg.NotificationRetention)
	assert.Contains(t, cfg.DatabaseDSN(), "sslmode=disable")
}

func TestLoadRejectsBadRetention(t *testing.T) {
	t.Setenv("NOTIFICATION_RETENTION", "ninety days")

	_, err := Load()
	assert.Error(t, err)
}
