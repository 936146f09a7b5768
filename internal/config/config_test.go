package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/lexledger/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.App.Port)
	assert.Equal(t, 24*time.Hour, cfg.Attachments.TempTTL)
	assert.Equal(t, 72*time.Hour, cfg.Attachments.OrphanGrace)
	assert.Equal(t, 20, cfg.Pagination.DefaultLimit)
	assert.Equal(t, 100, cfg.Pagination.MaxLimit)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("ATTACHMENT_TEMP_TTL", "2h")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 2*time.Hour, cfg.Attachments.TempTTL)
	assert.Equal(t, "postgres://lexledger_app:@db.internal:6543/lexledger?sslmode=disable", cfg.ConnectionString())
}

func TestLoad_RejectsDefaultAboveMax(t *testing.T) {
	t.Setenv("PAGE_DEFAULT_LIMIT", "500")

	_, err := config.Load()
	assert.Error(t, err)
}
