package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("APP_PORT", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.False(t, cfg.UsesPostgres())
	assert.False(t, cfg.UsesRedis())
	assert.Equal(t, 5*time.Second, cfg.LockWait)
	assert.Equal(t, "lotkeeper.events", cfg.OutboxChannel)

	eng := cfg.Engine()
	assert.Equal(t, 30, eng.Sale.DeferredTermDays)
	assert.False(t, eng.Sale.AllowNegativeStock)
	assert.True(t, eng.Purchase.DefaultMarginPercent.IsZero())
	assert.Equal(t, "V", eng.Sale.Numbering.Prefix)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("APP_PORT", "9090")
	t.Setenv("DATABASE_URL", "postgres://lotkeeper@localhost/lotkeeper")
	t.Setenv("DB_MAX_CONNS", "4")
	t.Setenv("ALLOW_NEGATIVE_STOCK", "true")
	t.Setenv("DEFAULT_MARGIN_PERCENT", "35.5")
	t.Setenv("LOCK_WAIT", "750ms")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.True(t, cfg.UsesPostgres())
	assert.Equal(t, int32(4), cfg.Pool().MaxConns)
	assert.Equal(t, int32(2), cfg.Pool().MinConns)
	assert.Equal(t, 750*time.Millisecond, cfg.LockWait)

	eng := cfg.Engine()
	assert.True(t, eng.Sale.AllowNegativeStock)
	assert.Equal(t, "35.5", eng.Purchase.DefaultMarginPercent.String())
}

func TestLoad_RejectsBadMargin(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DEFAULT_MARGIN_PERCENT", "-3")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DEFAULT_MARGIN_PERCENT")
}
