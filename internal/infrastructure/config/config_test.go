package config

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("IDP_SECRET", "idp")

	cfg, err := Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, "Restaurant Name", cfg.RestaurantName)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 5*time.Minute, cfg.Voucher.FreshnessWindow)
	assert.True(t, cfg.Voucher.ReplayProtection)
	assert.False(t, cfg.Reward.Issuance)
	assert.Equal(t, 300*time.Millisecond, cfg.Scanner.Interval)
	assert.Equal(t, 2*time.Second, cfg.Scanner.Debounce)
	assert.Equal(t, "ravintola", cfg.Mongo.Database)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("IDP_SECRET", "idp")
	t.Setenv("VOUCHER_FRESHNESS_WINDOW", "90s")
	t.Setenv("VOUCHER_REPLAY_PROTECTION", "false")
	t.Setenv("REWARD_ISSUANCE", "true")
	t.Setenv("ENV", "production")

	cfg, err := Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 90*time.Second, cfg.Voucher.FreshnessWindow)
	assert.False(t, cfg.Voucher.ReplayProtection)
	assert.True(t, cfg.Reward.Issuance)
	assert.False(t, cfg.IsDevelopment())
}

func TestLoad_RequiresIdentityKey(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("IDP_SECRET", "")
	t.Setenv("IDP_PUBLIC_KEY", "")

	_, err := Load(context.Background())
	assert.Error(t, err)
}

func TestLoadKiosk(t *testing.T) {
	t.Setenv("KIOSK_API_URL", "http://kiosk.local:9000")

	cfg, err := LoadKiosk(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "http://kiosk.local:9000", cfg.APIURL)
	assert.Equal(t, 300*time.Millisecond, cfg.Scanner.Interval)
}
