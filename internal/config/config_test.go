package config

import (
	"testing"
	"time"

	"conekta-checkout/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CONEKTA_API_KEY", "key_shared")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, domain.OrderProcessing, cfg.PaidStatus)
	assert.Equal(t, 30*time.Second, cfg.Processor.Timeout)
	assert.Equal(t, "key_shared", cfg.Cash.APIKey)
	assert.Equal(t, "key_shared", cfg.BNPL.APIKey)
	assert.Equal(t, 1, cfg.Cash.ExpirationDays)
	assert.Equal(t, 2, cfg.BNPL.ExpirationDays)
	assert.Equal(t, time.Duration(0), cfg.Reconcile.Interval)
	assert.Equal(t, "/images/cash.png", cfg.Cash.IconURL())
}

func TestLoad_ClampsExpiration(t *testing.T) {
	t.Setenv("CASH_ORDER_EXPIRATION", "90")
	t.Setenv("BNPL_ORDER_EXPIRATION", "-3")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, MaxExpirationDays, cfg.Cash.ExpirationDays)
	assert.Equal(t, MinExpirationDays, cfg.BNPL.ExpirationDays)
}

func TestLoad_GatewayOverrides(t *testing.T) {
	t.Setenv("CONEKTA_API_KEY", "key_shared")
	t.Setenv("BNPL_API_KEY", "key_bnpl")
	t.Setenv("CASH_ENABLED", "false")
	t.Setenv("CASH_ALTERNATE_IMAGE_URL", "https://cdn.example.com/cash.svg")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "key_bnpl", cfg.BNPL.APIKey)
	assert.False(t, cfg.Cash.Enabled)
	assert.Equal(t, "https://cdn.example.com/cash.svg", cfg.Cash.IconURL())
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	t.Setenv("PAID_STATUS", "shipped")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("PAID_STATUS", "completed")
	t.Setenv("CASH_WEBHOOK_URL", "not a url")
	_, err = Load()
	assert.Error(t, err)
}

func TestGatewaySettings_Available(t *testing.T) {
	cash := GatewaySettings{Kind: domain.GatewayCash, Enabled: true, APIKey: "key"}
	bnpl := GatewaySettings{Kind: domain.GatewayBNPL, Enabled: true, APIKey: "key"}

	assert.True(t, cash.Available("MXN"))
	assert.True(t, cash.Available("usd"))
	assert.False(t, cash.Available("EUR"))
	assert.True(t, bnpl.Available("MXN"))
	assert.False(t, bnpl.Available("USD"))

	cash.APIKey = ""
	assert.False(t, cash.Available("MXN"))
	require.Len(t, cash.Problems(), 1)
	assert.Equal(t, "missing api key", cash.Problems()[0].Reason)
}

func TestClampExpirationDays(t *testing.T) {
	assert.Equal(t, 1, ClampExpirationDays(0))
	assert.Equal(t, 7, ClampExpirationDays(7))
	assert.Equal(t, 30, ClampExpirationDays(31))
}
