package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/booking-engine/generic"
	"github.com/warp/booking-engine/hotel"
)

var keys = []string{
	"HTTP_PORT", "STORE_DRIVER", "SQLITE_PATH", "POSTGRES_DSN", "REDIS_ADDR",
	"REDIS_PASSWORD", "AMQP_URL", "JWT_SECRET", "CURRENCY",
	"TAX_RATE", "SEASON_BASIS", "PAYMENT_TIMEOUT", "NO_SHOW_GRACE",
	"SCHEDULER_INTERVAL", "POLICY_FILE", "CATALOG_FILE",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, DriverSQLite, cfg.StoreDriver)
	assert.Equal(t, generic.USD, cfg.Currency)
	assert.Nil(t, cfg.TaxPercent)
	assert.Equal(t, 15*time.Minute, cfg.SchedulerInterval)

	policy, err := cfg.Policy()
	require.NoError(t, err)
	def := hotel.DefaultPolicy()
	assert.True(t, policy.TaxRate.Value.Equal(def.TaxRate.Value))
	assert.Equal(t, def.PaymentTimeout, policy.PaymentTimeout)
	assert.Equal(t, def.Fees, policy.Fees)
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORE_DRIVER", "Memory")
	t.Setenv("CURRENCY", "eur")
	t.Setenv("TAX_RATE", "8.5%")
	t.Setenv("SEASON_BASIS", "booking")
	t.Setenv("PAYMENT_TIMEOUT", "2.5")
	t.Setenv("NO_SHOW_GRACE", "6h")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, cfg.StoreDriver)

	policy, err := cfg.Policy()
	require.NoError(t, err)
	assert.Equal(t, generic.EUR, policy.Currency)
	assert.Equal(t, "0.085", policy.TaxRate.String())
	assert.Equal(t, hotel.SeasonBasisBooking, policy.SeasonBasis)
	assert.Equal(t, 2500*time.Millisecond, policy.PaymentTimeout)
	assert.Equal(t, 6*time.Hour, policy.NoShowGrace)
}

func TestLoad_Rejects(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"unknown driver", "STORE_DRIVER", "mongo"},
		{"postgres without dsn", "STORE_DRIVER", "postgres"},
		{"bad duration", "PAYMENT_TIMEOUT", "soon"},
		{"bad tax", "TAX_RATE", "twelve"},
		{"bad basis", "SEASON_BASIS", "lunar"},
		{"zero interval", "SCHEDULER_INTERVAL", "0s"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestPolicy_FileThenEnv(t *testing.T) {
	clearEnv(t)

	// GIVEN: a policy file with custom fees and tax
	path := filepath.Join(t.TempDir(), "policy.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"tax_percent": 10,
		"cancellation_fees": [{"more_than_hours": 72, "percent": 0}],
		"otherwise_percent": 100
	}`), 0o600))
	t.Setenv("POLICY_FILE", path)
	// AND: an environment tax override
	t.Setenv("TAX_RATE", "7")

	cfg, err := Load()
	require.NoError(t, err)

	// WHEN
	policy, err := cfg.Policy()
	require.NoError(t, err)

	// THEN: the env wins for tax, the file supplies the fees
	assert.Equal(t, "0.07", policy.TaxRate.String())
	require.Len(t, policy.Fees.Tiers, 1)
	assert.Equal(t, "1", policy.Fees.Otherwise.String())
}

func TestPolicy_MissingFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("POLICY_FILE", filepath.Join(t.TempDir(), "nope.json"))

	cfg, err := Load()
	require.NoError(t, err)
	_, err = cfg.Policy()
	assert.Error(t, err)
}
