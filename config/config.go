// Package config loads runtime settings from the environment.
//
// A .env file in the working directory is read first when present; real
// environment variables always win over it. Every setting has a default so a
// bare `go run ./cmd/server` starts against a local SQLite file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/warp/booking-engine/factory"
	"github.com/warp/booking-engine/generic"
	"github.com/warp/booking-engine/hotel"
)

// Store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	HTTPPort    string
	StoreDriver string
	SQLitePath  string
	PostgresDSN string

	// RedisAddr enables the distributed room lock when set.
	RedisAddr     string
	RedisPassword string

	// AMQPURL enables booking event publishing when set.
	AMQPURL string

	JWTSecret string

	Currency          generic.Currency
	TaxPercent        *decimal.Decimal
	SeasonBasis       string
	PaymentTimeout    time.Duration
	NoShowGrace       time.Duration
	SchedulerInterval time.Duration

	// PolicyFile and CatalogFile point at optional JSON documents read by
	// the factory package.
	PolicyFile  string
	CatalogFile string
}

// Load reads .env (if any) and the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("[Config] Warning: could not load .env file: %v", err)
	}

	cfg := Config{
		HTTPPort:      envStr("HTTP_PORT", "8080"),
		StoreDriver:   strings.ToLower(envStr("STORE_DRIVER", DriverSQLite)),
		SQLitePath:    envStr("SQLITE_PATH", "booking.db"),
		PostgresDSN:   envStr("POSTGRES_DSN", ""),
		RedisAddr:     envStr("REDIS_ADDR", ""),
		RedisPassword: envStr("REDIS_PASSWORD", ""),
		AMQPURL:       envStr("AMQP_URL", ""),
		JWTSecret:     envStr("JWT_SECRET", ""),
		Currency:      generic.Currency(strings.ToUpper(envStr("CURRENCY", string(generic.USD)))),
		SeasonBasis:   envStr("SEASON_BASIS", string(hotel.SeasonBasisStay)),
		PolicyFile:    envStr("POLICY_FILE", ""),
		CatalogFile:   envStr("CATALOG_FILE", ""),
	}

	var err error
	if cfg.TaxPercent, err = envDecimal("TAX_RATE"); err != nil {
		return Config{}, err
	}
	def := hotel.DefaultPolicy()
	if cfg.PaymentTimeout, err = envDuration("PAYMENT_TIMEOUT", def.PaymentTimeout); err != nil {
		return Config{}, err
	}
	if cfg.NoShowGrace, err = envDuration("NO_SHOW_GRACE", def.NoShowGrace); err != nil {
		return Config{}, err
	}
	if cfg.SchedulerInterval, err = envDuration("SCHEDULER_INTERVAL", 15*time.Minute); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.StoreDriver {
	case DriverSQLite, DriverMemory:
	case DriverPostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("POSTGRES_DSN is required when STORE_DRIVER=%s", DriverPostgres)
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q (want sqlite, postgres or memory)", c.StoreDriver)
	}
	if _, err := hotel.ParseSeasonBasis(c.SeasonBasis); err != nil {
		return fmt.Errorf("SEASON_BASIS: %w", err)
	}
	if c.SchedulerInterval <= 0 {
		return errors.New("SCHEDULER_INTERVAL must be positive")
	}
	return nil
}

// Policy builds the booking policy: defaults, then the policy file, then the
// individual environment overrides.
func (c Config) Policy() (hotel.Policy, error) {
	f := factory.NewPolicyFactory()
	f.Base.Currency = c.Currency

	if c.PolicyFile != "" {
		data, err := os.ReadFile(c.PolicyFile)
		if err != nil {
			return hotel.Policy{}, fmt.Errorf("failed to read policy file: %w", err)
		}
		p, err := f.ParsePolicy(string(data))
		if err != nil {
			return hotel.Policy{}, err
		}
		f.Base = p
	}

	basis, err := hotel.ParseSeasonBasis(c.SeasonBasis)
	if err != nil {
		return hotel.Policy{}, err
	}
	timeout := c.PaymentTimeout.Seconds()
	grace := c.NoShowGrace.Hours()
	return f.FromJSON(factory.PolicyJSON{
		TaxPercent:            c.TaxPercent,
		SeasonBasis:           string(basis),
		PaymentTimeoutSeconds: &timeout,
		NoShowGraceHours:      &grace,
	})
}

// =============================================================================
// ENV HELPERS
// =============================================================================

func envStr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := envStr(key, "")
	if v == "" {
		return def, nil
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d, nil
	}
	// bare numbers are seconds
	secs, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q", key, v)
	}
	return time.Duration(secs * float64(time.Second)), nil
}

// envDecimal returns nil when the variable is unset.
func envDecimal(key string) (*decimal.Decimal, error) {
	v := envStr(key, "")
	if v == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(strings.TrimSuffix(v, "%"))
	if err != nil {
		return nil, fmt.Errorf("%s: invalid number %q", key, v)
	}
	return &d, nil
}
