// Package config defines the server configuration and how it is loaded.
//
// Values are layered, lowest precedence first:
//  1. defaults from New()
//  2. a YAML file named by CARDLEDGER_CONFIG
//  3. environment variables prefixed CARDLEDGER_ (CARDLEDGER_STORE_DRIVER -> store_driver)
package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/warp/card-ledger/logger"
	"github.com/warp/card-ledger/trade"
	"github.com/warp/card-ledger/valuation"
)

const (
	envPrefix  = "CARDLEDGER_"
	envFileVar = "CARDLEDGER_CONFIG"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr is the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// StoreDriver selects the ledger backend: memory, sqlite or postgres.
	StoreDriver string `koanf:"store_driver"`
	DBPath      string `koanf:"db_path"`
	PostgresDSN string `koanf:"postgres_dsn"`

	// PricesFile is a JSON catalog used when PriceAPIURL is empty.
	PricesFile string `koanf:"prices_file"`

	// PriceAPIURL points at an HTTP price/catalog service.
	PriceAPIURL string `koanf:"price_api_url"`

	// PriceRequestsPerSecond throttles calls to PriceAPIURL.
	PriceRequestsPerSecond float64 `koanf:"price_requests_per_second"`

	// NATSURL enables publishing activity events upstream when set.
	NATSURL     string `koanf:"nats_url"`
	NATSSubject string `koanf:"nats_subject"`

	// SnapshotInterval is how often every collector's value is recorded.
	// Zero disables the scheduler.
	SnapshotInterval time.Duration `koanf:"snapshot_interval"`

	// Currency is the ISO 4217 code used to display values.
	Currency string `koanf:"currency"`

	// CORSOrigins is a comma-separated allow list.
	CORSOrigins string `koanf:"cors_origins"`

	MaxLinesPerSide    int `koanf:"max_lines_per_side"`
	MaxQuantityPerLine int `koanf:"max_quantity_per_line"`
	MaxPartnerLength   int `koanf:"max_partner_length"`
}

// New returns a Config populated with defaults.
func New() *Config {
	limits := trade.DefaultLimits()
	return &Config{
		LogLevel:               "info",
		Addr:                   ":8080",
		StoreDriver:            DriverSQLite,
		DBPath:                 "cardledger.db",
		PriceRequestsPerSecond: 10,
		NATSSubject:            "cardledger.events",
		SnapshotInterval:       6 * time.Hour,
		Currency:               valuation.DefaultCurrency,
		CORSOrigins:            "*",
		MaxLinesPerSide:        limits.MaxLinesPerSide,
		MaxQuantityPerLine:     limits.MaxQuantityPerLine,
		MaxPartnerLength:       limits.MaxPartnerLength,
	}
}

// Load builds a Config by layering defaults, the optional YAML file and
// environment variables, then validates it.
func Load(_ context.Context) (*Config, error) {
	k := koanf.New(".")

	if path := os.Getenv(envFileVar); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrLoadConfig, path, err)
		}
	}

	// CARDLEDGER_MAX_LINES_PER_SIDE -> max_lines_per_side; underscores stay
	// so keys match the flat koanf tags.
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %v", ErrLoadConfig, err)
	}

	cfg := New()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return invalid("addr must not be empty")
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return invalid(err.Error())
	}
	switch c.StoreDriver {
	case DriverMemory:
	case DriverSQLite:
		if c.DBPath == "" {
			return invalid("db_path is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.PostgresDSN == "" {
			return invalid("postgres_dsn is required for the postgres driver")
		}
	default:
		return invalid(fmt.Sprintf("unknown store_driver %q", c.StoreDriver))
	}
	if c.PriceAPIURL != "" && c.PriceRequestsPerSecond <= 0 {
		return invalid("price_requests_per_second must be positive")
	}
	if c.SnapshotInterval < 0 {
		return invalid("snapshot_interval must not be negative")
	}
	if !valuation.IsKnownCurrency(c.Currency) {
		return invalid(fmt.Sprintf("unknown currency %q", c.Currency))
	}
	if c.MaxLinesPerSide <= 0 || c.MaxQuantityPerLine <= 0 || c.MaxPartnerLength <= 0 {
		return invalid("trade limits must be positive")
	}
	return nil
}

// TradeLimits returns the configured trade size caps.
func (c *Config) TradeLimits() trade.Limits {
	return trade.Limits{
		MaxLinesPerSide:    c.MaxLinesPerSide,
		MaxQuantityPerLine: c.MaxQuantityPerLine,
		MaxPartnerLength:   c.MaxPartnerLength,
	}
}

// AllowedOrigins splits CORSOrigins, dropping blanks.
func (c *Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
