package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/warp/card-ledger/config"
	"github.com/warp/card-ledger/trade"
)

var configEnvVars = []string{
	"CARDLEDGER_CONFIG",
	"CARDLEDGER_ADDR",
	"CARDLEDGER_STORE_DRIVER",
	"CARDLEDGER_POSTGRES_DSN",
	"CARDLEDGER_MAX_LINES_PER_SIDE",
	"CARDLEDGER_SNAPSHOT_INTERVAL",
	"CARDLEDGER_CURRENCY",
	"CARDLEDGER_LOG_LEVEL",
}

func clearConfigEnvVars() {
	for _, k := range configEnvVars {
		_ = os.Unsetenv(k)
	}
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cardledger.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		convey.Convey("When loading with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then defaults are used", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.StoreDriver, convey.ShouldEqual, config.DriverSQLite)
				convey.So(cfg.Currency, convey.ShouldEqual, "USD")
				convey.So(cfg.SnapshotInterval, convey.ShouldEqual, 6*time.Hour)
				convey.So(cfg.TradeLimits(), convey.ShouldResemble, trade.DefaultLimits())
			})
		})

		convey.Convey("When environment variables are set", func() {
			_ = os.Setenv("CARDLEDGER_ADDR", ":9999")
			_ = os.Setenv("CARDLEDGER_STORE_DRIVER", "memory")
			_ = os.Setenv("CARDLEDGER_MAX_LINES_PER_SIDE", "20")
			_ = os.Setenv("CARDLEDGER_SNAPSHOT_INTERVAL", "15m")

			cfg, err := config.Load(ctx)

			convey.Convey("Then they override defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9999")
				convey.So(cfg.StoreDriver, convey.ShouldEqual, config.DriverMemory)
				convey.So(cfg.MaxLinesPerSide, convey.ShouldEqual, 20)
				convey.So(cfg.SnapshotInterval, convey.ShouldEqual, 15*time.Minute)
			})
		})

		convey.Convey("When a YAML file is provided", func() {
			path := writeConfigFile(t, `
addr: ":7070"
store_driver: postgres
postgres_dsn: "postgres://localhost/cards?sslmode=disable"
currency: EUR
cors_origins: "https://a.example, https://b.example"
`)
			_ = os.Setenv("CARDLEDGER_CONFIG", path)
			_ = os.Setenv("CARDLEDGER_ADDR", ":7171")

			cfg, err := config.Load(ctx)

			convey.Convey("Then file values apply and env still wins", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7171")
				convey.So(cfg.StoreDriver, convey.ShouldEqual, config.DriverPostgres)
				convey.So(cfg.Currency, convey.ShouldEqual, "EUR")
				convey.So(cfg.AllowedOrigins(), convey.ShouldResemble, []string{"https://a.example", "https://b.example"})
			})
		})

		convey.Convey("When the file does not exist", func() {
			_ = os.Setenv("CARDLEDGER_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

			_, err := config.Load(ctx)

			convey.Convey("Then a load error is returned", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When postgres is selected without a DSN", func() {
			_ = os.Setenv("CARDLEDGER_STORE_DRIVER", "postgres")

			_, err := config.Load(ctx)

			convey.Convey("Then validation fails", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the currency is unknown", func() {
			_ = os.Setenv("CARDLEDGER_CURRENCY", "ZZZ")

			_, err := config.Load(ctx)

			convey.Convey("Then validation fails", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}

func TestValidate(t *testing.T) {
	convey.Convey("Given default config", t, func() {
		cfg := config.New()

		convey.Convey("Then it is valid", func() {
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("When the driver is unknown", func() {
			cfg.StoreDriver = "mongo"
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When the log level is unknown", func() {
			cfg.LogLevel = "chatty"
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When a trade limit is zero", func() {
			cfg.MaxPartnerLength = 0
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})
	})
}
