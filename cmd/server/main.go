/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the card ledger server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (defaults, optional YAML, CARDLEDGER_* env)
  2. Initialize logger and metrics
  3. Open the store (memory, sqlite or postgres; migrations run on open)
  4. Build the price catalog (static JSON file or HTTP price service)
  5. Build the event bus (optionally forwarding to NATS)
  6. Create service, handler, router and snapshot scheduler
  7. Start server with graceful shutdown

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the snapshot scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Drain the event bus and close the store
  5. Exit

EXAMPLES:
  # Run with file database
  CARDLEDGER_DB_PATH=./data/cards.db ./server

  # Run in memory with a static price file
  CARDLEDGER_STORE_DRIVER=memory CARDLEDGER_PRICES_FILE=prices.json ./server

  # Run against postgres, publishing events to NATS
  CARDLEDGER_STORE_DRIVER=postgres \
  CARDLEDGER_POSTGRES_DSN=postgres://localhost/cards?sslmode=disable \
  CARDLEDGER_NATS_URL=nats://localhost:4222 ./server

SEE ALSO:
  - config/config.go: All settings
  - api/server.go: Router configuration
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/card-ledger/api"
	"github.com/warp/card-ledger/catalog"
	"github.com/warp/card-ledger/config"
	"github.com/warp/card-ledger/events"
	"github.com/warp/card-ledger/logger"
	"github.com/warp/card-ledger/metrics"
	"github.com/warp/card-ledger/service"
	"github.com/warp/card-ledger/store"
	"github.com/warp/card-ledger/store/memory"
	"github.com/warp/card-ledger/store/postgres"
	"github.com/warp/card-ledger/store/sqlite"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	if err := logger.Init(); err != nil {
		return err
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		return err
	}
	log := logger.Named("server")

	m := metrics.NewManager()

	st, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	src, err := openCatalog(cfg, m)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}

	busOpts := []events.BusOption{
		events.WithMetrics(m),
		events.WithLogger(logger.Named("events")),
	}
	if cfg.NATSURL != "" {
		up, err := events.NewNATSUpstream(cfg.NATSURL, cfg.NATSSubject)
		if err != nil {
			return fmt.Errorf("connect nats: %w", err)
		}
		busOpts = append(busOpts, events.WithUpstream(up))
		log.Info(ctx, "publishing events to nats", logger.String("subject", cfg.NATSSubject))
	}
	bus := events.NewBus(busOpts...)
	defer bus.Close()

	svc := service.New(st,
		service.WithCatalog(src),
		service.WithEvents(bus),
		service.WithMetrics(m),
		service.WithLogger(logger.Named("service")),
		service.WithTradeLimits(cfg.TradeLimits()),
		service.WithCurrency(cfg.Currency),
	)

	handler := api.NewHandler(svc, bus, logger.Named("api"))
	router := api.NewRouter(handler, api.RouterOptions{
		AllowedOrigins: cfg.AllowedOrigins(),
		Metrics:        m,
		Logger:         logger.Named("http"),
	})

	scheduler := api.NewSnapshotScheduler(svc, logger.Get())
	if cfg.SnapshotInterval > 0 {
		scheduler.Interval = cfg.SnapshotInterval
	} else {
		scheduler.Enabled = false
	}
	scheduler.Start()

	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "server starting",
			logger.String("addr", cfg.Addr),
			logger.String("store", cfg.StoreDriver))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serveErr:
		if err != nil {
			scheduler.Stop()
			return fmt.Errorf("serve: %w", err)
		}
	}

	log.Info(ctx, "shutting down server")
	scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	log.Info(ctx, "server stopped")
	return nil
}

func openStore(ctx context.Context, cfg *config.Config) (store.TxStore, error) {
	switch cfg.StoreDriver {
	case config.DriverMemory:
		return memory.New(), nil
	case config.DriverPostgres:
		return postgres.New(ctx, cfg.PostgresDSN)
	default:
		return sqlite.New(cfg.DBPath)
	}
}

func openCatalog(cfg *config.Config, m *metrics.Manager) (catalog.Source, error) {
	if cfg.PriceAPIURL != "" {
		return catalog.NewHTTPSource(cfg.PriceAPIURL,
			catalog.WithRateLimit(cfg.PriceRequestsPerSecond, 1),
			catalog.WithMetrics(m),
			catalog.WithLogger(logger.Named("catalog")),
		), nil
	}
	if cfg.PricesFile != "" {
		return catalog.LoadStatic(cfg.PricesFile)
	}
	return catalog.NewStatic(nil, nil), nil
}
