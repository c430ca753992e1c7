/*
scheduler.go - Periodic value snapshots

PURPOSE:
  Records a value snapshot for every collector on a fixed interval so the
  value history fills in without clients having to ask for it.

DESIGN:
  - Runs a background goroutine with configurable interval
  - Runs once immediately on start
  - A failing collector is logged and skipped; the others still snapshot

CONFIGURATION:
  - Interval: How often to snapshot (default: 24 hours)
  - Enabled:  Whether the scheduler is active (default: true)

USAGE:
  scheduler := NewSnapshotScheduler(svc, log)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: TakeSnapshot endpoint (manual snapshot)
  - service/valuation.go: SnapshotAll
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/warp/card-ledger/logger"
	"github.com/warp/card-ledger/service"
)

// SnapshotScheduler takes value snapshots on an interval.
type SnapshotScheduler struct {
	Service  *service.Service
	Interval time.Duration
	Enabled  bool

	log    logger.Logger
	ticker *time.Ticker
	stop   chan struct{}
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewSnapshotScheduler creates a new scheduler.
func NewSnapshotScheduler(svc *service.Service, log logger.Logger) *SnapshotScheduler {
	if log == nil {
		log = logger.Nop()
	}
	return &SnapshotScheduler{
		Service:  svc,
		Interval: 24 * time.Hour,
		Enabled:  true,
		log:      log.Named("scheduler"),
	}
}

// Start begins the scheduler. Calling Start twice is a no-op.
func (s *SnapshotScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx := context.Background()
	if !s.Enabled {
		s.log.Info(ctx, "snapshot scheduler disabled")
		return
	}
	if s.ticker != nil {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.stop = make(chan struct{})
	s.ticker = time.NewTicker(s.Interval)
	s.wg.Add(1)

	go s.run(runCtx)

	s.log.Info(ctx, "snapshot scheduler started", logger.Duration("interval", s.Interval))
}

// Stop stops the scheduler and waits for an in-flight run to finish.
func (s *SnapshotScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker == nil {
		return
	}
	s.ticker.Stop()
	s.cancel()
	close(s.stop)
	s.wg.Wait()
	s.ticker = nil
	s.log.Info(context.Background(), "snapshot scheduler stopped")
}

func (s *SnapshotScheduler) run(ctx context.Context) {
	defer s.wg.Done()

	s.RunOnce(ctx)

	for {
		select {
		case <-s.ticker.C:
			s.RunOnce(ctx)
		case <-s.stop:
			return
		}
	}
}

// RunOnce snapshots every collector now and returns how many succeeded.
func (s *SnapshotScheduler) RunOnce(ctx context.Context) int {
	start := time.Now()
	n, err := s.Service.SnapshotAll(ctx)
	if err != nil {
		s.log.Error(ctx, "snapshot run failed", logger.Error(err))
		return n
	}
	s.log.Info(ctx, "snapshot run completed",
		logger.Int("collectors", n),
		logger.Duration("duration", time.Since(start)),
	)
	return n
}
