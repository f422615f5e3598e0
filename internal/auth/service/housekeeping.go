package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aussiebroadwan/ridebook/internal/auth/metrics"
	"github.com/aussiebroadwan/ridebook/internal/auth/store"
)

// HousekeepingService periodically deletes expired OTP records and
// blacklist entries. Reads never depend on it: expiry is checked on every
// lookup.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
	Interval time.Duration
	Now      func() time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewHousekeepingService creates a housekeeping worker. A non-positive
// interval defaults to 1 hour.
func NewHousekeepingService(st store.Store, logger *slog.Logger, m *metrics.Metrics, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = time.Hour
	}
	return &HousekeepingService{Store: st, Logger: logger, Metrics: m, Interval: interval}
}

// Start sweeps once immediately and then every Interval until Stop.
func (s *HousekeepingService) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Go(func() {
		ticker := time.NewTicker(s.Interval)
		defer ticker.Stop()

		for {
			s.Cleanup(ctx)
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	})
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop cancels the worker and waits for an in-progress sweep to return.
func (s *HousekeepingService) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	s.wg.Wait()
	s.Logger.Info("housekeeping service stopped")
}

type sweep struct {
	table string
	run   func(context.Context, time.Time) (int64, error)
}

// Cleanup runs one pass and returns how many rows it removed. A failure on
// one table does not stop the others.
func (s *HousekeepingService) Cleanup(ctx context.Context) int64 {
	now := clock(s.Now)
	sweeps := []sweep{
		{"otps", s.Store.OTPs().DeleteExpired},
		{"token_blacklist", s.Store.Blacklist().DeleteExpired},
	}

	var total int64
	for _, sw := range sweeps {
		n, err := sw.run(ctx, now)
		if err != nil {
			s.Logger.Error("housekeeping sweep failed", "table", sw.table, "error", err)
			continue
		}
		s.Metrics.HousekeepingDeleted(sw.table, n)
		total += n
	}

	s.Logger.Debug("housekeeping sweep completed", "deleted", total)
	return total
}
