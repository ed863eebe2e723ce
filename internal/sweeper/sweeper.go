// Package sweeper periodically finalizes auctions whose deadline has passed.
// Finalization is open to anyone, so the service sweeps on behalf of absent
// creators and bidders.
package sweeper

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/landgrid/landmarket/internal/clock"
	"github.com/landgrid/landmarket/internal/model"
)

// Finalizer is the marketplace surface the sweeper drives.
type Finalizer interface {
	ExpiredAuctions(now time.Time) []uint64
	EndAuction(caller model.Address, lotID uint64) error
}

// Config holds sweeper settings.
type Config struct {
	Interval time.Duration // Sweep interval
	Actor    model.Address // Recorded as the finalizing caller in events
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(actor model.Address) Config {
	return Config{
		Interval: 5 * time.Second,
		Actor:    actor,
	}
}

// Sweeper is the background finalization loop.
type Sweeper struct {
	cfg    Config
	market Finalizer
	clk    clock.Clock
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a sweeper.
func New(cfg Config, market Finalizer, clk clock.Clock, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		cfg:    cfg,
		market: market,
		clk:    clk,
		logger: logger,
	}
}

// Start begins the sweep loop.
func (s *Sweeper) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go s.run()

	s.logger.Info("auction sweeper started", "interval", s.cfg.Interval)
	return nil
}

// Stop gracefully shuts down the sweeper.
func (s *Sweeper) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("auction sweeper stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Sweeper) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	// Sweep immediately on start.
	s.Sweep()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// Sweep finalizes every expired live lot once. A lot that was finalized or
// cancelled between listing and ending is skipped without fuss.
func (s *Sweeper) Sweep() int {
	expired := s.market.ExpiredAuctions(s.clk.Now())
	finalized := 0
	for _, lotID := range expired {
		if err := s.market.EndAuction(s.cfg.Actor, lotID); err != nil {
			// Lost the race to another finalizer; anything else is worth a log.
			if !errors.Is(err, model.ErrAuctionUnavailable) && !errors.Is(err, model.ErrStillOngoing) {
				s.logger.Error("sweep finalize failed", "lot", lotID, "error", err)
			}
			continue
		}
		finalized++
	}
	if finalized > 0 {
		s.logger.Info("swept expired auctions", "finalized", finalized)
	}
	return finalized
}
