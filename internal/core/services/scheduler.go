package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	portssvc "github.com/SscSPs/swap_exchange_app/internal/core/ports/services"
)

// Scheduler runs the periodic expiry sweep and price warm-up.
type Scheduler struct {
	lifecycle     portssvc.QuoteLifecycleSvc
	prices        portssvc.PriceSvc
	sweepInterval time.Duration
	warmInterval  time.Duration
	logger        *slog.Logger
}

// NewScheduler creates a scheduler. A zero interval disables that job.
func NewScheduler(lifecycle portssvc.QuoteLifecycleSvc, prices portssvc.PriceSvc, sweepInterval, warmInterval time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		lifecycle:     lifecycle,
		prices:        prices,
		sweepInterval: sweepInterval,
		warmInterval:  warmInterval,
		logger:        logger.With("component", "scheduler"),
	}
}

// Run blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	var wg sync.WaitGroup
	if s.sweepInterval > 0 && s.lifecycle != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.loop(ctx, "sweep", s.sweepInterval, s.TickSweep)
		}()
	}
	if s.warmInterval > 0 && s.prices != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.loop(ctx, "price_warm", s.warmInterval, s.TickWarm)
		}()
	}
	wg.Wait()
}

// TickSweep runs one expiry sweep.
func (s *Scheduler) TickSweep(ctx context.Context) error {
	n, err := s.lifecycle.SweepExpired(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		s.logger.Info("Sweep expired quotes", "count", n)
	}
	return nil
}

// TickWarm refreshes the price cache.
func (s *Scheduler) TickWarm(ctx context.Context) error {
	return s.prices.Refresh(ctx)
}

func (s *Scheduler) loop(ctx context.Context, job string, interval time.Duration, tick func(context.Context) error) {
	s.logger.Info("Starting job", "job", job, "interval", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.runTick(ctx, job, tick)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Stopping job", "job", job)
			return
		case <-ticker.C:
			s.runTick(ctx, job, tick)
		}
	}
}

func (s *Scheduler) runTick(ctx context.Context, job string, tick func(context.Context) error) {
	if err := tick(ctx); err != nil && ctx.Err() == nil {
		s.logger.Error("Job tick failed", "job", job, "error", err)
	}
}
