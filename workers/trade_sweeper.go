// workers/trade_sweeper.go
package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// StaleSweeper rejects pending trades that can no longer be accepted.
type StaleSweeper interface {
	SweepStale(ctx context.Context) (int64, error)
}

// TradeSweeper runs StaleSweeper on a fixed interval.
type TradeSweeper struct {
	sweeper  StaleSweeper
	interval time.Duration
	log      *zap.Logger
	sched    gocron.Scheduler
}

func NewTradeSweeper(sweeper StaleSweeper, interval time.Duration, log *zap.Logger) *TradeSweeper {
	return &TradeSweeper{sweeper: sweeper, interval: interval, log: log.Named("sweeper")}
}

// Start schedules the sweep. A non-positive interval disables it.
func (w *TradeSweeper) Start(ctx context.Context) error {
	if w.interval <= 0 {
		w.log.Info("stale trade sweeper disabled")
		return nil
	}

	sched, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}
	_, err = sched.NewJob(
		gocron.DurationJob(w.interval),
		gocron.NewTask(func() { w.RunOnce(ctx) }),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return fmt.Errorf("schedule sweep: %w", err)
	}
	sched.Start()
	w.sched = sched
	w.log.Info("stale trade sweeper started", zap.Duration("interval", w.interval))
	return nil
}

// RunOnce performs a single sweep and reports how many trades it rejected.
func (w *TradeSweeper) RunOnce(ctx context.Context) int64 {
	n, err := w.sweeper.SweepStale(ctx)
	if err != nil {
		w.log.Error("stale trade sweep failed", zap.Error(err))
		return 0
	}
	return n
}

func (w *TradeSweeper) Stop() error {
	if w.sched == nil {
		return nil
	}
	return w.sched.Shutdown()
}
