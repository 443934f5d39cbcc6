package reminders

import (
	"context"
	"errors"
	"time"

	"github.com/wolfman30/session-booking/pkg/logging"
)

// Sweeper runs one reminder sweep.
type Sweeper interface {
	Sweep(ctx context.Context, now time.Time) (Result, error)
}

// Worker runs sweeps on a ticker inside the API process.
type Worker struct {
	sweeper  Sweeper
	interval time.Duration
	now      func() time.Time
	logger   *logging.Logger
}

func NewWorker(sweeper Sweeper, logger *logging.Logger) *Worker {
	if logger == nil {
		logger = logging.Default()
	}
	return &Worker{
		sweeper:  sweeper,
		interval: 15 * time.Minute,
		now:      time.Now,
		logger:   logger,
	}
}

func (w *Worker) WithInterval(d time.Duration) *Worker {
	if d > 0 {
		w.interval = d
	}
	return w
}

func (w *Worker) WithClock(now func() time.Time) *Worker {
	if now != nil {
		w.now = now
	}
	return w
}

// Run sweeps immediately and then every interval until ctx is done.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	w.logger.Info("reminder worker started", "interval", w.interval.String())
	w.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("reminder worker stopped")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *Worker) sweep(ctx context.Context) {
	if _, err := w.sweeper.Sweep(ctx, w.now()); err != nil {
		if errors.Is(err, ErrMessagingDisabled) {
			w.logger.Debug("reminder sweep skipped: messaging disabled")
			return
		}
		w.logger.Error("reminder sweep failed", "error", err)
	}
}
