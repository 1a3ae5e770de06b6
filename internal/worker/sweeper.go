package worker

import (
	"context"
	"time"

	"virtual-wallet/internal/core/ports"

	"github.com/rs/zerolog"
)

// Lock guards a sweep so only one instance runs it at a time.
type Lock interface {
	Acquire(ctx context.Context, ttl time.Duration) (bool, error)
	Release(ctx context.Context) error
}

// Sweeper periodically materializes due recurring transactions.
type Sweeper struct {
	svc      ports.RecurringService
	lock     Lock
	interval time.Duration
	lockTTL  time.Duration
	log      zerolog.Logger
	done     chan struct{}
}

// NewSweeper creates a new Sweeper.
func NewSweeper(svc ports.RecurringService, lock Lock, interval, lockTTL time.Duration, log zerolog.Logger) *Sweeper {
	return &Sweeper{
		svc:      svc,
		lock:     lock,
		interval: interval,
		lockTTL:  lockTTL,
		log:      log,
		done:     make(chan struct{}),
	}
}

// Start runs the sweep loop in a background goroutine until ctx is
// cancelled. One sweep runs immediately on startup.
func (w *Sweeper) Start(ctx context.Context) {
	go func() {
		defer close(w.done)

		w.log.Info().Dur("interval", w.interval).Msg("recurring sweeper started")
		w.sweep(ctx)

		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				w.log.Info().Msg("recurring sweeper stopped")
				return
			case <-ticker.C:
				w.sweep(ctx)
			}
		}
	}()
}

// Wait blocks until the sweep loop has exited.
func (w *Sweeper) Wait() {
	<-w.done
}

func (w *Sweeper) sweep(ctx context.Context) {
	acquired, err := w.lock.Acquire(ctx, w.lockTTL)
	if err != nil {
		w.log.Error().Err(err).Msg("sweep lock acquire failed")
		return
	}
	if !acquired {
		w.log.Debug().Msg("sweep already running elsewhere, skipping tick")
		return
	}
	defer func() {
		if err := w.lock.Release(ctx); err != nil {
			w.log.Warn().Err(err).Msg("sweep lock release failed")
		}
	}()

	result, err := w.svc.Sweep(ctx, time.Now().UTC())
	if err != nil {
		w.log.Error().Err(err).
			Int("due", result.Due).
			Int("executed", result.Executed).
			Int("failed", result.Failed).
			Msg("sweep finished with errors")
		return
	}
	if result.Due > 0 {
		w.log.Info().
			Int("due", result.Due).
			Int("executed", result.Executed).
			Int("skipped", result.Skipped).
			Msg("sweep finished")
	}
}
