package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// UserLister enumerates the accounts a sweep must visit.
type UserLister interface {
	ListActiveUsers(ctx context.Context) ([]int64, error)
}

// SweepFunc runs one sweep for one user.
type SweepFunc func(ctx context.Context, userID int64) error

// SweepWorker periodically applies a per-user function to every active
// account. One user's failure is logged and does not stop the sweep.
type SweepWorker struct {
	name     string
	interval time.Duration
	users    UserLister
	sweep    SweepFunc
	logger   *zap.Logger

	done chan struct{}
}

// NewSweepWorker creates a periodic sweep worker.
func NewSweepWorker(name string, interval time.Duration, users UserLister, sweep SweepFunc, logger *zap.Logger) *SweepWorker {
	return &SweepWorker{
		name:     name,
		interval: interval,
		users:    users,
		sweep:    sweep,
		logger:   logger,
	}
}

// Name returns the worker name.
func (w *SweepWorker) Name() string {
	return w.name
}

// Start launches the sweep loop. The first sweep runs immediately so a
// restarted server catches up without waiting a full interval.
func (w *SweepWorker) Start(ctx context.Context) error {
	w.done = make(chan struct{})

	go func() {
		defer close(w.done)

		w.runOnce(ctx)

		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.runOnce(ctx)
			}
		}
	}()

	return nil
}

// Stop waits for the loop to exit. The manager cancels the context first.
func (w *SweepWorker) Stop() error {
	if w.done != nil {
		<-w.done
	}
	return nil
}

func (w *SweepWorker) runOnce(ctx context.Context) {
	users, err := w.users.ListActiveUsers(ctx)
	if err != nil {
		w.logger.Error("Sweep user listing failed",
			zap.String("worker_name", w.name),
			zap.Error(err))
		return
	}

	for _, userID := range users {
		if ctx.Err() != nil {
			return
		}
		if err := w.sweep(ctx, userID); err != nil {
			w.logger.Error("Sweep failed for user",
				zap.String("worker_name", w.name),
				zap.Int64("user_id", userID),
				zap.Error(err))
		}
	}

	w.logger.Debug("Sweep completed",
		zap.String("worker_name", w.name),
		zap.Int("users", len(users)))
}
