package workers

import (
	"context"
	"time"

	"go.uber.org/zap"

	"societyAdminAPI/internal/lock"
)

// Promoter sends scheduled announcements that have come due.
type Promoter interface {
	PromoteDue(ctx context.Context) (int, error)
}

const promoteLockKey = "scheduled-announcements:promote"

type SchedulerWorker struct {
	promoter Promoter
	locker   lock.Locker
	interval time.Duration
	lockTTL  time.Duration
	logger   *zap.Logger
}

func NewSchedulerWorker(p Promoter, locker lock.Locker, interval, lockTTL time.Duration, logger *zap.Logger) *SchedulerWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if lockTTL <= 0 || lockTTL > interval {
		lockTTL = interval
	}
	return &SchedulerWorker{promoter: p, locker: locker, interval: interval, lockTTL: lockTTL, logger: logger}
}

// Start runs a tick every interval until ctx is done. The returned channel is
// closed once the loop has exited.
func (w *SchedulerWorker) Start(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	ticker := time.NewTicker(w.interval)

	go func() {
		defer close(done)
		defer ticker.Stop()
		w.logger.Info("scheduler worker started", zap.Duration("interval", w.interval))
		for {
			select {
			case <-ctx.Done():
				w.logger.Info("scheduler worker stopped")
				return
			case <-ticker.C:
				w.Tick(ctx)
			}
		}
	}()
	return done
}

// Tick promotes due announcements if this replica wins the lock.
func (w *SchedulerWorker) Tick(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, w.lockTTL)
	defer cancel()

	release, ok, err := w.locker.TryLock(ctx, promoteLockKey, w.lockTTL)
	if err != nil {
		w.logger.Warn("scheduler lock unavailable", zap.Error(err))
		return
	}
	if !ok {
		w.logger.Debug("scheduler tick skipped, another replica holds the lock")
		return
	}
	defer release()

	n, err := w.promoter.PromoteDue(ctx)
	if err != nil {
		w.logger.Error("scheduled announcement promotion failed", zap.Int("sent", n), zap.Error(err))
		return
	}
	if n > 0 {
		w.logger.Info("scheduled announcements sent", zap.Int("count", n))
	}
}
