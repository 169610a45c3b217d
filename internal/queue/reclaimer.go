package queue

import (
	"context"
	"time"

	"go.uber.org/zap"

	"AbsenSend/internal/metrics"
)

type ReclaimStore interface {
	ReclaimStuck(ctx context.Context, olderThan time.Time) (int, error)
}

// Reclaimer is the liveness guarantee against a consumer that crashed mid
// flight: jobs stuck in processing past the timeout go back to pending.
type Reclaimer struct {
	store    ReclaimStore
	log      *zap.Logger
	interval time.Duration
	timeout  time.Duration

	now func() time.Time
}

func NewReclaimer(st ReclaimStore, log *zap.Logger, interval, timeout time.Duration) *Reclaimer {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Reclaimer{
		store:    st,
		log:      log,
		interval: interval,
		timeout:  timeout,
		now:      time.Now,
	}
}

func (r *Reclaimer) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.log.Info("stuck-job reclaimer started", zap.Duration("interval", r.interval))
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.runOnce(ctx)
		}
	}
}

// runOnce sweeps once. Sweep failures are logged, never fatal.
func (r *Reclaimer) runOnce(ctx context.Context) {
	cutoff := r.now().Add(-r.timeout)

	n, err := r.store.ReclaimStuck(ctx, cutoff)
	if err != nil {
		r.log.Error("stuck-job sweep failed", zap.Error(err))
		return
	}
	if n == 0 {
		return
	}

	metrics.JobsReclaimed.Add(float64(n))
	r.log.Warn("reset stuck jobs to pending", zap.Int("count", n))
}
