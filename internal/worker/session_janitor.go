package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Sweeper closes idle sessions.
type Sweeper interface {
	Sweep(ctx context.Context) int
}

// RunSessionJanitor sweeps idle sessions every interval until ctx is done.
func RunSessionJanitor(ctx context.Context, sweeper Sweeper, interval time.Duration, logger *zap.Logger) {
	if sweeper == nil || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := sweeper.Sweep(ctx); n > 0 {
				logger.Info("idle sessions closed", zap.Int("count", n))
			}
		}
	}
}
