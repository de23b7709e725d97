package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/benvon/sculptor/internal/metrics"
	"go.uber.org/zap"
)

const purgeTimeout = 2 * time.Minute

// GarbageCollector drops dead-lettered sync jobs once they are older than
// retention. A sync job that failed once is never retried, so the DLQ only
// serves inspection and would otherwise grow without bound.
type GarbageCollector struct {
	purger    DLQPurger
	interval  time.Duration
	retention time.Duration
	logger    *zap.Logger
}

// NewGarbageCollector returns a collector purging every interval. A nil purger disables it.
func NewGarbageCollector(purger DLQPurger, interval, retention time.Duration, logger *zap.Logger) *GarbageCollector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GarbageCollector{
		purger:    purger,
		interval:  interval,
		retention: retention,
		logger:    logger,
	}
}

// Start purges once immediately and then on every tick until ctx is done.
// Purge failures are logged and the loop continues.
func (gc *GarbageCollector) Start(ctx context.Context) error {
	if gc.purger == nil {
		<-ctx.Done()
		return ctx.Err()
	}
	ticker := time.NewTicker(gc.interval)
	defer ticker.Stop()
	for {
		if _, err := gc.collect(ctx); err != nil && ctx.Err() == nil {
			gc.logger.Warn("dlq_gc_failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (gc *GarbageCollector) collect(ctx context.Context) (int, error) {
	if gc.purger == nil {
		return 0, nil
	}
	ctx, cancel := context.WithTimeout(ctx, purgeTimeout)
	defer cancel()

	n, err := gc.purger.PurgeOlderThan(ctx, gc.retention)
	if err != nil {
		return 0, fmt.Errorf("failed to purge dead-lettered sync jobs: %w", err)
	}
	if n > 0 {
		metrics.ObserveDLQPurge(n)
		gc.logger.Info("dlq_gc_purged",
			zap.Int("count", n),
			zap.Duration("retention", gc.retention),
		)
	}
	return n, nil
}
