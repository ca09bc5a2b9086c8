package cleanup

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const defaultRetention = 7 * 24 * time.Hour

type deliveredEventPurger interface {
	PurgeDeliveredEvents(ctx context.Context, cutoff time.Time) (int64, error)
}

// Job prunes the match event outbox. Pending events are never touched.
type Job struct {
	events    deliveredEventPurger
	retention time.Duration
	now       func() time.Time
	logger    *zap.Logger
}

func New(events deliveredEventPurger, retention time.Duration, logger *zap.Logger) *Job {
	if retention <= 0 {
		retention = defaultRetention
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Job{
		events:    events,
		retention: retention,
		now:       time.Now,
		logger:    logger,
	}
}

func (j *Job) Run(ctx context.Context) error {
	if j.events == nil {
		return nil
	}

	cutoff := j.now().Add(-j.retention)
	purged, err := j.events.PurgeDeliveredEvents(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("purge delivered match events: %w", err)
	}
	if purged > 0 {
		j.logger.Info("cleanup delivered match events completed", zap.Int64("purged", purged))
	}
	return nil
}

// Loop runs the job every interval until ctx is done.
func (j *Job) Loop(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := j.Run(ctx); err != nil {
			j.logger.Warn("cleanup run failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
