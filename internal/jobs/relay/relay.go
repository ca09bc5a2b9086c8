// Package relay delivers match-created events from the outbox to the chat
// side. Delivery is at least once: an event stays pending until a publish
// succeeds and is marked delivered.
package relay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ivankudzin/swapspace/internal/domain/model"
	"github.com/ivankudzin/swapspace/internal/repo"
)

const defaultBatchSize = 100

type Publisher interface {
	PublishMatch(ctx context.Context, event model.MatchEvent) error
}

type Job struct {
	events    repo.EventStore
	publisher Publisher
	batchSize int
	now       func() time.Time
	logger    *zap.Logger
}

func New(events repo.EventStore, publisher Publisher, batchSize int, logger *zap.Logger) *Job {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Job{
		events:    events,
		publisher: publisher,
		batchSize: batchSize,
		now:       time.Now,
		logger:    logger,
	}
}

// Enabled reports whether a publisher is attached. Without one events stay
// in the outbox untouched.
func (j *Job) Enabled() bool {
	return j.publisher != nil
}

// Notify tries to deliver a freshly committed event right away. Failures
// are logged and left for the next sweep.
func (j *Job) Notify(ctx context.Context, event model.MatchEvent) {
	if !j.Enabled() {
		return
	}
	if err := j.deliver(ctx, event); err != nil {
		j.logger.Warn("match event delivery deferred",
			zap.String("event_id", event.ID.String()),
			zap.Error(err),
		)
	}
}

// Run sweeps pending events once, batch by batch, and stops at the first
// failed publish so ordering by creation time is kept.
func (j *Job) Run(ctx context.Context) error {
	if j.events == nil || j.publisher == nil {
		return nil
	}

	delivered := 0
	for {
		pending, err := j.events.ListPendingEvents(ctx, j.batchSize)
		if err != nil {
			return fmt.Errorf("list pending match events: %w", err)
		}
		if len(pending) == 0 {
			break
		}

		for _, event := range pending {
			if err := j.deliver(ctx, event); err != nil {
				if delivered > 0 {
					j.logger.Info("match events relayed", zap.Int("delivered", delivered))
				}
				return fmt.Errorf("relay match event %s: %w", event.ID, err)
			}
			delivered++
		}
		if len(pending) < j.batchSize {
			break
		}
	}

	if delivered > 0 {
		j.logger.Info("match events relayed", zap.Int("delivered", delivered))
	}
	return nil
}

// Loop runs Run every interval until ctx is done.
func (j *Job) Loop(ctx context.Context, interval time.Duration) {
	if interval <= 0 || !j.Enabled() {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := j.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				j.logger.Warn("match event relay failed", zap.Error(err))
			}
		}
	}
}

func (j *Job) deliver(ctx context.Context, event model.MatchEvent) error {
	if j.publisher == nil {
		return fmt.Errorf("match publisher is nil: %w", repo.ErrUnavailable)
	}
	if err := j.publisher.PublishMatch(ctx, event); err != nil {
		return err
	}
	if j.events == nil {
		return nil
	}
	if err := j.events.MarkEventDelivered(ctx, event.ID, j.now().UTC()); err != nil {
		return fmt.Errorf("mark match event delivered: %w", err)
	}
	return nil
}
