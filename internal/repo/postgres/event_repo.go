package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ivankudzin/swapspace/internal/domain/model"
	"github.com/ivankudzin/swapspace/internal/repo"
)

// EventRepo is the match_events outbox. Rows are written in the same
// transaction as their match and marked once a publish succeeded.
type EventRepo struct {
	pool *pgxpool.Pool
}

func NewEventRepo(pool *pgxpool.Pool) *EventRepo {
	return &EventRepo{pool: pool}
}

func (r *EventRepo) ListPendingEvents(ctx context.Context, limit int) ([]model.MatchEvent, error) {
	if r.pool == nil {
		return nil, errNoPool("list pending events")
	}
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.pool.Query(ctx, `
SELECT
	e.id,
	e.created_at,
	m.id,
	m.user_a_id,
	m.user_b_id,
	m.item_a_id,
	m.item_b_id,
	m.matched_at
FROM match_events e
JOIN matches m ON m.id = e.match_id
WHERE e.delivered_at IS NULL
ORDER BY e.created_at ASC
LIMIT $1
`, limit)
	if err != nil {
		return nil, classify("list pending events", err)
	}
	defer rows.Close()

	events := make([]model.MatchEvent, 0)
	for rows.Next() {
		var e model.MatchEvent
		if err := rows.Scan(
			&e.ID,
			&e.CreatedAt,
			&e.Match.ID,
			&e.Match.UserA,
			&e.Match.UserB,
			&e.Match.ItemA,
			&e.Match.ItemB,
			&e.Match.MatchedAt,
		); err != nil {
			return nil, classify("scan pending event", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterate pending events", err)
	}
	return events, nil
}

func (r *EventRepo) MarkEventDelivered(ctx context.Context, id uuid.UUID, at time.Time) error {
	if r.pool == nil {
		return errNoPool("mark event delivered")
	}

	tag, err := r.pool.Exec(ctx, `
UPDATE match_events
SET delivered_at = COALESCE(delivered_at, $2)
WHERE id = $1
`, id, at.UTC())
	if err != nil {
		return classify("mark event delivered", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("mark event %s delivered: %w", id, repo.ErrNotFound)
	}
	return nil
}

func (r *EventRepo) PurgeDeliveredEvents(ctx context.Context, cutoff time.Time) (int64, error) {
	if r.pool == nil {
		return 0, errNoPool("purge delivered events")
	}

	tag, err := r.pool.Exec(ctx, `
DELETE FROM match_events
WHERE delivered_at IS NOT NULL
  AND delivered_at < $1
`, cutoff.UTC())
	if err != nil {
		return 0, classify("purge delivered events", err)
	}
	return tag.RowsAffected(), nil
}
