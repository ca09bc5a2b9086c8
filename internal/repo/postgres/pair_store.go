package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ivankudzin/swapspace/internal/domain/model"
	"github.com/ivankudzin/swapspace/internal/repo"
)

// PairStore runs each pair unit in one transaction holding a transaction
// scoped advisory lock on the canonical pair key.
type PairStore struct {
	pool *pgxpool.Pool
}

func NewPairStore(pool *pgxpool.Pool) *PairStore {
	return &PairStore{pool: pool}
}

func (s *PairStore) WithinPair(ctx context.Context, pair model.Pair, fn func(context.Context, repo.PairTx) error) error {
	return withTx(ctx, s.pool, "within pair", func(txCtx context.Context, tx pgx.Tx) error {
		if _, err := tx.Exec(txCtx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, pairLockKey(pair)); err != nil {
			return classify("lock pair", err)
		}
		return fn(txCtx, &pairTx{tx: tx, pair: pair})
	})
}

func pairLockKey(pair model.Pair) string {
	return "pair:" + pair.Key()
}

type pairTx struct {
	tx   pgx.Tx
	pair model.Pair
}

func (t *pairTx) InsertInterest(ctx context.Context, edge model.InterestEdge) (model.InterestEdge, error) {
	if err := t.guard(edge.Pair()); err != nil {
		return model.InterestEdge{}, err
	}

	err := t.tx.QueryRow(ctx, `
INSERT INTO interests (
	from_user_id,
	item_id,
	owner_id,
	created_at
) VALUES ($1, $2, $3, $4)
ON CONFLICT (from_user_id, item_id) DO NOTHING
RETURNING id
`, edge.FromUserID, edge.ItemID, edge.OwnerID, edge.CreatedAt.UTC()).Scan(&edge.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.InterestEdge{}, repo.ErrDuplicateInterest
		}
		return model.InterestEdge{}, classify("insert interest", err)
	}
	return edge, nil
}

func (t *pairTx) FindReciprocal(ctx context.Context, fromUserID, ownerID int64) (model.InterestEdge, bool, error) {
	if err := t.guard(model.NewPair(fromUserID, ownerID)); err != nil {
		return model.InterestEdge{}, false, err
	}

	var e model.InterestEdge
	err := t.tx.QueryRow(ctx, `
SELECT id, from_user_id, item_id, owner_id, created_at
FROM interests
WHERE from_user_id = $1 AND owner_id = $2
ORDER BY created_at ASC, id ASC
LIMIT 1
`, fromUserID, ownerID).Scan(&e.ID, &e.FromUserID, &e.ItemID, &e.OwnerID, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.InterestEdge{}, false, nil
		}
		return model.InterestEdge{}, false, classify("find reciprocal interest", err)
	}
	return e, true, nil
}

func (t *pairTx) GetMatch(ctx context.Context, pair model.Pair) (model.Match, bool, error) {
	if err := t.guard(pair); err != nil {
		return model.Match{}, false, err
	}
	return getMatch(ctx, t.tx, pair)
}

func (t *pairTx) CreateMatch(ctx context.Context, match model.Match) (bool, error) {
	if err := t.guard(match.Pair()); err != nil {
		return false, err
	}

	tag, err := t.tx.Exec(ctx, `
INSERT INTO matches (
	id,
	user_a_id,
	user_b_id,
	item_a_id,
	item_b_id,
	matched_at
) VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (user_a_id, user_b_id) DO NOTHING
`, match.ID, match.UserA, match.UserB, match.ItemA, match.ItemB, match.MatchedAt.UTC())
	if err != nil {
		return false, classify("create match", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (t *pairTx) AppendMatchEvent(ctx context.Context, event model.MatchEvent) error {
	if err := t.guard(event.Match.Pair()); err != nil {
		return err
	}

	if _, err := t.tx.Exec(ctx, `
INSERT INTO match_events (id, match_id, created_at)
VALUES ($1, $2, $3)
`, event.ID, event.Match.ID, event.CreatedAt.UTC()); err != nil {
		return classify("append match event", err)
	}
	return nil
}

func (t *pairTx) guard(pair model.Pair) error {
	if pair != t.pair {
		return fmt.Errorf("pair %s is outside the locked pair %s", pair.Key(), t.pair.Key())
	}
	return nil
}
