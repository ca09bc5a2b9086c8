package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ivankudzin/swapspace/internal/domain/model"
	"github.com/ivankudzin/swapspace/internal/repo"
)

type MatchRepo struct {
	pool *pgxpool.Pool
}

func NewMatchRepo(pool *pgxpool.Pool) *MatchRepo {
	return &MatchRepo{pool: pool}
}

const matchColumns = `id, user_a_id, user_b_id, item_a_id, item_b_id, matched_at`

func (r *MatchRepo) GetMatch(ctx context.Context, pair model.Pair) (model.Match, bool, error) {
	if r.pool == nil {
		return model.Match{}, false, errNoPool("get match")
	}
	return getMatch(ctx, r.pool, pair)
}

func (r *MatchRepo) ListMatchesForUser(ctx context.Context, userID int64, limit int) ([]model.Match, error) {
	if r.pool == nil {
		return nil, errNoPool("list matches")
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx, `
SELECT `+matchColumns+`
FROM matches
WHERE user_a_id = $1 OR user_b_id = $1
ORDER BY matched_at DESC, id DESC
LIMIT $2
`, userID, limit)
	if err != nil {
		return nil, classify("list matches", err)
	}
	defer rows.Close()

	matches := make([]model.Match, 0)
	for rows.Next() {
		match, err := scanMatch(rows)
		if err != nil {
			return nil, classify("scan match", err)
		}
		matches = append(matches, match)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterate matches", err)
	}
	return matches, nil
}

// PairSignals collects, per peer, whether userID wants one of the peer's
// items, whether the peer wants one of userID's, and whether they matched.
func (r *MatchRepo) PairSignals(ctx context.Context, userID int64, peers []int64) (map[int64]repo.PairSignals, error) {
	if r.pool == nil {
		return nil, errNoPool("pair signals")
	}

	out := make(map[int64]repo.PairSignals, len(peers))
	if len(peers) == 0 {
		return out, nil
	}

	rows, err := r.pool.Query(ctx, `
SELECT peer, bool_or(outgoing), bool_or(incoming), bool_or(matched)
FROM (
	SELECT owner_id AS peer, TRUE AS outgoing, FALSE AS incoming, FALSE AS matched
	FROM interests
	WHERE from_user_id = $1 AND owner_id = ANY($2)
	UNION ALL
	SELECT from_user_id, FALSE, TRUE, FALSE
	FROM interests
	WHERE owner_id = $1 AND from_user_id = ANY($2)
	UNION ALL
	SELECT CASE WHEN user_a_id = $1 THEN user_b_id ELSE user_a_id END, FALSE, FALSE, TRUE
	FROM matches
	WHERE (user_a_id = $1 AND user_b_id = ANY($2)) OR (user_b_id = $1 AND user_a_id = ANY($2))
) signals
GROUP BY peer
`, userID, peers)
	if err != nil {
		return nil, classify("pair signals", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			peer int64
			sig  repo.PairSignals
		)
		if err := rows.Scan(&peer, &sig.Outgoing, &sig.Incoming, &sig.Matched); err != nil {
			return nil, classify("scan pair signals", err)
		}
		out[peer] = sig
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterate pair signals", err)
	}
	return out, nil
}

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func getMatch(ctx context.Context, q queryRower, pair model.Pair) (model.Match, bool, error) {
	match, err := scanMatch(q.QueryRow(ctx, `
SELECT `+matchColumns+`
FROM matches
WHERE user_a_id = $1 AND user_b_id = $2
`, pair.Low, pair.High))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Match{}, false, nil
		}
		return model.Match{}, false, classify("get match", err)
	}
	return match, true, nil
}

func scanMatch(row pgx.Row) (model.Match, error) {
	var m model.Match
	if err := row.Scan(&m.ID, &m.UserA, &m.UserB, &m.ItemA, &m.ItemB, &m.MatchedAt); err != nil {
		return model.Match{}, err
	}
	return m, nil
}
