package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ivankudzin/swapspace/internal/domain/model"
)

type InterestRepo struct {
	pool *pgxpool.Pool
}

func NewInterestRepo(pool *pgxpool.Pool) *InterestRepo {
	return &InterestRepo{pool: pool}
}

func (r *InterestRepo) ListInterestsByUser(ctx context.Context, userID int64, limit int) ([]model.InterestEdge, error) {
	if r.pool == nil {
		return nil, errNoPool("list interests")
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx, `
SELECT id, from_user_id, item_id, owner_id, created_at
FROM interests
WHERE from_user_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2
`, userID, limit)
	if err != nil {
		return nil, classify("list interests", err)
	}
	defer rows.Close()

	edges := make([]model.InterestEdge, 0, limit)
	for rows.Next() {
		var e model.InterestEdge
		if err := rows.Scan(&e.ID, &e.FromUserID, &e.ItemID, &e.OwnerID, &e.CreatedAt); err != nil {
			return nil, classify("scan interest", err)
		}
		edges = append(edges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterate interests", err)
	}
	return edges, nil
}
