package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ivankudzin/swapspace/internal/domain/enums"
	"github.com/ivankudzin/swapspace/internal/domain/model"
	"github.com/ivankudzin/swapspace/internal/repo"
)

// ItemRepo reads the catalog table. Items are written by the listing side,
// never by this service.
type ItemRepo struct {
	pool *pgxpool.Pool
}

func NewItemRepo(pool *pgxpool.Pool) *ItemRepo {
	return &ItemRepo{pool: pool}
}

const itemColumns = `id, owner_id, title, category_id, status, photo_key, created_at`

func (r *ItemRepo) GetItem(ctx context.Context, itemID int64) (model.Item, error) {
	if r.pool == nil {
		return model.Item{}, errNoPool("get item")
	}

	item, err := scanItem(r.pool.QueryRow(ctx, `SELECT `+itemColumns+` FROM items WHERE id = $1`, itemID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Item{}, repo.ErrNotFound
		}
		return model.Item{}, classify("get item", err)
	}
	return item, nil
}

func (r *ItemRepo) ListActive(ctx context.Context, filter repo.CatalogFilter) ([]model.Item, error) {
	if r.pool == nil {
		return nil, errNoPool("list active items")
	}

	var limit *int
	if filter.Limit > 0 {
		limit = &filter.Limit
	}

	rows, err := r.pool.Query(ctx, `
SELECT `+itemColumns+`
FROM items
WHERE status = $1
	AND ($2::BIGINT = 0 OR category_id = $2)
	AND ($3::BIGINT = 0 OR owner_id <> $3)
ORDER BY created_at ASC, id ASC
LIMIT $4
`, string(enums.ItemStatusActive), filter.CategoryID, filter.ExcludeOwnerID, limit)
	if err != nil {
		return nil, classify("list active items", err)
	}
	defer rows.Close()

	items := make([]model.Item, 0)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, classify("scan item", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterate items", err)
	}
	return items, nil
}

func scanItem(row pgx.Row) (model.Item, error) {
	var (
		item   model.Item
		status string
	)
	if err := row.Scan(&item.ID, &item.OwnerID, &item.Title, &item.CategoryID, &status, &item.PhotoKey, &item.CreatedAt); err != nil {
		return model.Item{}, err
	}
	item.Status = enums.ItemStatus(status)
	return item, nil
}
