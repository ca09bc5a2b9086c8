package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ivankudzin/swapspace/internal/domain/model"
	"github.com/ivankudzin/swapspace/internal/repo"
)

type CoordinateRepo struct {
	pool *pgxpool.Pool
}

func NewCoordinateRepo(pool *pgxpool.Pool) *CoordinateRepo {
	return &CoordinateRepo{pool: pool}
}

// SaveCoordinate keeps whichever coordinate was captured last, so a delayed
// write never replaces a newer one.
func (r *CoordinateRepo) SaveCoordinate(ctx context.Context, c model.Coordinate) error {
	if r.pool == nil {
		return errNoPool("save coordinate")
	}

	const query = `
INSERT INTO user_coordinates (
	user_id,
	lat,
	lon,
	city_id,
	city,
	captured_at
) VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (user_id) DO UPDATE SET
	lat = EXCLUDED.lat,
	lon = EXCLUDED.lon,
	city_id = EXCLUDED.city_id,
	city = EXCLUDED.city,
	captured_at = EXCLUDED.captured_at
WHERE user_coordinates.captured_at <= EXCLUDED.captured_at
`

	if _, err := r.pool.Exec(ctx, query, c.UserID, c.Lat, c.Lon, c.CityID, c.City, c.CapturedAt.UTC()); err != nil {
		return classify("save coordinate", err)
	}
	return nil
}

func (r *CoordinateRepo) GetCoordinate(ctx context.Context, userID int64) (model.Coordinate, error) {
	if r.pool == nil {
		return model.Coordinate{}, errNoPool("get coordinate")
	}

	var c model.Coordinate
	err := r.pool.QueryRow(ctx, `
SELECT user_id, lat, lon, city_id, city, captured_at
FROM user_coordinates
WHERE user_id = $1
`, userID).Scan(&c.UserID, &c.Lat, &c.Lon, &c.CityID, &c.City, &c.CapturedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Coordinate{}, repo.ErrNotFound
		}
		return model.Coordinate{}, classify("get coordinate", err)
	}
	return c, nil
}

func (r *CoordinateRepo) GetCoordinates(ctx context.Context, userIDs []int64) (map[int64]model.Coordinate, error) {
	if r.pool == nil {
		return nil, errNoPool("get coordinates")
	}

	out := make(map[int64]model.Coordinate, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}

	rows, err := r.pool.Query(ctx, `
SELECT user_id, lat, lon, city_id, city, captured_at
FROM user_coordinates
WHERE user_id = ANY($1)
`, userIDs)
	if err != nil {
		return nil, classify("get coordinates", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c model.Coordinate
		if err := rows.Scan(&c.UserID, &c.Lat, &c.Lon, &c.CityID, &c.City, &c.CapturedAt); err != nil {
			return nil, classify("scan coordinate", err)
		}
		out[c.UserID] = c
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterate coordinates", err)
	}
	return out, nil
}
