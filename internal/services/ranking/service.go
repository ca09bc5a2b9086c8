package ranking

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/ivankudzin/swapspace/internal/domain/model"
	"github.com/ivankudzin/swapspace/internal/repo"
	geosvc "github.com/ivankudzin/swapspace/internal/services/geo"
)

var (
	ErrValidation       = errors.New("validation error")
	ErrLocationRequired = errors.New("location required")
)

type CoordinateStore interface {
	GetCoordinate(ctx context.Context, userID int64) (model.Coordinate, error)
	GetCoordinates(ctx context.Context, userIDs []int64) (map[int64]model.Coordinate, error)
}

type Ranked struct {
	Item       model.Item
	Owner      model.Coordinate
	DistanceKM float64
}

type Service struct {
	coordinates CoordinateStore
}

func NewService(coordinates CoordinateStore) *Service {
	return &Service{coordinates: coordinates}
}

// Rank orders candidates by distance from the requester. Withdrawn items,
// the requester's own items and items whose owner has no known location are
// left out. Equal distances keep item creation order.
func (s *Service) Rank(ctx context.Context, requesterID int64, candidates []model.Item) ([]Ranked, error) {
	if requesterID <= 0 {
		return nil, ErrValidation
	}
	if s.coordinates == nil {
		return nil, fmt.Errorf("coordinate store is nil: %w", repo.ErrUnavailable)
	}

	origin, err := s.coordinates.GetCoordinate(ctx, requesterID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrLocationRequired
		}
		return nil, fmt.Errorf("load requester coordinate: %w", err)
	}

	eligible := make([]model.Item, 0, len(candidates))
	ownerSet := make(map[int64]struct{}, len(candidates))
	owners := make([]int64, 0, len(candidates))
	for _, item := range candidates {
		if !item.Active() || item.OwnerID == requesterID {
			continue
		}
		eligible = append(eligible, item)
		if _, ok := ownerSet[item.OwnerID]; !ok {
			ownerSet[item.OwnerID] = struct{}{}
			owners = append(owners, item.OwnerID)
		}
	}
	if len(eligible) == 0 {
		return []Ranked{}, nil
	}

	located, err := s.coordinates.GetCoordinates(ctx, owners)
	if err != nil {
		return nil, fmt.Errorf("load owner coordinates: %w", err)
	}

	out := make([]Ranked, 0, len(eligible))
	for _, item := range eligible {
		owner, ok := located[item.OwnerID]
		if !ok {
			continue
		}
		out = append(out, Ranked{
			Item:       item,
			Owner:      owner,
			DistanceKM: geosvc.DistanceKM(origin, owner),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DistanceKM != out[j].DistanceKM {
			return out[i].DistanceKM < out[j].DistanceKM
		}
		if !out[i].Item.CreatedAt.Equal(out[j].Item.CreatedAt) {
			return out[i].Item.CreatedAt.Before(out[j].Item.CreatedAt)
		}
		return out[i].Item.ID < out[j].Item.ID
	})

	return out, nil
}
