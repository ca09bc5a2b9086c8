package postgres

import (
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store bundles the repositories the API needs behind one value.
type Store struct {
	*CoordinateRepo
	*ItemRepo
	*InterestRepo
	*MatchRepo
	*EventRepo
	*PairStore
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		CoordinateRepo: NewCoordinateRepo(pool),
		ItemRepo:       NewItemRepo(pool),
		InterestRepo:   NewInterestRepo(pool),
		MatchRepo:      NewMatchRepo(pool),
		EventRepo:      NewEventRepo(pool),
		PairStore:      NewPairStore(pool),
	}
}
