// Package repo holds the storage contracts shared by the postgres and
// in-memory backends.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/ivankudzin/swapspace/internal/domain/model"
)

var (
	// ErrUnavailable marks transient storage failures. Callers retry; the
	// services never do.
	ErrUnavailable       = errors.New("storage unavailable")
	ErrNotFound          = errors.New("not found")
	ErrDuplicateInterest = errors.New("interest already recorded")
)

// PairTx is the unit of work for one unordered user pair. Everything done
// through it commits together or not at all.
type PairTx interface {
	InsertInterest(ctx context.Context, edge model.InterestEdge) (model.InterestEdge, error)
	// FindReciprocal returns the oldest edge from fromUserID to an item owned
	// by ownerID.
	FindReciprocal(ctx context.Context, fromUserID, ownerID int64) (model.InterestEdge, bool, error)
	GetMatch(ctx context.Context, pair model.Pair) (model.Match, bool, error)
	// CreateMatch reports false when the pair already has a match.
	CreateMatch(ctx context.Context, match model.Match) (bool, error)
	AppendMatchEvent(ctx context.Context, event model.MatchEvent) error
}

// PairStore serializes WithinPair calls for the same pair.
type PairStore interface {
	WithinPair(ctx context.Context, pair model.Pair, fn func(context.Context, PairTx) error) error
}

type CatalogFilter struct {
	CategoryID     int64
	ExcludeOwnerID int64
	Limit          int
}

// PairSignals is what one user knows about a peer: whether either side has
// expressed interest and whether the pair is matched.
type PairSignals struct {
	Outgoing bool
	Incoming bool
	Matched  bool
}

type EventStore interface {
	ListPendingEvents(ctx context.Context, limit int) ([]model.MatchEvent, error)
	MarkEventDelivered(ctx context.Context, id uuid.UUID, at time.Time) error
}
