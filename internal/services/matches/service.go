package matches

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ivankudzin/swapspace/internal/domain/model"
	"github.com/ivankudzin/swapspace/internal/repo"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

var ErrValidation = errors.New("validation error")

type MatchStore interface {
	GetMatch(ctx context.Context, pair model.Pair) (model.Match, bool, error)
	ListMatchesForUser(ctx context.Context, userID int64, limit int) ([]model.Match, error)
	PairSignals(ctx context.Context, userID int64, peers []int64) (map[int64]repo.PairSignals, error)
}

type Dependencies struct {
	MatchStore MatchStore
	Metrics    *Metrics
}

type Service struct {
	matchStore MatchStore
	metrics    *Metrics
	now        func() time.Time
	newID      func() uuid.UUID
}

// Outcome is the pair state right after an edge was recorded. Event is set
// only when this evaluation created the match.
type Outcome struct {
	Status  model.PairStatus
	Match   *model.Match
	Created bool
	Event   *model.MatchEvent
}

type MatchItem struct {
	MatchID    uuid.UUID
	PeerUserID int64
	OwnItemID  int64
	PeerItemID int64
	MatchedAt  time.Time
}

func NewService(deps Dependencies) *Service {
	return &Service{
		matchStore: deps.MatchStore,
		metrics:    deps.Metrics,
		now:        time.Now,
		newID:      uuid.New,
	}
}

// Evaluate moves the pair of a freshly inserted edge forward. It must run
// inside the same pair unit as the insert so the reciprocity check and the
// match write cannot interleave with the opposite direction.
func (s *Service) Evaluate(ctx context.Context, tx repo.PairTx, edge model.InterestEdge) (Outcome, error) {
	if tx == nil {
		return Outcome{}, fmt.Errorf("pair tx is nil")
	}
	if edge.FromUserID <= 0 || edge.OwnerID <= 0 || edge.FromUserID == edge.OwnerID {
		return Outcome{}, ErrValidation
	}

	pair := edge.Pair()
	existing, ok, err := tx.GetMatch(ctx, pair)
	if err != nil {
		return Outcome{}, fmt.Errorf("load match: %w", err)
	}
	if ok {
		outcome := Outcome{Status: model.Matched(), Match: &existing}
		s.metrics.observe(outcome)
		return outcome, nil
	}

	reciprocal, found, err := tx.FindReciprocal(ctx, edge.OwnerID, edge.FromUserID)
	if err != nil {
		return Outcome{}, fmt.Errorf("find reciprocal interest: %w", err)
	}
	if !found {
		outcome := Outcome{Status: model.OneSided(edge.FromUserID, edge.OwnerID)}
		s.metrics.observe(outcome)
		return outcome, nil
	}

	now := s.now().UTC()
	match := model.Match{
		ID:        s.newID(),
		UserA:     pair.Low,
		UserB:     pair.High,
		MatchedAt: now,
	}
	// ItemA belongs to UserA. The new edge points at the owner's item and the
	// reciprocal one at the sender's.
	if edge.OwnerID == pair.Low {
		match.ItemA, match.ItemB = edge.ItemID, reciprocal.ItemID
	} else {
		match.ItemA, match.ItemB = reciprocal.ItemID, edge.ItemID
	}

	created, err := tx.CreateMatch(ctx, match)
	if err != nil {
		return Outcome{}, fmt.Errorf("create match: %w", err)
	}
	if !created {
		stored, ok, err := tx.GetMatch(ctx, pair)
		if err != nil {
			return Outcome{}, fmt.Errorf("reload match: %w", err)
		}
		if !ok {
			return Outcome{}, fmt.Errorf("match for pair %s vanished", pair.Key())
		}
		outcome := Outcome{Status: model.Matched(), Match: &stored}
		s.metrics.observe(outcome)
		return outcome, nil
	}

	event := model.MatchEvent{ID: s.newID(), Match: match, CreatedAt: now}
	if err := tx.AppendMatchEvent(ctx, event); err != nil {
		return Outcome{}, fmt.Errorf("append match event: %w", err)
	}

	outcome := Outcome{Status: model.Matched(), Match: &match, Created: true, Event: &event}
	s.metrics.observe(outcome)
	return outcome, nil
}

// Status reads the pair state between a and b without changing anything.
func (s *Service) Status(ctx context.Context, a, b int64) (model.PairStatus, error) {
	if a <= 0 || b <= 0 {
		return model.PairStatus{}, ErrValidation
	}
	// A user never has interest in or a match with themselves.
	if a == b {
		return model.NoInterest(), nil
	}
	if s.matchStore == nil {
		return model.PairStatus{}, fmt.Errorf("match store is nil: %w", repo.ErrUnavailable)
	}

	if _, ok, err := s.matchStore.GetMatch(ctx, model.NewPair(a, b)); err != nil {
		return model.PairStatus{}, err
	} else if ok {
		return model.Matched(), nil
	}

	signals, err := s.matchStore.PairSignals(ctx, a, []int64{b})
	if err != nil {
		return model.PairStatus{}, err
	}
	return statusFromSignals(a, b, signals[b]), nil
}

// Statuses is Status for one user against many peers in a single read.
func (s *Service) Statuses(ctx context.Context, userID int64, peers []int64) (map[int64]model.PairStatus, error) {
	if userID <= 0 {
		return nil, ErrValidation
	}
	if s.matchStore == nil {
		return nil, fmt.Errorf("match store is nil: %w", repo.ErrUnavailable)
	}

	out := make(map[int64]model.PairStatus, len(peers))
	if len(peers) == 0 {
		return out, nil
	}

	signals, err := s.matchStore.PairSignals(ctx, userID, peers)
	if err != nil {
		return nil, err
	}
	for _, peer := range peers {
		if peer == userID {
			continue
		}
		out[peer] = statusFromSignals(userID, peer, signals[peer])
	}
	return out, nil
}

func (s *Service) List(ctx context.Context, userID int64, limit int) ([]MatchItem, error) {
	if userID <= 0 {
		return nil, ErrValidation
	}
	if s.matchStore == nil {
		return nil, fmt.Errorf("match store is nil: %w", repo.ErrUnavailable)
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	rows, err := s.matchStore.ListMatchesForUser(ctx, userID, limit)
	if err != nil {
		return nil, err
	}

	items := make([]MatchItem, 0, len(rows))
	for _, row := range rows {
		own, theirs := row.ItemsFor(userID)
		items = append(items, MatchItem{
			MatchID:    row.ID,
			PeerUserID: row.Pair().Other(userID),
			OwnItemID:  own,
			PeerItemID: theirs,
			MatchedAt:  row.MatchedAt,
		})
	}
	return items, nil
}

func statusFromSignals(userID, peer int64, sig repo.PairSignals) model.PairStatus {
	switch {
	case sig.Matched:
		return model.Matched()
	case sig.Outgoing:
		return model.OneSided(userID, peer)
	case sig.Incoming:
		return model.OneSided(peer, userID)
	default:
		return model.NoInterest()
	}
}
