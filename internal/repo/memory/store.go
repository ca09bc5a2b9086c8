// Package memory is a process-local storage backend used in tests and when
// the service runs with storage.driver=memory.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ivankudzin/swapspace/internal/domain/model"
	"github.com/ivankudzin/swapspace/internal/pkg/keylock"
	"github.com/ivankudzin/swapspace/internal/repo"
)

// DefaultMaxEvents bounds the outbox. The oldest events go first once it is
// full, delivered or not.
const DefaultMaxEvents = 10000

type interestKey struct {
	fromUserID int64
	itemID     int64
}

type Store struct {
	mu          sync.RWMutex
	pairs       *keylock.Striped
	coordinates map[int64]model.Coordinate
	items       map[int64]model.Item
	interests   map[interestKey]model.InterestEdge
	matches     map[model.Pair]model.Match
	events      []model.MatchEvent
	maxEvents   int
	nextEdgeID  int64
	nextItemID  int64
}

func NewStore() *Store {
	return &Store{
		pairs:       keylock.New(0),
		coordinates: make(map[int64]model.Coordinate),
		items:       make(map[int64]model.Item),
		interests:   make(map[interestKey]model.InterestEdge),
		matches:     make(map[model.Pair]model.Match),
		maxEvents:   DefaultMaxEvents,
	}
}

// LimitEvents changes the outbox bound. n <= 0 restores the default.
func (s *Store) LimitEvents(n int) {
	if n <= 0 {
		n = DefaultMaxEvents
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maxEvents = n
	s.trimEvents()
}

func (s *Store) trimEvents() {
	if over := len(s.events) - s.maxEvents; over > 0 {
		s.events = append(s.events[:0], s.events[over:]...)
	}
}

func (s *Store) SaveCoordinate(ctx context.Context, coordinate model.Coordinate) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.coordinates[coordinate.UserID]; ok && prev.CapturedAt.After(coordinate.CapturedAt) {
		return nil
	}
	s.coordinates[coordinate.UserID] = coordinate
	return nil
}

func (s *Store) GetCoordinate(ctx context.Context, userID int64) (model.Coordinate, error) {
	if err := ctx.Err(); err != nil {
		return model.Coordinate{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	coordinate, ok := s.coordinates[userID]
	if !ok {
		return model.Coordinate{}, repo.ErrNotFound
	}
	return coordinate, nil
}

func (s *Store) GetCoordinates(ctx context.Context, userIDs []int64) (map[int64]model.Coordinate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[int64]model.Coordinate, len(userIDs))
	for _, id := range userIDs {
		if coordinate, ok := s.coordinates[id]; ok {
			out[id] = coordinate
		}
	}
	return out, nil
}

// PutItem stands in for the external catalog. A zero ID is assigned.
func (s *Store) PutItem(item model.Item) model.Item {
	s.mu.Lock()
	defer s.mu.Unlock()

	if item.ID == 0 {
		s.nextItemID++
		item.ID = s.nextItemID
	} else if item.ID > s.nextItemID {
		s.nextItemID = item.ID
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	s.items[item.ID] = item
	return item
}

func (s *Store) GetItem(ctx context.Context, itemID int64) (model.Item, error) {
	if err := ctx.Err(); err != nil {
		return model.Item{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[itemID]
	if !ok {
		return model.Item{}, repo.ErrNotFound
	}
	return item, nil
}

func (s *Store) ListActive(ctx context.Context, filter repo.CatalogFilter) ([]model.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	out := make([]model.Item, 0, len(s.items))
	for _, item := range s.items {
		if !item.Active() {
			continue
		}
		if filter.ExcludeOwnerID > 0 && item.OwnerID == filter.ExcludeOwnerID {
			continue
		}
		if filter.CategoryID > 0 && item.CategoryID != filter.CategoryID {
			continue
		}
		out = append(out, item)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *Store) ListInterestsByUser(ctx context.Context, userID int64, limit int) ([]model.InterestEdge, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	out := make([]model.InterestEdge, 0)
	for _, edge := range s.interests {
		if edge.FromUserID == userID {
			out = append(out, edge)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) GetMatch(ctx context.Context, pair model.Pair) (model.Match, bool, error) {
	if err := ctx.Err(); err != nil {
		return model.Match{}, false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	match, ok := s.matches[pair]
	return match, ok, nil
}

func (s *Store) ListMatchesForUser(ctx context.Context, userID int64, limit int) ([]model.Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	out := make([]model.Match, 0)
	for pair, match := range s.matches {
		if pair.Low == userID || pair.High == userID {
			out = append(out, match)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].MatchedAt.After(out[j].MatchedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) PairSignals(ctx context.Context, userID int64, peers []int64) (map[int64]repo.PairSignals, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	wanted := make(map[int64]struct{}, len(peers))
	for _, peer := range peers {
		wanted[peer] = struct{}{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[int64]repo.PairSignals, len(peers))
	for _, edge := range s.interests {
		switch {
		case edge.FromUserID == userID:
			if _, ok := wanted[edge.OwnerID]; ok {
				sig := out[edge.OwnerID]
				sig.Outgoing = true
				out[edge.OwnerID] = sig
			}
		case edge.OwnerID == userID:
			if _, ok := wanted[edge.FromUserID]; ok {
				sig := out[edge.FromUserID]
				sig.Incoming = true
				out[edge.FromUserID] = sig
			}
		}
	}
	for peer := range wanted {
		if _, ok := s.matches[model.NewPair(userID, peer)]; ok {
			sig := out[peer]
			sig.Matched = true
			out[peer] = sig
		}
	}
	return out, nil
}

func (s *Store) ListPendingEvents(ctx context.Context, limit int) ([]model.MatchEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.MatchEvent, 0)
	for _, event := range s.events {
		if event.DeliveredAt != nil {
			continue
		}
		out = append(out, event)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// PurgeDeliveredEvents drops delivered events older than cutoff.
func (s *Store) PurgeDeliveredEvents(ctx context.Context, cutoff time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.events[:0]
	var purged int64
	for _, event := range s.events {
		if event.DeliveredAt != nil && event.DeliveredAt.Before(cutoff) {
			purged++
			continue
		}
		kept = append(kept, event)
	}
	s.events = kept
	return purged, nil
}

func (s *Store) MarkEventDelivered(ctx context.Context, id uuid.UUID, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.events {
		if s.events[i].ID == id {
			if s.events[i].DeliveredAt == nil {
				delivered := at.UTC()
				s.events[i].DeliveredAt = &delivered
			}
			return nil
		}
	}
	return fmt.Errorf("mark event %s delivered: %w", id, repo.ErrNotFound)
}

// WithinPair runs fn under the pair's lock. Writes made through the tx are
// staged and applied only if fn succeeds and ctx is still live.
func (s *Store) WithinPair(ctx context.Context, pair model.Pair, fn func(context.Context, repo.PairTx) error) error {
	unlock := s.pairs.Lock(pair.Key())
	defer unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &pairTx{store: s, pair: pair}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, edge := range tx.interests {
		s.interests[interestKey{fromUserID: edge.FromUserID, itemID: edge.ItemID}] = edge
	}
	if tx.match != nil {
		s.matches[tx.match.Pair()] = *tx.match
	}
	s.events = append(s.events, tx.events...)
	s.trimEvents()
	return nil
}

type pairTx struct {
	store     *Store
	pair      model.Pair
	interests []model.InterestEdge
	match     *model.Match
	events    []model.MatchEvent
}

func (t *pairTx) InsertInterest(ctx context.Context, edge model.InterestEdge) (model.InterestEdge, error) {
	if err := t.guard(ctx, edge.Pair()); err != nil {
		return model.InterestEdge{}, err
	}

	key := interestKey{fromUserID: edge.FromUserID, itemID: edge.ItemID}
	for _, staged := range t.interests {
		if staged.FromUserID == key.fromUserID && staged.ItemID == key.itemID {
			return model.InterestEdge{}, repo.ErrDuplicateInterest
		}
	}

	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	if _, ok := t.store.interests[key]; ok {
		return model.InterestEdge{}, repo.ErrDuplicateInterest
	}
	t.store.nextEdgeID++
	edge.ID = t.store.nextEdgeID
	if edge.CreatedAt.IsZero() {
		edge.CreatedAt = time.Now().UTC()
	}

	t.interests = append(t.interests, edge)
	return edge, nil
}

func (t *pairTx) FindReciprocal(ctx context.Context, fromUserID, ownerID int64) (model.InterestEdge, bool, error) {
	if err := t.guard(ctx, model.NewPair(fromUserID, ownerID)); err != nil {
		return model.InterestEdge{}, false, err
	}

	var (
		best  model.InterestEdge
		found bool
	)
	consider := func(edge model.InterestEdge) {
		if edge.FromUserID != fromUserID || edge.OwnerID != ownerID {
			return
		}
		if !found || edge.CreatedAt.Before(best.CreatedAt) ||
			(edge.CreatedAt.Equal(best.CreatedAt) && edge.ID < best.ID) {
			best = edge
			found = true
		}
	}

	t.store.mu.RLock()
	for _, edge := range t.store.interests {
		consider(edge)
	}
	t.store.mu.RUnlock()
	for _, edge := range t.interests {
		consider(edge)
	}

	return best, found, nil
}

func (t *pairTx) GetMatch(ctx context.Context, pair model.Pair) (model.Match, bool, error) {
	if err := t.guard(ctx, pair); err != nil {
		return model.Match{}, false, err
	}
	if t.match != nil {
		return *t.match, true, nil
	}

	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	match, ok := t.store.matches[pair]
	return match, ok, nil
}

func (t *pairTx) CreateMatch(ctx context.Context, match model.Match) (bool, error) {
	if err := t.guard(ctx, match.Pair()); err != nil {
		return false, err
	}
	if _, exists, err := t.GetMatch(ctx, match.Pair()); err != nil || exists {
		return false, err
	}

	t.match = &match
	return true, nil
}

func (t *pairTx) AppendMatchEvent(ctx context.Context, event model.MatchEvent) error {
	if err := t.guard(ctx, event.Match.Pair()); err != nil {
		return err
	}
	t.events = append(t.events, event)
	return nil
}

func (t *pairTx) guard(ctx context.Context, pair model.Pair) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if pair != t.pair {
		return fmt.Errorf("pair %s is outside the locked pair %s", pair.Key(), t.pair.Key())
	}
	return nil
}
