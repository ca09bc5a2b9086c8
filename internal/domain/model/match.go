package model

import (
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/ivankudzin/swapspace/internal/domain/enums"
)

// Pair is an unordered user pair stored in canonical order (Low < High).
type Pair struct {
	Low  int64
	High int64
}

func NewPair(a, b int64) Pair {
	if a > b {
		a, b = b, a
	}
	return Pair{Low: a, High: b}
}

func (p Pair) Key() string {
	return strconv.FormatInt(p.Low, 10) + ":" + strconv.FormatInt(p.High, 10)
}

func (p Pair) Other(userID int64) int64 {
	if userID == p.Low {
		return p.High
	}
	return p.Low
}

// Match records reciprocal interest. UserA < UserB, ItemA is owned by UserA
// (wanted by UserB) and ItemB is owned by UserB (wanted by UserA).
type Match struct {
	ID        uuid.UUID `json:"id"`
	UserA     int64     `json:"user_a"`
	UserB     int64     `json:"user_b"`
	ItemA     int64     `json:"item_a"`
	ItemB     int64     `json:"item_b"`
	MatchedAt time.Time `json:"matched_at"`
}

func (m Match) Pair() Pair {
	return Pair{Low: m.UserA, High: m.UserB}
}

// ItemsFor returns the item owned by userID and the item owned by the peer.
func (m Match) ItemsFor(userID int64) (own, theirs int64) {
	if userID == m.UserA {
		return m.ItemA, m.ItemB
	}
	return m.ItemB, m.ItemA
}

// MatchEvent is the match-created notification handed to the chat side.
// Consumers deduplicate by ID.
type MatchEvent struct {
	ID          uuid.UUID  `json:"id"`
	Match       Match      `json:"match"`
	CreatedAt   time.Time  `json:"created_at"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
}

type PairStatus struct {
	State enums.PairState `json:"state"`
	// From/To are set only for one-sided state.
	From int64 `json:"from,omitempty"`
	To   int64 `json:"to,omitempty"`
}

func NoInterest() PairStatus {
	return PairStatus{State: enums.PairStateNoInterest}
}

func OneSided(from, to int64) PairStatus {
	return PairStatus{State: enums.PairStateOneSided, From: from, To: to}
}

func Matched() PairStatus {
	return PairStatus{State: enums.PairStateMatched}
}
