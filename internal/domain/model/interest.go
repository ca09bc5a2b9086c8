package model

import "time"

// InterestEdge is append-only: FromUserID wants ItemID, which belongs to OwnerID.
type InterestEdge struct {
	ID         int64     `json:"id"`
	FromUserID int64     `json:"from_user_id"`
	ItemID     int64     `json:"item_id"`
	OwnerID    int64     `json:"owner_id"`
	CreatedAt  time.Time `json:"created_at"`
}

func (e InterestEdge) Pair() Pair {
	return NewPair(e.FromUserID, e.OwnerID)
}
