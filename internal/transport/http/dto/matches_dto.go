package dto

import "time"

type MatchItemResponse struct {
	ID           string    `json:"id"`
	TargetUserID int64     `json:"target_user_id"`
	OwnItemID    int64     `json:"own_item_id"`
	PeerItemID   int64     `json:"peer_item_id"`
	CreatedAt    time.Time `json:"created_at"`
}

type MatchesResponse struct {
	Items []MatchItemResponse `json:"items"`
}
