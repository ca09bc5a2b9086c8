package dto

import "time"

type InterestRequest struct {
	ItemID int64 `json:"item_id"`
}

type InterestResponse struct {
	OK          bool                 `json:"ok"`
	Duplicate   bool                 `json:"duplicate,omitempty"`
	InterestID  int64                `json:"interest_id,omitempty"`
	MatchStatus *MatchStatusResponse `json:"match_status,omitempty"`
	Match       *MatchItemResponse   `json:"match,omitempty"`
}

type InterestItemResponse struct {
	ID        int64     `json:"id"`
	ItemID    int64     `json:"item_id"`
	OwnerID   int64     `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
}

type InterestsResponse struct {
	Items []InterestItemResponse `json:"items"`
}
