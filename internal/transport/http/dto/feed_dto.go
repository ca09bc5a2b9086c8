package dto

import "time"

type MatchStatusResponse struct {
	State string `json:"state"`
	From  int64  `json:"from_user_id,omitempty"`
	To    int64  `json:"to_user_id,omitempty"`
}

type FeedItemResponse struct {
	ItemID      int64               `json:"item_id"`
	OwnerID     int64               `json:"owner_id"`
	Title       string              `json:"title"`
	CategoryID  int64               `json:"category_id,omitempty"`
	PhotoURL    *string             `json:"photo_url,omitempty"`
	DistanceKM  float64             `json:"distance_km"`
	OwnerCity   string              `json:"owner_city,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	MatchStatus MatchStatusResponse `json:"match_status"`
}

type FeedResponse struct {
	Items []FeedItemResponse `json:"items"`
}
