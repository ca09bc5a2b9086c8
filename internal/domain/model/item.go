package model

import (
	"time"

	"github.com/ivankudzin/swapspace/internal/domain/enums"
)

type Item struct {
	ID         int64            `json:"id"`
	OwnerID    int64            `json:"owner_id"`
	Title      string           `json:"title"`
	CategoryID int64            `json:"category_id"`
	Status     enums.ItemStatus `json:"status"`
	PhotoKey   string           `json:"photo_key"`
	CreatedAt  time.Time        `json:"created_at"`
}

func (i Item) Active() bool {
	return i.Status == enums.ItemStatusActive
}
