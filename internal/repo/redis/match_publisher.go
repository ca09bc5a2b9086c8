package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/ivankudzin/swapspace/internal/domain/model"
	"github.com/ivankudzin/swapspace/internal/repo"
)

// MatchEventMessage is the payload published for the chat side. EventID is
// stable across redeliveries.
type MatchEventMessage struct {
	EventID   string    `json:"event_id"`
	MatchID   string    `json:"match_id"`
	UserA     int64     `json:"user_a"`
	UserB     int64     `json:"user_b"`
	ItemA     int64     `json:"item_a"`
	ItemB     int64     `json:"item_b"`
	MatchedAt time.Time `json:"matched_at"`
}

type MatchPublisher struct {
	client  *goredis.Client
	channel string
}

func NewMatchPublisher(client *goredis.Client, channel string) *MatchPublisher {
	return &MatchPublisher{client: client, channel: channel}
}

func (p *MatchPublisher) PublishMatch(ctx context.Context, event model.MatchEvent) error {
	if p.client == nil {
		return fmt.Errorf("redis client is nil: %w", repo.ErrUnavailable)
	}
	if p.channel == "" {
		return fmt.Errorf("match channel is required")
	}

	payload, err := json.Marshal(MatchEventMessage{
		EventID:   event.ID.String(),
		MatchID:   event.Match.ID.String(),
		UserA:     event.Match.UserA,
		UserB:     event.Match.UserB,
		ItemA:     event.Match.ItemA,
		ItemB:     event.Match.ItemB,
		MatchedAt: event.Match.MatchedAt.UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal match event: %w", err)
	}

	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return classify("publish match event", err)
	}
	return nil
}
