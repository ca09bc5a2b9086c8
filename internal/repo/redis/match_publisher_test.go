package redis

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/ivankudzin/swapspace/internal/domain/model"
	"github.com/ivankudzin/swapspace/internal/repo"
)

func TestPublishMatchSendsPayload(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	sub := client.Subscribe(ctx, "matches")
	t.Cleanup(func() { _ = sub.Close() })
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	event := model.MatchEvent{
		ID: uuid.New(),
		Match: model.Match{
			ID:        uuid.New(),
			UserA:     1,
			UserB:     2,
			ItemA:     10,
			ItemB:     20,
			MatchedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		},
	}
	if err := NewMatchPublisher(client, "matches").PublishMatch(ctx, event); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case msg := <-sub.Channel():
		var got MatchEventMessage
		if err := json.Unmarshal([]byte(msg.Payload), &got); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if got.EventID != event.ID.String() || got.ItemA != 10 || got.ItemB != 20 {
			t.Fatalf("unexpected payload: %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no message received")
	}
}

func TestPublishMatchUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	err := NewMatchPublisher(client, "matches").PublishMatch(context.Background(), model.MatchEvent{ID: uuid.New()})
	if !errors.Is(err, repo.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	var netErr net.Error
	if !errors.As(err, &netErr) {
		t.Fatalf("expected the network error in the chain, got %v", err)
	}
}

func TestRateRepoWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	rates := NewRateRepo(client)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		count, ttl, err := rates.IncrementWindow(ctx, "k", 10*time.Second)
		if err != nil {
			t.Fatalf("increment: %v", err)
		}
		if count != want || ttl <= 0 || ttl > 10*time.Second {
			t.Fatalf("unexpected window: count=%d ttl=%s", count, ttl)
		}
	}

	count, _, err := rates.WindowState(ctx, "missing")
	if err != nil || count != 0 {
		t.Fatalf("expected empty window, got count=%d err=%v", count, err)
	}

	mr.FastForward(11 * time.Second)
	count, _, err = rates.WindowState(ctx, "k")
	if err != nil || count != 0 {
		t.Fatalf("expected expired window, got count=%d err=%v", count, err)
	}
}
