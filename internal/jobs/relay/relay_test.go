package relay

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ivankudzin/swapspace/internal/domain/model"
	"github.com/ivankudzin/swapspace/internal/repo"
	"github.com/ivankudzin/swapspace/internal/repo/memory"
)

type fakePublisher struct {
	mu        sync.Mutex
	failUntil int
	calls     int
	published []uuid.UUID
}

func (p *fakePublisher) PublishMatch(_ context.Context, event model.MatchEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.calls <= p.failUntil {
		return repo.ErrUnavailable
	}
	p.published = append(p.published, event.ID)
	return nil
}

func appendEvent(t *testing.T, store *memory.Store, a, b int64) model.MatchEvent {
	t.Helper()
	event := model.MatchEvent{
		ID:        uuid.New(),
		Match:     model.Match{ID: uuid.New(), UserA: a, UserB: b},
		CreatedAt: time.Now().UTC(),
	}
	err := store.WithinPair(context.Background(), model.NewPair(a, b), func(ctx context.Context, tx repo.PairTx) error {
		return tx.AppendMatchEvent(ctx, event)
	})
	if err != nil {
		t.Fatalf("append event: %v", err)
	}
	return event
}

func TestNotifyMarksDelivered(t *testing.T) {
	store := memory.NewStore()
	publisher := &fakePublisher{}
	job := New(store, publisher, 10, nil)
	event := appendEvent(t, store, 1, 2)

	job.Notify(context.Background(), event)

	pending, _ := store.ListPendingEvents(context.Background(), 10)
	if len(pending) != 0 {
		t.Fatalf("expected no pending events, got %d", len(pending))
	}
	if len(publisher.published) != 1 {
		t.Fatalf("expected one publish, got %d", len(publisher.published))
	}
}

func TestFailedNotifyIsRetriedByRun(t *testing.T) {
	store := memory.NewStore()
	publisher := &fakePublisher{failUntil: 1}
	job := New(store, publisher, 1, nil)
	first := appendEvent(t, store, 1, 2)
	appendEvent(t, store, 3, 4)

	job.Notify(context.Background(), first)
	pending, _ := store.ListPendingEvents(context.Background(), 10)
	if len(pending) != 2 {
		t.Fatalf("failed publish must stay pending, got %d pending", len(pending))
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run relay: %v", err)
	}
	pending, _ = store.ListPendingEvents(context.Background(), 10)
	if len(pending) != 0 {
		t.Fatalf("expected all events delivered, got %d pending", len(pending))
	}
	if publisher.published[0] != first.ID {
		t.Fatalf("expected oldest event first")
	}
}

func TestRunStopsOnPublishFailure(t *testing.T) {
	store := memory.NewStore()
	publisher := &fakePublisher{failUntil: 10}
	job := New(store, publisher, 10, nil)
	appendEvent(t, store, 1, 2)

	if err := job.Run(context.Background()); !errors.Is(err, repo.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	pending, _ := store.ListPendingEvents(context.Background(), 10)
	if len(pending) != 1 {
		t.Fatalf("expected event to stay pending, got %d", len(pending))
	}
}

func TestLoopStopsWithContext(t *testing.T) {
	store := memory.NewStore()
	publisher := &fakePublisher{}
	job := New(store, publisher, 10, nil)
	appendEvent(t, store, 1, 2)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		job.Loop(ctx, 5*time.Millisecond)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for {
		pending, _ := store.ListPendingEvents(context.Background(), 10)
		if len(pending) == 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("loop did not relay pending event")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("loop did not stop after cancel")
	}
}

func TestDisabledJobLeavesEventsPending(t *testing.T) {
	store := memory.NewStore()
	job := New(store, nil, 10, nil)
	event := appendEvent(t, store, 1, 2)

	if job.Enabled() {
		t.Fatalf("job without publisher must be disabled")
	}
	job.Notify(context.Background(), event)

	done := make(chan struct{})
	go func() {
		job.Loop(context.Background(), time.Millisecond)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("loop must return at once without a publisher")
	}

	pending, _ := store.ListPendingEvents(context.Background(), 10)
	if len(pending) != 1 || pending[0].ID != event.ID {
		t.Fatalf("unexpected pending events: %+v", pending)
	}
}
