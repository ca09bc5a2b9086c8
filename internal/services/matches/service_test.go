package matches

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/ivankudzin/swapspace/internal/domain/enums"
	"github.com/ivankudzin/swapspace/internal/domain/model"
	"github.com/ivankudzin/swapspace/internal/repo"
	"github.com/ivankudzin/swapspace/internal/repo/memory"
)

func record(t *testing.T, store *memory.Store, svc *Service, from, item, owner int64) Outcome {
	t.Helper()

	var outcome Outcome
	err := store.WithinPair(context.Background(), model.NewPair(from, owner), func(ctx context.Context, tx repo.PairTx) error {
		edge, err := tx.InsertInterest(ctx, model.InterestEdge{FromUserID: from, ItemID: item, OwnerID: owner})
		if err != nil {
			return err
		}
		outcome, err = svc.Evaluate(ctx, tx, edge)
		return err
	})
	if err != nil {
		t.Fatalf("record %d->%d: %v", from, item, err)
	}
	return outcome
}

func TestEvaluateOneSidedThenMatched(t *testing.T) {
	store := memory.NewStore()
	metrics := NewMetrics()
	svc := NewService(Dependencies{MatchStore: store, Metrics: metrics})
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	first := record(t, store, svc, 1, 20, 2)
	if first.Status != model.OneSided(1, 2) || first.Created {
		t.Fatalf("unexpected first outcome: %+v", first)
	}

	status, err := svc.Status(context.Background(), 1, 2)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status != model.OneSided(1, 2) {
		t.Fatalf("unexpected status: %+v", status)
	}
	reverse, _ := svc.Status(context.Background(), 2, 1)
	if reverse != model.OneSided(1, 2) {
		t.Fatalf("status is not symmetric: %+v", reverse)
	}

	second := record(t, store, svc, 2, 10, 1)
	if second.Status.State != enums.PairStateMatched || !second.Created || second.Event == nil {
		t.Fatalf("unexpected second outcome: %+v", second)
	}
	match := second.Match
	if match.UserA != 1 || match.UserB != 2 || match.ItemA != 10 || match.ItemB != 20 {
		t.Fatalf("unexpected match: %+v", match)
	}
	if !match.MatchedAt.Equal(now) || second.Event.Match.ID != match.ID {
		t.Fatalf("unexpected event: %+v", second.Event)
	}

	third := record(t, store, svc, 1, 21, 2)
	if third.Status.State != enums.PairStateMatched || third.Created {
		t.Fatalf("matched pair must stay matched without a new match: %+v", third)
	}

	if got := testutil.ToFloat64(metrics.created); got != 1 {
		t.Fatalf("unexpected created counter: %v", got)
	}
	if got := testutil.ToFloat64(metrics.evaluations.WithLabelValues("matched")); got != 2 {
		t.Fatalf("unexpected matched evaluations: %v", got)
	}

	pending, _ := store.ListPendingEvents(context.Background(), 10)
	if len(pending) != 1 {
		t.Fatalf("expected exactly one match event, got %d", len(pending))
	}
}

func TestStatusesAndList(t *testing.T) {
	store := memory.NewStore()
	svc := NewService(Dependencies{MatchStore: store})

	record(t, store, svc, 1, 20, 2)
	record(t, store, svc, 2, 10, 1)
	record(t, store, svc, 3, 11, 1)

	statuses, err := svc.Statuses(context.Background(), 1, []int64{2, 3, 4})
	if err != nil {
		t.Fatalf("statuses: %v", err)
	}
	if statuses[2] != model.Matched() {
		t.Fatalf("unexpected status for 2: %+v", statuses[2])
	}
	if statuses[3] != model.OneSided(3, 1) {
		t.Fatalf("unexpected status for 3: %+v", statuses[3])
	}
	if statuses[4] != model.NoInterest() {
		t.Fatalf("unexpected status for 4: %+v", statuses[4])
	}

	items, err := svc.List(context.Background(), 2, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("unexpected matches: %+v", items)
	}
	if items[0].PeerUserID != 1 || items[0].OwnItemID != 20 || items[0].PeerItemID != 10 {
		t.Fatalf("unexpected match item: %+v", items[0])
	}
}

func TestStatusValidation(t *testing.T) {
	svc := NewService(Dependencies{MatchStore: memory.NewStore()})
	if _, err := svc.Status(context.Background(), 0, 1); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestStatusWithSelfIsNoInterest(t *testing.T) {
	svc := NewService(Dependencies{MatchStore: memory.NewStore()})
	status, err := svc.Status(context.Background(), 1, 1)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status != model.NoInterest() {
		t.Fatalf("expected no interest, got %+v", status)
	}
}

func TestMetricsRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := NewMetrics().Register(reg); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := NewMetrics().Register(reg); err == nil {
		t.Fatalf("expected duplicate registration to fail")
	}
}
