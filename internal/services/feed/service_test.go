package feed

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/ivankudzin/swapspace/internal/config"
	"github.com/ivankudzin/swapspace/internal/domain/enums"
	"github.com/ivankudzin/swapspace/internal/domain/model"
	"github.com/ivankudzin/swapspace/internal/repo/memory"
	geosvc "github.com/ivankudzin/swapspace/internal/services/geo"
	interestssvc "github.com/ivankudzin/swapspace/internal/services/interests"
	matchessvc "github.com/ivankudzin/swapspace/internal/services/matches"
	rankingsvc "github.com/ivankudzin/swapspace/internal/services/ranking"
)

type stubSigner struct {
	fail bool
}

func (s stubSigner) PresignGet(_ context.Context, key string, _ time.Duration) (string, error) {
	if s.fail {
		return "", errors.New("signer down")
	}
	return "https://cdn.test/" + key, nil
}

type world struct {
	store     *memory.Store
	geo       *geosvc.Service
	interests *interestssvc.Service
	matches   *matchessvc.Service
	feed      *Service
}

func newWorld() world {
	store := memory.NewStore()
	matches := matchessvc.NewService(matchessvc.Dependencies{MatchStore: store})
	return world{
		store:   store,
		geo:     geosvc.NewService(config.Default().Remote.Cities, store),
		matches: matches,
		interests: interestssvc.NewService(interestssvc.Dependencies{
			Catalog:       store,
			Pairs:         store,
			InterestStore: store,
			Detector:      matches,
		}),
		feed: NewService(Dependencies{
			Catalog:  store,
			Ranker:   rankingsvc.NewService(store),
			Statuses: matches,
		}, Config{}),
	}
}

func (w world) locate(t *testing.T, userID int64, lat, lon float64) {
	t.Helper()
	if _, err := w.geo.SetCoordinate(context.Background(), userID, lat, lon); err != nil {
		t.Fatalf("set coordinate %d: %v", userID, err)
	}
}

func TestDashboardFeedScenario(t *testing.T) {
	w := newWorld()
	ctx := context.Background()
	const alice, bob = int64(1), int64(2)

	w.locate(t, alice, 52.23, 21.01)
	bike := w.store.PutItem(model.Item{OwnerID: bob, Title: "bike", Status: enums.ItemStatusActive, PhotoKey: "items/bike.jpg"})
	lamp := w.store.PutItem(model.Item{OwnerID: alice, Title: "lamp", Status: enums.ItemStatusActive})
	w.locate(t, bob, 52.40, 16.93)
	w.feed.AttachPhotoSigner(stubSigner{})

	result, err := w.feed.GetDashboardFeed(ctx, alice, Query{})
	if err != nil {
		t.Fatalf("feed: %v", err)
	}
	if len(result.Items) != 1 || result.Items[0].ItemID != bike.ID {
		t.Fatalf("unexpected feed: %+v", result.Items)
	}
	entry := result.Items[0]
	if math.Abs(entry.DistanceKM-279) > 3 {
		t.Fatalf("unexpected distance: %f", entry.DistanceKM)
	}
	if entry.MatchStatus != model.NoInterest() || entry.OwnerCity != "Poznan" {
		t.Fatalf("unexpected entry: %+v", entry)
	}
	if entry.PhotoURL == nil || *entry.PhotoURL != "https://cdn.test/items/bike.jpg" {
		t.Fatalf("unexpected photo url: %v", entry.PhotoURL)
	}

	if _, err := w.interests.Record(ctx, alice, bike.ID); err != nil {
		t.Fatalf("alice -> bike: %v", err)
	}
	result, _ = w.feed.GetDashboardFeed(ctx, alice, Query{})
	if result.Items[0].MatchStatus != model.OneSided(alice, bob) {
		t.Fatalf("expected one-sided status, got %+v", result.Items[0].MatchStatus)
	}

	if _, err := w.interests.Record(ctx, bob, lamp.ID); err != nil {
		t.Fatalf("bob -> lamp: %v", err)
	}
	result, _ = w.feed.GetDashboardFeed(ctx, alice, Query{})
	if result.Items[0].MatchStatus != model.Matched() {
		t.Fatalf("expected matched status, got %+v", result.Items[0].MatchStatus)
	}
}

func TestDashboardFeedRequiresLocation(t *testing.T) {
	w := newWorld()
	w.store.PutItem(model.Item{OwnerID: 2, Status: enums.ItemStatusActive})

	_, err := w.feed.GetDashboardFeed(context.Background(), 1, Query{})
	if !errors.Is(err, rankingsvc.ErrLocationRequired) {
		t.Fatalf("expected ErrLocationRequired, got %v", err)
	}
}

func TestDashboardFeedFilters(t *testing.T) {
	w := newWorld()
	w.locate(t, 1, 52.23, 21.01)
	w.locate(t, 2, 52.25, 21.00) // a few km away
	w.locate(t, 3, 52.40, 16.93) // poznan
	near := w.store.PutItem(model.Item{OwnerID: 2, CategoryID: 1, Status: enums.ItemStatusActive})
	w.store.PutItem(model.Item{OwnerID: 2, CategoryID: 2, Status: enums.ItemStatusActive})
	w.store.PutItem(model.Item{OwnerID: 3, CategoryID: 1, Status: enums.ItemStatusActive})
	w.feed.AttachPhotoSigner(stubSigner{fail: true})
	ctx := context.Background()

	result, err := w.feed.GetDashboardFeed(ctx, 1, Query{CategoryID: 1, MaxDistanceKM: 50})
	if err != nil {
		t.Fatalf("feed: %v", err)
	}
	if len(result.Items) != 1 || result.Items[0].ItemID != near.ID {
		t.Fatalf("unexpected filtered feed: %+v", result.Items)
	}
	if result.Items[0].PhotoURL != nil {
		t.Fatalf("expected no photo url")
	}

	result, _ = w.feed.GetDashboardFeed(ctx, 1, Query{Limit: 2})
	if len(result.Items) != 2 {
		t.Fatalf("expected limit to apply, got %d", len(result.Items))
	}

	if _, err := w.feed.GetDashboardFeed(ctx, 1, Query{MaxDistanceKM: -1}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}
