package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ivankudzin/swapspace/internal/config"
	"github.com/ivankudzin/swapspace/internal/domain/enums"
	"github.com/ivankudzin/swapspace/internal/domain/model"
	"github.com/ivankudzin/swapspace/internal/repo/memory"
	authsvc "github.com/ivankudzin/swapspace/internal/services/auth"
	feedsvc "github.com/ivankudzin/swapspace/internal/services/feed"
	geosvc "github.com/ivankudzin/swapspace/internal/services/geo"
	interestssvc "github.com/ivankudzin/swapspace/internal/services/interests"
	matchessvc "github.com/ivankudzin/swapspace/internal/services/matches"
	rankingsvc "github.com/ivankudzin/swapspace/internal/services/ranking"
)

type handlerWorld struct {
	store     *memory.Store
	location  *LocationHandler
	feed      *FeedHandler
	interests *InterestsHandler
	matches   *MatchesHandler
}

func newHandlerWorld(limiter interestssvc.RateLimiter) handlerWorld {
	store := memory.NewStore()
	matches := matchessvc.NewService(matchessvc.Dependencies{MatchStore: store})
	interests := interestssvc.NewService(interestssvc.Dependencies{
		Catalog:       store,
		Pairs:         store,
		InterestStore: store,
		Detector:      matches,
		RateLimiter:   limiter,
	})
	feed := feedsvc.NewService(feedsvc.Dependencies{
		Catalog:  store,
		Ranker:   rankingsvc.NewService(store),
		Statuses: matches,
	}, feedsvc.Config{})

	return handlerWorld{
		store:     store,
		location:  NewLocationHandler(geosvc.NewService(config.Default().Remote.Cities, store)),
		feed:      NewFeedHandler(feed),
		interests: NewInterestsHandler(interests),
		matches:   NewMatchesHandler(matches),
	}
}

func (w handlerWorld) item(owner int64) model.Item {
	return w.store.PutItem(model.Item{OwnerID: owner, Title: "thing", Status: enums.ItemStatusActive})
}

func asUser(req *http.Request, userID int64) *http.Request {
	return req.WithContext(authsvc.WithIdentity(context.Background(), authsvc.Identity{
		UserID: userID,
		SID:    "sid",
		Role:   "user",
	}))
}

func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	var reader io.Reader = http.NoBody
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	return httptest.NewRequest(method, target, reader)
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), target); err != nil {
		t.Fatalf("decode response %q: %v", rr.Body.String(), err)
	}
}

func requireCode(t *testing.T, rr *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if rr.Code != status {
		t.Fatalf("unexpected status: got %d want %d (%s)", rr.Code, status, rr.Body.String())
	}
	var payload struct {
		Code string `json:"code"`
	}
	decodeBody(t, rr, &payload)
	if payload.Code != code {
		t.Fatalf("unexpected error code: got %q want %q", payload.Code, code)
	}
}
