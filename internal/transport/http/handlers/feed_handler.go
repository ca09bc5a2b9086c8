package handlers

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	authsvc "github.com/ivankudzin/swapspace/internal/services/auth"
	feedsvc "github.com/ivankudzin/swapspace/internal/services/feed"
	rankingsvc "github.com/ivankudzin/swapspace/internal/services/ranking"
	"github.com/ivankudzin/swapspace/internal/transport/http/dto"
	httperrors "github.com/ivankudzin/swapspace/internal/transport/http/errors"
)

type FeedHandler struct {
	service *feedsvc.Service
}

func NewFeedHandler(service *feedsvc.Service) *FeedHandler {
	return &FeedHandler{service: service}
}

func (h *FeedHandler) Handle(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "FEED_SERVICE_UNAVAILABLE", "feed service is unavailable")
		return
	}

	query, err := parseFeedQuery(r)
	if err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", err.Error())
		return
	}

	result, err := h.service.GetDashboardFeed(r.Context(), identity.UserID, query)
	if err != nil {
		switch {
		case errors.Is(err, rankingsvc.ErrLocationRequired):
			writeConflict(w, "LOCATION_REQUIRED", "share your location to see nearby items")
		case errors.Is(err, feedsvc.ErrValidation), errors.Is(err, rankingsvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid feed request")
		default:
			writeStorageError(w, err, "failed to load feed")
		}
		return
	}

	items := make([]dto.FeedItemResponse, 0, len(result.Items))
	for _, item := range result.Items {
		items = append(items, dto.FeedItemResponse{
			ItemID:      item.ItemID,
			OwnerID:     item.OwnerID,
			Title:       item.Title,
			CategoryID:  item.CategoryID,
			PhotoURL:    item.PhotoURL,
			DistanceKM:  math.Round(item.DistanceKM*10) / 10,
			OwnerCity:   item.OwnerCity,
			CreatedAt:   item.CreatedAt,
			MatchStatus: statusResponse(item.MatchStatus),
		})
	}

	httperrors.Write(w, http.StatusOK, dto.FeedResponse{Items: items})
}

// parseFeedQuery reads category_id, max_distance_km and limit. reset drops
// the filters and keeps only the limit.
func parseFeedQuery(r *http.Request) (feedsvc.Query, error) {
	values := r.URL.Query()
	query := feedsvc.Query{}

	if raw := strings.TrimSpace(values.Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return feedsvc.Query{}, errors.New("invalid limit")
		}
		query.Limit = limit
	}

	if reset, _ := strconv.ParseBool(strings.TrimSpace(values.Get("reset"))); reset {
		return query, nil
	}

	if raw := strings.TrimSpace(values.Get("category_id")); raw != "" {
		categoryID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || categoryID < 0 {
			return feedsvc.Query{}, errors.New("invalid category_id")
		}
		query.CategoryID = categoryID
	}

	if raw := strings.TrimSpace(values.Get("max_distance_km")); raw != "" {
		distance, err := strconv.ParseFloat(raw, 64)
		if err != nil || distance < 0 || math.IsNaN(distance) || math.IsInf(distance, 0) {
			return feedsvc.Query{}, errors.New("invalid max_distance_km")
		}
		query.MaxDistanceKM = distance
	}

	return query, nil
}
