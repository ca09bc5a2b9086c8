package handlers

import (
	"errors"
	"net/http"

	authsvc "github.com/ivankudzin/swapspace/internal/services/auth"
	interestssvc "github.com/ivankudzin/swapspace/internal/services/interests"
	"github.com/ivankudzin/swapspace/internal/transport/http/dto"
	httperrors "github.com/ivankudzin/swapspace/internal/transport/http/errors"
)

type InterestsHandler struct {
	service *interestssvc.Service
}

func NewInterestsHandler(service *interestssvc.Service) *InterestsHandler {
	return &InterestsHandler{service: service}
}

func (h *InterestsHandler) Record(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "INTERESTS_SERVICE_UNAVAILABLE", "interests service is unavailable")
		return
	}

	var req dto.InterestRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}

	result, err := h.service.Record(r.Context(), identity.UserID, req.ItemID)
	if err != nil {
		if tooFast, ok := interestssvc.IsTooFast(err); ok {
			httperrors.WriteRateLimited(w, "TOO_FAST", "too many interests, slow down", tooFast.RetryAfter())
			return
		}

		switch {
		case errors.Is(err, interestssvc.ErrDuplicateInterest):
			resp := dto.InterestResponse{OK: true, Duplicate: true}
			if dup, ok := interestssvc.IsDuplicate(err); ok {
				status := statusResponse(dup.Status)
				resp.MatchStatus = &status
			}
			httperrors.Write(w, http.StatusOK, resp)
		case errors.Is(err, interestssvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid item_id")
		case errors.Is(err, interestssvc.ErrItemNotFound):
			writeNotFound(w, "ITEM_NOT_FOUND", "item not found")
		case errors.Is(err, interestssvc.ErrItemUnavailable):
			writeConflict(w, "ITEM_UNAVAILABLE", "item is no longer available")
		case errors.Is(err, interestssvc.ErrSelfInterest):
			writeConflict(w, "SELF_INTEREST", "cannot express interest in your own item")
		default:
			writeStorageError(w, err, "failed to record interest")
		}
		return
	}

	status := statusResponse(result.Status)
	resp := dto.InterestResponse{
		OK:          true,
		InterestID:  result.Edge.ID,
		MatchStatus: &status,
	}
	if result.Match != nil {
		match := matchResponse(*result.Match, identity.UserID)
		resp.Match = &match
	}

	httperrors.Write(w, http.StatusOK, resp)
}

func (h *InterestsHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "INTERESTS_SERVICE_UNAVAILABLE", "interests service is unavailable")
		return
	}

	edges, err := h.service.List(r.Context(), identity.UserID, parseIntOrDefault(r.URL.Query().Get("limit"), 50))
	if err != nil {
		if errors.Is(err, interestssvc.ErrValidation) {
			writeBadRequest(w, "VALIDATION_ERROR", "invalid interests request")
			return
		}
		writeStorageError(w, err, "failed to load interests")
		return
	}

	items := make([]dto.InterestItemResponse, 0, len(edges))
	for _, edge := range edges {
		items = append(items, dto.InterestItemResponse{
			ID:        edge.ID,
			ItemID:    edge.ItemID,
			OwnerID:   edge.OwnerID,
			CreatedAt: edge.CreatedAt,
		})
	}

	httperrors.Write(w, http.StatusOK, dto.InterestsResponse{Items: items})
}
