package handlers

import (
	"errors"
	"net/http"

	authsvc "github.com/ivankudzin/swapspace/internal/services/auth"
	geosvc "github.com/ivankudzin/swapspace/internal/services/geo"
	"github.com/ivankudzin/swapspace/internal/transport/http/dto"
	httperrors "github.com/ivankudzin/swapspace/internal/transport/http/errors"
)

type LocationHandler struct {
	service *geosvc.Service
}

func NewLocationHandler(service *geosvc.Service) *LocationHandler {
	return &LocationHandler{service: service}
}

// Set stores the caller's coordinate. A request without coordinates is
// acknowledged and changes nothing, so a failed device lookup never blocks
// the client.
func (h *LocationHandler) Set(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "LOCATION_SERVICE_UNAVAILABLE", "location service is unavailable")
		return
	}

	var req dto.LocationRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}
	if req.Lat == nil && req.Lon == nil {
		httperrors.Write(w, http.StatusOK, dto.LocationResponse{OK: true, Stored: false})
		return
	}
	if req.Lat == nil || req.Lon == nil {
		writeBadRequest(w, "VALIDATION_ERROR", "lat and lon must be sent together")
		return
	}

	coordinate, err := h.service.SetCoordinate(r.Context(), identity.UserID, *req.Lat, *req.Lon)
	if err != nil {
		switch {
		case errors.Is(err, geosvc.ErrInvalidCoordinate), errors.Is(err, geosvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid lat/lon")
		default:
			writeStorageError(w, err, "failed to store location")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, dto.LocationResponse{
		OK:         true,
		Stored:     true,
		Lat:        &coordinate.Lat,
		Lon:        &coordinate.Lon,
		CityID:     coordinate.CityID,
		CityName:   coordinate.City,
		CapturedAt: &coordinate.CapturedAt,
	})
}

func (h *LocationHandler) Get(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "LOCATION_SERVICE_UNAVAILABLE", "location service is unavailable")
		return
	}

	coordinate, found, err := h.service.GetCoordinate(r.Context(), identity.UserID)
	if err != nil {
		writeStorageError(w, err, "failed to load location")
		return
	}
	if !found {
		writeNotFound(w, "LOCATION_UNKNOWN", "no location stored")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.LocationResponse{
		OK:         true,
		Stored:     true,
		Lat:        &coordinate.Lat,
		Lon:        &coordinate.Lon,
		CityID:     coordinate.CityID,
		CityName:   coordinate.City,
		CapturedAt: &coordinate.CapturedAt,
	})
}
