package handlers

import (
	"net/http"

	"github.com/ivankudzin/swapspace/internal/config"
	"github.com/ivankudzin/swapspace/internal/transport/http/dto"
	httperrors "github.com/ivankudzin/swapspace/internal/transport/http/errors"
)

type ConfigHandler struct {
	remote config.RemoteConfig
}

func NewConfigHandler(remote config.RemoteConfig) *ConfigHandler {
	return &ConfigHandler{remote: remote}
}

func (h *ConfigHandler) Handle(w http.ResponseWriter, _ *http.Request) {
	cities := make([]dto.ConfigCityResponse, 0, len(h.remote.Cities))
	for _, city := range h.remote.Cities {
		cities = append(cities, dto.ConfigCityResponse{
			ID:   city.ID,
			Name: city.Name,
			Lat:  city.Lat,
			Lon:  city.Lon,
		})
	}

	httperrors.Write(w, http.StatusOK, dto.ConfigResponse{
		Limits: dto.ConfigLimitsResponse{
			InterestsPerMinute: h.remote.Limits.InterestRatePerMinute,
			InterestsPer10Sec:  h.remote.Limits.InterestRatePer10Seconds,
		},
		Filters: dto.ConfigFiltersResponse{
			PageSizeDefault: h.remote.Filters.PageSizeDefault,
			PageSizeMax:     h.remote.Filters.PageSizeMax,
			MaxDistanceKM:   h.remote.Filters.MaxDistanceKM,
		},
		Cities: cities,
	})
}
