package dto

type ConfigResponse struct {
	Limits  ConfigLimitsResponse  `json:"limits"`
	Filters ConfigFiltersResponse `json:"filters"`
	Cities  []ConfigCityResponse  `json:"cities"`
}

type ConfigLimitsResponse struct {
	InterestsPerMinute int `json:"interests_per_minute"`
	InterestsPer10Sec  int `json:"interests_per_10_sec"`
}

type ConfigFiltersResponse struct {
	PageSizeDefault int     `json:"page_size_default"`
	PageSizeMax     int     `json:"page_size_max"`
	MaxDistanceKM   float64 `json:"max_distance_km"`
}

type ConfigCityResponse struct {
	ID   string  `json:"id"`
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}
