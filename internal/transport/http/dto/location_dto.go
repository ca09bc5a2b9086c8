package dto

import "time"

// LocationRequest carries optional coordinates: clients send an empty body
// when the device could not provide a fix.
type LocationRequest struct {
	Lat *float64 `json:"lat"`
	Lon *float64 `json:"lon"`
}

type LocationResponse struct {
	OK         bool       `json:"ok"`
	Stored     bool       `json:"stored"`
	Lat        *float64   `json:"lat,omitempty"`
	Lon        *float64   `json:"lon,omitempty"`
	CityID     string     `json:"city_id,omitempty"`
	CityName   string     `json:"city_name,omitempty"`
	CapturedAt *time.Time `json:"captured_at,omitempty"`
}
