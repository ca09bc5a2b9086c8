package model

import "time"

type Coordinate struct {
	UserID     int64     `json:"user_id"`
	Lat        float64   `json:"lat"`
	Lon        float64   `json:"lon"`
	CityID     string    `json:"city_id"`
	City       string    `json:"city"`
	CapturedAt time.Time `json:"captured_at"`
}
