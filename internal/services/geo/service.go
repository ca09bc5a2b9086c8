package geo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/ivankudzin/swapspace/internal/config"
	"github.com/ivankudzin/swapspace/internal/domain/model"
	"github.com/ivankudzin/swapspace/internal/repo"
)

const EarthRadiusKM = 6371.0

var (
	ErrValidation        = errors.New("validation error")
	ErrInvalidCoordinate = errors.New("invalid coordinate")
	ErrNoCities          = errors.New("no cities configured")
)

type CoordinateStore interface {
	SaveCoordinate(ctx context.Context, coordinate model.Coordinate) error
	GetCoordinate(ctx context.Context, userID int64) (model.Coordinate, error)
}

type City struct {
	ID   string
	Name string
	Lat  float64
	Lon  float64
}

type Service struct {
	cities []City
	store  CoordinateStore
	now    func() time.Time
}

func NewService(cities []config.CityConfig, store CoordinateStore) *Service {
	mapped := make([]City, 0, len(cities))
	for _, city := range cities {
		if strings.TrimSpace(city.ID) == "" || strings.TrimSpace(city.Name) == "" {
			continue
		}
		mapped = append(mapped, City{ID: city.ID, Name: city.Name, Lat: city.Lat, Lon: city.Lon})
	}

	return &Service{
		cities: mapped,
		store:  store,
		now:    time.Now,
	}
}

// SetCoordinate overwrites the user's last known location and stamps it with
// the current time.
func (s *Service) SetCoordinate(ctx context.Context, userID int64, lat, lon float64) (model.Coordinate, error) {
	if userID <= 0 {
		return model.Coordinate{}, fmt.Errorf("invalid user id: %w", ErrValidation)
	}
	if err := ValidateCoordinates(lat, lon); err != nil {
		return model.Coordinate{}, err
	}
	if s.store == nil {
		return model.Coordinate{}, fmt.Errorf("coordinate store is nil: %w", repo.ErrUnavailable)
	}

	coordinate := model.Coordinate{
		UserID:     userID,
		Lat:        lat,
		Lon:        lon,
		CapturedAt: s.now().UTC(),
	}
	if city, err := s.ResolveNearestCity(lat, lon); err == nil {
		coordinate.CityID = city.ID
		coordinate.City = city.Name
	}

	if err := s.store.SaveCoordinate(ctx, coordinate); err != nil {
		return model.Coordinate{}, err
	}

	return coordinate, nil
}

// GetCoordinate reports ok=false for a user that never shared a location.
// The error is reserved for storage failures.
func (s *Service) GetCoordinate(ctx context.Context, userID int64) (model.Coordinate, bool, error) {
	if userID <= 0 || s.store == nil {
		return model.Coordinate{}, false, nil
	}

	coordinate, err := s.store.GetCoordinate(ctx, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return model.Coordinate{}, false, nil
		}
		return model.Coordinate{}, false, err
	}

	return coordinate, true, nil
}

func (s *Service) ResolveNearestCity(lat, lon float64) (City, error) {
	if err := ValidateCoordinates(lat, lon); err != nil {
		return City{}, err
	}
	if len(s.cities) == 0 {
		return City{}, ErrNoCities
	}

	nearest := s.cities[0]
	bestDistance := haversineKM(lat, lon, nearest.Lat, nearest.Lon)
	for _, city := range s.cities[1:] {
		distance := haversineKM(lat, lon, city.Lat, city.Lon)
		if distance < bestDistance {
			bestDistance = distance
			nearest = city
		}
	}

	return nearest, nil
}

func ValidateCoordinates(lat, lon float64) error {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return fmt.Errorf("non-finite coordinates: %w", ErrInvalidCoordinate)
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return fmt.Errorf("coordinates out of range: %w", ErrInvalidCoordinate)
	}
	return nil
}

// DistanceKM is the great-circle distance between two coordinates.
func DistanceKM(a, b model.Coordinate) float64 {
	return haversineKM(a.Lat, a.Lon, b.Lat, b.Lon)
}

func haversineKM(lat1, lon1, lat2, lon2 float64) float64 {
	toRad := func(v float64) float64 { return v * math.Pi / 180 }
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	a = math.Min(1, math.Max(0, a))
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusKM * c
}
