package geo

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/ivankudzin/swapspace/internal/config"
	"github.com/ivankudzin/swapspace/internal/domain/model"
	"github.com/ivankudzin/swapspace/internal/repo"
	"github.com/ivankudzin/swapspace/internal/repo/memory"
)

type failingStore struct{}

func (failingStore) SaveCoordinate(context.Context, model.Coordinate) error {
	return repo.ErrUnavailable
}

func (failingStore) GetCoordinate(context.Context, int64) (model.Coordinate, error) {
	return model.Coordinate{}, repo.ErrUnavailable
}

func TestResolveNearestCity(t *testing.T) {
	svc := NewService(config.Default().Remote.Cities, nil)

	tests := []struct {
		name   string
		lat    float64
		lon    float64
		cityID string
	}{
		{name: "warsaw", lat: 52.23, lon: 21.01, cityID: "warsaw"},
		{name: "poznan", lat: 52.40, lon: 16.93, cityID: "poznan"},
		{name: "krakow", lat: 50.06, lon: 19.94, cityID: "krakow"},
		{name: "gdansk", lat: 54.35, lon: 18.65, cityID: "gdansk"},
		{name: "lodz", lat: 51.76, lon: 19.46, cityID: "lodz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			city, err := svc.ResolveNearestCity(tt.lat, tt.lon)
			if err != nil {
				t.Fatalf("resolve nearest city: %v", err)
			}
			if city.ID != tt.cityID {
				t.Fatalf("unexpected city id: got %s want %s", city.ID, tt.cityID)
			}
		})
	}
}

func TestResolveNearestCityWithoutCities(t *testing.T) {
	svc := NewService(nil, nil)
	if _, err := svc.ResolveNearestCity(52.23, 21.01); !errors.Is(err, ErrNoCities) {
		t.Fatalf("expected ErrNoCities, got %v", err)
	}
}

func TestDistanceKM(t *testing.T) {
	warsaw := model.Coordinate{Lat: 52.23, Lon: 21.01}
	poznan := model.Coordinate{Lat: 52.40, Lon: 16.93}

	if d := DistanceKM(warsaw, warsaw); d != 0 {
		t.Fatalf("expected zero distance for identical points, got %f", d)
	}

	d := DistanceKM(warsaw, poznan)
	if math.Abs(d-279) > 3 {
		t.Fatalf("unexpected warsaw-poznan distance: %f", d)
	}
	if back := DistanceKM(poznan, warsaw); math.Abs(back-d) > 1e-9 {
		t.Fatalf("distance is not symmetric: %f vs %f", d, back)
	}

	antipodal := DistanceKM(model.Coordinate{Lat: 0, Lon: 0}, model.Coordinate{Lat: 0, Lon: 180})
	if math.Abs(antipodal-math.Pi*EarthRadiusKM) > 1 {
		t.Fatalf("unexpected antipodal distance: %f", antipodal)
	}
}

func TestValidateCoordinates(t *testing.T) {
	tests := []struct {
		name    string
		lat     float64
		lon     float64
		wantErr bool
	}{
		{name: "origin", lat: 0, lon: 0},
		{name: "bounds", lat: 90, lon: -180},
		{name: "lat too high", lat: 90.0001, lon: 0, wantErr: true},
		{name: "lat too low", lat: -91, lon: 0, wantErr: true},
		{name: "lon too high", lat: 0, lon: 180.5, wantErr: true},
		{name: "nan", lat: math.NaN(), lon: 0, wantErr: true},
		{name: "inf", lat: 0, lon: math.Inf(1), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCoordinates(tt.lat, tt.lon)
			if tt.wantErr && !errors.Is(err, ErrInvalidCoordinate) {
				t.Fatalf("expected ErrInvalidCoordinate, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestSetCoordinateRoundTrip(t *testing.T) {
	store := memory.NewStore()
	svc := NewService(config.Default().Remote.Cities, store)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	ctx := context.Background()
	if _, ok, err := svc.GetCoordinate(ctx, 7); err != nil || ok {
		t.Fatalf("expected unknown location, got ok=%v err=%v", ok, err)
	}

	saved, err := svc.SetCoordinate(ctx, 7, 52.23, 21.01)
	if err != nil {
		t.Fatalf("set coordinate: %v", err)
	}
	if saved.CityID != "warsaw" || !saved.CapturedAt.Equal(now) {
		t.Fatalf("unexpected saved coordinate: %+v", saved)
	}

	now = now.Add(time.Minute)
	if _, err := svc.SetCoordinate(ctx, 7, 52.40, 16.93); err != nil {
		t.Fatalf("overwrite coordinate: %v", err)
	}

	got, ok, err := svc.GetCoordinate(ctx, 7)
	if err != nil || !ok {
		t.Fatalf("get coordinate: ok=%v err=%v", ok, err)
	}
	if got.Lat != 52.40 || got.Lon != 16.93 || got.CityID != "poznan" {
		t.Fatalf("expected last write to win, got %+v", got)
	}
}

func TestSetCoordinateRejectsInvalidWithoutWriting(t *testing.T) {
	store := memory.NewStore()
	svc := NewService(nil, store)
	ctx := context.Background()

	if _, err := svc.SetCoordinate(ctx, 7, 52.23, 21.01); err != nil {
		t.Fatalf("set coordinate: %v", err)
	}
	if _, err := svc.SetCoordinate(ctx, 7, 95, 21.01); !errors.Is(err, ErrInvalidCoordinate) {
		t.Fatalf("expected ErrInvalidCoordinate, got %v", err)
	}

	got, _, _ := svc.GetCoordinate(ctx, 7)
	if got.Lat != 52.23 {
		t.Fatalf("rejected write changed state: %+v", got)
	}
	if got.CityID != "" {
		t.Fatalf("expected empty city label without cities, got %q", got.CityID)
	}
}

func TestStorageFailureSurfaces(t *testing.T) {
	svc := NewService(nil, failingStore{})
	ctx := context.Background()

	if _, err := svc.SetCoordinate(ctx, 7, 1, 1); !errors.Is(err, repo.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable on save, got %v", err)
	}
	if _, _, err := svc.GetCoordinate(ctx, 7); !errors.Is(err, repo.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable on get, got %v", err)
	}
}
