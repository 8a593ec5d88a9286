package matcher

import (
	"context"
	"math"
	"testing"

	"github.com/example/ride-dispatch/internal/models"
	"github.com/example/ride-dispatch/internal/registry"
)

func TestFindWithinScenario(t *testing.T) {
	reg := registry.NewMemory()
	ctx := context.Background()
	_ = reg.Report(ctx, "d1", models.Coord{Lat: 12.900, Lon: 77.500})

	s := &Service{Registry: reg, DefaultRadius: 1000}
	center := models.Coord{Lat: 12.901, Lon: 77.499}

	got, err := s.FindWithin(ctx, center, 500)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(got) != 1 || got[0].DriverID != "d1" {
		t.Fatalf("expected d1 within 500m, got %+v", got)
	}

	got, err = s.FindWithin(ctx, center, 1)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected d1 excluded at 1m, got %+v", got)
	}
}

func TestFindWithinDefaultRadius(t *testing.T) {
	reg := registry.NewMemory()
	ctx := context.Background()
	_ = reg.Report(ctx, "d1", models.Coord{Lat: 12.900, Lon: 77.500})

	s := &Service{Registry: reg, DefaultRadius: 500}
	got, err := s.FindWithin(ctx, models.Coord{Lat: 12.901, Lon: 77.499}, 0)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected default radius to apply, got %+v", got)
	}
}

func TestFindWithinRejectsBadQuery(t *testing.T) {
	s := &Service{Registry: registry.NewMemory(), DefaultRadius: 0}
	if _, err := s.FindWithin(context.Background(), models.Coord{Lat: math.NaN(), Lon: 0}, 100); err == nil {
		t.Fatal("expected error for NaN center")
	}
	if _, err := s.FindWithin(context.Background(), models.Coord{Lat: 0, Lon: 0}, -5); err == nil {
		t.Fatal("expected error for negative radius")
	}
	if _, err := s.FindWithin(context.Background(), models.Coord{Lat: 0, Lon: 0}, 0); err == nil {
		t.Fatal("expected error when no default radius is configured")
	}
}
