package geo

import (
	"math"
	"testing"

	"github.com/example/ride-dispatch/internal/models"
)

func TestHaversineZero(t *testing.T) {
	d := Haversine(0, 0, 0, 0)
	if d != 0 {
		t.Fatalf("expected 0, got %f", d)
	}
}

func TestHaversineShortHop(t *testing.T) {
	// ~150m between these two points in Bengaluru
	d := Haversine(12.900, 77.500, 12.901, 77.499)
	if d < 100 || d > 200 {
		t.Fatalf("expected ~150m, got %f", d)
	}
}

func TestValidateRejectsNaN(t *testing.T) {
	if err := Validate(models.Coord{Lat: math.NaN(), Lon: 77.5}); err == nil {
		t.Fatal("expected error for NaN latitude")
	}
	if err := Validate(models.Coord{Lat: 12.9, Lon: math.Inf(1)}); err == nil {
		t.Fatal("expected error for Inf longitude")
	}
}

func TestValidateRejectsOutOfRange(t *testing.T) {
	cases := []models.Coord{
		{Lat: 91, Lon: 0},
		{Lat: -91, Lon: 0},
		{Lat: 0, Lon: 181},
		{Lat: 0, Lon: -181},
	}
	for _, c := range cases {
		if err := Validate(c); err == nil {
			t.Fatalf("expected error for %+v", c)
		}
	}
	if err := Validate(models.Coord{Lat: 12.9, Lon: 77.5}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
