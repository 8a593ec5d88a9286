package registry

import (
	"context"
	"math"
	"testing"

	"github.com/example/ride-dispatch/internal/models"
)

func TestReportLastWriteWins(t *testing.T) {
	r := NewMemory()
	ctx := context.Background()
	if err := r.Report(ctx, "d1", models.Coord{Lat: 12.900, Lon: 77.500}); err != nil {
		t.Fatalf("report: %v", err)
	}
	if err := r.Report(ctx, "d1", models.Coord{Lat: 13.000, Lon: 77.600}); err != nil {
		t.Fatalf("report: %v", err)
	}
	p, ok, err := r.Lookup(ctx, "d1")
	if err != nil || !ok {
		t.Fatalf("lookup: ok=%v err=%v", ok, err)
	}
	if p.Loc.Lat != 13.000 || p.Loc.Lon != 77.600 {
		t.Fatalf("expected latest position, got %+v", p.Loc)
	}
}

func TestReportRejectsMalformed(t *testing.T) {
	r := NewMemory()
	ctx := context.Background()
	if err := r.Report(ctx, "d1", models.Coord{Lat: math.NaN(), Lon: 0}); err == nil {
		t.Fatal("expected error for NaN")
	}
	if err := r.Report(ctx, "d1", models.Coord{Lat: 95, Lon: 0}); err == nil {
		t.Fatal("expected error for out-of-range latitude")
	}
	if _, ok, _ := r.Lookup(ctx, "d1"); ok {
		t.Fatal("malformed report must not create an entry")
	}
}

func TestRemove(t *testing.T) {
	r := NewMemory()
	ctx := context.Background()
	_ = r.Report(ctx, "d1", models.Coord{Lat: 1, Lon: 1})
	if err := r.Remove(ctx, "d1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, ok, _ := r.Lookup(ctx, "d1"); ok {
		t.Fatal("expected entry gone after remove")
	}
	// removing an absent driver is a no-op
	if err := r.Remove(ctx, "d2"); err != nil {
		t.Fatalf("remove absent: %v", err)
	}
}

func TestWithinBoundaryInclusive(t *testing.T) {
	r := NewMemory()
	ctx := context.Background()
	_ = r.Report(ctx, "near", models.Coord{Lat: 12.900, Lon: 77.500})
	_ = r.Report(ctx, "far", models.Coord{Lat: 12.950, Lon: 77.550})

	center := models.Coord{Lat: 12.901, Lon: 77.499}
	got, err := r.Within(ctx, center, 500)
	if err != nil {
		t.Fatalf("within: %v", err)
	}
	if len(got) != 1 || got[0].DriverID != "near" {
		t.Fatalf("expected only near driver, got %+v", got)
	}

	got, err = r.Within(ctx, center, 1)
	if err != nil {
		t.Fatalf("within: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no drivers within 1m, got %+v", got)
	}
}

func TestWithinEmptyRegistry(t *testing.T) {
	r := NewMemory()
	got, err := r.Within(context.Background(), models.Coord{Lat: 0, Lon: 0}, 1000)
	if err != nil {
		t.Fatalf("within: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty result, got %+v", got)
	}
}
