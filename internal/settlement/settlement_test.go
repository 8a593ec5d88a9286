package settlement

import (
	"context"
	"math"
	"sync"
	"testing"

	"github.com/example/ride-dispatch/internal/accounts"
	"github.com/example/ride-dispatch/internal/models"
)

func TestSettleDeltas(t *testing.T) {
	acc := accounts.NewMemory()
	a := &Aggregator{Accounts: acc}
	ride := &models.Ride{ID: "r1", DriverID: "d1", RequesterID: "u1", Charge: 10}
	ctx := context.Background()

	if err := a.Settle(ctx, ride); err != nil {
		t.Fatalf("settle: %v", err)
	}

	d, _ := acc.DriverCounters(ctx, "d1")
	if d.Earnings != 10 || d.Rides != 1 {
		t.Fatalf("driver counters: %+v", d)
	}
	r, _ := acc.RequesterCounters(ctx, "u1")
	if r.Spend != 10 || r.Rides != 1 {
		t.Fatalf("requester counters: %+v", r)
	}
}

func TestApplyRatingRunningAverage(t *testing.T) {
	acc := accounts.NewMemory()
	a := &Aggregator{Accounts: acc}
	ctx := context.Background()

	// driver with average 4.0 over 2 previously rated rides
	if err := acc.SetDriverRating(ctx, "d1", 4.0, 2); err != nil {
		t.Fatalf("seed: %v", err)
	}
	got, err := a.ApplyRating(ctx, "d1", 5)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	want := (4.0*2 + 5) / 3
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("expected %f, got %f", want, got)
	}
	avg, rated, _ := acc.DriverRating(ctx, "d1")
	if rated != 3 || math.Abs(avg-want) > 1e-9 {
		t.Fatalf("stored avg=%f rated=%d", avg, rated)
	}
}

func TestApplyRatingConcurrentSubmissions(t *testing.T) {
	acc := accounts.NewMemory()
	a := &Aggregator{Accounts: acc}
	ctx := context.Background()

	const workers = 8
	const perWorker = 50
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				if _, err := a.ApplyRating(ctx, "d1", 4); err != nil {
					t.Errorf("apply: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	avg, rated, _ := acc.DriverRating(ctx, "d1")
	if rated != workers*perWorker {
		t.Fatalf("lost ratings: rated=%d want %d", rated, workers*perWorker)
	}
	if math.Abs(avg-4) > 1e-9 {
		t.Fatalf("average drifted under identical ratings: %f", avg)
	}
}

func TestApplyRatingFirstRating(t *testing.T) {
	acc := accounts.NewMemory()
	a := &Aggregator{Accounts: acc}
	got, err := a.ApplyRating(context.Background(), "d1", 4.5)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got != 4.5 {
		t.Fatalf("first rating should become the average, got %f", got)
	}
}
