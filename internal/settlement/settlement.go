package settlement

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/example/ride-dispatch/internal/accounts"
	"github.com/example/ride-dispatch/internal/models"
	"github.com/example/ride-dispatch/internal/observability"
)

// Aggregator applies the durable counter updates that follow a completed
// ride. The lifecycle controller claims the ride before calling Settle,
// so settlements for one ride never run concurrently and a failed attempt
// may be retried.
type Aggregator struct {
	Accounts accounts.Store
	Logger   *slog.Logger
}

// Settle credits the driver and debits the requester by the ride's charge
// and bumps both ride counts by one.
func (a *Aggregator) Settle(ctx context.Context, ride *models.Ride) error {
	if err := a.Accounts.AdjustDriverCounters(ctx, ride.DriverID, ride.Charge, 1); err != nil {
		return fmt.Errorf("settle driver %s: %w", ride.DriverID, err)
	}
	if err := a.Accounts.AdjustRequesterCounters(ctx, ride.RequesterID, ride.Charge, 1); err != nil {
		return fmt.Errorf("settle requester %s: %w", ride.RequesterID, err)
	}
	observability.Settlements.Inc()
	if a.Logger != nil {
		a.Logger.Info("ride settled", "ride_id", ride.ID, "driver_id", ride.DriverID,
			"requester_id", ride.RequesterID, "charge", ride.Charge)
	}
	return nil
}

// ApplyRating folds a new rating into the driver's running average using
// the count of previously rated rides, not total rides:
//
//	newAvg = (avg*rated + rating) / (rated+1)
//
// The fold is a single atomic read-modify-write in the account store, so
// concurrent submissions for the same driver never lose ratings.
func (a *Aggregator) ApplyRating(ctx context.Context, driverID string, rating float64) (float64, error) {
	newAvg, err := a.Accounts.ApplyDriverRating(ctx, driverID, rating)
	if err != nil {
		return 0, fmt.Errorf("apply rating for %s: %w", driverID, err)
	}
	return newAvg, nil
}
