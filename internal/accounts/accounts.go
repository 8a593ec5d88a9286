package accounts

import (
	"context"
	"errors"

	"github.com/example/ride-dispatch/internal/models"
)

var ErrUnknownParty = errors.New("unknown account")

// Store is the slice of the external account store the dispatch core
// mutates: cumulative counters and the driver's running rating. Profile
// CRUD lives elsewhere; this side only reads profiles and rewrites
// counters.
type Store interface {
	FindDriversByIDs(ctx context.Context, ids []string) ([]models.DriverProfile, error)
	AdjustDriverCounters(ctx context.Context, driverID string, earningsDelta int64, rideDelta int64) error
	AdjustRequesterCounters(ctx context.Context, requesterID string, spendDelta int64, rideDelta int64) error
	// DriverRating returns the current running average and the count of
	// rides it was computed over.
	DriverRating(ctx context.Context, driverID string) (avg float64, ratedRides int64, err error)
	SetDriverRating(ctx context.Context, driverID string, avg float64, ratedRides int64) error
	// ApplyDriverRating folds one rating into the running average as a
	// single atomic read-modify-write:
	//
	//	newAvg = (avg*rated + rating) / (rated+1)
	//
	// Concurrent folds for the same driver must serialize; none may be
	// lost. Returns the new average.
	ApplyDriverRating(ctx context.Context, driverID string, rating float64) (float64, error)
	DriverCounters(ctx context.Context, driverID string) (models.DriverCounters, error)
	RequesterCounters(ctx context.Context, requesterID string) (models.RequesterCounters, error)
}
