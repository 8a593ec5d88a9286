package storage

import (
	"context"
	"errors"

	"github.com/example/ride-dispatch/internal/models"
)

var (
	ErrNotFound = errors.New("ride not found")
)

// RideStore defines persistence operations for rides. Status transitions
// and rating writes are compare-and-set so callers can rely on them firing
// at most once.
type RideStore interface {
	Create(ctx context.Context, r *models.Ride) error
	Get(ctx context.Context, id string) (*models.Ride, error)
	// Transition moves id from `from` to `to` and reports whether the row
	// actually changed. A false return means the ride was not in `from`.
	Transition(ctx context.Context, id string, from, to models.RideStatus) (bool, error)
	// SetRating writes the rating iff the ride is completed and unrated.
	SetRating(ctx context.Context, id string, rating float64) (bool, error)
	// ClaimSettlement stamps SettledAt iff the ride is completed and not
	// yet settled; exactly one claimant wins. A completed ride with no
	// settlement stamp is one whose counter updates still have to run.
	ClaimSettlement(ctx context.Context, id string) (bool, error)
	// ReleaseSettlement clears the stamp so a failed settlement can be
	// claimed again.
	ReleaseSettlement(ctx context.Context, id string) error
	ActiveByDriver(ctx context.Context, driverID string) (*models.Ride, error)
	ActiveByRequester(ctx context.Context, requesterID string) (*models.Ride, error)
	// History returns terminal rides for the party, most-recent-first.
	HistoryByDriver(ctx context.Context, driverID string) ([]models.Ride, error)
	HistoryByRequester(ctx context.Context, requesterID string) ([]models.Ride, error)
}
