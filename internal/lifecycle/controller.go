package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/example/ride-dispatch/internal/fares"
	"github.com/example/ride-dispatch/internal/models"
	"github.com/example/ride-dispatch/internal/notify"
	"github.com/example/ride-dispatch/internal/observability"
	"github.com/example/ride-dispatch/internal/payments"
	"github.com/example/ride-dispatch/internal/settlement"
	"github.com/example/ride-dispatch/internal/storage"
)

var (
	ErrUnserviceableRoute = errors.New("no fare for this pickup/dropoff pair")
	ErrOfferNotFound      = errors.New("offer not pending")
	ErrActiveRideExists   = errors.New("party already has an active ride")
	ErrNotParticipant     = errors.New("actor is not a party to this ride")
	ErrNotActive          = errors.New("ride is not in processing status")
	ErrNotCompleted       = errors.New("ride is not completed")
	ErrAlreadyRated       = errors.New("ride already rated")
	ErrBadRating          = errors.New("rating must be between 1 and 5")
	ErrMissingField       = errors.New("missing required field")
)

// Controller drives the ride state machine: offer → processing →
// completed/cancelled, with exactly-once settlement on completion and an
// at-most-once rating afterwards.
type Controller struct {
	Rides    storage.RideStore
	Fares    fares.Table
	Settler  *settlement.Aggregator
	Offers   *OfferManager
	Payments payments.Gateway
	Notifier notify.Notifier
	Currency string
	Logger   *slog.Logger

	newID func() string
	now   func() time.Time
}

func NewController(rides storage.RideStore, table fares.Table, settler *settlement.Aggregator,
	offers *OfferManager, gw payments.Gateway, notifier notify.Notifier, logger *slog.Logger) *Controller {
	if gw == nil {
		gw = payments.Noop{}
	}
	return &Controller{
		Rides:    rides,
		Fares:    table,
		Settler:  settler,
		Offers:   offers,
		Payments: gw,
		Notifier: notifier,
		Currency: "usd",
		Logger:   logger,
		newID:    uuid.NewString,
		now:      time.Now,
	}
}

// ProposeParams carries everything a match offer needs; every field is
// required except Distance.
type ProposeParams struct {
	RequesterID string  `json:"requester_id"`
	DriverID    string  `json:"driver_id"`
	PickupID    int     `json:"pickup_id"`
	DropoffID   int     `json:"dropoff_id"`
	PickupName  string  `json:"pickup_name"`
	DropoffName string  `json:"dropoff_name"`
	Distance    float64 `json:"distance"`
}

// ProposeOffer validates the route is serviceable and neither party has an
// active ride, then hands the offer to the driver with the acceptance
// window armed. No ride record exists yet.
func (c *Controller) ProposeOffer(ctx context.Context, p ProposeParams) (*Offer, error) {
	if p.RequesterID == "" || p.DriverID == "" || p.PickupName == "" || p.DropoffName == "" {
		return nil, ErrMissingField
	}
	if _, ok, err := c.Fares.LookupRate(ctx, p.PickupID, p.DropoffID); err != nil {
		return nil, fmt.Errorf("fare lookup: %w", err)
	} else if !ok {
		return nil, ErrUnserviceableRoute
	}
	if err := c.requireNoActiveRide(ctx, p.DriverID, p.RequesterID); err != nil {
		return nil, err
	}
	o := Offer{
		ID:          c.newID(),
		RequesterID: p.RequesterID,
		DriverID:    p.DriverID,
		PickupID:    p.PickupID,
		DropoffID:   p.DropoffID,
		PickupName:  p.PickupName,
		DropoffName: p.DropoffName,
		Distance:    p.Distance,
		CreatedAt:   c.now(),
	}
	c.Offers.Propose(ctx, o)
	return &o, nil
}

// AcceptOffer turns a pending offer into a durable ride in processing
// status. This is the point of ride creation: charge is fixed here from
// the fare table and never recomputed.
func (c *Controller) AcceptOffer(ctx context.Context, offerID, driverID string) (*models.Ride, error) {
	o, ok := c.Offers.Take(offerID, driverID)
	if !ok {
		return nil, ErrOfferNotFound
	}
	rate, ok, err := c.Fares.LookupRate(ctx, o.PickupID, o.DropoffID)
	if err != nil {
		return nil, fmt.Errorf("fare lookup: %w", err)
	}
	if !ok {
		_ = c.Notifier.Notify(ctx, o.RequesterID, Event{Type: EventMatchDeclined, OfferID: o.ID, DriverID: driverID})
		return nil, ErrUnserviceableRoute
	}
	if err := c.requireNoActiveRide(ctx, o.DriverID, o.RequesterID); err != nil {
		return nil, err
	}

	now := c.now()
	ride := &models.Ride{
		ID:          c.newID(),
		RequesterID: o.RequesterID,
		DriverID:    o.DriverID,
		Charge:      rate,
		PickupName:  o.PickupName,
		DropoffName: o.DropoffName,
		Distance:    o.Distance,
		Status:      models.StatusProcessing,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	// best-effort hold; billing execution is external to the dispatch core
	if ref, err := c.Payments.Hold(ctx, ride.Charge, c.Currency, ride.RequesterID); err != nil {
		c.Logger.Warn("payment hold failed", "ride_id", ride.ID, "error", err)
	} else {
		ride.PaymentRef = ref
	}
	if err := c.Rides.Create(ctx, ride); err != nil {
		// no ride means no settlement will ever capture the hold
		if ride.PaymentRef != "" {
			if rerr := c.Payments.Release(ctx, ride.PaymentRef); rerr != nil {
				c.Logger.Error("orphaned payment hold", "ride_id", ride.ID, "payment_ref", ride.PaymentRef, "error", rerr)
			}
		}
		return nil, fmt.Errorf("create ride: %w", err)
	}
	observability.RidesCreated.Inc()
	c.Logger.Info("ride created", "ride_id", ride.ID, "driver_id", ride.DriverID,
		"requester_id", ride.RequesterID, "charge", ride.Charge)

	ev := Event{
		Type: EventRideCreated, RideID: ride.ID, OfferID: o.ID,
		DriverID: ride.DriverID, RequesterID: ride.RequesterID,
		PickupName: ride.PickupName, DropoffName: ride.DropoffName,
		Charge: ride.Charge, Status: string(ride.Status),
	}
	_ = c.Notifier.Notify(ctx, ride.RequesterID, ev)
	_ = c.Notifier.Notify(ctx, ride.DriverID, ev)
	return ride, nil
}

// DeclineOffer closes a pending offer without creating a ride and tells
// the requester to try someone else.
func (c *Controller) DeclineOffer(ctx context.Context, offerID, driverID string) error {
	o, ok := c.Offers.Take(offerID, driverID)
	if !ok {
		return ErrOfferNotFound
	}
	_ = c.Notifier.Notify(ctx, o.RequesterID, Event{Type: EventMatchDeclined, OfferID: o.ID, DriverID: driverID})
	return nil
}

// Complete settles the ride. The transition is a compare-and-set on the
// stored status, so a repeated completion call finds the ride already
// terminal. Settlement runs under its own claim stamp: if the counter
// updates fail after the status flipped, the ride stays completed but
// unstamped and a retry of Complete settles it, instead of the charge
// being lost forever.
func (c *Controller) Complete(ctx context.Context, rideID, actorID string) (*models.Ride, error) {
	ride, err := c.Rides.Get(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if actorID != ride.DriverID && actorID != ride.RequesterID {
		return nil, ErrNotParticipant
	}
	moved, err := c.Rides.Transition(ctx, rideID, models.StatusProcessing, models.StatusCompleted)
	if err != nil {
		return nil, fmt.Errorf("complete transition: %w", err)
	}
	if moved {
		ride.Status = models.StatusCompleted
		ride.UpdatedAt = c.now()
		observability.RidesCompleted.Inc()
	} else if ride.Status != models.StatusCompleted || ride.SettledAt != nil {
		return nil, ErrNotActive
	}

	won, err := c.Rides.ClaimSettlement(ctx, rideID)
	if err != nil {
		return nil, fmt.Errorf("claim settlement: %w", err)
	}
	if !won {
		// a concurrent caller holds the claim
		return ride, nil
	}
	if err := c.Settler.Settle(ctx, ride); err != nil {
		c.Logger.Error("settlement failed", "ride_id", ride.ID, "error", err)
		if rerr := c.Rides.ReleaseSettlement(ctx, rideID); rerr != nil {
			c.Logger.Error("settlement release failed", "ride_id", ride.ID, "error", rerr)
		}
		return nil, err
	}
	if ride.PaymentRef != "" {
		if err := c.Payments.Capture(ctx, ride.PaymentRef); err != nil {
			c.Logger.Warn("payment capture failed", "ride_id", ride.ID, "error", err)
		}
	}

	ev := Event{Type: EventRideCompleted, RideID: ride.ID, DriverID: ride.DriverID,
		RequesterID: ride.RequesterID, Charge: ride.Charge, Status: string(ride.Status)}
	_ = c.Notifier.Notify(ctx, ride.RequesterID, ev)
	_ = c.Notifier.Notify(ctx, ride.DriverID, ev)
	return ride, nil
}

// Cancel moves a processing ride to cancelled. No settlement side effects;
// a held payment is released.
func (c *Controller) Cancel(ctx context.Context, rideID, actorID string) (*models.Ride, error) {
	ride, err := c.Rides.Get(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if actorID != ride.DriverID && actorID != ride.RequesterID {
		return nil, ErrNotParticipant
	}
	moved, err := c.Rides.Transition(ctx, rideID, models.StatusProcessing, models.StatusCancelled)
	if err != nil {
		return nil, fmt.Errorf("cancel transition: %w", err)
	}
	if !moved {
		return nil, ErrNotActive
	}
	ride.Status = models.StatusCancelled
	ride.UpdatedAt = c.now()

	if ride.PaymentRef != "" {
		if err := c.Payments.Release(ctx, ride.PaymentRef); err != nil {
			c.Logger.Warn("payment release failed", "ride_id", ride.ID, "error", err)
		}
	}
	observability.RidesCancelled.Inc()

	ev := Event{Type: EventRideCancelled, RideID: ride.ID, DriverID: ride.DriverID,
		RequesterID: ride.RequesterID, Status: string(ride.Status)}
	_ = c.Notifier.Notify(ctx, ride.RequesterID, ev)
	_ = c.Notifier.Notify(ctx, ride.DriverID, ev)
	return ride, nil
}

// SubmitRating writes the one permitted rating for a completed ride and
// folds it into the driver's running average. Returns the new average.
func (c *Controller) SubmitRating(ctx context.Context, rideID, requesterID string, rating float64) (float64, error) {
	if rating < 1 || rating > 5 {
		return 0, ErrBadRating
	}
	ride, err := c.Rides.Get(ctx, rideID)
	if err != nil {
		return 0, err
	}
	if ride.RequesterID != requesterID {
		return 0, ErrNotParticipant
	}
	if ride.Status != models.StatusCompleted {
		return 0, ErrNotCompleted
	}
	applied, err := c.Rides.SetRating(ctx, rideID, rating)
	if err != nil {
		return 0, fmt.Errorf("write rating: %w", err)
	}
	if !applied {
		return 0, ErrAlreadyRated
	}
	newAvg, err := c.Settler.ApplyRating(ctx, ride.DriverID, rating)
	if err != nil {
		return 0, err
	}
	_ = c.Notifier.Notify(ctx, ride.DriverID, Event{
		Type: EventRideRated, RideID: ride.ID, DriverID: ride.DriverID, Rating: rating,
	})
	return newAvg, nil
}

// CurrentForDriver returns the driver's single processing ride, if any.
func (c *Controller) CurrentForDriver(ctx context.Context, driverID string) (*models.Ride, error) {
	return c.Rides.ActiveByDriver(ctx, driverID)
}

// CurrentForRequester returns the requester's single processing ride, if any.
func (c *Controller) CurrentForRequester(ctx context.Context, requesterID string) (*models.Ride, error) {
	return c.Rides.ActiveByRequester(ctx, requesterID)
}

// HistoryForDriver returns the driver's terminal rides, most recent first.
func (c *Controller) HistoryForDriver(ctx context.Context, driverID string) ([]models.Ride, error) {
	return c.Rides.HistoryByDriver(ctx, driverID)
}

// HistoryForRequester returns the requester's terminal rides, most recent first.
func (c *Controller) HistoryForRequester(ctx context.Context, requesterID string) ([]models.Ride, error) {
	return c.Rides.HistoryByRequester(ctx, requesterID)
}

func (c *Controller) requireNoActiveRide(ctx context.Context, driverID, requesterID string) error {
	if _, err := c.Rides.ActiveByDriver(ctx, driverID); err == nil {
		return ErrActiveRideExists
	} else if !errors.Is(err, storage.ErrNotFound) {
		return err
	}
	if _, err := c.Rides.ActiveByRequester(ctx, requesterID); err == nil {
		return ErrActiveRideExists
	} else if !errors.Is(err, storage.ErrNotFound) {
		return err
	}
	return nil
}
