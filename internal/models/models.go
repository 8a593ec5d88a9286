package models

import "time"

type Coord struct {
	Lat float64 `json:"latitude"`
	Lon float64 `json:"longitude"`
}

// DriverPosition is the last-known position of a connected driver.
// Ephemeral: it lives in the registry only while the driver's channel is up.
type DriverPosition struct {
	DriverID   string    `json:"id"`
	Loc        Coord     `json:"location"`
	ObservedAt time.Time `json:"observed_at"`
}

// DriverProfile is the slice of the external account record exposed to
// requesters when they inspect nearby drivers.
type DriverProfile struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Vehicle string  `json:"vehicle,omitempty"`
	Rating  float64 `json:"rating"`
}

// Ride is the durable record of a matched trip. Charge is a fixed-point
// amount in minor currency units, resolved once from the fare table at
// creation and never recomputed.
type Ride struct {
	ID          string     `json:"id"`
	RequesterID string     `json:"requester_id"`
	DriverID    string     `json:"driver_id"`
	Charge      int64      `json:"charge"`
	PickupName  string     `json:"pickup_name"`
	DropoffName string     `json:"dropoff_name"`
	Distance    float64    `json:"distance"`
	Status      RideStatus `json:"status"`
	Rating      *float64   `json:"rating,omitempty"`
	PaymentRef  string     `json:"-"`
	SettledAt   *time.Time `json:"settled_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Rated reports whether a rating has been written for this ride.
func (r *Ride) Rated() bool { return r.Rating != nil }

// DriverCounters is the settlement-facing slice of a driver account:
// cumulative earnings and ride count plus the running average rating over
// RatedRides rated rides.
type DriverCounters struct {
	DriverID   string  `json:"driver_id"`
	Earnings   int64   `json:"earnings"`
	Rides      int64   `json:"rides"`
	Rating     float64 `json:"rating"`
	RatedRides int64   `json:"rated_rides"`
}

// RequesterCounters is the settlement-facing slice of a requester account.
type RequesterCounters struct {
	RequesterID string `json:"requester_id"`
	Spend       int64  `json:"spend"`
	Rides       int64  `json:"rides"`
}
