package lifecycle

// Event is the payload pushed over the notification channel for match and
// ride transitions. Delivery is best-effort; the offer timeout compensates
// for anything lost.
type Event struct {
	Type        string  `json:"type"`
	OfferID     string  `json:"offer_id,omitempty"`
	RideID      string  `json:"ride_id,omitempty"`
	DriverID    string  `json:"driver_id,omitempty"`
	RequesterID string  `json:"requester_id,omitempty"`
	PickupName  string  `json:"pickup_name,omitempty"`
	DropoffName string  `json:"dropoff_name,omitempty"`
	Charge      int64   `json:"charge,omitempty"`
	Status      string  `json:"status,omitempty"`
	Rating      float64 `json:"rating,omitempty"`
}

const (
	EventMatchOffer    = "matchOffer"
	EventMatchTimeout  = "matchTimeout"
	EventMatchDeclined = "matchDeclined"
	EventRideCreated   = "rideCreated"
	EventRideCompleted = "rideCompleted"
	EventRideCancelled = "rideCancelled"
	EventRideRated     = "rideRated"
)
