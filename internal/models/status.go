package models

// RideStatus is the lifecycle state of a ride.
type RideStatus string

const (
	StatusProcessing RideStatus = "processing"
	StatusCompleted  RideStatus = "completed"
	StatusCancelled  RideStatus = "cancelled"
)

var validTransitions = map[RideStatus][]RideStatus{
	StatusProcessing: {StatusCompleted, StatusCancelled},
	StatusCompleted:  {},
	StatusCancelled:  {},
}

// IsValid reports whether s is a recognized ride status.
func (s RideStatus) IsValid() bool {
	_, ok := validTransitions[s]
	return ok
}

// CanTransitionTo reports whether a transition from s to target is allowed.
func (s RideStatus) CanTransitionTo(target RideStatus) bool {
	for _, t := range validTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible from s.
func (s RideStatus) IsTerminal() bool {
	return len(validTransitions[s]) == 0
}
