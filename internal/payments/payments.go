package payments

import "context"

// Gateway holds a charge when a ride is created, captures it at settlement
// and releases it on cancellation. Delivery is best-effort around the ride
// lifecycle; billing execution itself is an external concern.
type Gateway interface {
	Hold(ctx context.Context, amount int64, currency, customerID string) (string, error)
	Capture(ctx context.Context, ref string) error
	Release(ctx context.Context, ref string) error
}

// Noop is used when no payment provider is configured.
type Noop struct{}

func (Noop) Hold(context.Context, int64, string, string) (string, error) { return "", nil }
func (Noop) Capture(context.Context, string) error                       { return nil }
func (Noop) Release(context.Context, string) error                       { return nil }
