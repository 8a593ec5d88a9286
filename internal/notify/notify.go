package notify

import "context"

// Notifier is the best-effort fan-out channel for match and lifecycle
// events. No delivery guarantee, no acknowledgment; the offer timeout is
// the compensating control for lost notifications.
type Notifier interface {
	Notify(ctx context.Context, partyID string, payload any) error
}

// Nop discards everything.
type Nop struct{}

func (Nop) Notify(context.Context, string, any) error { return nil }

// Fanout tries each notifier in order and stops at the first success.
// Failures are swallowed; a fully failed delivery is still not an error
// for the caller.
type Fanout []Notifier

func (f Fanout) Notify(ctx context.Context, partyID string, payload any) error {
	for _, n := range f {
		if err := n.Notify(ctx, partyID, payload); err == nil {
			return nil
		}
	}
	return nil
}
