package ws

import (
	"context"
	"time"
)

// DefaultReconnectDelay spaces reconnect attempts far enough apart that a
// fleet of dropped clients does not stampede the server.
const DefaultReconnectDelay = 3 * time.Second

// Reconnector is the client-side half of channel recovery: it dials, hands
// the connection to OnSession, and when the session ends for any reason
// waits a fixed delay before dialing again. Retries indefinitely until the
// context is cancelled.
type Reconnector struct {
	Dial      func(ctx context.Context) (Conn, error)
	OnSession func(ctx context.Context, conn Conn) error
	Delay     time.Duration
}

func (r *Reconnector) Run(ctx context.Context) error {
	delay := r.Delay
	if delay <= 0 {
		delay = DefaultReconnectDelay
	}
	for {
		conn, err := r.Dial(ctx)
		if err == nil {
			err = r.OnSession(ctx, conn)
			_ = conn.Close()
		}
		_ = err // session errors only interrupt this attempt
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}
