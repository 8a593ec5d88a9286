package lifecycle

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/example/ride-dispatch/internal/notify"
	"github.com/example/ride-dispatch/internal/observability"
)

// Offer is a proposal sent to one driver asking them to take a specific
// request. Offers are in-memory only: an offer that is not accepted before
// the window closes simply evaporates, no ride record is ever written.
type Offer struct {
	ID          string    `json:"id"`
	RequesterID string    `json:"requester_id"`
	DriverID    string    `json:"driver_id"`
	PickupID    int       `json:"pickup_id"`
	DropoffID   int       `json:"dropoff_id"`
	PickupName  string    `json:"pickup_name"`
	DropoffName string    `json:"dropoff_name"`
	Distance    float64   `json:"distance"`
	CreatedAt   time.Time `json:"created_at"`
}

// DefaultOfferWindow bounds how long a driver may sit on an offer.
const DefaultOfferWindow = 25 * time.Second

type pendingOffer struct {
	offer Offer
	timer *time.Timer
}

// OfferManager tracks pending offers and expires them after the acceptance
// window.
type OfferManager struct {
	Notifier notify.Notifier
	Window   time.Duration
	Logger   *slog.Logger

	mu      sync.Mutex
	pending map[string]*pendingOffer
}

func NewOfferManager(window time.Duration, notifier notify.Notifier, logger *slog.Logger) *OfferManager {
	if window <= 0 {
		window = DefaultOfferWindow
	}
	return &OfferManager{
		Notifier: notifier,
		Window:   window,
		Logger:   logger,
		pending:  make(map[string]*pendingOffer),
	}
}

// Propose stores the offer, pushes it to the driver, and arms the expiry
// timer.
func (m *OfferManager) Propose(ctx context.Context, o Offer) {
	m.mu.Lock()
	p := &pendingOffer{offer: o}
	p.timer = time.AfterFunc(m.Window, func() { m.expire(o.ID) })
	m.pending[o.ID] = p
	m.mu.Unlock()

	observability.OffersProposed.Inc()
	_ = m.Notifier.Notify(ctx, o.DriverID, Event{
		Type:        EventMatchOffer,
		OfferID:     o.ID,
		RequesterID: o.RequesterID,
		DriverID:    o.DriverID,
		PickupName:  o.PickupName,
		DropoffName: o.DropoffName,
	})
}

// Take removes and returns the pending offer for id, if the caller is the
// offered driver. The bool reports whether the offer was still pending;
// taking stops the expiry timer.
func (m *OfferManager) Take(id, driverID string) (Offer, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pending[id]
	if !ok || p.offer.DriverID != driverID {
		return Offer{}, false
	}
	p.timer.Stop()
	delete(m.pending, id)
	return p.offer, true
}

// Pending reports whether an offer is still waiting on the driver.
func (m *OfferManager) Pending(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.pending[id]
	return ok
}

func (m *OfferManager) expire(id string) {
	m.mu.Lock()
	p, ok := m.pending[id]
	if ok {
		delete(m.pending, id)
	}
	m.mu.Unlock()
	if !ok {
		return
	}
	observability.OffersExpired.Inc()
	m.Logger.Info("offer expired", "offer_id", id, "driver_id", p.offer.DriverID)
	// free the requester to issue a new request
	_ = m.Notifier.Notify(context.Background(), p.offer.RequesterID, Event{
		Type:     EventMatchTimeout,
		OfferID:  id,
		DriverID: p.offer.DriverID,
	})
}
