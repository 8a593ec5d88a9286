package fares

import (
	"context"
	"sync"
)

// Table resolves the fixed charge for a pickup/dropoff pair. A missing
// entry means the route is unserviceable; the pair is never priced any
// other way.
type Table interface {
	LookupRate(ctx context.Context, pickupID, dropoffID int) (int64, bool, error)
}

type routeKey struct {
	pickup, dropoff int
}

// Static is an in-memory fare table, loaded once at startup.
type Static struct {
	mu    sync.RWMutex
	rates map[routeKey]int64
}

func NewStatic(rates map[[2]int]int64) *Static {
	s := &Static{rates: make(map[routeKey]int64, len(rates))}
	for k, v := range rates {
		s.rates[routeKey{k[0], k[1]}] = v
	}
	return s
}

func (s *Static) LookupRate(_ context.Context, pickupID, dropoffID int) (int64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rate, ok := s.rates[routeKey{pickupID, dropoffID}]
	return rate, ok, nil
}

// Set adds or replaces a single route rate.
func (s *Static) Set(pickupID, dropoffID int, rate int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rates[routeKey{pickupID, dropoffID}] = rate
}
