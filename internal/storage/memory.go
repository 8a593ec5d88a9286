package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/example/ride-dispatch/internal/models"
)

// MemoryStore keeps rides in a mutex-guarded map. Used for local runs and
// tests; the CAS semantics mirror the postgres implementation.
type MemoryStore struct {
	mu    sync.RWMutex
	rides map[string]*models.Ride
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rides: make(map[string]*models.Ride)}
}

func (m *MemoryStore) Create(_ context.Context, r *models.Ride) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	m.rides[r.ID] = &cp
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*models.Ride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rides[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *MemoryStore) Transition(_ context.Context, id string, from, to models.RideStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rides[id]
	if !ok {
		return false, ErrNotFound
	}
	if r.Status != from {
		return false, nil
	}
	r.Status = to
	r.UpdatedAt = time.Now()
	return true, nil
}

func (m *MemoryStore) SetRating(_ context.Context, id string, rating float64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rides[id]
	if !ok {
		return false, ErrNotFound
	}
	if r.Status != models.StatusCompleted || r.Rating != nil {
		return false, nil
	}
	r.Rating = &rating
	r.UpdatedAt = time.Now()
	return true, nil
}

func (m *MemoryStore) ClaimSettlement(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rides[id]
	if !ok {
		return false, ErrNotFound
	}
	if r.Status != models.StatusCompleted || r.SettledAt != nil {
		return false, nil
	}
	now := time.Now()
	r.SettledAt = &now
	return true, nil
}

func (m *MemoryStore) ReleaseSettlement(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rides[id]
	if !ok {
		return ErrNotFound
	}
	r.SettledAt = nil
	return nil
}

func (m *MemoryStore) ActiveByDriver(_ context.Context, driverID string) (*models.Ride, error) {
	return m.active(func(r *models.Ride) bool { return r.DriverID == driverID })
}

func (m *MemoryStore) ActiveByRequester(_ context.Context, requesterID string) (*models.Ride, error) {
	return m.active(func(r *models.Ride) bool { return r.RequesterID == requesterID })
}

func (m *MemoryStore) active(match func(*models.Ride) bool) (*models.Ride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.rides {
		if r.Status == models.StatusProcessing && match(r) {
			cp := *r
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) HistoryByDriver(_ context.Context, driverID string) ([]models.Ride, error) {
	return m.history(func(r *models.Ride) bool { return r.DriverID == driverID })
}

func (m *MemoryStore) HistoryByRequester(_ context.Context, requesterID string) ([]models.Ride, error) {
	return m.history(func(r *models.Ride) bool { return r.RequesterID == requesterID })
}

func (m *MemoryStore) history(match func(*models.Ride) bool) ([]models.Ride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Ride, 0)
	for _, r := range m.rides {
		if r.Status.IsTerminal() && match(r) {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}
