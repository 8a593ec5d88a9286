package accounts

import (
	"context"
	"sync"

	"github.com/example/ride-dispatch/internal/models"
)

// Memory keeps counters in-process. Counter mutations take the write lock
// for the whole read-modify-write, which serializes concurrent settlements
// the same way a transaction would.
type Memory struct {
	mu         sync.RWMutex
	drivers    map[string]*models.DriverCounters
	requesters map[string]*models.RequesterCounters
	profiles   map[string]models.DriverProfile
}

func NewMemory() *Memory {
	return &Memory{
		drivers:    make(map[string]*models.DriverCounters),
		requesters: make(map[string]*models.RequesterCounters),
		profiles:   make(map[string]models.DriverProfile),
	}
}

// PutProfile seeds a driver profile, for wiring and tests.
func (m *Memory) PutProfile(p models.DriverProfile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[p.ID] = p
}

func (m *Memory) FindDriversByIDs(_ context.Context, ids []string) ([]models.DriverProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.DriverProfile, 0, len(ids))
	for _, id := range ids {
		if p, ok := m.profiles[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *Memory) AdjustDriverCounters(_ context.Context, driverID string, earningsDelta, rideDelta int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := m.driver(driverID)
	d.Earnings += earningsDelta
	d.Rides += rideDelta
	return nil
}

func (m *Memory) AdjustRequesterCounters(_ context.Context, requesterID string, spendDelta, rideDelta int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requesters[requesterID]
	if !ok {
		r = &models.RequesterCounters{RequesterID: requesterID}
		m.requesters[requesterID] = r
	}
	r.Spend += spendDelta
	r.Rides += rideDelta
	return nil
}

func (m *Memory) DriverRating(_ context.Context, driverID string) (float64, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.drivers[driverID]
	if !ok {
		return 0, 0, nil
	}
	return d.Rating, d.RatedRides, nil
}

func (m *Memory) ApplyDriverRating(_ context.Context, driverID string, rating float64) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := m.driver(driverID)
	d.Rating = (d.Rating*float64(d.RatedRides) + rating) / float64(d.RatedRides+1)
	d.RatedRides++
	return d.Rating, nil
}

func (m *Memory) SetDriverRating(_ context.Context, driverID string, avg float64, ratedRides int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := m.driver(driverID)
	d.Rating = avg
	d.RatedRides = ratedRides
	return nil
}

func (m *Memory) DriverCounters(_ context.Context, driverID string) (models.DriverCounters, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if d, ok := m.drivers[driverID]; ok {
		return *d, nil
	}
	return models.DriverCounters{DriverID: driverID}, nil
}

func (m *Memory) RequesterCounters(_ context.Context, requesterID string) (models.RequesterCounters, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if r, ok := m.requesters[requesterID]; ok {
		return *r, nil
	}
	return models.RequesterCounters{RequesterID: requesterID}, nil
}

// callers must hold mu
func (m *Memory) driver(id string) *models.DriverCounters {
	d, ok := m.drivers[id]
	if !ok {
		d = &models.DriverCounters{DriverID: id}
		m.drivers[id] = d
	}
	return d
}
