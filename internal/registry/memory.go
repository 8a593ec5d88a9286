package registry

import (
	"context"
	"sync"
	"time"

	"github.com/example/ride-dispatch/internal/geo"
	"github.com/example/ride-dispatch/internal/models"
)

// Memory is the in-process registry: a mutex-guarded map keyed by driver id.
// Reports and proximity queries race across channel goroutines, so every
// access goes through the lock.
type Memory struct {
	mu      sync.RWMutex
	drivers map[string]models.DriverPosition
	now     func() time.Time
}

func NewMemory() *Memory {
	return &Memory{drivers: make(map[string]models.DriverPosition), now: time.Now}
}

func (m *Memory) Report(_ context.Context, driverID string, loc models.Coord) error {
	if err := geo.Validate(loc); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drivers[driverID] = models.DriverPosition{DriverID: driverID, Loc: loc, ObservedAt: m.now()}
	return nil
}

func (m *Memory) Lookup(_ context.Context, driverID string) (models.DriverPosition, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.drivers[driverID]
	return p, ok, nil
}

func (m *Memory) Remove(_ context.Context, driverID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.drivers, driverID)
	return nil
}

// naive scan; in prod use geo-hash or H3
func (m *Memory) Within(_ context.Context, center models.Coord, radiusMeters float64) ([]models.DriverPosition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.DriverPosition, 0, len(m.drivers))
	for _, p := range m.drivers {
		if geo.Distance(center, p.Loc) <= radiusMeters {
			out = append(out, p)
		}
	}
	return out, nil
}
