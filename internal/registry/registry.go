package registry

import (
	"context"

	"github.com/example/ride-dispatch/internal/models"
)

// Registry tracks the last-known position of every connected driver.
// Reports are last-write-wins per driver; entries are removed when the
// owning channel closes.
type Registry interface {
	Report(ctx context.Context, driverID string, loc models.Coord) error
	Lookup(ctx context.Context, driverID string) (models.DriverPosition, bool, error)
	Remove(ctx context.Context, driverID string) error
	// Within returns every driver whose great-circle distance to center is
	// at most radiusMeters (boundary inclusive). No ordering guarantee.
	Within(ctx context.Context, center models.Coord, radiusMeters float64) ([]models.DriverPosition, error)
}
