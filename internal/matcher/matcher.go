package matcher

import (
	"context"
	"errors"

	"github.com/example/ride-dispatch/internal/geo"
	"github.com/example/ride-dispatch/internal/models"
	"github.com/example/ride-dispatch/internal/observability"
)

// Registry is the slice of the location registry the matcher needs.
type Registry interface {
	Within(ctx context.Context, center models.Coord, radiusMeters float64) ([]models.DriverPosition, error)
}

var ErrBadQuery = errors.New("invalid proximity query")

// Service answers "which drivers are near this point". A driver whose
// channel already closed may still appear for one query cycle; the offer
// timeout compensates downstream.
type Service struct {
	Registry      Registry
	DefaultRadius float64 // meters, used when the query passes 0
}

// FindWithin returns every registered driver at most radiusMeters from
// center, boundary inclusive. An empty registry yields an empty slice,
// not an error.
func (s *Service) FindWithin(ctx context.Context, center models.Coord, radiusMeters float64) ([]models.DriverPosition, error) {
	if err := geo.Validate(center); err != nil {
		return nil, ErrBadQuery
	}
	if radiusMeters == 0 {
		radiusMeters = s.DefaultRadius
	}
	if radiusMeters <= 0 {
		return nil, ErrBadQuery
	}
	out, err := s.Registry.Within(ctx, center, radiusMeters)
	if err != nil {
		return nil, err
	}
	observability.ProximityQueries.Inc()
	return out, nil
}
