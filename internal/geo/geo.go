package geo

import (
	"errors"
	"math"

	"github.com/example/ride-dispatch/internal/models"
)

// ErrInvalidCoord marks a malformed position report (NaN, Inf or out of the
// WGS84 degree range).
var ErrInvalidCoord = errors.New("invalid coordinate")

// Haversine distance in meters
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	const R = 6371000.0
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return R * c
}

// Distance is Haversine over Coord values.
func Distance(a, b models.Coord) float64 {
	return Haversine(a.Lat, a.Lon, b.Lat, b.Lon)
}

// Validate rejects NaN/Inf and out-of-range degree values.
func Validate(c models.Coord) error {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lon) || math.IsInf(c.Lat, 0) || math.IsInf(c.Lon, 0) {
		return ErrInvalidCoord
	}
	if c.Lat < -90 || c.Lat > 90 || c.Lon < -180 || c.Lon > 180 {
		return ErrInvalidCoord
	}
	return nil
}
