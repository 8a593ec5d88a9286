package registry

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/ride-dispatch/internal/geo"
	"github.com/example/ride-dispatch/internal/models"
)

// Redis implements Registry on Redis GEO commands. Positions live in a
// single geo set; observation timestamps live in a per-driver meta hash.
// Useful when more than one process needs to answer proximity queries.
type Redis struct {
	client *redis.Client
	key    string
}

func NewRedis(addr, password, key string) *Redis {
	c := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	return &Redis{client: c, key: key}
}

// NewRedisWithClient wraps an existing client, mainly for tests.
func NewRedisWithClient(c *redis.Client, key string) *Redis {
	return &Redis{client: c, key: key}
}

func (r *Redis) Report(ctx context.Context, driverID string, loc models.Coord) error {
	if err := geo.Validate(loc); err != nil {
		return err
	}
	if _, err := r.client.GeoAdd(ctx, r.key, &redis.GeoLocation{Longitude: loc.Lon, Latitude: loc.Lat, Name: driverID}).Result(); err != nil {
		return err
	}
	return r.client.HSet(ctx, metaKey(driverID), map[string]interface{}{"observed_at": time.Now().Format(time.RFC3339Nano)}).Err()
}

func (r *Redis) Lookup(ctx context.Context, driverID string) (models.DriverPosition, bool, error) {
	pos, err := r.client.GeoPos(ctx, r.key, driverID).Result()
	if err != nil {
		return models.DriverPosition{}, false, err
	}
	if len(pos) == 0 || pos[0] == nil {
		return models.DriverPosition{}, false, nil
	}
	p := models.DriverPosition{
		DriverID: driverID,
		Loc:      models.Coord{Lat: pos[0].Latitude, Lon: pos[0].Longitude},
	}
	if v, err := r.client.HGet(ctx, metaKey(driverID), "observed_at").Result(); err == nil {
		if ts, err := time.Parse(time.RFC3339Nano, v); err == nil {
			p.ObservedAt = ts
		}
	}
	return p, true, nil
}

func (r *Redis) Remove(ctx context.Context, driverID string) error {
	if err := r.client.ZRem(ctx, r.key, driverID).Err(); err != nil {
		return err
	}
	return r.client.Del(ctx, metaKey(driverID)).Err()
}

func (r *Redis) Within(ctx context.Context, center models.Coord, radiusMeters float64) ([]models.DriverPosition, error) {
	res, err := r.client.GeoRadius(ctx, r.key, center.Lon, center.Lat, &redis.GeoRadiusQuery{
		Radius:    radiusMeters,
		Unit:      "m",
		WithCoord: true,
	}).Result()
	if err != nil {
		return nil, err
	}
	out := make([]models.DriverPosition, 0, len(res))
	for _, g := range res {
		out = append(out, models.DriverPosition{
			DriverID: g.Name,
			Loc:      models.Coord{Lat: g.Latitude, Lon: g.Longitude},
		})
	}
	return out, nil
}

func (r *Redis) Close() error { return r.client.Close() }

func metaKey(id string) string { return "driver:meta:" + id }
