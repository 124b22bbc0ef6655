// Package directory mirrors the in-memory driver registry into Redis so
// sibling services can run geo queries without calling this process.
package directory

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/veeo/driver-dispatch/core/logger"
	"github.com/veeo/driver-dispatch/core/model"
)

// RedisDirectory keeps driver positions in a Redis GEO set plus a metadata
// hash per driver.
type RedisDirectory struct {
	client *redis.Client
	key    string
	log    logger.Logger
}

func NewRedisDirectory(addr, password, key string, log logger.Logger) *RedisDirectory {
	c := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	return &RedisDirectory{client: c, key: key, log: log}
}

func metaKey(id string) string { return "driver:meta:" + id }

// Upsert mirrors one driver. Drivers without a location only refresh their
// metadata hash.
func (r *RedisDirectory) Upsert(ctx context.Context, d model.Driver) error {
	if d.HasLocation() {
		err := r.client.GeoAdd(ctx, r.key, &redis.GeoLocation{
			Longitude: d.Location.Lng,
			Latitude:  d.Location.Lat,
			Name:      d.ID,
		}).Err()
		if err != nil {
			return err
		}
	}
	return r.client.HSet(ctx, metaKey(d.ID), map[string]interface{}{
		"status":       string(d.Status),
		"vehicle_type": d.VehicleType,
		"rating":       strconv.FormatFloat(d.Rating, 'f', 2, 64),
		"active":       strconv.FormatBool(d.IsActive),
		"updated":      time.Now().Format(time.RFC3339),
	}).Err()
}

// Remove drops the driver from the geo set and deletes its metadata.
func (r *RedisDirectory) Remove(ctx context.Context, driverID string) error {
	if err := r.client.ZRem(ctx, r.key, driverID).Err(); err != nil {
		return err
	}
	return r.client.Del(ctx, metaKey(driverID)).Err()
}

// LoadMany mirrors a bulk snapshot, logging and skipping per-driver failures.
func (r *RedisDirectory) LoadMany(ctx context.Context, drivers []model.Driver) {
	for _, d := range drivers {
		if err := r.Upsert(ctx, d); err != nil {
			r.log.Errorf("redis mirror for driver %s failed: %v", d.ID, err)
		}
	}
}

// Nearby returns driver ids within radiusKm of the point, closest first.
func (r *RedisDirectory) Nearby(ctx context.Context, lat, lng, radiusKm float64, limit int) ([]string, error) {
	res, err := r.client.GeoRadius(ctx, r.key, lng, lat, &redis.GeoRadiusQuery{
		Radius: radiusKm,
		Unit:   "km",
		Count:  limit,
		Sort:   "ASC",
	}).Result()
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(res))
	for _, g := range res {
		ids = append(ids, g.Name)
	}
	return ids, nil
}

// Close releases the Redis connection.
func (r *RedisDirectory) Close() error {
	return r.client.Close()
}
