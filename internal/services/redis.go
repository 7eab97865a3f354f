package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

var RedisClient *redis.Client

// InitRedis initializes the Redis client
func InitRedis() error {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://redis:6379" // Default Redis address for Docker
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return fmt.Errorf("failed to parse Redis URL: %v", err)
	}

	RedisClient = redis.NewClient(opt)

	// Test the connection
	ctx := context.Background()
	_, err = RedisClient.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %v", err)
	}

	return nil
}

// SetDriverLocation stores the driver's live position in Redis. The TTL
// mirrors the discovery freshness window so a silent driver ages out of the
// cache on roughly the same schedule as the database sample.
func SetDriverLocation(ctx context.Context, driverID uint, lat, lng, heading, speed float64) error {
	locationData := map[string]interface{}{
		"lat":     lat,
		"lng":     lng,
		"heading": heading,
		"speed":   speed,
		"updated": time.Now().Unix(),
	}

	data, err := json.Marshal(locationData)
	if err != nil {
		return err
	}

	key := fmt.Sprintf("driver:location:%d", driverID)
	return RedisClient.Set(ctx, key, data, time.Hour).Err()
}

// GetDriverLocation retrieves the driver's live position from Redis
func GetDriverLocation(ctx context.Context, driverID uint) (lat, lng, heading float64, err error) {
	key := fmt.Sprintf("driver:location:%d", driverID)
	data, err := RedisClient.Get(ctx, key).Result()
	if err != nil {
		return 0, 0, 0, err
	}

	var locationData map[string]interface{}
	if err := json.Unmarshal([]byte(data), &locationData); err != nil {
		return 0, 0, 0, err
	}

	lat, _ = locationData["lat"].(float64)
	lng, _ = locationData["lng"].(float64)
	heading, _ = locationData["heading"].(float64)

	return lat, lng, heading, nil
}

// SetDriverStatus stores the driver's presence status (online, busy, offline)
func SetDriverStatus(ctx context.Context, driverID uint, status string) error {
	key := fmt.Sprintf("driver:status:%d", driverID)
	return RedisClient.Set(ctx, key, status, time.Hour).Err()
}

// GetDriverStatus retrieves the driver's presence status
func GetDriverStatus(ctx context.Context, driverID uint) (string, error) {
	key := fmt.Sprintf("driver:status:%d", driverID)
	return RedisClient.Get(ctx, key).Result()
}

// PublishDriverLocation publishes a driver location update to Redis pub/sub
func PublishDriverLocation(ctx context.Context, driverID uint, lat, lng, heading float64) error {
	locationData := map[string]interface{}{
		"driverId": driverID,
		"location": map[string]float64{
			"lat":     lat,
			"lng":     lng,
			"heading": heading,
		},
		"timestamp": time.Now().Unix(),
	}

	data, err := json.Marshal(locationData)
	if err != nil {
		return err
	}

	return RedisClient.Publish(ctx, "driver:location:updates", data).Err()
}

// PublishMatchResult publishes a matching outcome to Redis pub/sub so other
// instances can forward it to their connected clients.
func PublishMatchResult(ctx context.Context, requestID uint, matched bool, driverID uint) error {
	updateData := map[string]interface{}{
		"requestId": requestID,
		"matched":   matched,
		"driverId":  driverID,
		"timestamp": time.Now().Unix(),
	}

	jsonData, err := json.Marshal(updateData)
	if err != nil {
		return err
	}

	return RedisClient.Publish(ctx, "match:results", jsonData).Err()
}

// PublishRideUpdate publishes a ride status update to Redis pub/sub
func PublishRideUpdate(ctx context.Context, rideID uint, status string, data map[string]interface{}) error {
	updateData := map[string]interface{}{
		"rideId":    rideID,
		"status":    status,
		"data":      data,
		"timestamp": time.Now().Unix(),
	}

	jsonData, err := json.Marshal(updateData)
	if err != nil {
		return err
	}

	return RedisClient.Publish(ctx, "ride:updates", jsonData).Err()
}
