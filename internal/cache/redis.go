package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Domenick1991/airretail/config"
	"github.com/Domenick1991/airretail/internal/domain"
	"github.com/redis/go-redis/v9"
)

// RedisCache keeps the airline/airport reference maps that decorate offers.
// A miss falls through to the database; values carry a TTL so reference-data
// edits eventually propagate.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(cfg config.RedisConfig, ttl time.Duration) *RedisCache {
	return &RedisCache{
		client: redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		ttl:    ttl,
	}
}

func (c *RedisCache) GetAirlines(ctx context.Context) (map[int64]domain.Airline, error) {
	data, err := c.client.Get(ctx, airlinesKey).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var airlines map[int64]domain.Airline
	if err := json.Unmarshal(data, &airlines); err != nil {
		return nil, err
	}
	return airlines, nil
}

func (c *RedisCache) SetAirlines(ctx context.Context, airlines map[int64]domain.Airline) error {
	payload, err := json.Marshal(airlines)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, airlinesKey, payload, c.ttl).Err()
}

func (c *RedisCache) GetAirports(ctx context.Context) (map[int64]domain.Airport, error) {
	data, err := c.client.Get(ctx, airportsKey).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var airports map[int64]domain.Airport
	if err := json.Unmarshal(data, &airports); err != nil {
		return nil, err
	}
	return airports, nil
}

func (c *RedisCache) SetAirports(ctx context.Context, airports map[int64]domain.Airport) error {
	payload, err := json.Marshal(airports)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, airportsKey, payload, c.ttl).Err()
}

const (
	airlinesKey = "cache:airlines"
	airportsKey = "cache:airports"
)
