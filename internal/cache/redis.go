package cache

import (
	"context"
	"encoding/json"
	"time"

	"WooWithWasp/internal/waspapi/models"
	"WooWithWasp/pkg/logging"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
)

const redisKeyPrefix = "wasp:item:"

type redisItems struct {
	client     *redis.Client
	timeUpdate time.Duration
}

// cachedResult Result без служебных полей, Locations сериализуются явно
type cachedResult struct {
	StatusCode  int               `json:"status_code"`
	APIResponse string            `json:"api_response"`
	Locations   []models.Location `json:"locations"`
}

func NewRedisClient(addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrapf(err, "failed redis Ping(%s)", addr)
	}
	return client, nil
}

func NewRedisCacheItem(client *redis.Client, timeUpdate time.Duration) CacheItem {
	return &redisItems{client: client, timeUpdate: timeUpdate}
}

func (c *redisItems) Get(ctx context.Context, itemNumber string) (*models.Result, bool) {
	logger := logging.GetLogger()

	data, err := c.client.Get(ctx, redisKeyPrefix+itemNumber).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		logger.Errorf("failed redis Get(%s): %v", itemNumber, err)
		return nil, false
	}

	var cached cachedResult
	if err := json.Unmarshal(data, &cached); err != nil {
		logger.Errorf("failed json.Unmarshal cached item %s: %v", itemNumber, err)
		return nil, false
	}

	result := models.NewSuccess(cached.StatusCode, cached.APIResponse)
	result.Locations = cached.Locations
	return result, true
}

func (c *redisItems) Set(ctx context.Context, itemNumber string, result *models.Result) error {
	data, err := json.Marshal(&cachedResult{
		StatusCode:  result.StatusCode,
		APIResponse: result.APIResponse,
		Locations:   result.Locations,
	})
	if err != nil {
		return errors.Wrapf(err, "failed json.Marshal cached item %s", itemNumber)
	}
	if err := c.client.Set(ctx, redisKeyPrefix+itemNumber, data, c.timeUpdate).Err(); err != nil {
		return errors.Wrapf(err, "failed redis Set(%s)", itemNumber)
	}
	return nil
}

func (c *redisItems) Delete(ctx context.Context, itemNumber string) error {
	if err := c.client.Del(ctx, redisKeyPrefix+itemNumber).Err(); err != nil {
		return errors.Wrapf(err, "failed redis Del(%s)", itemNumber)
	}
	return nil
}
