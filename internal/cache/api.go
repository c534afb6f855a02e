package cache

import (
	"context"
	"strings"

	"WooWithWasp/internal/waspapi"
	"WooWithWasp/internal/waspapi/models"
	"WooWithWasp/pkg/logging"
)

// cachedAPI WASPAPI, у которого LookupItem сначала смотрит в кеш
type cachedAPI struct {
	waspapi.WASPAPI
	cache CacheItem
}

func NewCachedAPI(api waspapi.WASPAPI, cache CacheItem) waspapi.WASPAPI {
	return &cachedAPI{WASPAPI: api, cache: cache}
}

func (c *cachedAPI) LookupItem(ctx context.Context, itemNumber string) *models.Result {
	logger := logging.GetLogger()

	key := strings.TrimSpace(itemNumber)
	if key != "" {
		if result, ok := c.cache.Get(ctx, key); ok {
			logger.Debugf("кеш актуальный, item %s берем из кеша", key)
			return result
		}
	}

	result := c.WASPAPI.LookupItem(ctx, itemNumber)
	if result.Success() {
		if err := c.cache.Set(ctx, key, result); err != nil {
			logger.Errorf("не удалось обновить кеш item %s: %v", key, err)
		}
	}
	return result
}
