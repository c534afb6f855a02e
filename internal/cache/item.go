package cache

import (
	"context"
	"sync"
	"time"

	"WooWithWasp/internal/waspapi/models"
	"WooWithWasp/pkg/logging"
)

// CacheItem кеш ответов inventorysearch по номеру товара.
// Хранятся только успешные ответы, устаревание только по времени.
type CacheItem interface {
	Get(ctx context.Context, itemNumber string) (*models.Result, bool)
	Set(ctx context.Context, itemNumber string, result *models.Result) error
	Delete(ctx context.Context, itemNumber string) error
}

type items struct {
	mu         sync.Mutex
	items      map[string]*item
	timeUpdate time.Duration
	now        func() time.Time
}

type item struct {
	result     *models.Result
	timeUpdate time.Time
}

func NewCacheItem(timeUpdate time.Duration) CacheItem {
	return &items{
		items:      make(map[string]*item),
		timeUpdate: timeUpdate,
		now:        time.Now,
	}
}

func (c *items) Get(ctx context.Context, itemNumber string) (*models.Result, bool) {
	logger := logging.GetLogger()

	c.mu.Lock()
	defer c.mu.Unlock()

	i, ok := c.items[itemNumber]
	if !ok {
		logger.Debugf("item %s не найден в кеше", itemNumber)
		return nil, false
	}
	if c.now().Sub(i.timeUpdate) > c.timeUpdate {
		logger.Debugf("кеш item %s устарел", itemNumber)
		delete(c.items, itemNumber)
		return nil, false
	}
	return copyResult(i.result), true
}

func (c *items) Set(ctx context.Context, itemNumber string, result *models.Result) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[itemNumber] = &item{
		result:     copyResult(result),
		timeUpdate: c.now(),
	}
	return nil
}

func (c *items) Delete(ctx context.Context, itemNumber string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.items, itemNumber)
	return nil
}

func copyResult(r *models.Result) *models.Result {
	if r == nil {
		return nil
	}
	c := *r
	c.Locations = append([]models.Location(nil), r.Locations...)
	return &c
}
