package salesreturn

import (
	"context"
	"time"

	"WooWithWasp/internal/database/model/syncrecord"
	"WooWithWasp/internal/sync"
	"WooWithWasp/internal/waspapi"
)

// Service синхронизация строк продаж/возвратов из таблиц
// 1 этап - подготовка: PENDING -> READY/IGNORED/FAILED
// 2 этап - RETURN оприходование, SALE списание: READY -> COMPLETED/FAILED
// 3 этап - удаление COMPLETED за прошлый месяц
type Service struct {
	table *syncrecord.Table
	api   waspapi.WASPAPI
	retry sync.AutoRetry
	now   func() time.Time
	loc   *time.Location
}

func NewService(table *syncrecord.Table, api waspapi.WASPAPI) *Service {
	return &Service{table: table, api: api, now: time.Now, loc: time.Local}
}

func (s *Service) WithAutoRetry(retry sync.AutoRetry) *Service {
	s.retry = retry
	return s
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// WithLocation зона, в которой созданы даты записей
func (s *Service) WithLocation(loc *time.Location) *Service {
	s.loc = loc
	return s
}

func (s *Service) Kind() syncrecord.Kind {
	return syncrecord.KindSalesReturn
}

func (s *Service) Status(ctx context.Context, status string, limit int) (*sync.StatusResult, error) {
	return sync.ListStatus(ctx, s.table, status, limit)
}
