package webhook

import (
	"context"
	"fmt"
	"sort"
	"time"

	"WooWithWasp/internal/sync"
	"WooWithWasp/internal/wooapi"
	"WooWithWasp/internal/wooapi/options"
	"WooWithWasp/pkg/logging"
)

const (
	backfillPerPage  = 50
	backfillMaxPages = 100
)

// Backfill догружает через REST API магазина заказы, вебхук которых не дошел.
// Уже сохраненные строки пропускаются так же, как при вебхуке.
type Backfill struct {
	ingester *Ingester
	api      wooapi.WOOAPI
	days     int
	now      func() time.Time
}

func NewBackfill(ingester *Ingester, api wooapi.WOOAPI, days int) *Backfill {
	if days <= 0 {
		days = 2
	}
	return &Backfill{ingester: ingester, api: api, days: days, now: time.Now}
}

func (b *Backfill) WithClock(now func() time.Time) *Backfill {
	b.now = now
	return b
}

// Run заказы за последние days дней во всех синхронизируемых статусах
func (b *Backfill) Run(ctx context.Context) (*sync.BatchResult, error) {
	logger := logging.GetLogger()
	logger.Debug("Start Backfill")
	defer logger.Debug("End Backfill")

	after := b.now().In(b.ingester.loc).AddDate(0, 0, -b.days)
	statuses := make([]string, 0, len(b.ingester.statuses))
	for s := range b.ingester.statuses {
		statuses = append(statuses, s)
	}
	sort.Strings(statuses)

	result := sync.NewBatchResult()
	created := 0
	for _, status := range statuses {
		for page := 1; page <= backfillMaxPages; page++ {
			orders, totalPages, err := b.api.OrderList(ctx,
				options.Status(status),
				options.After(after),
				options.Page(page),
				options.PerPage(backfillPerPage),
				options.OrderAsc(),
			)
			if err != nil {
				return nil, err
			}

			for _, order := range orders {
				result.Summary.TotalProcessed++
				r, err := b.ingester.IngestOrder(ctx, order)
				if err != nil {
					result.Summary.ErrorCount++
					result.Summary.Errors = append(result.Summary.Errors, fmt.Sprintf("order %d: %v", order.Id, err))
					continue
				}
				if r.Ignored {
					result.Summary.IgnoredCount++
					continue
				}
				result.Summary.SuccessCount++
				created += r.Created
			}

			if page >= totalPages {
				break
			}
		}
	}

	result.Message = fmt.Sprintf("Backfilled %d orders since %s: %d lines created, %d errors",
		result.Summary.TotalProcessed, after.Format("2006-01-02 15:04"), created, result.Summary.ErrorCount)
	logger.Info(result.Message)
	return result, nil
}
