package order

import (
	"context"
	"fmt"

	"WooWithWasp/internal/database/model/syncrecord"
	"WooWithWasp/internal/sync"
	"WooWithWasp/internal/waspapi/models"
	"WooWithWasp/pkg/logging"

	"github.com/pkg/errors"
)

const reasonOnlyCLLC = "Only CLLC locations found"

// SelectLocation первый склад, у которого ни SiteName, ни LocationCode не CLLC
func SelectLocation(locations []models.Location) (*models.Location, string) {
	for i := range locations {
		if !sync.IsCLLC(&locations[i]) {
			return &locations[i], ""
		}
	}
	return nil, reasonOnlyCLLC
}

// Prepare 1 этап
func (s *Service) Prepare(ctx context.Context, limit int) (*sync.BatchResult, error) {
	logger := logging.GetLogger()
	logger.Debug("Start PrepareOrders")
	defer logger.Debug("End PrepareOrders")

	result := sync.NewBatchResult()

	if s.retry != nil {
		summary, err := s.retry.AutoEnqueue(ctx, syncrecord.KindOrder)
		if err != nil {
			logger.Errorf("failed AutoEnqueue: %v", err)
			// ошибка повторов учитывается в коде ответа наравне с ошибками записей
			result.Summary.ErrorCount++
			result.Summary.Errors = append(result.Summary.Errors, fmt.Sprintf("retry: %v", err))
		}
		result.Retry = summary
	}

	records, err := s.table.SelectByStatus(ctx, syncrecord.STATUS_PENDING, sync.ClampLimit(limit))
	if err != nil {
		return nil, errors.Wrap(err, "failed select PENDING orders")
	}

	for _, r := range records {
		result.Add(sync.PrepareRecord(ctx, s.table, s.api, r, SelectLocation))
	}

	result.Message = fmt.Sprintf("Prepared %d orders: %d ready, %d ignored, %d failed",
		result.Summary.TotalProcessed, result.Summary.SuccessCount, result.Summary.IgnoredCount, result.Summary.ErrorCount)
	logger.Info(result.Message)
	return result, nil
}
