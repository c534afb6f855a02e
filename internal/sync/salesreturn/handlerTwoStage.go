package salesreturn

import (
	"context"
	"fmt"

	"WooWithWasp/internal/database/model/syncrecord"
	"WooWithWasp/internal/sync"
	"WooWithWasp/internal/waspapi/models"
	"WooWithWasp/pkg/logging"

	"github.com/pkg/errors"
)

// Import 2 этап. RETURN - transactions/item/add, SALE - transactions/item/remove
func (s *Service) Import(ctx context.Context, limit int) (*sync.BatchResult, error) {
	logger := logging.GetLogger()
	logger.Debug("Start ImportSalesReturns")
	defer logger.Debug("End ImportSalesReturns")

	records, err := s.table.SelectByStatus(ctx, syncrecord.STATUS_READY, sync.ClampLimit(limit))
	if err != nil {
		return nil, errors.Wrap(err, "failed select READY sales returns")
	}

	result := sync.NewBatchResult()
	for _, r := range records {
		var res *models.Result
		var operation string
		if r.Type == syncrecord.TYPE_RETURN {
			operation = sync.OPERATION_ADD
			result.Summary.AddCount++
			res = s.api.AddTransaction(ctx, []*models.TransactionPayload{s.addPayload(r)})
		} else {
			operation = sync.OPERATION_REMOVE
			result.Summary.RemoveCount++
			res = s.api.RemoveTransaction(ctx, []*models.TransactionPayload{s.removePayload(r)})
		}
		result.Add(sync.ImportRecord(ctx, s.table, r, res, operation))
	}

	result.Message = fmt.Sprintf("Imported %d sales returns (%d add, %d remove): %d completed, %d failed",
		result.Summary.TotalProcessed, result.Summary.AddCount, result.Summary.RemoveCount,
		result.Summary.SuccessCount, result.Summary.ErrorCount)
	logger.Info(result.Message)
	return result, nil
}

func (s *Service) removePayload(r *syncrecord.Record) *models.TransactionPayload {
	return &models.TransactionPayload{
		ItemNumber:     r.ItemNumber,
		Quantity:       r.Quantity.Abs().InexactFloat64(),
		CustomerNumber: r.CustomerNumber,
		SiteName:       r.SiteName,
		LocationCode:   r.LocationCode,
		RemoveDate:     sync.FormatDate(r, s.now(), s.loc),
	}
}

func (s *Service) addPayload(r *syncrecord.Record) *models.TransactionPayload {
	return &models.TransactionPayload{
		ItemNumber:     r.ItemNumber,
		Quantity:       r.Quantity.Abs().InexactFloat64(),
		CustomerNumber: r.CustomerNumber,
		SiteName:       r.SiteName,
		LocationCode:   r.LocationCode,
		DateAcquired:   sync.FormatDate(r, s.now(), s.loc),
		Cost:           r.Cost.InexactFloat64(),
	}
}
