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

// Import 2 этап - заказ всегда списание из WASP
func (s *Service) Import(ctx context.Context, limit int) (*sync.BatchResult, error) {
	logger := logging.GetLogger()
	logger.Debug("Start ImportOrders")
	defer logger.Debug("End ImportOrders")

	records, err := s.table.SelectByStatus(ctx, syncrecord.STATUS_READY, sync.ClampLimit(limit))
	if err != nil {
		return nil, errors.Wrap(err, "failed select READY orders")
	}

	result := sync.NewBatchResult()
	for _, r := range records {
		res := s.api.RemoveTransaction(ctx, []*models.TransactionPayload{s.payload(r)})
		result.Summary.RemoveCount++
		result.Add(sync.ImportRecord(ctx, s.table, r, res, sync.OPERATION_REMOVE))
	}

	result.Message = fmt.Sprintf("Imported %d orders: %d completed, %d failed",
		result.Summary.TotalProcessed, result.Summary.SuccessCount, result.Summary.ErrorCount)
	logger.Info(result.Message)
	return result, nil
}

func (s *Service) payload(r *syncrecord.Record) *models.TransactionPayload {
	return &models.TransactionPayload{
		ItemNumber:     r.ItemNumber,
		Quantity:       r.Quantity.Abs().InexactFloat64(),
		CustomerNumber: r.CustomerNumber,
		SiteName:       r.SiteName,
		LocationCode:   r.LocationCode,
		RemoveDate:     sync.FormatDate(r, s.now(), s.loc),
		Notes:          fmt.Sprintf("WooCommerce order %d", r.OrderID),
	}
}
