package sync

import (
	"context"
	"fmt"
	"strings"
	"time"

	"WooWithWasp/internal/database/model/syncrecord"
	"WooWithWasp/internal/waspapi"
	"WooWithWasp/internal/waspapi/models"
	"WooWithWasp/pkg/logging"

	"github.com/pkg/errors"
)

const CLLC = "CLLC"

var ErrUnknownStatus = errors.New("unknown status")

// LocationPolicy выбор склада из ответа inventorysearch.
// nil - подходящего склада нет, запись уходит в IGNORED с reason.
type LocationPolicy func(locations []models.Location) (location *models.Location, reason string)

// IsCLLC SiteName или LocationCode равен CLLC без учета регистра
func IsCLLC(l *models.Location) bool {
	return strings.EqualFold(strings.TrimSpace(l.SiteName), CLLC) ||
		strings.EqualFold(strings.TrimSpace(l.LocationCode), CLLC)
}

// PrepareRecord этап подготовки для одной записи PENDING.
// Склад, статус и ответ API пишутся одним UPDATE.
func PrepareRecord(ctx context.Context, table *syncrecord.Table, api waspapi.WASPAPI, r *syncrecord.Record, policy LocationPolicy) (*ItemResult, error) {
	logger := logging.GetLogger()
	logger.Debugf("Start PrepareRecord(%s id=%d)", table.Kind(), r.ID)
	defer logger.Debugf("End PrepareRecord(%s id=%d)", table.Kind(), r.ID)

	itemNumber := strings.TrimSpace(r.ItemNumber)
	if !IsNumeric(itemNumber) {
		r.Status = syncrecord.STATUS_IGNORED
		r.Message = fmt.Sprintf("Invalid item number %q: must be numeric", r.ItemNumber)
		logger.Infof("%s id=%d: %s", table.Kind(), r.ID, r.Message)
		return itemResult(r, ""), table.UpdatePrepared(ctx, r)
	}

	res := api.LookupItem(ctx, itemNumber)
	if res.Kind != models.KIND_VALIDATION {
		r.APIResponse = res.APIResponse
	}

	if !res.Success() {
		// нет Data в ответе - аномалия API, ошибка вызова - игнорируем до повтора
		if res.Kind == models.KIND_SEMANTIC {
			r.Status = syncrecord.STATUS_FAILED
		} else {
			r.Status = syncrecord.STATUS_IGNORED
		}
		r.Message = res.ErrorMessage
		logger.Infof("%s id=%d item %s: %v", table.Kind(), r.ID, itemNumber, res.Err())
		return itemResult(r, ""), table.UpdatePrepared(ctx, r)
	}

	location, reason := policy(res.Locations)
	if location == nil {
		r.Status = syncrecord.STATUS_IGNORED
		r.Message = reason
		logger.Infof("%s id=%d item %s: %s", table.Kind(), r.ID, itemNumber, reason)
		return itemResult(r, ""), table.UpdatePrepared(ctx, r)
	}

	r.SiteName = location.SiteName
	r.LocationCode = location.LocationCode
	r.Status = syncrecord.STATUS_READY
	r.Message = ""
	return itemResult(r, ""), table.UpdatePrepared(ctx, r)
}

// ImportRecord сохраняет результат транзакции: успех - COMPLETED, иначе FAILED.
// api_response перезаписывается в любом случае.
func ImportRecord(ctx context.Context, table *syncrecord.Table, r *syncrecord.Record, res *models.Result, operation string) (*ItemResult, error) {
	logger := logging.GetLogger()

	r.APIResponse = res.APIResponse
	if res.Success() {
		r.Status = syncrecord.STATUS_COMPLETED
		r.Message = ""
	} else {
		r.Status = syncrecord.STATUS_FAILED
		r.Message = res.ErrorMessage
		logger.Infof("%s id=%d item %s %s: %v", table.Kind(), r.ID, r.ItemNumber, operation, res.Err())
	}
	return itemResult(r, operation), table.UpdateImported(ctx, r)
}

func itemResult(r *syncrecord.Record, operation string) *ItemResult {
	return &ItemResult{
		ID:           r.ID,
		ItemNumber:   r.ItemNumber,
		Status:       r.Status,
		SiteName:     r.SiteName,
		LocationCode: r.LocationCode,
		Operation:    operation,
		Message:      r.Message,
	}
}

// FormatDate дата транзакции для WASP API в зоне loc, пустая дата дает fallback.
// WASP принимает дату без зоны, поэтому она переводится в ту же зону, в которой создавалась.
func FormatDate(r *syncrecord.Record, fallback time.Time, loc *time.Location) string {
	if r.TransactionDate.Valid {
		return r.TransactionDate.Time.In(loc).Format(models.DateFormat)
	}
	return fallback.In(loc).Format(models.DateFormat)
}

// RemoveCompleted удаляет COMPLETED записи, созданные в прошлом календарном месяце.
// Записи вне этого окна не трогаются.
func RemoveCompleted(ctx context.Context, table *syncrecord.Table, now time.Time, limit int) (*BatchResult, error) {
	logger := logging.GetLogger()
	logger.Debugf("Start RemoveCompleted(%s)", table.Kind())
	defer logger.Debugf("End RemoveCompleted(%s)", table.Kind())

	from, to := PreviousMonth(now)
	records, err := table.SelectCompletedBetween(ctx, from, to, ClampLimit(limit))
	if err != nil {
		return nil, errors.Wrapf(err, "failed SelectCompletedBetween(%s)", table.Kind())
	}

	result := NewBatchResult()
	result.DeletedIDs = make([]int64, 0, len(records))
	for _, r := range records {
		item := itemResult(r, "")
		result.Summary.TotalProcessed++
		result.Results = append(result.Results, item)
		if err := table.Delete(ctx, r.ID); err != nil {
			result.Summary.ErrorCount++
			result.Summary.Errors = append(result.Summary.Errors, fmt.Sprintf("id=%d: %v", r.ID, err))
			item.Message = err.Error()
			continue
		}
		result.Summary.SuccessCount++
		result.DeletedIDs = append(result.DeletedIDs, r.ID)
	}

	result.Message = fmt.Sprintf("Deleted %d completed %s records created between %s and %s",
		len(result.DeletedIDs), table.Kind(), from.Format("2006-01-02"), to.Format("2006-01-02"))
	logger.Info(result.Message)
	return result, nil
}

// ListStatus счетчики по статусам и последние записи, пустой status - все статусы
func ListStatus(ctx context.Context, table *syncrecord.Table, status string, limit int) (*StatusResult, error) {
	var filter syncrecord.Status
	if strings.TrimSpace(status) != "" {
		s, err := syncrecord.ParseStatus(status)
		if err != nil {
			return nil, errors.Wrapf(ErrUnknownStatus, "%q", status)
		}
		filter = s
	}

	counts, err := table.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	records, err := table.SelectLatest(ctx, filter, ClampLimit(limit))
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = make([]*syncrecord.Record, 0)
	}

	total := 0
	for _, n := range counts {
		total += n
	}
	return &StatusResult{
		Message: fmt.Sprintf("%d %s records", total, table.Kind()),
		Summary: counts,
		Results: records,
	}, nil
}
