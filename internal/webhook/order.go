package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"WooWithWasp/internal/database/model/syncrecord"
	"WooWithWasp/internal/wooapi/models"
	"WooWithWasp/pkg/logging"

	"github.com/araddon/dateparse"
	"github.com/pkg/errors"
)

const SignatureHeader = "X-WC-Webhook-Signature"

var (
	ErrBadSignature   = errors.New("invalid webhook signature")
	ErrInvalidPayload = errors.New("invalid order payload")
)

// Ingester строки заказов WooCommerce -> wasp_orders_sync со статусом PENDING
type Ingester struct {
	table          *syncrecord.Table
	secret         string
	statuses       map[string]bool
	customerNumber string
	loc            *time.Location
}

func NewIngester(table *syncrecord.Table, secret string, statuses []string, customerNumber string) *Ingester {
	i := &Ingester{
		table:          table,
		secret:         secret,
		statuses:       make(map[string]bool, len(statuses)),
		customerNumber: customerNumber,
		loc:            time.Local,
	}
	for _, s := range statuses {
		i.statuses[strings.ToLower(strings.TrimSpace(s))] = true
	}
	return i
}

func (i *Ingester) WithLocation(loc *time.Location) *Ingester {
	i.loc = loc
	return i
}

// VerifySignature base64(HMAC-SHA256(body, secret)). Без секрета проверка не выполняется.
func (i *Ingester) VerifySignature(body []byte, signature string) error {
	if i.secret == "" {
		return nil
	}
	mac := hmac.New(sha256.New, []byte(i.secret))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(strings.TrimSpace(signature))) {
		return ErrBadSignature
	}
	return nil
}

// Result ответ на вебхук
type Result struct {
	OrderID int64  `json:"order_id"`
	Status  string `json:"status"`
	Created int    `json:"created"`
	Skipped int    `json:"skipped"`
	Ignored bool   `json:"ignored"`
	Message string `json:"message"`
}

// Ingest тело вебхука заказа
func (i *Ingester) Ingest(ctx context.Context, body []byte) (*Result, error) {
	logger := logging.GetLogger()
	logger.Info("Start WebhookOrder Ingest")
	defer logger.Info("End WebhookOrder Ingest")

	order := new(models.Order)
	if err := json.Unmarshal(body, order); err != nil {
		return nil, errors.Wrapf(ErrInvalidPayload, "failed json.Unmarshal(body, Order): %v", err)
	}
	return i.IngestOrder(ctx, order)
}

// IngestOrder одна запись PENDING на каждую строку заказа. Строка, уже сохраненная
// для того же (order_id, item_number), пропускается.
func (i *Ingester) IngestOrder(ctx context.Context, order *models.Order) (*Result, error) {
	logger := logging.GetLogger()
	if err := order.Validate(); err != nil {
		return nil, errors.Wrapf(ErrInvalidPayload, "%v", err)
	}

	result := &Result{OrderID: order.Id, Status: order.Status}
	if !i.statuses[strings.ToLower(order.Status)] {
		result.Ignored = true
		result.Message = fmt.Sprintf("order status %q is not synchronized", order.Status)
		logger.Infof("заказ %d: %s", order.Id, result.Message)
		return result, nil
	}

	removeDate := i.orderDate(order)
	for _, item := range order.LineItems {
		itemNumber := strings.TrimSpace(item.Sku)

		exists, err := i.table.ExistsOrderLine(ctx, order.Id, itemNumber)
		if err != nil {
			return result, err
		}
		if exists {
			logger.Debugf("заказ %d, item %s уже сохранен", order.Id, itemNumber)
			result.Skipped++
			continue
		}

		_, err = i.table.Insert(ctx, &syncrecord.Record{
			OrderID:         order.Id,
			ItemNumber:      itemNumber,
			Quantity:        item.Quantity.Abs(),
			CustomerNumber:  i.customerNumber,
			TransactionDate: removeDate,
			Status:          syncrecord.STATUS_PENDING,
		})
		if err != nil {
			return result, errors.Wrapf(err, "failed insert order %d item %s", order.Id, itemNumber)
		}
		result.Created++
	}

	result.Message = fmt.Sprintf("order %d: %d lines created, %d skipped", order.Id, result.Created, result.Skipped)
	logger.Info(result.Message)
	return result, nil
}

// orderDate date_created_gmt в UTC, иначе date_created в локальной зоне магазина
func (i *Ingester) orderDate(order *models.Order) sql.NullTime {
	logger := logging.GetLogger()
	if order.DateCreatedGmt != "" {
		if t, err := dateparse.ParseIn(order.DateCreatedGmt, time.UTC); err == nil {
			return sql.NullTime{Time: t, Valid: true}
		}
	}
	if order.DateCreated != "" {
		t, err := dateparse.ParseIn(order.DateCreated, i.loc)
		if err == nil {
			return sql.NullTime{Time: t, Valid: true}
		}
		logger.Warnf("заказ %d: не удалось разобрать date_created %q: %v", order.Id, order.DateCreated, err)
	}
	return sql.NullTime{}
}
