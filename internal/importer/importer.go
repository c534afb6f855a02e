package importer

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"
	"time"

	"WooWithWasp/internal/database/model/syncrecord"
	"WooWithWasp/pkg/logging"

	"github.com/araddon/dateparse"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	CustomerAmazon  = "AMAZON"
	CustomerNumAZ   = "AZ 11"
	CustomerNumCLLC = "CLLC 01"
)

var (
	ErrEmptyFile      = errors.New("file is empty")
	ErrUnknownMapping = errors.New("unknown year/sheet combination")
)

// Key выбор раскладки колонок
type Key struct {
	Year  int
	Sheet string
}

// Columns буквы колонок листа, HeaderRows строк заголовка пропускаются
type Columns struct {
	ItemNumber string
	Customer   string
	Quantity   string
	Cost       string
	HeaderRows int
}

// ColumnMaps известные раскладки выгрузок продаж/возвратов
var ColumnMaps = map[Key]Columns{
	{Year: 2024, Sheet: "Sales"}:   {ItemNumber: "A", Customer: "C", Quantity: "E", Cost: "F", HeaderRows: 1},
	{Year: 2024, Sheet: "Returns"}: {ItemNumber: "A", Customer: "B", Quantity: "D", Cost: "E", HeaderRows: 1},
	{Year: 2025, Sheet: "Sales"}:   {ItemNumber: "B", Customer: "D", Quantity: "G", Cost: "H", HeaderRows: 2},
	{Year: 2025, Sheet: "Returns"}: {ItemNumber: "B", Customer: "C", Quantity: "F", Cost: "G", HeaderRows: 2},
	{Year: 2026, Sheet: "Sales"}:   {ItemNumber: "B", Customer: "D", Quantity: "G", Cost: "H", HeaderRows: 2},
	{Year: 2026, Sheet: "Returns"}: {ItemNumber: "B", Customer: "C", Quantity: "F", Cost: "G", HeaderRows: 2},
}

type Request struct {
	Year  int
	Month int
	Sheet string
}

func (r Request) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Year, validation.Required, validation.Min(2000), validation.Max(2100)),
		validation.Field(&r.Month, validation.Required, validation.Min(1), validation.Max(12)),
		validation.Field(&r.Sheet, validation.Required),
	)
}

type Result struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}

// ParsePeriod месяц и год из строки вида "2024-05" или "05/31/2024"
func ParsePeriod(s string) (int, int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, 0, errors.New("period is empty")
	}
	t, err := dateparse.ParseAny(s)
	if err != nil {
		return 0, 0, errors.Wrapf(err, "failed parse period %q", s)
	}
	return t.Year(), int(t.Month()), nil
}

// LastInstant последняя секунда месяца
func LastInstant(year, month int, loc *time.Location) time.Time {
	return time.Date(year, time.Month(month)+1, 1, 0, 0, 0, 0, loc).Add(-time.Second)
}

// CustomerNumber AMAZON дает AZ 11, любой другой покупатель - CLLC 01
func CustomerNumber(customer string) string {
	if strings.ToUpper(strings.TrimSpace(customer)) == CustomerAmazon {
		return CustomerNumAZ
	}
	return CustomerNumCLLC
}

type Importer struct {
	table *syncrecord.Table
	loc   *time.Location
}

func NewImporter(table *syncrecord.Table) *Importer {
	return &Importer{table: table, loc: time.Local}
}

func (i *Importer) WithLocation(loc *time.Location) *Importer {
	i.loc = loc
	return i
}

// Import загружает строки листа в wasp_sales_returns_sync со статусом PENDING.
// Ошибки проверки запроса и файла отклоняют весь импорт.
func (i *Importer) Import(ctx context.Context, r io.Reader, req Request) (*Result, error) {
	logger := logging.GetLogger()
	logger.Debug("Start Import sales returns")
	defer logger.Debug("End Import sales returns")

	req.Sheet = strings.TrimSpace(req.Sheet)
	if err := req.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid import request")
	}
	columns, ok := ColumnMaps[Key{Year: req.Year, Sheet: req.Sheet}]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownMapping, "year=%d, sheet=%q", req.Year, req.Sheet)
	}
	if r == nil {
		return nil, ErrEmptyFile
	}

	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "failed excelize.OpenReader")
	}
	defer func() {
		if err := f.Close(); err != nil {
			logger.Errorf("failed close workbook: %v", err)
		}
	}()

	rows, err := f.GetRows(req.Sheet)
	if err != nil {
		return nil, errors.Wrapf(err, "failed GetRows(%s)", req.Sheet)
	}
	if len(rows) <= columns.HeaderRows {
		return nil, ErrEmptyFile
	}

	idx, err := columnIndexes(columns)
	if err != nil {
		return nil, err
	}

	dateAcquired := LastInstant(req.Year, req.Month, i.loc)
	result := new(Result)
	for n, row := range rows[columns.HeaderRows:] {
		rowNum := n + columns.HeaderRows + 1

		rawQuantity := strings.ReplaceAll(cell(row, idx.quantity), ",", "")
		quantity, err := decimal.NewFromString(rawQuantity)
		if err != nil || quantity.IsZero() {
			result.Skipped++
			continue
		}

		typ := syncrecord.TYPE_SALE
		if quantity.IsNegative() {
			typ = syncrecord.TYPE_RETURN
		}

		cost, err := decimal.NewFromString(strings.ReplaceAll(cell(row, idx.cost), ",", ""))
		if err != nil {
			cost = decimal.Zero
		}

		record := &syncrecord.Record{
			ItemNumber:      cell(row, idx.itemNumber),
			Quantity:        quantity.Abs(),
			Type:            typ,
			CustomerNumber:  CustomerNumber(cell(row, idx.customer)),
			Cost:            cost,
			TransactionDate: sql.NullTime{Time: dateAcquired, Valid: true},
			Status:          syncrecord.STATUS_PENDING,
		}
		if _, err := i.table.Insert(ctx, record); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", rowNum, err))
			continue
		}
		result.Imported++
	}

	logger.Infof("импорт %s %d-%02d: imported=%d, skipped=%d, errors=%d",
		req.Sheet, req.Year, req.Month, result.Imported, result.Skipped, len(result.Errors))
	return result, nil
}

type indexes struct {
	itemNumber, customer, quantity, cost int
}

func columnIndexes(c Columns) (*indexes, error) {
	idx := new(indexes)
	for _, col := range []struct {
		name string
		dst  *int
	}{
		{c.ItemNumber, &idx.itemNumber},
		{c.Customer, &idx.customer},
		{c.Quantity, &idx.quantity},
		{c.Cost, &idx.cost},
	} {
		n, err := excelize.ColumnNameToNumber(col.name)
		if err != nil {
			return nil, errors.Wrapf(err, "bad column %q", col.name)
		}
		*col.dst = n - 1
	}
	return idx, nil
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
