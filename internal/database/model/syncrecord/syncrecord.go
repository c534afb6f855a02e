package syncrecord

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"WooWithWasp/internal/database"
	"WooWithWasp/pkg/logging"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// Kind вид записи синхронизации, у каждого своя таблица
type Kind string

const (
	KindOrder       Kind = "order"
	KindSalesReturn Kind = "sales_return"
)

func (k Kind) Valid() bool {
	return k == KindOrder || k == KindSalesReturn
}

func (k Kind) Table() string {
	switch k {
	case KindOrder:
		return database.TableOrdersSync
	case KindSalesReturn:
		return database.TableSalesReturnsSync
	default:
		return ""
	}
}

// Status состояние записи в конвейере
type Status string

const (
	STATUS_PENDING   Status = "PENDING"
	STATUS_READY     Status = "READY"
	STATUS_IGNORED   Status = "IGNORED"
	STATUS_FAILED    Status = "FAILED"
	STATUS_COMPLETED Status = "COMPLETED"
)

var Statuses = []Status{STATUS_PENDING, STATUS_READY, STATUS_IGNORED, STATUS_FAILED, STATUS_COMPLETED}

func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Statuses {
		if st == known {
			return st, nil
		}
	}
	return "", errors.Errorf("unknown status %q", s)
}

// Distressed FAILED или IGNORED, такие записи можно отправить на повтор
func (s Status) Distressed() bool {
	return s == STATUS_FAILED || s == STATUS_IGNORED
}

// Type направление движения для sales-returns
type Type string

const (
	TYPE_SALE   Type = "SALE"
	TYPE_RETURN Type = "RETURN"
)

type Record struct {
	ID              int64           `db:"id" json:"id"`
	OrderID         int64           `db:"order_id" json:"order_id,omitempty"`
	ItemNumber      string          `db:"item_number" json:"item_number"`
	Quantity        decimal.Decimal `db:"quantity" json:"quantity"`
	Type            Type            `db:"type" json:"type,omitempty"`
	CustomerNumber  string          `db:"customer_number" json:"customer_number"`
	SiteName        string          `db:"site_name" json:"site_name"`
	LocationCode    string          `db:"location_code" json:"location_code"`
	Cost            decimal.Decimal `db:"cost" json:"cost"`
	TransactionDate sql.NullTime    `db:"transaction_date" json:"-"`
	Status          Status          `db:"status" json:"status"`
	APIResponse     string          `db:"api_response" json:"api_response,omitempty"`
	Message         string          `db:"message" json:"message,omitempty"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`
}

// Table доступ к таблице записей одного вида
type Table struct {
	db   *sqlx.DB
	kind Kind
	now  func() time.Time
}

func NewTable(db *sqlx.DB, kind Kind) *Table {
	return &Table{db: db, kind: kind, now: time.Now}
}

// WithClock подменяет источник времени для created_at/updated_at
func (t *Table) WithClock(now func() time.Time) *Table {
	t.now = now
	return t
}

func (t *Table) Kind() Kind {
	return t.kind
}

func (t *Table) DB() *sqlx.DB {
	return t.db
}

func (t *Table) columns() string {
	switch t.kind {
	case KindOrder:
		return "id, order_id, item_number, quantity, '' AS type, customer_number, site_name, location_code, " +
			"'0' AS cost, remove_date AS transaction_date, status, api_response, message, created_at, updated_at"
	default:
		return "id, 0 AS order_id, item_number, quantity, type, customer_number, site_name, location_code, " +
			"cost, date_acquired AS transaction_date, status, api_response, message, created_at, updated_at"
	}
}

func (t *Table) Insert(ctx context.Context, r *Record) (int64, error) {
	logger := logging.GetLogger()
	logger.Debugf("Start %s.Insert", t.kind)
	defer logger.Debugf("End %s.Insert", t.kind)

	now := t.now().UTC()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now
	if r.Status == "" {
		r.Status = STATUS_PENDING
	}

	var query string
	var args []interface{}
	switch t.kind {
	case KindOrder:
		query = "INSERT INTO " + t.kind.Table() + " (order_id, item_number, quantity, customer_number, site_name, location_code, " +
			"remove_date, status, api_response, message, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);"
		args = []interface{}{r.OrderID, r.ItemNumber, r.Quantity, r.CustomerNumber, r.SiteName, r.LocationCode,
			utcNullTime(r.TransactionDate), r.Status, r.APIResponse, r.Message, r.CreatedAt.UTC(), r.UpdatedAt}
	case KindSalesReturn:
		if r.Type == "" {
			r.Type = TYPE_SALE
		}
		query = "INSERT INTO " + t.kind.Table() + " (item_number, quantity, type, customer_number, site_name, location_code, " +
			"cost, date_acquired, status, api_response, message, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);"
		args = []interface{}{r.ItemNumber, r.Quantity, r.Type, r.CustomerNumber, r.SiteName, r.LocationCode,
			r.Cost, utcNullTime(r.TransactionDate), r.Status, r.APIResponse, r.Message, r.CreatedAt.UTC(), r.UpdatedAt}
	default:
		return 0, errors.Errorf("unknown kind %q", t.kind)
	}

	logger.Debugf("INSERT:\n%s(%v)", query, args)
	res, err := t.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, errors.Wrapf(err, "failed INSERT to dbsqlite; query:\n%s", query)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, errors.Wrap(err, "failed LastInsertId()")
	}
	r.ID = id
	return id, nil
}

func (t *Table) Get(ctx context.Context, id int64) (*Record, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id=?;", t.columns(), t.kind.Table())
	r := new(Record)
	err := t.db.GetContext(ctx, r, query, id)
	if err != nil {
		return nil, errors.Wrapf(err, "failed SELECT to dbsqlite; query:\n%s(%d)", query, id)
	}
	return r, nil
}

// SelectByStatus пачка записей в статусе, в порядке поступления
func (t *Table) SelectByStatus(ctx context.Context, status Status, limit int) ([]*Record, error) {
	logger := logging.GetLogger()
	logger.Debugf("Start %s.SelectByStatus", t.kind)
	defer logger.Debugf("End %s.SelectByStatus", t.kind)

	var records []*Record
	query := fmt.Sprintf("SELECT %s FROM %s WHERE status=? ORDER BY id LIMIT ?;", t.columns(), t.kind.Table())
	logger.Debugf("SELECT:\n%s(%s, %d)", query, status, limit)
	err := t.db.SelectContext(ctx, &records, query, status, limit)
	if err != nil {
		return nil, errors.Wrapf(err, "failed SELECT to dbsqlite; query:\n%s(%s, %d)", query, status, limit)
	}

	logger.Debugf("Количество полученных строк: %d", len(records))
	return records, nil
}

// SelectDistressed FAILED и IGNORED записи для очереди повторов
func (t *Table) SelectDistressed(ctx context.Context, limit int) ([]*Record, error) {
	var records []*Record
	query := fmt.Sprintf("SELECT %s FROM %s WHERE status IN (?, ?) ORDER BY id LIMIT ?;", t.columns(), t.kind.Table())
	err := t.db.SelectContext(ctx, &records, query, STATUS_FAILED, STATUS_IGNORED, limit)
	if err != nil {
		return nil, errors.Wrapf(err, "failed SELECT to dbsqlite; query:\n%s(%d)", query, limit)
	}
	return records, nil
}

// SelectLatest последние записи, опционально с фильтром по статусу
func (t *Table) SelectLatest(ctx context.Context, status Status, limit int) ([]*Record, error) {
	var records []*Record
	var err error
	var query string
	if status != "" {
		query = fmt.Sprintf("SELECT %s FROM %s WHERE status=? ORDER BY id DESC LIMIT ?;", t.columns(), t.kind.Table())
		err = t.db.SelectContext(ctx, &records, query, status, limit)
	} else {
		query = fmt.Sprintf("SELECT %s FROM %s ORDER BY id DESC LIMIT ?;", t.columns(), t.kind.Table())
		err = t.db.SelectContext(ctx, &records, query, limit)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed SELECT to dbsqlite; query:\n%s(%s, %d)", query, status, limit)
	}
	return records, nil
}

// SelectCompletedBetween COMPLETED записи с created_at в [from, to]
func (t *Table) SelectCompletedBetween(ctx context.Context, from, to time.Time, limit int) ([]*Record, error) {
	var records []*Record
	query := fmt.Sprintf("SELECT %s FROM %s WHERE status=? AND created_at >= ? AND created_at <= ? ORDER BY id LIMIT ?;",
		t.columns(), t.kind.Table())
	err := t.db.SelectContext(ctx, &records, query, STATUS_COMPLETED, from.UTC(), to.UTC(), limit)
	if err != nil {
		return nil, errors.Wrapf(err, "failed SELECT to dbsqlite; query:\n%s(%s, %s, %d)", query, from, to, limit)
	}
	return records, nil
}

func (t *Table) CountByStatus(ctx context.Context) (map[Status]int, error) {
	type row struct {
		Status Status `db:"status"`
		Count  int    `db:"cnt"`
	}
	var rows []row
	query := fmt.Sprintf("SELECT status, COUNT(*) AS cnt FROM %s GROUP BY status;", t.kind.Table())
	err := t.db.SelectContext(ctx, &rows, query)
	if err != nil {
		return nil, errors.Wrapf(err, "failed SELECT to dbsqlite; query:\n%s", query)
	}

	counts := make(map[Status]int, len(Statuses))
	for _, s := range Statuses {
		counts[s] = 0
	}
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}

// UpdatePrepared результат подготовки пишется одним UPDATE
func (t *Table) UpdatePrepared(ctx context.Context, r *Record) error {
	logger := logging.GetLogger()
	logger.Debugf("Start %s.UpdatePrepared", t.kind)
	defer logger.Debugf("End %s.UpdatePrepared", t.kind)

	r.UpdatedAt = t.now().UTC()
	query := "UPDATE " + t.kind.Table() + " SET site_name=:site_name, location_code=:location_code, status=:status, " +
		"api_response=:api_response, message=:message, updated_at=:updated_at WHERE id=:id;"
	logger.Debugf("UPDATE:\n%s(%d, %s)", query, r.ID, r.Status)
	return t.namedExecOne(ctx, query, map[string]interface{}{
		"id":            r.ID,
		"site_name":     r.SiteName,
		"location_code": r.LocationCode,
		"status":        r.Status,
		"api_response":  r.APIResponse,
		"message":       r.Message,
		"updated_at":    r.UpdatedAt,
	})
}

// UpdateImported результат передачи транзакции
func (t *Table) UpdateImported(ctx context.Context, r *Record) error {
	logger := logging.GetLogger()
	logger.Debugf("Start %s.UpdateImported", t.kind)
	defer logger.Debugf("End %s.UpdateImported", t.kind)

	r.UpdatedAt = t.now().UTC()
	query := "UPDATE " + t.kind.Table() + " SET status=:status, api_response=:api_response, message=:message, " +
		"updated_at=:updated_at WHERE id=:id;"
	logger.Debugf("UPDATE:\n%s(%d, %s)", query, r.ID, r.Status)
	return t.namedExecOne(ctx, query, map[string]interface{}{
		"id":           r.ID,
		"status":       r.Status,
		"api_response": r.APIResponse,
		"message":      r.Message,
		"updated_at":   r.UpdatedAt,
	})
}

func (t *Table) namedExecOne(ctx context.Context, query string, arg map[string]interface{}) error {
	res, err := t.db.NamedExecContext(ctx, query, arg)
	if err != nil {
		return errors.Wrapf(err, "failed UPDATE to dbsqlite; query:\n%s(%v)", query, arg)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Wrapf(err, "failed UPDATE: %s", query)
	}
	if affected != 1 {
		return errors.Errorf("UPDATE failed, id=%v, affected = %d", arg["id"], affected)
	}
	return nil
}

// ResetToPending возвращает FAILED/IGNORED запись в PENDING. COMPLETED не трогаем.
func (t *Table) ResetToPending(ctx context.Context, tx sqlx.ExecerContext, id int64) error {
	query := "UPDATE " + t.kind.Table() + " SET status=?, updated_at=? WHERE id=? AND status IN (?, ?);"
	res, err := tx.ExecContext(ctx, query, STATUS_PENDING, t.now().UTC(), id, STATUS_FAILED, STATUS_IGNORED)
	if err != nil {
		return errors.Wrapf(err, "failed UPDATE to dbsqlite; query:\n%s(%d)", query, id)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Wrapf(err, "failed UPDATE: %s", query)
	}
	if affected == 0 {
		return errors.Errorf("%s id=%d not found or not in FAILED/IGNORED", t.kind, id)
	}
	return nil
}

func (t *Table) Delete(ctx context.Context, id int64) error {
	query := "DELETE FROM " + t.kind.Table() + " WHERE id=?;"
	res, err := t.db.ExecContext(ctx, query, id)
	if err != nil {
		return errors.Wrapf(err, "failed DELETE in dbsqlite; query:\n%s(%d)", query, id)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Wrapf(err, "failed DELETE: %s", query)
	}
	if affected != 1 {
		return errors.Errorf("DELETE failed, id=%d, affected = %d", id, affected)
	}
	return nil
}

// ExistsOrderLine проверка дубля строки заказа из вебхука
func (t *Table) ExistsOrderLine(ctx context.Context, orderID int64, itemNumber string) (bool, error) {
	if t.kind != KindOrder {
		return false, errors.Errorf("ExistsOrderLine is not supported for %s", t.kind)
	}
	var cnt int
	query := "SELECT COUNT(*) FROM " + t.kind.Table() + " WHERE order_id=? AND item_number=?;"
	err := t.db.GetContext(ctx, &cnt, query, orderID, itemNumber)
	if err != nil {
		return false, errors.Wrapf(err, "failed SELECT to dbsqlite; query:\n%s(%d, %s)", query, orderID, itemNumber)
	}
	return cnt > 0, nil
}

func (t *Table) Truncate(ctx context.Context) (int64, error) {
	query := "DELETE FROM " + t.kind.Table() + ";"
	res, err := t.db.ExecContext(ctx, query)
	if err != nil {
		return 0, errors.Wrapf(err, "failed DELETE in dbsqlite; query:\n%s", query)
	}
	return res.RowsAffected()
}

func utcNullTime(t sql.NullTime) sql.NullTime {
	if !t.Valid {
		return t
	}
	return sql.NullTime{Time: t.Time.UTC(), Valid: true}
}
