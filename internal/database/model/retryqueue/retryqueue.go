package retryqueue

import (
	"context"
	"database/sql"
	"time"

	"WooWithWasp/internal/database"
	"WooWithWasp/internal/database/model/syncrecord"
	"WooWithWasp/pkg/logging"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// RetryStatus жизненный цикл самой попытки повтора, не записи-источника
type RetryStatus string

const (
	RETRY_STATUS_PENDING    RetryStatus = "PENDING"
	RETRY_STATUS_PROCESSING RetryStatus = "PROCESSING"
	RETRY_STATUS_COMPLETED  RetryStatus = "COMPLETED"
	RETRY_STATUS_FAILED     RetryStatus = "FAILED"
)

// ItemType значение item_type в очереди
type ItemType string

const (
	ITEM_TYPE_ORDER        ItemType = "order"
	ITEM_TYPE_SALES_RETURN ItemType = "sales_return"
)

func ItemTypeOf(kind syncrecord.Kind) ItemType {
	if kind == syncrecord.KindSalesReturn {
		return ITEM_TYPE_SALES_RETURN
	}
	return ITEM_TYPE_ORDER
}

type Entry struct {
	ID             int64             `db:"id" json:"id"`
	OriginalID     int64             `db:"original_id" json:"original_id"`
	ItemType       ItemType          `db:"item_type" json:"item_type"`
	ItemNumber     string            `db:"item_number" json:"item_number"`
	OriginalStatus syncrecord.Status `db:"original_status" json:"original_status"`
	RetryStatus    RetryStatus       `db:"retry_status" json:"retry_status"`
	RetryCount     int               `db:"retry_count" json:"retry_count"`
	LastRetryAt    sql.NullTime      `db:"last_retry_at" json:"-"`
	CreatedAt      time.Time         `db:"created_at" json:"created_at"`
}

type Queue struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewQueue(db *sqlx.DB) *Queue {
	return &Queue{db: db, now: time.Now}
}

func (q *Queue) WithClock(now func() time.Time) *Queue {
	q.now = now
	return q
}

func (q *Queue) Exists(ctx context.Context, originalID int64, itemType ItemType) (bool, error) {
	var cnt int
	query := "SELECT COUNT(*) FROM " + database.TableRetryQueue + " WHERE original_id=? AND item_type=?;"
	err := q.db.GetContext(ctx, &cnt, query, originalID, itemType)
	if err != nil {
		return false, errors.Wrapf(err, "failed SELECT to dbsqlite; query:\n%s(%d, %s)", query, originalID, itemType)
	}
	return cnt > 0, nil
}

// Insert добавляет запись со статусом PENDING и retry_count=0.
// false без ошибки - запись по этому ключу уже есть (уникальный индекс).
func (q *Queue) Insert(ctx context.Context, e *Entry) (bool, error) {
	logger := logging.GetLogger()
	logger.Debug("Start RetryQueue.Insert")
	defer logger.Debug("End RetryQueue.Insert")

	e.RetryStatus = RETRY_STATUS_PENDING
	e.RetryCount = 0
	e.CreatedAt = q.now().UTC()

	query := "INSERT INTO " + database.TableRetryQueue + " (original_id, item_type, item_number, original_status, retry_status, retry_count, created_at) " +
		"VALUES (?, ?, ?, ?, ?, ?, ?) ON CONFLICT (original_id, item_type) DO NOTHING;"
	logger.Debugf("INSERT:\n%s(%v)", query, e)
	res, err := q.db.ExecContext(ctx, query, e.OriginalID, e.ItemType, e.ItemNumber, e.OriginalStatus, e.RetryStatus, e.RetryCount, e.CreatedAt)
	if err != nil {
		return false, errors.Wrapf(err, "failed INSERT to dbsqlite; query:\n%s(%d, %s)", query, e.OriginalID, e.ItemType)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrapf(err, "failed INSERT: %s", query)
	}
	if affected == 0 {
		return false, nil
	}
	id, err := res.LastInsertId()
	if err != nil {
		return false, errors.Wrap(err, "failed LastInsertId()")
	}
	e.ID = id
	return true, nil
}

// MarkRetried retry_count+1, PROCESSING, last_retry_at=now
func (q *Queue) MarkRetried(ctx context.Context, tx sqlx.ExecerContext, originalID int64, itemType ItemType) error {
	query := "UPDATE " + database.TableRetryQueue + " SET retry_count=retry_count+1, retry_status=?, last_retry_at=? " +
		"WHERE original_id=? AND item_type=?;"
	res, err := tx.ExecContext(ctx, query, RETRY_STATUS_PROCESSING, q.now().UTC(), originalID, itemType)
	if err != nil {
		return errors.Wrapf(err, "failed UPDATE to dbsqlite; query:\n%s(%d, %s)", query, originalID, itemType)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Wrapf(err, "failed UPDATE: %s", query)
	}
	if affected == 0 {
		return errors.Errorf("retry queue entry for %s id=%d not found", itemType, originalID)
	}
	return nil
}

func (q *Queue) Get(ctx context.Context, originalID int64, itemType ItemType) (*Entry, error) {
	e := new(Entry)
	query := "SELECT * FROM " + database.TableRetryQueue + " WHERE original_id=? AND item_type=?;"
	err := q.db.GetContext(ctx, e, query, originalID, itemType)
	if err != nil {
		return nil, errors.Wrapf(err, "failed SELECT to dbsqlite; query:\n%s(%d, %s)", query, originalID, itemType)
	}
	return e, nil
}

func (q *Queue) Count(ctx context.Context, itemType ItemType) (int, error) {
	var cnt int
	query := "SELECT COUNT(*) FROM " + database.TableRetryQueue + " WHERE item_type=?;"
	err := q.db.GetContext(ctx, &cnt, query, itemType)
	if err != nil {
		return 0, errors.Wrapf(err, "failed SELECT to dbsqlite; query:\n%s(%s)", query, itemType)
	}
	return cnt, nil
}

func (q *Queue) CountByRetryStatus(ctx context.Context, itemType ItemType, status RetryStatus) (int, error) {
	var cnt int
	query := "SELECT COUNT(*) FROM " + database.TableRetryQueue + " WHERE item_type=? AND retry_status=?;"
	err := q.db.GetContext(ctx, &cnt, query, itemType, status)
	if err != nil {
		return 0, errors.Wrapf(err, "failed SELECT to dbsqlite; query:\n%s(%s, %s)", query, itemType, status)
	}
	return cnt, nil
}

// Truncate очищает всю очередь, без учета статусов
func (q *Queue) Truncate(ctx context.Context) (int64, error) {
	query := "DELETE FROM " + database.TableRetryQueue + ";"
	res, err := q.db.ExecContext(ctx, query)
	if err != nil {
		return 0, errors.Wrapf(err, "failed DELETE in dbsqlite; query:\n%s", query)
	}
	return res.RowsAffected()
}

func (q *Queue) DB() *sqlx.DB {
	return q.db
}
