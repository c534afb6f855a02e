package salesreturn

import (
	"context"
	"database/sql"
	"net/http"
	"testing"
	"time"

	"WooWithWasp/internal/database"
	"WooWithWasp/internal/database/model/syncrecord"
	"WooWithWasp/internal/importer"
	"WooWithWasp/internal/waspapi/models"
	"WooWithWasp/internal/waspapi/waspapitest"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var acquired = time.Date(2024, 5, 31, 23, 59, 59, 0, time.UTC)

func newTable(t *testing.T) *syncrecord.Table {
	t.Helper()
	db, err := database.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return syncrecord.NewTable(db, syncrecord.KindSalesReturn)
}

func insert(t *testing.T, table *syncrecord.Table, itemNumber string, typ syncrecord.Type, status syncrecord.Status) int64 {
	t.Helper()
	id, err := table.Insert(context.Background(), &syncrecord.Record{
		ItemNumber:      itemNumber,
		Quantity:        decimal.NewFromInt(3),
		Type:            typ,
		CustomerNumber:  "AZ 11",
		Cost:            decimal.RequireFromString("4.25"),
		TransactionDate: sql.NullTime{Time: acquired, Valid: true},
		Status:          status,
		SiteName:        "CLLC",
		LocationCode:    "R-1",
	})
	require.NoError(t, err)
	return id
}

func get(t *testing.T, table *syncrecord.Table, id int64) *syncrecord.Record {
	t.Helper()
	r, err := table.Get(context.Background(), id)
	require.NoError(t, err)
	return r
}

func TestPreparePrefersCLLC(t *testing.T) {
	table := newTable(t)
	api := &waspapitest.APIMock{Lookup: func(string) *models.Result {
		return waspapitest.Locations([2]string{"MAIN", "A-1"}, [2]string{"WEST", "cllc"}, [2]string{"CLLC", "B-2"})
	}}
	id := insert(t, table, "200", syncrecord.TYPE_SALE, syncrecord.STATUS_PENDING)

	result, err := NewService(table, api).Prepare(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Summary.SuccessCount)

	r := get(t, table, id)
	assert.Equal(t, syncrecord.STATUS_READY, r.Status)
	assert.Equal(t, "WEST", r.SiteName)
	assert.Equal(t, "cllc", r.LocationCode)
}

func TestPrepareFallsBackToFirstLocation(t *testing.T) {
	table := newTable(t)
	api := &waspapitest.APIMock{Lookup: func(string) *models.Result {
		return waspapitest.Locations([2]string{"MAIN", "A-1"}, [2]string{"EAST", "C-3"})
	}}
	id := insert(t, table, "200", syncrecord.TYPE_SALE, syncrecord.STATUS_PENDING)

	result, err := NewService(table, api).Prepare(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Summary.IgnoredCount)

	r := get(t, table, id)
	assert.Equal(t, syncrecord.STATUS_READY, r.Status)
	assert.Equal(t, "MAIN", r.SiteName)
	assert.Equal(t, "A-1", r.LocationCode)
}

func TestPrepareNonNumericIgnored(t *testing.T) {
	table := newTable(t)
	api := &waspapitest.APIMock{}
	id := insert(t, table, "12a", syncrecord.TYPE_SALE, syncrecord.STATUS_PENDING)

	_, err := NewService(table, api).Prepare(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, api.Lookups)
	assert.Equal(t, syncrecord.STATUS_IGNORED, get(t, table, id).Status)
}

func TestImportReturnUsesAdd(t *testing.T) {
	table := newTable(t)
	api := &waspapitest.APIMock{Add: func([]*models.TransactionPayload) *models.Result {
		return models.NewSuccess(200, `{"Data":{"ResultList":[{"HttpStatusCode":200}]}}`)
	}}
	ret := insert(t, table, "300", syncrecord.TYPE_RETURN, syncrecord.STATUS_READY)
	sale := insert(t, table, "301", syncrecord.TYPE_SALE, syncrecord.STATUS_READY)

	result, err := NewService(table, api).WithLocation(time.UTC).Import(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Summary.AddCount)
	assert.Equal(t, 1, result.Summary.RemoveCount)
	assert.Equal(t, 2, result.Summary.SuccessCount)
	assert.Equal(t, http.StatusOK, result.HTTPStatus())

	require.Len(t, api.Added, 1)
	assert.Equal(t, "300", api.Added[0].ItemNumber)
	assert.Equal(t, 3.0, api.Added[0].Quantity)
	assert.Equal(t, 4.25, api.Added[0].Cost)
	assert.Equal(t, "2024-05-31T23:59:59", api.Added[0].DateAcquired)
	assert.Equal(t, "AZ 11", api.Added[0].CustomerNumber)

	require.Len(t, api.Removed, 1)
	assert.Equal(t, "301", api.Removed[0].ItemNumber)
	assert.Equal(t, "2024-05-31T23:59:59", api.Removed[0].RemoveDate)

	assert.Equal(t, syncrecord.STATUS_COMPLETED, get(t, table, ret).Status)
	assert.Equal(t, syncrecord.STATUS_COMPLETED, get(t, table, sale).Status)
}

func TestImportKeepsMonthOutsideUTC(t *testing.T) {
	table := newTable(t)
	api := &waspapitest.APIMock{}
	loc := time.FixedZone("EDT", -4*60*60)

	id, err := table.Insert(context.Background(), &syncrecord.Record{
		ItemNumber:      "300",
		Quantity:        decimal.NewFromInt(1),
		Type:            syncrecord.TYPE_RETURN,
		TransactionDate: sql.NullTime{Time: importer.LastInstant(2024, 5, loc), Valid: true},
		Status:          syncrecord.STATUS_READY,
		SiteName:        "CLLC",
		LocationCode:    "R-1",
	})
	require.NoError(t, err)

	_, err = NewService(table, api).WithLocation(loc).Import(context.Background(), 10)
	require.NoError(t, err)

	require.Len(t, api.Added, 1)
	assert.Equal(t, "2024-05-31T23:59:59", api.Added[0].DateAcquired)
	assert.Equal(t, syncrecord.STATUS_COMPLETED, get(t, table, id).Status)
}

func TestImportWithoutDateUsesClockInLocation(t *testing.T) {
	table := newTable(t)
	api := &waspapitest.APIMock{}
	loc := time.FixedZone("EDT", -4*60*60)
	now := time.Date(2024, 6, 1, 2, 0, 0, 0, time.UTC)

	_, err := table.Insert(context.Background(), &syncrecord.Record{
		ItemNumber: "301",
		Quantity:   decimal.NewFromInt(1),
		Type:       syncrecord.TYPE_SALE,
		Status:     syncrecord.STATUS_READY,
	})
	require.NoError(t, err)

	_, err = NewService(table, api).WithLocation(loc).WithClock(func() time.Time { return now }).
		Import(context.Background(), 10)
	require.NoError(t, err)

	require.Len(t, api.Removed, 1)
	assert.Equal(t, "2024-05-31T22:00:00", api.Removed[0].RemoveDate)
}

func TestImportAllFailed(t *testing.T) {
	table := newTable(t)
	api := &waspapitest.APIMock{Remove: func([]*models.TransactionPayload) *models.Result {
		return models.NewError(models.KIND_SEMANTIC, 200, `{"Data":{"ResultList":[]}}`, "Unknown error")
	}}
	id := insert(t, table, "301", syncrecord.TYPE_SALE, syncrecord.STATUS_READY)

	result, err := NewService(table, api).Import(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, result.HTTPStatus())

	r := get(t, table, id)
	assert.Equal(t, syncrecord.STATUS_FAILED, r.Status)
	assert.Equal(t, "Unknown error", r.Message)
	assert.Equal(t, `{"Data":{"ResultList":[]}}`, r.APIResponse)
}
