package order

import (
	"context"
	"database/sql"
	"net/http"
	"testing"
	"time"

	"WooWithWasp/internal/database"
	"WooWithWasp/internal/database/model/syncrecord"
	"WooWithWasp/internal/retry"
	"WooWithWasp/internal/waspapi/models"
	"WooWithWasp/internal/waspapi/waspapitest"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTable(t *testing.T) *syncrecord.Table {
	t.Helper()
	db, err := database.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return syncrecord.NewTable(db, syncrecord.KindOrder)
}

func insert(t *testing.T, table *syncrecord.Table, itemNumber string, status syncrecord.Status) int64 {
	t.Helper()
	id, err := table.Insert(context.Background(), &syncrecord.Record{
		OrderID:        1001,
		ItemNumber:     itemNumber,
		Quantity:       decimal.NewFromInt(2),
		CustomerNumber: "CLLC 01",
		Status:         status,
		TransactionDate: sql.NullTime{
			Time:  time.Date(2024, 5, 10, 8, 30, 0, 0, time.UTC),
			Valid: true,
		},
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

func TestPrepareNonNumericIgnoredWithoutLookup(t *testing.T) {
	table := newTable(t)
	api := &waspapitest.APIMock{}
	bad := insert(t, table, "ABC-1", syncrecord.STATUS_PENDING)
	empty := insert(t, table, "", syncrecord.STATUS_PENDING)

	result, err := NewService(table, api).Prepare(context.Background(), 10)
	require.NoError(t, err)

	assert.Empty(t, api.Lookups)
	assert.Equal(t, 2, result.Summary.TotalProcessed)
	assert.Equal(t, 2, result.Summary.IgnoredCount)
	assert.Equal(t, http.StatusOK, result.HTTPStatus())
	assert.Equal(t, syncrecord.STATUS_IGNORED, get(t, table, bad).Status)
	assert.Equal(t, syncrecord.STATUS_IGNORED, get(t, table, empty).Status)
}

func TestPrepareSelectsFirstNonCLLC(t *testing.T) {
	table := newTable(t)
	api := &waspapitest.APIMock{Lookup: func(string) *models.Result {
		return waspapitest.Locations([2]string{"CLLC", "A-1"}, [2]string{"MAIN", "cllc"}, [2]string{"MAIN", "B-2"}, [2]string{"EAST", "C-3"})
	}}
	id := insert(t, table, "10045", syncrecord.STATUS_PENDING)

	result, err := NewService(table, api).Prepare(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Summary.SuccessCount)

	r := get(t, table, id)
	assert.Equal(t, syncrecord.STATUS_READY, r.Status)
	assert.Equal(t, "MAIN", r.SiteName)
	assert.Equal(t, "B-2", r.LocationCode)
	assert.Equal(t, `{"Data":[]}`, r.APIResponse)
}

func TestPrepareOnlyCLLCIgnored(t *testing.T) {
	table := newTable(t)
	api := &waspapitest.APIMock{Lookup: func(string) *models.Result {
		return waspapitest.Locations([2]string{"CLLC", "A-1"}, [2]string{"Main", "Cllc"})
	}}
	id := insert(t, table, "10045", syncrecord.STATUS_PENDING)

	result, err := NewService(table, api).Prepare(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Summary.IgnoredCount)

	r := get(t, table, id)
	assert.Equal(t, syncrecord.STATUS_IGNORED, r.Status)
	assert.Equal(t, "Only CLLC locations found", r.Message)
	assert.Empty(t, r.SiteName)
}

func TestPrepareLookupFailures(t *testing.T) {
	table := newTable(t)
	api := &waspapitest.APIMock{Lookup: func(itemNumber string) *models.Result {
		if itemNumber == "1" {
			return models.NewError(models.KIND_SEMANTIC, 200, `{"HasError":true}`, "no Data in WASP API response")
		}
		return models.NewError(models.KIND_TRANSPORT, 500, "", "connection refused")
	}}
	noData := insert(t, table, "1", syncrecord.STATUS_PENDING)
	transport := insert(t, table, "2", syncrecord.STATUS_PENDING)

	result, err := NewService(table, api).Prepare(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Summary.ErrorCount)
	assert.Equal(t, 1, result.Summary.IgnoredCount)
	assert.Equal(t, http.StatusInternalServerError, result.HTTPStatus())

	r := get(t, table, noData)
	assert.Equal(t, syncrecord.STATUS_FAILED, r.Status)
	assert.Equal(t, `{"HasError":true}`, r.APIResponse)

	r = get(t, table, transport)
	assert.Equal(t, syncrecord.STATUS_IGNORED, r.Status)
	assert.Equal(t, "connection refused", r.Message)
}

func TestPrepareIdempotentWithoutPending(t *testing.T) {
	table := newTable(t)
	api := &waspapitest.APIMock{}
	for _, s := range []syncrecord.Status{syncrecord.STATUS_READY, syncrecord.STATUS_COMPLETED, syncrecord.STATUS_IGNORED, syncrecord.STATUS_FAILED} {
		insert(t, table, "100", s)
	}
	before, err := table.CountByStatus(context.Background())
	require.NoError(t, err)

	result, err := NewService(table, api).Prepare(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Summary.TotalProcessed)
	assert.Empty(t, api.Lookups)

	after, err := table.CountByStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestPrepareClampsLimit(t *testing.T) {
	table := newTable(t)
	api := &waspapitest.APIMock{}
	for i := 0; i < 12; i++ {
		insert(t, table, "X", syncrecord.STATUS_PENDING)
	}

	result, err := NewService(table, api).Prepare(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 10, result.Summary.TotalProcessed)

	result, err = NewService(table, api).Prepare(context.Background(), -5)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Summary.TotalProcessed)
}

func TestPrepareRunsAutoRetryFirst(t *testing.T) {
	ctx := context.Background()
	table := newTable(t)
	api := &waspapitest.APIMock{Lookup: func(string) *models.Result {
		return waspapitest.Locations([2]string{"MAIN", "A-1"})
	}}
	id := insert(t, table, "100", syncrecord.STATUS_FAILED)

	retrier := &retryMock{enqueue: func() { require.NoError(t, table.ResetToPending(ctx, table.DB(), id)) }}
	result, err := NewService(table, api).WithAutoRetry(retrier).Prepare(ctx, 10)
	require.NoError(t, err)

	require.NotNil(t, result.Retry)
	assert.Equal(t, 1, result.Retry.Added)
	assert.Equal(t, 1, result.Summary.SuccessCount)
	assert.Equal(t, syncrecord.STATUS_READY, get(t, table, id).Status)
}

type retryMock struct {
	enqueue func()
	err     error
}

func (m *retryMock) AutoEnqueue(ctx context.Context, kind syncrecord.Kind) (*retry.Summary, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.enqueue()
	return &retry.Summary{Added: 1, Found: 1}, nil
}

func TestPrepareCountsAutoRetryFailure(t *testing.T) {
	ctx := context.Background()
	table := newTable(t)
	api := &waspapitest.APIMock{Lookup: func(string) *models.Result {
		return waspapitest.Locations([2]string{"MAIN", "A-1"})
	}}
	insert(t, table, "100", syncrecord.STATUS_PENDING)

	retrier := &retryMock{err: errors.New("database is locked")}
	result, err := NewService(table, api).WithAutoRetry(retrier).Prepare(ctx, 10)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Summary.SuccessCount)
	assert.Equal(t, 1, result.Summary.ErrorCount)
	assert.Equal(t, []string{"retry: database is locked"}, result.Summary.Errors)
	assert.Equal(t, http.StatusMultiStatus, result.HTTPStatus())

	result, err = NewService(newTable(t), api).WithAutoRetry(retrier).Prepare(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, result.HTTPStatus())
}

func TestImportRemovesEveryOrder(t *testing.T) {
	table := newTable(t)
	api := &waspapitest.APIMock{Remove: func(payload []*models.TransactionPayload) *models.Result {
		if payload[0].ItemNumber == "2" {
			return models.NewError(models.KIND_SEMANTIC, 200, `{"Data":{"ResultList":[{"Message":"Failed","HttpStatusCode":200}]}}`, "Failed")
		}
		return waspapitest.Success()
	}}
	ok := insert(t, table, "1", syncrecord.STATUS_READY)
	failed := insert(t, table, "2", syncrecord.STATUS_READY)
	insert(t, table, "3", syncrecord.STATUS_PENDING)

	result, err := NewService(table, api).WithLocation(time.UTC).Import(context.Background(), 10)
	require.NoError(t, err)

	assert.Empty(t, api.Added)
	require.Len(t, api.Removed, 2)
	assert.Equal(t, "2024-05-10T08:30:00", api.Removed[0].RemoveDate)
	assert.Equal(t, 2.0, api.Removed[0].Quantity)
	assert.Equal(t, "CLLC 01", api.Removed[0].CustomerNumber)
	assert.Equal(t, 2, result.Summary.RemoveCount)
	assert.Equal(t, http.StatusMultiStatus, result.HTTPStatus())

	assert.Equal(t, syncrecord.STATUS_COMPLETED, get(t, table, ok).Status)
	r := get(t, table, failed)
	assert.Equal(t, syncrecord.STATUS_FAILED, r.Status)
	assert.Equal(t, "Failed", r.Message)
	assert.Contains(t, r.APIResponse, "ResultList")
}

func TestRemoveCompletedPreviousMonthOnly(t *testing.T) {
	ctx := context.Background()
	table := newTable(t)
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	insertAt := func(created time.Time, status syncrecord.Status) int64 {
		id, err := table.Insert(ctx, &syncrecord.Record{ItemNumber: "1", Status: status, CreatedAt: created})
		require.NoError(t, err)
		return id
	}
	current := insertAt(time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC), syncrecord.STATUS_COMPLETED)
	previous := insertAt(time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC), syncrecord.STATUS_COMPLETED)
	twoAgo := insertAt(time.Date(2024, 4, 20, 0, 0, 0, 0, time.UTC), syncrecord.STATUS_COMPLETED)
	failed := insertAt(time.Date(2024, 5, 21, 0, 0, 0, 0, time.UTC), syncrecord.STATUS_FAILED)

	result, err := NewService(table, &waspapitest.APIMock{}).WithClock(func() time.Time { return now }).RemoveCompleted(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []int64{previous}, result.DeletedIDs)

	_, err = table.Get(ctx, previous)
	assert.Error(t, err)
	for _, id := range []int64{current, twoAgo, failed} {
		_, err := table.Get(ctx, id)
		assert.NoError(t, err)
	}
}

func TestStatusRejectsUnknown(t *testing.T) {
	table := newTable(t)
	insert(t, table, "1", syncrecord.STATUS_FAILED)
	insert(t, table, "2", syncrecord.STATUS_READY)

	service := NewService(table, &waspapitest.APIMock{})
	result, err := service.Status(context.Background(), "failed", 10)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Summary[syncrecord.STATUS_FAILED])
	assert.Equal(t, 1, result.Summary[syncrecord.STATUS_READY])
	require.Len(t, result.Results, 1)
	assert.Equal(t, "1", result.Results[0].ItemNumber)

	_, err = service.Status(context.Background(), "DONE", 10)
	assert.Error(t, err)
}

func TestImportKeepsLocalOrderDate(t *testing.T) {
	table := newTable(t)
	api := &waspapitest.APIMock{}
	loc := time.FixedZone("EDT", -4*60*60)

	_, err := table.Insert(context.Background(), &syncrecord.Record{
		OrderID:         1002,
		ItemNumber:      "10045",
		Quantity:        decimal.NewFromInt(1),
		CustomerNumber:  "CLLC 01",
		Status:          syncrecord.STATUS_READY,
		TransactionDate: sql.NullTime{Time: time.Date(2024, 5, 31, 22, 30, 0, 0, loc), Valid: true},
	})
	require.NoError(t, err)

	_, err = NewService(table, api).WithLocation(loc).Import(context.Background(), 10)
	require.NoError(t, err)

	require.Len(t, api.Removed, 1)
	assert.Equal(t, "2024-05-31T22:30:00", api.Removed[0].RemoveDate)
}
