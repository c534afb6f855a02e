package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"testing"
	"time"

	"WooWithWasp/internal/database"
	"WooWithWasp/internal/database/model/syncrecord"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const orderBody = `{
	"id": 5120,
	"status": "completed",
	"date_created": "2024-05-10T10:15:00",
	"date_created_gmt": "2024-05-10T08:15:00",
	"line_items": [
		{"id": 1, "name": "Widget", "quantity": 2, "sku": " 10045 "},
		{"id": 2, "name": "Gadget", "quantity": 1, "sku": "10046"}
	]
}`

func newTable(t *testing.T) *syncrecord.Table {
	t.Helper()
	db, err := database.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return syncrecord.NewTable(db, syncrecord.KindOrder)
}

func TestIngest(t *testing.T) {
	ctx := context.Background()
	table := newTable(t)
	ingester := NewIngester(table, "", []string{"completed"}, "CLLC 01")

	result, err := ingester.Ingest(ctx, []byte(orderBody))
	require.NoError(t, err)
	assert.Equal(t, int64(5120), result.OrderID)
	assert.Equal(t, 2, result.Created)
	assert.False(t, result.Ignored)

	records, err := table.SelectByStatus(ctx, syncrecord.STATUS_PENDING, 10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "10045", records[0].ItemNumber)
	assert.Equal(t, int64(5120), records[0].OrderID)
	assert.True(t, records[0].Quantity.Equal(decimal.NewFromInt(2)))
	assert.Equal(t, "CLLC 01", records[0].CustomerNumber)
	require.True(t, records[0].TransactionDate.Valid)
	assert.True(t, time.Date(2024, 5, 10, 8, 15, 0, 0, time.UTC).Equal(records[0].TransactionDate.Time))

	result, err = ingester.Ingest(ctx, []byte(orderBody))
	require.NoError(t, err)
	assert.Equal(t, 0, result.Created)
	assert.Equal(t, 2, result.Skipped)
}

func TestIngestIgnoresStatus(t *testing.T) {
	ctx := context.Background()
	table := newTable(t)
	ingester := NewIngester(table, "", []string{"completed"}, "CLLC 01")

	result, err := ingester.Ingest(ctx, []byte(`{"id": 7, "status": "pending", "line_items": [{"sku": "1", "quantity": 1}]}`))
	require.NoError(t, err)
	assert.True(t, result.Ignored)

	counts, err := table.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, counts[syncrecord.STATUS_PENDING])
}

func TestIngestRejectsInvalid(t *testing.T) {
	ingester := NewIngester(newTable(t), "", []string{"completed"}, "CLLC 01")

	_, err := ingester.Ingest(context.Background(), []byte(`not json`))
	assert.True(t, errors.Is(err, ErrInvalidPayload))

	_, err = ingester.Ingest(context.Background(), []byte(`{"status": "completed"}`))
	assert.True(t, errors.Is(err, ErrInvalidPayload))
}

func TestIngestLocalDateFallback(t *testing.T) {
	ctx := context.Background()
	table := newTable(t)
	loc := time.FixedZone("UTC+3", 3*60*60)
	ingester := NewIngester(table, "", []string{"completed"}, "CLLC 01").WithLocation(loc)

	_, err := ingester.Ingest(ctx, []byte(`{"id": 8, "status": "completed", "date_created": "2024-05-10 10:00:00",
		"line_items": [{"sku": "1", "quantity": -1}]}`))
	require.NoError(t, err)

	records, err := table.SelectByStatus(ctx, syncrecord.STATUS_PENDING, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].Quantity.Equal(decimal.NewFromInt(1)))
	assert.True(t, time.Date(2024, 5, 10, 7, 0, 0, 0, time.UTC).Equal(records[0].TransactionDate.Time))
}

func TestVerifySignature(t *testing.T) {
	ingester := NewIngester(newTable(t), "s3cret", nil, "CLLC 01")

	mac := hmac.New(sha256.New, []byte("s3cret"))
	mac.Write([]byte(orderBody))
	signature := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	assert.NoError(t, ingester.VerifySignature([]byte(orderBody), signature))
	assert.True(t, errors.Is(ingester.VerifySignature([]byte(orderBody), "bad"), ErrBadSignature))
	assert.NoError(t, NewIngester(newTable(t), "", nil, "").VerifySignature([]byte(orderBody), ""))
}
