package sync

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClampLimit(t *testing.T) {
	assert.Equal(t, 10, ClampLimit(0))
	assert.Equal(t, 10, ClampLimit(-5))
	assert.Equal(t, 100, ClampLimit(500))
	assert.Equal(t, 1, ClampLimit(1))
	assert.Equal(t, 42, ClampLimit(42))

	assert.Equal(t, 10, ParseLimit(""))
	assert.Equal(t, 10, ParseLimit("abc"))
	assert.Equal(t, 100, ParseLimit("500"))
	assert.Equal(t, 25, ParseLimit(" 25 "))
}

func TestIsNumeric(t *testing.T) {
	assert.True(t, IsNumeric("10045"))
	assert.False(t, IsNumeric(""))
	assert.False(t, IsNumeric("12a"))
	assert.False(t, IsNumeric("-3"))
	assert.False(t, IsNumeric("1.5"))
}

func TestPreviousMonth(t *testing.T) {
	from, to := PreviousMonth(time.Date(2024, 3, 31, 10, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2024, 2, 29, 23, 59, 59, 999999999, time.UTC), to)

	from, to = PreviousMonth(time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, 31, to.Day())
	assert.Equal(t, time.December, to.Month())
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusOK, HTTPStatus(&Summary{}))
	assert.Equal(t, http.StatusOK, HTTPStatus(&Summary{TotalProcessed: 3, SuccessCount: 1, IgnoredCount: 2}))
	assert.Equal(t, http.StatusMultiStatus, HTTPStatus(&Summary{TotalProcessed: 2, SuccessCount: 1, ErrorCount: 1}))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(&Summary{TotalProcessed: 2, ErrorCount: 1, IgnoredCount: 1}))
}

func TestBatchResultAdd(t *testing.T) {
	b := NewBatchResult()
	b.Add(&ItemResult{ID: 1, Status: "READY"}, nil)
	b.Add(&ItemResult{ID: 2, Status: "IGNORED"}, nil)
	b.Add(&ItemResult{ID: 3, Status: "FAILED"}, nil)
	b.Add(&ItemResult{ID: 4, Status: "READY"}, assert.AnError)

	assert.Equal(t, 4, b.Summary.TotalProcessed)
	assert.Equal(t, 1, b.Summary.SuccessCount)
	assert.Equal(t, 1, b.Summary.IgnoredCount)
	assert.Equal(t, 2, b.Summary.ErrorCount)
	assert.Len(t, b.Summary.Errors, 1)
	assert.Len(t, b.Results, 4)
}
