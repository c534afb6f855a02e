package sync

import (
	"context"
	"fmt"
	"net/http"

	"WooWithWasp/internal/database/model/syncrecord"
	"WooWithWasp/internal/retry"
)

// Pipeline этапы синхронизации одного вида записей
type Pipeline interface {
	Kind() syncrecord.Kind
	Prepare(ctx context.Context, limit int) (*BatchResult, error)
	Import(ctx context.Context, limit int) (*BatchResult, error)
	RemoveCompleted(ctx context.Context, limit int) (*BatchResult, error)
	Status(ctx context.Context, status string, limit int) (*StatusResult, error)
}

// AutoRetry постановка в очередь повторов перед подготовкой, nil - выключено
type AutoRetry interface {
	AutoEnqueue(ctx context.Context, kind syncrecord.Kind) (*retry.Summary, error)
}

const (
	OPERATION_ADD    = "add"
	OPERATION_REMOVE = "remove"
)

type Summary struct {
	TotalProcessed int      `json:"total_processed"`
	SuccessCount   int      `json:"success_count"`
	ErrorCount     int      `json:"error_count"`
	IgnoredCount   int      `json:"ignored_count"`
	AddCount       int      `json:"add_count,omitempty"`
	RemoveCount    int      `json:"remove_count,omitempty"`
	Errors         []string `json:"errors,omitempty"`
}

type ItemResult struct {
	ID           int64             `json:"id"`
	ItemNumber   string            `json:"item_number"`
	Status       syncrecord.Status `json:"status"`
	SiteName     string            `json:"site_name,omitempty"`
	LocationCode string            `json:"location_code,omitempty"`
	Operation    string            `json:"operation,omitempty"`
	Message      string            `json:"message,omitempty"`
}

// BatchResult тело ответа {message, summary, results}
type BatchResult struct {
	Message    string         `json:"message"`
	Summary    *Summary       `json:"summary"`
	Results    []*ItemResult  `json:"results"`
	DeletedIDs []int64        `json:"deleted_ids,omitempty"`
	Retry      *retry.Summary `json:"retry,omitempty"`
}

func NewBatchResult() *BatchResult {
	return &BatchResult{
		Summary: new(Summary),
		Results: make([]*ItemResult, 0),
	}
}

// Add учитывает запись в сводке. err - ошибка записи в базу, учитывается как ошибка.
func (b *BatchResult) Add(item *ItemResult, err error) {
	b.Summary.TotalProcessed++
	b.Results = append(b.Results, item)

	if err != nil {
		b.Summary.ErrorCount++
		b.Summary.Errors = append(b.Summary.Errors, fmt.Sprintf("id=%d: %v", item.ID, err))
		if item.Message == "" {
			item.Message = err.Error()
		}
		return
	}

	switch item.Status {
	case syncrecord.STATUS_READY, syncrecord.STATUS_COMPLETED:
		b.Summary.SuccessCount++
	case syncrecord.STATUS_IGNORED:
		b.Summary.IgnoredCount++
	default:
		b.Summary.ErrorCount++
	}
}

// HTTPStatus 200 без ошибок, 500 если нет ни одного успеха, иначе 207
func (b *BatchResult) HTTPStatus() int {
	return HTTPStatus(b.Summary)
}

func HTTPStatus(s *Summary) int {
	if s == nil || s.ErrorCount == 0 {
		return http.StatusOK
	}
	if s.SuccessCount == 0 {
		return http.StatusInternalServerError
	}
	return http.StatusMultiStatus
}

// StatusResult тело ответа /{kind}-status
type StatusResult struct {
	Message string                    `json:"message"`
	Summary map[syncrecord.Status]int `json:"summary"`
	Results []*syncrecord.Record      `json:"results"`
}
