package waspapi

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"WooWithWasp/internal/waspapi/models"
	"WooWithWasp/pkg/logging"

	"github.com/go-resty/resty/v2"
)

type WASPAPI interface {
	LookupItem(ctx context.Context, itemNumber string) *models.Result
	RemoveTransaction(ctx context.Context, payload []*models.TransactionPayload) *models.Result
	AddTransaction(ctx context.Context, payload []*models.TransactionPayload) *models.Result
}

const (
	defaultTimeout = 60 * time.Second

	PathInventorySearch   = "/public-api/ic/item/inventorysearch"
	PathTransactionRemove = "/public-api/transactions/item/remove"
	PathTransactionAdd    = "/public-api/transactions/item/add"
)

type waspapi struct {
	url                   string
	token                 string
	timeout               time.Duration
	insecureSkipVerify    bool
	pathInventorySearch   string
	pathTransactionRemove string
	pathTransactionAdd    string

	client *resty.Client
}

type Option func(*waspapi)

func Timeout(d time.Duration) Option {
	return func(w *waspapi) {
		if d > 0 {
			w.timeout = d
		}
	}
}

func InsecureSkipVerify(value bool) Option {
	return func(w *waspapi) {
		w.insecureSkipVerify = value
	}
}

// Paths переопределяет пути методов, пустые значения оставляют пути по умолчанию
func Paths(inventorySearch, transactionRemove, transactionAdd string) Option {
	return func(w *waspapi) {
		if inventorySearch != "" {
			w.pathInventorySearch = inventorySearch
		}
		if transactionRemove != "" {
			w.pathTransactionRemove = transactionRemove
		}
		if transactionAdd != "" {
			w.pathTransactionAdd = transactionAdd
		}
	}
}

func NewAPI(url, token string, opts ...Option) WASPAPI {
	logger := logging.GetLogger()
	logger.Debug("Start NewAPI WASP")
	defer logger.Debug("End NewAPI WASP")

	w := &waspapi{
		url:                   strings.TrimRight(url, "/"),
		token:                 token,
		timeout:               defaultTimeout,
		pathInventorySearch:   PathInventorySearch,
		pathTransactionRemove: PathTransactionRemove,
		pathTransactionAdd:    PathTransactionAdd,
	}
	for _, opt := range opts {
		opt(w)
	}

	w.client = resty.New().
		SetBaseURL(w.url).
		SetTimeout(w.timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if w.token != "" {
		w.client.SetAuthToken(w.token)
	}
	if w.insecureSkipVerify {
		w.client.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	return w
}

// LookupItem поиск остатков товара по складам.
// Успех только если в ответе есть непустой массив Data.
func (w *waspapi) LookupItem(ctx context.Context, itemNumber string) *models.Result {
	logger := logging.GetLogger()
	logger.Debug("Start LookupItem")
	defer logger.Debug("End LookupItem")

	itemNumber = strings.TrimSpace(itemNumber)
	if w.token == "" {
		return models.NewValidationError("WASP API token is empty")
	}
	if itemNumber == "" {
		return models.NewValidationError("item number is empty")
	}

	statusCode, body, err := w.post(ctx, w.pathInventorySearch, &models.InventorySearchRequest{ItemNumber: itemNumber})
	if err != nil {
		logger.Errorf("failed LookupItem(%s): %v", itemNumber, err)
		return models.NewError(models.KIND_TRANSPORT, http.StatusInternalServerError, body, err.Error())
	}

	var response models.InventorySearchResponse
	if err := json.Unmarshal([]byte(body), &response); err != nil {
		return models.NewError(models.KIND_SEMANTIC, statusCode, body, "invalid response from WASP API: "+err.Error())
	}
	if response.Data == nil {
		return models.NewError(models.KIND_SEMANTIC, statusCode, body, "no Data in WASP API response")
	}
	if len(*response.Data) == 0 {
		return models.NewError(models.KIND_SEMANTIC, statusCode, body, "empty Data in WASP API response")
	}

	result := models.NewSuccess(statusCode, body)
	result.Locations = *response.Data
	logger.Debugf("item %s: %d locations", itemNumber, len(result.Locations))
	return result
}

// RemoveTransaction списание. Успех: ResultList[0].Message == "Success" и HttpStatusCode == 200.
func (w *waspapi) RemoveTransaction(ctx context.Context, payload []*models.TransactionPayload) *models.Result {
	logger := logging.GetLogger()
	logger.Debug("Start RemoveTransaction")
	defer logger.Debug("End RemoveTransaction")

	return w.transaction(ctx, w.pathTransactionRemove, payload, func(r *models.TransactionResult) bool {
		return r.Message == "Success" && r.HttpStatusCode == http.StatusOK
	})
}

// AddTransaction оприходование. Успех только по HttpStatusCode == 200, Message не проверяется.
func (w *waspapi) AddTransaction(ctx context.Context, payload []*models.TransactionPayload) *models.Result {
	logger := logging.GetLogger()
	logger.Debug("Start AddTransaction")
	defer logger.Debug("End AddTransaction")

	return w.transaction(ctx, w.pathTransactionAdd, payload, func(r *models.TransactionResult) bool {
		return r.HttpStatusCode == http.StatusOK
	})
}

func (w *waspapi) transaction(ctx context.Context, path string, payload []*models.TransactionPayload, ok func(*models.TransactionResult) bool) *models.Result {
	logger := logging.GetLogger()

	if w.token == "" {
		return models.NewValidationError("WASP API token is empty")
	}
	if len(payload) == 0 {
		return models.NewValidationError("transaction payload is empty")
	}

	statusCode, body, err := w.post(ctx, path, payload)
	if err != nil {
		logger.Errorf("failed transaction %s: %v", path, err)
		return models.NewError(models.KIND_TRANSPORT, http.StatusInternalServerError, body, err.Error())
	}

	var response models.TransactionResponse
	if err := json.Unmarshal([]byte(body), &response); err != nil {
		return models.NewError(models.KIND_SEMANTIC, statusCode, body, "invalid response from WASP API: "+err.Error())
	}

	first := response.First()
	if first != nil && ok(first) {
		return models.NewSuccess(statusCode, body)
	}

	message := "Unknown error"
	switch {
	case first != nil && first.Message != "":
		message = first.Message
	case len(response.Messages) > 0 && response.Messages[0].Message != "":
		message = response.Messages[0].Message
	}
	return models.NewError(models.KIND_SEMANTIC, statusCode, body, message)
}

func (w *waspapi) post(ctx context.Context, path string, body interface{}) (int, string, error) {
	logger := logging.GetLogger()
	logger.Debugf("POST %s%s", w.url, path)

	r, err := w.client.R().
		SetContext(ctx).
		SetBody(body).
		Post(path)
	if err != nil {
		return 0, "", err
	}

	logger.Debugf("status: %d, body: %s", r.StatusCode(), r.String())
	return r.StatusCode(), r.String(), nil
}
