package wooapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	gosync "sync"
	"time"

	"WooWithWasp/internal/wooapi/models"
	"WooWithWasp/internal/wooapi/options"
	"WooWithWasp/pkg/logging"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
)

const (
	PathOrders     = "/wp-json/wc/v3/orders"
	defaultRPS     = 5
	defaultTimeout = 60 * time.Second
)

type WOOAPI interface {
	// OrderList страница заказов и значение X-WP-TotalPages
	OrderList(ctx context.Context, opts ...options.Option) ([]*models.Order, int, error)
}

type wooapi struct {
	client *resty.Client
	rps    int

	mu          gosync.Mutex
	requestTime time.Time
}

// NewAPI key/secret ключи REST API магазина, rps ограничение запросов в секунду
func NewAPI(url, key, secret string, rps int) WOOAPI {
	if rps <= 0 {
		rps = defaultRPS
	}
	client := resty.New().
		SetBaseURL(url).
		SetTimeout(defaultTimeout).
		SetBasicAuth(key, secret).
		SetHeader("Accept", "application/json")
	return &wooapi{client: client, rps: rps}
}

// checkRPS ждет, пока с прошлого запроса не пройдет 1/rps секунды
func (w *wooapi) checkRPS() {
	logger := logging.GetLogger()

	w.mu.Lock()
	defer w.mu.Unlock()

	timeRPS := time.Second / time.Duration(w.rps)
	timeDiff := time.Since(w.requestTime)
	if timeDiff < timeRPS {
		timeSleep := timeRPS - timeDiff
		logger.Debugf("Over RPS, timeSleep: %s", timeSleep)
		time.Sleep(timeSleep)
	}
	w.requestTime = time.Now()
}

func (w *wooapi) OrderList(ctx context.Context, opts ...options.Option) ([]*models.Order, int, error) {
	logger := logging.GetLogger()
	logger.Debug("Start OrderList")
	defer logger.Debug("End OrderList")

	params := make(map[string]string, len(opts))
	for _, opt := range opts {
		o := new(options.OptionStruct)
		opt(o)
		params[o.Key] = o.Value
	}

	w.checkRPS()
	resp, err := w.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get(PathOrders)
	if err != nil {
		return nil, 0, errors.Wrapf(err, "ошибка при отправке запроса в Woo Api, endpoint:%s", PathOrders)
	}
	logger.Debugf("woo %s %d: %s", PathOrders, resp.StatusCode(), resp.String())

	if resp.StatusCode() != http.StatusOK {
		errorWoo := &models.ErrorWoo{StatusCode: resp.StatusCode()}
		if err := json.Unmarshal(resp.Body(), errorWoo); err != nil {
			errorWoo.Message = resp.String()
		}
		return nil, 0, errorWoo
	}

	orders := make([]*models.Order, 0)
	if err := json.Unmarshal(resp.Body(), &orders); err != nil {
		return nil, 0, errors.Wrap(err, "ошибка при json.Unmarshal() заказов")
	}

	totalPages, err := strconv.Atoi(resp.Header().Get("X-WP-TotalPages"))
	if err != nil {
		totalPages = 1
	}
	return orders, totalPages, nil
}
