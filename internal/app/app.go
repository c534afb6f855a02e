package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"WooWithWasp/internal/cache"
	"WooWithWasp/internal/config"
	"WooWithWasp/internal/database"
	"WooWithWasp/internal/database/model/option"
	"WooWithWasp/internal/database/model/retryqueue"
	"WooWithWasp/internal/database/model/syncrecord"
	httphandler "WooWithWasp/internal/handlers/http"
	"WooWithWasp/internal/importer"
	"WooWithWasp/internal/retry"
	"WooWithWasp/internal/scheduler"
	"WooWithWasp/internal/sync"
	"WooWithWasp/internal/sync/order"
	"WooWithWasp/internal/sync/salesreturn"
	"WooWithWasp/internal/telegram"
	"WooWithWasp/internal/waspapi"
	"WooWithWasp/internal/webhook"
	"WooWithWasp/internal/wooapi"
	"WooWithWasp/pkg/logging"

	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

const shutdownTimeout = 10 * time.Second

// App собранный сервис: база, клиент WASP, конвейеры, повторы, планировщик
type App struct {
	cfg   *config.Config
	db    *sqlx.DB
	redis *redis.Client

	Orders       *syncrecord.Table
	SalesReturns *syncrecord.Table
	Options      *option.Options

	API             waspapi.WASPAPI
	Retry           *retry.Service
	OrderSync       *order.Service
	SalesReturnSync *salesreturn.Service
	Importer        *importer.Importer
	Webhook         *webhook.Ingester
	Backfill        *webhook.Backfill
	Notifier        telegram.Notifier
	Scheduler       *scheduler.Scheduler
}

func New(cfg *config.Config) (*App, error) {
	logger := logging.GetLogger()
	logger.Debug("Start app.New")
	defer logger.Debug("End app.New")

	db, err := database.Open(cfg.DBSQLITE.DB)
	if err != nil {
		return nil, err
	}
	a, err := NewWithDB(cfg, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return a, nil
}

// NewWithDB сборка поверх уже открытой базы
func NewWithDB(cfg *config.Config, db *sqlx.DB) (*App, error) {
	a := &App{
		cfg:          cfg,
		db:           db,
		Orders:       syncrecord.NewTable(db, syncrecord.KindOrder),
		SalesReturns: syncrecord.NewTable(db, syncrecord.KindSalesReturn),
		Options:      option.NewOptions(db),
	}

	itemCache, err := a.newCache()
	if err != nil {
		return nil, err
	}
	a.API = cache.NewCachedAPI(waspapi.NewAPI(cfg.WASP.URL, cfg.WASP.Token,
		waspapi.Timeout(time.Duration(cfg.WASP.TimeoutSeconds)*time.Second),
		waspapi.InsecureSkipVerify(cfg.WASP.InsecureSkipVerify == 1),
		waspapi.Paths(cfg.WASP.PathInventorySearch, cfg.WASP.PathTransactionRemove, cfg.WASP.PathTransactionAdd),
	), itemCache)

	a.Retry = retry.NewService(a.Orders, a.SalesReturns, retryqueue.NewQueue(db), a.Options, cfg.RETRY.BatchSize).
		WithAutoDefault(syncrecord.KindOrder, cfg.RETRY.AutoOrders == 1).
		WithAutoDefault(syncrecord.KindSalesReturn, cfg.RETRY.AutoSalesReturns == 1)

	// даты пишутся и отправляются в WASP в одной зоне
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	a.OrderSync = order.NewService(a.Orders, a.API).WithAutoRetry(a.Retry).WithLocation(loc)
	a.SalesReturnSync = salesreturn.NewService(a.SalesReturns, a.API).WithAutoRetry(a.Retry).WithLocation(loc)
	a.Importer = importer.NewImporter(a.SalesReturns).WithLocation(loc)
	a.Webhook = webhook.NewIngester(a.Orders, cfg.WEBHOOK.Secret, cfg.WEBHOOK.Statuses, cfg.WASP.OrderCustomerNumber).
		WithLocation(loc)
	if cfg.WOOCOMMERCE.URL != "" {
		woo := wooapi.NewAPI(cfg.WOOCOMMERCE.URL, cfg.WOOCOMMERCE.Key, cfg.WOOCOMMERCE.Secret, cfg.WOOCOMMERCE.RPS)
		a.Backfill = webhook.NewBackfill(a.Webhook, woo, cfg.WOOCOMMERCE.BackfillDays)
	}

	a.Notifier, err = telegram.NewNotifier(cfg.TELEGRAM.BotToken, cfg.TELEGRAM.ChatID, cfg.TELEGRAM.Debug == 1)
	if err != nil {
		logging.GetLogger().Errorf("telegram отключен: %v", err)
		a.Notifier = telegram.Nop{}
	}

	a.Scheduler = scheduler.New(a.Options, a.Notifier)
	a.registerJobs()
	return a, nil
}

func (a *App) newCache() (cache.CacheItem, error) {
	ttl := time.Duration(a.cfg.CACHE.TimeUpdate) * time.Second
	if a.cfg.CACHE.Backend != config.CacheBackendRedis {
		return cache.NewCacheItem(ttl), nil
	}
	client, err := cache.NewRedisClient(a.cfg.REDIS.Addr, a.cfg.REDIS.Password, a.cfg.REDIS.DB)
	if err != nil {
		return nil, err
	}
	a.redis = client
	return cache.NewRedisCacheItem(client, ttl), nil
}

func (a *App) pipelines() map[string]sync.Pipeline {
	return map[string]sync.Pipeline{
		httphandler.KIND_ORDERS:        a.OrderSync,
		httphandler.KIND_SALES_RETURNS: a.SalesReturnSync,
	}
}

func (a *App) registerJobs() {
	batch := func(fn func(ctx context.Context, limit int) (*sync.BatchResult, error)) scheduler.JobFunc {
		return func(ctx context.Context) (*sync.BatchResult, error) {
			return fn(ctx, sync.DefaultLimit)
		}
	}
	jobs := map[string]scheduler.JobFunc{
		scheduler.JOB_PREPARE_ORDERS:                 batch(a.OrderSync.Prepare),
		scheduler.JOB_IMPORT_ORDERS:                  batch(a.OrderSync.Import),
		scheduler.JOB_REMOVE_COMPLETED_ORDERS:        batch(a.OrderSync.RemoveCompleted),
		scheduler.JOB_PREPARE_SALES_RETURNS:          batch(a.SalesReturnSync.Prepare),
		scheduler.JOB_IMPORT_SALES_RETURNS:           batch(a.SalesReturnSync.Import),
		scheduler.JOB_REMOVE_COMPLETED_SALES_RETURNS: batch(a.SalesReturnSync.RemoveCompleted),
		scheduler.JOB_TRUNCATE_RETRY_QUEUE:           a.truncateRetryQueue,
		scheduler.JOB_BACKFILL_ORDERS:                a.backfillOrders,
	}
	for name, run := range jobs {
		c, ok := a.cfg.CRON[name]
		if !ok || c == nil {
			d := config.DefaultCron[name]
			c = &d
		}
		a.Scheduler.Register(name, time.Duration(c.IntervalMinutes)*time.Minute, c.Enabled == 1, run)
	}
}

func (a *App) truncateRetryQueue(ctx context.Context) (*sync.BatchResult, error) {
	n, err := a.Retry.TruncateQueue(ctx)
	if err != nil {
		return nil, err
	}
	result := sync.NewBatchResult()
	result.Summary.TotalProcessed = int(n)
	result.Summary.SuccessCount = int(n)
	result.Message = fmt.Sprintf("Retry queue truncated, %d rows deleted", n)
	return result, nil
}

func (a *App) backfillOrders(ctx context.Context) (*sync.BatchResult, error) {
	if a.Backfill == nil {
		return nil, errors.New("WOOCOMMERCE.URL is not configured")
	}
	return a.Backfill.Run(ctx)
}

func (a *App) Handler() *httphandler.Handler {
	return &httphandler.Handler{
		Pipelines: a.pipelines(),
		Tables: map[string]*syncrecord.Table{
			httphandler.KIND_ORDERS:        a.Orders,
			httphandler.KIND_SALES_RETURNS: a.SalesReturns,
		},
		Retry:     a.Retry,
		Scheduler: a.Scheduler,
		Importer:  a.Importer,
		Webhook:   a.Webhook,
		Notifier:  a.Notifier,
		Token:     a.cfg.SERVICE.Token,
	}
}

// Truncate orders | sales-returns | retry-queue
func (a *App) Truncate(ctx context.Context, table string) (int64, error) {
	switch table {
	case httphandler.KIND_ORDERS:
		return a.Orders.Truncate(ctx)
	case httphandler.KIND_SALES_RETURNS:
		return a.SalesReturns.Truncate(ctx)
	case httphandler.TABLE_RETRY_QUEUE:
		return a.Retry.TruncateQueue(ctx)
	}
	return 0, errors.Errorf("unknown table %q", table)
}

// Serve HTTP сервер и планировщик до отмены ctx
func (a *App) Serve(ctx context.Context) error {
	logger := logging.GetLogger()

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.SERVICE.PORT),
		Handler:           a.Handler().Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	a.Scheduler.Start(ctx)
	defer a.Scheduler.Stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("сервис слушает порт %d", a.cfg.SERVICE.PORT)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "failed ListenAndServe")
	case <-ctx.Done():
	}

	logger.Info("остановка сервиса")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "failed server.Shutdown")
	}
	return nil
}

func (a *App) Close() error {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			logging.GetLogger().Errorf("failed redis.Close: %v", err)
		}
	}
	return a.db.Close()
}
