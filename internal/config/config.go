package config

import (
	"os"
	"time"
	_ "time/tzdata"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/pkg/errors"
	"gopkg.in/gcfg.v1"
)

const DefaultPath = "./config/config.ini"

type (
	Config struct {
		SERVICE struct {
			PORT     int
			Token    string
			TimeZone string
		}
		LOG struct {
			Debug int
			Path  string
		}
		DBSQLITE struct {
			DB string
		}
		WASP struct {
			URL                   string
			Token                 string
			TimeoutSeconds        int
			InsecureSkipVerify    int
			PathInventorySearch   string
			PathTransactionRemove string
			PathTransactionAdd    string
			OrderCustomerNumber   string
		}
		CACHE struct {
			Backend    string
			TimeUpdate int
		}
		REDIS struct {
			Addr     string
			Password string
			DB       int
		}
		RETRY struct {
			BatchSize        int
			AutoOrders       int
			AutoSalesReturns int
		}
		CRON     map[string]*Cron
		TELEGRAM struct {
			BotToken string
			ChatID   int64
			Debug    int
		}
		WEBHOOK struct {
			Secret   string
			Statuses []string
		}
		WOOCOMMERCE struct {
			URL          string
			Key          string
			Secret       string
			RPS          int
			BackfillDays int
		}
	}

	Cron struct {
		Enabled         int
		IntervalMinutes int
	}
)

const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

// DefaultCron интервалы по умолчанию для заданий планировщика
var DefaultCron = map[string]Cron{
	"prepare-orders":                 {Enabled: 1, IntervalMinutes: 5},
	"import-orders":                  {Enabled: 1, IntervalMinutes: 5},
	"remove-completed-orders":        {Enabled: 1, IntervalMinutes: 24 * 60},
	"prepare-sales-returns":          {Enabled: 1, IntervalMinutes: 5},
	"import-sales-returns":           {Enabled: 1, IntervalMinutes: 5},
	"remove-completed-sales-returns": {Enabled: 1, IntervalMinutes: 24 * 60},
	"truncate-retry-queue":           {Enabled: 1, IntervalMinutes: 7 * 24 * 60},
	"backfill-orders":                {Enabled: 0, IntervalMinutes: 60},
}

// Default возвращает конфигурацию без файла
func Default() *Config {
	cfg := new(Config)
	cfg.SERVICE.PORT = 8080
	cfg.DBSQLITE.DB = "db.db"
	cfg.WASP.TimeoutSeconds = 60
	cfg.WASP.PathInventorySearch = "/public-api/ic/item/inventorysearch"
	cfg.WASP.PathTransactionRemove = "/public-api/transactions/item/remove"
	cfg.WASP.PathTransactionAdd = "/public-api/transactions/item/add"
	cfg.WASP.OrderCustomerNumber = "CLLC 01"
	cfg.CACHE.Backend = CacheBackendMemory
	cfg.CACHE.TimeUpdate = 300
	cfg.RETRY.BatchSize = 50
	cfg.WEBHOOK.Statuses = []string{"completed"}
	cfg.WOOCOMMERCE.RPS = 5
	cfg.WOOCOMMERCE.BackfillDays = 2
	cfg.CRON = make(map[string]*Cron)
	applyCronDefaults(cfg)
	return cfg
}

func applyCronDefaults(cfg *Config) {
	if cfg.CRON == nil {
		cfg.CRON = make(map[string]*Cron)
	}
	for name, def := range DefaultCron {
		c, ok := cfg.CRON[name]
		if !ok || c == nil {
			d := def
			cfg.CRON[name] = &d
			continue
		}
		if c.IntervalMinutes <= 0 {
			c.IntervalMinutes = def.IntervalMinutes
		}
	}
}

// Load читает INI-файл поверх значений по умолчанию и проверяет результат
func Load(path string) (*Config, error) {
	cfg := Default()
	cfg.CRON = nil
	cfg.WEBHOOK.Statuses = nil

	if _, err := os.Stat(path); err != nil {
		return nil, errors.Wrapf(err, "config file %s not found", path)
	}

	err := gcfg.ReadFileInto(cfg, path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse gcfg data %s", path)
	}

	applyCronDefaults(cfg)
	if len(cfg.WEBHOOK.Statuses) == 0 {
		cfg.WEBHOOK.Statuses = []string{"completed"}
	}
	if cfg.WASP.TimeoutSeconds <= 0 {
		cfg.WASP.TimeoutSeconds = 60
	}
	if cfg.CACHE.TimeUpdate <= 0 {
		cfg.CACHE.TimeUpdate = 300
	}
	if cfg.RETRY.BatchSize <= 0 {
		cfg.RETRY.BatchSize = 50
	}
	if cfg.WOOCOMMERCE.RPS <= 0 {
		cfg.WOOCOMMERCE.RPS = 5
	}
	if cfg.WOOCOMMERCE.BackfillDays <= 0 {
		cfg.WOOCOMMERCE.BackfillDays = 2
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	err := validation.ValidateStruct(&c.WASP,
		validation.Field(&c.WASP.URL, validation.Required, is.URL),
		validation.Field(&c.WASP.Token, validation.Required),
		validation.Field(&c.WASP.PathInventorySearch, validation.Required),
		validation.Field(&c.WASP.PathTransactionRemove, validation.Required),
		validation.Field(&c.WASP.PathTransactionAdd, validation.Required),
	)
	if err != nil {
		return errors.Wrap(err, "WASP")
	}

	err = validation.ValidateStruct(&c.CACHE,
		validation.Field(&c.CACHE.Backend, validation.Required, validation.In(CacheBackendMemory, CacheBackendRedis)),
	)
	if err != nil {
		return errors.Wrap(err, "CACHE")
	}

	if c.CACHE.Backend == CacheBackendRedis {
		err = validation.ValidateStruct(&c.REDIS,
			validation.Field(&c.REDIS.Addr, validation.Required),
		)
		if err != nil {
			return errors.Wrap(err, "REDIS")
		}
	}

	err = validation.ValidateStruct(&c.DBSQLITE,
		validation.Field(&c.DBSQLITE.DB, validation.Required),
	)
	if err != nil {
		return errors.Wrap(err, "DBSQLITE")
	}

	if c.WOOCOMMERCE.URL != "" {
		err = validation.ValidateStruct(&c.WOOCOMMERCE,
			validation.Field(&c.WOOCOMMERCE.URL, is.URL),
			validation.Field(&c.WOOCOMMERCE.Key, validation.Required),
			validation.Field(&c.WOOCOMMERCE.Secret, validation.Required),
		)
		if err != nil {
			return errors.Wrap(err, "WOOCOMMERCE")
		}
	}

	if _, err := c.Location(); err != nil {
		return errors.Wrap(err, "SERVICE")
	}

	for name := range c.CRON {
		if _, ok := DefaultCron[name]; !ok {
			return errors.Errorf("CRON: unknown job %q", name)
		}
	}
	return nil
}

// Location зона для дат заказов, импорта и транзакций WASP. Пусто - зона сервера.
func (c *Config) Location() (*time.Location, error) {
	if c.SERVICE.TimeZone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.SERVICE.TimeZone)
	if err != nil {
		return nil, errors.Wrapf(err, "failed LoadLocation(%q)", c.SERVICE.TimeZone)
	}
	return loc, nil
}
