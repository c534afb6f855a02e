package database

const DB_NAME = "db.db"

const (
	TableOrdersSync       = "wasp_orders_sync"
	TableSalesReturnsSync = "wasp_sales_returns_sync"
	TableRetryQueue       = "wasp_retry_queue"
	TableOptions          = "wasp_options"
)

const DB_SCHEMA = `CREATE TABLE IF NOT EXISTS wasp_orders_sync (
	id integer PRIMARY KEY AUTOINCREMENT,
	order_id integer NOT NULL DEFAULT 0,
	item_number text NOT NULL DEFAULT '',
	quantity text NOT NULL DEFAULT '0',
	customer_number text NOT NULL DEFAULT '',
	site_name text NOT NULL DEFAULT '',
	location_code text NOT NULL DEFAULT '',
	remove_date datetime,
	status text NOT NULL DEFAULT 'PENDING',
	api_response text NOT NULL DEFAULT '',
	message text NOT NULL DEFAULT '',
	created_at datetime NOT NULL,
	updated_at datetime NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_orders_sync_status ON wasp_orders_sync (status, created_at);
CREATE INDEX IF NOT EXISTS idx_orders_sync_order ON wasp_orders_sync (order_id, item_number);

CREATE TABLE IF NOT EXISTS wasp_sales_returns_sync (
	id integer PRIMARY KEY AUTOINCREMENT,
	item_number text NOT NULL DEFAULT '',
	quantity text NOT NULL DEFAULT '0',
	type text NOT NULL DEFAULT 'SALE',
	customer_number text NOT NULL DEFAULT '',
	site_name text NOT NULL DEFAULT '',
	location_code text NOT NULL DEFAULT '',
	cost text NOT NULL DEFAULT '0',
	date_acquired datetime,
	status text NOT NULL DEFAULT 'PENDING',
	api_response text NOT NULL DEFAULT '',
	message text NOT NULL DEFAULT '',
	created_at datetime NOT NULL,
	updated_at datetime NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sales_returns_sync_status ON wasp_sales_returns_sync (status, created_at);

CREATE TABLE IF NOT EXISTS wasp_retry_queue (
	id integer PRIMARY KEY AUTOINCREMENT,
	original_id integer NOT NULL,
	item_type text NOT NULL,
	item_number text NOT NULL DEFAULT '',
	original_status text NOT NULL,
	retry_status text NOT NULL DEFAULT 'PENDING',
	retry_count integer NOT NULL DEFAULT 0,
	last_retry_at datetime,
	created_at datetime NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_retry_queue_original ON wasp_retry_queue (original_id, item_type);

CREATE TABLE IF NOT EXISTS wasp_options (
	name text PRIMARY KEY,
	value text NOT NULL
);
`
