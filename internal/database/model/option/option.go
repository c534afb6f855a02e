package option

import (
	"context"
	"database/sql"

	"WooWithWasp/internal/database"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// Options хранит флаги вкл/выкл (автоповтор, задания планировщика)
type Options struct {
	db *sqlx.DB
}

func NewOptions(db *sqlx.DB) *Options {
	return &Options{db: db}
}

func (o *Options) Get(ctx context.Context, name string) (string, bool, error) {
	var value string
	query := "SELECT value FROM " + database.TableOptions + " WHERE name=?;"
	err := o.db.GetContext(ctx, &value, query, name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrapf(err, "failed SELECT to dbsqlite; query:\n%s(%s)", query, name)
	}
	return value, true, nil
}

func (o *Options) Set(ctx context.Context, name, value string) error {
	query := "INSERT INTO " + database.TableOptions + " (name, value) VALUES (?, ?) " +
		"ON CONFLICT (name) DO UPDATE SET value=excluded.value;"
	_, err := o.db.ExecContext(ctx, query, name, value)
	if err != nil {
		return errors.Wrapf(err, "failed INSERT to dbsqlite; query:\n%s(%s, %s)", query, name, value)
	}
	return nil
}

// GetBool значение флага, def если флаг еще не сохранялся
func (o *Options) GetBool(ctx context.Context, name string, def bool) (bool, error) {
	value, found, err := o.Get(ctx, name)
	if err != nil {
		return def, err
	}
	if !found {
		return def, nil
	}
	return value == "1", nil
}

func (o *Options) SetBool(ctx context.Context, name string, value bool) error {
	if value {
		return o.Set(ctx, name, "1")
	}
	return o.Set(ctx, name, "0")
}
