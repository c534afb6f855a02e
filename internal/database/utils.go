package database

import (
	"os"

	"WooWithWasp/pkg/logging"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

func Exists(name string) bool {
	if _, err := os.Stat(name); err != nil {
		if os.IsNotExist(err) {
			return false
		}
	}
	return true
}

func CreateDB(dbname string) error {
	logger := logging.GetLogger()
	logger.Info("CreateDB:>Start")
	defer logger.Info("CreateDB:>End")

	logger.Info("CreateDB:>Creating ", dbname)

	db, err := sqlx.Open("sqlite3", dbname)
	if err != nil {
		return errors.Wrapf(err, "failed sqlx.Open(%s)", dbname)
	}
	defer func(db *sqlx.DB) {
		err := db.Close()
		if err != nil {
			logger.Error(err)
		}
	}(db)

	err = Migrate(db)
	if err != nil {
		return err
	}

	logger.Info(dbname, " created")
	return nil
}

// Migrate создает таблицы, если их еще нет
func Migrate(db *sqlx.DB) error {
	_, err := db.Exec(DB_SCHEMA)
	if err != nil {
		return errors.Wrap(err, "failed to apply DB_SCHEMA")
	}
	return nil
}

// Open открывает базу, при отсутствии файла создает ее со схемой
func Open(dbname string) (*sqlx.DB, error) {
	logger := logging.GetLogger()

	if !Exists(dbname) {
		logger.Info(dbname, " not exist")
		err := CreateDB(dbname)
		if err != nil {
			return nil, errors.Wrapf(err, "failed CreateDB(%s)", dbname)
		}
	} else {
		logger.Info(dbname, " exist")
	}

	db, err := sqlx.Connect("sqlite3", dbname+"?_busy_timeout=5000")
	if err != nil {
		return nil, errors.Wrapf(err, "failed sqlx.Connect(%s)", dbname)
	}
	// sqlite не любит параллельных писателей
	db.SetMaxOpenConns(1)

	err = Migrate(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// OpenMemory используется в тестах
func OpenMemory() (*sqlx.DB, error) {
	db, err := sqlx.Connect("sqlite3", ":memory:")
	if err != nil {
		return nil, errors.Wrap(err, "failed sqlx.Connect(:memory:)")
	}
	db.SetMaxOpenConns(1)
	err = Migrate(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
