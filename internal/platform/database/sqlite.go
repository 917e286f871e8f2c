package database

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"hiveroadmap/internal/platform/config"
)

const memoryDSN = ":memory:"

// Open connects the delivery log store. An in-memory DSN is pinned to a
// single connection because every sqlite connection gets its own database.
func Open(cfg config.DeliveryLogConfig) (*sql.DB, error) {
	dsn := cfg.DSN
	if dsn == "" {
		dsn = memoryDSN
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}

	if dsn == memoryDSN {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	} else {
		maxConns := cfg.MaxConnections
		if maxConns <= 0 {
			maxConns = 1
		}
		db.SetMaxOpenConns(maxConns)
		db.SetMaxIdleConns(maxConns)
		db.SetConnMaxLifetime(time.Hour)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}
